package repo

import (
	"context"
	"errors"

	"github.com/mkurata/pbwatch/internal/domain"
)

// ErrDuplicateURL is returned by Add when the URL is already on the watchlist.
// The API maps it to 409; everything else is a plain 500.
var ErrDuplicateURL = errors.New("url already on watchlist")

// Ports (interfaces) — swap in any DB adapter later.
type WatchlistStore interface {
	Add(ctx context.Context, item *domain.WatchItem) error
	List(ctx context.Context) ([]*domain.WatchItem, error)
	// GetByURL returns nil, nil when the URL is not registered.
	GetByURL(ctx context.Context, url string) (*domain.WatchItem, error)
	UpdateState(ctx context.Context, id domain.ItemID, st domain.StateUpdate) error
}
