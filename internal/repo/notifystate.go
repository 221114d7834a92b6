package repo

import (
	"context"
	"time"
)

// NotifyRecord holds last-notified stock state and the last time we pushed a
// notification for an item. last_in_stock is the state we last told the user
// about, last_sent_at feeds the cooldown.
type NotifyRecord struct {
	ItemID      string
	LastInStock bool
	LastSentAt  *time.Time
}

// NotifyStateStore is implemented by a persistence layer to store
// per-item notification state.
type NotifyStateStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, itemID string) (*NotifyRecord, error)
	// Set upserts the record. If sentAt.IsZero() we store NULL for last_sent_at.
	Set(ctx context.Context, itemID string, inStock bool, sentAt time.Time) error
}
