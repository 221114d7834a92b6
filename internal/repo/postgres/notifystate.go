package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mkurata/pbwatch/internal/repo"
)

func (s *Store) Get(ctx context.Context, itemID string) (*repo.NotifyRecord, error) {
	const q = `SELECT last_in_stock, last_sent_at FROM notify_state WHERE item_id=$1`
	var r repo.NotifyRecord
	r.ItemID = itemID
	var lastSent *time.Time
	err := s.pool.QueryRow(ctx, q, itemID).Scan(&r.LastInStock, &lastSent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.LastSentAt = lastSent
	return &r, nil
}

func (s *Store) Set(ctx context.Context, itemID string, inStock bool, sentAt time.Time) error {
	const q = `
		INSERT INTO notify_state (item_id, last_in_stock, last_sent_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (item_id)
		DO UPDATE SET last_in_stock=EXCLUDED.last_in_stock, last_sent_at=EXCLUDED.last_sent_at
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	_, err := s.pool.Exec(ctx, q, itemID, inStock, ts)
	return err
}
