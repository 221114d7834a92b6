// Package sqlite is the file-backed store for single-node deployments where
// running Postgres would be overkill.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mkurata/pbwatch/internal/domain"
	"github.com/mkurata/pbwatch/internal/repo"
)

var _ repo.WatchlistStore = (*Store)(nil)
var _ repo.NotifyStateStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS watchlist (
  id           TEXT PRIMARY KEY,
  url          TEXT NOT NULL UNIQUE,
  title        TEXT NOT NULL DEFAULT '',
  price        TEXT NOT NULL DEFAULT '',
  image_url    TEXT NOT NULL DEFAULT '',
  in_stock     INTEGER NOT NULL DEFAULT 0,
  status_text  TEXT NOT NULL DEFAULT '',
  created_at   TIMESTAMP NOT NULL,
  last_checked TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS notify_state (
  item_id       TEXT PRIMARY KEY,
  last_in_stock INTEGER NOT NULL,
  last_sent_at  TIMESTAMP NULL
);
`

type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens (creating if needed) the database file and applies the schema.
func New(path string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite tolerates one writer; don't let the pool pretend otherwise.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// NewWithDB wraps an existing handle; tests use this with sqlmock.
func NewWithDB(db *sql.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping lets the health endpoint verify the file is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- WatchlistStore ----

func (s *Store) Add(ctx context.Context, item *domain.WatchItem) error {
	if item.ID == "" {
		item.ID = domain.ItemID(makeID())
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.LastChecked.IsZero() {
		item.LastChecked = item.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist
		   (id, url, title, price, image_url, in_stock, status_text, created_at, last_checked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(item.ID), item.URL, item.Title, item.Price, item.ImageURL,
		item.InStock, item.StatusText, item.CreatedAt, item.LastChecked,
	)
	if err != nil {
		// go-sqlite3 reports constraint violations only through the message text.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return repo.ErrDuplicateURL
		}
		return fmt.Errorf("insert watch item: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*domain.WatchItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, price, image_url, in_stock, status_text, created_at, last_checked
		   FROM watchlist
		  ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var out []*domain.WatchItem
	for rows.Next() {
		var it domain.WatchItem
		var id string
		if err := rows.Scan(&id, &it.URL, &it.Title, &it.Price, &it.ImageURL,
			&it.InStock, &it.StatusText, &it.CreatedAt, &it.LastChecked); err != nil {
			return nil, fmt.Errorf("scan watch item: %w", err)
		}
		it.ID = domain.ItemID(id)
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (s *Store) GetByURL(ctx context.Context, url string) (*domain.WatchItem, error) {
	var it domain.WatchItem
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, price, image_url, in_stock, status_text, created_at, last_checked
		   FROM watchlist
		  WHERE url = ?`, url).
		Scan(&id, &it.URL, &it.Title, &it.Price, &it.ImageURL,
			&it.InStock, &it.StatusText, &it.CreatedAt, &it.LastChecked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by url: %w", err)
	}
	it.ID = domain.ItemID(id)
	return &it, nil
}

func (s *Store) UpdateState(ctx context.Context, id domain.ItemID, st domain.StateUpdate) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE watchlist
		    SET title = ?, price = ?, image_url = ?,
		        in_stock = ?, status_text = ?, last_checked = ?
		  WHERE id = ?`,
		st.Title, st.Price, st.ImageURL, st.InStock, st.StatusText, st.LastChecked, string(id),
	)
	if err != nil {
		return fmt.Errorf("update watch item: %w", err)
	}
	return nil
}

// ---- NotifyStateStore ----

func (s *Store) Get(ctx context.Context, itemID string) (*repo.NotifyRecord, error) {
	var r repo.NotifyRecord
	r.ItemID = itemID
	var lastSent sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT last_in_stock, last_sent_at FROM notify_state WHERE item_id = ?`, itemID).
		Scan(&r.LastInStock, &lastSent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get notify state: %w", err)
	}
	if lastSent.Valid {
		t := lastSent.Time
		r.LastSentAt = &t
	}
	return &r, nil
}

func (s *Store) Set(ctx context.Context, itemID string, inStock bool, sentAt time.Time) error {
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_state (item_id, last_in_stock, last_sent_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (item_id)
		 DO UPDATE SET last_in_stock = excluded.last_in_stock, last_sent_at = excluded.last_sent_at`,
		itemID, inStock, ts,
	)
	if err != nil {
		return fmt.Errorf("set notify state: %w", err)
	}
	return nil
}

// ID format matches the memory store: 20060102Thhmmss.nnnnnnnnn
func makeID() string {
	now := time.Now().UTC()
	return now.Format("20060102T150405.") + fmt.Sprintf("%09d", now.Nanosecond())
}
