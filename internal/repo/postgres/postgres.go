package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mkurata/pbwatch/internal/domain"
	"github.com/mkurata/pbwatch/internal/repo"
)

var _ repo.WatchlistStore = (*Store)(nil)
var _ repo.NotifyStateStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping lets the health endpoint verify the pool is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO watchlist
		   (id, url, title, price, image_url, in_stock, status_text, created_at, last_checked)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(item.ID), item.URL, item.Title, item.Price, item.ImageURL,
		item.InStock, item.StatusText, item.CreatedAt, item.LastChecked,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation on url
			return repo.ErrDuplicateURL
		}
		return fmt.Errorf("insert watch item: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*domain.WatchItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, title, price, image_url, in_stock, status_text, created_at, last_checked
		   FROM watchlist
		  ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var out []*domain.WatchItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) GetByURL(ctx context.Context, url string) (*domain.WatchItem, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, title, price, image_url, in_stock, status_text, created_at, last_checked
		   FROM watchlist
		  WHERE url = $1`, url)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return it, nil
}

func (s *Store) UpdateState(ctx context.Context, id domain.ItemID, st domain.StateUpdate) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE watchlist
		    SET title = $2, price = $3, image_url = $4,
		        in_stock = $5, status_text = $6, last_checked = $7
		  WHERE id = $1`,
		string(id), st.Title, st.Price, st.ImageURL, st.InStock, st.StatusText, st.LastChecked,
	)
	if err != nil {
		return fmt.Errorf("update watch item: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (*domain.WatchItem, error) {
	var (
		id          string
		url         string
		title       string
		price       string
		imageURL    string
		inStock     bool
		statusText  string
		createdAt   time.Time
		lastChecked time.Time
	)
	if err := r.Scan(&id, &url, &title, &price, &imageURL, &inStock, &statusText, &createdAt, &lastChecked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan watch item: %w", err)
	}
	return &domain.WatchItem{
		ID:          domain.ItemID(id),
		URL:         url,
		Title:       title,
		Price:       price,
		ImageURL:    imageURL,
		InStock:     inStock,
		StatusText:  statusText,
		CreatedAt:   createdAt,
		LastChecked: lastChecked,
	}, nil
}

// ID format matches the memory store: 20060102Thhmmss.nnnnnnnnn
func makeID() string {
	now := time.Now().UTC()
	return now.Format("20060102T150405.") + fmt.Sprintf("%09d", now.Nanosecond())
}
