package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mkurata/pbwatch/internal/domain"
	"github.com/mkurata/pbwatch/internal/repo"
)

// Minimal schema so the test can run on a fresh DB/volume.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS watchlist (
  id           TEXT PRIMARY KEY,
  url          TEXT NOT NULL UNIQUE,
  title        TEXT NOT NULL DEFAULT '',
  price        TEXT NOT NULL DEFAULT '',
  image_url    TEXT NOT NULL DEFAULT '',
  in_stock     BOOLEAN NOT NULL DEFAULT FALSE,
  status_text  TEXT NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_checked TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notify_state (
  item_id       TEXT PRIMARY KEY,
  last_in_stock BOOLEAN NOT NULL,
  last_sent_at  TIMESTAMPTZ NULL
);
`

func ensureSchema(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func TestPostgresStore_Add_List_Get_Update(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ensureSchema(t, dsn)

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()

	// Unique URL per run to avoid UNIQUE(url) collisions with earlier runs.
	uniqueURL := fmt.Sprintf("https://p-bandai.jp/item/item-%d/", time.Now().UTC().UnixNano())

	item := &domain.WatchItem{
		URL:        uniqueURL,
		Title:      "ROBOT魂 テストモデル",
		Price:      "8800円",
		InStock:    false,
		StatusText: "在庫なし",
	}
	if err := store.Add(ctx, item); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if item.ID == "" {
		t.Fatalf("expected ID to be set")
	}

	// duplicate URL -> sentinel
	if err := store.Add(ctx, &domain.WatchItem{URL: uniqueURL}); !errors.Is(err, repo.ErrDuplicateURL) {
		t.Fatalf("want ErrDuplicateURL, got %v", err)
	}

	// List includes it
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, x := range list {
		if x.ID == item.ID {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("added item not found in list; got %d rows", len(list))
	}

	// GetByURL round-trips
	got, err := store.GetByURL(ctx, uniqueURL)
	if err != nil {
		t.Fatalf("GetByURL: %v", err)
	}
	if got == nil || got.ID != item.ID || got.Title != item.Title {
		t.Fatalf("unexpected item: %+v", got)
	}

	// UpdateState flips stock
	checked := time.Now().UTC()
	err = store.UpdateState(ctx, item.ID, domain.StateUpdate{
		Title:       item.Title,
		Price:       item.Price,
		InStock:     true,
		StatusText:  "在庫あり",
		LastChecked: checked,
	})
	if err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	got, err = store.GetByURL(ctx, uniqueURL)
	if err != nil || got == nil {
		t.Fatalf("GetByURL after update: %+v err=%v", got, err)
	}
	if !got.InStock || got.StatusText != "在庫あり" {
		t.Fatalf("update not applied: %+v", got)
	}

	// missing URL -> nil, nil
	none, err := store.GetByURL(ctx, "https://p-bandai.jp/item/does-not-exist/")
	if err != nil || none != nil {
		t.Fatalf("want nil, nil; got %+v err=%v", none, err)
	}
}
