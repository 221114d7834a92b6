package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkurata/pbwatch/internal/domain"
	"github.com/mkurata/pbwatch/internal/repo"
)

func TestMemoryStore_AddListAndDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()

	item := &domain.WatchItem{
		URL:        "https://p-bandai.jp/item/item-1000000000/",
		Title:      "ROBOT魂 テストモデル",
		InStock:    true,
		StatusText: "在庫あり",
	}
	if err := s.Add(ctx, item); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if item.ID == "" {
		t.Fatalf("expected item ID to be set")
	}
	if item.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}

	// same URL again -> duplicate
	dup := &domain.WatchItem{URL: item.URL}
	if err := s.Add(ctx, dup); !errors.Is(err, repo.ErrDuplicateURL) {
		t.Fatalf("want ErrDuplicateURL, got %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 item, got %d", len(all))
	}
	if all[0].URL != item.URL {
		t.Fatalf("unexpected URL: %s", all[0].URL)
	}
}

func TestMemoryStore_GetByURL_MissingIsNilNil(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.GetByURL(ctx, "https://p-bandai.jp/item/item-404/")
	if err != nil || got != nil {
		t.Fatalf("want nil, nil; got %+v err=%v", got, err)
	}
}

func TestMemoryStore_UpdateState(t *testing.T) {
	ctx := context.Background()
	s := New()

	item := &domain.WatchItem{URL: "https://p-bandai.jp/item/item-1/", StatusText: "在庫なし"}
	if err := s.Add(ctx, item); err != nil {
		t.Fatalf("Add: %v", err)
	}

	checked := time.Now().UTC()
	err := s.UpdateState(ctx, item.ID, domain.StateUpdate{
		Title:       "ROBOT魂 テストモデル",
		Price:       "8800円",
		InStock:     true,
		StatusText:  "在庫あり",
		LastChecked: checked,
	})
	if err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	got, err := s.GetByURL(ctx, item.URL)
	if err != nil || got == nil {
		t.Fatalf("GetByURL: %+v err=%v", got, err)
	}
	if !got.InStock || got.StatusText != "在庫あり" || !got.LastChecked.Equal(checked) {
		t.Fatalf("state not applied: %+v", got)
	}
}

func TestMemoryStore_NotifyState(t *testing.T) {
	ctx := context.Background()
	s := New()

	// none yet
	rec, err := s.Get(ctx, "W1")
	if err != nil || rec != nil {
		t.Fatalf("expected nil, got %+v err=%v", rec, err)
	}

	// set without a send time -> NULL
	if err := s.Set(ctx, "W1", false, time.Time{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, err = s.Get(ctx, "W1")
	if err != nil || rec == nil || rec.LastSentAt != nil || rec.LastInStock {
		t.Fatalf("unexpected: %+v err=%v", rec, err)
	}

	// set with a send time
	now := time.Now()
	if err := s.Set(ctx, "W1", true, now); err != nil {
		t.Fatalf("set2: %v", err)
	}
	rec, err = s.Get(ctx, "W1")
	if err != nil || rec == nil || rec.LastSentAt == nil || !rec.LastInStock {
		t.Fatalf("unexpected2: %+v err=%v", rec, err)
	}
}
