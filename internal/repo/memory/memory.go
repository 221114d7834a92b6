package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mkurata/pbwatch/internal/domain"
	"github.com/mkurata/pbwatch/internal/repo"
)

var _ repo.WatchlistStore = (*Store)(nil)
var _ repo.NotifyStateStore = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	items  map[domain.ItemID]*domain.WatchItem
	byURL  map[string]domain.ItemID
	notify map[string]repo.NotifyRecord
}

func New() *Store {
	return &Store{
		items:  make(map[domain.ItemID]*domain.WatchItem),
		byURL:  make(map[string]domain.ItemID),
		notify: make(map[string]repo.NotifyRecord),
	}
}

// ---- WatchlistStore ----

func (m *Store) Add(ctx context.Context, item *domain.WatchItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byURL[item.URL]; dup {
		return repo.ErrDuplicateURL
	}
	if item.ID == "" {
		item.ID = domain.ItemID(time.Now().UTC().Format("20060102T150405.000000000"))
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	m.items[item.ID] = item
	m.byURL[item.URL] = item.ID
	return nil
}

func (m *Store) List(ctx context.Context) ([]*domain.WatchItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.WatchItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Store) GetByURL(ctx context.Context, url string) (*domain.WatchItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byURL[url]
	if !ok {
		return nil, nil
	}
	return m.items[id], nil
}

func (m *Store) UpdateState(ctx context.Context, id domain.ItemID, st domain.StateUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil
	}
	it.Title = st.Title
	it.Price = st.Price
	it.ImageURL = st.ImageURL
	it.InStock = st.InStock
	it.StatusText = st.StatusText
	it.LastChecked = st.LastChecked
	return nil
}

// ---- NotifyStateStore ----

func (m *Store) Get(ctx context.Context, itemID string) (*repo.NotifyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.notify[itemID]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (m *Store) Set(ctx context.Context, itemID string, inStock bool, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	m.notify[itemID] = repo.NotifyRecord{ItemID: itemID, LastInStock: inStock, LastSentAt: ts}
	return nil
}
