package domain

import "time"

type ItemID string

// WatchItem is a product page registered for periodic stock checks.
// JSON field names follow the wire format the web UI already speaks.
type WatchItem struct {
	ID          ItemID    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Price       string    `json:"price"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	InStock     bool      `json:"inStock"`
	StatusText  string    `json:"statusText"`
	CreatedAt   time.Time `json:"createdAt"`
	LastChecked time.Time `json:"lastChecked"`
}

// Snapshot is what one probe of a product page saw. It is ephemeral:
// returned by /api/monitor and used to refresh a WatchItem, never stored
// on its own.
type Snapshot struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Price      string `json:"price"`
	InStock    bool   `json:"inStock"`
	StatusText string `json:"statusText"`
	ImageURL   string `json:"imageUrl,omitempty"`
	MaxOrder   int    `json:"maxOrder,omitempty"`
}

// StateUpdate carries the fields a watcher pass may refresh on an item.
type StateUpdate struct {
	Title       string
	Price       string
	ImageURL    string
	InStock     bool
	StatusText  string
	LastChecked time.Time
}

// ImportReport is the outcome of a CSV bulk registration.
type ImportReport struct {
	Message string        `json:"message"`
	Results ImportResults `json:"results"`
}

type ImportResults struct {
	Success []string `json:"success"`
	Errors  []string `json:"errors"`
}
