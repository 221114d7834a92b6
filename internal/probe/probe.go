package probe

import (
	"context"

	"github.com/mkurata/pbwatch/internal/domain"
)

// Result is the unified outcome of a single product-page probe.
//
// Fields:
// - StatusCode: HTTP status code when available; 0 for transport/DNS errors.
// - Snapshot: what the page said about the product; nil when the probe failed.
type Result struct {
	OK         bool
	StatusCode int
	LatencyMS  float64
	Message    string
	Snapshot   *domain.Snapshot
}

// Checker performs a single probe of a product page URL.
type Checker interface {
	Check(ctx context.Context, target string) Result
}
