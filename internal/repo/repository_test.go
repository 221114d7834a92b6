package repo_test

import (
	"testing"

	"github.com/mkurata/pbwatch/internal/repo"
	"github.com/mkurata/pbwatch/internal/repo/memory"
	pg "github.com/mkurata/pbwatch/internal/repo/postgres"
	"github.com/mkurata/pbwatch/internal/repo/sqlite"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.WatchlistStore = memory.New()
	var _ repo.NotifyStateStore = memory.New()

	// DB-backed store types compile against the interfaces, too.
	var _ repo.WatchlistStore = (*pg.Store)(nil)
	var _ repo.NotifyStateStore = (*pg.Store)(nil)
	var _ repo.WatchlistStore = (*sqlite.Store)(nil)
	var _ repo.NotifyStateStore = (*sqlite.Store)(nil)
}
