package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkurata/pbwatch/internal/domain"
	"github.com/mkurata/pbwatch/internal/notify"
	"github.com/mkurata/pbwatch/internal/probe"
	"github.com/mkurata/pbwatch/internal/repo"
)

type WatcherConfig struct {
	Interval      time.Duration // 0 disables the watcher
	Timeout       time.Duration // per-probe budget
	Jitter        time.Duration // max extra random delay before each probe
	Concurrency   int
	Cooldown      time.Duration // min gap between repeat notifications per item
	NotifySoldOut bool
}

// Watcher re-probes the watchlist on an interval, records stock-state
// changes and pushes a notification when an item flips between in-stock
// and sold-out.
type Watcher struct {
	logger   *zap.Logger
	items    repo.WatchlistStore
	state    repo.NotifyStateStore
	checker  probe.Checker
	notifier notify.Notifier
	cfg      WatcherConfig
}

func NewWatcher(
	logger *zap.Logger,
	items repo.WatchlistStore,
	state repo.NotifyStateStore,
	checker probe.Checker,
	notifier notify.Notifier,
	cfg WatcherConfig,
) *Watcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Watcher{
		logger:   logger,
		items:    items,
		state:    state,
		checker:  checker,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if w.cfg.Interval == 0 {
		w.logger.Info("watcher_disabled")
		return
	}

	// boot ping so the user knows the engine is alive
	if w.notifier != nil {
		if err := w.notifier.Send(ctx, "【システム】監視エンジンが起動しました。", ""); err != nil {
			w.logger.Warn("watcher_boot_notify_error", zap.Error(err))
		}
	}

	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()

	// immediate pass
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher_stopped")
			return
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	items, err := w.items.List(ctx)
	if err != nil {
		w.logger.Warn("watcher_list_error", zap.Error(err))
		return
	}
	if len(items) == 0 {
		return
	}

	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, item := range items {
		it := item
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()
			w.checkOne(ctx, it)
		}()
	}

	wg.Wait()
}

func (w *Watcher) checkOne(ctx context.Context, item *domain.WatchItem) {
	// spread probes out so the shop doesn't see a burst from one address
	if w.cfg.Jitter > 0 {
		delay := time.Duration(rand.Int63n(int64(w.cfg.Jitter)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	cctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	out := w.checker.Check(cctx, item.URL)
	if !out.OK || out.Snapshot == nil {
		// transient shop errors are routine; skip and retry next pass
		w.logger.Warn("watcher_probe_failed",
			zap.String("item_id", string(item.ID)),
			zap.String("url", item.URL),
			zap.Int("status", out.StatusCode),
			zap.String("reason", out.Message),
		)
		return
	}
	snap := out.Snapshot

	if snap.InStock != item.InStock {
		w.logger.Info("watcher_stock_changed",
			zap.String("item_id", string(item.ID)),
			zap.String("title", snap.Title),
			zap.Bool("in_stock", snap.InStock),
		)
		if err := w.items.UpdateState(ctx, item.ID, domain.StateUpdate{
			Title:       snap.Title,
			Price:       snap.Price,
			ImageURL:    snap.ImageURL,
			InStock:     snap.InStock,
			StatusText:  snap.StatusText,
			LastChecked: time.Now().UTC(),
		}); err != nil {
			w.logger.Warn("watcher_update_error",
				zap.String("item_id", string(item.ID)),
				zap.Error(err),
			)
		}
	}

	w.maybeNotify(ctx, item, snap)
}

// maybeNotify decides whether the state change warrants a push. Restocks
// always matter; sold-out pushes are configurable. Cooldown suppresses
// repeats when an item keeps flapping.
func (w *Watcher) maybeNotify(ctx context.Context, item *domain.WatchItem, snap *domain.Snapshot) {
	if w.notifier == nil {
		return
	}

	rec, err := w.state.Get(ctx, string(item.ID))
	if err != nil {
		w.logger.Warn("watcher_state_error", zap.String("item_id", string(item.ID)), zap.Error(err))
		return
	}

	stateChanged := rec == nil || rec.LastInStock != snap.InStock
	if !stateChanged {
		return
	}

	cooled := true
	if rec != nil && rec.LastSentAt != nil {
		cooled = time.Since(*rec.LastSentAt) >= w.cfg.Cooldown
	}

	restock := snap.InStock
	send := cooled && (restock || w.cfg.NotifySoldOut)

	if !send {
		// record the new state without a send time so the next flip
		// is still seen as a change
		_ = w.state.Set(ctx, string(item.ID), snap.InStock, time.Time{})
		return
	}

	title := "📦在庫切れ"
	if restock {
		title = "🔥在庫復活"
	}
	var lines []string
	lines = append(lines, snap.Title, "状態: "+snap.StatusText)
	if snap.MaxOrder > 0 {
		lines = append(lines, fmt.Sprintf("最大注文数: %d", snap.MaxOrder))
	}
	lines = append(lines, item.URL)

	if err := w.notifier.Send(ctx, title, strings.Join(lines, "\n")); err != nil {
		w.logger.Warn("watcher_notify_error", zap.String("item_id", string(item.ID)), zap.Error(err))
		// keep the old record so the push is retried on the next change
		return
	}
	_ = w.state.Set(ctx, string(item.ID), snap.InStock, time.Now())
}
