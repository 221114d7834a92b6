package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mkurata/pbwatch/internal/config"
	"github.com/mkurata/pbwatch/internal/httpapi"
	apimw "github.com/mkurata/pbwatch/internal/httpapi/middleware"
	"github.com/mkurata/pbwatch/internal/logging"
	"github.com/mkurata/pbwatch/internal/notify"
	"github.com/mkurata/pbwatch/internal/probe"
	"github.com/mkurata/pbwatch/internal/repo"
	"github.com/mkurata/pbwatch/internal/repo/memory"
	"github.com/mkurata/pbwatch/internal/repo/postgres"
	"github.com/mkurata/pbwatch/internal/repo/sqlite"
	"github.com/mkurata/pbwatch/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	items, state, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_error", zap.Error(err))
	}
	defer closeStore()

	var sinks []notify.Notifier
	if line := notify.NewLINE(cfg.LineToken, cfg.LineUserID); line != nil {
		sinks = append(sinks, line)
	}
	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		sinks = append(sinks, slack)
	}
	var notifier notify.Notifier
	if len(sinks) > 0 {
		notifier = notify.Multi(sinks)
	}

	checker := &probe.RetryChecker{
		Inner:    probe.NewStockChecker(cfg.HTTPTimeout),
		Attempts: cfg.RetryAttempts,
		Backoff:  cfg.RetryBackoff,
	}

	watcher := scheduler.NewWatcher(logger, items, state, checker, notifier, scheduler.WatcherConfig{
		Interval:      cfg.CheckInterval,
		Timeout:       cfg.HTTPTimeout,
		Jitter:        cfg.CheckJitter,
		Concurrency:   cfg.MaxConcurrent,
		Cooldown:      cfg.NotifyCooldown,
		NotifySoldOut: cfg.NotifySoldOut,
	})
	go watcher.Run(ctx)

	api := httpapi.NewServer(logger, items, state, checker, notifier, cfg.LineUserID)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown_error", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("api_serve_error", zap.Error(err))
		}
	}
}

// openStore picks the watchlist backend: Postgres when DATABASE_URL is
// set, SQLite when SQLITE_PATH is set, in-memory otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.WatchlistStore, repo.NotifyStateStore, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		st, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("store_selected", zap.String("backend", "postgres"))
		return st, st, st.Close, nil
	case cfg.SQLitePath != "":
		st, err := sqlite.New(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("store_selected", zap.String("backend", "sqlite"), zap.String("path", cfg.SQLitePath))
		return st, st, func() { _ = st.Close() }, nil
	default:
		st := memory.New()
		logger.Info("store_selected", zap.String("backend", "memory"))
		return st, st, func() {}, nil
	}
}
