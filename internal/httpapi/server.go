package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etherlabsio/healthcheck/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/mkurata/pbwatch/internal/httpapi/middleware"
	"github.com/mkurata/pbwatch/internal/notify"
	"github.com/mkurata/pbwatch/internal/probe"
	"github.com/mkurata/pbwatch/internal/repo"
)

type Server struct {
	Logger   *zap.Logger
	Items    repo.WatchlistStore
	State    repo.NotifyStateStore
	Checker  probe.Checker
	Notifier notify.Notifier
	// LineUserID is the configured push recipient; empty means the
	// notification test endpoint reports "not configured".
	LineUserID string
}

func NewServer(l *zap.Logger, items repo.WatchlistStore, state repo.NotifyStateStore, c probe.Checker, n notify.Notifier, lineUserID string) *Server {
	return &Server{Logger: l, Items: items, State: state, Checker: c, Notifier: n, LineUserID: lineUserID}
}

// pinger is satisfied by the DB-backed stores; the memory store isn't and
// then /healthz only checks process liveness.
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, publicRPM, publicBurst, adminRPM, adminBurst int) http.Handler {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key"},
		}))
	}

	healthOpts := []healthcheck.Option{healthcheck.WithTimeout(5 * time.Second)}
	if p, ok := s.Items.(pinger); ok {
		healthOpts = append(healthOpts, healthcheck.WithChecker(
			"store", healthcheck.CheckerFunc(func(ctx context.Context) error {
				return p.Ping(ctx)
			}),
		))
	}
	r.Method(http.MethodGet, "/healthz", healthcheck.Handler(healthOpts...))

	// public: read routes + single-URL lookups
	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAny(keys))
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Post("/api/monitor", s.handleMonitor)
		r.Get("/api/watchlist", s.handleListWatchlist)
	})

	// admin: everything that mutates or pushes
	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAdmin(keys))
		r.Use(apimw.RateLimit(adminRPM, adminBurst))
		r.Post("/api/watchlist", s.handleAddWatch)
		r.Post("/api/watchlist/csv", s.handleImportCSV)
		r.Post("/api/notify/test", s.handleNotifyTest)
	})

	return r
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return u.Host != ""
}

// normalizeHTTPURL lowercases scheme/host, drops default ports and a bare
// trailing slash so duplicate detection is not fooled by cosmetic variants.
func normalizeHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}

// extractHost pulls the hostname from a URL string
func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}
