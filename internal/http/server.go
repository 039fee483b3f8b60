// Package http exposes the coordinator to out-of-process view adapters:
// selection endpoints apply filter mutations, view endpoints return the
// latest published aggregate generation as JSON.
package http

import (
	"net/http"
	"time"

	"vendite/internal/cache"
	"vendite/internal/dashboard"
	applog "vendite/internal/log"
)

// NamedView pairs a registered handle with the stable name adapters use to
// address it.
type NamedView struct {
	Name   string
	Handle dashboard.Handle
}

// Server handles the JSON API for selection changes and aggregate reads.
type Server struct {
	coord  *dashboard.Coordinator
	views  []NamedView
	byName map[string]dashboard.Handle

	// Rendered view payloads, keyed by name and generation. Aggregates are
	// deterministic per generation, so entries never go stale early.
	payloads *cache.LRUCache[[]byte]

	logger *applog.Logger
}

// Options tunes the server beyond its defaults.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Logger    *applog.Logger
}

// NewServer builds the http.Server with routes, middleware, and timeouts.
func NewServer(addr string, coord *dashboard.Coordinator, views []NamedView, opts Options) *http.Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		coord:    coord,
		views:    views,
		byName:   make(map[string]dashboard.Handle, len(views)),
		payloads: cache.NewLRUCache[[]byte](opts.CacheSize, opts.CacheTTL),
		logger:   logger,
	}
	for _, v := range views {
		s.byName[v.Name] = v.Handle
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/selection/category", s.handleToggleCategory)
	mux.HandleFunc("/api/selection/region", s.handleSetRegion)
	mux.HandleFunc("/api/views", s.handleListViews)
	mux.HandleFunc("/api/views/", s.handleView)
	mux.HandleFunc("/api/filter", s.handleFilter)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleHealth)

	handler := applog.Middleware(logger)(mux)

	manager := cache.NewManager()
	manager.Register(s.payloads)
	manager.StartCleanup(opts.CacheTTL)

	srv := &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
	srv.RegisterOnShutdown(manager.StopCleanup)
	return srv
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
