// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/cache"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
	"finanzas/internal/session"
	"finanzas/internal/store"
)

// HeaderUser names the user a request acts for.
const HeaderUser = "X-User"

const maxUserLen = 64

// Config holds the server settings taken from the application config.
type Config struct {
	Addr string
	// DefaultUser acts for requests without an X-User header. Empty means
	// such requests are anonymous.
	DefaultUser       string
	RequestsPerMinute int
	Burst             int
	WeekCacheSize     int
	WeekCacheTTL      time.Duration
}

// Server is the HTTP JSON API in front of a Ledger.
type Server struct {
	http.Server
	ledger    *services.Ledger
	revisions store.Revisioner
	logger    *applog.Logger

	weeks    *cache.WeekCache
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	defaultUser  string
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// revisions may be nil, in which case week summaries are never memoized.
func NewServer(cfg Config, ledger *services.Ledger, revisions store.Revisioner, logger *applog.Logger) *Server {
	if cfg.WeekCacheSize <= 0 {
		cfg.WeekCacheSize = 100
	}
	if cfg.WeekCacheTTL <= 0 {
		cfg.WeekCacheTTL = 5 * time.Minute
	}
	rl := ratelimit.DefaultConfig()
	if cfg.RequestsPerMinute > 0 {
		rl.RequestsPerMinute = cfg.RequestsPerMinute
	}
	if cfg.Burst > 0 {
		rl.Burst = cfg.Burst
	}

	s := &Server{
		ledger:      ledger,
		revisions:   revisions,
		logger:      logger,
		weeks:       cache.NewWeekCache(cfg.WeekCacheSize, cfg.WeekCacheTTL),
		caches:      cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog()),
		limiter:     ratelimit.NewLimiter(rl),
		detector:    security.NewDetector(logger.Slog()),
		tracer:      trace.NewMiddleware(),
		defaultUser: cfg.DefaultUser,
	}
	s.caches.Register(s.weeks)
	s.caches.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleHealth)
	mux.HandleFunc("GET /statusz", s.handleStatus)

	mux.HandleFunc("GET /api/weeks", s.handleWeeks)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/installments/outlook", s.handleOutlook)
	mux.HandleFunc("GET /api/expenses/recent", s.handleRecentExpenses)

	mux.HandleFunc("GET /api/records/{stream}", s.handleListRecords)
	mux.HandleFunc("POST /api/records/{stream}", s.handleCreateRecord)
	mux.HandleFunc("PATCH /api/records/{stream}/{id}", s.handleUpdateRecord)
	mux.HandleFunc("DELETE /api/records/{stream}/{id}", s.handleDeleteRecord)

	mux.HandleFunc("POST /api/purchases", s.handleCreatePurchase)
	mux.HandleFunc("DELETE /api/purchases", s.handleDeletePurchase)

	mux.HandleFunc("GET /api/cutoff", s.handleGetCutoff)
	mux.HandleFunc("PUT /api/cutoff", s.handleSetCutoff)

	s.Addr = cfg.Addr
	s.Handler = s.chain(mux)
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 15 * time.Second
	s.WriteTimeout = 15 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16
	return s
}

// chain wraps the routes, outermost first: request ID, access log, headers,
// probe detection, rate limit, then user resolution.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.withUser(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = applog.Middleware(s.logger, s.detector.ExtractClientIP)(h)
	return s.tracer.Handler(h)
}

// withUser binds the acting user to the request context.
func (s *Server) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := sanitizeInput(r.Header.Get(HeaderUser))
		if len(user) > maxUserLen {
			writeError(w, r, badUser())
			return
		}
		if user == "" {
			user = s.defaultUser
		}
		if user != "" {
			r = r.WithContext(session.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
