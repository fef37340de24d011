// Package http serves the derived metrics as JSON, including the compact
// "glance" shapes consumed by dashboard widgets.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ynabmetrics/internal/cache"
	"ynabmetrics/internal/core"
	"ynabmetrics/internal/log"
	"ynabmetrics/internal/metrics"
	"ynabmetrics/internal/middleware/ratelimit"
	"ynabmetrics/internal/middleware/security"
	"ynabmetrics/internal/middleware/trace"
)

// MetricsService is what the handlers read from. *metrics.Service implements it.
type MetricsService interface {
	Spending(ctx context.Context) ([]metrics.SpendingRow, error)
	MonthlyGoals(ctx context.Context) ([]metrics.GoalRow, error)
	SavingsRate(ctx context.Context) (metrics.SavingsRate, error)
	NetWorth(ctx context.Context) (metrics.NetWorth, error)
	CategoryGroups(ctx context.Context) ([]core.CategoryGroup, error)
	ClearCache()
	ClearMetric(key string) error
	CacheStatus() []cache.Status
}

// InvalidationObserver counts cache clears by source.
type InvalidationObserver interface {
	CacheInvalidated(source string)
}

const defaultClearPerMinute = 6

type Server struct {
	http.Server

	metrics        MetricsService
	logger         *log.Logger
	now            func() time.Time
	mux            *http.ServeMux
	limiter        *ratelimit.Limiter
	metricsHandler http.Handler
	httpObserver   trace.Observer
	invalidations  InvalidationObserver
	clearPerMinute int

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock sets the time source for "updated" and "timestamp" fields.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

func WithHTTPObserver(o trace.Observer) Option {
	return func(s *Server) { s.httpObserver = o }
}

func WithInvalidationObserver(o InvalidationObserver) Option {
	return func(s *Server) { s.invalidations = o }
}

// WithCacheClearLimit caps /cache/clear calls per client per minute.
func WithCacheClearLimit(perMinute int) Option {
	return func(s *Server) { s.clearPerMinute = perMinute }
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc MetricsService, opts ...Option) *Server {
	s := &Server{
		metrics:        svc,
		logger:         log.New(log.DefaultConfig()),
		now:            time.Now,
		mux:            http.NewServeMux(),
		clearPerMinute: defaultClearPerMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	if s.clearPerMinute <= 0 {
		s.clearPerMinute = defaultClearPerMinute
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.clearPerMinute})

	s.routes()

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.logger, extractClientIP, s.routeOf, s.httpObserver)
	s.Server = http.Server{
		Addr:    addr,
		Handler: tracer.Middleware(headers.Middleware(s.mux)),
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/spending", s.handleSpending)
	s.mux.HandleFunc("GET /glance", s.handleSpendingGlance)
	s.mux.HandleFunc("GET /api/monthly-goals", s.handleMonthlyGoals)
	s.mux.HandleFunc("GET /monthly-goals", s.handleMonthlyGoalsGlance)
	s.mux.HandleFunc("GET /api/savings-rate", s.handleSavingsRate)
	s.mux.HandleFunc("GET /savings-rate", s.handleSavingsRateGlance)
	s.mux.HandleFunc("GET /api/net-worth", s.handleNetWorth)
	s.mux.HandleFunc("GET /net-worth", s.handleNetWorthGlance)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	clearHandler := s.limiter.Middleware(extractClientIP, s.handleRateLimited)(http.HandlerFunc(s.handleCacheClear))
	s.mux.Handle("GET /cache/clear", clearHandler)
	s.mux.Handle("POST /cache/clear", clearHandler)

	s.mux.HandleFunc("GET /debug/category-groups", s.handleDebugCategoryGroups)
	s.mux.HandleFunc("GET /debug/monthly-goals-order", s.handleDebugMonthlyGoalsOrder)

	if s.metricsHandler != nil {
		s.mux.Handle("GET /metrics", s.metricsHandler)
	}
}

// routeOf returns the matched pattern, keeping metric label cardinality bounded.
func (s *Server) routeOf(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		return pattern
	}
	return "unmatched"
}

// Shutdown stops the limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
