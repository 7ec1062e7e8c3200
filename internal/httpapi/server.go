// Package httpapi serves the oracle over HTTP with a JSON API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/journal"
	"github.com/danielpatrickdp/hexagram-oracle/internal/logging"
	"github.com/danielpatrickdp/hexagram-oracle/internal/metrics"
)

// #region server
// Server holds the handlers' dependencies. The journal and metrics
// collector are optional.
type Server struct {
	engine        *engine.Engine
	journal       *journal.Store
	metrics       *metrics.Collector
	log           *zap.Logger
	validate      *validator.Validate
	defaultMethod casting.Method
	defaultSource string
	timeout       time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithJournal enables the reading history endpoints.
func WithJournal(store *journal.Store) Option {
	return func(s *Server) { s.journal = store }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = logging.Component(l, "http") }
}

// WithDefaults sets the method and source used when a request leaves them out.
func WithDefaults(method casting.Method, source string) Option {
	return func(s *Server) {
		s.defaultMethod = method
		s.defaultSource = source
	}
}

// WithTimeout bounds each request's context.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New returns a server for eng.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:        eng,
		log:           zap.NewNop(),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		defaultMethod: casting.MethodFire,
		timeout:       30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// #endregion server

// #region routes
// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.requestLogger)
	if s.metrics != nil {
		r.Use(s.observe)
	}
	r.Use(chimiddleware.Timeout(s.timeout))

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/methods", s.listMethods)

		r.Route("/readings", func(r chi.Router) {
			r.Post("/", s.castReading)
			r.Get("/", s.listReadings)
			r.Get("/{id}", s.getReading)
			r.Get("/{id}/entropy", s.readingEntropy)
		})

		r.Route("/hexagrams", func(r chi.Router) {
			r.Get("/", s.findHexagram)
			r.Get("/{number}", s.resolveHexagram)
			r.Get("/{number}/compare", s.compareSources)
			r.Get("/{number}/completeness", s.completeness)
		})

		r.Get("/sources", s.listSources)
	})
	return r
}

// #endregion routes
