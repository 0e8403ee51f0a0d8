// Package server exposes the truncation engine over HTTP so test suites in
// other processes can reset a shared database between runs.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/tablewipe/internal/connect"
	"github.com/koustreak/tablewipe/internal/errs"
	"github.com/koustreak/tablewipe/internal/logger"
	"github.com/koustreak/tablewipe/internal/metrics"
	"github.com/koustreak/tablewipe/internal/truncate"
)

// ArchiveFunc stores a finished report somewhere durable.
type ArchiveFunc func(ctx context.Context, r *truncate.Report) error

// Config wires a Server to its database and collaborators.
type Config struct {
	// Source is any handle connect.Resolver understands, usually a pool.
	Source   any
	Resolver connect.Resolver

	Metrics *metrics.Collector
	Logger  *logger.Logger
	Archive ArchiveFunc

	// Timeout bounds one truncation. Zero means the request context only.
	Timeout time.Duration
	Verbose bool
}

// Server runs at most one truncation at a time.
type Server struct {
	cfg Config
	log *logger.Logger
	mu  sync.Mutex
}

// New returns a Server. Nil collaborators get defaults.
func New(cfg Config) *Server {
	if cfg.Resolver == nil {
		cfg.Resolver = connect.DefaultResolver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Server{cfg: cfg, log: cfg.Logger}
}

// Router builds the chi.Router with every endpoint.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if s.cfg.Metrics != nil {
		r.Use(s.cfg.Metrics.InstrumentHandler)
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/truncate", s.handleTruncate)
	})

	return r
}

type errorResponse struct {
	Error  string           `json:"error"`
	Kind   string           `json:"kind"`
	Table  string           `json:"table,omitempty"`
	Report *truncate.Report `json:"report,omitempty"`
}

func (s *Server) handleTruncate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := r.Context()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	log := logger.FromContext(ctx)

	sess, err := s.cfg.Resolver.Resolve(ctx, s.cfg.Source)
	if err != nil {
		log.ErrorWith("resolve connection failed", err, nil)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: err.Error(),
			Kind:  errs.KindOf(err).String(),
		})
		return
	}
	defer sess.Close()

	opts := []truncate.Option{
		truncate.WithLogger(log),
		truncate.Verbose(s.cfg.Verbose),
	}
	if s.cfg.Metrics != nil {
		opts = append(opts, truncate.WithObserver(s.cfg.Metrics))
	}

	report, runErr := truncate.Run(ctx, sess.Conn, sess.Metadata, opts...)

	if s.cfg.Archive != nil {
		if err := s.cfg.Archive(ctx, report); err != nil {
			log.ErrorWith("archive report failed", err, map[string]interface{}{"run_id": report.RunID})
		}
	}

	if runErr != nil {
		resp := errorResponse{
			Error:  runErr.Error(),
			Kind:   errs.KindOf(runErr).String(),
			Report: report,
		}
		if t, ok := truncate.FailedTable(runErr); ok {
			resp.Table = t.String()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// logRequests stores a request-scoped logger in the context and logs one
// line per request once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(log.WithContext(r.Context())))

		log.InfoWith("request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
