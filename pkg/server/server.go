// Package server exposes the scheduling pipeline over HTTP.
//
// # Endpoints
//
//	POST /v1/schedule   schedule a dataset, returns the pipeline result
//	GET  /healthz       liveness probe
//	GET  /version       build information
//
// A schedule request carries the dataset in its JSON form and optional
// pipeline options:
//
//	{
//	  "dataset": {"head": {"wrap": 0, "lpos": 0}, "count": 2, "requests": [...]},
//	  "options": {"algorithm": "tabu", "iterations": 200, "formats": ["svg"]}
//	}
//
// Every response carries an X-Request-ID header. Incoming ids are kept,
// otherwise a new UUID is assigned.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/tapesched/pkg/cache"
	"github.com/matzehuels/tapesched/pkg/pipeline"
)

const (
	// DefaultMaxBodyBytes bounds the size of a schedule request.
	DefaultMaxBodyBytes = 8 << 20

	// DefaultRequestTimeout bounds the time spent on one schedule request.
	DefaultRequestTimeout = 60 * time.Second

	// keyPrefix scopes API cache entries away from CLI entries.
	keyPrefix = "api:"
)

// Config configures a Server.
type Config struct {
	// Defaults are applied to every request before its own options.
	Defaults pipeline.Options
	// MaxBodyBytes bounds request bodies. Zero selects DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// RequestTimeout bounds one schedule request. Zero selects
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Server serves the HTTP API.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	cfg    Config
	router chi.Router
}

// New returns a server that schedules through a runner backed by c. A nil
// cache disables caching and a nil logger uses log.Default().
func New(c cache.Cache, logger *log.Logger, cfg Config) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), keyPrefix)
	s := &Server{
		runner: pipeline.NewRunner(c, keyer, logger),
		logger: logger,
		cfg:    cfg,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/schedule", s.handleSchedule)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// Close releases the runner's cache.
func (s *Server) Close() error {
	return s.runner.Close()
}
