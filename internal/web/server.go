// Package web is the preview server: it serves the latest aggregate,
// triggers rebuilds and streams build diagnostics over SSE.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joestump/apidocs/api"
	"github.com/joestump/apidocs/internal/build"
	"github.com/joestump/apidocs/internal/hub"
	"github.com/joestump/apidocs/internal/logger"
	"github.com/joestump/apidocs/internal/prd"
)

// Builder is the build service as seen by the server.
type Builder interface {
	Aggregate(write bool) (*build.Build, error)
	Latest() *build.Build
	LatestYAML() ([]byte, error)
	LatestJSON() ([]byte, error)
	Validate() (*prd.Report, error)
}

// EventSource streams build events. Subscribe reports false for a build
// it has no stream for.
type EventSource interface {
	Subscribe(build int) (<-chan hub.Event, func(), bool)
}

// Options configures a Server.
type Options struct {
	Port  int
	Write bool // rebuilds triggered over HTTP also write the output files
}

// Server is the HTTP preview server.
type Server struct {
	router chi.Router
	builds Builder
	events EventSource
	log    *logger.Logger
	opts   Options
	server *http.Server
}

// New creates a Server. Pass nil for events if streaming is not available.
func New(builds Builder, events EventSource, log *logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		builds: builds,
		events: events,
		log:    log.Named("web"),
		opts:   opts,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // SSE needs no write timeout
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Get("/openapi.yaml", s.handleAggregateYAML)
	r.Get("/openapi.json", s.handleAggregateJSON)

	r.Route("/api", func(r chi.Router) {
		r.Get("/openapi.yaml", s.handleOwnSpec)
		r.Post("/builds", s.handleTriggerBuild)
		r.Get("/builds/latest", s.handleLatestBuild)
		r.Get("/builds/{id}/events", s.handleBuildEvents)
		r.Get("/prd", s.handleValidate)
	})

	s.router = r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleOwnSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.OpenAPISpec)
}
