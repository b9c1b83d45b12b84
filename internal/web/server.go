// Package web provides the HTTP server and JSON handlers for running
// validations and fetching their results.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Guilhermefoliveira/csv-validador/internal/audit"
	"github.com/Guilhermefoliveira/csv-validador/internal/config"
	"github.com/Guilhermefoliveira/csv-validador/internal/core"
	"github.com/Guilhermefoliveira/csv-validador/internal/web/middleware"
)

// Server is the HTTP front for the validation pipeline. Completed results
// are held in memory per run ID; only run summaries go to the audit store.
type Server struct {
	cfg      *config.Config
	pipeline *core.Pipeline
	audit    *audit.Store
	router   *chi.Mux
	server   *http.Server

	mu   sync.RWMutex
	runs map[string]*storedRun
}

// storedRun pairs a completed result with its upload metadata.
type storedRun struct {
	ID        string
	FileName  string
	CreatedAt time.Time
	Result    *core.Result
}

// NewServer creates a Server around the given pipeline and audit store.
func NewServer(cfg *config.Config, pipeline *core.Pipeline, auditStore *audit.Store) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		audit:    auditStore,
		router:   chi.NewRouter(),
		runs:     make(map[string]*storedRun),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{runID}/report", s.handleRunReport)
		r.Get("/runs/{runID}/download", s.handleDownload)
	})
}

// Start begins listening on the configured address. Blocks until the server
// stops; returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) storeRun(run *storedRun) {
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()
}

func (s *Server) getRun(id string) (*storedRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}
