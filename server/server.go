// Package server exposes the analyst manager over HTTP: synchronous question
// answering, SSE streaming, interrupt resumption and session introspection.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	wagner "github.com/supbro-dev/Wagner-agent"
	"github.com/supbro-dev/Wagner-agent/logging"
)

// Config holds the server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration. The write timeout
// is generous because SSE responses stay open for the whole turn.
func DefaultConfig() Config {
	return Config{
		Addr:            "0.0.0.0:8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Server is the HTTP front of the analyst manager.
type Server struct {
	config     Config
	manager    *wagner.Manager
	logger     logging.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server serving the given manager.
func New(cfg Config, manager *wagner.Manager, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	s := &Server{
		config:  cfg,
		manager: manager,
		logger:  logger,
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/question", s.handleQuestion)
		r.Get("/stream", s.handleStream)
		r.Post("/resumeInterrupt", s.handleResumeInterrupt)
		r.Get("/resumeInterruptStream", s.handleResumeInterruptStream)
		r.Get("/welcome", s.handleWelcome)
		r.Get("/getStateProperties", s.handleStateProperties)
	})
	return r
}

// Router returns the underlying router, for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server.start", "addr", s.config.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("server.shutdown")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
