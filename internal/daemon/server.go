// Package daemon exposes the tutoring core over HTTP. Transport is a thin
// collaborator: all decision logic lives in the session service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/prepcoach/internal/config"
	"github.com/felixgeelhaar/prepcoach/internal/domain"
	"github.com/felixgeelhaar/prepcoach/internal/repository"
	"github.com/felixgeelhaar/prepcoach/internal/session"
)

// Server wires the session service to HTTP handlers
type Server struct {
	mux    *http.ServeMux
	svc    *session.Service
	repo   *repository.PostgresRepository // optional, nil disables resume
	logger *slog.Logger
}

// NewRouter builds the HTTP handler with all routes and middleware
func NewRouter(svc *session.Service, repo *repository.PostgresRepository, cfg *config.Config, logger *slog.Logger) http.Handler {
	s := &Server{
		mux:    http.NewServeMux(),
		svc:    svc,
		repo:   repo,
		logger: logger,
	}
	s.registerRoutes()

	// Applied in reverse order: last applied runs first
	var handler http.Handler = s.mux
	handler = Recovery(handler)
	handler = Logger(handler)
	if !cfg.Debug {
		handler = RateLimit(cfg.RequestsPerMinute)(handler)
	}
	handler = RequestID(handler)

	return handler
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/sessions", s.handleStart)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGet)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/pause", s.handlePause)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/resume", s.handleResume)
	s.mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleEnd)

	s.mux.HandleFunc("POST /api/v1/sessions/{id}/attempts", s.handleAttempt)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/stress", s.handleStress)
	s.mux.HandleFunc("POST /api/v1/sessions/{id}/recommendations", s.handleRecommend)
	s.mux.HandleFunc("PUT /api/v1/sessions/{id}/personalization", s.handlePersonalize)

	s.mux.HandleFunc("GET /api/v1/sessions/{id}/state", s.handleState)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}/mastery", s.handleMastery)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}/metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}/pacing", s.handlePacing)

	s.mux.HandleFunc("GET /api/v1/sessions/{id}/messages", s.handleMessages)
	s.mux.HandleFunc("DELETE /api/v1/sessions/{id}/messages/{message_id}", s.handleDismiss)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Run serves until the context is cancelled, then drains in-flight requests
// and ends every live session.
func Run(ctx context.Context, addr string, handler http.Handler, svc *session.Service, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	svc.Shutdown(shutdownCtx)
	return nil
}

// respond writes a JSON response
func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// fail maps domain errors to HTTP status codes
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotActive),
		errors.Is(err, domain.ErrSessionNotStarted),
		errors.Is(err, domain.ErrSessionEnded),
		errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}
