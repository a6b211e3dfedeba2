// Package api exposes the HTTP interface for the monitor service.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/regwatchio/regwatch/internal/config"
	"github.com/regwatchio/regwatch/internal/metrics"
	"github.com/regwatchio/regwatch/internal/monitor"
)

// maxListLimit bounds a single events page.
const maxListLimit = 500

// RunExecutor triggers one full pipeline pass.
type RunExecutor interface {
	Run(ctx context.Context) monitor.RunReport
}

// Server wires HTTP handlers to the runner and stores.
type Server struct {
	router chi.Router
	runner RunExecutor
	events monitor.EventStore
	clock  monitor.Clock
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	runner RunExecutor,
	events monitor.EventStore,
	clock monitor.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		events: events,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(5 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(runTokenMiddleware(cfg.Auth.RunToken)).Post("/runs", s.triggerRun)
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.listEvents)
			r.Post("/{event_id}/review", s.reviewEvent)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

// triggerRun executes a full pipeline pass synchronously and returns the
// report. The scheduler is the only expected caller; authentication has
// already happened in the middleware, before any work.
func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	report := s.runner.Run(r.Context())
	status := http.StatusOK
	if !report.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(s.logger, w, status, report)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxListLimit {
			writeError(s.logger, w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = parsed
	}
	events, err := s.events.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list events failed", zap.Error(err))
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []monitor.ChangeEvent{}
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"events": events})
}

type reviewRequest struct {
	NeedsReview bool `json:"needs_review"`
}

func (s *Server) reviewEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	now := s.clock.Now()
	if err := s.events.MarkReviewed(r.Context(), eventID, req.NeedsReview, now); err != nil {
		if errors.Is(err, monitor.ErrEventNotFound) {
			writeError(s.logger, w, http.StatusNotFound, "event not found")
			return
		}
		s.logger.Error("mark event reviewed failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		writeError(s.logger, w, http.StatusInternalServerError, "failed to update event")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{
		"event_id":     eventID,
		"needs_review": req.NeedsReview,
		"reviewed_at":  now,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(logger, w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// runTokenMiddleware rejects unauthenticated run triggers before any work
// begins. Comparison is constant-time.
func runTokenMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Run-Token")
			if expected == "" ||
				subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				writeError(zap.NewNop(), w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
