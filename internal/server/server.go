// Package server exposes the HTTP surface: forecast routing, health
// reporting, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/forecaster/internal/core/domain"
	"github.com/vietddude/forecaster/internal/infra/storage/postgres"
	"github.com/vietddude/forecaster/internal/routing"
)

// Server provides the HTTP endpoints.
type Server struct {
	dispatcher *routing.Dispatcher
	registry   *routing.Registry
	health     *routing.HealthManager
	recorder   *routing.Recorder
	history    *postgres.HistoryRepo // nil when persistence is disabled
	server     *http.Server
}

// New creates a server listening on port. history may be nil.
func New(
	port int,
	dispatcher *routing.Dispatcher,
	registry *routing.Registry,
	health *routing.HealthManager,
	recorder *routing.Recorder,
	history *postgres.HistoryRepo,
) *Server {
	mux := http.NewServeMux()
	s := &Server{
		dispatcher: dispatcher,
		registry:   registry,
		health:     health,
		recorder:   recorder,
		history:    history,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("POST /v1/forecast", s.handleForecast)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	var req domain.ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Location.City == "" {
		writeError(w, http.StatusBadRequest, "location.city is required")
		return
	}

	callerID := r.Header.Get("X-Caller-ID")
	if callerID == "" {
		callerID = "anonymous"
	}

	start := time.Now()
	resp, err := s.dispatcher.Route(r.Context(), callerID, &req)
	latency := time.Since(start)

	s.recordHistory(r.Context(), requestID, callerID, &req, resp, err, latency)

	if err != nil {
		var allFailed *routing.AllProvidersFailedError
		if errors.As(err, &allFailed) {
			slog.Error("Request exhausted all providers", "request_id", requestID, "error", err)
			writeError(w, http.StatusBadGateway, "all forecast providers failed")
			return
		}
		slog.Error("Routing failed", "request_id", requestID, "error", err)
		writeError(w, http.StatusInternalServerError, "routing error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	unhealthy := 0
	for _, name := range s.registry.Names() {
		if s.health.ReadHealth(r.Context(), name).Status == domain.HealthUnhealthy {
			unhealthy++
		}
	}

	// Worst case wins: degraded while any provider is down, critical when
	// every provider is down.
	status := "healthy"
	code := http.StatusOK
	switch {
	case unhealthy == s.registry.Len() && s.registry.Len() > 0:
		status = "critical"
		code = http.StatusServiceUnavailable
	case unhealthy > 0:
		status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

type providerReport struct {
	Name      string              `json:"name"`
	Cost      float64             `json:"cost_per_call"`
	Health    domain.HealthRecord `json:"health"`
	Successes int64               `json:"successes"`
	Failures  int64               `json:"failures"`
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	reports := make([]providerReport, 0, s.registry.Len())
	for _, p := range s.registry.All() {
		success, failure := s.recorder.Counts(r.Context(), p.Name())
		reports = append(reports, providerReport{
			Name:      p.Name(),
			Cost:      p.CostPerCall(),
			Health:    s.health.ReadHealth(r.Context(), p.Name()),
			Successes: success,
			Failures:  failure,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reports)
}

// recordHistory persists the call outcome when history is enabled.
// Best-effort: a history failure never affects the response.
func (s *Server) recordHistory(
	ctx context.Context,
	requestID, callerID string,
	req *domain.ForecastRequest,
	resp *domain.ForecastResponse,
	routeErr error,
	latency time.Duration,
) {
	if s.history == nil {
		return
	}

	rec := &domain.CallRecord{
		ID:        requestID,
		CallerID:  callerID,
		City:      req.Location.City,
		Outcome:   "success",
		LatencyMS: latency.Milliseconds(),
		CreatedAt: time.Now(),
	}
	if routeErr != nil {
		rec.Outcome = "failure"
		rec.ErrorText = routeErr.Error()
	} else {
		rec.Provider = resp.Source
	}

	if err := s.history.Save(ctx, rec); err != nil {
		slog.Warn("Failed to record call history", "request_id", requestID, "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
