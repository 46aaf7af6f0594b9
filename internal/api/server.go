// Package api provides the HTTP server for the Sentinel governance engine.
// It wraps the engine's public surface in a JSON API plus the agent
// registry, health, and Prometheus endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinel-dao/sentinel/internal/agents"
	"github.com/sentinel-dao/sentinel/internal/domain"
	"github.com/sentinel-dao/sentinel/internal/governance"
	"github.com/sentinel-dao/sentinel/internal/infra/metrics"
)

// Version is reported by /api/version; set from the build by the daemon.
var Version = "dev"

// Server is the Sentinel HTTP API server.
type Server struct {
	engine         *governance.Engine
	registry       *agents.Registry
	metricsEnabled bool
}

// NewServer creates a new API server over a governance engine.
func NewServer(engine *governance.Engine, registry *agents.Registry) *Server {
	return &Server{engine: engine, registry: registry}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)
	if s.metricsEnabled {
		r.Use(durationMiddleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "Sentinel is running",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	// Governance surface
	r.Route("/api/governance", func(r chi.Router) {
		r.Post("/proposals/override", s.handleCreateOverride)
		r.Post("/proposals/parameter", s.handleCreateParameter)
		r.Get("/proposals", s.handleListProposals)
		r.Get("/proposals/{id}", s.handleGetProposal)
		r.Get("/proposals/{id}/votes", s.handleProposalVotes)
		r.Post("/proposals/{id}/votes", s.handleCastVote)
		r.Get("/proposals/{id}/tally", s.handleTally)
		r.Post("/proposals/{id}/execute", s.handleExecute)
		r.Post("/proposals/{id}/outcome", s.handleRecordOutcome)
		r.Get("/votes", s.handleUserVotes)
		r.Get("/learning", s.handleLearning)
		r.Get("/stats", s.handleStats)
	})

	// Agent registry surface
	if s.registry != nil {
		r.Route("/api/agents", func(r chi.Router) {
			r.Get("/", s.handleListAgents)
			r.Post("/{type}/decide", s.handleAgentDecide)
		})
	}

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps an engine error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrProposalNotFound), errors.Is(err, domain.ErrAgentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStake),
		errors.Is(err, domain.ErrInvalidChoice),
		errors.Is(err, domain.ErrInvalidProposal),
		errors.Is(err, domain.ErrUnknownAction):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrVotingClosed),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrTooEarly),
		errors.Is(err, domain.ErrDuplicateVote):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedProposalKind):
		status = http.StatusNotImplemented
	case errors.Is(err, domain.ErrStakeLockFailed):
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}

// durationMiddleware records per-route request latency.
func durationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// corsMiddleware adds CORS headers for local dashboard development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
