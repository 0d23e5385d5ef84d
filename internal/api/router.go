package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthCheckTimeout bounds each component check in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics.Enabled && s.gatherer != nil {
		r.Handle(s.metrics.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check and runtime stats (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Read side
		r.Route("/systems", func(r chi.Router) {
			r.Get("/", s.handleListSystems)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSystem)
				r.Get("/history", s.handleSystemHistory)
				r.Get("/zones", s.handleListZones)
				r.Get("/zones/{index}", s.handleGetZone)
			})
		})
		r.Get("/audit", s.handleListAudit)

		// WebSocket (auth via ticket when a secret is configured, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/ingest", s.handleIngest)
			r.Post("/auth/ws-ticket", s.handleWSTicket)
		})
	})

	return r
}

// handleHealth reports overall status and each component check. Any
// failing component turns the response into 503 "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.checks))
	status := http.StatusOK
	overall := "ok"

	for name, check := range s.checks {
		if check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			overall = "degraded"
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, status, map[string]any{
		"status":     overall,
		"version":    s.version,
		"components": components,
	})
}
