package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// System status (coordinator health, poll statistics)
			r.Get("/system/status", s.handleSystemStatus)
			r.Post("/system/refresh", s.handleRequestRefresh)

			// Device endpoints
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Get("/history", s.handleGetDeviceHistory)

					// Vendor write operations
					r.Put("/temperature", s.handleSetTemperature)
					r.Put("/mode", s.handleSetMode)
					r.Post("/schedule-start", s.handleScheduleStart)
					r.Delete("/schedule-start", s.handleCancelScheduledStart)
					r.Post("/advance-program", s.handleAdvanceProgram)
					r.Post("/sync-time", s.handleSyncTime)
					r.Put("/program-schedule", s.handleSetProgramSchedule)
					r.Put("/program-type", s.handleSetProgramType)
				})
			})

			// Command audit trail (admin only)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/audit", s.handleListAudit)
			})

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
