package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/rfsocket-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.observeMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "INVALID_REQUEST", "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		}

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(auth.PermissionUser))

				r.Get("/sockets", s.handleListSockets)
				r.Get("/sockets/{ref}", s.handleGetSocket)
				r.Post("/command", s.handleCommand)
				r.Post("/command/all-off", s.handleAllOff)
				r.Get("/ws", s.handleWebSocket)
			})

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(auth.PermissionAdmin))

				r.Post("/sockets", s.handleCreateSocket)
				r.Delete("/sockets", s.handleDeleteSocket)
				r.Get("/audit", s.handleListAuditLogs)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", s.handleListUsers)
					r.Post("/", s.handleCreateUser)
					r.Patch("/{id}", s.handleSetPermission)
					r.Delete("/{id}", s.handleDeleteUser)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
