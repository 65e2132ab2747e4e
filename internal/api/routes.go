package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/enodebs", func(r chi.Router) {
			r.Get("/", s.HandleListENodeBs)
			r.Route("/{serial}", func(r chi.Router) {
				r.Get("/", s.HandleGetENodeB)
				r.Get("/history", s.HandleENodeBHistory)
				r.With(s.adminOnly).Post("/reboot", s.HandleRebootENodeB)
				r.With(s.adminOnly).Post("/disconnect", s.HandleDisconnectENodeB)
			})
		})

		r.Get("/registry", s.HandleListRegistry)

		r.With(s.adminOnly).Post("/config/reload", s.HandleReloadConfig)

		r.Get("/events", s.HandleListEvents)
	})
}
