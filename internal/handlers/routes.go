package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every route. Only /healthz, /login, /logout and the
// follow-up pages are reachable without site access.
func NewRouter(h *Handlers, m *Middleware) http.Handler {
	r := chi.NewRouter()

	if m.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(m.RequestLogger)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)

	r.Get("/healthz", h.HealthCheck)
	r.With(m.RateLimit).Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Route("/follow-up/{id}", func(r chi.Router) {
		r.Get("/", h.GetFollowUp)
		r.Post("/", h.UpdateFollowUp)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(m.RequireSiteAccess)
		r.Use(m.RequireCSRF)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/available", h.AvailableMembers)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetMember)
				r.Put("/", h.UpdateMember)
				r.Delete("/", h.DeleteMember)
				r.Get("/closest-families", h.ClosestFamilies)
				r.Delete("/family", h.RemoveMemberFromFamily)
			})
		})

		r.Route("/families", func(r chi.Router) {
			r.Get("/", h.ListFamilies)
			r.Post("/", h.CreateFamily)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetFamily)
				r.Put("/", h.UpdateFamily)
				r.Delete("/", h.DeleteFamily)
				r.Post("/members", h.AssignMember)
			})
		})

		r.Route("/leaders", func(r chi.Router) {
			r.Get("/", h.ListLeaders)
			r.Post("/", h.CreateLeader)
			r.Put("/{id}", h.UpdateLeader)
			r.Delete("/{id}", h.DeleteLeader)
		})

		r.Get("/statistics", h.Statistics)
	})

	return r
}
