// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doughmination/backend/internal/auth"
	"github.com/doughmination/backend/internal/middleware"
)

// NewRouter builds the full route tree. Read endpoints are public; every
// mutation requires a session, and a few operations require admin.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.PrometheusMetrics)
	r.Use(httprate.LimitByIP(h.cfg.Security.RateLimitReqs, h.cfg.Security.RateLimitWindow))

	// Operational endpoints.
	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Realtime. Authentication is optional here: a valid token widens
	// the subscription groups, nothing more.
	r.With(h.jwt.OptionalAuth).Get("/ws", h.ServeWebSocket)

	r.Route("/api", func(r chi.Router) {
		// Public reads.
		r.Get("/system", h.GetSystem)
		r.Get("/members", h.GetMembers)
		r.Get("/members/by-subsystem", h.GetMembersBySubsystem)
		r.Get("/members/filtered", h.GetFilteredMembers)
		r.Get("/members/{identifier}", h.GetMember)
		r.Get("/members/{identifier}/status", h.GetMemberStatus)
		r.Get("/fronters", h.GetFronters)
		r.Get("/front", h.GetFronters)
		r.Get("/subsystems", h.GetSubsystems)
		r.Get("/member-tags/{identifier}", h.GetMemberTags)
		r.Get("/mental-state", h.GetMentalState)
		r.Get("/mental-state/levels", h.GetMentalStateLevels)
		r.Get("/cofronts", h.GetCofronts)

		r.Post("/auth/login", h.Login)

		// Authenticated mutations.
		r.Group(func(r chi.Router) {
			r.Use(h.jwt.Authenticate)

			r.Get("/is_admin", h.IsAdmin)
			r.Get("/users/me", h.CurrentUser)

			r.Post("/switch", h.Switch)
			r.Post("/switch_front", h.SwitchFront)
			r.Post("/multi_switch", h.MultiSwitch)
			r.Post("/dynamic_cofront", h.CreateCofront)

			r.Put("/users/{id}", h.UpdateUser)

			// Admin-only operations. The locally-owned overlays (mental
			// state, tags, statuses) are curated data, so writes to them
			// are restricted alongside user management.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Post("/admin/refresh", h.ForceRefresh)

				r.Post("/mental-state", h.UpdateMentalState)

				r.Get("/member-tags", h.ListMemberTags)
				r.Post("/member-tags/{identifier}", h.UpdateMemberTags)
				r.Post("/member-tags/{identifier}/add", h.AddMemberTag)
				r.Delete("/member-tags/{identifier}/{tag}", h.RemoveMemberTag)

				r.Post("/members/{identifier}/status", h.SetMemberStatus)
				r.Delete("/members/{identifier}/status", h.ClearMemberStatus)

				r.Get("/users", h.ListUsers)
				r.Post("/users", h.CreateUser)
				r.Get("/users/{id}", h.GetUser)
				r.Delete("/users/{id}", h.DeleteUser)
			})
		})
	})

	return r
}
