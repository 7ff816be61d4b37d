// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/waypoint/internal/auth"
	"github.com/tomtom215/waypoint/internal/authz"
	"github.com/tomtom215/waypoint/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. The auth and authz middleware reject handlers
// are replaced so every refusal uses the API response envelope.
func NewRouter(handler *Handler, authn *auth.Middleware, enforcer *authz.Enforcer) *Router {
	return &Router{
		handler:       handler,
		authn:         authn.WithRejectHandler(rejectUnauthenticated),
		authz:         authz.NewMiddleware(enforcer, denyRequest),
		chiMiddleware: NewChiMiddleware(&handler.cfg.Security),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)

	r.Handle("/metrics", promhttp.Handler())

	// The handshake authenticates itself so a refused credential never upgrades.
	r.With(router.chiMiddleware.RateLimitCustom(RateLimitUpgrade)).Get("/ws", router.handler.WebSocket)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(router.authn.Authenticate)
		r.Use(router.authz.AuthorizeRequest)

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/login", router.handler.AttendanceLogin)
			r.Post("/logout", router.handler.AttendanceLogout)
			r.Get("/me", router.handler.AttendanceMe)
			r.Get("/today", router.handler.AttendanceToday)
			r.Get("/weekly", router.handler.AttendanceWeekly)
			r.Get("/sessions/{identityID}", router.handler.AttendanceSessions)
			r.Post("/sessions/{identityID}/close", router.handler.AttendanceCloseSession)
		})

		r.Get("/presence", router.handler.Presence)
		r.Get("/locations/latest", router.handler.LatestLocations)
		r.Get("/locations/{identityID}", router.handler.LocationHistory)
	})

	return r
}
