// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package authz

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/waypoint/internal/auth"
	"github.com/tomtom215/waypoint/internal/logging"
)

var authzDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Authorization decisions by role and result",
	},
	[]string{"role", "result"},
)

// DenyFunc writes the response for a refused request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
	deny     DenyFunc
}

// NewMiddleware creates authorization middleware. A nil deny writes plain
// text errors.
func NewMiddleware(enforcer *Enforcer, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, deny: deny}
}

// AuthorizeRequest authorizes the request path for the caller's role. It
// must run after auth.Middleware.Authenticate.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			m.deny(w, r, http.StatusForbidden, "no authentication context")
			return
		}

		role := string(identity.Role)
		allowed, err := m.enforcer.Enforce(role, r.URL.Path, methodToAction(r.Method))
		if err != nil {
			logging.Error().Err(err).Str("path", r.URL.Path).Msg("Authorization error")
			authzDecisions.WithLabelValues(role, "error").Inc()
			m.deny(w, r, http.StatusInternalServerError, "authorization failed")
			return
		}
		if !allowed {
			authzDecisions.WithLabelValues(role, "denied").Inc()
			m.deny(w, r, http.StatusForbidden, "insufficient permissions")
			return
		}

		authzDecisions.WithLabelValues(role, "allowed").Inc()
		next.ServeHTTP(w, r)
	})
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return ActionWrite
	default:
		return ActionRead
	}
}
