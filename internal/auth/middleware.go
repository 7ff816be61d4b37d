// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage"
)

type contextKey string

const identityContextKey contextKey = "identity"

// TokenQueryParam is the query parameter carrying a token when no
// Authorization header can be sent.
const TokenQueryParam = "token"

// ExtractToken returns the bearer token from the Authorization header, or
// from the token query parameter. It returns "" when neither is present or
// the header is malformed.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return r.URL.Query().Get(TokenQueryParam)
}

// ContextWithIdentity stores a verified identity in ctx.
func ContextWithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(models.Identity)
	return identity, ok
}

// Middleware authenticates REST requests.
type Middleware struct {
	verifier storage.Verifier
	onReject func(w http.ResponseWriter, r *http.Request, reason string)
}

// NewMiddleware creates authentication middleware backed by verifier.
func NewMiddleware(verifier storage.Verifier) *Middleware {
	return &Middleware{verifier: verifier, onReject: writeUnauthorized}
}

// WithRejectHandler replaces the 401 response writer.
func (m *Middleware) WithRejectHandler(fn func(w http.ResponseWriter, r *http.Request, reason string)) *Middleware {
	m.onReject = fn
	return m
}

// Authenticate rejects requests without a valid token and stores the
// identity in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractToken(r)
		if token == "" {
			m.reject(w, r, "missing token", "")
			return
		}

		identity, err := m.verifier.VerifyCredential(token)
		if err != nil {
			m.reject(w, r, err.Error(), token)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, reason, token string) {
	logging.LogAuthRejection(&logging.AuthRejection{
		Path:      r.URL.Path,
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Reason:    reason,
		Token:     token,
	})
	m.onReject(w, r, reason)
}

func writeUnauthorized(w http.ResponseWriter, _ *http.Request, _ string) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
