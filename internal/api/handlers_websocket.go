// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package api

import (
	"net/http"

	"github.com/tomtom215/waypoint/internal/auth"
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/metrics"
	ws "github.com/tomtom215/waypoint/internal/websocket"
)

// WebSocket verifies the handshake credential, upgrades the connection and
// hands it to the coordinator. A rejected credential gets a 401 before any
// upgrade, so it has no side effects.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractToken(r)
	identity, err := h.coord.Verify(token)
	if err != nil {
		metrics.ConnectionsRejected.WithLabelValues("auth").Inc()
		logging.LogAuthRejection(&logging.AuthRejection{
			Path:      r.URL.Path,
			RemoteIP:  r.RemoteAddr,
			UserAgent: r.UserAgent(),
			Reason:    err.Error(),
			Token:     token,
		})
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "a valid token is required", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Str("identity_id", identity.ID).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(conn, identity, h.coord, h.cfg.Tracking.SendBuffer)
	client.StartWriting()
	h.coord.Activate(client.Context(), client)
	client.StartReading()
}

// checkWebSocketOrigin allows browser origins listed in security.cors_origins.
// Native clients (the subject apps) send no Origin header and are allowed;
// the credential is what authenticates them.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	metrics.ConnectionsRejected.WithLabelValues("origin").Inc()
	logging.Warn().Str("origin", logging.SanitizeHeader(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
