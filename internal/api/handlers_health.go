// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
)

// HealthLive reports that the process is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, map[string]interface{}{
		"status":         "alive",
		"uptime_seconds": int64(h.clock().Sub(h.startTime).Seconds()),
	}, start)
}

// HealthReady pings the store and reports the retry backlog and breaker
// state. It returns 503 when the store is unreachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := models.HealthStatus{
		Status:         "ready",
		Database:       "connected",
		ConnectedPeers: h.hub.GetClientCount(),
		CircuitBreaker: "disabled",
	}
	if h.retry != nil {
		status.PendingRetries = h.retry.PendingCount()
	}
	if h.breaker != nil {
		status.CircuitBreaker = h.breaker.State()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		status.Status = "not_ready"
		status.Database = "unavailable"
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now().UTC(), QueryTimeMS: time.Since(start).Milliseconds()},
			Error:    &models.APIError{Code: ErrCodeServiceUnavailable, Message: "database unavailable"},
		})
		return
	}
	respondSuccess(w, status, start)
}
