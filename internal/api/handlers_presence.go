// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
)

// Presence lists the subjects currently connected.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	online := h.coord.OnlineSubjects()
	if online == nil {
		online = []models.OnlineSubject{}
	}
	respondSuccess(w, online, start)
}

// LatestLocations returns the newest sample per identity. While the store
// is failing the in-memory view is served alone.
func (h *Handler) LatestLocations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	updates, err := h.coord.LatestLocations(r.Context())
	if err != nil {
		if len(updates) == 0 {
			h.storeError(w, r, err)
			return
		}
		logging.Ctx(r.Context()).Warn().Err(err).Int("cached", len(updates)).Msg("Serving cached latest locations")
	}
	if updates == nil {
		updates = []models.LocationUpdate{}
	}
	respondSuccess(w, updates, start)
}

// LocationHistory returns an identity's samples, newest first.
func (h *Handler) LocationHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := parseHistoryParams(r, chi.URLParam(r, "identityID"))
	if !validateParams(w, r, &params) {
		return
	}

	samples, err := h.store.ListSamples(r.Context(), params.IdentityID, params.Limit)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if samples == nil {
		samples = []models.LocationSample{}
	}
	respondSuccess(w, samples, start)
}
