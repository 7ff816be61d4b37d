// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/waypoint/internal/attendance"
	"github.com/tomtom215/waypoint/internal/auth"
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage"
)

// AttendanceLogin opens the caller's attendance session. A second login
// while a session is open returns the open session with 409.
func (h *Handler) AttendanceLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	session, err := h.coord.Login(r.Context(), identity)
	switch {
	case err == nil:
		respondSuccess(w, session, start)
	case errors.Is(err, attendance.ErrAlreadyOpen):
		respondJSON(w, http.StatusConflict, &models.APIResponse{
			Status:   "error",
			Data:     session,
			Metadata: models.Metadata{Timestamp: time.Now().UTC(), QueryTimeMS: time.Since(start).Milliseconds()},
			Error:    &models.APIError{Code: ErrCodeConflict, Message: "an attendance session is already open"},
		})
	default:
		h.storeError(w, r, err)
	}
}

// AttendanceLogout closes the caller's open attendance session.
func (h *Handler) AttendanceLogout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	session, err := h.coord.Logout(r.Context(), identity)
	switch {
	case err == nil:
		respondSuccess(w, session, start)
	case errors.Is(err, attendance.ErrNoOpenSession):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "no attendance session is open", nil)
	default:
		h.storeError(w, r, err)
	}
}

// AttendanceCloseSession lets an observer close the open session of any
// identity, for example one that forgot to log out.
func (h *Handler) AttendanceCloseSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := identityParams{IdentityID: chi.URLParam(r, "identityID")}
	if !validateParams(w, r, &params) {
		return
	}

	session, err := h.coord.CloseSession(r.Context(), params.IdentityID)
	switch {
	case err == nil:
		if closer, ok := auth.IdentityFromContext(r.Context()); ok {
			logging.Ctx(r.Context()).Info().
				Str("identity_id", params.IdentityID).
				Str("closed_by", closer.ID).
				Msg("attendance session closed by observer")
		}
		respondSuccess(w, session, start)
	case errors.Is(err, attendance.ErrNoOpenSession):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "no attendance session is open", nil)
	default:
		h.storeError(w, r, err)
	}
}

// AttendanceMe lists the caller's sessions, newest first.
func (h *Handler) AttendanceMe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	h.writeSessions(w, r, identity.ID, start)
}

// AttendanceSessions lists the sessions of one identity.
func (h *Handler) AttendanceSessions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := identityParams{IdentityID: chi.URLParam(r, "identityID")}
	if !validateParams(w, r, &params) {
		return
	}
	h.writeSessions(w, r, params.IdentityID, start)
}

func (h *Handler) writeSessions(w http.ResponseWriter, r *http.Request, identityID string, start time.Time) {
	sessions, err := h.sessions.Sessions(r.Context(), identityID)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.AttendanceSession{}
	}
	respondSuccess(w, sessions, start)
}

// AttendanceToday returns the latest session per identity for today.
func (h *Handler) AttendanceToday(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sessions, err := h.sessions.Today(r.Context(), h.clock())
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.AttendanceSession{}
	}
	respondSuccess(w, sessions, start)
}

// AttendanceWeekly returns unique identities present per day over the last
// seven days, oldest first, zero-filled.
func (h *Handler) AttendanceWeekly(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	days, err := h.sessions.WeeklyPresence(r.Context(), h.clock())
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	respondSuccess(w, days, start)
}

// identity returns the authenticated caller or writes a 401.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "a valid token is required", nil)
	}
	return identity, ok
}

// storeError maps store failures to 503 while the breaker is open and 500
// otherwise.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrUnavailable) {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "storage is temporarily unavailable", err)
		return
	}
	respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "a database error occurred", err)
}
