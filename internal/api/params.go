// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/validation"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

type identityParams struct {
	IdentityID string `json:"identityID" validate:"identityid"`
}

type historyParams struct {
	IdentityID string `json:"identityID" validate:"identityid"`
	Limit      int    `json:"limit" validate:"min=1,max=1000"`
}

// parseHistoryParams reads ?limit=, defaulting to defaultHistoryLimit.
// A non-numeric limit is reported by the validator as out of range.
func parseHistoryParams(r *http.Request, identityID string) historyParams {
	params := historyParams{IdentityID: identityID, Limit: defaultHistoryLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = 0
		}
		params.Limit = n
	}
	return params
}

// validateParams writes a 400 and returns false when params fail validation.
func validateParams(w http.ResponseWriter, r *http.Request, params interface{}) bool {
	verr := validation.ValidateStruct(params)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
	return false
}
