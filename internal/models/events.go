// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package models

import "time"

// PresenceChanged is sent to observers when a subject connects or disconnects.
type PresenceChanged struct {
	IdentityID  string `json:"identityId"`
	DisplayName string `json:"displayName"`
	Online      bool   `json:"online"`
}

// LocationUpdate is sent to observers for every persisted or replayed sample.
type LocationUpdate struct {
	IdentityID  string    `json:"identityId"`
	DisplayName string    `json:"displayName"`
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lng"`
	Address     string    `json:"address"`
	CapturedAt  time.Time `json:"capturedAt"`
}

// NewLocationUpdate builds the outbound payload for a sample.
func NewLocationUpdate(displayName string, s *LocationSample) LocationUpdate {
	return LocationUpdate{
		IdentityID:  s.IdentityID,
		DisplayName: displayName,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		Address:     s.Address,
		CapturedAt:  s.CapturedAt,
	}
}

// ErrorPayload is sent to a single connection when one of its messages is refused.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OnlineSubject is one entry of the REST presence listing.
type OnlineSubject struct {
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name"`
}

// AttendanceChanged is sent to observers when a session opens or closes so
// attendance dashboards can refresh.
type AttendanceChanged struct {
	IdentityID  string    `json:"identityId"`
	DisplayName string    `json:"displayName"`
	SessionID   string    `json:"sessionId"`
	Open        bool      `json:"open"`
	At          time.Time `json:"at"`
}
