// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package models

import "time"

// LocationReport is the payload of an inbound report-location message.
// Address is the reverse-geocoded address resolved on the device.
type LocationReport struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lng" validate:"longitude"`
	Address   string  `json:"address" validate:"max=512"`
}

// LocationSample is a persisted position. Samples are append-only and keyed
// by a UUID assigned on acceptance so replays of a failed insert are idempotent.
type LocationSample struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Address    string    `json:"address"`
	CapturedAt time.Time `json:"captured_at"`
}

// SameContent reports whether the sample carries exactly the same
// coordinates and address as the report.
func (s *LocationSample) SameContent(r LocationReport) bool {
	return s.Latitude == r.Latitude && s.Longitude == r.Longitude && s.Address == r.Address
}
