// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package models

import "time"

// AttendanceSession is one work session. ClosedAt is nil while the session
// is open and is set exactly once.
type AttendanceSession struct {
	ID          string     `json:"id"`
	IdentityID  string     `json:"identity_id"`
	SessionDate time.Time  `json:"session_date"`
	OpenedAt    time.Time  `json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// IsOpen reports whether the session has not been closed yet.
func (s *AttendanceSession) IsOpen() bool { return s.ClosedAt == nil }

// DailyPresence is the number of distinct identities that opened at least
// one session on Date.
type DailyPresence struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}
