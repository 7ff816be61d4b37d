// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package models

// Role distinguishes tracked employees from the administrators watching them.
type Role string

const (
	// RoleSubject is a tracked party that reports its location.
	RoleSubject Role = "subject"
	// RoleObserver receives presence and location events in real time.
	RoleObserver Role = "observer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleSubject || r == RoleObserver
}

// Identity is the verified caller behind a connection or REST request.
// Name is the display name carried in the credential, used when the
// employee directory has no entry.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

// IsObserver reports whether the identity holds the observer role.
func (i Identity) IsObserver() bool { return i.Role == RoleObserver }

// IsSubject reports whether the identity holds the subject role.
func (i Identity) IsSubject() bool { return i.Role == RoleSubject }
