// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package authz authorizes REST routes with Casbin.
//
// The request subject is the caller's role ("subject" or "observer"), the
// object is the request path and the action is derived from the HTTP method
// (read or write). Paths are matched with keyMatch2, so policies can name
// route parameters:
//
//	p, observer, /api/v1/locations/:identityID, read
//
// Both roles inherit the "authenticated" group for routes open to every
// verified identity. The model and policy are embedded; ModelPath and
// PolicyPath in EnforcerConfig override them with files on disk.
package authz
