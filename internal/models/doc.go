// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package models defines data structures for the Waypoint application.

Key Components:

  - Identity: a verified caller (subject or observer) bound to one connection
  - LocationReport: an inbound position report from a subject
  - LocationSample: a persisted, append-only position record
  - AttendanceSession: an open or closed work session for one identity
  - PresenceChanged, LocationUpdate: outbound real-time event payloads
  - APIResponse: standardized REST response wrapper

Time values are stored in UTC. SessionDate is the local calendar day of
OpenedAt in the configured time zone, truncated to midnight.
*/
package models
