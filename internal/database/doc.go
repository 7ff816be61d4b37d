// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package database is the DuckDB-backed implementation of storage.Store and
// storage.NameLookup.
//
// # Files
//
//   - database.go: lifecycle (connection string, pool, checkpoint on close)
//   - schema.go: table and index creation
//   - samples.go: append-only location samples
//   - sessions.go: attendance session open/close and range queries
//   - employees.go: the employee directory used for display names
//
// # Tables
//
//   - location_samples: keyed by sample ID; replays are ignored with
//     ON CONFLICT DO NOTHING
//   - attendance_sessions: closed_at is NULL while a session is open
//   - employees: identity ID to display name
//
// Every query records its duration and failures through the metrics package
// under the operation and table labels.
package database
