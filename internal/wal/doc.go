// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package wal provides the durable retry log for writes the store refused.
//
// A location sample whose insert failed, or an attendance close that failed
// during disconnect reconciliation, is written to BadgerDB as a pending entry.
// RetryLoop replays pending entries against the store with exponential
// backoff and deletes them once the store accepts them.
//
// Replays are idempotent:
//
//   - sample inserts are keyed by the sample ID, which the store ignores
//     when it already exists
//   - session closes carry the identity and the close time, and the store
//     only closes a session opened at or before that time; a close that
//     finds nothing open is treated as already applied
//
// # Usage
//
//	log, err := wal.Open(&cfg)
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//
//	loop := wal.NewRetryLoop(log, store)
//	supervisor.Add(loop)
//
// The log is a best-effort safety net for a running process. It is not a
// replication mechanism and it does not order entries across identities.
package wal
