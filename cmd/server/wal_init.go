// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package main

import (
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/wal"
)

// initWAL opens the retry log. It returns nil when the WAL is disabled.
func initWAL(cfg *wal.Config) (*wal.Log, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	logging.Info().Str("path", cfg.Path).Bool("sync_writes", cfg.SyncWrites).Msg("Initializing WAL...")
	log, err := wal.Open(cfg)
	if err != nil {
		return nil, err
	}

	if pending := log.PendingCount(); pending > 0 {
		logging.Info().Int("pending", pending).Msg("WAL has entries from a previous run; the retry loop will replay them")
	}
	return log, nil
}
