// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package main

import (
	"fmt"
	"io"

	"github.com/tomtom215/waypoint/internal/config"
	"github.com/tomtom215/waypoint/internal/database"
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/storage"
	"github.com/tomtom215/waypoint/internal/storage/memory"
)

// storeComponents is the opened store and the breaker guarding it.
type storeComponents struct {
	guarded *storage.BreakerStore
	names   storage.NameLookup
	closer  io.Closer
}

// openStore opens the configured store and wraps it in a circuit breaker.
// The employee directory lookup bypasses the breaker: a failed lookup falls
// back to the credential name and must not count against the store.
func openStore(cfg *config.DatabaseConfig) (*storeComponents, error) {
	var (
		raw    storage.Store
		names  storage.NameLookup
		closer io.Closer
	)

	switch cfg.Driver {
	case "duckdb":
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		raw, names, closer = db, db, db
		logging.Info().Str("path", cfg.Path).Msg("DuckDB store initialized")
	case "memory":
		mem := memory.NewStore()
		raw, names = mem, mem
		logging.Warn().Msg("Using in-memory store; samples and sessions are lost on restart")
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	settings := storage.DefaultBreakerSettings()
	if cfg.BreakerMinRequests > 0 {
		settings.MinRequests = cfg.BreakerMinRequests
	}
	if cfg.BreakerFailureRatio > 0 {
		settings.FailureRatio = cfg.BreakerFailureRatio
	}
	if cfg.BreakerTimeout > 0 {
		settings.Timeout = cfg.BreakerTimeout
	}

	return &storeComponents{
		guarded: storage.NewBreakerStore(raw, settings),
		names:   names,
		closer:  closer,
	}, nil
}

func (s *storeComponents) close() {
	if s.closer == nil {
		return
	}
	if err := s.closer.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing store")
	}
	s.closer = nil
}
