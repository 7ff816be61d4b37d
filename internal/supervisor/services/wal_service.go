// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package services

import (
	"context"
	"time"

	"github.com/tomtom215/waypoint/internal/logging"
)

// GarbageCollector is satisfied by *wal.Log.
type GarbageCollector interface {
	RunGC() error
}

// WALGCService periodically reclaims retry log value-log space. Replayed
// entries are deleted by the retry loop; their space is only returned to
// disk by a value-log GC pass.
type WALGCService struct {
	log      GarbageCollector
	interval time.Duration
}

// NewWALGCService creates the service. A non-positive interval becomes 10m.
func NewWALGCService(log GarbageCollector, interval time.Duration) *WALGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &WALGCService{log: log, interval: interval}
}

// Serve implements suture.Service.
func (s *WALGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.log.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("retry log GC failed")
			}
		}
	}
}

func (s *WALGCService) String() string {
	return "wal-gc"
}
