// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package location

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage"
)

// SampleSource loads the newest persisted sample for an identity.
type SampleSource interface {
	LatestSample(ctx context.Context, identityID string) (*models.LocationSample, error)
}

// LastSamples caches the last accepted sample per identity. A miss is
// seeded from the store once; later misses for identities with no history
// are remembered so the store is not queried for every report.
type LastSamples struct {
	mu      sync.Mutex
	samples map[string]*models.LocationSample
	source  SampleSource
}

// NewLastSamples creates a cache seeded lazily from source.
func NewLastSamples(source SampleSource) *LastSamples {
	return &LastSamples{
		samples: make(map[string]*models.LocationSample),
		source:  source,
	}
}

// Get returns the previous sample for identityID, or nil when there is none.
// The store is queried without holding the cache lock.
func (c *LastSamples) Get(ctx context.Context, identityID string) (*models.LocationSample, error) {
	c.mu.Lock()
	s, ok := c.samples[identityID]
	c.mu.Unlock()
	if ok {
		return s, nil
	}

	loaded, err := c.source.LatestSample(ctx, identityID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		loaded = nil
	case err != nil:
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, raced := c.samples[identityID]; raced {
		return cur, nil
	}
	c.samples[identityID] = loaded
	return loaded, nil
}

// Put records sample as the last accepted sample for its identity.
func (c *LastSamples) Put(sample *models.LocationSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples[sample.IdentityID] = sample
}

// Peek returns the cached sample without consulting the store.
func (c *LastSamples) Peek(identityID string) (*models.LocationSample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.samples[identityID]
	return s, ok && s != nil
}

// Snapshot returns a copy of every cached sample.
func (c *LastSamples) Snapshot() []models.LocationSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.LocationSample, 0, len(c.samples))
	for _, s := range c.samples {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
