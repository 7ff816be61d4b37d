// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/waypoint/internal/metrics"
	"github.com/tomtom215/waypoint/internal/storage"
)

// nameEntry caches a directory answer. found is false for identities the
// directory does not know.
type nameEntry struct {
	name  string
	found bool
}

// NameCache caches display names from a storage.NameLookup.
type NameCache struct {
	next  storage.NameLookup
	cache *Cache[nameEntry]
}

var _ storage.NameLookup = (*NameCache)(nil)

// NewNameCache wraps next. A non-positive ttl becomes 5 minutes.
func NewNameCache(next storage.NameLookup, ttl time.Duration) *NameCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &NameCache{next: next, cache: New[nameEntry](ttl)}
}

// LookupDisplayName returns the cached name, asking the directory on a miss.
func (n *NameCache) LookupDisplayName(ctx context.Context, identityID string) (string, error) {
	if entry, ok := n.cache.Get(identityID); ok {
		metrics.NameCacheLookups.WithLabelValues("hit").Inc()
		if !entry.found {
			return "", storage.ErrNotFound
		}
		return entry.name, nil
	}
	metrics.NameCacheLookups.WithLabelValues("miss").Inc()

	name, err := n.next.LookupDisplayName(ctx, identityID)
	switch {
	case err == nil:
		n.cache.Set(identityID, nameEntry{name: name, found: true})
	case errors.Is(err, storage.ErrNotFound):
		n.cache.Set(identityID, nameEntry{})
	}
	return name, err
}

// Invalidate drops the cached name of identityID.
func (n *NameCache) Invalidate(identityID string) {
	n.cache.Delete(identityID)
}

// Stats returns the underlying cache counters.
func (n *NameCache) Stats() Stats {
	return n.cache.GetStats()
}
