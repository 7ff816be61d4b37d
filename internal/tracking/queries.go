// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package tracking

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/waypoint/internal/models"
)

// OnlineSubjects lists the subjects with a live connection, ordered by
// connection age.
func (c *Coordinator) OnlineSubjects() []models.OnlineSubject {
	var out []models.OnlineSubject
	for _, p := range c.deps.Registry.Snapshot() {
		identity := p.Identity()
		if !identity.IsSubject() {
			continue
		}
		name := identity.ID
		if entry, _ := c.lookup(p.ID()); entry != nil {
			name = entry.displayName
		}
		out = append(out, models.OnlineSubject{IdentityID: identity.ID, DisplayName: name})
	}
	return out
}

// LatestLocations returns the newest known sample per identity, merging the
// store with samples accepted but not yet persisted. On a store error the
// cached samples are still returned together with the error.
func (c *Coordinator) LatestLocations(ctx context.Context) ([]models.LocationUpdate, error) {
	newest := make(map[string]models.LocationSample)
	merge := func(s models.LocationSample) {
		if cur, ok := newest[s.IdentityID]; !ok || s.CapturedAt.After(cur.CapturedAt) {
			newest[s.IdentityID] = s
		}
	}

	stored, err := c.deps.Store.LatestSamples(ctx)
	if err != nil {
		err = fmt.Errorf("latest samples: %w", err)
	}
	for _, s := range stored {
		merge(s)
	}
	for _, s := range c.last.Snapshot() {
		merge(s)
	}

	ids := make([]string, 0, len(newest))
	for id := range newest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := make(map[string]string)
	for _, s := range c.OnlineSubjects() {
		names[s.IdentityID] = s.DisplayName
	}

	out := make([]models.LocationUpdate, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			name = c.displayName(ctx, models.Identity{ID: id})
		}
		s := newest[id]
		out = append(out, models.NewLocationUpdate(name, &s))
	}
	return out, err
}
