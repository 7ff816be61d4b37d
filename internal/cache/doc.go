// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package cache provides a thread-safe in-memory TTL cache and a display name
cache in front of the employee directory.

# Overview

Cache is a map guarded by a sync.RWMutex. Entries expire lazily: an expired
entry is removed by the Get that finds it, or by an explicit Cleanup.

NameCache wraps a storage.NameLookup. Every connection activation and every
REST attendance change resolves a display name, and the directory changes
rarely, so names (including "not in the directory") are cached for a TTL:

	names := cache.NewNameCache(db, 5*time.Minute)
	coord := tracking.New(cfg, tracking.Deps{Names: names, ...})

Lookup errors other than storage.ErrNotFound are never cached, so a failing
store is retried on the next connection.
*/
package cache
