// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package presence tracks which identities currently hold a live connection.
//
// The Registry is the single source of truth for "who is online now". It maps
// an identity to exactly one connection handle: a reconnect replaces the
// previous entry, and an unregister only succeeds for the handle that is
// still stored, so a slow-closing stale connection can never evict a fresher
// one. The registry emits no events; callers decide when to announce changes.
package presence

import (
	"sort"
	"sync"
)

// Handle is a connection handle stored in the registry. IDs are unique per
// process and increase with connection age.
type Handle interface {
	ID() uint64
}

// Registry maps identity IDs to their live connection handle.
type Registry[H Handle] struct {
	mu      sync.RWMutex
	entries map[string]H
}

// NewRegistry creates an empty registry.
func NewRegistry[H Handle]() *Registry[H] {
	return &Registry[H]{entries: make(map[string]H)}
}

// Register stores h as the live handle for identityID. When another handle
// was stored it is returned with replaced=true so the caller can close it.
// Registering the same handle twice is a no-op.
func (r *Registry[H]) Register(identityID string, h H) (evicted H, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.entries[identityID]
	r.entries[identityID] = h
	if ok && prev.ID() != h.ID() {
		return prev, true
	}
	var zero H
	return zero, false
}

// Unregister removes identityID only if its stored handle is h.
// It returns false for a stale write, meaning a different connection now
// owns the identity (or the identity is not registered at all).
func (r *Registry[H]) Unregister(identityID string, h H) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.entries[identityID]
	if !ok || cur.ID() != h.ID() {
		return false
	}
	delete(r.entries, identityID)
	return true
}

// Get returns the live handle for identityID.
func (r *Registry[H]) Get(identityID string) (H, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.entries[identityID]
	return h, ok
}

// IsOnline reports whether identityID currently has a live connection.
func (r *Registry[H]) IsOnline(identityID string) bool {
	_, ok := r.Get(identityID)
	return ok
}

// Len returns the number of registered identities.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of the registered handles ordered by handle ID,
// i.e. by connection age.
func (r *Registry[H]) Snapshot() []H {
	r.mu.RLock()
	out := make([]H, 0, len(r.entries))
	for _, h := range r.entries {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
