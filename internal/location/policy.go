// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package location decides which inbound location reports are persisted.
//
// Policy rules, evaluated in order against the previous accepted sample:
//
//  1. no previous sample: persist (first_sample)
//  2. elapsed >= Refresh: persist (refresh_elapsed)
//  3. elapsed < Duplicate and identical lat, lng and address: suppress (duplicate_suppressed)
//  4. otherwise: persist (changed)
//
// With both thresholds at zero rule 2 always matches, so every report is
// persisted. That is a supported configuration.
package location

import (
	"strings"
	"time"

	"github.com/tomtom215/waypoint/internal/models"
)

// Decision reasons.
const (
	ReasonFirstSample         = "first_sample"
	ReasonRefreshElapsed      = "refresh_elapsed"
	ReasonDuplicateSuppressed = "duplicate_suppressed"
	ReasonChanged             = "changed"
)

// DefaultFailedGeocodeAddress is the address devices send when reverse
// geocoding failed.
const DefaultFailedGeocodeAddress = "Address not found"

// Decision is the outcome of Policy.Accept.
type Decision struct {
	Persist bool
	Reason  string
}

// Policy holds the dedup thresholds.
type Policy struct {
	// Refresh forces a save once this much time passed since the previous sample.
	Refresh time.Duration
	// Duplicate suppresses identical reports arriving within this window.
	Duplicate time.Duration
}

// Accept applies the dedup rules to a report captured at capturedAt.
// A report older than the previous sample yields a negative elapsed time
// and is judged on content alone.
func (p Policy) Accept(report models.LocationReport, capturedAt time.Time, previous *models.LocationSample) Decision {
	if previous == nil {
		return Decision{Persist: true, Reason: ReasonFirstSample}
	}

	elapsed := capturedAt.Sub(previous.CapturedAt)
	if elapsed >= p.Refresh {
		return Decision{Persist: true, Reason: ReasonRefreshElapsed}
	}
	if elapsed < p.Duplicate && previous.SameContent(report) {
		return Decision{Persist: false, Reason: ReasonDuplicateSuppressed}
	}
	return Decision{Persist: true, Reason: ReasonChanged}
}

// GeocodeFilter recognises addresses that mean reverse geocoding failed.
type GeocodeFilter struct {
	sentinels map[string]struct{}
}

// NewGeocodeFilter builds a filter from sentinel addresses. Matching is
// case-insensitive and ignores surrounding whitespace. An empty list falls
// back to DefaultFailedGeocodeAddress.
func NewGeocodeFilter(sentinels []string) *GeocodeFilter {
	if len(sentinels) == 0 {
		sentinels = []string{DefaultFailedGeocodeAddress}
	}
	f := &GeocodeFilter{sentinels: make(map[string]struct{}, len(sentinels))}
	for _, s := range sentinels {
		f.sentinels[normalize(s)] = struct{}{}
	}
	return f
}

// IsFailedGeocode reports whether address is a failed-geocode sentinel.
func (f *GeocodeFilter) IsFailedGeocode(address string) bool {
	_, ok := f.sentinels[normalize(address)]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
