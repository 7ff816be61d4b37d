// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/metrics"
	"github.com/tomtom215/waypoint/internal/models"
)

// BreakerSettings tunes the store circuit breaker.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// MinRequests and FailureRatio decide when the circuit opens.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings opens after 60% failures over at least 10 requests
// and probes again after 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "store",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerStore wraps a Store with circuit breaker protection.
// Lookups that legitimately find nothing (ErrNotFound, ErrNoOpenSession)
// count as successes.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, s BreakerSettings) *BreakerStore {
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRatio
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening store circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoOpenSession)
		},
	})

	return &BreakerStore{next: next, cb: cb, name: s.Name}
}

// State returns the breaker state as "closed", "half-open" or "open".
func (b *BreakerStore) State() string {
	return stateToString(b.cb.State())
}

func (b *BreakerStore) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoOpenSession) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// run executes a call that only returns an error.
func (b *BreakerStore) run(fn func() error) error {
	_, err := b.execute(func() (any, error) { return nil, fn() })
	return err
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// InsertLocationSample persists sample through the breaker.
func (b *BreakerStore) InsertLocationSample(ctx context.Context, sample *models.LocationSample) error {
	return b.run(func() error { return b.next.InsertLocationSample(ctx, sample) })
}

// LatestSample returns the newest sample of identityID through the breaker.
func (b *BreakerStore) LatestSample(ctx context.Context, identityID string) (*models.LocationSample, error) {
	return castResult[*models.LocationSample](b.execute(func() (any, error) {
		return b.next.LatestSample(ctx, identityID)
	}))
}

// LatestSamples returns the newest sample per identity through the breaker.
func (b *BreakerStore) LatestSamples(ctx context.Context) ([]models.LocationSample, error) {
	return castResult[[]models.LocationSample](b.execute(func() (any, error) {
		return b.next.LatestSamples(ctx)
	}))
}

// ListSamples returns up to limit samples of identityID, newest first, through the breaker.
func (b *BreakerStore) ListSamples(ctx context.Context, identityID string, limit int) ([]models.LocationSample, error) {
	return castResult[[]models.LocationSample](b.execute(func() (any, error) {
		return b.next.ListSamples(ctx, identityID, limit)
	}))
}

// OpenSession inserts a new open session through the breaker.
func (b *BreakerStore) OpenSession(ctx context.Context, session *models.AttendanceSession) error {
	return b.run(func() error { return b.next.OpenSession(ctx, session) })
}

// FindOpenSession returns the open session of identityID through the breaker.
func (b *BreakerStore) FindOpenSession(ctx context.Context, identityID string) (*models.AttendanceSession, error) {
	return castResult[*models.AttendanceSession](b.execute(func() (any, error) {
		return b.next.FindOpenSession(ctx, identityID)
	}))
}

// CloseOpenSession closes the latest open session of identityID through the breaker.
func (b *BreakerStore) CloseOpenSession(ctx context.Context, identityID string, at time.Time) (*models.AttendanceSession, error) {
	return castResult[*models.AttendanceSession](b.execute(func() (any, error) {
		return b.next.CloseOpenSession(ctx, identityID, at)
	}))
}

// ListSessions returns every session of identityID through the breaker.
func (b *BreakerStore) ListSessions(ctx context.Context, identityID string) ([]models.AttendanceSession, error) {
	return castResult[[]models.AttendanceSession](b.execute(func() (any, error) {
		return b.next.ListSessions(ctx, identityID)
	}))
}

// SessionsBetween returns sessions opened in [from, to) through the breaker.
func (b *BreakerStore) SessionsBetween(ctx context.Context, from, to time.Time) ([]models.AttendanceSession, error) {
	return castResult[[]models.AttendanceSession](b.execute(func() (any, error) {
		return b.next.SessionsBetween(ctx, from, to)
	}))
}

// Ping bypasses the breaker so readiness probes report the real database state.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}
