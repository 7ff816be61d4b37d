// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package wal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/metrics"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage"
)

// Target is the store the retry loop replays into.
type Target interface {
	InsertLocationSample(ctx context.Context, sample *models.LocationSample) error
	CloseOpenSession(ctx context.Context, identityID string, at time.Time) (*models.AttendanceSession, error)
}

// RetryLoop replays pending entries into the store. It implements
// suture.Service.
type RetryLoop struct {
	log    *Log
	target Target
	config Config
	now    func() time.Time
}

// NewRetryLoop creates a retry loop over log.
func NewRetryLoop(log *Log, target Target) *RetryLoop {
	return &RetryLoop{
		log:    log,
		target: target,
		config: log.Config(),
		now:    time.Now,
	}
}

// Serve runs replay passes every RetryInterval until ctx is canceled.
func (r *RetryLoop) Serve(ctx context.Context) error {
	interval := r.config.RetryInterval
	if interval <= 0 {
		interval = DefaultConfig().RetryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info().
		Dur("interval", interval).
		Int("max_retries", r.config.MaxRetries).
		Msg("WAL retry loop started")

	// Entries left over from a previous run are replayed right away.
	r.RetryPending(ctx)

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("WAL retry loop stopped")
			return ctx.Err()
		case <-ticker.C:
			r.RetryPending(ctx)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (r *RetryLoop) String() string {
	return "wal-retry-loop"
}

type retryResult int

const (
	retryResultSuccess retryResult = iota
	retryResultFailed
	retryResultExpired
	retryResultMaxRetried
	retryResultSkipped
)

// RetryPending runs one replay pass over every pending entry.
func (r *RetryLoop) RetryPending(ctx context.Context) {
	entries, err := r.log.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("WAL retry: failed to get pending entries")
		return
	}
	if len(entries) == 0 {
		return
	}

	var success, failed, dropped int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		switch r.processEntry(ctx, entry) {
		case retryResultSuccess:
			success++
		case retryResultFailed:
			failed++
		case retryResultExpired, retryResultMaxRetried:
			dropped++
		}
	}
	r.log.publishPending()

	if success > 0 || failed > 0 || dropped > 0 {
		logging.Info().
			Int("succeeded", success).
			Int("failed", failed).
			Int("dropped", dropped).
			Msg("WAL retry complete")
	}
}

func (r *RetryLoop) processEntry(ctx context.Context, entry *Entry) retryResult {
	if r.config.EntryTTL > 0 && r.now().Sub(entry.CreatedAt) > r.config.EntryTTL {
		logging.Warn().Str("entry_id", entry.ID).Str("op", string(entry.Op)).Msg("WAL retry: entry expired, removing")
		r.drop(ctx, entry, "expired")
		return retryResultExpired
	}
	if r.config.MaxRetries > 0 && entry.Attempts >= r.config.MaxRetries {
		logging.Warn().
			Str("entry_id", entry.ID).
			Str("op", string(entry.Op)).
			Int("attempts", entry.Attempts).
			Msg("WAL retry: entry exceeded max retries, removing")
		r.drop(ctx, entry, "max_retries")
		return retryResultMaxRetried
	}
	if !r.isReadyForRetry(entry) {
		return retryResultSkipped
	}

	replayCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := r.replay(replayCtx, entry)
	cancel()

	if err != nil {
		logging.Error().
			Err(err).
			Str("entry_id", entry.ID).
			Str("op", string(entry.Op)).
			Int("attempt", entry.Attempts+1).
			Msg("WAL retry: replay failed")
		if updateErr := r.log.UpdateAttempt(ctx, entry.ID, err.Error()); updateErr != nil {
			logging.Error().Err(updateErr).Str("entry_id", entry.ID).Msg("WAL retry: failed to update attempt")
		}
		metrics.RetryReplays.WithLabelValues(string(entry.Op), "failed").Inc()
		return retryResultFailed
	}

	if err := r.log.Delete(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL retry: failed to delete replayed entry")
		return retryResultFailed
	}
	metrics.RetryReplays.WithLabelValues(string(entry.Op), "success").Inc()
	return retryResultSuccess
}

func (r *RetryLoop) replay(ctx context.Context, entry *Entry) error {
	switch entry.Op {
	case OpInsertSample:
		var sample models.LocationSample
		if err := entry.UnmarshalPayload(&sample); err != nil {
			return fmt.Errorf("decode sample: %w", err)
		}
		return r.target.InsertLocationSample(ctx, &sample)

	case OpCloseSession:
		var payload ClosePayload
		if err := entry.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("decode close: %w", err)
		}
		session, err := r.target.CloseOpenSession(ctx, payload.IdentityID, payload.At)
		if errors.Is(err, storage.ErrNoOpenSession) {
			// already closed by a later logout or an earlier replay
			return nil
		}
		if err != nil {
			return err
		}
		logging.Info().
			Str("identity_id", payload.IdentityID).
			Str("session_id", session.ID).
			Time("closed_at", payload.At).
			Msg("WAL retry: attendance session closed")
		return nil

	default:
		return fmt.Errorf("unknown op %q", entry.Op)
	}
}

func (r *RetryLoop) drop(ctx context.Context, entry *Entry, result string) {
	if err := r.log.Delete(ctx, entry.ID); err != nil {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL retry: failed to delete entry")
	}
	metrics.RetryReplays.WithLabelValues(string(entry.Op), result).Inc()
}

func (r *RetryLoop) isReadyForRetry(entry *Entry) bool {
	if entry.LastAttemptAt.IsZero() {
		return true
	}
	return r.now().Sub(entry.LastAttemptAt) >= r.calculateBackoff(entry.Attempts)
}

// calculateBackoff returns base * 2^attempts, capped at 5 minutes.
func (r *RetryLoop) calculateBackoff(attempts int) time.Duration {
	const maxBackoff = 5 * time.Minute
	if attempts > 50 {
		return maxBackoff
	}
	backoff := time.Duration(float64(r.config.RetryBackoff) * math.Pow(2, float64(attempts)))
	if backoff < 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}
