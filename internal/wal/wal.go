// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package wal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/metrics"
	"github.com/tomtom215/waypoint/internal/models"
)

// Op identifies the store write an entry replays.
type Op string

const (
	OpInsertSample Op = "insert_sample"
	OpCloseSession Op = "close_session"
)

var (
	ErrLogClosed     = errors.New("retry log is closed")
	ErrEmptyEntryID  = errors.New("entry ID cannot be empty")
	ErrEntryNotFound = errors.New("entry not found")
)

const prefixPending = "pending:"

// Entry is one spooled write.
type Entry struct {
	ID            string          `json:"id"`
	Op            Op              `json:"op"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

// UnmarshalPayload deserializes the payload into v.
func (e *Entry) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// ClosePayload is the payload of an OpCloseSession entry.
type ClosePayload struct {
	IdentityID string    `json:"identity_id"`
	At         time.Time `json:"at"`
}

// Log is a BadgerDB-backed retry log.
type Log struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the retry log described by cfg.
func Open(cfg *Config) (*Log, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid WAL config: %w", err)
	}
	return open(cfg)
}

// OpenInMemory opens an in-memory log without validating intervals.
// Tests use it to run the retry loop with short timings.
func OpenInMemory(cfg Config) (*Log, error) {
	cfg.InMemory = true
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = 5 * time.Second
	}
	return open(&cfg)
}

func open(cfg *Config) (*Log, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites && !cfg.InMemory
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	l := &Log{db: db, config: *cfg}
	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("WAL opened")
	l.publishPending()
	return l, nil
}

// Config returns the log configuration.
func (l *Log) Config() Config {
	return l.config
}

// Write spools one store write.
func (l *Log) Write(ctx context.Context, op Op, payload interface{}) (string, error) {
	if err := l.checkOpen(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	entry := &Entry{
		ID:        uuid.New().String(),
		Op:        op,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.put(entry); err != nil {
		return "", err
	}
	metrics.RetryPending.Inc()
	return entry.ID, nil
}

// SpoolSample records a location sample whose insert failed.
func (l *Log) SpoolSample(ctx context.Context, sample *models.LocationSample) error {
	_, err := l.Write(ctx, OpInsertSample, sample)
	return err
}

// SpoolClose records an attendance close that failed to persist.
func (l *Log) SpoolClose(ctx context.Context, identityID string, at time.Time) error {
	_, err := l.Write(ctx, OpCloseSession, ClosePayload{IdentityID: identityID, At: at})
	return err
}

func (l *Log) put(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	err = l.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(prefixPending+entry.ID), data)
		if l.config.EntryTTL > 0 {
			e = e.WithTTL(l.config.EntryTTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("write to BadgerDB: %w", err)
	}
	return nil
}

// GetPending returns every pending entry, oldest first.
func (l *Log) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("WAL skipping unreadable entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read pending entries: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

// UpdateAttempt records a failed replay of an entry.
func (l *Log) UpdateAttempt(_ context.Context, entryID, lastError string) error {
	if err := l.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEmptyEntryID
	}

	key := []byte(prefixPending + entryID)
	return l.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		var entry Entry
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &entry) }); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}
		entry.Attempts++
		entry.LastAttemptAt = time.Now().UTC()
		entry.LastError = lastError

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		e := badger.NewEntry(key, data)
		if l.config.EntryTTL > 0 {
			remaining := l.config.EntryTTL - time.Since(entry.CreatedAt)
			if remaining <= 0 {
				remaining = time.Second
			}
			e = e.WithTTL(remaining)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes an entry. Deleting a missing entry is not an error.
func (l *Log) Delete(_ context.Context, entryID string) error {
	if err := l.checkOpen(); err != nil {
		return err
	}
	if entryID == "" {
		return ErrEmptyEntryID
	}
	if err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixPending + entryID))
	}); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// PendingCount returns the number of pending entries.
func (l *Log) PendingCount() int {
	if l.checkOpen() != nil {
		return 0
	}
	count := 0
	_ = l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count
}

func (l *Log) publishPending() {
	metrics.RetryPending.Set(float64(l.PendingCount()))
}

// RunGC triggers value log garbage collection. Nothing to collect is not an error.
func (l *Log) RunGC() error {
	if err := l.checkOpen(); err != nil {
		return err
	}
	if l.config.InMemory {
		return nil
	}
	err := l.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

func (l *Log) checkOpen() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLogClosed
	}
	return nil
}

// Close shuts the log down within the configured CloseTimeout.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- l.db.Close() }()

	timeout := l.config.CloseTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("WAL closed")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("WAL close timed out after %v", timeout)
	}
}
