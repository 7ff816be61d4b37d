// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package wal

import "time"

// Config holds retry log configuration.
type Config struct {
	// Enabled controls whether failed writes are spooled at all.
	Enabled bool `koanf:"enabled"`

	// Path is the directory where BadgerDB stores its files.
	Path string `koanf:"path"`

	// InMemory keeps the log in memory only. Intended for tests and
	// throwaway development runs.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites forces fsync after every write.
	SyncWrites bool `koanf:"sync_writes"`

	// RetryInterval is the time between replay passes.
	RetryInterval time.Duration `koanf:"retry_interval"`

	// MaxRetries is the number of failed replays after which an entry is dropped.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the initial backoff for exponential backoff.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// EntryTTL bounds how long an entry may stay pending.
	EntryTTL time.Duration `koanf:"entry_ttl"`

	// CloseTimeout bounds a graceful Close.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Path:          "/data/wal",
		SyncWrites:    true,
		RetryInterval: 15 * time.Second,
		MaxRetries:    100,
		RetryBackoff:  2 * time.Second,
		EntryTTL:      72 * time.Hour,
		CloseTimeout:  30 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Path == "" && !c.InMemory {
		return &ConfigError{Field: "Path", Message: "required unless in_memory is set"}
	}
	if c.RetryInterval < time.Second {
		return &ConfigError{Field: "RetryInterval", Message: "must be at least 1 second"}
	}
	if c.MaxRetries < 1 {
		return &ConfigError{Field: "MaxRetries", Message: "must be at least 1"}
	}
	if c.RetryBackoff <= 0 {
		return &ConfigError{Field: "RetryBackoff", Message: "must be positive"}
	}
	if c.EntryTTL < time.Minute {
		return &ConfigError{Field: "EntryTTL", Message: "must be at least 1 minute"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "WAL config error: " + e.Field + ": " + e.Message
}
