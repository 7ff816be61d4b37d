// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/waypoint/internal/wal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Database DatabaseConfig `koanf:"database"`
	Tracking TrackingConfig `koanf:"tracking"`
	WAL      wal.Config     `koanf:"wal"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development or production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds credential and HTTP hardening configuration.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`

	// Casbin route policy overrides. Empty uses the embedded files.
	CasbinModelPath      string        `koanf:"casbin_model_path"`
	CasbinPolicyPath     string        `koanf:"casbin_policy_path"`
	CasbinReloadInterval time.Duration `koanf:"casbin_reload_interval"`
}

// DatabaseConfig holds store configuration.
type DatabaseConfig struct {
	// Driver selects the store: duckdb or memory.
	Driver    string `koanf:"driver"`
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()

	// Circuit breaker around every store call.
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
}

// TrackingConfig tunes presence, location ingestion and attendance.
type TrackingConfig struct {
	// RefreshThreshold: a report this long after the last accepted sample is
	// always persisted. DuplicateThreshold: an identical report within this
	// window is suppressed. 0/0 persists every report.
	RefreshThreshold   time.Duration `koanf:"refresh_threshold"`
	DuplicateThreshold time.Duration `koanf:"duplicate_threshold"`

	FailedGeocodeAddresses []string `koanf:"failed_geocode_addresses"`

	// AutoOpenSession logs a subject in when its connection activates.
	AutoOpenSession bool `koanf:"auto_open_session"`

	// TimeZone is the IANA zone used to derive an attendance session date.
	TimeZone string `koanf:"time_zone"`

	// ReportRate (per second) and ReportBurst bound inbound location reports
	// per connection. A zero rate disables the limit.
	ReportRate  float64 `koanf:"report_rate"`
	ReportBurst int     `koanf:"report_burst"`

	ReconcileTimeout time.Duration `koanf:"reconcile_timeout"`

	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int `koanf:"send_buffer"`

	// NameCacheTTL bounds how long a directory display name is reused.
	NameCacheTTL time.Duration `koanf:"name_cache_ttl"`
}

// Location resolves TimeZone. Validate guarantees it loads.
func (t TrackingConfig) Location() *time.Location {
	if t.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the defaults applied before the file and environment.
func defaultConfig() *Config {
	walCfg := wal.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:            8090,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},

			CasbinReloadInterval: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:              "duckdb",
			Path:                "/data/waypoint.duckdb",
			MaxMemory:           "1GB",
			Threads:             0,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
			BreakerTimeout:      30 * time.Second,
		},
		Tracking: TrackingConfig{
			// Both thresholds ship disabled; see Warnings.
			RefreshThreshold:       0,
			DuplicateThreshold:     0,
			FailedGeocodeAddresses: []string{"Address not found"},
			AutoOpenSession:        false,
			TimeZone:               "UTC",
			ReportRate:             2,
			ReportBurst:            10,
			ReconcileTimeout:       10 * time.Second,
			SendBuffer:             256,
			NameCacheTTL:           5 * time.Minute,
		},
		WAL: walCfg,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
