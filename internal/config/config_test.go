// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Tracking.RefreshThreshold != 0 || cfg.Tracking.DuplicateThreshold != 0 {
		t.Errorf("dedup thresholds should default to 0/0, got %v/%v",
			cfg.Tracking.RefreshThreshold, cfg.Tracking.DuplicateThreshold)
	}
	if len(cfg.Tracking.FailedGeocodeAddresses) != 1 || cfg.Tracking.FailedGeocodeAddresses[0] != "Address not found" {
		t.Errorf("FailedGeocodeAddresses = %v", cfg.Tracking.FailedGeocodeAddresses)
	}
	if !cfg.WAL.Enabled {
		t.Error("WAL should be enabled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "JWT_SECRET"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "DB_DRIVER"},
		{"duckdb without path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"memory without path", func(c *Config) { c.Database.Driver = "memory"; c.Database.Path = "" }, ""},
		{"negative refresh", func(c *Config) { c.Tracking.RefreshThreshold = -time.Second }, "LOCATION_REFRESH_THRESHOLD"},
		{"negative duplicate", func(c *Config) { c.Tracking.DuplicateThreshold = -time.Second }, "LOCATION_DUPLICATE_THRESHOLD"},
		{"bad time zone", func(c *Config) { c.Tracking.TimeZone = "Mars/Olympus" }, "ATTENDANCE_TIMEZONE"},
		{"zero send buffer", func(c *Config) { c.Tracking.SendBuffer = 0 }, "SEND_BUFFER"},
		{"rate without burst", func(c *Config) { c.Tracking.ReportBurst = 0 }, "REPORT_BURST"},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "production" }, "CORS_ORIGINS"},
		{"specific cors in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.CORSOrigins = []string{"https://tracker.example.com"}
		}, ""},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"wal without path", func(c *Config) { c.WAL.Path = "" }, "WAL config error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name      string
		refresh   time.Duration
		duplicate time.Duration
		want      string
	}{
		{"zero zero", 0, 0, "dedup is disabled"},
		{"zero refresh", 0, time.Minute, "never applies"},
		{"duplicate above refresh", time.Minute, time.Hour, "exceeds refresh"},
		{"sane", time.Hour, 5 * time.Minute, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Security.CORSOrigins = []string{"https://tracker.example.com"}
			cfg.Tracking.RefreshThreshold = tt.refresh
			cfg.Tracking.DuplicateThreshold = tt.duplicate

			warnings := cfg.Warnings()
			if tt.want == "" {
				if len(warnings) != 0 {
					t.Errorf("Warnings() = %v, want none", warnings)
				}
				return
			}
			if len(warnings) != 1 || !strings.Contains(warnings[0], tt.want) {
				t.Errorf("Warnings() = %v, want one mentioning %q", warnings, tt.want)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("LOCATION_REFRESH_THRESHOLD", "1h")
	t.Setenv("LOCATION_DUPLICATE_THRESHOLD", "5m")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("AUTO_OPEN_SESSION", "true")
	t.Setenv("WAL_IN_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("Database.Driver = %q, want memory", cfg.Database.Driver)
	}
	if cfg.Tracking.RefreshThreshold != time.Hour || cfg.Tracking.DuplicateThreshold != 5*time.Minute {
		t.Errorf("thresholds = %v/%v, want 1h/5m", cfg.Tracking.RefreshThreshold, cfg.Tracking.DuplicateThreshold)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if !cfg.Tracking.AutoOpenSession {
		t.Error("AutoOpenSession should be true")
	}
	if !cfg.WAL.InMemory {
		t.Error("WAL.InMemory should be true")
	}
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
security:
  jwt_secret: "` + testSecret + `"
database:
  driver: memory
tracking:
  refresh_threshold: 30m
  duplicate_threshold: 2m
  time_zone: Europe/Berlin
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tracking.RefreshThreshold != 30*time.Minute {
		t.Errorf("RefreshThreshold = %v, want 30m", cfg.Tracking.RefreshThreshold)
	}
	if cfg.Tracking.Location().String() != "Europe/Berlin" {
		t.Errorf("Location() = %v, want Europe/Berlin", cfg.Tracking.Location())
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want env override warn", cfg.Logging.Level)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want default 8090", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("LOCATION_DUPLICATE_THRESHOLD", "-5s")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a negative threshold")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"JWT_SECRET":                   "security.jwt_secret",
		"LOCATION_DUPLICATE_THRESHOLD": "tracking.duplicate_threshold",
		"WAL_PATH":                     "wal.path",
		"HOME":                         "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
