// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	minJWTSecretLength   = 32
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

var validDrivers = map[string]bool{
	"duckdb": true,
	"memory": true,
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateTracking(); err != nil {
		return err
	}
	if err := c.WAL.Validate(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed when ENVIRONMENT=production; " +
			"set specific origins such as CORS_ORIGINS=https://tracker.example.com")
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("DB_DRIVER must be one of: duckdb, memory (got %q)", c.Database.Driver)
	}
	if c.Database.Driver == "duckdb" && c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required when DB_DRIVER=duckdb")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	if c.Database.BreakerFailureRatio <= 0 || c.Database.BreakerFailureRatio > 1 {
		return fmt.Errorf("database.breaker_failure_ratio must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateTracking() error {
	t := c.Tracking
	if t.RefreshThreshold < 0 {
		return fmt.Errorf("LOCATION_REFRESH_THRESHOLD must not be negative")
	}
	if t.DuplicateThreshold < 0 {
		return fmt.Errorf("LOCATION_DUPLICATE_THRESHOLD must not be negative")
	}
	if t.ReportRate < 0 {
		return fmt.Errorf("REPORT_RATE must not be negative")
	}
	if t.ReportRate > 0 && t.ReportBurst < 1 {
		return fmt.Errorf("REPORT_BURST must be at least 1 when REPORT_RATE is set")
	}
	if t.ReconcileTimeout <= 0 {
		return fmt.Errorf("RECONCILE_TIMEOUT must be positive")
	}
	if t.SendBuffer < 1 {
		return fmt.Errorf("SEND_BUFFER must be at least 1")
	}
	if t.TimeZone != "" {
		if _, err := time.LoadLocation(t.TimeZone); err != nil {
			return fmt.Errorf("ATTENDANCE_TIMEZONE %q is not a valid IANA zone: %w", t.TimeZone, err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// Warnings lists configuration that is valid but probably unintended.
// They are logged at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	switch {
	case c.Tracking.RefreshThreshold == 0 && c.Tracking.DuplicateThreshold == 0:
		warnings = append(warnings,
			"location dedup is disabled (refresh and duplicate thresholds are 0); every report is persisted")
	case c.Tracking.RefreshThreshold == 0:
		warnings = append(warnings,
			"refresh threshold is 0, so the duplicate threshold never applies; every report is persisted")
	case c.Tracking.DuplicateThreshold > c.Tracking.RefreshThreshold:
		warnings = append(warnings,
			"duplicate threshold exceeds refresh threshold; identical reports are persisted once the refresh threshold elapses")
	}
	if c.hasWildcardCORS() {
		warnings = append(warnings, "CORS_ORIGINS allows any origin, including for websocket upgrades")
	}
	if !c.WAL.Enabled {
		warnings = append(warnings, "WAL disabled; samples and closes that fail to persist are lost")
	}
	return warnings
}
