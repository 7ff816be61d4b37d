// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package config provides centralized configuration management for Waypoint.

# Configuration Sources

Load builds the configuration in three layers, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, or the first of DefaultConfigPaths
 3. Environment variables, mapped explicitly in envTransformFunc

# Sections

  - server: HTTP listener and environment
  - security: JWT secret, CORS origins and REST rate limiting
  - database: store driver (duckdb or memory) and circuit breaker
  - tracking: dedup thresholds, failed geocode sentinels and connection tuning
  - wal: the Badger retry log for writes the store refused
  - logging: zerolog level and format

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, SHUTDOWN_TIMEOUT, ENVIRONMENT

Security:
  - JWT_SECRET (min 32 chars), SESSION_TIMEOUT
  - CORS_ORIGINS (comma-separated), TRUSTED_PROXIES
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Database:
  - DB_DRIVER (duckdb|memory), DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS

Tracking:
  - LOCATION_REFRESH_THRESHOLD, LOCATION_DUPLICATE_THRESHOLD
  - FAILED_GEOCODE_ADDRESSES, AUTO_OPEN_SESSION, ATTENDANCE_TIMEZONE
  - REPORT_RATE, REPORT_BURST, RECONCILE_TIMEOUT, SEND_BUFFER

WAL:
  - WAL_ENABLED, WAL_PATH, WAL_SYNC_WRITES, WAL_RETRY_INTERVAL, WAL_MAX_RETRIES

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	for _, w := range cfg.Warnings() {
	    logging.Warn().Msg(w)
	}
*/
package config
