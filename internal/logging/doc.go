// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package logging provides centralized zerolog-based structured logging for Waypoint.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("identity_id", id).Msg("subject connected")
//	logging.Ctx(ctx).Warn().Err(err).Msg("location sample not persisted")
//
// # Connection Loggers
//
// Every live connection logs through a child logger carrying the
// connection_id, identity_id and role fields:
//
//	log := logging.ForConnection(peer.ID(), identity.ID, string(identity.Role))
//	log.Debug().Msg("report suppressed")
//
// # Supervisor Integration
//
// Suture requires an slog.Logger; NewSlogLogger bridges slog records into
// the global zerolog logger so supervisor events share the same output.
package logging
