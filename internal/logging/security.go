// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package logging

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// AuthRejection describes a refused handshake or REST credential.
type AuthRejection struct {
	Path      string
	RemoteIP  string
	UserAgent string
	Reason    string
	Token     string
}

// LogAuthRejection records a refused credential with the token masked.
func LogAuthRejection(r *AuthRejection) {
	l := With().Str("component", "auth").Logger()
	l.Warn().
		Str("event", "credential_rejected").
		Str("path", r.Path).
		Str("remote_ip", r.RemoteIP).
		Str("user_agent", truncateString(SanitizeHeader(r.UserAgent), 120)).
		Str("reason", SanitizeError(r.Reason)).
		Str("token", SanitizeToken(r.Token)).
		Msg("credential rejected")
}

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..." -> "eyJh...kpXV"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeHeader strips control characters from a client-supplied header
// value so it cannot forge log lines.
func SanitizeHeader(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, v)
}

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range []string{"password", "secret", "bearer", "authorization", "cookie"} {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

// truncateString cuts s to at most maxLen bytes on a rune boundary.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
