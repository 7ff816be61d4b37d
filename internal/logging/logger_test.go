// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.NoTimestamp {
		t.Error("expected timestamps to be on by default")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestForConnectionFields(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(orig)

	l := ForConnection(42, "emp-7", "subject")
	l.Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"connection_id":42`, `"identity_id":"emp-7"`, `"role":"subject"`, `"hello"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got %s", want, out)
		}
	}
}

func TestCtxAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(orig)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	Ctx(ctx).Info().Msg("traced")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-1"`) || !strings.Contains(out, `"correlation_id":"corr-1"`) {
		t.Errorf("expected request and correlation IDs, got %s", out)
	}
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("expected 8 char correlation ID, got %d", got)
	}
}

func TestSlogHandlerBridgesAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf))).
		With("service", "retry-loop").
		WithGroup("supervisor")
	l.Warn("service restarted", "attempt", 3)

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"service":"retry-loop"`, `"supervisor.attempt":3`, `"service restarted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got %s", want, out)
		}
	}
}

func TestInitAddsAppAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger()
	defer SetLogger(orig)

	Init(Config{Level: "debug", Format: "json", Output: &buf})
	Debug().Str("identity_id", "emp-a").Msg("report accepted")

	out := buf.String()
	for _, want := range []string{`"app":"waypoint"`, `"time":`, `"level":"debug"`, `"message":"report accepted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got %s", want, out)
		}
	}

	buf.Reset()
	Init(Config{Level: "warn", NoTimestamp: true, Output: &buf})
	Info().Msg("filtered")
	Warn().Msg("kept")
	out = buf.String()
	if strings.Contains(out, "filtered") || !strings.Contains(out, "kept") || strings.Contains(out, `"time":`) {
		t.Errorf("unexpected output %s", out)
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestSanitizeToken(t *testing.T) {
	t.Parallel()

	if got := SanitizeToken("short"); got != "***" {
		t.Errorf("expected ***, got %s", got)
	}
	if got := SanitizeToken("abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("expected abcd...mnop, got %s", got)
	}
	if got := SanitizeHeader("agent\r\nforged"); got != "agentforged" {
		t.Errorf("expected control characters stripped, got %q", got)
	}
	if got := SanitizeError("bad secret value"); got != "authentication error" {
		t.Errorf("expected masked error, got %s", got)
	}
}

func TestLogAuthRejection(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(orig)

	LogAuthRejection(&AuthRejection{
		Path:      "/ws",
		RemoteIP:  "10.0.0.7",
		UserAgent: "agent\r\nforged",
		Reason:    "token is expired",
		Token:     "eyJhbGciOiJIUzI1NiJ9.payload.signature",
	})

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"component":"auth"`,
		`"event":"credential_rejected"`,
		`"path":"/ws"`,
		`"user_agent":"agentforged"`,
		`"reason":"token is expired"`,
		`"token":"eyJh...ture"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got %s", want, out)
		}
	}
	if strings.Contains(out, "payload") {
		t.Errorf("expected token to be masked, got %s", out)
	}
}

func TestTruncateStringKeepsRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc..."},
		{"cut inside rune", "aé", 2, "a..."},
		{"cut after rune", "éa", 2, "é..."},
		{"cut inside wide rune", "日本語", 4, "日..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateString(tt.in, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateString(%q, %d) produced invalid UTF-8", tt.in, tt.maxLen)
			}
		})
	}
}
