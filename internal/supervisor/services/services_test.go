// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/waypoint/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// mockHTTPServer blocks in ListenAndServe until Shutdown is called.
type mockHTTPServer struct {
	listenErr     error
	shutdownErr   error
	started       chan struct{}
	stopCh        chan struct{}
	shutdownCount atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func TestHTTPServerService(t *testing.T) {
	tests := []struct {
		name        string
		listenErr   error
		shutdownErr error
		cancel      bool
		wantErr     error
		wantWrapped bool
	}{
		{name: "graceful shutdown", cancel: true, wantErr: context.Canceled},
		{name: "listen failure", listenErr: errors.New("address in use"), wantWrapped: true},
		{name: "shutdown failure", cancel: true, shutdownErr: errors.New("stuck"), wantWrapped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newMockHTTPServer()
			server.listenErr = tt.listenErr
			server.shutdownErr = tt.shutdownErr
			svc := NewHTTPServerService(server, time.Second)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			<-server.started
			if tt.cancel {
				cancel()
			}

			var err error
			select {
			case err = <-errCh:
			case <-time.After(2 * time.Second):
				t.Fatal("Serve did not return")
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantWrapped && err == nil {
				t.Error("Expected an error")
			}
			if tt.cancel && server.shutdownCount.Load() != 1 {
				t.Errorf("Expected one Shutdown call, got %d", server.shutdownCount.Load())
			}
		})
	}
}

func TestHTTPServerServiceDefaultTimeout(t *testing.T) {
	svc := NewHTTPServerService(newMockHTTPServer(), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("Expected 10s default, got %v", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("Unexpected name %q", svc.String())
	}
}

type mockHub struct {
	runs atomic.Int32
}

func (m *mockHub) RunWithContext(ctx context.Context) error {
	m.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestHubServiceWithSupervisor(t *testing.T) {
	hub := &mockHub{}
	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          100 * time.Millisecond,
	})
	sup.Add(NewHubService(hub))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	var started bool
	for i := 0; i < 50; i++ {
		if hub.runs.Load() >= 1 {
			started = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-errCh

	if !started {
		t.Error("hub RunWithContext was not called")
	}
}

type mockGC struct {
	calls atomic.Int32
	err   error
}

func (m *mockGC) RunGC() error {
	m.calls.Add(1)
	return m.err
}

func TestWALGCServiceRunsPeriodically(t *testing.T) {
	gc := &mockGC{err: errors.New("nothing to rewrite")}
	svc := NewWALGCService(gc, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for gc.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if gc.calls.Load() < 2 {
		t.Errorf("Expected GC errors not to stop the loop, got %d calls", gc.calls.Load())
	}
}
