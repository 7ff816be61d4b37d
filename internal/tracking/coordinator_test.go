// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package tracking

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waypoint/internal/attendance"
	"github.com/tomtom215/waypoint/internal/location"
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/presence"
	"github.com/tomtom215/waypoint/internal/storage/memory"
	ws "github.com/tomtom215/waypoint/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakePeer is an in-memory connection.
type fakePeer struct {
	id       uint64
	identity models.Identity

	mu       sync.Mutex
	messages []ws.Message
	closed   string
}

func newFakePeer(identityID string, role models.Role) *fakePeer {
	return &fakePeer{id: ws.NextClientID(), identity: models.Identity{ID: identityID, Role: role}}
}

func (p *fakePeer) ID() uint64                { return p.id }
func (p *fakePeer) Identity() models.Identity { return p.identity }

func (p *fakePeer) Send(msg ws.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed != "" {
		return false
	}
	p.messages = append(p.messages, msg)
	return true
}

func (p *fakePeer) SendContext(_ context.Context, msg ws.Message) bool {
	return p.Send(msg)
}

func (p *fakePeer) Close(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed == "" {
		p.closed = reason
	}
}

func (p *fakePeer) count(msgType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.messages {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func (p *fakePeer) ofType(msgType string) []ws.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ws.Message
	for _, m := range p.messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (p *fakePeer) closeReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// staticVerifier maps tokens to identities.
type staticVerifier map[string]models.Identity

func (v staticVerifier) VerifyCredential(token string) (models.Identity, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return models.Identity{}, errors.New("signature is invalid")
}

// countingStore wraps the memory store to count closes and fail inserts.
type countingStore struct {
	*memory.Store
	mu        sync.Mutex
	closes    int
	insertErr error
}

func (s *countingStore) CloseOpenSession(ctx context.Context, identityID string, at time.Time) (*models.AttendanceSession, error) {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return s.Store.CloseOpenSession(ctx, identityID, at)
}

func (s *countingStore) InsertLocationSample(ctx context.Context, sample *models.LocationSample) error {
	s.mu.Lock()
	err := s.insertErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.InsertLocationSample(ctx, sample)
}

type fakeSpool struct {
	mu      sync.Mutex
	samples []models.LocationSample
}

func (f *fakeSpool) SpoolSample(_ context.Context, s *models.LocationSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, *s)
	return nil
}

type harness struct {
	coord    *Coordinator
	store    *countingStore
	registry *presence.Registry[ws.Peer]
	clock    *fakeClock
	spool    *fakeSpool
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	store := &countingStore{Store: memory.NewStore()}
	store.SetDisplayName("emp-a", "Ada")
	registry := presence.NewRegistry[ws.Peer]()
	clock := &fakeClock{now: t0}
	spool := &fakeSpool{}

	cfg := Config{
		Policy:           location.Policy{Refresh: 3600 * time.Second, Duplicate: 300 * time.Second},
		AutoOpenSession:  true,
		ReconcileTimeout: time.Second,
		Clock:            clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	coord := New(cfg, Deps{
		Verifier: staticVerifier{
			"token-a":   {ID: "emp-a", Role: models.RoleSubject},
			"token-obs": {ID: "admin-1", Role: models.RoleObserver, Name: "Grace"},
			"token-bad": {ID: "emp-x", Role: models.Role("admin")},
		},
		Names:       store,
		Store:       store,
		Sessions:    attendance.NewMachine(store, attendance.Config{}),
		Registry:    registry,
		Broadcaster: ws.NewHub(registry),
		Spool:       spool,
	})
	return &harness{coord: coord, store: store, registry: registry, clock: clock, spool: spool}
}

func report(t *testing.T, lat, lng float64, address string) ws.Inbound {
	t.Helper()
	data, err := json.Marshal(models.LocationReport{Latitude: lat, Longitude: lng, Address: address})
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	return ws.Inbound{Type: ws.MessageTypeReportLocation, Data: data}
}

func presenceEvents(p *fakePeer, identityID string) []models.PresenceChanged {
	var out []models.PresenceChanged
	for _, m := range p.ofType(ws.MessageTypePresenceChanged) {
		if pc, ok := m.Data.(models.PresenceChanged); ok && pc.IdentityID == identityID {
			out = append(out, pc)
		}
	}
	return out
}

func TestScenarioReportDuplicateThenDrop(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	obs1 := newFakePeer("admin-1", models.RoleObserver)
	obs2 := newFakePeer("admin-2", models.RoleObserver)
	h.coord.Activate(ctx, obs1)
	h.coord.Activate(ctx, obs2)

	a := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, a)

	h.coord.HandleMessage(ctx, a, report(t, 10, 20, "X"))

	h.clock.Set(t0.Add(60 * time.Second))
	h.coord.HandleMessage(ctx, a, report(t, 10, 20, "X"))

	h.clock.Set(t0.Add(120 * time.Second))
	h.coord.Deactivate(a, ws.ReasonTransportClosed)

	for _, obs := range []*fakePeer{obs1, obs2} {
		if n := obs.count(ws.MessageTypeLocationUpdate); n != 1 {
			t.Errorf("%s: expected 1 location-update, got %d", obs.identity.ID, n)
		}
		events := presenceEvents(obs, "emp-a")
		if len(events) != 2 || !events[0].Online || events[1].Online {
			t.Errorf("%s: expected online then offline, got %+v", obs.identity.ID, events)
		}
		if events[0].DisplayName != "Ada" {
			t.Errorf("Expected display name Ada, got %q", events[0].DisplayName)
		}
	}

	if n := h.store.SampleCount(); n != 1 {
		t.Errorf("Expected 1 persisted sample, got %d", n)
	}
	sessions, _ := h.store.ListSessions(ctx, "emp-a")
	if len(sessions) != 1 || sessions[0].ClosedAt == nil || !sessions[0].ClosedAt.Equal(t0.Add(120*time.Second)) {
		t.Fatalf("Expected session closed at t=120s, got %+v", sessions)
	}
	if h.registry.Len() != 2 {
		t.Errorf("Expected only the observers registered, got %d", h.registry.Len())
	}
}

func TestVerifyRejects(t *testing.T) {
	h := newHarness(t, nil)

	for _, token := range []string{"", "forged", "token-bad"} {
		if _, err := h.coord.Verify(token); !errors.Is(err, ErrAuthRejected) {
			t.Errorf("Verify(%q): expected ErrAuthRejected, got %v", token, err)
		}
	}
	id, err := h.coord.Verify("token-obs")
	if err != nil || id.ID != "admin-1" || !id.IsObserver() {
		t.Errorf("Expected observer identity, got %+v (%v)", id, err)
	}
	if h.registry.Len() != 0 {
		t.Error("Expected verification to have no side effects")
	}
}

func TestReconnectEvictsAndStaleDisconnectIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)

	first := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, first)
	second := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, second)

	if got := first.closeReason(); got != ws.ReasonReplaced {
		t.Errorf("Expected first connection closed as replaced, got %q", got)
	}

	h.coord.Deactivate(first, ws.ReasonTransportClosed)

	if events := presenceEvents(obs, "emp-a"); len(events) != 2 || !events[1].Online {
		t.Errorf("Expected no offline event for the stale close, got %+v", events)
	}
	if n := h.store.OpenSessionCount("emp-a"); n != 1 {
		t.Errorf("Expected the session to stay open, got %d open", n)
	}
	if cur, _ := h.registry.Get("emp-a"); cur.ID() != second.ID() {
		t.Error("Expected the fresher connection to stay registered")
	}

	h.coord.Deactivate(second, ws.ReasonTransportClosed)
	if n := h.store.OpenSessionCount("emp-a"); n != 0 {
		t.Errorf("Expected session closed after the live connection dropped, got %d open", n)
	}
	if h.registry.IsOnline("emp-a") {
		t.Error("Expected emp-a offline")
	}
}

func TestEndSessionThenTransportLossClosesOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)
	a := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, a)

	h.coord.HandleMessage(ctx, a, ws.Inbound{Type: ws.MessageTypeEndSession})
	h.coord.Deactivate(a, ws.ReasonTransportClosed)
	h.coord.Deactivate(a, ws.ReasonTransportClosed)

	if got := a.closeReason(); got != ws.ReasonEndSession {
		t.Errorf("Expected connection closed with end_session, got %q", got)
	}
	h.store.mu.Lock()
	closes := h.store.closes
	h.store.mu.Unlock()
	if closes != 1 {
		t.Errorf("Expected exactly 1 close call, got %d", closes)
	}
	if events := presenceEvents(obs, "emp-a"); len(events) != 2 {
		t.Errorf("Expected exactly one online and one offline event, got %+v", events)
	}

	// Reports after close are ignored.
	h.coord.HandleMessage(ctx, a, report(t, 1, 2, "Y"))
	if h.store.SampleCount() != 0 {
		t.Error("Expected no sample persisted after close")
	}
}

func TestObserverReplay(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	a := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, a)
	h.coord.HandleMessage(ctx, a, report(t, 10, 20, "X"))

	// emp-b has history but is offline.
	_ = h.store.InsertLocationSample(ctx, &models.LocationSample{ID: "old", IdentityID: "emp-b", Address: "Depot", CapturedAt: t0.Add(-time.Hour)})

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)

	online := presenceEvents(obs, "emp-a")
	if len(online) != 1 || !online[0].Online {
		t.Errorf("Expected replayed online event for emp-a, got %+v", online)
	}
	updates := obs.ofType(ws.MessageTypeLocationUpdate)
	if len(updates) != 2 {
		t.Fatalf("Expected 2 replayed locations, got %d", len(updates))
	}
	first, _ := updates[0].Data.(models.LocationUpdate)
	if first.IdentityID != "emp-a" || first.DisplayName != "Ada" || first.Address != "X" {
		t.Errorf("Unexpected replayed location: %+v", first)
	}
	if presenceEvents(obs, "admin-1") != nil {
		t.Error("Expected observers not to be listed as online subjects")
	}
}

func TestRejectedReports(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.ReportRate = 0.001; c.ReportBurst = 3 })
	ctx := context.Background()

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)
	a := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, a)

	h.coord.HandleMessage(ctx, a, report(t, 10, 20, "Address not found"))
	h.coord.HandleMessage(ctx, a, report(t, 95, 20, "X"))
	h.coord.HandleMessage(ctx, a, ws.Inbound{Type: ws.MessageTypeReportLocation, Data: []byte(`{"lat":"north"}`)})
	h.coord.HandleMessage(ctx, a, report(t, 10, 20, "X")) // over the burst

	if h.store.SampleCount() != 0 {
		t.Errorf("Expected nothing persisted, got %d", h.store.SampleCount())
	}
	if n := obs.count(ws.MessageTypeLocationUpdate); n != 0 {
		t.Errorf("Expected nothing broadcast, got %d", n)
	}

	errs := a.ofType(ws.MessageTypeError)
	if len(errs) != 3 {
		t.Fatalf("Expected 3 error replies (failed geocode is silent), got %d", len(errs))
	}
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Data.(models.ErrorPayload).Code)
	}
	want := []string{"VALIDATION_FAILED", "bad_message", "rate_limited"}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("error %d: code %q, want %q", i, codes[i], want[i])
		}
	}

	h.coord.HandleMessage(ctx, obs, report(t, 1, 2, "Z"))
	if n := obs.count(ws.MessageTypeError); n != 1 {
		t.Errorf("Expected observer report to be refused, got %d errors", n)
	}
}

func TestPersistenceFailureStillBroadcasts(t *testing.T) {
	h := newHarness(t, nil)
	h.store.insertErr = errors.New("database is locked")
	ctx := context.Background()

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)
	a := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, a)

	h.coord.HandleMessage(ctx, a, report(t, 10, 20, "X"))

	if n := obs.count(ws.MessageTypeLocationUpdate); n != 1 {
		t.Errorf("Expected broadcast despite failed insert, got %d", n)
	}
	if len(h.spool.samples) != 1 {
		t.Errorf("Expected 1 spooled sample, got %d", len(h.spool.samples))
	}

	// The cached sample still drives dedup.
	h.clock.Set(t0.Add(30 * time.Second))
	h.coord.HandleMessage(ctx, a, report(t, 10, 20, "X"))
	if len(h.spool.samples) != 1 {
		t.Errorf("Expected duplicate suppressed from the cache, got %d spooled", len(h.spool.samples))
	}
}

func TestZeroThresholdsPersistEveryReport(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Policy = location.Policy{} })
	ctx := context.Background()

	a := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, a)
	for i := 0; i < 3; i++ {
		h.coord.HandleMessage(ctx, a, report(t, 10, 20, "X"))
	}
	if n := h.store.SampleCount(); n != 3 {
		t.Errorf("Expected 3 samples with zero thresholds, got %d", n)
	}
}

func TestAutoOpenSessionDisabled(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AutoOpenSession = false })
	ctx := context.Background()

	a := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, a)
	if n := h.store.OpenSessionCount("emp-a"); n != 0 {
		t.Errorf("Expected no session opened on connect, got %d", n)
	}

	// Disconnect with nothing open is not an error.
	h.coord.Deactivate(a, ws.ReasonTransportClosed)
	if h.registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d", h.registry.Len())
	}
}

func TestPingPongAndUnknownType(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)
	h.coord.HandleMessage(ctx, obs, ws.Inbound{Type: ws.MessageTypePing})
	h.coord.HandleMessage(ctx, obs, ws.Inbound{Type: "teleport"})

	if obs.count(ws.MessageTypePong) != 1 || obs.count(ws.MessageTypeError) != 1 {
		t.Errorf("Expected one pong and one error, got %+v", obs.messages)
	}
}

func TestOnlineSubjects(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.coord.Activate(ctx, newFakePeer("admin-1", models.RoleObserver))
	h.coord.Activate(ctx, newFakePeer("emp-a", models.RoleSubject))
	h.coord.Activate(ctx, newFakePeer("emp-z", models.RoleSubject))

	online := h.coord.OnlineSubjects()
	if len(online) != 2 || online[0].DisplayName != "Ada" || online[1].DisplayName != "emp-z" {
		t.Errorf("Unexpected online subjects: %+v", online)
	}
}

// reconnectingBroadcaster starts a reconnect of the same identity while the
// offline announcement of the old connection is in flight.
type reconnectingBroadcaster struct {
	Broadcaster
	once      sync.Once
	reconnect func()
	done      chan struct{}
}

func (b *reconnectingBroadcaster) AnnouncePresence(identityID, displayName string, online bool) int {
	if !online {
		b.once.Do(func() {
			go func() {
				defer close(b.done)
				b.reconnect()
			}()
			// Give the reconnect a chance to run concurrently with the cleanup.
			time.Sleep(20 * time.Millisecond)
		})
	}
	return b.Broadcaster.AnnouncePresence(identityID, displayName, online)
}

func TestReconnectDuringDisconnectCleanup(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)

	first := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, first)

	second := newFakePeer("emp-a", models.RoleSubject)
	b := &reconnectingBroadcaster{
		Broadcaster: h.coord.deps.Broadcaster,
		reconnect:   func() { h.coord.Activate(ctx, second) },
		done:        make(chan struct{}),
	}
	h.coord.deps.Broadcaster = b

	h.clock.Set(t0.Add(time.Minute))
	h.coord.Deactivate(first, ws.ReasonTransportClosed)

	select {
	case <-b.done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect did not complete")
	}

	if cur, ok := h.registry.Get("emp-a"); !ok || cur.ID() != second.ID() {
		t.Fatal("Expected the reconnected connection to be registered")
	}
	events := presenceEvents(obs, "emp-a")
	if len(events) != 3 || !events[0].Online || events[1].Online || !events[2].Online {
		t.Errorf("Expected online, offline, online, got %+v", events)
	}
	if n := h.store.OpenSessionCount("emp-a"); n != 1 {
		t.Errorf("Expected one open session for the live connection, got %d", n)
	}
}
