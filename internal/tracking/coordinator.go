// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package tracking coordinates the lifecycle of live connections.
//
// Each connection moves Connecting -> Active -> Closed:
//
//   - Verify turns the handshake credential into an identity. A rejected
//     credential never reaches Activate, so it has no side effects.
//   - Activate registers the connection in the presence registry. Observers
//     are sent the online subjects and the latest sample per identity;
//     subjects are announced online and (optionally) logged in.
//   - HandleMessage runs location reports through validation, the failed
//     geocode filter and the dedup policy, persists accepted samples and
//     fans them out to observers.
//   - Deactivate runs exactly once per connection, for end-session and
//     transport loss alike. If a fresher connection already owns the
//     identity nothing else happens; otherwise a subject is announced
//     offline and its attendance session is reconciled.
//
// Activate and Deactivate hold a per-identity lock, so a reconnect never
// interleaves with the cleanup of the connection it replaces.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/waypoint/internal/attendance"
	"github.com/tomtom215/waypoint/internal/location"
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/metrics"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/presence"
	"github.com/tomtom215/waypoint/internal/storage"
	"github.com/tomtom215/waypoint/internal/validation"
	ws "github.com/tomtom215/waypoint/internal/websocket"
)

// ErrAuthRejected is returned by Verify for a missing or invalid credential.
var ErrAuthRejected = errors.New("credential rejected")

// Broadcaster fans events out to observers.
type Broadcaster interface {
	AnnouncePresence(identityID, displayName string, online bool) int
	AnnounceLocation(displayName string, sample *models.LocationSample) int
	AnnounceAttendance(displayName string, session *models.AttendanceSession) int
}

// SampleSpooler durably records a sample that could not be persisted.
type SampleSpooler interface {
	SpoolSample(ctx context.Context, sample *models.LocationSample) error
}

// Config tunes the coordinator.
type Config struct {
	Policy                 location.Policy
	FailedGeocodeAddresses []string
	// AutoOpenSession logs a subject in when it connects.
	AutoOpenSession bool
	// ReportRate and ReportBurst bound inbound reports per connection.
	// A zero rate disables the limit.
	ReportRate  float64
	ReportBurst int
	// ReconcileTimeout bounds the disconnect-triggered session close.
	ReconcileTimeout time.Duration
	// Clock supplies the receipt time of reports and disconnects.
	Clock func() time.Time
}

// Deps are the collaborators of the coordinator. Names and Spool are optional.
type Deps struct {
	Verifier    storage.Verifier
	Names       storage.NameLookup
	Store       storage.Store
	Sessions    *attendance.Machine
	Registry    *presence.Registry[ws.Peer]
	Broadcaster Broadcaster
	Spool       SampleSpooler
}

type connState int

const (
	stateConnecting connState = iota
	stateActive
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateActive:
		return "active"
	default:
		return "closed"
	}
}

// connEntry is the coordinator's view of one connection.
type connEntry struct {
	state       connState
	displayName string
	limiter     *rate.Limiter
	log         zerolog.Logger
}

// Coordinator owns every live connection from activation to cleanup.
type Coordinator struct {
	cfg     Config
	deps    Deps
	geocode *location.GeocodeFilter
	last    *location.LastSamples

	mu    sync.Mutex
	conns map[uint64]*connEntry

	// identities serialises Activate and Deactivate per identity so that
	// presence announcements follow registry order.
	identities sync.Map // identityID -> *sync.Mutex
}

// New creates a Coordinator.
func New(cfg Config, deps Deps) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.ReconcileTimeout <= 0 {
		cfg.ReconcileTimeout = 10 * time.Second
	}
	return &Coordinator{
		cfg:     cfg,
		deps:    deps,
		geocode: location.NewGeocodeFilter(cfg.FailedGeocodeAddresses),
		last:    location.NewLastSamples(deps.Store),
		conns:   make(map[uint64]*connEntry),
	}
}

// Verify checks a handshake credential.
func (c *Coordinator) Verify(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: missing credential", ErrAuthRejected)
	}
	identity, err := c.deps.Verifier.VerifyCredential(token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrAuthRejected, err)
	}
	if identity.ID == "" || !identity.Role.Valid() {
		return models.Identity{}, fmt.Errorf("%w: incomplete identity", ErrAuthRejected)
	}
	return identity, nil
}

// Activate moves a verified connection to Active. It must be called before
// the connection starts reading messages.
func (c *Coordinator) Activate(ctx context.Context, peer ws.Peer) {
	identity := peer.Identity()
	log := logging.ForConnection(peer.ID(), identity.ID, string(identity.Role))
	ctx = logging.ContextWithLogger(ctx, log)

	entry := &connEntry{
		state:       stateConnecting,
		displayName: c.displayName(ctx, identity),
		limiter:     c.newLimiter(),
		log:         log,
	}
	c.mu.Lock()
	c.conns[peer.ID()] = entry
	c.mu.Unlock()

	unlock := c.lockIdentity(identity.ID)
	defer unlock()

	evicted, replaced := c.deps.Registry.Register(identity.ID, peer)
	if replaced {
		metrics.ConnectionsEvicted.Inc()
		log.Info().Uint64("evicted_connection_id", evicted.ID()).Msg("replacing older connection")
		evicted.Close(ws.ReasonReplaced)
	}

	c.mu.Lock()
	if entry.state == stateConnecting {
		entry.state = stateActive
	}
	c.mu.Unlock()
	log.Info().Int("online", c.deps.Registry.Len()).Msg("connection active")

	switch identity.Role {
	case models.RoleObserver:
		c.replay(ctx, peer)
	case models.RoleSubject:
		c.deps.Broadcaster.AnnouncePresence(identity.ID, entry.displayName, true)
		if c.cfg.AutoOpenSession {
			c.login(ctx, identity.ID, entry.displayName)
		}
	}
}

func (c *Coordinator) login(ctx context.Context, identityID, displayName string) {
	session, err := c.deps.Sessions.Login(ctx, identityID, c.cfg.Clock())
	switch {
	case err == nil:
		c.deps.Broadcaster.AnnounceAttendance(displayName, session)
	case errors.Is(err, attendance.ErrAlreadyOpen):
		// continuing the open session
	default:
		logging.Ctx(ctx).Error().Err(err).Msg("failed to open attendance session on connect")
	}
}

// replayTimeout bounds how long a new observer may take to accept its
// snapshot.
const replayTimeout = 30 * time.Second

// replay sends the presence snapshot and the latest sample per identity to
// a newly connected observer. Unlike broadcasts, the snapshot waits for room
// in the observer's queue, so it is complete however many identities exist.
func (c *Coordinator) replay(ctx context.Context, peer ws.Peer) {
	log := logging.Ctx(ctx)
	sendCtx, cancel := context.WithTimeout(ctx, replayTimeout)
	defer cancel()

	queued, dropped := 0, 0
	send := func(msg ws.Message) {
		if peer.SendContext(sendCtx, msg) {
			queued++
		} else {
			dropped++
		}
	}

	for _, s := range c.OnlineSubjects() {
		send(ws.Message{
			Type: ws.MessageTypePresenceChanged,
			Data: models.PresenceChanged{IdentityID: s.IdentityID, DisplayName: s.DisplayName, Online: true},
		})
	}

	updates, err := c.LatestLocations(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("replaying cached locations only")
	}
	for _, u := range updates {
		send(ws.Message{Type: ws.MessageTypeLocationUpdate, Data: u})
	}

	ev := log.Debug()
	if dropped > 0 {
		ev = log.Warn()
	}
	ev.Int("queued", queued).Int("dropped", dropped).Msg("observer snapshot sent")
}

// HandleMessage processes one inbound message of an Active connection.
// Messages from connections in any other state are ignored.
func (c *Coordinator) HandleMessage(ctx context.Context, peer ws.Peer, msg ws.Inbound) {
	entry, state := c.lookup(peer.ID())
	if entry == nil || state != stateActive {
		logging.Ctx(ctx).Debug().Str("type", msg.Type).Str("state", state.String()).Msg("ignoring message outside active state")
		return
	}

	switch msg.Type {
	case ws.MessageTypeReportLocation:
		if !peer.Identity().IsSubject() {
			peer.Send(ws.ErrorMessage("forbidden", "only subjects report locations"))
			return
		}
		c.handleReport(ctx, peer, entry, msg.Data)
	case ws.MessageTypeEndSession:
		c.Deactivate(peer, ws.ReasonEndSession)
		peer.Close(ws.ReasonEndSession)
	case ws.MessageTypePing:
		peer.Send(ws.Message{Type: ws.MessageTypePong})
	default:
		peer.Send(ws.ErrorMessage("unknown_type", fmt.Sprintf("unsupported message type %q", msg.Type)))
	}
}

func (c *Coordinator) handleReport(ctx context.Context, peer ws.Peer, entry *connEntry, data json.RawMessage) {
	log := logging.Ctx(ctx)
	identityID := peer.Identity().ID

	if !entry.limiter.Allow() {
		metrics.RecordLocationReport("rate_limited")
		peer.Send(ws.ErrorMessage("rate_limited", "location reports are arriving too fast"))
		return
	}

	var report models.LocationReport
	if err := json.Unmarshal(data, &report); err != nil {
		metrics.RecordLocationReport("invalid")
		peer.Send(ws.ErrorMessage("bad_message", "report-location data is malformed"))
		return
	}
	if verr := validation.ValidateStruct(&report); verr != nil {
		metrics.RecordLocationReport("invalid")
		peer.Send(ws.ErrorMessage(validation.CodeValidationFailed, verr.Error()))
		return
	}
	if c.geocode.IsFailedGeocode(report.Address) {
		metrics.RecordLocationReport("failed_geocode")
		log.Debug().Msg("dropping report with failed geocode")
		return
	}

	capturedAt := c.cfg.Clock().UTC()
	previous, err := c.last.Get(ctx, identityID)
	if err != nil {
		log.Warn().Err(err).Msg("previous sample unavailable, judging report as first sample")
	}

	decision := c.cfg.Policy.Accept(report, capturedAt, previous)
	metrics.RecordLocationReport(decision.Reason)
	if !decision.Persist {
		log.Debug().Str("reason", decision.Reason).Msg("report suppressed")
		return
	}

	sample := &models.LocationSample{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Latitude:   report.Latitude,
		Longitude:  report.Longitude,
		Address:    report.Address,
		CapturedAt: capturedAt,
	}
	if err := c.deps.Store.InsertLocationSample(ctx, sample); err != nil {
		c.spoolSample(ctx, sample, err)
	}
	c.last.Put(sample)
	c.deps.Broadcaster.AnnounceLocation(entry.displayName, sample)
}

func (c *Coordinator) spoolSample(ctx context.Context, sample *models.LocationSample, cause error) {
	log := logging.Ctx(ctx)
	if c.deps.Spool == nil {
		log.Error().Err(cause).Str("sample_id", sample.ID).Msg("location sample not persisted")
		return
	}
	if err := c.deps.Spool.SpoolSample(context.WithoutCancel(ctx), sample); err != nil {
		log.Error().Err(cause).AnErr("spool_error", err).Str("sample_id", sample.ID).Msg("location sample not persisted and could not be spooled")
		return
	}
	log.Warn().Err(cause).Str("sample_id", sample.ID).Msg("location sample spooled for retry")
}

// Deactivate moves a connection to Closed and runs the disconnect cleanup.
// Only the first call for a connection has any effect.
func (c *Coordinator) Deactivate(peer ws.Peer, reason string) {
	c.mu.Lock()
	entry, ok := c.conns[peer.ID()]
	if !ok || entry.state == stateClosed {
		c.mu.Unlock()
		return
	}
	entry.state = stateClosed
	delete(c.conns, peer.ID())
	c.mu.Unlock()

	identity := peer.Identity()
	log := entry.log.With().Str("reason", reason).Logger()

	unlock := c.lockIdentity(identity.ID)
	defer unlock()

	if !c.deps.Registry.Unregister(identity.ID, peer) {
		metrics.StaleUnregisters.Inc()
		log.Info().Msg("connection closed, identity owned by a newer connection")
		return
	}
	log.Info().Int("online", c.deps.Registry.Len()).Msg("connection closed")

	if !identity.IsSubject() {
		return
	}
	c.deps.Broadcaster.AnnouncePresence(identity.ID, entry.displayName, false)

	at := c.cfg.Clock()
	ctx, cancel := context.WithTimeout(logging.ContextWithLogger(context.Background(), log), c.cfg.ReconcileTimeout)
	defer cancel()
	if session := c.deps.Sessions.ReconcileOnDisconnect(ctx, identity.ID, at); session != nil {
		c.deps.Broadcaster.AnnounceAttendance(entry.displayName, session)
	}
}

// lockIdentity takes the per-identity lock and returns its release.
func (c *Coordinator) lockIdentity(identityID string) func() {
	v, _ := c.identities.LoadOrStore(identityID, &sync.Mutex{})
	mu := v.(*sync.Mutex) //nolint:forcetypeassert // only *sync.Mutex is stored
	mu.Lock()
	return mu.Unlock
}

func (c *Coordinator) lookup(connID uint64) (*connEntry, connState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.conns[connID]
	if !ok {
		return nil, stateClosed
	}
	return entry, entry.state
}

func (c *Coordinator) newLimiter() *rate.Limiter {
	if c.cfg.ReportRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := c.cfg.ReportBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.cfg.ReportRate), burst)
}

// displayName resolves the name shown to observers: the employee directory
// first, then the credential's name claim, then the identity ID.
func (c *Coordinator) displayName(ctx context.Context, identity models.Identity) string {
	if c.deps.Names != nil {
		name, err := c.deps.Names.LookupDisplayName(ctx, identity.ID)
		switch {
		case err == nil && name != "":
			return name
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			logging.Ctx(ctx).Warn().Err(err).Msg("display name lookup failed")
		}
	}
	if identity.Name != "" {
		return identity.Name
	}
	return identity.ID
}
