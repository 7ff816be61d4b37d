// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024 // 16 KB, inbound messages are small

	// DefaultSendBuffer is the per-connection outbound queue length.
	DefaultSendBuffer = 256
)

// Close reasons passed to Handler.Deactivate and sent in the close frame.
const (
	ReasonTransportClosed = "transport_closed"
	ReasonEndSession      = "end_session"
	ReasonReplaced        = "replaced_by_newer_connection"
	ReasonShutdown        = "server_shutdown"
)

// clientIDCounter generates unique, monotonically increasing IDs for clients.
// Registry snapshots and broadcasts are ordered by this ID.
var clientIDCounter atomic.Uint64

// NextClientID returns a fresh connection ID.
func NextClientID() uint64 {
	return clientIDCounter.Add(1)
}

// Peer is a live connection as seen by the registry and the broadcaster.
type Peer interface {
	// ID is unique per process and increases with connection age.
	ID() uint64
	Identity() models.Identity
	// Send queues msg without blocking. It returns false when the queue is
	// full or the connection is closed.
	Send(msg Message) bool
	// SendContext queues msg, waiting for room until ctx is done. It is
	// used for the snapshot of a new connection, never for broadcasts.
	SendContext(ctx context.Context, msg Message) bool
	// Close ends the connection. It is idempotent.
	Close(reason string)
}

// Handler receives the events of one connection.
//
// HandleMessage is called from the connection's readPump, so messages of
// one connection are handled in receipt order. Deactivate is called once
// when the readPump exits; implementations must tolerate additional calls.
type Handler interface {
	HandleMessage(ctx context.Context, peer Peer, msg Inbound)
	Deactivate(peer Peer, reason string)
}

// Client is a middleman between the websocket connection and the handler.
type Client struct {
	id       uint64
	identity models.Identity
	conn     *websocket.Conn
	send     chan Message
	handler  Handler
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}
	reason    atomic.Value // string
}

// NewClient creates a Client for a verified identity. bufferSize <= 0
// selects DefaultSendBuffer.
func NewClient(conn *websocket.Conn, identity models.Identity, handler Handler, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = DefaultSendBuffer
	}
	id := NextClientID()
	ctx, cancel := context.WithCancel(context.Background())
	log := logging.ForConnection(id, identity.ID, string(identity.Role))
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		send:     make(chan Message, bufferSize),
		handler:  handler,
		log:      log,
		ctx:      logging.ContextWithLogger(ctx, log),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 { return c.id }

// Identity returns the verified identity bound to this connection.
func (c *Client) Identity() models.Identity { return c.identity }

// Context is canceled when the connection closes.
func (c *Client) Context() context.Context { return c.ctx }

// Send queues msg for the writePump without blocking.
func (c *Client) Send(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SendContext queues msg, waiting while the queue is full. It returns false
// when ctx is done or the connection closes first.
func (c *Client) SendContext(ctx context.Context, msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close stops both pumps. The writePump flushes queued messages and sends a
// close frame carrying reason.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.reason.Store(reason)
		close(c.done)
		c.cancel()
	})
}

func (c *Client) closeReason() string {
	if r, ok := c.reason.Load().(string); ok {
		return r
	}
	return ReasonTransportClosed
}

// readPump pumps messages from the websocket connection to the handler.
// The writePump owns closing the underlying connection so the close frame
// is written before the socket goes away.
func (c *Client) readPump() {
	defer func() {
		c.Close(ReasonTransportClosed)
		c.handler.Deactivate(c, c.closeReason())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug().Err(err).Msg("malformed message")
			c.Send(ErrorMessage("bad_message", "message is not a valid JSON envelope"))
			continue
		}
		c.handler.HandleMessage(c.ctx, c, msg)

		select {
		case <-c.done:
			return
		default:
		}
	}
}

// writePump pumps queued messages to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.log.Debug().Err(err).Msg("failed to write message")
				c.Close(ReasonTransportClosed)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.Close(ReasonTransportClosed)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(ReasonTransportClosed)
				return
			}

		case <-c.done:
			c.flush()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.closeReason())
			if err := c.conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
				c.log.Debug().Err(err).Msg("failed to write close message")
			}
			return
		}
	}
}

// flush writes whatever is still queued after Close.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(message Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	data, err := json.Marshal(message)
	if err != nil {
		c.log.Error().Err(err).Str("type", message.Type).Msg("failed to encode message")
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// StartWriting starts draining the send queue. The upgrade handler calls
// it before activation so a large snapshot is written while it is queued.
func (c *Client) StartWriting() {
	go c.writePump()
}

// StartReading starts handing inbound messages to the handler.
func (c *Client) StartReading() {
	go c.readPump()
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	c.StartWriting()
	c.StartReading()
}
