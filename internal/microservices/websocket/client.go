package websocket

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"imis/internal/microservices/identity"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const ( // ping pong(2-way heartbeat) to keep connection alive
	WriteWait  = 10 * time.Second    // max time write a message to the peer
	PongWait   = 60 * time.Second    // no pong within this window = dead connection
	PingPeriod = (PongWait * 9) / 10 // must be shorter than PongWait to leave room for jitter

	DefaultMaxMessageSize = 64 * 1024 // maximum inbound frame size
	sendBufferSize        = 256       // queued outbound frames before a client counts as stuck
)

// Conn is the part of *websocket.Conn a client drives
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ConnState is the lifecycle position of a connection
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateActive
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	default:
		return "disconnected"
	}
}

// Client is one live connection bound to one principal
type Client struct {
	id          string
	profile     identity.Profile
	conn        Conn
	send        chan []byte // outbound frames, drained by WritePump
	done        chan struct{}
	limiter     *rate.Limiter
	state       atomic.Int32
	connectedAt time.Time

	closeOnce      sync.Once
	disconnectOnce sync.Once
	logger         *slog.Logger
}

// NewClient builds an authenticated client; limiter may be nil for no throttling
func NewClient(profile identity.Profile, conn Conn, limiter *rate.Limiter, logger *slog.Logger) *Client {
	id := uuid.NewString()
	c := &Client{
		id:          id,
		profile:     profile,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		limiter:     limiter,
		connectedAt: time.Now(),
		logger:      logger.With("conn_id", id, "principal_id", profile.ID),
	}
	c.setState(StateAuthenticated)
	return c
}

func (c *Client) ID() string { return c.id }

func (c *Client) PrincipalID() string { return c.profile.ID }

func (c *Client) Profile() identity.Profile { return c.profile }

func (c *Client) State() ConnState { return ConnState(c.state.Load()) }

func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Active() bool { return c.State() == StateActive }

func (c *Client) setState(s ConnState) { c.state.Store(int32(s)) }

func (c *Client) ConnectedFor() time.Duration { return time.Since(c.connectedAt) }

// Send queues a frame without blocking. A full buffer means the peer stopped
// reading, so the connection is closed rather than stalling the broadcaster.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("client_send_buffer_full")
		c.Close()
		return false
	}
}

// Emit encodes and queues one event
func (c *Client) Emit(event string, payload any) bool {
	frame, err := Encode(event, payload)
	if err != nil {
		c.logger.Error("client_encode_failed", "event", event, "error", err)
		return false
	}
	return c.Send(frame)
}

// EmitError reports a refused action back to this connection
func (c *Client) EmitError(event, message string) {
	c.Emit(EventError, ErrorPayload{Event: event, Message: message})
}

// Allow consumes one token from the inbound rate limiter
func (c *Client) Allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// Close terminates the transport; safe to call more than once
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// ReadPump reads frames until the transport fails or the client is closed,
// handing each one to onFrame in arrival order
func (c *Client) ReadPump(maxMessageSize int64, onFrame func(frame []byte)) {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("client_read_failed", "error", err)
			}
			return
		}
		onFrame(frame)
	}
}

// WritePump drains the send buffer and keeps the heartbeat going
func (c *Client) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("client_write_failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("client_ping_failed", "error", err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
