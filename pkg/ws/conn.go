package ws

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/pkg/bufpool"
	"github.com/devmock/devmock/pkg/metrics"
)

const (
	// writeQueueSize bounds the outbound queue; senders block (in order)
	// once the peer stops draining.
	writeQueueSize = 64

	// closeHandshakeTimeout is how long a server-initiated close waits for
	// the peer's echo before tearing the socket down.
	closeHandshakeTimeout = 2 * time.Second

	// clientCloseGrace is the window left for in-flight writes after
	// answering a client-initiated close.
	clientCloseGrace = 500 * time.Millisecond

	// maxMissedPongs closes the connection on the third unanswered ping.
	maxMissedPongs = 3
)

// ErrConnClosed reports a write attempted after the connection closed.
var ErrConnClosed = errors.New("websocket connection closed")

// ErrControlTooLarge reports a ping or pong payload over the RFC 6455
// control frame limit. Control payloads are caller-supplied, so this is a
// programming error, not a peer violation.
var ErrControlTooLarge = errors.New("control frame payload exceeds 125 bytes")

type connState int

const (
	stateOpen connState = iota
	stateClosing
	stateClosed
)

// Conn is one live WebSocket connection.
type Conn struct {
	id          string
	path        string
	netConn     net.Conn
	handler     *Handler
	deflate     *Deflate
	subprotocol string
	params      map[string]string
	req         *http.Request
	metrics     metrics.WSMetrics

	writeCh chan []byte
	done    chan struct{}

	mu          sync.Mutex
	state       connState
	rooms       map[string]struct{}
	meta        map[string]any
	closeCode   int
	closeReason string
	writeErr    error
	watchdog    *time.Timer
	inactivity  *time.Timer

	missedPongs int32
	closeOnce   sync.Once
}

func newConn(netConn net.Conn, h *Handler, deflate *Deflate, subprotocol string, params map[string]string, req *http.Request) *Conn {
	path := ""
	if req != nil && req.URL != nil {
		path = req.URL.Path
	}
	return &Conn{
		id:          uuid.NewString(),
		path:        path,
		netConn:     netConn,
		handler:     h,
		deflate:     deflate,
		subprotocol: subprotocol,
		params:      params,
		req:         req,
		rooms:       make(map[string]struct{}),
		writeCh:     make(chan []byte, writeQueueSize),
		done:        make(chan struct{}),
	}
}

// start launches the write pump and the lifecycle timers.
func (c *Conn) start() {
	go c.writePump()
	c.startHeartbeat(c.handler.HeartbeatInterval)
	c.startInactivity(c.handler.InactivityTimeout)
}

// ID returns the connection's UUID.
func (c *Conn) ID() string { return c.id }

// Path returns the URL path the connection was upgraded on.
func (c *Conn) Path() string { return c.path }

// Subprotocol returns the negotiated subprotocol, or "".
func (c *Conn) Subprotocol() string { return c.subprotocol }

// Params returns the path parameters captured by the handler pattern.
func (c *Conn) Params() map[string]string { return c.params }

// Request returns the upgrade request.
func (c *Conn) Request() *http.Request { return c.req }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.netConn.RemoteAddr() }

// JoinRoom adds the connection to a room for targeted broadcasts.
func (c *Conn) JoinRoom(room string) {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
}

// LeaveRoom removes the connection from a room.
func (c *Conn) LeaveRoom(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

// InRoom reports whether the connection belongs to room.
func (c *Conn) InRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[room]
	return ok
}

// Rooms returns the rooms the connection belongs to.
func (c *Conn) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

// SetMeta stores a per-connection metadata value.
func (c *Conn) SetMeta(key string, value any) {
	c.mu.Lock()
	if c.meta == nil {
		c.meta = make(map[string]any)
	}
	c.meta[key] = value
	c.mu.Unlock()
}

// Meta looks a metadata value up by key.
func (c *Conn) Meta(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.meta[key]
	return v, ok
}

// IsOpen reports whether the connection accepts traffic.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// Closing reports whether a close handshake is in flight.
func (c *Conn) Closing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateClosing
}

// Done is closed when the connection is fully torn down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Send serialises v and writes a single text frame: objects and arrays as
// JSON, strings as their UTF-8 bytes, []byte verbatim. The payload is
// compressed with RSV1 set when permessage-deflate was negotiated.
func (c *Conn) Send(v any) error {
	payload, err := encodePayload(v)
	if err != nil {
		return err
	}
	size := len(payload)

	rsv1 := false
	if c.deflate != nil {
		compressed, err := c.deflate.Compress(payload)
		if err != nil {
			return err
		}
		payload = compressed
		rsv1 = true
	}

	frame := &Frame{Fin: true, RSV1: rsv1, Opcode: OpText, Payload: payload}
	if err := c.enqueue(frame.Marshal()); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordMessage(c.handler.Pattern, "sent", size)
	}
	return nil
}

// Ping sends a ping control frame.
func (c *Conn) Ping(payload []byte) error {
	if len(payload) > maxControlPayload {
		return ErrControlTooLarge
	}
	return c.enqueue((&Frame{Fin: true, Opcode: OpPing, Payload: payload}).Marshal())
}

// Pong sends a pong control frame.
func (c *Conn) Pong(payload []byte) error {
	if len(payload) > maxControlPayload {
		return ErrControlTooLarge
	}
	return c.enqueue((&Frame{Fin: true, Opcode: OpPong, Payload: payload}).Marshal())
}

// Close starts the closing handshake: the close frame is queued, and a
// watchdog destroys the connection if the peer never answers. When the
// close answers a client's own close frame, only a short grace period is
// left for the write queue to drain.
func (c *Conn) Close(code int, reason string, initiatedByClient bool) {
	c.mu.Lock()
	if c.state != stateOpen {
		c.mu.Unlock()
		return
	}
	c.state = stateClosing
	if c.closeCode == 0 {
		c.closeCode = code
		c.closeReason = reason
	}
	c.mu.Unlock()

	frame := &Frame{Fin: true, Opcode: OpClose, Payload: ClosePayload(code, reason)}
	if err := c.enqueue(frame.Marshal()); err != nil {
		c.ForceClose()
		return
	}

	grace := closeHandshakeTimeout
	if initiatedByClient {
		grace = clientCloseGrace
	}
	c.mu.Lock()
	c.watchdog = time.AfterFunc(grace, c.ForceClose)
	c.mu.Unlock()
}

// ForceClose tears the connection down without a close frame.
func (c *Conn) ForceClose() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = stateClosed
		if c.watchdog != nil {
			c.watchdog.Stop()
		}
		if c.inactivity != nil {
			c.inactivity.Stop()
		}
		c.mu.Unlock()

		close(c.done)
		_ = c.netConn.Close()
		if c.deflate != nil {
			c.deflate.Destroy()
		}
		logger.Debug("websocket connection destroyed", logger.KeyConnID, c.id)
	})
}

// recordPeerClose stores the close code received from the client so the
// close hook reports what actually happened on the wire.
func (c *Conn) recordPeerClose(code int, reason string) {
	c.mu.Lock()
	if c.closeCode == 0 {
		c.closeCode = code
		c.closeReason = reason
	}
	c.mu.Unlock()
}

// closeInfo returns the recorded close code and reason, zero when the
// socket dropped without a close exchange.
func (c *Conn) closeInfo() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason
}

// ResetMissedPongs clears the heartbeat counter; called on any pong (and
// ping) from the peer.
func (c *Conn) ResetMissedPongs() {
	atomic.StoreInt32(&c.missedPongs, 0)
}

// Touch restarts the inactivity timer; called on every received frame.
func (c *Conn) Touch() {
	c.mu.Lock()
	if c.inactivity != nil && c.state == stateOpen {
		c.inactivity.Reset(c.handler.InactivityTimeout)
	}
	c.mu.Unlock()
}

func (c *Conn) enqueue(b []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.writeCh <- b:
		return nil
	case <-c.done:
		return ErrConnClosed
	}
}

// writePump is the single writer: frames leave in queue order. Marshalled
// frame buffers go back to the pool once written.
func (c *Conn) writePump() {
	for {
		select {
		case b := <-c.writeCh:
			_, err := c.netConn.Write(b)
			bufpool.Put(b)
			if err != nil {
				c.mu.Lock()
				c.writeErr = err
				c.mu.Unlock()
				c.fail(err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// fail reports a socket-level error and destroys the connection.
func (c *Conn) fail(err error) {
	logger.Warn("websocket write failed",
		logger.KeyConnID, c.id,
		logger.KeyError, err.Error())
	if c.handler.OnError != nil {
		c.handler.OnError(c, err)
	}
	c.ForceClose()
}

func (c *Conn) startHeartbeat(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if atomic.AddInt32(&c.missedPongs, 1) >= maxMissedPongs {
					c.Close(CloseNormal, "No pong received", false)
					return
				}
				if err := c.Ping(nil); err != nil {
					return
				}
			case <-c.done:
				return
			}
		}
	}()
}

func (c *Conn) startInactivity(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	c.mu.Lock()
	c.inactivity = time.AfterFunc(timeout, func() {
		c.Close(CloseNormal, "Inactivity timeout", false)
	})
	c.mu.Unlock()
}

func encodePayload(v any) ([]byte, error) {
	switch data := v.(type) {
	case []byte:
		return data, nil
	case string:
		return []byte(data), nil
	default:
		return json.Marshal(data)
	}
}
