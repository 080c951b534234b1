package ws

import (
	"fmt"
	"net/http"
	"time"

	"github.com/devmock/devmock/internal/pattern"
)

// Message is one complete client message after reassembly, decompression
// and derivation.
type Message struct {
	// Data is the derived value: decoded JSON for text frames, the UTF-8
	// string when the payload is not JSON, raw bytes for binary frames, or
	// whatever TransformRawData produced.
	Data any
	// Raw is the reassembled payload before derivation.
	Raw []byte
	// Opcode is the opcode of the frame that started the message.
	Opcode byte
}

// IsBinary reports whether the message arrived in a binary frame.
func (m *Message) IsBinary() bool {
	return m.Opcode == OpBinary
}

// Rule pairs a message predicate with a canned response. Rules are
// evaluated in declaration order; the first match wins.
type Rule struct {
	// Match decides whether this rule answers the message. A nil Match
	// matches everything.
	Match func(c *Conn, msg *Message) bool
	// Response is the static reply. ResponseFunc wins when both are set.
	Response any
	// ResponseFunc builds the reply from the connection and message.
	ResponseFunc func(c *Conn, msg *Message) any
	// Broadcast fans the reply out to every connection on the handler's
	// manager instead of answering only the sender.
	Broadcast bool
}

func (r *Rule) reply(c *Conn, msg *Message) any {
	if r.ResponseFunc != nil {
		return r.ResponseFunc(c, msg)
	}
	return r.Response
}

// Handler describes one WebSocket route.
type Handler struct {
	// Pattern matches the prefix-stripped upgrade path.
	Pattern string

	// Subprotocols the handler accepts, in no particular order; the
	// client's preference order decides.
	Subprotocols []string

	// Deflate is the permessage-deflate policy. Nil disables negotiation.
	Deflate *DeflatePolicy

	// Authenticate runs before the 101 response. Returning false rejects
	// the upgrade with a 401; an error rejects it with a 500.
	Authenticate func(r *http.Request) (bool, error)

	// Delay postpones message handling after derivation.
	Delay time.Duration

	// HeartbeatInterval sends pings on a fixed cadence; after three
	// intervals without a pong the connection closes. Zero disables the
	// heartbeat.
	HeartbeatInterval time.Duration

	// InactivityTimeout closes connections that receive no frames at all
	// for the duration. Zero disables the timer.
	InactivityTimeout time.Duration

	// TransformRawData replaces the default derivation of Message.Data.
	TransformRawData func(c *Conn, raw []byte) (any, error)

	// Rules answer matching messages. Messages no rule claims go to
	// OnMessage.
	Rules []Rule

	OnConnect func(c *Conn)
	OnMessage func(c *Conn, msg *Message)
	OnPing    func(c *Conn, payload []byte)
	OnPong    func(c *Conn, payload []byte)
	OnError   func(c *Conn, err error)
	OnClose   func(c *Conn, code int, reason string)

	compiled *pattern.Pattern
}

// Compile validates the handler and compiles its path pattern.
func (h *Handler) Compile() error {
	if h.Pattern == "" {
		return fmt.Errorf("websocket handler pattern is required")
	}
	p, err := pattern.Compile(h.Pattern)
	if err != nil {
		return fmt.Errorf("websocket handler: %w", err)
	}
	h.compiled = p
	return nil
}

// Match tests a prefix-stripped path against the compiled pattern.
func (h *Handler) Match(path string) (map[string]string, bool) {
	if h.compiled == nil {
		return nil, false
	}
	return h.compiled.Match(path)
}
