package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/devmock/devmock/internal/logger"
)

// session runs one connection's read loop: frames are parsed from the
// socket, control frames handled first, the rest validated and assembled
// into messages for the handler's rules and hooks.
type session struct {
	conn    *Conn
	handler *Handler
	manager *Manager
	parser  *FrameParser

	// fragmented message assembly
	assembling bool
	fragOpcode byte
	fragRSV1   bool
	fragBuf    []byte

	hadError bool
	dead     bool
}

func newSession(c *Conn, m *Manager) *session {
	return &session{conn: c, handler: c.handler, manager: m, parser: &FrameParser{}}
}

// serve consumes the socket until it closes. initial carries bytes the
// client sent before the upgrade response was written.
func (s *session) serve(initial []byte) {
	defer s.cleanup()

	if len(initial) > 0 {
		s.process(initial)
	}

	buf := make([]byte, 4096)
	for {
		n, err := s.conn.netConn.Read(buf)
		if n > 0 && !s.dead {
			s.process(buf[:n])
		}
		if err != nil {
			s.readClosed(err)
			return
		}
	}
}

// readClosed classifies the read loop's exit. A clean EOF or our own
// teardown is a normal close; anything else is a socket error.
func (s *session) readClosed(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return
	}
	s.hadError = true
	logger.Warn("websocket read failed",
		logger.KeyConnID, s.conn.ID(),
		logger.KeyError, err.Error())
	if s.handler.OnError != nil {
		s.handler.OnError(s.conn, err)
	}
	s.conn.ForceClose()
}

// cleanup finishes the session: the connection leaves the registry, the
// socket is torn down and the close hook reports what happened. A socket
// that dropped without a close exchange reports 1006; a clean drop
// reports 1000.
func (s *session) cleanup() {
	code, reason := s.conn.closeInfo()
	if code == 0 {
		if s.hadError {
			code, reason = CloseAbnormal, "Connection closed abnormally"
		} else {
			code = CloseNormal
		}
	}

	s.manager.Remove(s.conn.ID())
	s.conn.ForceClose()
	if s.handler.OnClose != nil {
		s.handler.OnClose(s.conn, code, reason)
	}
	logger.Debug("websocket session ended",
		logger.KeyConnID, s.conn.ID(),
		logger.KeyCloseCode, code,
		logger.KeyReason, reason)
}

func (s *session) process(data []byte) {
	frames, err := s.parser.Feed(data)
	for _, f := range frames {
		s.dispatch(f)
	}
	if err != nil {
		// the stream is unrecoverable past a bad frame header
		s.dead = true
		if errors.Is(err, ErrFrameTooLarge) {
			s.conn.Close(CloseMessageTooBig, "Frame payload too large", false)
			return
		}
		s.conn.Close(CloseProtocolError, "Protocol error: invalid frame", false)
	}
}

// dispatch handles one frame: control frames first, then validation, then
// data assembly.
func (s *session) dispatch(f *Frame) {
	if !s.conn.IsOpen() {
		// during the closing handshake only the peer's echo matters
		if f.Opcode == OpClose && s.conn.Closing() {
			s.conn.ForceClose()
		}
		return
	}
	s.conn.Touch()

	switch f.Opcode {
	case OpClose:
		s.handleClose(f)
		return
	case OpPing:
		s.conn.ResetMissedPongs()
		if s.handler.OnPing != nil {
			s.handler.OnPing(s.conn, f.Payload)
			return
		}
		if err := s.conn.Pong(f.Payload); err != nil {
			logger.Warn("pong reply failed",
				logger.KeyConnID, s.conn.ID(),
				logger.KeyError, err.Error())
		}
		return
	case OpPong:
		s.conn.ResetMissedPongs()
		if s.handler.OnPong != nil {
			s.handler.OnPong(s.conn, f.Payload)
		}
		return
	}

	if reason := validateFrame(f, s.conn.deflate != nil); reason != "" {
		s.conn.Close(CloseProtocolError, reason, false)
		return
	}
	s.handleData(f)
}

// handleClose answers the peer's close frame. Empty payloads close
// normally; a payload that cannot carry a code, an oversized payload, an
// unassignable code or a non-UTF-8 reason are protocol errors.
func (s *session) handleClose(f *Frame) {
	if len(f.Payload) > maxControlPayload {
		s.conn.Close(CloseProtocolError, "Protocol error: invalid close payload", true)
		return
	}

	code, reason, err := ParseClosePayload(f.Payload)
	if err != nil {
		s.conn.Close(CloseProtocolError, "Protocol error: invalid close payload", true)
		return
	}
	if !ValidCloseCode(code) {
		s.conn.Close(CloseProtocolError, fmt.Sprintf("Protocol error: invalid close code %d", code), true)
		return
	}

	s.conn.recordPeerClose(code, reason)
	s.conn.Close(code, reason, true)
}

// validateFrame applies the frame-level rules that do not depend on
// fragmentation state.
func validateFrame(f *Frame, deflated bool) string {
	if f.Opcode > OpPong || (f.Opcode >= 0x03 && f.Opcode <= 0x07) {
		return fmt.Sprintf("Protocol error: invalid opcode 0x%02X", f.Opcode)
	}
	if f.RSV2 || f.RSV3 {
		return "Protocol error: reserved bits set"
	}
	if f.RSV1 && !deflated {
		return "Protocol error: RSV1 set without an extension"
	}
	return ""
}

func (s *session) handleData(f *Frame) {
	switch f.Opcode {
	case OpText, OpBinary:
		if s.assembling {
			s.conn.Close(CloseProtocolError, "Protocol error: data frame during fragmented message", false)
			return
		}
		s.fragOpcode = f.Opcode
		s.fragRSV1 = f.RSV1
		s.fragBuf = append([]byte(nil), f.Payload...)
		if !f.Fin {
			s.assembling = true
			return
		}
		s.complete()
	case OpContinuation:
		if !s.assembling {
			s.conn.Close(CloseProtocolError, "Continuation frame without initial frame", false)
			return
		}
		s.fragBuf = append(s.fragBuf, f.Payload...)
		if f.Fin {
			s.complete()
		}
	}
}

// complete finishes an assembled message: decompression when the first
// frame carried RSV1, then delivery.
func (s *session) complete() {
	raw := s.fragBuf
	s.fragBuf = nil
	s.assembling = false

	if s.fragRSV1 {
		out, err := s.conn.deflate.Decompress(raw)
		if err != nil {
			logger.Warn("inbound message decompression failed",
				logger.KeyConnID, s.conn.ID(),
				logger.KeyError, err.Error())
			s.conn.Close(CloseInvalidPayload, "Invalid compressed data", false)
			return
		}
		raw = out
	}
	s.deliver(raw, s.fragOpcode)
}

// deliver derives the message value and routes it: the first matching
// response rule wins; unmatched messages go to the message hook.
func (s *session) deliver(raw []byte, opcode byte) {
	msg := &Message{Raw: raw, Opcode: opcode}
	if s.manager.metrics != nil {
		s.manager.metrics.RecordMessage(s.handler.Pattern, "received", len(raw))
	}

	if s.handler.TransformRawData != nil {
		data, err := s.handler.TransformRawData(s.conn, raw)
		if err != nil {
			s.reportError(err)
			return
		}
		msg.Data = data
	} else if opcode == OpText {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			msg.Data = v
		} else {
			msg.Data = string(raw)
		}
	} else {
		msg.Data = raw
	}

	if s.handler.Delay > 0 {
		time.Sleep(s.handler.Delay)
	}

	for i := range s.handler.Rules {
		rule := &s.handler.Rules[i]
		matched, err := safeMatch(rule, s.conn, msg)
		if err != nil {
			s.reportError(err)
			return
		}
		if !matched {
			continue
		}

		reply := rule.reply(s.conn, msg)
		if rule.Broadcast {
			delivered := s.manager.Broadcast(reply, nil)
			if s.manager.metrics != nil {
				s.manager.metrics.RecordBroadcast(s.handler.Pattern, delivered)
			}
			return
		}
		if err := s.conn.Send(reply); err != nil {
			logger.Warn("rule reply failed",
				logger.KeyConnID, s.conn.ID(),
				logger.KeyError, err.Error())
		}
		return
	}

	if s.handler.OnMessage != nil {
		s.handler.OnMessage(s.conn, msg)
		return
	}
	logger.Debug("unhandled websocket message",
		logger.KeyConnID, s.conn.ID(),
		logger.KeyOpcode, opcode)
}

// safeMatch evaluates a rule predicate, converting a panic into an error.
func safeMatch(rule *Rule, c *Conn, msg *Message) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	if rule.Match == nil {
		return true, nil
	}
	return rule.Match(c, msg), nil
}

// reportError routes a handler failure: the error hook when present,
// otherwise an error envelope back to the client.
func (s *session) reportError(err error) {
	logger.Error("websocket message handling failed",
		logger.KeyConnID, s.conn.ID(),
		logger.KeyError, err.Error())
	if s.handler.OnError != nil {
		s.handler.OnError(s.conn, err)
		return
	}
	if sendErr := s.conn.Send(map[string]any{"error": err.Error()}); sendErr != nil {
		logger.Warn("error envelope delivery failed",
			logger.KeyConnID, s.conn.ID(),
			logger.KeyError, sendErr.Error())
	}
}
