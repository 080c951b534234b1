package ws

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/devmock/devmock/pkg/bufpool"
)

// Frame opcodes from RFC 6455 section 5.2.
const (
	OpContinuation byte = 0x00
	OpText         byte = 0x01
	OpBinary       byte = 0x02
	OpClose        byte = 0x08
	OpPing         byte = 0x09
	OpPong         byte = 0x0A
)

// maxFramePayload caps a single frame's declared payload length. Frames
// claiming more are treated as a protocol violation rather than buffered.
const maxFramePayload = 64 << 20

// maxControlPayload is the RFC 6455 limit for control frame payloads.
const maxControlPayload = 125

// ErrFrameTooLarge reports a frame whose declared length exceeds
// maxFramePayload.
var ErrFrameTooLarge = errors.New("frame payload length exceeds limit")

// ErrInvalidClosePayload reports a close frame carrying exactly one byte,
// which cannot encode a close code.
var ErrInvalidClosePayload = errors.New("invalid close payload")

// Frame is one parsed WebSocket frame. Client payloads are already
// unmasked.
type Frame struct {
	Fin     bool
	RSV1    bool
	RSV2    bool
	RSV3    bool
	Opcode  byte
	Masked  bool
	Payload []byte
}

// IsControl reports whether the frame is a control frame (close, ping,
// pong or a reserved control opcode).
func (f *Frame) IsControl() bool {
	return f.Opcode >= OpClose
}

// Marshal serialises a server-to-client frame. Server frames are never
// masked. The returned slice is backed by bufpool; the write pump returns
// it after the frame hits the socket.
func (f *Frame) Marshal() []byte {
	b0 := f.Opcode
	if f.Fin {
		b0 |= 0x80
	}
	if f.RSV1 {
		b0 |= 0x40
	}
	if f.RSV2 {
		b0 |= 0x20
	}
	if f.RSV3 {
		b0 |= 0x10
	}

	n := len(f.Payload)
	out := bufpool.Get(10 + n)[:0]
	switch {
	case n <= 125:
		out = append(out, b0, byte(n))
	case n <= 0xFFFF:
		out = append(out, b0, 126, byte(n>>8), byte(n))
	default:
		out = append(out, b0, 127)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], uint64(n))
		out = append(out, ext[:]...)
	}
	return append(out, f.Payload...)
}

// FrameParser reassembles frames from a raw byte stream. Bytes arrive in
// arbitrary chunks; Feed buffers partial frames until they complete.
type FrameParser struct {
	buf []byte
}

// Feed appends data to the rolling buffer and returns every frame that is
// now complete, in arrival order.
func (p *FrameParser) Feed(data []byte) ([]*Frame, error) {
	p.buf = append(p.buf, data...)

	var frames []*Frame
	for {
		frame, consumed, err := parseFrame(p.buf)
		if err != nil {
			return frames, err
		}
		if frame == nil {
			return frames, nil
		}
		frames = append(frames, frame)
		p.buf = p.buf[consumed:]
		if len(p.buf) == 0 {
			p.buf = nil
		}
	}
}

// Buffered returns the number of bytes waiting for frame completion.
func (p *FrameParser) Buffered() int {
	return len(p.buf)
}

// parseFrame decodes one frame from the head of buf. A nil frame with no
// error means more bytes are needed.
func parseFrame(buf []byte) (*Frame, int, error) {
	if len(buf) < 2 {
		return nil, 0, nil
	}

	b0, b1 := buf[0], buf[1]
	frame := &Frame{
		Fin:    b0&0x80 != 0,
		RSV1:   b0&0x40 != 0,
		RSV2:   b0&0x20 != 0,
		RSV3:   b0&0x10 != 0,
		Opcode: b0 & 0x0F,
		Masked: b1&0x80 != 0,
	}

	length := uint64(b1 & 0x7F)
	offset := 2
	switch length {
	case 126:
		if len(buf) < offset+2 {
			return nil, 0, nil
		}
		length = uint64(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2
	case 127:
		if len(buf) < offset+8 {
			return nil, 0, nil
		}
		length = binary.BigEndian.Uint64(buf[offset:])
		offset += 8
	}
	if length > maxFramePayload {
		return nil, 0, ErrFrameTooLarge
	}

	var mask []byte
	if frame.Masked {
		if len(buf) < offset+4 {
			return nil, 0, nil
		}
		mask = buf[offset : offset+4]
		offset += 4
	}

	end := offset + int(length)
	if len(buf) < end {
		return nil, 0, nil
	}

	payload := make([]byte, length)
	copy(payload, buf[offset:end])
	if frame.Masked {
		for i := range payload {
			payload[i] ^= mask[i%4]
		}
	}
	frame.Payload = payload
	return frame, end, nil
}

// ClosePayload encodes a close frame body: a 16-bit code followed by an
// optional UTF-8 reason. A zero code yields an empty payload.
func ClosePayload(code int, reason string) []byte {
	if code == 0 {
		return nil
	}
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, uint16(code))
	copy(payload[2:], reason)
	return payload
}

// ParseClosePayload decodes a received close frame body. An empty payload
// means a normal close; a single byte cannot encode a code and is a
// protocol error, as is a reason that is not valid UTF-8.
func ParseClosePayload(payload []byte) (int, string, error) {
	switch {
	case len(payload) == 0:
		return CloseNormal, "", nil
	case len(payload) == 1:
		return 0, "", ErrInvalidClosePayload
	}

	code := int(binary.BigEndian.Uint16(payload))
	reason := string(payload[2:])
	if !utf8.ValidString(reason) || strings.ContainsRune(reason, utf8.RuneError) {
		return 0, "", fmt.Errorf("close reason is not valid UTF-8")
	}
	return code, reason, nil
}
