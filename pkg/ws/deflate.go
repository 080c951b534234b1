package ws

import (
	"bytes"
	"compress/flate"
	"errors"
	"io"
	"sync"
)

// flateTail completes a truncated permessage-deflate stream so the inflater
// sees a final empty block and terminates cleanly (RFC 7692 section 7.2.2).
var flateTail = []byte{0x00, 0x00, 0xff, 0xff, 0x01, 0x00, 0x00, 0xff, 0xff}

// maxSlidingWindow is the LZ77 window retained between messages when
// context takeover is in effect.
const maxSlidingWindow = 32 << 10

// ErrDeflateClosed reports use of a codec after Destroy.
var ErrDeflateClosed = errors.New("deflate codec destroyed")

// Deflate is one connection's permessage-deflate codec. Compression and
// decompression share internal state, so calls are serialised.
type Deflate struct {
	mu     sync.Mutex
	closed bool

	// serverNoContext resets the compressor after every message;
	// clientNoContext does the same for the inflater dictionary.
	serverNoContext bool
	clientNoContext bool

	fw   *flate.Writer
	wbuf bytes.Buffer

	fr     io.ReadCloser
	window []byte
}

// NewDeflate creates a codec with the negotiated takeover modes.
func NewDeflate(serverNoContext, clientNoContext bool) *Deflate {
	return &Deflate{
		serverNoContext: serverNoContext,
		clientNoContext: clientNoContext,
	}
}

// Compress deflates one outbound message: raw deflate, a sync flush, and
// the trailing 0x00 0x00 0xFF 0xFF marker stripped. With
// server_no_context_takeover the compressor resets afterwards so no state
// leaks into the next message.
func (d *Deflate) Compress(data []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeflateClosed
	}

	if d.fw == nil {
		fw, err := flate.NewWriter(&d.wbuf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		d.fw = fw
	}

	d.wbuf.Reset()
	if _, err := d.fw.Write(data); err != nil {
		return nil, err
	}
	if err := d.fw.Flush(); err != nil {
		return nil, err
	}

	out := d.wbuf.Bytes()
	if n := len(out); n >= 4 && bytes.Equal(out[n-4:], []byte{0x00, 0x00, 0xff, 0xff}) {
		out = out[:n-4]
	}
	compressed := make([]byte, len(out))
	copy(compressed, out)

	if d.serverNoContext {
		d.fw.Reset(&d.wbuf)
	}
	return compressed, nil
}

// Decompress inflates one inbound message: the stripped trailer is
// restored, then the payload is inflated against the sliding window
// carried over from previous messages unless the client negotiated
// client_no_context_takeover.
func (d *Deflate) Decompress(data []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeflateClosed
	}

	payload := make([]byte, 0, len(data)+len(flateTail))
	payload = append(payload, data...)
	payload = append(payload, flateTail...)
	src := bytes.NewReader(payload)

	if d.fr == nil {
		d.fr = flate.NewReaderDict(src, d.window)
	} else if err := d.fr.(flate.Resetter).Reset(src, d.window); err != nil {
		return nil, err
	}

	out, err := io.ReadAll(d.fr)
	if err != nil {
		return nil, err
	}

	if d.clientNoContext {
		d.window = nil
	} else {
		d.window = slideWindow(d.window, out)
	}
	return out, nil
}

// Destroy releases the codec. Further calls fail with ErrDeflateClosed.
func (d *Deflate) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.fw = nil
	d.fr = nil
	d.window = nil
}

// slideWindow appends out and keeps the trailing maxSlidingWindow bytes.
func slideWindow(window, out []byte) []byte {
	window = append(window, out...)
	if len(window) <= maxSlidingWindow {
		return window
	}
	trimmed := make([]byte, maxSlidingWindow)
	copy(trimmed, window[len(window)-maxSlidingWindow:])
	return trimmed
}
