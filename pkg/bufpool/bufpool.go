// Package bufpool provides a tiered buffer pool for outbound frame
// assembly.
//
// Every WebSocket frame leaving the server is serialised into a scratch
// buffer that lives only until the write syscall returns. Pooling those
// buffers keeps a busy mock session from churning the garbage collector.
//
// Three size tiers balance memory efficiency with reuse:
//   - small (4KB): control frames and short messages
//   - medium (64KB): typical JSON payloads
//   - large (1MB): big mock documents
//
// Requests above the large tier are allocated directly and never pooled,
// so an occasional huge payload does not pin a huge buffer forever.
package bufpool

import (
	"sync"
)

// Default buffer size classes.
const (
	DefaultSmallSize  = 4 << 10
	DefaultMediumSize = 64 << 10
	DefaultLargeSize  = 1 << 20
)

// Pool manages byte slices organized by size class. It selects the
// smallest tier that fits and falls back to direct allocation for
// oversized requests.
type Pool struct {
	small      sync.Pool
	medium     sync.Pool
	large      sync.Pool
	smallSize  int
	mediumSize int
	largeSize  int
}

// Config holds the tier sizes for a custom pool. Zero values take the
// package defaults.
type Config struct {
	SmallSize  int
	MediumSize int
	LargeSize  int
}

// NewPool creates a buffer pool with the given configuration. A nil
// config uses the defaults.
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		cfg = &Config{}
	}

	p := &Pool{
		smallSize:  cfg.SmallSize,
		mediumSize: cfg.MediumSize,
		largeSize:  cfg.LargeSize,
	}
	if p.smallSize <= 0 {
		p.smallSize = DefaultSmallSize
	}
	if p.mediumSize <= 0 {
		p.mediumSize = DefaultMediumSize
	}
	if p.largeSize <= 0 {
		p.largeSize = DefaultLargeSize
	}

	p.small = sync.Pool{
		New: func() any {
			buf := make([]byte, p.smallSize)
			return &buf
		},
	}
	p.medium = sync.Pool{
		New: func() any {
			buf := make([]byte, p.mediumSize)
			return &buf
		},
	}
	p.large = sync.Pool{
		New: func() any {
			buf := make([]byte, p.largeSize)
			return &buf
		},
	}

	return p
}

// Get returns a byte slice of at least the requested size. The capacity
// may exceed size to align with the pool's tiers. Pass the slice back to
// Put when done; a buffer that is never returned is simply collected.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte

	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.mediumSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	buf := *bufPtr
	return buf[:size]
}

// Put returns a buffer obtained from Get to the pool. The buffer must not
// be used afterwards. Buffers whose capacity matches no tier (oversized
// direct allocations, or slices that grew) are left for the garbage
// collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	switch cap(buf) {
	case p.smallSize:
		fullBuf := buf[:cap(buf)]
		p.small.Put(&fullBuf)
	case p.mediumSize:
		fullBuf := buf[:cap(buf)]
		p.medium.Put(&fullBuf)
	case p.largeSize:
		fullBuf := buf[:cap(buf)]
		p.large.Put(&fullBuf)
	}
}

// globalPool is the package-level pool shared by all frame writers.
var globalPool = NewPool(nil)

// Get returns a byte slice of at least the requested size from the global pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the global pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
