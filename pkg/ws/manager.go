package ws

import (
	"sync"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/pkg/metrics"
)

// Manager tracks live connections. All accessors take a snapshot under the
// lock and iterate outside it, so hooks and broadcasts never hold it.
type Manager struct {
	mu      sync.RWMutex
	conns   map[string]*Conn
	metrics metrics.WSMetrics
}

// NewManager creates an empty connection registry.
func NewManager() *Manager {
	return &Manager{conns: make(map[string]*Conn)}
}

// SetMetrics attaches a metrics sink. Must be called before the first
// connection is added; nil leaves metrics off.
func (m *Manager) SetMetrics(wm metrics.WSMetrics) {
	m.metrics = wm
}

// Add registers a connection under its ID.
func (m *Manager) Add(c *Conn) {
	m.mu.Lock()
	m.conns[c.ID()] = c
	count := len(m.conns)
	m.mu.Unlock()

	if m.metrics != nil {
		c.metrics = m.metrics
		m.metrics.RecordConnectionOpened(c.handler.Pattern)
		m.metrics.SetActiveConnections(count)
	}
	logger.Debug("websocket connection registered",
		logger.KeyConnID, c.ID(),
		logger.KeyClients, count)
}

// Remove drops a connection from the registry.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	c, ok := m.conns[id]
	delete(m.conns, id)
	count := len(m.conns)
	m.mu.Unlock()

	if ok && m.metrics != nil {
		m.metrics.RecordConnectionClosed(c.handler.Pattern)
		m.metrics.SetActiveConnections(count)
	}
}

// Get looks a connection up by ID.
func (m *Manager) Get(id string) (*Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conns[id]
	return c, ok
}

// All returns a snapshot of every registered connection.
func (m *Manager) All() []*Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		out = append(out, c)
	}
	return out
}

// ByRoom returns the connections assigned to room.
func (m *Manager) ByRoom(room string) []*Conn {
	var out []*Conn
	for _, c := range m.All() {
		if c.InRoom(room) {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered connections.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// BroadcastOptions narrow a broadcast's recipients.
type BroadcastOptions struct {
	// ExcludeID skips one connection, typically the sender.
	ExcludeID string
	// Room restricts delivery to connections assigned to the room.
	Room string
}

// Broadcast sends data to every open connection matching opts and returns
// the number of deliveries. Send failures are logged and skipped; one slow
// or dead peer never aborts the fan-out.
func (m *Manager) Broadcast(data any, opts *BroadcastOptions) int {
	if opts == nil {
		opts = &BroadcastOptions{}
	}

	delivered := 0
	for _, c := range m.All() {
		if opts.ExcludeID != "" && c.ID() == opts.ExcludeID {
			continue
		}
		if opts.Room != "" && !c.InRoom(opts.Room) {
			continue
		}
		if !c.IsOpen() {
			continue
		}
		if err := c.Send(data); err != nil {
			logger.Warn("broadcast delivery failed",
				logger.KeyConnID, c.ID(),
				logger.KeyError, err.Error())
			continue
		}
		delivered++
	}
	return delivered
}
