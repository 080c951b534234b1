package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devmock/devmock/pkg/metrics"
)

// wsMetrics is the Prometheus implementation of metrics.WSMetrics.
type wsMetrics struct {
	connectionsOpened *prometheus.CounterVec
	connectionsClosed *prometheus.CounterVec
	activeConnections prometheus.Gauge
	messages          *prometheus.CounterVec
	messageBytes      *prometheus.HistogramVec
	broadcasts        *prometheus.CounterVec
	broadcastReach    *prometheus.CounterVec
}

// NewWSMetrics creates a new Prometheus-backed WSMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewWSMetrics() metrics.WSMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &wsMetrics{
		connectionsOpened: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmock_ws_connections_opened_total",
				Help: "Total number of accepted WebSocket upgrades by channel",
			},
			[]string{"channel"},
		),
		connectionsClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmock_ws_connections_closed_total",
				Help: "Total number of torn-down WebSocket connections by channel",
			},
			[]string{"channel"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "devmock_ws_active_connections",
				Help: "Current number of registered WebSocket connections",
			},
		),
		messages: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmock_ws_messages_total",
				Help: "Total number of WebSocket data messages by channel and direction",
			},
			[]string{"channel", "direction"}, // direction: "received", "sent"
		),
		messageBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "devmock_ws_message_bytes",
				Help: "Distribution of WebSocket message payload sizes",
				Buckets: []float64{
					64,     // control-sized payloads
					256,    // small JSON
					1024,   // 1KB
					4096,   // 4KB
					16384,  // 16KB
					65536,  // 64KB
					262144, // 256KB
				},
			},
			[]string{"channel", "direction"},
		),
		broadcasts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmock_ws_broadcasts_total",
				Help: "Total number of broadcast fan-outs by channel",
			},
			[]string{"channel"},
		),
		broadcastReach: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmock_ws_broadcast_deliveries_total",
				Help: "Total number of connections reached by broadcasts",
			},
			[]string{"channel"},
		),
	}
}

func (m *wsMetrics) RecordConnectionOpened(channel string) {
	if m == nil {
		return
	}
	m.connectionsOpened.WithLabelValues(channel).Inc()
}

func (m *wsMetrics) RecordConnectionClosed(channel string) {
	if m == nil {
		return
	}
	m.connectionsClosed.WithLabelValues(channel).Inc()
}

func (m *wsMetrics) SetActiveConnections(count int) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *wsMetrics) RecordMessage(channel, direction string, bytes int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(channel, direction).Inc()
	m.messageBytes.WithLabelValues(channel, direction).Observe(float64(bytes))
}

func (m *wsMetrics) RecordBroadcast(channel string, delivered int) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(channel).Inc()
	m.broadcastReach.WithLabelValues(channel).Add(float64(delivered))
}
