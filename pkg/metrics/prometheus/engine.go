// Package prometheus implements the metrics interfaces on top of
// prometheus/client_golang. Constructors return nil while the registry is
// not initialised, so callers can pass the result straight through and pay
// nothing when metrics are off.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devmock/devmock/pkg/metrics"
)

// engineMetrics is the Prometheus implementation of metrics.EngineMetrics.
type engineMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
	gatewayTimeouts *prometheus.CounterVec
	forwarded       *prometheus.CounterVec
}

// NewEngineMetrics creates a new Prometheus-backed EngineMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewEngineMetrics() metrics.EngineMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &engineMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmock_http_requests_total",
				Help: "Total number of HTTP requests answered by the mock engine",
			},
			[]string{"method", "prefix", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "devmock_http_request_duration_milliseconds",
				Help: "Duration of mock engine request handling in milliseconds",
				Buckets: []float64{
					1,    // 1ms - in-memory answers
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms - filesystem reads
					100,  // 100ms
					500,  // 500ms - configured delays
					1000, // 1s
					5000, // 5s - gateway timeout territory
				},
			},
			[]string{"method", "prefix"},
		),
		inFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "devmock_http_requests_in_flight",
				Help: "Current number of requests inside the dispatch pipeline",
			},
			[]string{"method", "prefix"},
		),
		gatewayTimeouts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmock_http_gateway_timeouts_total",
				Help: "Total number of requests cut short by the gateway timer",
			},
			[]string{"method", "prefix"},
		),
		forwarded: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "devmock_http_forwarded_total",
				Help: "Total number of unmatched requests handed back to the host",
			},
			[]string{"method", "prefix"},
		),
	}
}

func (m *engineMetrics) RecordRequest(method, prefix string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, prefix, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, prefix).Observe(duration.Seconds() * 1000)
}

func (m *engineMetrics) RecordRequestStart(method, prefix string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(method, prefix).Inc()
}

func (m *engineMetrics) RecordRequestEnd(method, prefix string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(method, prefix).Dec()
}

func (m *engineMetrics) RecordGatewayTimeout(method, prefix string) {
	if m == nil {
		return
	}
	m.gatewayTimeouts.WithLabelValues(method, prefix).Inc()
}

func (m *engineMetrics) RecordForwarded(method, prefix string) {
	if m == nil {
		return
	}
	m.forwarded.WithLabelValues(method, prefix).Inc()
}
