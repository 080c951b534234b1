package metrics

import (
	"time"
)

// EngineMetrics provides observability for the HTTP dispatch pipeline.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewEngineMetrics()
//	e, err := engine.New(&engine.Options{Metrics: m, ...})
//
//	// Without metrics (pass nil for zero overhead)
//	e, err := engine.New(&engine.Options{...})
type EngineMetrics interface {
	// RecordRequest records a completed request with its final status and
	// wall time. Forwarded requests are not recorded here; see
	// RecordForwarded.
	//
	// Parameters:
	//   - method: HTTP method (e.g. "GET", "POST")
	//   - prefix: the endpoint prefix that matched (e.g. "/api")
	//   - status: HTTP status code of the response
	//   - duration: time taken to produce the response
	RecordRequest(method string, prefix string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight request counter.
	RecordRequestStart(method string, prefix string)

	// RecordRequestEnd decrements the in-flight request counter.
	RecordRequestEnd(method string, prefix string)

	// RecordGatewayTimeout counts a pipeline cut short by the gateway
	// timer.
	RecordGatewayTimeout(method string, prefix string)

	// RecordForwarded counts a request under a configured prefix that was
	// handed back to the host application.
	RecordForwarded(method string, prefix string)
}
