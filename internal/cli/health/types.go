// Package health defines the wire shape of the /health endpoint, shared
// between the server and the status command.
package health

// StatusHealthy is the status value a passing server reports.
const StatusHealthy = "healthy"

// Details is the service identity block of a health response.
type Details struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// Response is the envelope returned by GET /health.
type Response struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Data      Details `json:"data"`
	Error     string  `json:"error,omitempty"`
}

// Healthy reports whether the server answered with a passing status.
func (r *Response) Healthy() bool { return r.Status == StatusHealthy }
