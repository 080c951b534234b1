package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/devmock/devmock/internal/logger"
)

// Version is the running server version, injected at build time via the CLI.
var Version = "dev"

// healthResponse is the payload served on /health.
//
//   - Status indicates the overall result ("healthy", "unhealthy")
//   - Timestamp provides response time for debugging and caching
//   - Data carries service identity and uptime
type healthResponse struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Data      healthData `json:"data"`
	Error     string     `json:"error,omitempty"`
}

type healthData struct {
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	UptimeSec int64     `json:"uptime_sec"`
}

// healthHandler answers liveness probes with service identity and uptime.
type healthHandler struct {
	startedAt time.Time
	version   string
}

func newHealthHandler(version string) *healthHandler {
	return &healthHandler{
		startedAt: time.Now().UTC(),
		version:   version,
	}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(h.startedAt)

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Data: healthData{
			Service:   "devmock",
			Version:   h.version,
			StartedAt: h.startedAt,
			Uptime:    uptime.Round(time.Second).String(),
			UptimeSec: int64(uptime.Seconds()),
		},
	})
}

// writeJSON writes a JSON response with the given status code.
//
// Encoding is done to a buffer first to ensure we can return an error
// response if encoding fails (before headers are sent).
func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", logger.Err(err))
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
