package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so mock traffic can
// be filtered and correlated when the engine runs embedded in a host app.
const (
	// ========================================================================
	// HTTP Request
	// ========================================================================
	KeyRequestID  = "request_id"  // Per-request correlation ID
	KeyMethod     = "method"      // HTTP method: GET, POST, ...
	KeyPath       = "path"        // Request path relative to the API prefix
	KeyFullPath   = "full_path"   // Request path including the API prefix
	KeyRoute      = "route"       // Matched handler route pattern
	KeyStatus     = "status"      // HTTP response status code
	KeyRemoteAddr = "remote_addr" // Client address (ip:port)
	KeyDurationMs = "duration_ms" // Wall time spent handling the request
	KeyBytes      = "bytes"       // Response body size in bytes

	// ========================================================================
	// Filesystem API
	// ========================================================================
	KeyFile      = "file"       // Resolved file path on disk
	KeyDir       = "dir"        // Directory being scanned
	KeyMatched   = "matched"    // Sibling file selected by prefix matching
	KeyMediaType = "media_type" // Content type derived from the file extension

	// ========================================================================
	// WebSocket
	// ========================================================================
	KeyConnID    = "conn_id"    // Connection UUID assigned at upgrade time
	KeyChannel   = "channel"    // Handler channel the connection upgraded on
	KeyOpcode    = "opcode"     // Frame opcode
	KeyCloseCode = "close_code" // Close status code
	KeyReason    = "reason"     // Close reason text
	KeyClients   = "clients"    // Number of registered connections

	// ========================================================================
	// Errors
	// ========================================================================
	KeyError     = "error"      // Error message
	KeyErrorType = "error_type" // Error classification
)

// Err returns a KeyError attribute for err, tolerating nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "<nil>")
	}
	return slog.String(KeyError, err.Error())
}
