// Package ws implements the WebSocket surface of the mock engine: the
// RFC 6455 handshake and framing, RFC 7692 permessage-deflate, connection
// lifecycle with heartbeat and inactivity tracking, and message dispatch to
// configured handlers.
package ws

// Close codes from RFC 6455 section 7.4.1.
const (
	CloseNormal           = 1000
	CloseGoingAway        = 1001
	CloseProtocolError    = 1002
	CloseUnsupportedData  = 1003
	CloseNoStatus         = 1005
	CloseAbnormal         = 1006
	CloseInvalidPayload   = 1007
	ClosePolicyViolation  = 1008
	CloseMessageTooBig    = 1009
	CloseMandatoryExt     = 1010
	CloseInternalError    = 1011
	CloseTLSHandshake     = 1015
	closeReservedRangeEnd = 2999
)

// ValidCloseCode reports whether code may be carried in a close frame
// payload. The reserved codes 1004-1006 and 1015 and the unassigned range
// up to 2999 are rejected; registered codes and the private ranges
// 3000-4999 are accepted.
func ValidCloseCode(code int) bool {
	switch {
	case code >= CloseNormal && code <= CloseUnsupportedData:
		return true
	case code >= CloseInvalidPayload && code <= CloseInternalError:
		return true
	case code >= 3000 && code <= 4999:
		return true
	default:
		return false
	}
}
