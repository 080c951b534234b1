// Package rest carries the request/response model shared by the REST
// dispatcher, the middleware chain and the filesystem engine: parsed
// requests, the guarded response writer, the error taxonomy and the handler
// descriptor.
package rest

import (
	"fmt"
	"net/http"
)

// Kind classifies engine errors. The response writer materialises the wire
// form; everything upstream works with kinds.
type Kind int

const (
	// KindNoHandler means no prefix or handler matched the request.
	KindNoHandler Kind = iota
	// KindClient means the client violated a documented rule.
	KindClient
	// KindNotFound is resource-level absence on PATCH or DELETE.
	KindNotFound
	// KindManuallyHandled means a hook was expected to write a response but
	// did not.
	KindManuallyHandled
	// KindMiddleware is an error left unresolved at the end of the error
	// middleware list.
	KindMiddleware
	// KindTimeout means the gateway timeout elapsed.
	KindTimeout
	// KindInternal is any other unexpected failure.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNoHandler:
		return "NO_HANDLER"
	case KindClient:
		return "CLIENT_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindManuallyHandled:
		return "MANUALLY_HANDLED"
	case KindMiddleware:
		return "MIDDLEWARE_ERROR"
	case KindTimeout:
		return "TIMEOUT"
	default:
		return "INTERNAL"
	}
}

// Error is the engine's internal error carrying its wire mapping.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NoHandler signals that the request did not match any prefix or handler.
func NoHandler() *Error {
	return &Error{Kind: KindNoHandler, Status: http.StatusNotFound, Message: "Not Found"}
}

// ClientError reports a request that violated a documented rule.
func ClientError(status int, format string, args ...any) *Error {
	return &Error{Kind: KindClient, Status: status, Message: fmt.Sprintf(format, args...)}
}

// BadRequest is ClientError with status 400.
func BadRequest(format string, args ...any) *Error {
	return ClientError(http.StatusBadRequest, format, args...)
}

// NotFound reports resource-level absence.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// ManuallyHandled reports a hook that owned the response but never wrote it.
func ManuallyHandled(message string) *Error {
	return &Error{Kind: KindManuallyHandled, Status: http.StatusInternalServerError, Message: message}
}

// MiddlewareError wraps an error the error-middleware list failed to
// resolve.
func MiddlewareError(cause error) *Error {
	msg := "middleware error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindMiddleware, Status: http.StatusInternalServerError, Message: msg, Cause: cause}
}

// Timeout reports an elapsed gateway timeout.
func Timeout() *Error {
	return &Error{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Message: "Gateway Timeout"}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Error {
	msg := http.StatusText(http.StatusInternalServerError)
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: msg, Cause: cause}
}
