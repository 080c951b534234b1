package logger

import "context"

type ctxKey struct{}

// RequestContext carries the identifiers of one in-flight request. The HTTP
// layer stores it in the request context once, and the Ctx logging variants
// stamp every line with it so engine internals correlate with the access
// log.
type RequestContext struct {
	RequestID  string // correlation ID assigned by the router
	Method     string // HTTP method
	Path       string // request path as received, before prefix stripping
	RemoteAddr string // client address
	ConnID     string // WebSocket connection ID, once upgraded
}

// WithContext stores rc in ctx.
func WithContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the RequestContext stored in ctx, or nil.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

// fields renders the populated identifiers as alternating key/value pairs,
// ready to prepend to a log call's arguments.
func (rc *RequestContext) fields() []any {
	out := make([]any, 0, 10)
	if rc.RequestID != "" {
		out = append(out, KeyRequestID, rc.RequestID)
	}
	if rc.Method != "" {
		out = append(out, KeyMethod, rc.Method)
	}
	if rc.Path != "" {
		out = append(out, KeyFullPath, rc.Path)
	}
	if rc.RemoteAddr != "" {
		out = append(out, KeyRemoteAddr, rc.RemoteAddr)
	}
	if rc.ConnID != "" {
		out = append(out, KeyConnID, rc.ConnID)
	}
	return out
}
