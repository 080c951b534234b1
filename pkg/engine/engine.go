package engine

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/pkg/fsapi"
	"github.com/devmock/devmock/pkg/ws"
)

// Engine answers HTTP and WebSocket traffic under its configured prefixes
// and passes everything else through to the host application.
type Engine struct {
	opts    *Options
	fs      *fsapi.Engine
	manager *ws.Manager
}

// New validates opts and builds the engine.
func New(opts *Options) (*Engine, error) {
	if opts == nil {
		opts = &Options{}
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	e := &Engine{
		opts:    opts,
		manager: ws.NewManager(),
	}
	if opts.WSMetrics != nil {
		e.manager.SetMetrics(opts.WSMetrics)
	}
	if opts.FSDir != "" {
		e.fs = fsapi.New(opts.FSDir)
	}

	if opts.Disabled {
		logger.Info("mock engine disabled")
	} else {
		logger.Info("mock engine ready",
			"prefixes", strings.Join(opts.Prefixes, ","),
			"handlers", len(opts.Handlers),
			"websocket", opts.EnableWS)
	}
	return e, nil
}

// Manager exposes the WebSocket connection registry, for broadcasting from
// host code.
func (e *Engine) Manager() *ws.Manager { return e.manager }

// Prefixes returns the normalized URL prefixes the engine claims.
func (e *Engine) Prefixes() []string {
	out := make([]string, len(e.opts.Prefixes))
	copy(out, e.opts.Prefixes)
	return out
}

// Filesystem returns the filesystem engine, nil when no root directory is
// configured.
func (e *Engine) Filesystem() *fsapi.Engine { return e.fs }

// Middleware wraps next: requests under a configured prefix are answered by
// the engine, everything else (and every request while disabled) passes
// through untouched.
func (e *Engine) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if e.opts.Disabled {
			next.ServeHTTP(w, r)
			return
		}
		prefix, ok := e.matchPrefix(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		r = ensureRequestContext(r)
		if e.opts.EnableWS && isUpgrade(r.Header) {
			e.hijack(w, r)
			return
		}
		e.serve(w, r, prefix, next)
	})
}

// Handler returns the engine as a standalone handler. Unmatched requests
// configured to forward fall onto a plain 404 page.
func (e *Engine) Handler() http.Handler {
	return e.Middleware(http.NotFoundHandler())
}

// matchPrefix returns the first configured prefix owning path. A prefix
// owns its exact path and every path continuing it past a slash, so "/api"
// claims "/api" and "/api/users" but not "/apiary".
func (e *Engine) matchPrefix(path string) (string, bool) {
	for _, p := range e.opts.Prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return p, true
		}
	}
	return "", false
}

// ensureRequestContext makes sure downstream log lines carry request
// identifiers even when the engine runs embedded, without the standalone
// server's logging middleware in front.
func ensureRequestContext(r *http.Request) *http.Request {
	if logger.FromContext(r.Context()) != nil {
		return r
	}
	return r.WithContext(logger.WithContext(r.Context(), &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
	}))
}

func isUpgrade(header http.Header) bool {
	for _, value := range header.Values("Upgrade") {
		for _, token := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "websocket") {
				return true
			}
		}
	}
	return false
}

// hijack takes over the underlying connection for a WebSocket upgrade.
func (e *Engine) hijack(w http.ResponseWriter, r *http.Request) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		logger.ErrorCtx(r.Context(), "response writer does not support hijacking")
		http.Error(w, "websocket upgrade not supported", http.StatusInternalServerError)
		return
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		logger.ErrorCtx(r.Context(), "connection hijack failed", logger.Err(err))
		return
	}

	// The host server's read/write deadlines ride along with the hijacked
	// connection; the session manages its own liveness.
	_ = conn.SetDeadline(time.Time{})

	// Bytes the server already read past the request head belong to the
	// WebSocket stream.
	var initial []byte
	if buffered := rw.Reader.Buffered(); buffered > 0 {
		initial, _ = rw.Reader.Peek(buffered)
	}
	e.HandleUpgrade(r, conn, initial)
}

// HandleUpgrade routes an upgrade request to the matching WebSocket
// handler. Hosts running their own listener can call this directly with
// the raw connection and any bytes already consumed past the request head.
// Unmatched paths receive a 404 and the connection is closed.
func (e *Engine) HandleUpgrade(r *http.Request, conn net.Conn, initial []byte) {
	r = ensureRequestContext(r)
	if path, ok := e.strippedPath(r.URL.Path); ok && e.opts.EnableWS {
		for _, h := range e.opts.WSHandlers {
			params, matched := h.Match(path)
			if !matched {
				continue
			}
			if _, err := ws.Upgrade(r, conn, initial, h, params, e.manager); err != nil {
				logger.WarnCtx(r.Context(), "websocket handshake rejected", logger.Err(err))
			}
			return
		}
	}

	logger.DebugCtx(r.Context(), "no websocket handler")
	ws.WriteHandshakeError(conn, http.StatusNotFound, "Not Found")
	_ = conn.Close()
}

// strippedPath removes the owning prefix from urlPath; a fully consumed
// path becomes "/".
func (e *Engine) strippedPath(urlPath string) (string, bool) {
	prefix, ok := e.matchPrefix(urlPath)
	if !ok {
		return "", false
	}
	path := strings.TrimPrefix(urlPath, prefix)
	if path == "" {
		path = "/"
	}
	return path, true
}

// Shutdown starts a close handshake on every WebSocket connection and
// waits for the registry to drain. Connections still open when ctx expires
// are torn down immediately.
func (e *Engine) Shutdown(ctx context.Context) error {
	for _, c := range e.manager.All() {
		c.Close(ws.CloseGoingAway, "Server shutting down", false)
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for e.manager.Len() > 0 {
		select {
		case <-ctx.Done():
			for _, c := range e.manager.All() {
				c.ForceClose()
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
