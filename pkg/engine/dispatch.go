package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/pkg/fsapi"
	"github.com/devmock/devmock/pkg/listing"
	"github.com/devmock/devmock/pkg/rest"
)

// serve answers one HTTP request under a matched prefix.
func (e *Engine) serve(w http.ResponseWriter, r *http.Request, prefix string, next http.Handler) {
	req := rest.NewRequest(r)
	req.Prefix = prefix
	req.Path = strings.TrimPrefix(r.URL.Path, prefix)
	if req.Path == "" {
		req.Path = "/"
	}
	res := rest.NewResponseWriter(w, r.URL.Path)

	logger.DebugCtx(r.Context(), "dispatching request",
		logger.KeyPath, req.Path)

	start := time.Now()
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordRequestStart(req.Method, prefix)
		defer e.opts.Metrics.RecordRequestEnd(req.Method, prefix)
	}

	err := e.runPipeline(req, res)
	if err == nil {
		e.recordRequest(req.Method, prefix, res.Status(), start)
		return
	}

	var engineErr *rest.Error
	if errors.As(err, &engineErr) && engineErr.Kind == rest.KindNoHandler &&
		e.opts.Unmatched == UnmatchedForward && !res.Committed() {
		// The body parser may have drained the request; restore it for the
		// host handler.
		if len(req.RawBody) > 0 {
			r.Body = io.NopCloser(bytes.NewReader(req.RawBody))
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.RecordForwarded(req.Method, prefix)
		}
		next.ServeHTTP(w, r)
		return
	}
	if errors.As(err, &engineErr) && engineErr.Kind == rest.KindTimeout && e.opts.Metrics != nil {
		e.opts.Metrics.RecordGatewayTimeout(req.Method, prefix)
	}
	res.WriteError(err)
	e.recordRequest(req.Method, prefix, res.Status(), start)
}

func (e *Engine) recordRequest(method, prefix string, status int, start time.Time) {
	if e.opts.Metrics == nil {
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	e.opts.Metrics.RecordRequest(method, prefix, status, time.Since(start))
}

// runPipeline executes the dispatch, racing the gateway timer when one is
// configured. A timed-out pipeline keeps running in the background, but the
// 504 envelope ends the response first and later writes are dropped.
func (e *Engine) runPipeline(req *rest.Request, res *rest.ResponseWriter) error {
	if e.opts.GatewayTimeout <= 0 {
		return e.dispatch(req, res)
	}

	done := make(chan error, 1)
	go func() { done <- e.dispatch(req, res) }()

	timer := time.NewTimer(e.opts.GatewayTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		logger.WarnCtx(req.Raw.Context(), "gateway timeout",
			logger.KeyPath, req.Path)
		return rest.Timeout()
	}
}

// dispatch scans the handlers in declaration order and falls back to the
// filesystem surface. A pattern match with the wrong method keeps scanning.
func (e *Engine) dispatch(req *rest.Request, res *rest.ResponseWriter) error {
	for _, h := range e.opts.Handlers {
		params, ok := h.Match(req.Path)
		if !ok || h.Method != req.Method {
			continue
		}
		if h.Disabled {
			logger.DebugCtx(req.Raw.Context(), "handler disabled, scanning on",
				logger.KeyRoute, h.Pattern)
			continue
		}
		req.Params = params
		return e.invoke(req, res, h)
	}
	return e.serveFilesystem(req, res)
}

// invoke runs one matched handler behind the middleware chain.
func (e *Engine) invoke(req *rest.Request, res *rest.ResponseWriter, h *rest.Handler) error {
	parser := h.Parser
	if parser == nil {
		parser = e.opts.Parser
	}
	if err := rest.ParseBody(req, parser); err != nil {
		return err
	}

	chain := rest.NewChain(e.opts.Middlewares, e.opts.ErrorMiddlewares, req, res)
	return chain.Run(func() error {
		e.wait(h.Delay)
		if h.IsFilesystem() {
			return e.delegateToFilesystem(req, res, h)
		}
		if err := h.Func(req, res); err != nil {
			return err
		}
		if !res.Committed() && !res.Ended() {
			return rest.ManuallyHandled("REST Handle request not send any response")
		}
		res.End()
		return nil
	})
}

// delegateToFilesystem serves a handler that declares a filesystem mapping
// instead of a function.
func (e *Engine) delegateToFilesystem(req *rest.Request, res *rest.ResponseWriter, h *rest.Handler) error {
	if e.fs == nil {
		return rest.NotFound(fmt.Sprintf("File at %s not found", h.FS.TransformPath(req.Path)))
	}
	opts := &fsapi.Options{
		Pagination: listing.ResolvePagination(h.Pagination, e.globalPagination(req.Method)),
		Filters:    listing.ResolveFilters(h.Filters, e.globalFilters(req.Method)),
		Transform:  h.FS,
		Delegated:  true,
	}
	return e.fs.Handle(req, res, opts)
}

// serveFilesystem is the no-handler path: the mock tree answers directly,
// without the middleware chain.
func (e *Engine) serveFilesystem(req *rest.Request, res *rest.ResponseWriter) error {
	if e.fs == nil {
		return rest.NoHandler()
	}
	if err := rest.ParseBody(req, e.opts.Parser); err != nil {
		return err
	}
	e.wait(0)
	opts := &fsapi.Options{
		Pagination: e.globalPagination(req.Method),
		Filters:    e.globalFilters(req.Method),
	}
	return e.fs.Handle(req, res, opts)
}

// wait sleeps for the handler delay, falling back to the global delay.
func (e *Engine) wait(override time.Duration) {
	delay := override
	if delay <= 0 {
		delay = e.opts.Delay
	}
	if delay > 0 {
		time.Sleep(delay)
	}
}

func (e *Engine) globalPagination(method string) *listing.Pagination {
	if p, ok := e.opts.Pagination[method]; ok {
		return p
	}
	return e.opts.Pagination[MethodAll]
}

func (e *Engine) globalFilters(method string) *listing.Filters {
	if f, ok := e.opts.Filters[method]; ok {
		return f
	}
	return e.opts.Filters[MethodAll]
}
