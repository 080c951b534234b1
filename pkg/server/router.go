// Package server runs the standalone devmock HTTP server: the mock engine
// mounted as middleware over a chi router, with health, metrics and an
// optional static-file fallback for forwarded requests.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devmock/devmock/internal/logger"
	"github.com/devmock/devmock/pkg/config"
	"github.com/devmock/devmock/pkg/engine"
	"github.com/devmock/devmock/pkg/metrics"
)

// NewRouter builds the chi router hosting the engine.
//
// Middleware stack - order matters:
//   - Request ID for correlation
//   - Real IP extraction
//   - Request logging through the internal logger
//   - Panic recovery
//   - The mock engine itself
//
// Everything the engine does not claim (or forwards) falls through to the
// host routes: /health, /metrics when enabled, and the static fallback.
// There is no blanket timeout middleware here: the engine enforces its own
// gateway timeout, and a wrapper would break connection hijacking for
// WebSocket upgrades.
func NewRouter(cfg *config.Config, eng *engine.Engine) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(eng.Middleware)

	r.Method(http.MethodGet, "/health", newHealthHandler(Version))

	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			metrics.GetRegistry(),
			promhttp.HandlerOpts{},
		))
	}

	// Forwarded and unclaimed requests end up here. With a static directory
	// configured the server doubles as a plain file host for frontend
	// assets; otherwise chi's own 404 answers.
	if cfg.Server.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.Server.StaticDir))
		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				http.Error(w, "405 method not allowed", http.StatusMethodNotAllowed)
				return
			}
			fileServer.ServeHTTP(w, req)
		})
	}

	return r
}

// requestLogger logs every request through the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//
// It also stores a logger.RequestContext in the request context, so log
// lines emitted inside the engine carry the same request ID as the access
// log. Health and metrics probes complete at DEBUG level to reduce noise.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("request started",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyFullPath, r.URL.Path,
			logger.KeyRemoteAddr, r.RemoteAddr,
		)

		r = r.WithContext(logger.WithContext(r.Context(), &logger.RequestContext{
			RequestID:  requestID,
			Method:     r.Method,
			Path:       r.URL.Path,
			RemoteAddr: r.RemoteAddr,
		}))

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyFullPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyBytes, ww.BytesWritten(),
			logger.KeyDurationMs, duration.Milliseconds(),
		}

		if isProbePath(r.URL.Path) {
			logger.Debug("request completed", logArgs...)
		} else {
			logger.Info("request completed", logArgs...)
		}
	})
}

func isProbePath(path string) bool {
	return path == "/health" || path == "/metrics"
}
