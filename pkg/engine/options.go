// Package engine assembles the mock backend's three surfaces behind a set
// of URL prefixes: programmatic REST handlers with a middleware chain, the
// filesystem-backed REST API, and WebSocket endpoints.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/devmock/devmock/pkg/listing"
	"github.com/devmock/devmock/pkg/metrics"
	"github.com/devmock/devmock/pkg/rest"
	"github.com/devmock/devmock/pkg/ws"
)

// UnmatchedAction decides what happens to a request under a configured
// prefix that neither a handler nor the filesystem can answer.
type UnmatchedAction string

const (
	// UnmatchedNotFound writes a 404 error envelope.
	UnmatchedNotFound UnmatchedAction = "404"
	// UnmatchedForward hands the request back to the host's next handler.
	UnmatchedForward UnmatchedAction = "forward"
)

// MethodAll keys a pagination or filter config that applies to every
// method without its own entry.
const MethodAll = "ALL"

// Options configures an Engine. New reads the struct once; it is never
// mutated afterwards.
type Options struct {
	// Disabled turns the engine into a pass-through.
	Disabled bool

	// Prefixes are the URL prefixes the engine claims, e.g. "/api". A
	// request matches when its path equals a prefix or continues it past a
	// slash.
	Prefixes []string

	// FSDir is the root of the mock tree. Empty disables the filesystem
	// surface.
	FSDir string

	// EnableWS turns on upgrade handling under the prefixes.
	EnableWS bool

	// Delay postpones every response. Handlers may override it.
	Delay time.Duration

	// GatewayTimeout bounds the whole pipeline per request; on expiry the
	// response becomes a 504 envelope. Zero disables the timer.
	GatewayTimeout time.Duration

	// Parser is the global body parser configuration; handlers may carry
	// their own.
	Parser *rest.ParserConfig

	// Middlewares and ErrorMiddlewares run around every matched handler.
	Middlewares      []rest.Middleware
	ErrorMiddlewares []rest.ErrorMiddleware

	// Handlers are scanned in declaration order; the first pattern and
	// method match wins.
	Handlers []*rest.Handler

	// WSHandlers are scanned in declaration order against the
	// prefix-stripped upgrade path.
	WSHandlers []*ws.Handler

	// Pagination and Filters apply to filesystem responses, keyed by upper
	// case method or MethodAll. Handler-level configs take precedence.
	Pagination map[string]*listing.Pagination
	Filters    map[string]*listing.Filters

	// Unmatched defaults to UnmatchedNotFound.
	Unmatched UnmatchedAction

	// Metrics and WSMetrics are optional observability sinks; nil disables
	// collection with zero overhead.
	Metrics   metrics.EngineMetrics
	WSMetrics metrics.WSMetrics
}

// normalize validates the options in place and compiles every handler
// pattern. An empty prefix list after normalization disables the engine.
func (o *Options) normalize() error {
	prefixes := make([]string, 0, len(o.Prefixes))
	for _, p := range o.Prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		prefixes = append(prefixes, p)
	}
	o.Prefixes = prefixes
	if len(o.Prefixes) == 0 {
		o.Disabled = true
	}

	switch o.Unmatched {
	case "":
		o.Unmatched = UnmatchedNotFound
	case UnmatchedNotFound, UnmatchedForward:
	default:
		return fmt.Errorf("unmatched request action %q is not supported", o.Unmatched)
	}

	for _, h := range o.Handlers {
		if err := h.Compile(); err != nil {
			return err
		}
	}
	for _, h := range o.WSHandlers {
		if err := h.Compile(); err != nil {
			return err
		}
	}

	o.Pagination = upperMethodKeys(o.Pagination)
	o.Filters = upperMethodKeys(o.Filters)
	return nil
}

func upperMethodKeys[V any](in map[string]V) map[string]V {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]V, len(in))
	for method, v := range in {
		out[strings.ToUpper(method)] = v
	}
	return out
}
