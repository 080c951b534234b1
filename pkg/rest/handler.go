package rest

import (
	"fmt"
	"strings"
	"time"

	"github.com/devmock/devmock/internal/pattern"
	"github.com/devmock/devmock/pkg/listing"
)

// HandlerFunc is a custom route implementation. A successful handler must
// complete the response before returning; returning without writing is
// reported as a 500.
type HandlerFunc func(req *Request, res *ResponseWriter) error

// PostHandler runs after filesystem resolution with the resolved file
// contents (nil when nothing resolved) and owns the response.
type PostHandler func(req *Request, res *ResponseWriter, file []byte) error

// PathFunc rewrites the lookup path before filesystem resolution.
type PathFunc func(path string) string

// Replacement is one literal substitution applied to the lookup path; the
// first occurrence of Search is replaced.
type Replacement struct {
	Search  string `json:"search" mapstructure:"search"`
	Replace string `json:"replace" mapstructure:"replace"`
}

// FilesystemHandle configures a filesystem-delegate handler: an optional
// pre-transform of the lookup path and an optional post-handler that owns
// the response.
type FilesystemHandle struct {
	PreReplace []Replacement
	PreFunc    PathFunc
	Post       PostHandler
}

// TransformPath applies the pre-transform. The function form wins over the
// replacement list; replacements apply in order, first occurrence each.
func (f *FilesystemHandle) TransformPath(path string) string {
	if f == nil {
		return path
	}
	if f.PreFunc != nil {
		return f.PreFunc(path)
	}
	for _, r := range f.PreReplace {
		path = strings.Replace(path, r.Search, r.Replace, 1)
	}
	return path
}

// Handler describes one REST route. Exactly one of FS and Func must be set:
// FS delegates to the filesystem engine with the handle's transforms bound,
// Func answers the request itself.
type Handler struct {
	Pattern  string
	Method   string
	Disabled bool

	// Delay postpones handler invocation; overrides the global delay.
	Delay time.Duration

	// Parser overrides the global parser configuration for this route.
	Parser *ParserConfig

	FS   *FilesystemHandle
	Func HandlerFunc

	Pagination *listing.Pagination
	Filters    *listing.Filters

	compiled *pattern.Pattern
}

// Compile validates the descriptor and compiles its pattern. Must be called
// before Match; the engine does this once at startup.
func (h *Handler) Compile() error {
	if h.Pattern == "" {
		return fmt.Errorf("handler pattern is required")
	}
	if h.Method == "" {
		return fmt.Errorf("handler %q: method is required", h.Pattern)
	}
	if (h.FS == nil) == (h.Func == nil) {
		return fmt.Errorf("handler %s %q: exactly one of FS and Func must be set", h.Method, h.Pattern)
	}

	h.Method = strings.ToUpper(h.Method)
	p, err := pattern.Compile(h.Pattern)
	if err != nil {
		return fmt.Errorf("handler %s: %w", h.Method, err)
	}
	h.compiled = p
	return nil
}

// Match tests a prefix-stripped path against the compiled pattern.
func (h *Handler) Match(path string) (map[string]string, bool) {
	if h.compiled == nil {
		return nil, false
	}
	return h.compiled.Match(path)
}

// IsFilesystem reports whether the handler delegates to the filesystem
// engine.
func (h *Handler) IsFilesystem() bool {
	return h.FS != nil
}
