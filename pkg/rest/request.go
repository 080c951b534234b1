package rest

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/devmock/devmock/pkg/listing"
)

// File is one uploaded multipart file, in the order it appeared in the body.
type File struct {
	FieldName   string
	Filename    string
	ContentType string
	Content     []byte
}

// Request carries one HTTP request through the middleware chain and the
// handlers. Body holds the parsed value: nil, string, bool, json.Number,
// map[string]any, []any, or []byte when parsing is disabled or the payload
// is binary.
type Request struct {
	Method  string
	URL     *url.URL
	Prefix  string            // the endpoint prefix that matched
	Path    string            // URL path with the prefix stripped
	Header  http.Header
	Params  map[string]string // captured path parameters
	Query   *QueryValues
	Body    any
	RawBody []byte
	Files   []File

	// Raw is the underlying request; its body is consumed by the parser.
	Raw *http.Request
}

// NewRequest wraps an incoming HTTP request. Prefix, Path and Params are
// assigned by the dispatcher once a prefix and handler are matched.
func NewRequest(r *http.Request) *Request {
	return &Request{
		Method: r.Method,
		URL:    r.URL,
		Path:   r.URL.Path,
		Header: r.Header,
		Query:  ParseQuery(r.URL.RawQuery),
		Raw:    r,
	}
}

// ContentType returns the Content-Type header value.
func (r *Request) ContentType() string {
	return r.Header.Get("Content-Type")
}

// HasBody reports whether parsing produced any payload.
func (r *Request) HasBody() bool {
	if r.Body == nil {
		return len(r.RawBody) > 0
	}
	if b, ok := r.Body.([]byte); ok {
		return len(b) > 0
	}
	if s, ok := r.Body.(string); ok {
		return s != ""
	}
	return true
}

// FieldSource returns a listing.FieldSource reading from the configured
// source: the query string, or the parsed body at the optional root path.
func (r *Request) FieldSource(source listing.Source, root string) listing.FieldSource {
	if source == listing.SourceBody {
		return r.bodySource(root)
	}
	return r.querySource()
}

func (r *Request) querySource() listing.FieldSource {
	return func(field string) (any, bool) {
		v, ok := r.Query.Get(field)
		if !ok {
			return nil, false
		}
		return v, true
	}
}

func (r *Request) bodySource(root string) listing.FieldSource {
	container, _ := r.Body.(map[string]any)
	if root != "" && container != nil {
		for _, part := range strings.Split(root, ".") {
			next, ok := container[part].(map[string]any)
			if !ok {
				container = nil
				break
			}
			container = next
		}
	}
	return func(field string) (any, bool) {
		if container == nil {
			return nil, false
		}
		v, ok := container[field]
		return v, ok
	}
}

// QueryValues is an ordered multi-map of query parameters. Order reflects
// first appearance in the raw query string.
type QueryValues struct {
	keys   []string
	values map[string][]string
}

// ParseQuery decodes a raw query string preserving parameter order.
// Undecodable escapes keep their literal form rather than failing the
// request.
func ParseQuery(rawQuery string) *QueryValues {
	q := &QueryValues{values: make(map[string][]string)}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		q.Add(key, value)
	}
	return q
}

// Add appends a value, registering the key on first use.
func (q *QueryValues) Add(key, value string) {
	if _, exists := q.values[key]; !exists {
		q.keys = append(q.keys, key)
	}
	q.values[key] = append(q.values[key], value)
}

// Get returns the first value for key.
func (q *QueryValues) Get(key string) (string, bool) {
	vs, ok := q.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns all values for key in order.
func (q *QueryValues) Values(key string) []string {
	return q.values[key]
}

// Has reports whether key appeared at all.
func (q *QueryValues) Has(key string) bool {
	_, ok := q.values[key]
	return ok
}

// Keys returns the parameter names in first-appearance order.
func (q *QueryValues) Keys() []string {
	out := make([]string, len(q.keys))
	copy(out, q.keys)
	return out
}

// Len returns the number of distinct keys.
func (q *QueryValues) Len() int {
	return len(q.keys)
}
