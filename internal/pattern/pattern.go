// Package pattern implements Ant-style path patterns for route matching.
//
// Grammar per segment: a literal (matched case-sensitively), `{name}` (matches
// one non-empty segment and captures it), `*` (matches within a single
// segment, also usable embedded as in `report-*.json`), and `**` (matches zero
// or more whole segments). Matching is anchored at both ends.
package pattern

import (
	"fmt"
	"strings"
)

// Param is a single captured path parameter.
type Param struct {
	Name  string
	Value string
}

// Pattern is a compiled path pattern, safe for concurrent use.
type Pattern struct {
	raw   string
	segs  []string
	names []string
}

// Compile parses and validates a pattern. Patterns must start with "/".
func Compile(raw string) (*Pattern, error) {
	if raw == "" || raw[0] != '/' {
		return nil, fmt.Errorf("pattern %q must start with '/'", raw)
	}

	segs := strings.Split(raw, "/")
	var names []string
	seen := make(map[string]struct{})

	for _, seg := range segs {
		name, err := paramName(seg)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", raw, err)
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("pattern %q: duplicate parameter {%s}", raw, name)
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return &Pattern{raw: raw, segs: segs, names: names}, nil
}

// MustCompile is like Compile but panics on error. Intended for
// statically-known patterns in option literals.
func MustCompile(raw string) *Pattern {
	p, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// paramName returns the parameter name declared by a segment, or "" when the
// segment is not a capture. Braces anywhere else in a segment are invalid.
func paramName(seg string) (string, error) {
	open := strings.IndexByte(seg, '{')
	if open == -1 {
		if strings.IndexByte(seg, '}') != -1 {
			return "", fmt.Errorf("unmatched '}' in segment %q", seg)
		}
		return "", nil
	}
	if open != 0 || seg[len(seg)-1] != '}' {
		return "", fmt.Errorf("parameter must span the whole segment in %q", seg)
	}
	name := seg[1 : len(seg)-1]
	if name == "" {
		return "", fmt.Errorf("empty parameter name in segment %q", seg)
	}
	if strings.ContainsAny(name, "{}*/") {
		return "", fmt.Errorf("invalid parameter name %q", name)
	}
	return name, nil
}

// String returns the original pattern text.
func (p *Pattern) String() string {
	return p.raw
}

// Names returns the declared parameter names in order of appearance.
func (p *Pattern) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Match tests path against the pattern. On success it returns the captured
// parameters (nil when the pattern declares none) and true.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	params, ok := matchSegments(p.segs, strings.Split(path, "/"))
	if !ok {
		return nil, false
	}
	if len(params) == 0 {
		return nil, true
	}
	out := make(map[string]string, len(params))
	for _, kv := range params {
		out[kv.Name] = kv.Value
	}
	return out, true
}

// Matches reports whether path matches without materialising parameters.
func (p *Pattern) Matches(path string) bool {
	_, ok := matchSegments(p.segs, strings.Split(path, "/"))
	return ok
}

// Expand substitutes captured parameters back into the pattern. Segments
// without a capture are emitted verbatim, so a round trip through Match and
// Expand reproduces the path for wildcard-free patterns.
func (p *Pattern) Expand(params map[string]string) string {
	var b strings.Builder
	for i, seg := range p.segs {
		if i > 0 {
			b.WriteByte('/')
		}
		if name, _ := paramName(seg); name != "" {
			b.WriteString(params[name])
			continue
		}
		b.WriteString(seg)
	}
	return b.String()
}

// matchSegments matches pattern segments against path segments with
// backtracking for `**`. Captures are assembled on the success path only, so
// abandoned branches never leak parameters.
func matchSegments(pat, path []string) ([]Param, bool) {
	if len(pat) == 0 {
		return nil, len(path) == 0
	}

	head := pat[0]
	if head == "**" {
		// Greedy would also work; first-success keeps captures deterministic.
		for i := 0; i <= len(path); i++ {
			if params, ok := matchSegments(pat[1:], path[i:]); ok {
				return params, true
			}
		}
		return nil, false
	}

	if len(path) == 0 {
		return nil, false
	}

	name, value, ok := matchSegment(head, path[0])
	if !ok {
		return nil, false
	}
	params, ok := matchSegments(pat[1:], path[1:])
	if !ok {
		return nil, false
	}
	if name != "" {
		return append([]Param{{Name: name, Value: value}}, params...), true
	}
	return params, true
}

// matchSegment matches a single pattern segment against a single path
// segment. It returns the captured name/value when the segment is a `{name}`
// capture.
func matchSegment(pat, seg string) (name, value string, ok bool) {
	if n, _ := paramName(pat); n != "" {
		if seg == "" {
			return "", "", false
		}
		return n, seg, true
	}
	if strings.IndexByte(pat, '*') != -1 {
		return "", "", globMatch(pat, seg)
	}
	return "", "", pat == seg
}

// globMatch matches a segment-local glob where '*' stands for any run of
// characters. Standard two-pointer scan with a single backtrack point.
func globMatch(pat, s string) bool {
	pi, si := 0, 0
	star, mark := -1, 0

	for si < len(s) {
		switch {
		case pi < len(pat) && pat[pi] == '*':
			star, mark = pi, si
			pi++
		case pi < len(pat) && pat[pi] == s[si]:
			pi++
			si++
		case star != -1:
			mark++
			pi, si = star+1, mark
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat)
}
