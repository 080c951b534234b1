package listing

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FieldSource yields the raw value of a named request field. Query-sourced
// values are strings; body-sourced values are decoded JSON. A field is
// present only when ok is true and the value is not the empty string.
type FieldSource func(field string) (value any, ok bool)

// PageRequest holds the paging directives extracted from one request.
// Limit and Skip are -1 when not provided.
type PageRequest struct {
	Limit      int
	Skip       int
	SortKey    string
	Descending bool
}

var ascendingTokens = map[string]bool{
	"ASC": true, "1": true, "true": true,
	"DESC": false, "-1": false, "false": false,
}

// Extract reads the paging directives named by the config. Returns nil when
// the config is nil or none of the named fields are present.
func (p *Pagination) Extract(src FieldSource) (*PageRequest, error) {
	if p == nil {
		return nil, nil
	}

	req := &PageRequest{Limit: -1, Skip: -1}
	found := false

	if raw, ok := fieldValue(src, p.Limit); ok {
		n, err := toCount(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: limit value %v is not a valid number", ErrBadRequest, raw)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: limit value must not be negative", ErrBadRequest)
		}
		req.Limit = n
		found = true
	}

	if raw, ok := fieldValue(src, p.Skip); ok {
		n, err := toCount(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: skip value %v is not a valid number", ErrBadRequest, raw)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: skip value must not be negative", ErrBadRequest)
		}
		req.Skip = n
		found = true
	}

	if raw, ok := fieldValue(src, p.Sort); ok {
		req.SortKey = asString(raw)
		found = true
	}

	if raw, ok := fieldValue(src, p.Order); ok {
		token := asString(raw)
		asc, valid := ascendingTokens[token]
		if !valid {
			return nil, fmt.Errorf("%w: order value %q not allowed (expected ASC, DESC, 1, -1, true or false)", ErrBadRequest, token)
		}
		req.Descending = !asc
		found = true
	}

	if !found {
		return nil, nil
	}
	return req, nil
}

// Predicate is one compiled filter, ready to test elements.
type Predicate struct {
	rule  Rule
	value any
	raw   any
	re    *regexp.Regexp
}

// Compile resolves the active rules for this request: a rule participates
// only when its request field is present and non-empty. Regex patterns are
// compiled here, once per request.
func (f *Filters) Compile(src FieldSource) ([]Predicate, error) {
	if f == nil {
		return nil, nil
	}

	var preds []Predicate
	for _, rule := range f.Rules {
		raw, ok := fieldValue(src, rule.Key)
		if !ok {
			continue
		}

		pred := Predicate{rule: rule, raw: raw}

		if rule.Comparison == CmpRegex {
			re, err := compileRegex(asString(raw), rule.RegexFlags)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid regex for filter %q: %v", ErrBadRequest, rule.Key, err)
			}
			pred.re = re
			preds = append(preds, pred)
			continue
		}

		value, err := coerce(raw, rule.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: filter %q: %v", ErrBadRequest, rule.Key, err)
		}
		pred.value = value
		preds = append(preds, pred)
	}
	return preds, nil
}

// fieldValue applies the presence rule: missing fields and empty strings are
// both absent.
func fieldValue(src FieldSource, field string) (any, bool) {
	if field == "" || src == nil {
		return nil, false
	}
	v, ok := src(field)
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

// compileRegex translates the i, m and s flags into Go's inline syntax.
func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", string(f))
		}
	}
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// coerce converts a raw request value into the rule's declared type. Array
// types split string input on commas; body-sourced arrays are used as-is.
func coerce(raw any, t ValueType) (any, error) {
	switch t {
	case TypeString, "":
		return asString(raw), nil
	case TypeNumber:
		return toNumber(raw)
	case TypeBoolean:
		return toBool(raw)
	case TypeDate:
		return toEpochMillis(raw)
	case TypeStringArray:
		return coerceArray(raw, TypeString)
	case TypeNumberArray:
		return coerceArray(raw, TypeNumber)
	case TypeBooleanArray:
		return coerceArray(raw, TypeBoolean)
	case TypeDateArray:
		return coerceArray(raw, TypeDate)
	case TypeFunction:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown value type %q", t)
	}
}

func coerceArray(raw any, elem ValueType) ([]any, error) {
	var parts []any
	switch v := raw.(type) {
	case []any:
		parts = v
	case string:
		for _, s := range strings.Split(v, ",") {
			parts = append(parts, s)
		}
	default:
		parts = []any{raw}
	}

	out := make([]any, 0, len(parts))
	for _, p := range parts {
		c, err := coerce(p, elem)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// asString renders any request or document value as a string.
func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func toNumber(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v is not a number", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch x {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, fmt.Errorf("value %q is not a boolean", x)
	default:
		return false, fmt.Errorf("value %v is not a boolean", v)
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toEpochMillis normalises date representations to epoch milliseconds.
// Numeric input is taken as epoch milliseconds already.
func toEpochMillis(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case float64:
		return int64(x), nil
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return n, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UnixMilli(), nil
			}
		}
		return 0, fmt.Errorf("value %q is not a date", x)
	default:
		return 0, fmt.Errorf("value %v is not a date", v)
	}
}

// toCount parses limit/skip values, rejecting fractions.
func toCount(v any) (int, error) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, err
		}
		return int(n), nil
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("value %v is not an integer", x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
}
