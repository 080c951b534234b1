// Package listing implements pagination, sorting and filtering over decoded
// JSON arrays. Directive values are read from the query string or the parsed
// request body according to configuration, then applied to array resources
// served from the mock tree.
package listing

import "errors"

// ErrBadRequest marks directive errors caused by the client (negative skip,
// unparseable limit, invalid order token, bad regex). Callers map it to a
// 400 response.
var ErrBadRequest = errors.New("bad request")

// Source selects where directive values are read from.
type Source string

const (
	SourceQuery Source = "query"
	SourceBody  Source = "body"
)

// Mode controls how a per-handler config combines with the global config for
// the same axis.
type Mode string

const (
	// ModeExclusive uses only the handler config, ignoring the global one.
	ModeExclusive Mode = "exclusive"
	// ModeInclusive merges the handler config with the global one: filter
	// rules are concatenated, pagination fields resolve handler-first.
	ModeInclusive Mode = "inclusive"
	// ModeNone disables the axis for the handler entirely.
	ModeNone Mode = "none"
)

// ValueType drives coercion of a filter value before comparison.
type ValueType string

const (
	TypeString       ValueType = "string"
	TypeNumber       ValueType = "number"
	TypeBoolean      ValueType = "boolean"
	TypeDate         ValueType = "date"
	TypeStringArray  ValueType = "string[]"
	TypeNumberArray  ValueType = "number[]"
	TypeBooleanArray ValueType = "boolean[]"
	TypeDateArray    ValueType = "date[]"
	TypeFunction     ValueType = "function"
)

// Comparison selects the operator a rule applies.
type Comparison string

const (
	CmpEq    Comparison = "eq"
	CmpNe    Comparison = "ne"
	CmpLt    Comparison = "lt"
	CmpLte   Comparison = "lte"
	CmpGt    Comparison = "gt"
	CmpGte   Comparison = "gte"
	CmpIn    Comparison = "in"
	CmpNin   Comparison = "nin"
	CmpRegex Comparison = "regex"
)

// Func implements a custom rule. It receives the document value at the
// rule's key (nil when absent) and the raw request value; returning true
// keeps the element.
type Func func(value any, raw any) bool

// Rule describes one filter. Key names both the request field that activates
// the rule and the document field (dot paths allowed) it compares against.
type Rule struct {
	Key        string     `json:"key" mapstructure:"key"`
	Type       ValueType  `json:"type" mapstructure:"type"`
	Comparison Comparison `json:"comparison" mapstructure:"comparison"`
	RegexFlags string     `json:"regexFlags,omitempty" mapstructure:"regexFlags"`
	Func       Func       `json:"-" mapstructure:"-"`
}

// Pagination names the request fields carrying paging directives. An empty
// field name means the directive is not configured.
type Pagination struct {
	Mode   Mode   `json:"mode,omitempty" mapstructure:"mode"`
	Source Source `json:"source,omitempty" mapstructure:"source"`
	Root   string `json:"root,omitempty" mapstructure:"root"`
	Limit  string `json:"limit,omitempty" mapstructure:"limit"`
	Skip   string `json:"skip,omitempty" mapstructure:"skip"`
	Sort   string `json:"sort,omitempty" mapstructure:"sort"`
	Order  string `json:"order,omitempty" mapstructure:"order"`
}

// Filters carries the filter rules for one handler or method.
type Filters struct {
	Mode   Mode   `json:"mode,omitempty" mapstructure:"mode"`
	Source Source `json:"source,omitempty" mapstructure:"source"`
	Root   string `json:"root,omitempty" mapstructure:"root"`
	Rules  []Rule `json:"rules" mapstructure:"rules"`
}

// ResolvePagination combines a handler-level config with the global one for
// the request's method. A nil result means the axis is disabled.
func ResolvePagination(handler, global *Pagination) *Pagination {
	if handler == nil {
		return global
	}
	switch handler.Mode {
	case ModeNone:
		return nil
	case ModeInclusive:
		if global == nil {
			return handler
		}
		merged := *handler
		if merged.Source == "" {
			merged.Source = global.Source
		}
		if merged.Root == "" {
			merged.Root = global.Root
		}
		if merged.Limit == "" {
			merged.Limit = global.Limit
		}
		if merged.Skip == "" {
			merged.Skip = global.Skip
		}
		if merged.Sort == "" {
			merged.Sort = global.Sort
		}
		if merged.Order == "" {
			merged.Order = global.Order
		}
		return &merged
	default:
		// Exclusive is the default when the mode is unset.
		return handler
	}
}

// ResolveFilters combines a handler-level config with the global one. With
// mode=inclusive the global rules run first and the handler's are appended.
func ResolveFilters(handler, global *Filters) *Filters {
	if handler == nil {
		return global
	}
	switch handler.Mode {
	case ModeNone:
		return nil
	case ModeInclusive:
		if global == nil {
			return handler
		}
		merged := *handler
		if merged.Source == "" {
			merged.Source = global.Source
		}
		if merged.Root == "" {
			merged.Root = global.Root
		}
		merged.Rules = append(append([]Rule{}, global.Rules...), handler.Rules...)
		return &merged
	default:
		return handler
	}
}
