package listing

import (
	"reflect"
	"sort"
	"strings"
)

// Apply filters, sorts and pages a decoded JSON array. The returned total is
// the number of elements after filtering, before skip and limit: the value
// reported in X-Total-Elements. The input slice is never mutated.
func Apply(items []any, preds []Predicate, page *PageRequest) ([]any, int) {
	out := items
	if len(preds) > 0 {
		out = make([]any, 0, len(items))
		for _, item := range items {
			if matchAll(preds, item) {
				out = append(out, item)
			}
		}
	}

	total := len(out)
	if page == nil {
		return out, total
	}

	if page.SortKey != "" {
		sorted := make([]any, len(out))
		copy(sorted, out)
		sortItems(sorted, page.SortKey, page.Descending)
		out = sorted
	}

	if page.Skip > 0 {
		if page.Skip >= len(out) {
			out = out[len(out):]
		} else {
			out = out[page.Skip:]
		}
	}
	if page.Limit >= 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, total
}

// MatchIndexes returns the original indexes of the elements a DELETE would
// remove: every predicate match, narrowed by the paging window when one is
// present. Indexes are returned in ascending order.
func MatchIndexes(items []any, preds []Predicate, page *PageRequest) []int {
	type entry struct {
		idx  int
		item any
	}

	var matched []entry
	for i, item := range items {
		if matchAll(preds, item) {
			matched = append(matched, entry{idx: i, item: item})
		}
	}

	if page != nil {
		if page.SortKey != "" {
			sort.SliceStable(matched, func(i, j int) bool {
				c := compareValues(fieldOrNil(matched[i].item, page.SortKey), fieldOrNil(matched[j].item, page.SortKey))
				if page.Descending {
					return c > 0
				}
				return c < 0
			})
		}
		if page.Skip > 0 {
			if page.Skip >= len(matched) {
				matched = matched[len(matched):]
			} else {
				matched = matched[page.Skip:]
			}
		}
		if page.Limit >= 0 && page.Limit < len(matched) {
			matched = matched[:page.Limit]
		}
	}

	idxs := make([]int, 0, len(matched))
	for _, e := range matched {
		idxs = append(idxs, e.idx)
	}
	sort.Ints(idxs)
	return idxs
}

func matchAll(preds []Predicate, item any) bool {
	for i := range preds {
		if !preds[i].Match(item) {
			return false
		}
	}
	return true
}

// Match tests a single element against the predicate.
func (p *Predicate) Match(item any) bool {
	val, found := fieldAt(item, p.rule.Key)

	if p.rule.Type == TypeFunction {
		if p.rule.Func == nil {
			return false
		}
		return p.rule.Func(val, p.raw)
	}

	switch p.rule.Comparison {
	case CmpEq:
		return found && equals(val, p.value, p.rule.Type)
	case CmpNe:
		return !found || !equals(val, p.value, p.rule.Type)
	case CmpLt, CmpLte, CmpGt, CmpGte:
		if !found {
			return false
		}
		c, ok := orderCompare(val, p.value, p.rule.Type)
		if !ok {
			return false
		}
		switch p.rule.Comparison {
		case CmpLt:
			return c < 0
		case CmpLte:
			return c <= 0
		case CmpGt:
			return c > 0
		default:
			return c >= 0
		}
	case CmpIn:
		return found && membership(val, p.value, p.rule.Type)
	case CmpNin:
		return !found || !membership(val, p.value, p.rule.Type)
	case CmpRegex:
		return found && p.re != nil && p.re.MatchString(asString(val))
	default:
		return false
	}
}

// scalarOf strips the array suffix from a value type.
func scalarOf(t ValueType) ValueType {
	s := strings.TrimSuffix(string(t), "[]")
	return ValueType(s)
}

// equals compares a document value with a coerced filter value under the
// rule's type.
func equals(docVal, filterVal any, t ValueType) bool {
	if filterArr, ok := filterVal.([]any); ok {
		docArr, ok := docVal.([]any)
		if !ok || len(docArr) != len(filterArr) {
			return false
		}
		elem := scalarOf(t)
		for i := range filterArr {
			if !equals(docArr[i], filterArr[i], elem) {
				return false
			}
		}
		return true
	}

	switch t {
	case TypeNumber:
		n, err := toNumber(docVal)
		if err != nil {
			return false
		}
		return n == filterVal.(float64)
	case TypeBoolean:
		b, err := toBool(docVal)
		if err != nil {
			return false
		}
		return b == filterVal.(bool)
	case TypeDate:
		e, err := toEpochMillis(docVal)
		if err != nil {
			return false
		}
		return e == filterVal.(int64)
	case TypeString, "":
		return asString(docVal) == filterVal.(string)
	default:
		return reflect.DeepEqual(docVal, filterVal)
	}
}

// orderCompare returns the sign of docVal - filterVal under the rule's type.
func orderCompare(docVal, filterVal any, t ValueType) (int, bool) {
	switch t {
	case TypeDate:
		d, err := toEpochMillis(docVal)
		if err != nil {
			return 0, false
		}
		f := filterVal.(int64)
		switch {
		case d < f:
			return -1, true
		case d > f:
			return 1, true
		default:
			return 0, true
		}
	case TypeString:
		return strings.Compare(asString(docVal), filterVal.(string)), true
	default:
		d, err := toNumber(docVal)
		if err != nil {
			return 0, false
		}
		f, ok := filterVal.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case d < f:
			return -1, true
		case d > f:
			return 1, true
		default:
			return 0, true
		}
	}
}

// membership implements in/nin. When both sides are arrays, every element of
// the filter value must appear in the document array; otherwise plain
// membership of the scalar side in the array side.
func membership(docVal, filterVal any, t ValueType) bool {
	elem := scalarOf(t)
	docArr, docIsArr := docVal.([]any)
	filterArr, filterIsArr := filterVal.([]any)

	switch {
	case docIsArr && filterIsArr:
		for _, fv := range filterArr {
			if !containsValue(docArr, fv, elem) {
				return false
			}
		}
		return true
	case docIsArr:
		return containsValue(docArr, filterVal, elem)
	case filterIsArr:
		for _, fv := range filterArr {
			if equals(docVal, fv, elem) {
				return true
			}
		}
		return false
	default:
		return equals(docVal, filterVal, elem)
	}
}

func containsValue(arr []any, filterVal any, elem ValueType) bool {
	for _, v := range arr {
		if equals(v, filterVal, elem) {
			return true
		}
	}
	return false
}

// fieldAt walks a dot path into decoded JSON.
func fieldAt(item any, path string) (any, bool) {
	cur := item
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func fieldOrNil(item any, key string) any {
	v, _ := fieldAt(item, key)
	return v
}

// sortItems stably sorts by a top-level field. Dot paths are not supported
// in sort keys.
func sortItems(items []any, key string, descending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		c := compareValues(topLevelField(items[i], key), topLevelField(items[j], key))
		if descending {
			return c > 0
		}
		return c < 0
	})
}

func topLevelField(item any, key string) any {
	m, ok := item.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

// compareValues orders two document values: numbers numerically, strings
// lexicographically, bools false-first, nil before everything. Mixed types
// fall back to their string forms.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	an, aErr := toNumber(a)
	bn, bErr := toNumber(b)
	if aErr == nil && bErr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs)
	}

	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}

	return strings.Compare(asString(a), asString(b))
}
