// Package audience decides whether a user's properties satisfy a flow's
// userProperties matchers.
package audience

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/petrijr/waypoint/internal/trigger"
	"github.com/petrijr/waypoint/pkg/api"
)

// Properties are the current user's properties.
type Properties map[string]any

// Match reports whether at least one group matches. A flow without groups
// targets everyone.
func Match(groups api.UserPropertyGroups, props Properties) bool {
	if len(groups) == 0 {
		return true
	}
	for _, g := range groups {
		if MatchGroup(g, props) {
			return true
		}
	}
	return false
}

// MatchGroup reports whether every matcher of the group holds.
func MatchGroup(group api.UserPropertyGroup, props Properties) bool {
	for _, m := range group {
		if !matchOne(m, props[m.Key]) {
			return false
		}
	}
	return true
}

func matchOne(m api.UserPropertyMatch, value any) bool {
	if m.Regex != "" {
		s, ok := stringValue(value)
		if !ok || !trigger.MatchString(m.Regex, s) {
			return false
		}
	}
	if m.Eq != nil && !anyEqual(value, m.Eq) {
		return false
	}
	if m.Ne != nil && anyEqual(value, m.Ne) {
		return false
	}
	if m.Gt != nil && !compare(value, m.Gt, func(c int) bool { return c > 0 }) {
		return false
	}
	if m.Gte != nil && !compare(value, m.Gte, func(c int) bool { return c >= 0 }) {
		return false
	}
	if m.Lt != nil && !compare(value, m.Lt, func(c int) bool { return c < 0 }) {
		return false
	}
	if m.Lte != nil && !compare(value, m.Lte, func(c int) bool { return c <= 0 }) {
		return false
	}
	if m.Contains != nil && !containsAny(value, m.Contains) {
		return false
	}
	if m.NotContains != nil && containsAny(value, m.NotContains) {
		return false
	}
	return true
}

// list turns a scalar-or-list matcher operand into a slice.
func list(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func anyEqual(value, operand any) bool {
	for _, want := range list(operand) {
		if equal(value, want) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	if af, ok := number(a); ok {
		bf, ok := number(b)
		return ok && af == bf
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	as, aok := stringValue(a)
	bs, bok := stringValue(b)
	return aok && bok && as == bs
}

// compare orders value against operand as numbers, or as dates when both
// are times or RFC 3339 strings.
func compare(value, operand any, ok func(int) bool) bool {
	if a, aok := number(value); aok {
		if b, bok := number(operand); bok {
			return ok(cmpFloat(a, b))
		}
		return false
	}
	a, aok := date(value)
	b, bok := date(operand)
	if !aok || !bok {
		return false
	}
	return ok(a.Compare(b))
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func containsAny(value, operand any) bool {
	s, ok := stringValue(value)
	if !ok {
		return false
	}
	for _, sub := range list(operand) {
		if subs, ok := stringValue(sub); ok && strings.Contains(s, subs) {
			return true
		}
	}
	return false
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		if f, ok := number(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return "", false
	}
}

func date(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if d, err := time.Parse(time.RFC3339, t); err == nil {
			return d, true
		}
		if d, err := time.Parse(time.DateOnly, t); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
