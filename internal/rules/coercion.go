// internal/rules/coercion.go
package rules

import (
	"strconv"
	"strings"
)

/*
 * Type coercion for rule evaluation.
 *
 * Two modes, chosen by operator family:
 *   - Strict numeric (gt/lt/gte/lte): only numeric Go kinds qualify. A
 *     numeric string never coerces, so {x:"5"} gt 5 is false.
 *   - Loose equality (eq/ne): numbers, numeric strings and booleans compare
 *     as numbers when the two sides are not the same scalar kind. This
 *     tolerates records assembled from mixed-typed sources (CSV imports,
 *     form posts) where 5 and "5" mean the same thing.
 *
 * Whitespace-only strings are not numbers in either mode.
 */

// toFloat64 converts numeric Go kinds to float64. Strings and booleans fail.
// Handles the shapes produced by encoding/json (float64) and yaml.v3 (int).
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint8:
		return float64(n), true
	default:
		return 0, false
	}
}

// looseNumber converts numbers, numeric strings and booleans to float64.
func looseNumber(v any) (float64, bool) {
	if f, ok := toFloat64(v); ok {
		return f, true
	}
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// looseEqual compares two present values with mixed-type tolerance.
// Same-kind strings and booleans compare directly; everything else falls
// back to numeric comparison. Lists and maps never compare equal.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return as == bs
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	na, oka := looseNumber(a)
	nb, okb := looseNumber(b)
	if !oka || !okb {
		return false
	}
	return na == nb
}

// isEmpty reports whether a present value counts as empty: null or "".
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
