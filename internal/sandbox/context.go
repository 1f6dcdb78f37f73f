package sandbox

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

// Projection defaults.
const (
	DefaultClientTier = "standard"
	DefaultIndustry   = "unknown"
	DefaultRegion     = "unknown"
)

// maxCloneDepth bounds how deep customFields are copied. Deeper values
// become null, which also cuts reference cycles in caller-built records.
const maxCloneDepth = 32

// Context is the per-invocation view a snippet sees. Built fresh for each
// execution and never shared.
type Context struct {
	// Invoice is the coerced, defaulted projection exposed as `invoice`.
	Invoice map[string]any
}

// NewContext projects record into a snippet Context. The projection source
// is record["invoice"] when it is a map, otherwise the record itself.
// The record is never mutated; customFields is deep-copied.
func NewContext(record types.Record, now time.Time) *Context {
	src := record
	if inv, ok := record["invoice"].(map[string]any); ok {
		src = inv
	}

	return &Context{
		Invoice: map[string]any{
			"amount":       projectAmount(src["amount"]),
			"clientTier":   firstString(DefaultClientTier, src["clientTier"], src["tier"]),
			"industry":     firstString(DefaultIndustry, src["industry"]),
			"region":       firstString(DefaultRegion, src["region"]),
			"date":         projectDate(now, src["date"], src["invoiceDate"], src["dueDate"]),
			"customFields": projectCustomFields(src["customFields"]),
		},
	}
}

// Activation returns the variable bindings for the interpreter.
func (c *Context) Activation() map[string]any {
	return map[string]any{"invoice": c.Invoice}
}

// EstimatedBytes approximates the heap footprint of the projection.
func (c *Context) EstimatedBytes() int64 {
	return estimateSize(c.Invoice, 0)
}

func projectAmount(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case int16:
		f = float64(x)
	case int8:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint8:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	// ParseFloat accepts "NaN" and "Inf"
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// firstString returns the first non-blank string among vals, or def.
func firstString(def string, vals ...any) string {
	for _, v := range vals {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return def
}

// projectDate returns the first parseable date among vals, or now.
func projectDate(now time.Time, vals ...any) time.Time {
	for _, v := range vals {
		switch x := v.(type) {
		case time.Time:
			if !x.IsZero() {
				return x.UTC()
			}
		case string:
			if t, ok := parseDate(x); ok {
				return t
			}
		}
	}
	return now.UTC()
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func projectCustomFields(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return cloneValue(m, 0).(map[string]any)
}

// cloneValue deep-copies the JSON-shaped parts of v.
func cloneValue(v any, depth int) any {
	if depth > maxCloneDepth {
		return nil
	}
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val, depth+1)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = val
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = val
		}
		return out
	case nil, bool, string, float64, float32, int, int64, int32, uint64, uint32, time.Time:
		return x
	default:
		// Opaque host values are not exposed to snippets
		return nil
	}
}

// estimateSize approximates bytes held by a projected value.
func estimateSize(v any, depth int) int64 {
	if depth > maxCloneDepth {
		return 0
	}
	switch x := v.(type) {
	case map[string]any:
		size := int64(48)
		for k, val := range x {
			size += int64(len(k)) + 16 + estimateSize(val, depth+1)
		}
		return size
	case []any:
		size := int64(24)
		for _, val := range x {
			size += 16 + estimateSize(val, depth+1)
		}
		return size
	case string:
		return int64(len(x)) + 16
	case time.Time:
		return 24
	default:
		return 8
	}
}
