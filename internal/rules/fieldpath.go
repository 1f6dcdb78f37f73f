// internal/rules/fieldpath.go
package rules

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

/*
 * Value accessor: dot-path reads into arbitrary nested records.
 *
 * Paths are dot-separated ("invoice.customer.tier"). A purely numeric
 * segment indexes into lists ("items.0.sku") and is also tried as a map key
 * when the current value is a map. Missing intermediate keys, nil values at
 * intermediate positions, out-of-range indices, and scalars with remaining
 * path all resolve to Absent. Resolution never panics and never mutates.
 *
 * Key functions:
 *   - ParsePath: Splits and validates a dot path into segments
 *   - Lookup: Resolves a path, reporting whether it was found
 *   - Get/Has: Accessor surface shared with the sandbox helpers
 *
 * Fast paths cover the shapes produced by encoding/json and yaml.v3
 * (map[string]any, []any). Other map/slice kinds fall back to reflection.
 */

// absent is the type of the Absent sentinel.
type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent is returned by Get for a path that does not resolve.
// Distinct from nil, which is a present null.
var Absent any = absent{}

// IsAbsent reports whether v is the Absent sentinel.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// PathSegment is one component of a dot path.
type PathSegment struct {
	Key     string // raw segment text; used for map lookup
	Index   int    // list index when IsIndex
	IsIndex bool   // segment is a non-negative integer
}

// ParsePath splits a dot path into segments.
// Returns ErrInvalidPath for empty paths or empty segments and
// ErrPathTooDeep when the path exceeds MaxPathDepth.
func ParsePath(path string) ([]PathSegment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", types.ErrInvalidPath)
	}
	parts := strings.Split(path, ".")
	if len(parts) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	segments := make([]PathSegment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", types.ErrInvalidPath, path)
		}
		seg := PathSegment{Key: p}
		if n, err := strconv.Atoi(p); err == nil && n >= 0 {
			seg.Index = n
			seg.IsIndex = true
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// Lookup resolves path against obj. The boolean is false when any segment
// is missing or the path is invalid.
func Lookup(obj any, path string) (any, bool) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	return Resolve(segments, obj)
}

// Get returns the value at path, or Absent when it does not resolve.
func Get(obj any, path string) any {
	v, ok := Lookup(obj, path)
	if !ok {
		return Absent
	}
	return v
}

// Has reports whether path resolves to a value (a present null counts).
func Has(obj any, path string) bool {
	_, ok := Lookup(obj, path)
	return ok
}

// Resolve walks pre-parsed segments through obj.
func Resolve(segments []PathSegment, obj any) (any, bool) {
	current := obj
	for _, seg := range segments {
		next, ok := step(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// step descends one segment. Returns false when the segment cannot apply.
func step(current any, seg PathSegment) (any, bool) {
	switch v := current.(type) {
	case nil:
		// Null value at intermediate position
		return nil, false
	case map[string]any:
		val, ok := v[seg.Key]
		return val, ok
	case map[string]string:
		val, ok := v[seg.Key]
		return val, ok
	case []any:
		if !seg.IsIndex || seg.Index >= len(v) {
			return nil, false
		}
		return v[seg.Index], true
	case string, bool, float64, float32, int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		// Scalar value but path continues
		return nil, false
	default:
		return stepReflect(reflect.ValueOf(current), seg)
	}
}

// stepReflect handles typed maps and slices not covered by the fast paths.
func stepReflect(rv reflect.Value, seg PathSegment) (any, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(seg.Key).Convert(rv.Type().Key()))
		if !val.IsValid() || !val.CanInterface() {
			return nil, false
		}
		return val.Interface(), true
	case reflect.Slice, reflect.Array:
		if !seg.IsIndex || seg.Index >= rv.Len() {
			return nil, false
		}
		val := rv.Index(seg.Index)
		if !val.CanInterface() {
			return nil, false
		}
		return val.Interface(), true
	default:
		return nil, false
	}
}
