package sandbox

import (
	"math"
	"time"
)

// Truthy coerces a snippet result to a verdict: false, 0, NaN, "" and null
// are false; every other value (including empty lists and maps) is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	case int64:
		return x != 0
	case int:
		return x != 0
	case uint64:
		return x != 0
	case string:
		return x != ""
	case time.Duration:
		return x != 0
	default:
		return true
	}
}
