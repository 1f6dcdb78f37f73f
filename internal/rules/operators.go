// internal/rules/operators.go
package rules

import (
	"fmt"
	"strings"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Compare handles a value that resolved (present, possibly null). The
 * absent case is decided by the evaluator before dispatch.
 *
 * Operator families:
 *   - eq/ne: loose equality (see coercion.go)
 *   - gt/lt/gte/lte: both sides numeric, otherwise false
 *   - contains/not_contains/starts_with/ends_with: both sides string,
 *     otherwise false (not_contains included: a type mismatch is not a
 *     successful negative match)
 *   - is_empty/is_not_empty: null or "" check; literal ignored
 *
 * The dispatch table is package-level and read-only after init, so it is
 * safe to share between concurrent evaluations.
 */

type compareFunc func(actual any, target types.Literal) bool

var dispatch = map[types.Operator]compareFunc{
	types.OpEq:          func(a any, t types.Literal) bool { return looseEqual(a, t.Value()) },
	types.OpNe:          func(a any, t types.Literal) bool { return !looseEqual(a, t.Value()) },
	types.OpGt:          numeric(func(a, b float64) bool { return a > b }),
	types.OpLt:          numeric(func(a, b float64) bool { return a < b }),
	types.OpGte:         numeric(func(a, b float64) bool { return a >= b }),
	types.OpLte:         numeric(func(a, b float64) bool { return a <= b }),
	types.OpContains:    text(strings.Contains),
	types.OpNotContains: text(func(s, sub string) bool { return !strings.Contains(s, sub) }),
	types.OpStartsWith:  text(strings.HasPrefix),
	types.OpEndsWith:    text(strings.HasSuffix),
	types.OpIsEmpty:     func(a any, _ types.Literal) bool { return isEmpty(a) },
	types.OpIsNotEmpty:  func(a any, _ types.Literal) bool { return !isEmpty(a) },
}

// Compare applies op to a resolved value and the rule literal.
// Returns ErrUnknownOperator for operators outside the closed set and
// ErrMalformedRule for non-scalar literals on value-taking operators.
func Compare(op types.Operator, actual any, target types.Literal) (bool, error) {
	fn, ok := dispatch[op]
	if !ok {
		return false, fmt.Errorf("%w: %q", types.ErrUnknownOperator, op)
	}
	if op.TakesValue() && target.Kind() == types.LiteralInvalid {
		return false, fmt.Errorf("%w: non-scalar value for %s", types.ErrMalformedRule, op)
	}
	return fn(actual, target), nil
}

// numeric wraps an ordering predicate with the strict numeric type guard.
func numeric(pred func(a, b float64) bool) compareFunc {
	return func(actual any, target types.Literal) bool {
		if target.Kind() != types.LiteralNumber {
			return false
		}
		a, ok := toFloat64(actual)
		if !ok {
			return false
		}
		return pred(a, target.Value().(float64))
	}
}

// text wraps a string predicate with the string type guard.
func text(pred func(s, arg string) bool) compareFunc {
	return func(actual any, target types.Literal) bool {
		s, ok := actual.(string)
		if !ok || target.Kind() != types.LiteralString {
			return false
		}
		return pred(s, target.Value().(string))
	}
}
