// internal/rules/compile.go
package rules

import (
	"fmt"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

/*
 * Strict rule compilation for authoring tools.
 *
 * Runtime evaluation is tolerant: malformed rules evaluate to false with a
 * diagnostic. Compile is the strict counterpart used before a rule is saved
 * or activated, so authors learn about problems at creation time rather
 * than seeing a silent false in production.
 *
 * Checks, in order, stopping at the first error:
 *   1. Group count and per-group rule count limits
 *   2. Group logic is AND or OR (empty defaults to AND)
 *   3. Operator is in the closed set
 *   4. Field path parses and is within MaxPathDepth
 *   5. Literal shape fits the operator family
 *
 * Compiled rules keep pre-parsed path segments so repeated evaluation of a
 * stored rule skips path parsing. Rule and group order is preserved; unlike
 * a cost-ordered engine, authors rely on left-to-right short-circuiting.
 */

// Limits bounds the size of a rule tree.
type Limits struct {
	MaxGroups        int
	MaxRulesPerGroup int
}

// DefaultLimits returns the default tree size limits.
func DefaultLimits() Limits {
	return Limits{
		MaxGroups:        types.MaxGroups,
		MaxRulesPerGroup: types.MaxRulesPerGroup,
	}
}

// CompiledRule is a validated rule with its parsed path.
type CompiledRule struct {
	Rule types.ConditionRule
	Path []PathSegment
}

// CompiledGroup is a validated group with normalized logic.
type CompiledGroup struct {
	Logic types.GroupLogic
	Rules []CompiledRule
}

// CompiledConditions is a validated rule tree ready for evaluation.
type CompiledConditions struct {
	Groups []CompiledGroup
}

// Compile validates conds against limits.
func Compile(conds types.Conditions, limits Limits) (*CompiledConditions, error) {
	if len(conds) > limits.MaxGroups {
		return nil, fmt.Errorf("%w: %d groups exceeds limit of %d", types.ErrTooManyGroups, len(conds), limits.MaxGroups)
	}

	compiled := &CompiledConditions{Groups: make([]CompiledGroup, 0, len(conds))}
	for gi, group := range conds {
		if len(group.Rules) > limits.MaxRulesPerGroup {
			return nil, fmt.Errorf("group %d: %w: %d rules exceeds limit of %d",
				gi, types.ErrTooManyRules, len(group.Rules), limits.MaxRulesPerGroup)
		}
		if !group.GroupLogic.Valid() {
			return nil, fmt.Errorf("group %d: %w: %q", gi, types.ErrUnknownGroupLogic, group.GroupLogic)
		}

		cg := CompiledGroup{
			Logic: group.GroupLogic.Normalize(),
			Rules: make([]CompiledRule, 0, len(group.Rules)),
		}
		for ri, rule := range group.Rules {
			cr, err := compileRule(rule)
			if err != nil {
				return nil, fmt.Errorf("group %d rule %d: %w", gi, ri, err)
			}
			cg.Rules = append(cg.Rules, cr)
		}
		compiled.Groups = append(compiled.Groups, cg)
	}
	return compiled, nil
}

// compileRule validates one rule's operator, path and literal shape.
func compileRule(rule types.ConditionRule) (CompiledRule, error) {
	if !rule.Operator.Valid() {
		return CompiledRule{}, fmt.Errorf("%w: %q", types.ErrUnknownOperator, rule.Operator)
	}
	path, err := ParsePath(rule.Field)
	if err != nil {
		return CompiledRule{}, err
	}
	if err := checkLiteral(rule.Operator, rule.Value); err != nil {
		return CompiledRule{}, err
	}
	return CompiledRule{Rule: rule, Path: path}, nil
}

// checkLiteral enforces the operator family's literal type contract.
func checkLiteral(op types.Operator, lit types.Literal) error {
	if !op.TakesValue() {
		return nil
	}
	kind := lit.Kind()
	switch op {
	case types.OpEq, types.OpNe:
		if kind == types.LiteralInvalid {
			return fmt.Errorf("%w: %s needs a scalar value", types.ErrMalformedRule, op)
		}
	case types.OpGt, types.OpLt, types.OpGte, types.OpLte:
		if kind != types.LiteralNumber {
			return fmt.Errorf("%w: %s needs a number, got %s", types.ErrMalformedRule, op, kind)
		}
	default:
		if kind != types.LiteralString {
			return fmt.Errorf("%w: %s needs a string, got %s", types.ErrMalformedRule, op, kind)
		}
	}
	return nil
}

// EvaluateCompiled evaluates a compiled tree with the same semantics as
// EvaluateConditions.
func (e *Evaluator) EvaluateCompiled(c *CompiledConditions, record types.Record) bool {
	result := true
	for _, group := range c.Groups {
		if !e.evaluateCompiledGroup(group, record) {
			result = false
			break
		}
	}
	e.metrics.RecordConditions(result)
	return result
}

func (e *Evaluator) evaluateCompiledGroup(group CompiledGroup, record types.Record) bool {
	if len(group.Rules) == 0 {
		return true
	}
	or := group.Logic == types.LogicOr
	for _, cr := range group.Rules {
		matched := e.observe(cr.Rule, e.evaluateResolved(cr.Rule, cr.Path, record))
		if or && matched {
			return true
		}
		if !or && !matched {
			return false
		}
	}
	return !or
}
