// internal/rules/evaluate.go
package rules

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Oyestore/receivables-sub031/internal/core/metrics"
	"github.com/Oyestore/receivables-sub031/internal/types"
)

/*
 * Declarative rule evaluation.
 *
 * Evaluates Conditions (AND of groups) where each group is an AND or OR of
 * atomic rules. Pure function of (rule tree, record): the Evaluator holds
 * only its logger, metrics recorder and optional trace hook, none of which
 * influence the verdict.
 *
 * Evaluation flow:
 *   1. Conditions: empty -> true; first false group -> false
 *   2. Group: empty -> true; AND stops on first false, OR on first true
 *   3. Rule: operator check -> path resolve -> absent handling -> Compare
 *
 * Absent fields: eq against a null literal and is_empty are true; every
 * other operator is false. A present null is an ordinary value.
 *
 * Diagnostics: unknown operators, malformed paths/literals and unknown
 * group logic never abort evaluation. The affected rule or group is false
 * and the event is logged and counted.
 */

// Diagnostic reasons.
const (
	ReasonUnknownOperator   = "unknown_operator"
	ReasonMalformedRule     = "malformed_rule"
	ReasonInvalidPath       = "invalid_path"
	ReasonUnknownGroupLogic = "unknown_group_logic"
)

// TraceFunc observes each atomic rule verdict in evaluation order.
type TraceFunc func(rule types.ConditionRule, result bool)

// Evaluator evaluates declarative rule trees. Safe for concurrent use.
type Evaluator struct {
	logger  *zap.Logger
	metrics *metrics.Recorder
	trace   TraceFunc
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// WithTrace installs a hook called after every atomic rule evaluation.
func WithTrace(fn TraceFunc) Option {
	return func(e *Evaluator) {
		e.trace = fn
	}
}

// NewEvaluator creates an Evaluator. Without options it logs nothing.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEvaluator = NewEvaluator()

// EvaluateConditions evaluates conds against record with a silent evaluator.
func EvaluateConditions(conds types.Conditions, record types.Record) bool {
	return defaultEvaluator.EvaluateConditions(conds, record)
}

// EvaluateConditions reports whether every group matches record.
// An empty sequence is true.
func (e *Evaluator) EvaluateConditions(conds types.Conditions, record types.Record) bool {
	result := true
	for _, group := range conds {
		if !e.EvaluateGroup(group, record) {
			result = false
			break
		}
	}
	e.metrics.RecordConditions(result)
	return result
}

// EvaluateGroup combines the group's rules under its logic.
// An empty group is true regardless of logic.
func (e *Evaluator) EvaluateGroup(group types.ConditionGroup, record types.Record) bool {
	if len(group.Rules) == 0 {
		return true
	}

	switch group.GroupLogic.Normalize() {
	case types.LogicAnd:
		for _, rule := range group.Rules {
			if !e.EvaluateRule(rule, record) {
				return false
			}
		}
		return true

	case types.LogicOr:
		for _, rule := range group.Rules {
			if e.EvaluateRule(rule, record) {
				return true
			}
		}
		return false

	default:
		e.diagnose(ReasonUnknownGroupLogic, types.ConditionRule{},
			zap.String("group_logic", string(group.GroupLogic)))
		return false
	}
}

// EvaluateRule evaluates one atomic comparison against record.
func (e *Evaluator) EvaluateRule(rule types.ConditionRule, record types.Record) bool {
	if !rule.Operator.Valid() {
		e.diagnose(ReasonUnknownOperator, rule)
		return e.observe(rule, false)
	}
	segments, err := ParsePath(rule.Field)
	if err != nil {
		e.diagnose(ReasonInvalidPath, rule, zap.Error(err))
		return e.observe(rule, false)
	}
	return e.observe(rule, e.evaluateResolved(rule, segments, record))
}

// evaluateResolved applies the absent-field policy, then Compare.
func (e *Evaluator) evaluateResolved(rule types.ConditionRule, segments []PathSegment, record types.Record) bool {
	actual, found := Resolve(segments, record)
	if !found {
		switch rule.Operator {
		case types.OpEq:
			return rule.Value.IsNull()
		case types.OpIsEmpty:
			return true
		default:
			return false
		}
	}

	matched, err := Compare(rule.Operator, actual, rule.Value)
	if err != nil {
		reason := ReasonMalformedRule
		if errors.Is(err, types.ErrUnknownOperator) {
			reason = ReasonUnknownOperator
		}
		e.diagnose(reason, rule, zap.Error(err))
		return false
	}
	return matched
}

func (e *Evaluator) observe(rule types.ConditionRule, result bool) bool {
	if e.trace != nil {
		e.trace(rule, result)
	}
	return result
}

// diagnose logs and counts a non-fatal rule problem.
func (e *Evaluator) diagnose(reason string, rule types.ConditionRule, fields ...zap.Field) {
	e.metrics.RecordDiagnostic(reason)
	base := []zap.Field{
		zap.String("reason", reason),
		zap.String("field", rule.Field),
		zap.String("operator", string(rule.Operator)),
	}
	e.logger.Warn("condition rule evaluated as false", append(base, fields...)...)
}
