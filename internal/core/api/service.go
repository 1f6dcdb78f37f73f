// Package api provides the runtime decision boundary for stored tenant rules.
package api

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Oyestore/receivables-sub031/internal/core/metrics"
	"github.com/Oyestore/receivables-sub031/internal/rules"
	"github.com/Oyestore/receivables-sub031/internal/sandbox"
	"github.com/Oyestore/receivables-sub031/internal/types"
)

// Kind label recorded when a decision fails before dispatch.
const kindUnresolved = "unresolved"

// RuleSource loads a tenant's stored rule. *db.RuleStore satisfies it.
type RuleSource interface {
	GetRule(ctx context.Context, tenantID types.TenantID, ruleID types.RuleID) (*types.StoredRule, error)
}

// DecisionService loads a stored rule and routes it to the Conditions
// Evaluator or the Sandboxed Execution Engine.
// Thin orchestration layer; it only ever returns booleans to callers.
type DecisionService struct {
	store     RuleSource
	evaluator *rules.Evaluator
	engine    *sandbox.Engine
	logger    *zap.Logger
	metrics   *metrics.Recorder
}

// Option configures a DecisionService.
type Option func(*DecisionService)

// WithLogger sets the logger for fail-closed diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *DecisionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records decisions on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *DecisionService) {
		s.metrics = m
	}
}

// NewDecisionService creates service instance with dependencies.
func NewDecisionService(store RuleSource, evaluator *rules.Evaluator, engine *sandbox.Engine, opts ...Option) (*DecisionService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}

	s := &DecisionService{
		store:     store,
		evaluator: evaluator,
		engine:    engine,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Decide evaluates the tenant's rule against record.
// Any store, decode, or unknown-kind failure yields false.
func (s *DecisionService) Decide(ctx context.Context, tenantID types.TenantID, ruleID types.RuleID, record types.Record) bool {
	rule, err := s.store.GetRule(ctx, tenantID, ruleID)
	if err != nil {
		s.logger.Warn("decision failed closed",
			zap.String("tenant_id", string(tenantID)),
			zap.String("rule_id", string(ruleID)),
			zap.String("reason", lookupReason(err)),
		)
		s.metrics.RecordDecision(kindUnresolved, false)
		return false
	}
	return s.DecideRule(ctx, rule, record)
}

// DecideRule evaluates an already-loaded rule. Rules that belong to no
// known kind evaluate to false.
func (s *DecisionService) DecideRule(ctx context.Context, rule *types.StoredRule, record types.Record) (result bool) {
	if rule == nil {
		s.logger.Warn("decision failed closed", zap.String("reason", "nil_rule"))
		s.metrics.RecordDecision(kindUnresolved, false)
		return false
	}

	kind := string(rule.Kind)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("decision panicked",
				zap.String("rule_id", string(rule.RuleID)),
				zap.Any("panic", r),
			)
			result = false
		}
		s.metrics.RecordDecision(kind, result)
	}()

	switch rule.Kind {
	case types.RuleKindConditions:
		return s.evaluator.EvaluateConditions(rule.Conditions, record)
	case types.RuleKindCustom:
		return s.engine.EvaluateCustomRule(ctx, rule.Snippet, record)
	default:
		s.logger.Warn("decision failed closed",
			zap.String("tenant_id", string(rule.TenantID)),
			zap.String("rule_id", string(rule.RuleID)),
			zap.String("reason", "unknown_kind"),
		)
		kind = kindUnresolved
		return false
	}
}

// lookupReason maps a store error to a log-safe reason.
func lookupReason(err error) string {
	switch {
	case errors.Is(err, types.ErrRuleNotFound):
		return "not_found"
	case errors.Is(err, types.ErrMalformedRule):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "store_error"
	}
}
