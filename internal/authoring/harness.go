// Package authoring provides design-time tools for rule authors: the Rule
// Test Harness and strict condition checks.
//
// Unlike the runtime path, these tools surface detailed error text so an
// author can fix a rule before activating it. Nothing in the runtime
// decision path imports this package.
package authoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/Oyestore/receivables-sub031/internal/core/config"
	"github.com/Oyestore/receivables-sub031/internal/rules"
	"github.com/Oyestore/receivables-sub031/internal/sandbox"
	"github.com/Oyestore/receivables-sub031/internal/types"
)

// Report is the outcome of a harness batch.
type Report struct {
	// Valid is true iff no sample produced an error.
	Valid   bool               `json:"valid"`
	Results []types.TestResult `json:"results"`
	// Violation is set when the snippet itself fails policy validation.
	Violation *types.PolicyViolation `json:"violation,omitempty"`
}

// Harness runs rules against sample batches.
type Harness struct {
	engine      *sandbox.Engine
	limits      rules.Limits
	maxSamples  int
	parallelism int
	logger      *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the harness logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithLimits sets the rule tree limits used by CheckConditions.
func WithLimits(limits rules.Limits) Option {
	return func(h *Harness) {
		h.limits = limits
	}
}

// NewHarness creates a Harness executing snippets through engine.
func NewHarness(engine *sandbox.Engine, cfg config.HarnessConfig, opts ...Option) *Harness {
	h := &Harness{
		engine:      engine,
		limits:      rules.DefaultLimits(),
		maxSamples:  cfg.MaxSamples,
		parallelism: cfg.Parallelism,
		logger:      zap.NewNop(),
	}
	if h.maxSamples <= 0 {
		h.maxSamples = types.MaxHarnessSamples
	}
	if h.parallelism <= 0 {
		h.parallelism = 1
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// TestRule runs snippet against every sample through the same validate and
// execute path as the runtime, capturing errors instead of swallowing them.
// Samples run in parallel; results keep sample order.
func (h *Harness) TestRule(ctx context.Context, snippet string, samples []types.Record) (Report, error) {
	if err := h.checkBatch(samples); err != nil {
		return Report{}, err
	}

	report := Report{Results: []types.TestResult{}}
	var violation *types.PolicyViolation
	if errors.As(h.engine.Validate(snippet), &violation) {
		report.Violation = violation
	}

	mapper := iter.Mapper[types.Record, types.TestResult]{MaxGoroutines: h.parallelism}
	if len(samples) > 0 {
		report.Results = mapper.Map(samples, func(sample *types.Record) types.TestResult {
			result, err := h.engine.Execute(ctx, snippet, *sample)
			tr := types.TestResult{Input: *sample, Result: result}
			if err != nil {
				tr.Error = err.Error()
			}
			return tr
		})
	}

	report.Valid = allPassed(report.Results)
	h.logger.Debug("rule test completed",
		zap.Int("samples", len(samples)),
		zap.Bool("valid", report.Valid),
		zap.Bool("policy_violation", report.Violation != nil),
	)
	return report, nil
}

// CheckConditions strictly validates a declarative rule tree.
func (h *Harness) CheckConditions(conds types.Conditions) error {
	_, err := rules.Compile(conds, h.limits)
	return err
}

// TestConditions compiles conds strictly, then evaluates every sample.
// Declarative evaluation cannot fault, so every result is error-free.
func (h *Harness) TestConditions(conds types.Conditions, samples []types.Record) (Report, error) {
	if err := h.checkBatch(samples); err != nil {
		return Report{}, err
	}
	compiled, err := rules.Compile(conds, h.limits)
	if err != nil {
		return Report{}, err
	}

	evaluator := rules.NewEvaluator(rules.WithLogger(h.logger))
	report := Report{Results: make([]types.TestResult, 0, len(samples))}
	for _, sample := range samples {
		report.Results = append(report.Results, types.TestResult{
			Input:  sample,
			Result: evaluator.EvaluateCompiled(compiled, sample),
		})
	}
	report.Valid = allPassed(report.Results)
	return report, nil
}

func (h *Harness) checkBatch(samples []types.Record) error {
	if len(samples) > h.maxSamples {
		return fmt.Errorf("%w: %d samples exceeds limit of %d", types.ErrTooManySamples, len(samples), h.maxSamples)
	}
	return nil
}

func allPassed(results []types.TestResult) bool {
	for _, r := range results {
		if r.Error != "" {
			return false
		}
	}
	return true
}
