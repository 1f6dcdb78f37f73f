package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Oyestore/receivables-sub031/internal/core/config"
	"github.com/Oyestore/receivables-sub031/internal/core/metrics"
	"github.com/Oyestore/receivables-sub031/internal/types"
)

/*
 * Sandboxed execution engine.
 *
 * State machine for one call:
 *   Validating -> Rejected                      (PolicyViolation)
 *   Validating -> Validated -> Executing -> Completed(bool)
 *                                        -> Faulted (ExecutionFault)
 *
 * Execute is the only way to reach the interpreter, and it always runs the
 * Validator first. Validation results are never cached: the snippet may
 * have been edited since the last call.
 *
 * Timeout: the interpreter runs on its own goroutine under
 * context.WithTimeout. The caller is released as soon as the deadline
 * passes; the goroutine stops at its next interrupt check or when the cost
 * limit trips, whichever comes first.
 *
 * EvaluateCustomRule is the runtime boundary: it converts every error to
 * false, logs the outcome without snippet text or error detail, and
 * records metrics.
 */

// Engine validates and executes custom snippets. Safe for concurrent use.
type Engine struct {
	cfg       config.SandboxConfig
	validator *Validator
	interp    Interpreter
	logger    *zap.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for runtime outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithInterpreter replaces the CEL interpreter.
func WithInterpreter(interp Interpreter) Option {
	return func(e *Engine) {
		if interp != nil {
			e.interp = interp
		}
	}
}

// WithClock sets the clock used for the default invoice date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine bounded by cfg.
func NewEngine(cfg config.SandboxConfig, opts ...Option) (*Engine, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = types.DefaultExecutionTimeout
	}
	if cfg.MaxMemoryBytes <= 0 {
		cfg.MaxMemoryBytes = types.DefaultMaxMemoryBytes
	}

	validator, err := NewValidator(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		validator: validator,
		interp:    NewCELInterpreter(cfg),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Validate runs the policy Validator only.
func (e *Engine) Validate(snippet string) error {
	return e.validator.Validate(snippet)
}

// Execute validates and runs snippet against record, returning the truthy
// verdict. Errors are *types.PolicyViolation or *types.ExecutionFault.
func (e *Engine) Execute(ctx context.Context, snippet string, record types.Record) (bool, error) {
	if err := e.validator.Validate(snippet); err != nil {
		return false, err
	}

	sc := NewContext(record, e.now())
	if size := sc.EstimatedBytes(); size > e.cfg.MaxMemoryBytes {
		return false, types.NewExecutionFault(types.FaultResource,
			fmt.Errorf("%w: projection needs ~%d bytes, ceiling is %d", types.ErrResourceLimit, size, e.cfg.MaxMemoryBytes))
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: types.NewExecutionFault(types.FaultPanic, fmt.Errorf("%w: %v", types.ErrSnippetRuntime, r))}
			}
		}()
		value, err := e.interp.Run(ctx, snippet, sc)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return false, e.fault(ctx, out.err)
		}
		return Truthy(out.value), nil
	case <-ctx.Done():
		return false, e.fault(ctx, ctx.Err())
	}
}

// fault normalizes interpreter and context errors to *types.ExecutionFault.
func (e *Engine) fault(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.NewExecutionFault(types.FaultTimeout,
			fmt.Errorf("%w after %v", types.ErrExecutionTimeout, e.cfg.Timeout))
	}
	var fault *types.ExecutionFault
	if errors.As(err, &fault) {
		return fault
	}
	return types.NewExecutionFault(types.FaultRuntime, fmt.Errorf("%w: %v", types.ErrSnippetRuntime, err))
}

// EvaluateCustomRule runs snippet against record and never fails: policy
// rejections and execution faults yield false.
func (e *Engine) EvaluateCustomRule(ctx context.Context, snippet string, record types.Record) bool {
	evalID := types.NewEvaluationID()
	start := time.Now()

	result, err := e.Execute(ctx, snippet, record)
	outcome := Outcome(result, err)
	e.metrics.RecordSandbox(outcome, time.Since(start))

	if err != nil {
		e.logger.Warn("custom rule evaluated as false",
			zap.String("evaluation_id", string(evalID)),
			zap.String("reason", outcome),
			zap.String("detail", reasonDetail(err)),
		)
		return false
	}

	e.logger.Debug("custom rule evaluated",
		zap.String("evaluation_id", string(evalID)),
		zap.Bool("result", result),
	)
	return result
}

// Outcome maps an Execute result to a metrics outcome label.
func Outcome(result bool, err error) string {
	var fault *types.ExecutionFault
	switch {
	case err == nil && result:
		return metrics.OutcomeTrue
	case err == nil:
		return metrics.OutcomeFalse
	case errors.Is(err, types.ErrPolicyViolation):
		return metrics.OutcomeRejected
	case errors.As(err, &fault) && fault.Kind == types.FaultTimeout:
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeFaulted
	}
}

// reasonDetail names the failure without echoing snippet text.
func reasonDetail(err error) string {
	var violation *types.PolicyViolation
	if errors.As(err, &violation) {
		return violation.Pattern
	}
	var fault *types.ExecutionFault
	if errors.As(err, &fault) {
		return fault.Kind
	}
	return "unknown"
}
