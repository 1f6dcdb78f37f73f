// Package metrics records Prometheus metrics for rule evaluation.
package metrics

import (
	"strconv"
	"time"

	"github.com/Oyestore/receivables-sub031/internal/core/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Sandbox execution outcomes.
const (
	OutcomeTrue     = "completed_true"
	OutcomeFalse    = "completed_false"
	OutcomeRejected = "rejected"
	OutcomeFaulted  = "faulted"
	OutcomeTimeout  = "timeout"
)

// Recorder tracks evaluation metrics.
//
// Metrics:
//   - <ns>_<sub>_condition_evaluations_total: Declarative evaluations by result
//   - <ns>_<sub>_rule_diagnostics_total: Non-fatal rule diagnostics by reason
//   - <ns>_<sub>_sandbox_executions_total: Snippet executions by outcome
//   - <ns>_<sub>_sandbox_execution_duration_seconds: Snippet execution duration
//   - <ns>_<sub>_decisions_total: Stored-rule decisions by kind and result
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	conditionEvaluations *prometheus.CounterVec
	diagnostics          *prometheus.CounterVec
	sandboxExecutions    *prometheus.CounterVec
	sandboxDuration      prometheus.Histogram
	decisions            *prometheus.CounterVec
}

// NewRecorder creates and registers metrics with the provided registerer.
// If registerer is nil, a private registry is used.
func NewRecorder(cfg config.MetricsConfig, registerer prometheus.Registerer) *Recorder {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	r := &Recorder{
		conditionEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "condition_evaluations_total",
				Help:      "Total number of declarative condition evaluations",
			},
			[]string{"result"},
		),

		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_diagnostics_total",
				Help:      "Total number of non-fatal rule diagnostics",
			},
			[]string{"reason"},
		),

		sandboxExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sandbox_executions_total",
				Help:      "Total number of custom snippet executions",
			},
			[]string{"outcome"},
		),

		sandboxDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sandbox_execution_duration_seconds",
				Help:      "Duration of custom snippet executions in seconds",
				// 10µs to ~1.3s; the default timeout is 1s
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 18),
			},
		),

		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of stored-rule decisions",
			},
			[]string{"kind", "result"},
		),
	}

	registerer.MustRegister(
		r.conditionEvaluations,
		r.diagnostics,
		r.sandboxExecutions,
		r.sandboxDuration,
		r.decisions,
	)

	return r
}

// RecordConditions records one declarative evaluation verdict.
func (r *Recorder) RecordConditions(result bool) {
	if r == nil {
		return
	}
	r.conditionEvaluations.WithLabelValues(strconv.FormatBool(result)).Inc()
}

// RecordDiagnostic records a non-fatal rule diagnostic.
func (r *Recorder) RecordDiagnostic(reason string) {
	if r == nil {
		return
	}
	r.diagnostics.WithLabelValues(reason).Inc()
}

// RecordSandbox records a snippet execution outcome and its duration.
func (r *Recorder) RecordSandbox(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.sandboxExecutions.WithLabelValues(outcome).Inc()
	r.sandboxDuration.Observe(duration.Seconds())
}

// RecordDecision records a stored-rule decision.
func (r *Recorder) RecordDecision(kind string, result bool) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(kind, strconv.FormatBool(result)).Inc()
}
