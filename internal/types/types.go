// Package types provides domain models shared across the rule evaluation
// components.
//
// Wire-format agnostic: JSON and YAML decoding lives next to the types that
// need it (Literal, Operator, GroupLogic) so ingestion can decode-and-default
// malformed legacy data instead of failing. ID utilities in ids.go import uuid.
package types

import "time"

// RuleID represents a UUIDv7 rule identifier.
type RuleID string

// TenantID identifies the tenant owning a rule.
type TenantID string

// EvaluationID correlates log lines for one sandbox evaluation.
type EvaluationID string

// Record is the caller-owned business data a rule is evaluated against.
// Evaluators never mutate it.
type Record = map[string]any

// Resource limits enforced by the evaluators.
const (
	// MaxSnippetLength is the default hard cap on snippet length in characters.
	MaxSnippetLength = 5000

	// DefaultExecutionTimeout is the default wall-clock budget per snippet execution.
	DefaultExecutionTimeout = 1000 * time.Millisecond

	// DefaultMaxMemoryBytes is the default soft heap ceiling per snippet execution.
	DefaultMaxMemoryBytes = 10 * 1024 * 1024

	// DefaultCostLimit bounds CEL runtime cost per execution.
	// Allocation-heavy operations (string concat, list building) are charged
	// proportionally to their size, so cost also caps allocation.
	DefaultCostLimit = 1_000_000

	// MaxPathDepth prevents unbounded traversal during field resolution.
	MaxPathDepth = 16

	// MaxGroups limits condition groups per rule tree.
	MaxGroups = 64

	// MaxRulesPerGroup limits atomic rules per group.
	MaxRulesPerGroup = 64

	// MaxHarnessSamples limits samples per test harness batch.
	MaxHarnessSamples = 500
)

// TestResult is the outcome of one harness sample.
type TestResult struct {
	Input  Record `json:"input"`
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
}

// RuleKind selects which evaluator a stored rule routes to.
type RuleKind string

const (
	RuleKindConditions RuleKind = "conditions"
	RuleKindCustom     RuleKind = "custom"
)

// StoredRule is a tenant-authored rule as read from persistence.
type StoredRule struct {
	RuleID     RuleID     `json:"ruleId" yaml:"ruleId"`
	TenantID   TenantID   `json:"tenantId" yaml:"tenantId"`
	Name       string     `json:"name" yaml:"name"`
	Kind       RuleKind   `json:"kind" yaml:"kind"`
	Conditions Conditions `json:"conditions,omitempty" yaml:"conditions,omitempty"` // set when Kind == RuleKindConditions
	Snippet    string     `json:"snippet,omitempty" yaml:"snippet,omitempty"`       // set when Kind == RuleKindCustom
	CreatedAt  time.Time  `json:"createdAt" yaml:"createdAt"`
}
