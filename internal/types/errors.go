package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for rule evaluation.
var (
	// ErrPolicyViolation indicates a snippet references a forbidden capability
	// or exceeds the snippet length cap.
	ErrPolicyViolation = errors.New("snippet violates sandbox policy")

	// ErrExecutionFault indicates a snippet failed inside the sandbox.
	ErrExecutionFault = errors.New("snippet execution fault")

	// ErrExecutionTimeout indicates a snippet exceeded its wall-clock budget.
	ErrExecutionTimeout = errors.New("snippet execution timed out")

	// ErrResourceLimit indicates a snippet exceeded its cost or memory ceiling.
	ErrResourceLimit = errors.New("snippet exceeded resource limit")

	// ErrSnippetCompile indicates the snippet did not parse or type-check.
	ErrSnippetCompile = errors.New("snippet failed to compile")

	// ErrSnippetRuntime indicates the snippet raised an error while running.
	ErrSnippetRuntime = errors.New("snippet raised a runtime error")

	// ErrUnknownOperator indicates a condition rule names an operator outside the closed set.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrUnknownGroupLogic indicates a group logic other than AND/OR.
	ErrUnknownGroupLogic = errors.New("unknown group logic")

	// ErrMalformedRule indicates a condition rule is structurally invalid.
	ErrMalformedRule = errors.New("malformed condition rule")

	// ErrInvalidPath indicates a field path is empty or has empty segments.
	ErrInvalidPath = errors.New("invalid field path")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrTooManyGroups indicates a conditions tree exceeds MaxGroups.
	ErrTooManyGroups = errors.New("too many condition groups")

	// ErrTooManyRules indicates a group exceeds MaxRulesPerGroup.
	ErrTooManyRules = errors.New("too many rules in condition group")

	// ErrTooManySamples indicates a test harness batch exceeds its sample cap.
	ErrTooManySamples = errors.New("too many samples in test batch")

	// ErrRuleNotFound indicates no stored rule matched the tenant and rule ID.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrUnknownRuleKind indicates a stored rule has a kind other than conditions/custom.
	ErrUnknownRuleKind = errors.New("unknown rule kind")
)

// PolicyViolation reports the forbidden pattern a snippet matched.
// Raised only by the sandbox policy validator.
type PolicyViolation struct {
	Pattern string `json:"pattern"` // offending pattern (or "max_length")
	Reason  string `json:"reason"`
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("policy violation: %s (pattern %q)", e.Reason, e.Pattern)
}

// Is reports ErrPolicyViolation so callers can match with errors.Is.
func (e *PolicyViolation) Is(target error) bool {
	return target == ErrPolicyViolation
}

// Fault kinds for ExecutionFault.
const (
	FaultCompile  = "compile"
	FaultRuntime  = "runtime"
	FaultTimeout  = "timeout"
	FaultResource = "resource"
	FaultPanic    = "panic"
)

// ExecutionFault wraps any failure that happened after validation passed.
type ExecutionFault struct {
	Kind string
	Err  error
}

func (e *ExecutionFault) Error() string {
	return fmt.Sprintf("execution fault (%s): %v", e.Kind, e.Err)
}

func (e *ExecutionFault) Unwrap() error {
	return e.Err
}

// Is reports ErrExecutionFault so callers can match with errors.Is.
func (e *ExecutionFault) Is(target error) bool {
	return target == ErrExecutionFault
}

// NewExecutionFault builds an ExecutionFault of the given kind.
func NewExecutionFault(kind string, err error) *ExecutionFault {
	return &ExecutionFault{Kind: kind, Err: err}
}
