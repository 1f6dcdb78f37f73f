// internal/types/rules.go
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

/*
 * Domain types for declarative rule evaluation.
 *
 * Two tiers only: Conditions (implicit AND) -> ConditionGroup (AND/OR) ->
 * ConditionRule. There are no nested sub-groups.
 *
 * Trusted callers build rules through NewConditionRule and the Literal
 * constructors, which reject unknown operators at construction time.
 * Ingestion of stored or legacy data goes through the JSON/YAML decoders
 * below, which never fail on unknown operators, unknown group logic, or
 * non-scalar literals: those values are preserved and the evaluator treats
 * the affected rule (or group) as false.
 */

// Operator is the closed set of comparison operators.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpGt          Operator = "gt"
	OpLt          Operator = "lt"
	OpGte         Operator = "gte"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// Operators lists every valid operator in declaration order.
var Operators = []Operator{
	OpEq, OpNe, OpGt, OpLt, OpGte, OpLte,
	OpContains, OpNotContains, OpStartsWith, OpEndsWith,
	OpIsEmpty, OpIsNotEmpty,
}

// Valid reports whether op is in the closed operator set.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// ParseOperator returns the operator named by s or ErrUnknownOperator.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}
	return op, nil
}

// TakesValue reports whether the operator compares against a literal.
// is_empty and is_not_empty ignore the literal.
func (op Operator) TakesValue() bool {
	return op != OpIsEmpty && op != OpIsNotEmpty
}

// LiteralKind tags the variant held by a Literal.
type LiteralKind int

const (
	LiteralNull LiteralKind = iota
	LiteralNumber
	LiteralString
	LiteralBool
	// LiteralInvalid marks a decoded value that is not a scalar (list, object).
	LiteralInvalid
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralNull:
		return "null"
	case LiteralNumber:
		return "number"
	case LiteralString:
		return "string"
	case LiteralBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Literal is the comparison value of a ConditionRule.
// The zero value is null.
type Literal struct {
	kind LiteralKind
	num  float64
	str  string
	b    bool
	raw  any // decoded non-scalar, kept so LiteralInvalid survives re-encoding
}

// Null returns the null literal.
func Null() Literal { return Literal{} }

// Number returns a numeric literal.
func Number(n float64) Literal { return Literal{kind: LiteralNumber, num: n} }

// String returns a string literal.
func String(s string) Literal { return Literal{kind: LiteralString, str: s} }

// Bool returns a boolean literal.
func Bool(b bool) Literal { return Literal{kind: LiteralBool, b: b} }

// LiteralOf converts a decoded scalar to a Literal.
// Integers widen to float64. Non-scalars yield LiteralInvalid.
func LiteralOf(v any) Literal {
	switch x := v.(type) {
	case nil:
		return Null()
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int16:
		return Number(float64(x))
	case int8:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Literal{kind: LiteralInvalid, raw: x}
		}
		return Number(f)
	case string:
		return String(x)
	case bool:
		return Bool(x)
	default:
		return Literal{kind: LiteralInvalid, raw: v}
	}
}

// Kind returns the variant tag.
func (l Literal) Kind() LiteralKind { return l.kind }

// IsNull reports whether the literal is null.
func (l Literal) IsNull() bool { return l.kind == LiteralNull }

// Value returns the literal as float64, string, bool, or nil.
func (l Literal) Value() any {
	switch l.kind {
	case LiteralNumber:
		return l.num
	case LiteralString:
		return l.str
	case LiteralBool:
		return l.b
	default:
		return nil
	}
}

func (l Literal) String() string {
	switch l.kind {
	case LiteralNumber, LiteralBool:
		return fmt.Sprint(l.Value())
	case LiteralString:
		return fmt.Sprintf("%q", l.str)
	case LiteralNull:
		return "null"
	default:
		return "<invalid>"
	}
}

// encoded returns the value written back to storage. Invalid literals
// re-encode their original value so they keep failing after a reload.
func (l Literal) encoded() any {
	if l.kind == LiteralInvalid {
		return l.raw
	}
	return l.Value()
}

// MarshalJSON implements json.Marshaler.
func (l Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.encoded())
}

// UnmarshalJSON implements json.Unmarshaler. Never fails on well-formed JSON.
func (l *Literal) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = LiteralOf(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (l Literal) MarshalYAML() (any, error) {
	return l.encoded(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *Literal) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	*l = LiteralOf(v)
	return nil
}

// GroupLogic combines the rules of a group.
type GroupLogic string

const (
	LogicAnd GroupLogic = "AND"
	LogicOr  GroupLogic = "OR"
)

// Normalize upper-cases the logic and defaults empty to AND.
// Unknown values are returned as-is so the evaluator can fail the group.
func (g GroupLogic) Normalize() GroupLogic {
	n := GroupLogic(strings.ToUpper(strings.TrimSpace(string(g))))
	if n == "" {
		return LogicAnd
	}
	return n
}

// Valid reports whether the normalized logic is AND or OR.
func (g GroupLogic) Valid() bool {
	n := g.Normalize()
	return n == LogicAnd || n == LogicOr
}

// ConditionRule is one atomic field/operator/value comparison.
type ConditionRule struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    Literal  `json:"value" yaml:"value"`
}

// NewConditionRule builds a rule for trusted callers, rejecting unknown
// operators and empty fields at construction time.
func NewConditionRule(field string, op Operator, value Literal) (ConditionRule, error) {
	if strings.TrimSpace(field) == "" {
		return ConditionRule{}, fmt.Errorf("%w: empty field", ErrMalformedRule)
	}
	if !op.Valid() {
		return ConditionRule{}, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
	return ConditionRule{Field: field, Operator: op, Value: value}, nil
}

// MustConditionRule is NewConditionRule that panics on error.
// Intended for static rule tables and tests.
func MustConditionRule(field string, op Operator, value Literal) ConditionRule {
	r, err := NewConditionRule(field, op, value)
	if err != nil {
		panic(err)
	}
	return r
}

// rawConditionRule tolerates non-string field/operator values in stored data
// and accepts the short "op" key.
type rawConditionRule struct {
	Field    any     `json:"field" yaml:"field"`
	Operator any     `json:"operator" yaml:"operator"`
	Op       any     `json:"op" yaml:"op"`
	Value    Literal `json:"value" yaml:"value"`
}

func (r rawConditionRule) toRule() ConditionRule {
	field, _ := r.Field.(string)
	op, _ := r.Operator.(string)
	if op == "" {
		op, _ = r.Op.(string)
	}
	return ConditionRule{
		Field:    field,
		Operator: Operator(strings.ToLower(strings.TrimSpace(op))),
		Value:    r.Value,
	}
}

// UnmarshalJSON decodes a rule, defaulting malformed field/operator values
// to empty strings instead of failing.
func (r *ConditionRule) UnmarshalJSON(data []byte) error {
	var raw rawConditionRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = raw.toRule()
	return nil
}

// UnmarshalYAML decodes a rule with the same defaults as UnmarshalJSON.
func (r *ConditionRule) UnmarshalYAML(node *yaml.Node) error {
	var raw rawConditionRule
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*r = raw.toRule()
	return nil
}

// ConditionGroup combines rules under AND or OR.
type ConditionGroup struct {
	Rules      []ConditionRule `json:"rules" yaml:"rules"`
	GroupLogic GroupLogic      `json:"groupLogic" yaml:"groupLogic"`
}

// rawConditionGroup accepts the legacy "logic" key alongside "groupLogic".
type rawConditionGroup struct {
	Rules      []ConditionRule `json:"rules" yaml:"rules"`
	GroupLogic any             `json:"groupLogic" yaml:"groupLogic"`
	Logic      any             `json:"logic" yaml:"logic"`
}

func (g rawConditionGroup) toGroup() ConditionGroup {
	logic, _ := g.GroupLogic.(string)
	if logic == "" {
		logic, _ = g.Logic.(string)
	}
	return ConditionGroup{Rules: g.Rules, GroupLogic: GroupLogic(logic).Normalize()}
}

// UnmarshalJSON decodes a group, defaulting missing logic to AND.
func (g *ConditionGroup) UnmarshalJSON(data []byte) error {
	var raw rawConditionGroup
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = raw.toGroup()
	return nil
}

// UnmarshalYAML decodes a group with the same defaults as UnmarshalJSON.
func (g *ConditionGroup) UnmarshalYAML(node *yaml.Node) error {
	var raw rawConditionGroup
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*g = raw.toGroup()
	return nil
}

// Conditions is an ordered, implicitly ANDed sequence of groups.
type Conditions []ConditionGroup

// DecodeConditionsJSON decodes a JSON rule tree with decode-and-default semantics.
func DecodeConditionsJSON(data []byte) (Conditions, error) {
	var c Conditions
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode conditions: %w", err)
	}
	return c, nil
}

// DecodeConditionsYAML decodes a YAML rule tree with decode-and-default semantics.
func DecodeConditionsYAML(data []byte) (Conditions, error) {
	var c Conditions
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode conditions: %w", err)
	}
	return c, nil
}
