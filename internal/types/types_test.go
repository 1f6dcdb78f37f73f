package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestRuleID_RoundTrip(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := NewRuleID()

	parsed, err := ParseRuleID(string(id))
	if err != nil {
		t.Fatalf("ParseRuleID(%q) failed: %v", id, err)
	}
	if parsed != id {
		t.Errorf("ParseRuleID = %v, want %v", parsed, id)
	}

	created := RuleIDTime(id)
	if created.Before(before) || created.After(time.Now().Add(time.Second)) {
		t.Errorf("RuleIDTime = %v, want close to now", created)
	}
}

func TestParseRuleID_Invalid(t *testing.T) {
	if _, err := ParseRuleID("not-a-uuid"); err == nil {
		t.Error("ParseRuleID(not-a-uuid) = nil error, want error")
	}
	if got := RuleIDTime("not-a-uuid"); !got.IsZero() {
		t.Errorf("RuleIDTime(invalid) = %v, want zero", got)
	}
}

func TestNewEvaluationID_Unique(t *testing.T) {
	seen := make(map[EvaluationID]bool)
	for i := 0; i < 100; i++ {
		id := NewEvaluationID()
		if seen[id] {
			t.Fatalf("duplicate evaluation ID %v", id)
		}
		seen[id] = true
	}
}

func TestLiteralOf(t *testing.T) {
	tests := []struct {
		in   any
		want LiteralKind
	}{
		{nil, LiteralNull},
		{3, LiteralNumber},
		{int64(3), LiteralNumber},
		{2.5, LiteralNumber},
		{json.Number("12"), LiteralNumber},
		{"x", LiteralString},
		{true, LiteralBool},
		{[]any{1}, LiteralInvalid},
		{map[string]any{"a": 1}, LiteralInvalid},
	}
	for _, tt := range tests {
		if got := LiteralOf(tt.in).Kind(); got != tt.want {
			t.Errorf("LiteralOf(%v).Kind() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewConditionRule(t *testing.T) {
	if _, err := NewConditionRule("amount", "regex", Number(1)); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("unknown operator error = %v, want ErrUnknownOperator", err)
	}
	if _, err := NewConditionRule("  ", OpEq, Number(1)); !errors.Is(err, ErrMalformedRule) {
		t.Errorf("empty field error = %v, want ErrMalformedRule", err)
	}
	if _, err := NewConditionRule("amount", OpGt, Number(1)); err != nil {
		t.Errorf("valid rule error = %v, want nil", err)
	}
}

func TestGroupLogic_Normalize(t *testing.T) {
	tests := []struct {
		in        GroupLogic
		want      GroupLogic
		wantValid bool
	}{
		{"", LogicAnd, true},
		{"and", LogicAnd, true},
		{" Or ", LogicOr, true},
		{"XOR", "XOR", false},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("GroupLogic(%q).Normalize() = %v, want %v", tt.in, got, tt.want)
		}
		if got := tt.in.Valid(); got != tt.wantValid {
			t.Errorf("GroupLogic(%q).Valid() = %v, want %v", tt.in, got, tt.wantValid)
		}
	}
}

func TestDecodeConditions_DecodeAndDefault(t *testing.T) {
	// encoding/json yields float64 elements, yaml.v3 yields int
	want := func(raw any) Conditions {
		return Conditions{
			{GroupLogic: LogicAnd, Rules: []ConditionRule{
				{Field: "invoice.amount", Operator: OpGt, Value: Number(100)},
				{Field: "", Operator: "regex", Value: Literal{kind: LiteralInvalid, raw: raw}},
			}},
			{GroupLogic: "XOR", Rules: []ConditionRule{
				{Field: "invoice.notes", Operator: OpIsEmpty, Value: Null()},
			}},
		}
	}

	fromJSON, err := DecodeConditionsJSON([]byte(`[
		{"rules": [
			{"field": "invoice.amount", "operator": "GT", "value": 100},
			{"field": 42, "op": "regex", "value": [1, 2]}
		]},
		{"logic": "xor", "rules": [{"field": "invoice.notes", "operator": "is_empty"}]}
	]`))
	if err != nil {
		t.Fatalf("DecodeConditionsJSON failed: %v", err)
	}
	if diff := cmp.Diff(want([]any{1.0, 2.0}), fromJSON, cmp.AllowUnexported(Literal{})); diff != "" {
		t.Errorf("DecodeConditionsJSON mismatch (-want +got):\n%s", diff)
	}

	fromYAML, err := DecodeConditionsYAML([]byte(`
- rules:
    - field: invoice.amount
      operator: GT
      value: 100
    - field: 42
      op: regex
      value: [1, 2]
- logic: xor
  rules:
    - field: invoice.notes
      operator: is_empty
`))
	if err != nil {
		t.Fatalf("DecodeConditionsYAML failed: %v", err)
	}
	if diff := cmp.Diff(want([]any{1, 2}), fromYAML, cmp.AllowUnexported(Literal{})); diff != "" {
		t.Errorf("DecodeConditionsYAML mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeConditions_SyntaxError(t *testing.T) {
	if _, err := DecodeConditionsJSON([]byte(`[{"rules": [}`)); err == nil {
		t.Error("DecodeConditionsJSON(invalid) = nil error, want error")
	}
}

func TestLiteral_MarshalRoundTrip(t *testing.T) {
	for _, lit := range []Literal{Null(), Number(1.5), String("gold"), Bool(false)} {
		data, err := json.Marshal(lit)
		if err != nil {
			t.Fatalf("json.Marshal(%v) failed: %v", lit, err)
		}
		var back Literal
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("json.Unmarshal(%s) failed: %v", data, err)
		}
		if back != lit {
			t.Errorf("JSON round trip = %v, want %v", back, lit)
		}

		out, err := yaml.Marshal(lit)
		if err != nil {
			t.Fatalf("yaml.Marshal(%v) failed: %v", lit, err)
		}
		var yback Literal
		if err := yaml.Unmarshal(out, &yback); err != nil {
			t.Fatalf("yaml.Unmarshal(%s) failed: %v", out, err)
		}
		if yback != lit {
			t.Errorf("YAML round trip = %v, want %v", yback, lit)
		}
	}
}

func TestLiteral_InvalidSurvivesReencoding(t *testing.T) {
	conds, err := DecodeConditionsJSON([]byte(`[{"rules":[{"field":"invoice.po","operator":"eq","value":[1,2]}]}]`))
	if err != nil {
		t.Fatalf("DecodeConditionsJSON failed: %v", err)
	}

	data, err := json.Marshal(conds)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	back, err := DecodeConditionsJSON(data)
	if err != nil {
		t.Fatalf("DecodeConditionsJSON(%s) failed: %v", data, err)
	}
	if got := back[0].Rules[0].Value.Kind(); got != LiteralInvalid {
		t.Errorf("JSON re-decoded kind = %v, want %v (stored %s)", got, LiteralInvalid, data)
	}

	out, err := yaml.Marshal(conds)
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}
	yback, err := DecodeConditionsYAML(out)
	if err != nil {
		t.Fatalf("DecodeConditionsYAML(%s) failed: %v", out, err)
	}
	if got := yback[0].Rules[0].Value.Kind(); got != LiteralInvalid {
		t.Errorf("YAML re-decoded kind = %v, want %v (stored %s)", got, LiteralInvalid, out)
	}
}

func TestLiteralOf_SmallIntegers(t *testing.T) {
	for _, v := range []any{int8(7), int16(7), uint8(7), uint16(7), uint32(7), uint(7)} {
		if got := LiteralOf(v); got != Number(7) {
			t.Errorf("LiteralOf(%T) = %v, want 7", v, got)
		}
	}
}

func TestErrorTypes(t *testing.T) {
	var err error = &PolicyViolation{Pattern: "max_length", Reason: "snippet too long"}
	if !errors.Is(err, ErrPolicyViolation) {
		t.Error("PolicyViolation does not match ErrPolicyViolation")
	}

	err = NewExecutionFault(FaultTimeout, ErrExecutionTimeout)
	if !errors.Is(err, ErrExecutionFault) || !errors.Is(err, ErrExecutionTimeout) {
		t.Errorf("ExecutionFault %v does not match its sentinels", err)
	}
	if errors.Is(err, ErrPolicyViolation) {
		t.Error("ExecutionFault matches ErrPolicyViolation")
	}
}
