// internal/rules/compile_test.go
package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

func TestCompile_Valid(t *testing.T) {
	compiled, err := Compile(e2eConditions(), DefaultLimits())
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}

	if len(compiled.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(compiled.Groups))
	}
	if compiled.Groups[1].Logic != types.LogicOr {
		t.Errorf("Groups[1].Logic = %v, want OR", compiled.Groups[1].Logic)
	}
	if got := len(compiled.Groups[0].Rules[0].Path); got != 2 {
		t.Errorf("len(Path) = %d, want 2", got)
	}
}

func TestCompile_NormalizesLogic(t *testing.T) {
	conds := types.Conditions{
		{Rules: []types.ConditionRule{rule("a", types.OpIsEmpty, types.Null())}},
		{GroupLogic: " or ", Rules: []types.ConditionRule{rule("a", types.OpIsEmpty, types.Null())}},
	}

	compiled, err := Compile(conds, DefaultLimits())
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	if compiled.Groups[0].Logic != types.LogicAnd {
		t.Errorf("Groups[0].Logic = %v, want AND", compiled.Groups[0].Logic)
	}
	if compiled.Groups[1].Logic != types.LogicOr {
		t.Errorf("Groups[1].Logic = %v, want OR", compiled.Groups[1].Logic)
	}
}

func TestCompile_Errors(t *testing.T) {
	many := func(n int) []types.ConditionRule {
		rules := make([]types.ConditionRule, n)
		for i := range rules {
			rules[i] = rule("a", types.OpIsEmpty, types.Null())
		}
		return rules
	}

	tests := []struct {
		name    string
		conds   types.Conditions
		limits  Limits
		wantErr error
	}{
		{
			name:    "too many groups",
			conds:   types.Conditions{{}, {}, {}},
			limits:  Limits{MaxGroups: 2, MaxRulesPerGroup: 10},
			wantErr: types.ErrTooManyGroups,
		},
		{
			name:    "too many rules",
			conds:   types.Conditions{{Rules: many(4)}},
			limits:  Limits{MaxGroups: 2, MaxRulesPerGroup: 3},
			wantErr: types.ErrTooManyRules,
		},
		{
			name:    "unknown group logic",
			conds:   types.Conditions{{GroupLogic: "XOR"}},
			limits:  DefaultLimits(),
			wantErr: types.ErrUnknownGroupLogic,
		},
		{
			name:    "unknown operator",
			conds:   types.Conditions{{Rules: []types.ConditionRule{rule("a", "regex", types.String("x"))}}},
			limits:  DefaultLimits(),
			wantErr: types.ErrUnknownOperator,
		},
		{
			name:    "empty field",
			conds:   types.Conditions{{Rules: []types.ConditionRule{rule("", types.OpEq, types.String("x"))}}},
			limits:  DefaultLimits(),
			wantErr: types.ErrInvalidPath,
		},
		{
			name:    "path too deep",
			conds:   types.Conditions{{Rules: []types.ConditionRule{rule(strings.Repeat("a.", 20)+"a", types.OpEq, types.String("x"))}}},
			limits:  DefaultLimits(),
			wantErr: types.ErrPathTooDeep,
		},
		{
			name:    "ordering needs number",
			conds:   types.Conditions{{Rules: []types.ConditionRule{rule("a", types.OpGt, types.String("5"))}}},
			limits:  DefaultLimits(),
			wantErr: types.ErrMalformedRule,
		},
		{
			name:    "string operator needs string",
			conds:   types.Conditions{{Rules: []types.ConditionRule{rule("a", types.OpStartsWith, types.Number(5))}}},
			limits:  DefaultLimits(),
			wantErr: types.ErrMalformedRule,
		},
		{
			name:    "eq needs scalar",
			conds:   types.Conditions{{Rules: []types.ConditionRule{rule("a", types.OpEq, types.LiteralOf(map[string]any{}))}}},
			limits:  DefaultLimits(),
			wantErr: types.ErrMalformedRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.conds, tt.limits)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compile() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompile_ErrorNamesLocation(t *testing.T) {
	conds := types.Conditions{
		{Rules: []types.ConditionRule{rule("a", types.OpIsEmpty, types.Null())}},
		{Rules: []types.ConditionRule{
			rule("a", types.OpIsEmpty, types.Null()),
			rule("b", "bogus", types.Null()),
		}},
	}

	_, err := Compile(conds, DefaultLimits())
	if err == nil {
		t.Fatal("Compile() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "group 1 rule 1") {
		t.Errorf("Compile() error = %q, want location \"group 1 rule 1\"", err)
	}
}

func TestCompile_EmptinessIgnoresLiteral(t *testing.T) {
	conds := types.Conditions{{Rules: []types.ConditionRule{
		rule("a", types.OpIsNotEmpty, types.LiteralOf([]any{1})),
	}}}
	if _, err := Compile(conds, DefaultLimits()); err != nil {
		t.Errorf("Compile() error = %v, want nil", err)
	}
}

func TestEvaluateCompiled_MatchesEvaluateConditions(t *testing.T) {
	records := []types.Record{
		{"invoice": map[string]any{"amount": 1500.0, "clientTier": "silver", "region": "APAC"}},
		{"invoice": map[string]any{"amount": 500.0, "clientTier": "gold", "region": "EU"}},
		{"invoice": map[string]any{"amount": 2000.0, "clientTier": "gold"}},
		{"invoice": map[string]any{"amount": "2000", "region": "APAC"}},
		{},
	}

	conds := e2eConditions()
	compiled, err := Compile(conds, DefaultLimits())
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}

	e := NewEvaluator()
	for i, record := range records {
		want := e.EvaluateConditions(conds, record)
		if got := e.EvaluateCompiled(compiled, record); got != want {
			t.Errorf("record %d: EvaluateCompiled() = %v, want %v", i, got, want)
		}
	}
}

func TestEvaluateCompiled_EmptyGroups(t *testing.T) {
	compiled, err := Compile(types.Conditions{{GroupLogic: types.LogicOr}, {}}, DefaultLimits())
	if err != nil {
		t.Fatalf("Compile() error = %v, want nil", err)
	}
	if !NewEvaluator().EvaluateCompiled(compiled, types.Record{}) {
		t.Errorf("EvaluateCompiled() = false, want true")
	}
}
