// internal/rules/operators_test.go
package rules

import (
	"errors"
	"testing"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		op     types.Operator
		actual any
		target types.Literal
		want   bool
	}{
		// eq/ne
		{"eq number", types.OpEq, 5.0, types.Number(5), true},
		{"eq string coerces", types.OpEq, "5", types.Number(5), true},
		{"eq string", types.OpEq, "gold", types.String("gold"), true},
		{"eq bool", types.OpEq, true, types.Bool(true), true},
		{"eq present null", types.OpEq, nil, types.Null(), true},
		{"eq null vs value", types.OpEq, "x", types.Null(), false},
		{"ne different", types.OpNe, "silver", types.String("gold"), true},
		{"ne coerced equal", types.OpNe, "5", types.Number(5), false},
		{"ne null vs value", types.OpNe, "x", types.Null(), true},

		// ordering
		{"gt", types.OpGt, 1500.0, types.Number(1000), true},
		{"gt equal", types.OpGt, 1000.0, types.Number(1000), false},
		{"gt int", types.OpGt, 1500, types.Number(1000), true},
		{"gt numeric string", types.OpGt, "5000", types.Number(5), false},
		{"gt string literal", types.OpGt, 10.0, types.String("5"), false},
		{"gt bool", types.OpGt, true, types.Number(0), false},
		{"gt null", types.OpGt, nil, types.Number(0), false},
		{"lt", types.OpLt, 500.0, types.Number(1000), true},
		{"gte equal", types.OpGte, 1000.0, types.Number(1000), true},
		{"lte below", types.OpLte, 999.0, types.Number(1000), true},
		{"lte above", types.OpLte, 1001.0, types.Number(1000), false},

		// string
		{"contains", types.OpContains, "ACME Corp", types.String("Corp"), true},
		{"contains miss", types.OpContains, "ACME Corp", types.String("corp"), false},
		{"contains number", types.OpContains, 12345.0, types.String("23"), false},
		{"not_contains", types.OpNotContains, "ACME Corp", types.String("Ltd"), true},
		{"not_contains hit", types.OpNotContains, "ACME Corp", types.String("ACME"), false},
		{"not_contains type mismatch", types.OpNotContains, 5.0, types.String("x"), false},
		{"not_contains number literal", types.OpNotContains, "abc", types.Number(1), false},
		{"starts_with", types.OpStartsWith, "INV-001", types.String("INV-"), true},
		{"starts_with miss", types.OpStartsWith, "CRN-001", types.String("INV-"), false},
		{"ends_with", types.OpEndsWith, "report.pdf", types.String(".pdf"), true},
		{"ends_with null", types.OpEndsWith, nil, types.String(".pdf"), false},

		// emptiness
		{"is_empty null", types.OpIsEmpty, nil, types.Null(), true},
		{"is_empty empty string", types.OpIsEmpty, "", types.Null(), true},
		{"is_empty zero", types.OpIsEmpty, 0.0, types.Null(), false},
		{"is_empty ignores literal", types.OpIsEmpty, "", types.String("x"), true},
		{"is_not_empty text", types.OpIsNotEmpty, "x", types.Null(), true},
		{"is_not_empty null", types.OpIsNotEmpty, nil, types.Null(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.op, tt.actual, tt.target)
			if err != nil {
				t.Fatalf("Compare() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("Compare(%s, %v, %v) = %v, want %v", tt.op, tt.actual, tt.target, got, tt.want)
			}
		})
	}
}

func TestCompare_Errors(t *testing.T) {
	tests := []struct {
		name    string
		op      types.Operator
		target  types.Literal
		wantErr error
	}{
		{"unknown operator", types.Operator("matches"), types.String("x"), types.ErrUnknownOperator},
		{"empty operator", types.Operator(""), types.Null(), types.ErrUnknownOperator},
		{"list literal", types.OpEq, types.LiteralOf([]any{1}), types.ErrMalformedRule},
		{"object literal", types.OpContains, types.LiteralOf(map[string]any{}), types.ErrMalformedRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.op, "x", tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compare() error = %v, want %v", err, tt.wantErr)
			}
			if got {
				t.Errorf("Compare() = true, want false on error")
			}
		})
	}
}

func TestCompare_EmptinessIgnoresInvalidLiteral(t *testing.T) {
	got, err := Compare(types.OpIsNotEmpty, "x", types.LiteralOf([]any{}))
	if err != nil {
		t.Fatalf("Compare() error = %v, want nil", err)
	}
	if !got {
		t.Errorf("Compare(is_not_empty) = false, want true")
	}
}

func TestCompare_EveryOperatorDispatched(t *testing.T) {
	for _, op := range types.Operators {
		if _, ok := dispatch[op]; !ok {
			t.Errorf("operator %s has no dispatch entry", op)
		}
	}
	if len(dispatch) != len(types.Operators) {
		t.Errorf("len(dispatch) = %d, want %d", len(dispatch), len(types.Operators))
	}
}
