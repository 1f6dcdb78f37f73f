package sandbox

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestNewContext_Defaults(t *testing.T) {
	sc := NewContext(types.Record{}, fixedNow)

	assert.Equal(t, 0.0, sc.Invoice["amount"])
	assert.Equal(t, DefaultClientTier, sc.Invoice["clientTier"])
	assert.Equal(t, DefaultIndustry, sc.Invoice["industry"])
	assert.Equal(t, DefaultRegion, sc.Invoice["region"])
	assert.Equal(t, fixedNow, sc.Invoice["date"])
	assert.Equal(t, map[string]any{}, sc.Invoice["customFields"])
}

func TestNewContext_Coercion(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		key   string
		want  any
	}{
		{"int amount", map[string]any{"amount": 42}, "amount", 42.0},
		{"string amount", map[string]any{"amount": " 99.5 "}, "amount", 99.5},
		{"garbage amount", map[string]any{"amount": "n/a"}, "amount", 0.0},
		{"bool amount", map[string]any{"amount": true}, "amount", 0.0},
		{"tier fallback", map[string]any{"tier": "gold"}, "clientTier", "gold"},
		{"clientTier wins", map[string]any{"clientTier": "silver", "tier": "gold"}, "clientTier", "silver"},
		{"blank tier", map[string]any{"clientTier": "  "}, "clientTier", DefaultClientTier},
		{"non-string region", map[string]any{"region": 7}, "region", DefaultRegion},
		{"rfc3339 date", map[string]any{"date": "2024-05-01T10:00:00+02:00"}, "date", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"plain date", map[string]any{"date": "2024-05-01"}, "date", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"invoiceDate fallback", map[string]any{"date": "soon", "invoiceDate": "2024-01-02"}, "date", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"dueDate fallback", map[string]any{"dueDate": "2024-02-03"}, "date", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)},
		{"unparseable date", map[string]any{"date": "yesterday"}, "date", fixedNow},
		{"non-map custom fields", map[string]any{"customFields": []any{1}}, "customFields", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewContext(types.Record{"invoice": tt.input}, fixedNow)
			assert.Equal(t, tt.want, sc.Invoice[tt.key])
		})
	}
}

func TestNewContext_NonFiniteAmount(t *testing.T) {
	for _, amount := range []any{"NaN", "Inf", "-Inf", "+Inf", " infinity ", math.NaN(), math.Inf(1), float32(math.Inf(-1))} {
		sc := NewContext(types.Record{"invoice": map[string]any{"amount": amount}}, fixedNow)
		assert.Equal(t, 0.0, sc.Invoice["amount"], "amount %#v", amount)
	}
}

func TestNewContext_SmallIntegerAmount(t *testing.T) {
	for _, amount := range []any{int8(7), int16(7), uint8(7), uint16(7), uint32(7), uint(7)} {
		sc := NewContext(types.Record{"invoice": map[string]any{"amount": amount}}, fixedNow)
		assert.Equal(t, 7.0, sc.Invoice["amount"], "amount %T", amount)
	}
}

func TestNewContext_ProjectionIsACopy(t *testing.T) {
	custom := map[string]any{"nested": map[string]any{"k": "v"}, "list": []any{"a"}}
	record := types.Record{"invoice": map[string]any{"customFields": custom}}

	sc := NewContext(record, fixedNow)
	projected := sc.Invoice["customFields"].(map[string]any)
	projected["nested"].(map[string]any)["k"] = "changed"
	projected["list"].([]any)[0] = "changed"

	assert.Equal(t, "v", custom["nested"].(map[string]any)["k"])
	assert.Equal(t, "a", custom["list"].([]any)[0])
}

func TestNewContext_OnlyProjectedKeys(t *testing.T) {
	record := types.Record{
		"invoice":  map[string]any{"amount": 1.0, "internalNotes": "do not expose"},
		"tenantDB": "postgres://secret",
	}
	sc := NewContext(record, fixedNow)

	assert.ElementsMatch(t,
		[]string{"amount", "clientTier", "industry", "region", "date", "customFields"},
		keys(sc.Invoice))
	assert.Equal(t, []string{"invoice"}, keys(sc.Activation()))
}

func TestNewContext_DropsOpaqueValues(t *testing.T) {
	ch := make(chan int)
	record := types.Record{"customFields": map[string]any{"ch": ch, "fn": func() {}, "ok": "yes"}}

	custom := NewContext(record, fixedNow).Invoice["customFields"].(map[string]any)
	assert.Nil(t, custom["ch"])
	assert.Nil(t, custom["fn"])
	assert.Equal(t, "yes", custom["ok"])
}

func TestNewContext_CyclicCustomFields(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	sc := NewContext(types.Record{"customFields": cyclic}, fixedNow)
	require.NotNil(t, sc)
	assert.Greater(t, sc.EstimatedBytes(), int64(0))
}

func TestEstimatedBytes_GrowsWithContent(t *testing.T) {
	small := NewContext(types.Record{}, fixedNow).EstimatedBytes()
	large := NewContext(types.Record{"customFields": map[string]any{"blob": string(make([]byte, 10_000))}}, fixedNow).EstimatedBytes()

	assert.Greater(t, large, small+10_000-1)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
