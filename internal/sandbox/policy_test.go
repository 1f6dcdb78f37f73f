package sandbox

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Oyestore/receivables-sub031/internal/core/config"
	"github.com/Oyestore/receivables-sub031/internal/types"
)

func TestValidator_RejectsForbiddenCapabilities(t *testing.T) {
	v, err := NewValidator(config.DefaultSandboxConfig())
	require.NoError(t, err)

	tests := []struct {
		name    string
		snippet string
	}{
		{"module loading", `require("fs").readFileSync("/etc/passwd")`},
		{"import", `import os from "os"`},
		{"eval", `eval("1+1") == 2`},
		{"function constructor", `new Function("return process")()`},
		{"constructor chain", `"".constructor.constructor("return this")()`},
		{"proto", `invoice.__proto__`},
		{"timer", `setTimeout(f, 0)`},
		{"interval", `setInterval(f, 10)`},
		{"microtask", `queueMicrotask(f)`},
		{"process env", `process.env.DATABASE_URL != ""`},
		{"global this", `globalThis.fetch`},
		{"os access", `os.Getenv("HOME")`},
		{"dirname", `__dirname + "/x"`},
		{"location", `window.location.href`},
		{"document", `document.cookie`},
		{"filesystem", `fs.readFile("x")`},
		{"subprocess", `child_process.execSync("ls")`},
		{"spawn", `spawn("sh")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.snippet)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrPolicyViolation))

			var violation *types.PolicyViolation
			require.True(t, errors.As(err, &violation))
			assert.NotEmpty(t, violation.Pattern)
			assert.NotEqual(t, MaxLengthPattern, violation.Pattern)
		})
	}
}

func TestValidator_AllowsOrdinarySnippets(t *testing.T) {
	v, err := NewValidator(config.DefaultSandboxConfig())
	require.NoError(t, err)

	snippets := []string{
		`invoice.amount > 1000.0 && invoice.clientTier == "gold"`,
		`helpers.get(invoice, "customFields.priority") == "high"`,
		`helpers.has(invoice, "customFields.segment")`,
		`console.log(invoice.region) && invoice.region.startsWith("AP")`,
		`invoice.date < timestamp("2030-01-01T00:00:00Z")`,
		`invoice.industry in ["retail", "manufacturing"]`,
	}

	for _, s := range snippets {
		assert.NoError(t, v.Validate(s), "snippet %q", s)
	}
}

func TestValidator_LengthCapCountsCharacters(t *testing.T) {
	v, err := NewValidator(config.DefaultSandboxConfig())
	require.NoError(t, err)

	// "é" is two bytes; the cap is on characters
	atLimit := `"` + strings.Repeat("é", types.MaxSnippetLength-2) + `"`
	assert.NoError(t, v.Validate(atLimit))

	over := atLimit + " "
	err = v.Validate(over)
	require.Error(t, err)

	var violation *types.PolicyViolation
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, MaxLengthPattern, violation.Pattern)
}

func TestValidator_LengthCheckedBeforePatterns(t *testing.T) {
	cfg := config.DefaultSandboxConfig()
	cfg.MaxSnippetLength = 10
	v, err := NewValidator(cfg)
	require.NoError(t, err)

	var violation *types.PolicyViolation
	require.True(t, errors.As(v.Validate(`process.exit(1) || true`), &violation))
	assert.Equal(t, MaxLengthPattern, violation.Pattern)
}

func TestValidator_CustomPatterns(t *testing.T) {
	cfg := config.DefaultSandboxConfig()
	cfg.ForbiddenPatterns = []string{`\bsecret\b`}
	v, err := NewValidator(cfg)
	require.NoError(t, err)

	assert.Error(t, v.Validate(`invoice.secret == 1`))
	// Only the configured list applies
	assert.NoError(t, v.Validate(`process == 1`))
}

func TestNewValidator_InvalidPattern(t *testing.T) {
	cfg := config.DefaultSandboxConfig()
	cfg.ForbiddenPatterns = []string{`(unclosed`}

	_, err := NewValidator(cfg)
	assert.Error(t, err)
}
