// Package sandbox executes tenant-authored logic snippets against a
// restricted projection of a record.
//
// Every execution passes through the policy Validator first. Snippets that
// pass are compiled and run by a fresh CEL interpreter per call, under a
// wall-clock timeout and a runtime cost limit. On the runtime path every
// failure yields false.
package sandbox

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/Oyestore/receivables-sub031/internal/core/config"
	"github.com/Oyestore/receivables-sub031/internal/types"
)

// MaxLengthPattern is the PolicyViolation.Pattern reported for oversized snippets.
const MaxLengthPattern = "max_length"

// Validator is a static blocklist scan over snippet text.
// Compiled once; read-only afterwards and safe for concurrent use.
type Validator struct {
	maxLength int
	patterns  []*regexp.Regexp
}

// NewValidator compiles the configured forbidden patterns.
func NewValidator(cfg config.SandboxConfig) (*Validator, error) {
	maxLength := cfg.MaxSnippetLength
	if maxLength <= 0 {
		maxLength = types.MaxSnippetLength
	}
	sources := cfg.ForbiddenPatterns
	if len(sources) == 0 {
		sources = config.DefaultForbiddenPatterns
	}

	patterns := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("invalid forbidden pattern %q: %w", src, err)
		}
		patterns = append(patterns, re)
	}
	return &Validator{maxLength: maxLength, patterns: patterns}, nil
}

// Validate returns a *types.PolicyViolation for the first rule the snippet
// breaks, or nil. The length cap counts characters, not bytes.
func (v *Validator) Validate(snippet string) error {
	if n := utf8.RuneCountInString(snippet); n > v.maxLength {
		return &types.PolicyViolation{
			Pattern: MaxLengthPattern,
			Reason:  fmt.Sprintf("snippet is %d characters, limit is %d", n, v.maxLength),
		}
	}
	for _, re := range v.patterns {
		if loc := re.FindStringIndex(snippet); loc != nil {
			return &types.PolicyViolation{
				Pattern: re.String(),
				Reason:  fmt.Sprintf("forbidden capability reference %q", snippet[loc[0]:loc[1]]),
			}
		}
	}
	return nil
}
