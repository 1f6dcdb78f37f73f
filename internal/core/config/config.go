// Package config provides configuration management for the rule evaluation services.
package config

import (
	"time"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

// Config is the complete configuration for the rulekit services.
type Config struct {
	Sandbox  SandboxConfig
	Rules    RulesConfig
	Harness  HarnessConfig
	Database DatabaseConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// SandboxConfig bounds custom snippet execution.
type SandboxConfig struct {
	Timeout           time.Duration
	MaxSnippetLength  int
	MaxMemoryBytes    int64
	CostLimit         uint64
	ForbiddenPatterns []string
}

// RulesConfig bounds declarative rule trees at compile time.
type RulesConfig struct {
	MaxGroups        int
	MaxRulesPerGroup int
}

// HarnessConfig bounds Rule Test Harness batches.
type HarnessConfig struct {
	MaxSamples  int
	Parallelism int
}

// DatabaseConfig locates the rule store.
type DatabaseConfig struct {
	URL string
}

// MetricsConfig names the Prometheus metrics.
type MetricsConfig struct {
	Namespace string
	Subsystem string
}

// LoggingConfig selects zap level and encoding.
type LoggingConfig struct {
	Level  string
	Format string
}

// DefaultForbiddenPatterns is the capability blocklist applied to snippets.
// Grouped by capability; each entry is a Go regexp.
var DefaultForbiddenPatterns = []string{
	// dynamic module/code loading
	`\brequire\s*\(`,
	`\bimport\b`,
	`\beval\b`,
	// reflective function construction
	`\bFunction\b`,
	`\bconstructor\b`,
	`__proto__`,
	`\bprototype\b`,
	`\breflect\b`,
	// timers and schedulers
	`\bsetTimeout\b`,
	`\bsetInterval\b`,
	`\bsetImmediate\b`,
	`\bqueueMicrotask\b`,
	// process and environment globals
	`\bprocess\b`,
	`\bglobal(This)?\b`,
	`\bos\.`,
	`\benv\b`,
	// path and location globals
	`__dirname`,
	`__filename`,
	`\blocation\b`,
	`\bwindow\b`,
	`\bdocument\b`,
	// filesystem and subprocess primitives
	`\bfs\b`,
	`child_process`,
	`\bexec(Sync|File)?\b`,
	`\bspawn(Sync)?\b`,
	`\bfork\b`,
}

// DefaultSandboxConfig returns sandbox limits with default values.
func DefaultSandboxConfig() SandboxConfig {
	patterns := make([]string, len(DefaultForbiddenPatterns))
	copy(patterns, DefaultForbiddenPatterns)
	return SandboxConfig{
		Timeout:           types.DefaultExecutionTimeout,
		MaxSnippetLength:  types.MaxSnippetLength,
		MaxMemoryBytes:    types.DefaultMaxMemoryBytes,
		CostLimit:         types.DefaultCostLimit,
		ForbiddenPatterns: patterns,
	}
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Sandbox: DefaultSandboxConfig(),
		Rules: RulesConfig{
			MaxGroups:        types.MaxGroups,
			MaxRulesPerGroup: types.MaxRulesPerGroup,
		},
		Harness: HarnessConfig{
			MaxSamples:  types.MaxHarnessSamples,
			Parallelism: 8,
		},
		Metrics: MetricsConfig{
			Namespace: "receivables",
			Subsystem: "rules",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
