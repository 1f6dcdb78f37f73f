package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	d := DefaultConfig()
	v.SetDefault("sandbox.timeout", d.Sandbox.Timeout.String())
	v.SetDefault("sandbox.max_snippet_length", d.Sandbox.MaxSnippetLength)
	v.SetDefault("sandbox.max_memory_bytes", d.Sandbox.MaxMemoryBytes)
	v.SetDefault("sandbox.cost_limit", d.Sandbox.CostLimit)
	v.SetDefault("sandbox.forbidden_patterns", d.Sandbox.ForbiddenPatterns)
	v.SetDefault("rules.max_groups", d.Rules.MaxGroups)
	v.SetDefault("rules.max_rules_per_group", d.Rules.MaxRulesPerGroup)
	v.SetDefault("harness.max_samples", d.Harness.MaxSamples)
	v.SetDefault("harness.parallelism", d.Harness.Parallelism)
	v.SetDefault("database.url", "")
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.subsystem", d.Metrics.Subsystem)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	// Bind environment variables with RK_ prefix
	v.SetEnvPrefix("RK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials must be environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Sandbox: SandboxConfig{
			Timeout:           v.GetDuration("sandbox.timeout"),
			MaxSnippetLength:  v.GetInt("sandbox.max_snippet_length"),
			MaxMemoryBytes:    v.GetInt64("sandbox.max_memory_bytes"),
			CostLimit:         v.GetUint64("sandbox.cost_limit"),
			ForbiddenPatterns: v.GetStringSlice("sandbox.forbidden_patterns"),
		},
		Rules: RulesConfig{
			MaxGroups:        v.GetInt("rules.max_groups"),
			MaxRulesPerGroup: v.GetInt("rules.max_rules_per_group"),
		},
		Harness: HarnessConfig{
			MaxSamples:  v.GetInt("harness.max_samples"),
			Parallelism: v.GetInt("harness.parallelism"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Metrics: MetricsConfig{
			Namespace: v.GetString("metrics.namespace"),
			Subsystem: v.GetString("metrics.subsystem"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks positive limits and that every forbidden pattern compiles.
func Validate(cfg *Config) error {
	if cfg.Sandbox.Timeout <= 0 {
		return fmt.Errorf("sandbox.timeout must be positive, got %v", cfg.Sandbox.Timeout)
	}
	if cfg.Sandbox.MaxSnippetLength <= 0 {
		return fmt.Errorf("sandbox.max_snippet_length must be positive, got %d", cfg.Sandbox.MaxSnippetLength)
	}
	if cfg.Sandbox.MaxMemoryBytes <= 0 {
		return fmt.Errorf("sandbox.max_memory_bytes must be positive, got %d", cfg.Sandbox.MaxMemoryBytes)
	}
	if cfg.Sandbox.CostLimit == 0 {
		return fmt.Errorf("sandbox.cost_limit must be positive")
	}
	if len(cfg.Sandbox.ForbiddenPatterns) == 0 {
		return fmt.Errorf("sandbox.forbidden_patterns must not be empty")
	}
	for _, p := range cfg.Sandbox.ForbiddenPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("sandbox.forbidden_patterns: invalid pattern %q: %w", p, err)
		}
	}
	if cfg.Rules.MaxGroups <= 0 {
		return fmt.Errorf("rules.max_groups must be positive, got %d", cfg.Rules.MaxGroups)
	}
	if cfg.Rules.MaxRulesPerGroup <= 0 {
		return fmt.Errorf("rules.max_rules_per_group must be positive, got %d", cfg.Rules.MaxRulesPerGroup)
	}
	if cfg.Harness.MaxSamples <= 0 {
		return fmt.Errorf("harness.max_samples must be positive, got %d", cfg.Harness.MaxSamples)
	}
	if cfg.Harness.Parallelism <= 0 {
		return fmt.Errorf("harness.parallelism must be positive, got %d", cfg.Harness.Parallelism)
	}
	return nil
}

// validateNoSecretsInConfig rejects database URLs carrying a password in
// config files (use RK_DATABASE_URL instead).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if !v.InConfig("database.url") {
		return nil
	}
	u, err := url.Parse(v.GetString("database.url"))
	if err != nil {
		return nil
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database credentials not allowed in config files (use RK_DATABASE_URL environment variable)")
	}
	return nil
}
