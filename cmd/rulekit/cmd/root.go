package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Oyestore/receivables-sub031/internal/core/config"
	"github.com/Oyestore/receivables-sub031/internal/core/db"
	"github.com/Oyestore/receivables-sub031/internal/core/logging"
	"github.com/Oyestore/receivables-sub031/internal/core/metrics"
	"github.com/Oyestore/receivables-sub031/internal/rules"
	"github.com/Oyestore/receivables-sub031/internal/sandbox"
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:          "rulekit",
	Short:        "Receivables rule evaluation toolkit",
	Long:         `rulekit evaluates declarative condition trees and sandboxed custom rules against invoice records.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}

// runtimeEnv holds what every subcommand needs after flags are parsed.
type runtimeEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// loadRuntime loads config and applies flag overrides.
// Flags > environment > config file > defaults.
func loadRuntime(cmd *cobra.Command) (*runtimeEnv, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.Database.URL = dbURL
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	return &runtimeEnv{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRecorder(cfg.Metrics, nil),
	}, nil
}

func (r *runtimeEnv) evaluator() *rules.Evaluator {
	return rules.NewEvaluator(rules.WithLogger(r.logger), rules.WithMetrics(r.metrics))
}

func (r *runtimeEnv) engine() (*sandbox.Engine, error) {
	engine, err := sandbox.NewEngine(r.cfg.Sandbox, sandbox.WithLogger(r.logger), sandbox.WithMetrics(r.metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox engine: %w", err)
	}
	return engine, nil
}

func (r *runtimeEnv) limits() rules.Limits {
	return rules.Limits{
		MaxGroups:        r.cfg.Rules.MaxGroups,
		MaxRulesPerGroup: r.cfg.Rules.MaxRulesPerGroup,
	}
}

// openDatabase opens the configured database. When requireMigrated is set
// it refuses to continue until every embedded migration has been applied.
func (r *runtimeEnv) openDatabase(ctx context.Context, requireMigrated bool) (*sqlx.DB, error) {
	if r.cfg.Database.URL == "" {
		return nil, fmt.Errorf("--db-url required (or set RK_DATABASE_URL)")
	}
	database, err := db.Open(ctx, r.cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if !requireMigrated {
		return database, nil
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, fmt.Errorf("migration %s not applied - run 'rulekit migrate' first", s.ID)
		}
	}
	return database, nil
}

// openStore opens a migrated database and returns its rule store.
func (r *runtimeEnv) openStore(ctx context.Context) (*db.RuleStore, func(), error) {
	database, err := r.openDatabase(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return db.NewRuleStore(queries), func() { database.Close() }, nil
}
