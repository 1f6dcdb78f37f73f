package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Oyestore/receivables-sub031/internal/core/api"
	"github.com/Oyestore/receivables-sub031/internal/types"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate a stored tenant rule against a record",
	Long: `decide loads a stored rule and evaluates it the way the runtime does:
any failure (missing rule, policy violation, fault) yields false.`,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)
	decideCmd.Flags().String("tenant", "", "tenant ID")
	decideCmd.MarkFlagRequired("tenant")
	decideCmd.Flags().String("rule", "", "rule ID")
	decideCmd.MarkFlagRequired("rule")
	addRecordFlags(decideCmd)
}

func runDecide(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	record, err := recordFromFlags(cmd)
	if err != nil {
		return err
	}
	engine, err := env.engine()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	service, err := api.NewDecisionService(store, env.evaluator(), engine,
		api.WithLogger(env.logger),
		api.WithMetrics(env.metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	ruleFlag, _ := cmd.Flags().GetString("rule")
	ruleID, err := types.ParseRuleID(ruleFlag)
	if err != nil {
		return fmt.Errorf("invalid --rule: %w", err)
	}
	result := service.Decide(ctx, tenantFromFlags(cmd), ruleID, record)
	return writeJSON(cmd.OutOrStdout(), evalOutput{Result: result})
}
