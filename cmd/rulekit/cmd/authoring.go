package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Oyestore/receivables-sub031/internal/authoring"
)

var testRuleCmd = &cobra.Command{
	Use:   "test-rule",
	Short: "Run a custom snippet or condition tree against sample records",
	Long: `test-rule runs a rule against every sample and prints a report with one
result per sample. Exactly one of --snippet, --snippet-file or --rules is required.`,
	RunE: runTestRule,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a condition tree or snippet without evaluating it",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(testRuleCmd, checkCmd)

	addSnippetFlags(testRuleCmd)
	testRuleCmd.Flags().String("rules", "", "condition tree file (JSON or YAML)")
	testRuleCmd.Flags().String("samples", "", "sample records file (JSON array or YAML list, - for stdin)")
	testRuleCmd.MarkFlagRequired("samples")
	testRuleCmd.Flags().Bool("strict", false, "exit non-zero when any sample fails")

	addSnippetFlags(checkCmd)
	checkCmd.Flags().String("rules", "", "condition tree file (JSON or YAML)")
}

func newHarness(env *runtimeEnv) (*authoring.Harness, error) {
	engine, err := env.engine()
	if err != nil {
		return nil, err
	}
	return authoring.NewHarness(engine, env.cfg.Harness,
		authoring.WithLogger(env.logger),
		authoring.WithLimits(env.limits()),
	), nil
}

func runTestRule(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	harness, err := newHarness(env)
	if err != nil {
		return err
	}

	samplesPath, _ := cmd.Flags().GetString("samples")
	samples, err := readRecords(samplesPath)
	if err != nil {
		return err
	}

	var report authoring.Report
	if rulesPath, _ := cmd.Flags().GetString("rules"); rulesPath != "" {
		conds, err := readConditions(rulesPath)
		if err != nil {
			return err
		}
		report, err = harness.TestConditions(conds, samples)
		if err != nil {
			return err
		}
	} else {
		snippet, err := snippetFromFlags(cmd)
		if err != nil {
			return err
		}
		report, err = harness.TestRule(context.Background(), snippet, samples)
		if err != nil {
			return err
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict && !report.Valid {
		return fmt.Errorf("rule failed on one or more samples")
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	if rulesPath, _ := cmd.Flags().GetString("rules"); rulesPath != "" {
		harness, err := newHarness(env)
		if err != nil {
			return err
		}
		conds, err := readConditions(rulesPath)
		if err != nil {
			return err
		}
		if err := harness.CheckConditions(conds); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}

	snippet, err := snippetFromFlags(cmd)
	if err != nil {
		return err
	}
	engine, err := env.engine()
	if err != nil {
		return err
	}
	if err := engine.Validate(snippet); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
