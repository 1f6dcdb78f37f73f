package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a rule against one record",
}

var evalConditionsCmd = &cobra.Command{
	Use:   "conditions",
	Short: "Evaluate a declarative condition tree",
	RunE:  runEvalConditions,
}

var evalSnippetCmd = &cobra.Command{
	Use:   "snippet",
	Short: "Evaluate a custom snippet in the sandbox",
	RunE:  runEvalSnippet,
}

type evalOutput struct {
	Result bool   `json:"result"`
	Fault  string `json:"fault,omitempty"`
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.AddCommand(evalConditionsCmd, evalSnippetCmd)

	evalConditionsCmd.Flags().String("rules", "", "condition tree file (JSON or YAML, - for stdin)")
	evalConditionsCmd.MarkFlagRequired("rules")
	addRecordFlags(evalConditionsCmd)

	addSnippetFlags(evalSnippetCmd)
	addRecordFlags(evalSnippetCmd)
	evalSnippetCmd.Flags().Bool("explain", false, "report the fault kind when evaluation fails closed")
}

func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().String("record", "", "record as inline JSON")
	cmd.Flags().String("record-file", "", "record file (JSON or YAML, - for stdin)")
}

func addSnippetFlags(cmd *cobra.Command) {
	cmd.Flags().String("snippet", "", "snippet source")
	cmd.Flags().String("snippet-file", "", "file containing the snippet")
}

func recordFromFlags(cmd *cobra.Command) (types.Record, error) {
	inline, _ := cmd.Flags().GetString("record")
	file, _ := cmd.Flags().GetString("record-file")
	return readRecord(inline, file)
}

func snippetFromFlags(cmd *cobra.Command) (string, error) {
	inline, _ := cmd.Flags().GetString("snippet")
	file, _ := cmd.Flags().GetString("snippet-file")
	return readSnippet(inline, file)
}

func runEvalConditions(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	path, _ := cmd.Flags().GetString("rules")
	conds, err := readConditions(path)
	if err != nil {
		return err
	}
	record, err := recordFromFlags(cmd)
	if err != nil {
		return err
	}

	result := env.evaluator().EvaluateConditions(conds, record)
	return writeJSON(cmd.OutOrStdout(), evalOutput{Result: result})
}

func runEvalSnippet(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	snippet, err := snippetFromFlags(cmd)
	if err != nil {
		return err
	}
	record, err := recordFromFlags(cmd)
	if err != nil {
		return err
	}
	engine, err := env.engine()
	if err != nil {
		return err
	}

	ctx := context.Background()
	explain, _ := cmd.Flags().GetBool("explain")
	if !explain {
		result := engine.EvaluateCustomRule(ctx, snippet, record)
		return writeJSON(cmd.OutOrStdout(), evalOutput{Result: result})
	}

	result, execErr := engine.Execute(ctx, snippet, record)
	return writeJSON(cmd.OutOrStdout(), evalOutput{Result: result, Fault: faultKind(execErr)})
}

// faultKind names the failure class without echoing snippet text.
func faultKind(err error) string {
	if err == nil {
		return ""
	}
	var violation *types.PolicyViolation
	if errors.As(err, &violation) {
		return "policy:" + violation.Pattern
	}
	var fault *types.ExecutionFault
	if errors.As(err, &fault) {
		return fault.Kind
	}
	return types.FaultRuntime
}
