package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/regressoor/pkg/analysis"
	"github.com/ethpandaops/regressoor/pkg/registry"
	"github.com/ethpandaops/regressoor/pkg/result"
)

var (
	analyzeABRegistryFile string
	analyzeABWorkflowType string
	analyzeABWorkflowName string
	analyzeABResultsDir   string
	analyzeABOutput       string
)

var analyzeABCmd = &cobra.Command{
	Use:   "analyze-ab",
	Short: "Compare paired experiment and baseline results",
	Long: `Loads the experiment and baseline result artifacts of an A/B run,
pairs them by config id, and evaluates each metric's relative delta against
its threshold. Exits non-zero when any config regressed or lost its
experiment result.`,
	RunE: runAnalyzeAB,
}

func init() {
	rootCmd.AddCommand(analyzeABCmd)
	analyzeABCmd.Flags().StringVar(&analyzeABRegistryFile, "registry", "",
		"Path to the benchmark registry file")
	analyzeABCmd.Flags().StringVar(&analyzeABWorkflowType, "workflow-type", "",
		"Workflow type the results were produced by")
	analyzeABCmd.Flags().StringVar(&analyzeABWorkflowName, "workflow-name", "",
		"Workflow name shown in the report title (default: workflow type)")
	analyzeABCmd.Flags().StringVar(&analyzeABResultsDir, "results-dir", "",
		"Directory holding the collected result artifacts")
	analyzeABCmd.Flags().StringVar(&analyzeABOutput, "output", "",
		"Markdown report output path (default: stdout)")

	_ = analyzeABCmd.MarkFlagRequired("registry")
	_ = analyzeABCmd.MarkFlagRequired("workflow-type")
	_ = analyzeABCmd.MarkFlagRequired("results-dir")
}

func runAnalyzeAB(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := registry.Load(analyzeABRegistryFile)
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	manifests, err := manifestsByConfigID(reg, analyzeABWorkflowType)
	if err != nil {
		return err
	}

	results, err := result.LoadABDir(analyzeABResultsDir)
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	rep := analysis.AnalyzeABAll(manifests, results)

	if err := writeReport(rep, cfg.GitHub.RepoURL, cfg.Report.MaxChars, analyzeABWorkflowName, analyzeABWorkflowType, analyzeABOutput); err != nil {
		return err
	}

	if rep.Failed() {
		return fmt.Errorf("performance regression detected")
	}

	log.Info("All comparisons passed")

	return nil
}
