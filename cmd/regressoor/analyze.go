package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/regressoor/pkg/analysis"
	"github.com/ethpandaops/regressoor/pkg/registry"
	"github.com/ethpandaops/regressoor/pkg/report"
	"github.com/ethpandaops/regressoor/pkg/result"
)

var (
	analyzeRegistryFile string
	analyzeWorkflowType string
	analyzeWorkflowName string
	analyzeResultsDir   string
	analyzeOutput       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Check collected results against their static baselines",
	Long: `Loads every benchmark result collected from the job matrix, compares
each requested statistic against the fixed baseline declared in the registry,
and renders a markdown report. Exits non-zero when any comparison regressed.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeRegistryFile, "registry", "",
		"Path to the benchmark registry file")
	analyzeCmd.Flags().StringVar(&analyzeWorkflowType, "workflow-type", "",
		"Workflow type the results were produced by")
	analyzeCmd.Flags().StringVar(&analyzeWorkflowName, "workflow-name", "",
		"Workflow name shown in the report title (default: workflow type)")
	analyzeCmd.Flags().StringVar(&analyzeResultsDir, "results-dir", "",
		"Directory holding the collected result artifacts")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "",
		"Markdown report output path (default: stdout)")

	_ = analyzeCmd.MarkFlagRequired("registry")
	_ = analyzeCmd.MarkFlagRequired("workflow-type")
	_ = analyzeCmd.MarkFlagRequired("results-dir")
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := registry.Load(analyzeRegistryFile)
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	manifests, err := manifestsByConfigID(reg, analyzeWorkflowType)
	if err != nil {
		return err
	}

	results, err := result.LoadDir(analyzeResultsDir)
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ConfigID < results[j].ConfigID
	})

	rep := &analysis.Report{}
	for _, res := range results {
		rep.Configs = append(rep.Configs,
			analysis.AnalyzeStatic(res.ConfigID, manifests[res.ConfigID], res))
	}

	if err := writeReport(rep, cfg.GitHub.RepoURL, cfg.Report.MaxChars, analyzeWorkflowName, analyzeWorkflowType, analyzeOutput); err != nil {
		return err
	}

	if rep.Failed() {
		return fmt.Errorf("performance regression detected")
	}

	log.Info("All comparisons passed")

	return nil
}

// manifestsByConfigID maps each resolved config id to its benchmark's
// metric manifest.
func manifestsByConfigID(reg *registry.Registry, workflowType string) (map[string][]registry.MetricSpec, error) {
	jobs, err := registry.Resolve(reg, workflowType)
	if err != nil {
		return nil, fmt.Errorf("resolving registry: %w", err)
	}

	manifests := make(map[string][]registry.MetricSpec, len(jobs))
	for _, job := range jobs {
		manifests[job.ConfigID] = job.Metrics
	}

	return manifests, nil
}

// writeReport renders the markdown report to a file or stdout.
func writeReport(rep *analysis.Report, repoURL string, maxChars int, workflowName, workflowType, output string) error {
	name := workflowName
	if name == "" {
		name = workflowType
	}

	md := report.Generate(rep, report.Options{
		WorkflowName: name,
		RepoURL:      repoURL,
		MaxChars:     maxChars,
	})

	if output == "" {
		fmt.Println(md)

		return nil
	}

	if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}

	log.WithField("output", output).Info("Report written")

	return nil
}
