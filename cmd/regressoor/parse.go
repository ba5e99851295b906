package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/regressoor/pkg/artifacts"
	"github.com/ethpandaops/regressoor/pkg/registry"
	"github.com/ethpandaops/regressoor/pkg/result"
	"github.com/ethpandaops/regressoor/pkg/stats"
	"github.com/ethpandaops/regressoor/pkg/tblog"
)

var (
	parseRegistryFile   string
	parseBenchmark      string
	parseConfigID       string
	parseLogDir         string
	parseOutputDir      string
	parseCommitSHA      string
	parseWorkflowType   string
	parseGithubRunID    int64
	parseRunnerLabel    string
	parseBranch         string
	parseRunURL         string
	parseSkipSystemInfo bool
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse metric logs into a benchmark result file",
	Long: `Reads the structured metric logs a workload wrote, computes the
statistics the registry requests for each metric, and writes the
benchmark_result.json artifact for the downstream analyzers.`,
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVar(&parseRegistryFile, "registry", "",
		"Path to the benchmark registry file")
	parseCmd.Flags().StringVar(&parseBenchmark, "benchmark", "",
		"Benchmark name this job executed")
	parseCmd.Flags().StringVar(&parseConfigID, "config-id", "",
		"Config id of this job")
	parseCmd.Flags().StringVar(&parseLogDir, "log-dir", "",
		"Metric log directory (default: $"+artifacts.TensorboardOutputDirEnv+")")
	parseCmd.Flags().StringVar(&parseOutputDir, "output-dir", ".",
		"Directory to write the result file into")
	parseCmd.Flags().StringVar(&parseCommitSHA, "commit-sha", "",
		"Commit SHA the workload ran at")
	parseCmd.Flags().StringVar(&parseWorkflowType, "workflow-type", "",
		"Workflow type of this run")
	parseCmd.Flags().Int64Var(&parseGithubRunID, "github-run-id", 0,
		"GitHub Actions run id")
	parseCmd.Flags().StringVar(&parseRunnerLabel, "runner-label", "",
		"Label of the runner that executed the workload")
	parseCmd.Flags().StringVar(&parseBranch, "branch", "",
		"Branch the workload ran on")
	parseCmd.Flags().StringVar(&parseRunURL, "run-url", "",
		"URL of the CI run")
	parseCmd.Flags().BoolVar(&parseSkipSystemInfo, "skip-system-info", false,
		"Do not record runner system information in the result")

	_ = parseCmd.MarkFlagRequired("registry")
	_ = parseCmd.MarkFlagRequired("benchmark")
	_ = parseCmd.MarkFlagRequired("config-id")
	_ = parseCmd.MarkFlagRequired("commit-sha")
}

func runParse(_ *cobra.Command, _ []string) error {
	reg, err := registry.Load(parseRegistryFile)
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	var manifest []registry.MetricSpec

	for _, b := range reg.Benchmarks {
		if b.Name == parseBenchmark {
			manifest = b.Metrics

			break
		}
	}

	if manifest == nil {
		return fmt.Errorf("benchmark %q not found in registry", parseBenchmark)
	}

	logDir := parseLogDir
	if logDir == "" {
		logDir = os.Getenv(artifacts.TensorboardOutputDirEnv)
	}

	if logDir == "" {
		return fmt.Errorf("no log directory: set --log-dir or $%s", artifacts.TensorboardOutputDirEnv)
	}

	tags := make([]string, 0, len(manifest))
	for _, m := range manifest {
		tags = append(tags, m.Name)
	}

	series, err := tblog.NewParser(log, tags).ParseDir(logDir)
	if err != nil {
		return fmt.Errorf("parsing metric logs: %w", err)
	}

	res := &result.BenchmarkResult{
		ConfigID:     parseConfigID,
		CommitSHA:    parseCommitSHA,
		RunTimestamp: time.Now().UTC(),
		GithubRunID:  parseGithubRunID,
		WorkflowType: parseWorkflowType,
		RunnerLabel:  parseRunnerLabel,
		Branch:       parseBranch,
		RunURL:       parseRunURL,
	}

	for _, metric := range manifest {
		values := series[metric.Name].Values()

		for _, statSpec := range metric.Stats {
			stat, err := stats.Parse(statSpec.Stat)
			if err != nil {
				return fmt.Errorf("metric %q: %w", metric.Name, err)
			}

			value, err := stats.Compute(stat, values)
			if errors.Is(err, stats.ErrInsufficientData) {
				// The gap surfaces downstream as a NOT FOUND row.
				log.WithFields(logrus.Fields{
					"metric": metric.Name,
					"stat":   statSpec.Stat,
				}).Warn("No data for requested statistic, skipping")

				continue
			}

			if err != nil {
				return fmt.Errorf("computing %s over %q: %w", statSpec.Stat, metric.Name, err)
			}

			res.Stats = append(res.Stats,
				result.NewComputedStat(metric.Name, statSpec.Stat, metric.Unit, value))
		}
	}

	if !parseSkipSystemInfo {
		res.System = result.CollectSystemInfo(log)
	}

	path, err := result.Write(parseOutputDir, res)
	if err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	log.WithFields(logrus.Fields{
		"path":  path,
		"stats": len(res.Stats),
	}).Info("Benchmark result written")

	return nil
}
