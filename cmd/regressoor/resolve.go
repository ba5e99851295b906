package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/regressoor/pkg/registry"
)

var (
	resolveRegistryFile  string
	resolveWorkflowType  string
	resolveABMode        bool
	resolveExperimentRef string
	resolveBaselineRef   string
	resolveOutput        string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the benchmark registry into a CI job matrix",
	Long: `Reads the registry file, selects the environments matching the workflow
type, and emits one job specification per (benchmark, environment) pair as a
JSON array suitable for a CI matrix. In A/B mode every job is doubled into an
experiment and a baseline job pinned to their git refs.`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&resolveRegistryFile, "registry", "",
		"Path to the benchmark registry file")
	resolveCmd.Flags().StringVar(&resolveWorkflowType, "workflow-type", "",
		"Workflow type to resolve jobs for (e.g. PRESUBMIT, NIGHTLY)")
	resolveCmd.Flags().BoolVar(&resolveABMode, "ab-mode", false,
		"Resolve experiment and baseline jobs for an A/B comparison")
	resolveCmd.Flags().StringVar(&resolveExperimentRef, "experiment-ref", "",
		"Git ref for the experiment jobs (A/B mode)")
	resolveCmd.Flags().StringVar(&resolveBaselineRef, "baseline-ref", "",
		"Git ref for the baseline jobs (A/B mode)")
	resolveCmd.Flags().StringVar(&resolveOutput, "output", "",
		"Output file path (default: stdout)")

	_ = resolveCmd.MarkFlagRequired("registry")
	_ = resolveCmd.MarkFlagRequired("workflow-type")
}

func runResolve(_ *cobra.Command, _ []string) error {
	reg, err := registry.Load(resolveRegistryFile)
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	var jobs []registry.JobSpec

	if resolveABMode {
		jobs, err = registry.ResolveAB(reg, resolveWorkflowType, resolveExperimentRef, resolveBaselineRef)
	} else {
		jobs, err = registry.Resolve(reg, resolveWorkflowType)
	}

	if err != nil {
		return fmt.Errorf("resolving registry: %w", err)
	}

	log.WithField("jobs", len(jobs)).Info("Registry resolved")

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling job matrix: %w", err)
	}

	if resolveOutput == "" {
		fmt.Println(string(data))

		return nil
	}

	if err := os.WriteFile(resolveOutput, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	log.WithField("output", resolveOutput).Info("Job matrix written")

	return nil
}
