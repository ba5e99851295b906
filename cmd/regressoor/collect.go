package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/regressoor/pkg/artifacts"
)

var (
	collectConfigID string
	collectRunID    string
	collectDirs     []string
)

var collectCmd = &cobra.Command{
	Use:   "collect-artifacts",
	Short: "Upload a job's output directories to S3 storage",
	Long: `Uploads the workload's metric log and artifact directories to
S3-compatible storage under a job-scoped prefix. Runs even after a failed
workload and takes whatever directories exist.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringVar(&collectConfigID, "config-id", "",
		"Config id of the job the artifacts belong to")
	collectCmd.Flags().StringVar(&collectRunID, "run-id", "",
		"CI run id the artifacts belong to")
	collectCmd.Flags().StringSliceVar(&collectDirs, "dir", nil,
		"Directory to collect (default: the workload output directories from the environment)")

	_ = collectCmd.MarkFlagRequired("config-id")
	_ = collectCmd.MarkFlagRequired("run-id")
}

func runCollect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Artifacts.S3 == nil || !cfg.Artifacts.S3.Enabled {
		return fmt.Errorf("S3 artifact upload is not configured or not enabled in config")
	}

	dirs := collectDirs
	if len(dirs) == 0 {
		dirs = artifacts.OutputDirs(log)
	}

	uploader := artifacts.NewS3Uploader(log, cfg.Artifacts.S3)

	ctx := cmd.Context()

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("storage preflight: %w", err)
	}

	jobPrefix := collectConfigID + "/" + collectRunID

	if err := artifacts.Collect(ctx, log, uploader, jobPrefix, dirs); err != nil {
		return fmt.Errorf("collecting artifacts: %w", err)
	}

	return nil
}
