// Package artifacts collects a benchmark job's output directories and
// uploads them to S3-compatible storage so failed runs can be debugged
// after the runner is gone.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Environment variables of the workload output contract.
const (
	// TensorboardOutputDirEnv names the directory workloads write
	// structured metric logs into.
	TensorboardOutputDirEnv = "TENSORBOARD_OUTPUT_DIR"

	// WorkloadArtifactsDirEnv names the directory for free-form
	// artifacts such as profiles and debug dumps.
	WorkloadArtifactsDirEnv = "WORKLOAD_ARTIFACTS_DIR"
)

// Uploader uploads a local directory tree to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and
	// writable. Writes a small test object to fail fast on
	// misconfiguration.
	Preflight(ctx context.Context) error

	// Upload uploads all files under localDir, keyed under subPrefix
	// below the configured remote prefix.
	Upload(ctx context.Context, localDir, subPrefix string) error
}

// OutputDirs reads the workload output directory contract from the
// environment. Missing or unset directories are skipped, not errors;
// collection runs even after failed workloads and takes what exists.
func OutputDirs(log logrus.FieldLogger) []string {
	var dirs []string

	for _, env := range []string{TensorboardOutputDirEnv, WorkloadArtifactsDirEnv} {
		dir := os.Getenv(env)
		if dir == "" {
			log.WithField("env", env).Debug("Output directory not set")

			continue
		}

		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			log.WithFields(logrus.Fields{
				"env": env,
				"dir": dir,
			}).Warn("Output directory missing, skipping")

			continue
		}

		dirs = append(dirs, dir)
	}

	return dirs
}

// Collect uploads every directory under a job-scoped prefix. Directory
// basenames become sub-prefixes, so logs and artifacts stay separated.
func Collect(ctx context.Context, log logrus.FieldLogger, up Uploader, jobPrefix string, dirs []string) error {
	if len(dirs) == 0 {
		log.Info("No output directories to collect")

		return nil
	}

	for _, dir := range dirs {
		subPrefix := jobPrefix + "/" + filepath.Base(dir)

		log.WithFields(logrus.Fields{
			"dir":    dir,
			"prefix": subPrefix,
		}).Info("Collecting artifacts")

		if err := up.Upload(ctx, dir, subPrefix); err != nil {
			return fmt.Errorf("collecting %s: %w", dir, err)
		}
	}

	return nil
}
