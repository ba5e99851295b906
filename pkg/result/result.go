// Package result defines the BenchmarkResult artifact: the canonical
// JSON record one benchmark job produces, consumed by the analyzers, the
// report builder, and the publisher.
package result

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ResultFileName is the artifact name written by the parse step inside a
// job's output directory.
const ResultFileName = "benchmark_result.json"

// artifactPrefix is the common prefix of collected result artifacts.
const artifactPrefix = "benchmark-result-"

// ComputedStat is one (metric, stat) scalar computed from the logs.
type ComputedStat struct {
	MetricName string  `json:"metric_name"`
	Stat       string  `json:"stat"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit,omitempty"`
}

// NewComputedStat builds a ComputedStat, rounding the value to two
// decimals like the rest of the platform expects.
func NewComputedStat(metric, stat, unit string, value float64) ComputedStat {
	return ComputedStat{
		MetricName: metric,
		Stat:       stat,
		Unit:       unit,
		Value:      math.Round(value*100) / 100,
	}
}

// BenchmarkResult is the full structured result of one benchmark job.
type BenchmarkResult struct {
	ConfigID     string         `json:"config_id"`
	CommitSHA    string         `json:"commit_sha"`
	RunTimestamp time.Time      `json:"run_timestamp"`
	Stats        []ComputedStat `json:"stats"`
	GithubRunID  int64          `json:"github_run_id,omitempty"`
	WorkflowType string         `json:"workflow_type,omitempty"`
	RunnerLabel  string         `json:"runner_label,omitempty"`
	Branch       string         `json:"branch,omitempty"`
	RunURL       string         `json:"run_url,omitempty"`
	System       *SystemInfo    `json:"system,omitempty"`
}

// Validate checks the result for completeness before it is written or
// published.
func (r *BenchmarkResult) Validate() error {
	if r.ConfigID == "" {
		return fmt.Errorf("config_id is required")
	}

	if r.CommitSHA == "" {
		return fmt.Errorf("commit_sha is required")
	}

	if r.RunTimestamp.IsZero() {
		return fmt.Errorf("run_timestamp is required")
	}

	for i, s := range r.Stats {
		if s.MetricName == "" || s.Stat == "" {
			return fmt.Errorf("stat %d: metric_name and stat are required", i)
		}
	}

	return nil
}

// StatKey addresses one computed stat within a result.
type StatKey struct {
	Metric string
	Stat   string
}

// StatMap indexes the result's stats by (metric, stat).
func (r *BenchmarkResult) StatMap() map[StatKey]ComputedStat {
	m := make(map[StatKey]ComputedStat, len(r.Stats))
	for _, s := range r.Stats {
		m[StatKey{Metric: s.MetricName, Stat: s.Stat}] = s
	}

	return m
}

// Write serializes the result into dir as benchmark_result.json.
func Write(dir string, r *BenchmarkResult) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validating result: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling result: %w", err)
	}

	path := filepath.Join(dir, ResultFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing result file: %w", err)
	}

	return path, nil
}

// Read loads a single result file.
func Read(path string) (*BenchmarkResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file %s: %w", path, err)
	}

	var r BenchmarkResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing result file %s: %w", path, err)
	}

	return &r, nil
}

// ArtifactName builds the collected artifact name for one job:
// benchmark-result-{CONFIG_ID}[-{GROUP}]-{JOB_ID}.json.
func ArtifactName(configID, group, jobID string) string {
	if group == "" {
		return fmt.Sprintf("%s%s-%s.json", artifactPrefix, configID, jobID)
	}

	return fmt.Sprintf("%s%s-%s-%s.json", artifactPrefix, configID, group, jobID)
}

// LoadDir recursively loads and validates every result artifact under
// dir. Used by the publisher, which refuses to ship invalid messages.
func LoadDir(dir string) ([]*BenchmarkResult, error) {
	var results []*BenchmarkResult

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		r, err := Read(path)
		if err != nil {
			return err
		}

		if err := r.Validate(); err != nil {
			return fmt.Errorf("validating %s: %w", path, err)
		}

		results = append(results, r)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading results from %s: %w", dir, err)
	}

	return results, nil
}

// ABResults maps config id to the per-group results of one A/B run.
type ABResults map[string]map[string]*BenchmarkResult

// LoadABDir scans dir for collected A/B result artifacts and groups them
// by config id and test group. The group is identified by the last
// occurrence of -BASELINE- or -EXPERIMENT- in the file name; files
// without either marker are ignored.
func LoadABDir(dir string) (ABResults, error) {
	results := make(ABResults)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() || !strings.HasPrefix(name, artifactPrefix) ||
			!strings.HasSuffix(name, ".json") {
			return nil
		}

		stem := strings.TrimSuffix(name, ".json")
		baseIdx := strings.LastIndex(stem, "-BASELINE-")
		expIdx := strings.LastIndex(stem, "-EXPERIMENT-")

		if baseIdx == -1 && expIdx == -1 {
			return nil
		}

		var (
			group string
			head  string
		)

		if baseIdx > expIdx {
			group = "BASELINE"
			head = stem[:baseIdx]
		} else {
			group = "EXPERIMENT"
			head = stem[:expIdx]
		}

		configID := strings.TrimPrefix(head, artifactPrefix)

		r, err := Read(path)
		if err != nil {
			return err
		}

		if results[configID] == nil {
			results[configID] = make(map[string]*BenchmarkResult, 2)
		}

		results[configID][group] = r

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading A/B results from %s: %w", dir, err)
	}

	return results, nil
}
