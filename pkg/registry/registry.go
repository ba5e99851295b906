// Package registry loads the declarative benchmark registry and
// resolves it into concrete per-environment job specifications.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/regressoor/pkg/action"
	"github.com/ethpandaops/regressoor/pkg/stats"
)

// Direction indicates which way a metric improves.
type Direction string

const (
	DirectionLess    Direction = "LESS"
	DirectionGreater Direction = "GREATER"
)

// Valid reports whether d is a known improvement direction.
func (d Direction) Valid() bool {
	return d == DirectionLess || d == DirectionGreater
}

// ConfigError reports a fatal problem with the registry or its
// resolution. It aborts the run before any job is scheduled.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// Registry is the root of the benchmark registry file.
type Registry struct {
	Benchmarks []BenchmarkDefinition `yaml:"benchmarks"`
}

// BenchmarkDefinition declares one benchmark: its workload, the
// environments it runs in, and the metrics it reports. Immutable once
// loaded for a run.
type BenchmarkDefinition struct {
	Name                  string              `yaml:"name"`
	Description           string              `yaml:"description"`
	Owner                 string              `yaml:"owner"`
	UpdateFrequencyPolicy string              `yaml:"update_frequency_policy"`
	Workload              Workload            `yaml:"workload"`
	EnvironmentConfigs    []EnvironmentConfig `yaml:"environment_configs"`
	Metrics               []MetricSpec        `yaml:"metrics"`
}

// Workload references an executor action together with its base inputs.
type Workload struct {
	Action       string            `yaml:"action"`
	ActionInputs map[string]string `yaml:"action_inputs"`
}

// EnvironmentConfig describes one environment a benchmark runs in and
// the per-environment input overrides.
type EnvironmentConfig struct {
	ID                   string            `yaml:"id"`
	RunnerLabel          string            `yaml:"runner_label"`
	ContainerImage       string            `yaml:"container_image"`
	WorkflowTypes        []string          `yaml:"workflow_type"`
	WorkloadActionInputs map[string]string `yaml:"workload_action_inputs"`
}

// MetricSpec names a log tag to extract together with the statistics to
// compute over it.
type MetricSpec struct {
	Name  string     `yaml:"name"`
	Unit  string     `yaml:"unit"`
	Stats []StatSpec `yaml:"stats"`
}

// StatSpec requests one statistic, optionally with comparison rules.
type StatSpec struct {
	Stat       string          `yaml:"stat"`
	Comparison *ComparisonSpec `yaml:"comparison,omitempty"`
}

// ComparisonSpec defines the regression check for one statistic. A set
// baseline makes it a static-threshold check; without a baseline the
// statistic is compared against a separately executed baseline run.
type ComparisonSpec struct {
	Baseline             *ValueSpec `yaml:"baseline,omitempty"`
	Threshold            *ValueSpec `yaml:"threshold,omitempty"`
	ImprovementDirection Direction  `yaml:"improvement_direction"`
}

// ValueSpec wraps a scalar so "set to zero" and "unset" stay distinct.
type ValueSpec struct {
	Value float64 `yaml:"value"`
}

// Load reads and validates a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("reading registry file %s: %v", path, err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, configErrorf("parsing registry file %s: %v", path, err)
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}

	return &reg, nil
}

// Validate checks the registry for structural errors.
func (r *Registry) Validate() error {
	if len(r.Benchmarks) == 0 {
		return configErrorf("registry declares no benchmarks")
	}

	seenNames := make(map[string]struct{}, len(r.Benchmarks))

	for i, b := range r.Benchmarks {
		if b.Name == "" {
			return configErrorf("benchmark %d: name is required", i)
		}

		if _, exists := seenNames[b.Name]; exists {
			return configErrorf("benchmark %q: duplicate name", b.Name)
		}

		seenNames[b.Name] = struct{}{}

		if b.Workload.Action == "" {
			return configErrorf("benchmark %q: workload action is required", b.Name)
		}

		if _, err := action.Lookup(b.Workload.Action); err != nil {
			return configErrorf("benchmark %q: %v", b.Name, err)
		}

		if len(b.EnvironmentConfigs) == 0 {
			return configErrorf("benchmark %q: at least one environment_config is required", b.Name)
		}

		if err := validateEnvironments(b.Name, b.EnvironmentConfigs); err != nil {
			return err
		}

		if err := validateMetrics(b.Name, b.Metrics); err != nil {
			return err
		}
	}

	return nil
}

func validateEnvironments(benchmark string, envs []EnvironmentConfig) error {
	seenIDs := make(map[string]struct{}, len(envs))

	for i, env := range envs {
		if env.ID == "" {
			return configErrorf("benchmark %q: environment %d: id is required", benchmark, i)
		}

		if _, exists := seenIDs[env.ID]; exists {
			return configErrorf("benchmark %q: duplicate environment id %q", benchmark, env.ID)
		}

		seenIDs[env.ID] = struct{}{}

		if env.RunnerLabel == "" {
			return configErrorf("benchmark %q: environment %q: runner_label is required", benchmark, env.ID)
		}

		if env.ContainerImage == "" {
			return configErrorf("benchmark %q: environment %q: container_image is required", benchmark, env.ID)
		}

		if len(env.WorkflowTypes) == 0 {
			return configErrorf("benchmark %q: environment %q: workflow_type is required", benchmark, env.ID)
		}
	}

	return nil
}

func validateMetrics(benchmark string, metrics []MetricSpec) error {
	if len(metrics) == 0 {
		return configErrorf("benchmark %q: at least one metric is required", benchmark)
	}

	for _, m := range metrics {
		if m.Name == "" {
			return configErrorf("benchmark %q: metric name is required", benchmark)
		}

		if len(m.Stats) == 0 {
			return configErrorf("benchmark %q: metric %q: at least one stat is required", benchmark, m.Name)
		}

		for _, s := range m.Stats {
			if _, err := stats.Parse(s.Stat); err != nil {
				return configErrorf("benchmark %q: metric %q: %v", benchmark, m.Name, err)
			}

			if s.Comparison == nil {
				continue
			}

			if s.Comparison.Threshold == nil {
				return configErrorf(
					"benchmark %q: metric %q (%s): comparison threshold is required",
					benchmark, m.Name, s.Stat)
			}

			if s.Comparison.Threshold.Value < 0 {
				return configErrorf(
					"benchmark %q: metric %q (%s): threshold must not be negative",
					benchmark, m.Name, s.Stat)
			}

			if !s.Comparison.ImprovementDirection.Valid() {
				return configErrorf(
					"benchmark %q: metric %q (%s): invalid improvement_direction %q",
					benchmark, m.Name, s.Stat, s.Comparison.ImprovementDirection)
			}
		}
	}

	return nil
}
