package registry

import (
	"fmt"
	"strings"

	"github.com/ethpandaops/regressoor/pkg/action"
)

// A/B test groups. Jobs outside A/B mode carry no group.
const (
	GroupExperiment = "EXPERIMENT"
	GroupBaseline   = "BASELINE"
)

// JobSpec is one resolved (benchmark, environment) execution unit with
// the fully merged input map. Created once at resolution time and never
// mutated afterward.
type JobSpec struct {
	ConfigID       string            `json:"config_id"`
	BenchmarkName  string            `json:"benchmark_name"`
	Description    string            `json:"description,omitempty"`
	Owner          string            `json:"owner,omitempty"`
	RunnerLabel    string            `json:"runner_label"`
	ContainerImage string            `json:"container_image"`
	WorkflowType   string            `json:"workflow_type"`
	Action         string            `json:"action"`
	Inputs         map[string]string `json:"inputs"`
	Metrics        []MetricSpec      `json:"metrics"`
	AbTestGroup    string            `json:"ab_test_group,omitempty"`
	Ref            string            `json:"ref,omitempty"`
}

// MergeInputs merges an override input map over a base input map. For a
// key present in both, the override value replaces the base value in
// full; the merge never concatenates. Callers wanting append semantics
// must use distinct key names.
func MergeInputs(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))

	for k, v := range base {
		merged[k] = v
	}

	for k, v := range override {
		merged[k] = v
	}

	return merged
}

// Resolve produces one JobSpec per (benchmark, environment) pair whose
// environment applies to workflowType. It returns a ConfigError when the
// workflow type matches no environment at all, or when a job's merged
// inputs fail the action's input requirements.
func Resolve(reg *Registry, workflowType string) ([]JobSpec, error) {
	jobs := make([]JobSpec, 0, len(reg.Benchmarks))

	for _, b := range reg.Benchmarks {
		act, err := action.Lookup(b.Workload.Action)
		if err != nil {
			return nil, configErrorf("benchmark %q: %v", b.Name, err)
		}

		for _, env := range b.EnvironmentConfigs {
			if !appliesTo(env, workflowType) {
				continue
			}

			merged := MergeInputs(b.Workload.ActionInputs, env.WorkloadActionInputs)

			if _, err := act.Resolve(merged); err != nil {
				return nil, configErrorf(
					"benchmark %q: environment %q: %v", b.Name, env.ID, err)
			}

			jobs = append(jobs, JobSpec{
				ConfigID:       ConfigID(b.Name, env.ID, workflowType),
				BenchmarkName:  b.Name,
				Description:    b.Description,
				Owner:          b.Owner,
				RunnerLabel:    env.RunnerLabel,
				ContainerImage: env.ContainerImage,
				WorkflowType:   strings.ToUpper(workflowType),
				Action:         b.Workload.Action,
				Inputs:         merged,
				Metrics:        b.Metrics,
			})
		}
	}

	if len(jobs) == 0 {
		return nil, configErrorf(
			"workflow type %q matches no environment in the registry", workflowType)
	}

	return jobs, nil
}

// ResolveAB resolves the registry for A/B mode: every job is doubled
// into an experiment job and a baseline job, each pinned to its git ref.
func ResolveAB(reg *Registry, workflowType, experimentRef, baselineRef string) ([]JobSpec, error) {
	if experimentRef == "" || baselineRef == "" {
		return nil, configErrorf("A/B mode requires both an experiment ref and a baseline ref")
	}

	base, err := Resolve(reg, workflowType)
	if err != nil {
		return nil, err
	}

	jobs := make([]JobSpec, 0, 2*len(base))

	for _, job := range base {
		experiment := job
		experiment.AbTestGroup = GroupExperiment
		experiment.Ref = experimentRef

		baseline := job
		baseline.AbTestGroup = GroupBaseline
		baseline.Ref = baselineRef

		jobs = append(jobs, experiment, baseline)
	}

	return jobs, nil
}

// ConfigID builds the unique job identifier for one resolved pair.
func ConfigID(benchmark, envID, workflowType string) string {
	return fmt.Sprintf("%s_%s_%s", benchmark, envID, strings.ToLower(workflowType))
}

// appliesTo reports whether env runs for workflowType.
func appliesTo(env EnvironmentConfig, workflowType string) bool {
	for _, wt := range env.WorkflowTypes {
		if strings.EqualFold(wt, workflowType) {
			return true
		}
	}

	return false
}
