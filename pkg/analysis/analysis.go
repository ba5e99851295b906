// Package analysis evaluates computed benchmark statistics against
// their comparison rules and produces per-metric verdicts. Two modes are
// supported: static thresholds against a fixed baseline value, and A/B
// comparison against a separately executed baseline run.
package analysis

import (
	"fmt"
	"sort"

	"github.com/ethpandaops/regressoor/pkg/registry"
	"github.com/ethpandaops/regressoor/pkg/result"
)

// Status is the verdict of one comparison row.
type Status string

const (
	// StatusPass means the observed value is within tolerance.
	StatusPass Status = "PASS"
	// StatusRegression means the observed value breaches the threshold.
	StatusRegression Status = "REGRESSION"
	// StatusInfo marks metrics reported without comparison rules.
	StatusInfo Status = "INFO"
	// StatusNew marks metrics present in the experiment but not the baseline.
	StatusNew Status = "NEW"
	// StatusUndetermined marks comparisons against a zero baseline.
	StatusUndetermined Status = "UNDETERMINED"
	// StatusNotFound marks metrics requested by the registry but absent
	// from the parsed logs.
	StatusNotFound Status = "NOT_FOUND"
)

// ComparisonError reports a comparison that could not be evaluated. It
// fails the affected config's verdict; other configs still evaluate.
type ComparisonError struct {
	ConfigID string
	Reason   string
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("config %s: %s", e.ConfigID, e.Reason)
}

// Row is one evaluated (metric, stat) comparison.
type Row struct {
	Metric    string
	Stat      string
	Unit      string
	Observed  float64
	Reference float64
	// HasReference distinguishes informational rows and gaps from real
	// comparisons.
	HasReference bool
	// Delta is the signed relative deviation (observed-reference)/reference,
	// valid only when HasDelta is set.
	Delta     float64
	HasDelta  bool
	Threshold float64
	Direction registry.Direction
	Status    Status
}

// ConfigReport collects the rows of one benchmark config.
type ConfigReport struct {
	ConfigID string
	Rows     []Row
	// Err is set when the config's comparison could not run at all,
	// e.g. the experiment result is missing in A/B mode.
	Err *ComparisonError
	// Failed mirrors whether this config contributes to an overall
	// REGRESSION verdict.
	Failed bool
	// Commit SHAs for report rendering; baseline fields are empty in
	// static mode.
	ExperimentSHA string
	BaselineSHA   string
}

// Report is the aggregated outcome across all configs of a run.
type Report struct {
	Configs []*ConfigReport
}

// Failed reports whether any config failed its verdict.
func (r *Report) Failed() bool {
	for _, c := range r.Configs {
		if c.Failed {
			return true
		}
	}

	return false
}

// defaults applied when an A/B comparison has no explicit spec.
const defaultThreshold = 0.05

const defaultDirection = registry.DirectionLess

// verdict applies the threshold rule. LESS passes while the observed
// value stays at or below reference*(1+threshold); GREATER passes while
// it stays at or above reference*(1-threshold).
func verdict(observed, reference, threshold float64, dir registry.Direction) Status {
	switch dir {
	case registry.DirectionGreater:
		if observed >= reference*(1-threshold) {
			return StatusPass
		}
	default:
		if observed <= reference*(1+threshold) {
			return StatusPass
		}
	}

	return StatusRegression
}

// AnalyzeStatic evaluates one config's result against the fixed
// baselines declared in its metric manifest. Metrics without comparison
// rules become informational rows; requested stats missing from the
// result become gap rows.
func AnalyzeStatic(configID string, manifest []registry.MetricSpec, res *result.BenchmarkResult) *ConfigReport {
	report := &ConfigReport{
		ConfigID:      configID,
		ExperimentSHA: res.CommitSHA,
	}

	statMap := res.StatMap()

	for _, metric := range manifest {
		for _, statSpec := range metric.Stats {
			row := Row{
				Metric: metric.Name,
				Stat:   statSpec.Stat,
				Unit:   metric.Unit,
			}

			computed, found := statMap[result.StatKey{Metric: metric.Name, Stat: statSpec.Stat}]
			if !found {
				// Tag never observed or series was empty: a reported
				// gap, not a failure.
				row.Status = StatusNotFound
				report.Rows = append(report.Rows, row)

				continue
			}

			row.Observed = computed.Value

			cmp := statSpec.Comparison
			if cmp == nil || cmp.Baseline == nil {
				row.Status = StatusInfo
				report.Rows = append(report.Rows, row)

				continue
			}

			row.Reference = cmp.Baseline.Value
			row.HasReference = true
			row.Threshold = cmp.Threshold.Value
			row.Direction = cmp.ImprovementDirection
			row.Status = verdict(row.Observed, row.Reference, row.Threshold, row.Direction)

			if row.Reference != 0 {
				row.Delta = (row.Observed - row.Reference) / row.Reference
				row.HasDelta = true
			}

			if row.Status == StatusRegression {
				report.Failed = true
			}

			report.Rows = append(report.Rows, row)
		}
	}

	return report
}

// comparisonFor returns the threshold and direction declared for a
// (metric, stat) pair, falling back to platform defaults.
func comparisonFor(manifest []registry.MetricSpec, metric, stat string) (float64, registry.Direction) {
	for _, m := range manifest {
		if m.Name != metric {
			continue
		}

		for _, s := range m.Stats {
			if s.Stat != stat || s.Comparison == nil {
				continue
			}

			threshold := defaultThreshold
			if s.Comparison.Threshold != nil {
				threshold = s.Comparison.Threshold.Value
			}

			direction := s.Comparison.ImprovementDirection
			if !direction.Valid() {
				direction = defaultDirection
			}

			return threshold, direction
		}
	}

	return defaultThreshold, defaultDirection
}

// AnalyzeAB evaluates one config's experiment result against its paired
// baseline run. A missing experiment fails the config; a missing
// baseline leaves it incomplete without a verdict.
func AnalyzeAB(configID string, manifest []registry.MetricSpec, groups map[string]*result.BenchmarkResult) *ConfigReport {
	report := &ConfigReport{ConfigID: configID}

	experiment := groups[registry.GroupExperiment]
	baseline := groups[registry.GroupBaseline]

	if experiment == nil {
		report.Err = &ComparisonError{
			ConfigID: configID,
			Reason:   "experiment job produced no result",
		}
		report.Failed = true

		return report
	}

	report.ExperimentSHA = experiment.CommitSHA

	if baseline == nil {
		report.Err = &ComparisonError{
			ConfigID: configID,
			Reason:   "baseline job produced no result",
		}

		return report
	}

	report.BaselineSHA = baseline.CommitSHA
	baseStats := baseline.StatMap()

	for _, computed := range experiment.Stats {
		row := Row{
			Metric:   computed.MetricName,
			Stat:     computed.Stat,
			Unit:     computed.Unit,
			Observed: computed.Value,
		}

		row.Threshold, row.Direction = comparisonFor(manifest, computed.MetricName, computed.Stat)

		key := result.StatKey{Metric: computed.MetricName, Stat: computed.Stat}

		base, found := baseStats[key]

		switch {
		case !found:
			row.Status = StatusNew
		case base.Value == 0:
			row.Reference = 0
			row.HasReference = true

			if computed.Value == 0 {
				row.Delta = 0
				row.HasDelta = true
				row.Status = StatusPass
			} else {
				row.Status = StatusUndetermined
			}
		default:
			row.Reference = base.Value
			row.HasReference = true
			row.Delta = (computed.Value - base.Value) / base.Value
			row.HasDelta = true
			row.Status = verdict(computed.Value, base.Value, row.Threshold, row.Direction)

			if row.Status == StatusRegression {
				report.Failed = true
			}
		}

		report.Rows = append(report.Rows, row)
	}

	// Stats requested by the manifest but absent from the experiment
	// result are reported as gaps.
	expStats := experiment.StatMap()

	for _, metric := range manifest {
		for _, statSpec := range metric.Stats {
			key := result.StatKey{Metric: metric.Name, Stat: statSpec.Stat}
			if _, ok := expStats[key]; ok {
				continue
			}

			report.Rows = append(report.Rows, Row{
				Metric: metric.Name,
				Stat:   statSpec.Stat,
				Unit:   metric.Unit,
				Status: StatusNotFound,
			})
		}
	}

	return report
}

// AnalyzeABAll runs the A/B comparison for every config found in the
// results directory, ordered by config id.
func AnalyzeABAll(manifests map[string][]registry.MetricSpec, results result.ABResults) *Report {
	configIDs := make([]string, 0, len(results))
	for configID := range results {
		configIDs = append(configIDs, configID)
	}

	sort.Strings(configIDs)

	report := &Report{}

	for _, configID := range configIDs {
		report.Configs = append(report.Configs,
			AnalyzeAB(configID, manifests[configID], results[configID]))
	}

	return report
}
