package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethpandaops/regressoor/pkg/analysis"
	"github.com/ethpandaops/regressoor/pkg/registry"
)

func TestGenerate(t *testing.T) {
	rep := &analysis.Report{
		Configs: []*analysis.ConfigReport{
			{
				ConfigID:      "train_cpu_presubmit",
				ExperimentSHA: "abcdef1234567890",
				BaselineSHA:   "0123456789abcdef",
				Rows: []analysis.Row{
					{
						Metric: "wall_time", Stat: "MEAN", Unit: "ms",
						Observed: 104, Reference: 100, HasReference: true,
						Delta: 0.04, HasDelta: true,
						Threshold: 0.05, Direction: registry.DirectionLess,
						Status: analysis.StatusPass,
					},
					{
						Metric: "throughput", Stat: "P90",
						Status: analysis.StatusNotFound,
					},
				},
			},
		},
	}

	md := Generate(rep, Options{
		WorkflowName: "nightly-benchmarks",
		RepoURL:      "https://github.com/org/repo/",
	})

	assert.Contains(t, md, "## Benchmark Results: nightly-benchmarks")
	assert.Contains(t, md, "### train_cpu_presubmit")
	assert.Contains(t, md, "[abcdef1](https://github.com/org/repo/commit/abcdef1234567890)")
	assert.Contains(t, md, "[0123456](https://github.com/org/repo/commit/0123456789abcdef)")
	assert.Contains(t, md, "| wall_time <small>(MEAN)</small> | 100.0000 ms | 104.0000 ms | +4.00% | 5% | PASS |")
	assert.Contains(t, md, "| throughput <small>(P90)</small> | - | - | - | - | NOT FOUND |")
	assert.Contains(t, md, "**Global Status:** PASS")
}

func TestGenerateFailedAndIncomplete(t *testing.T) {
	rep := &analysis.Report{
		Configs: []*analysis.ConfigReport{
			{
				ConfigID: "a",
				Err: &analysis.ComparisonError{
					ConfigID: "a",
					Reason:   "experiment job produced no result",
				},
				Failed: true,
			},
			{
				ConfigID: "b",
				Err: &analysis.ComparisonError{
					ConfigID: "b",
					Reason:   "baseline job produced no result",
				},
			},
		},
	}

	md := Generate(rep, Options{WorkflowName: "wf"})
	assert.Contains(t, md, "### a: FAILED")
	assert.Contains(t, md, "### b: Incomplete")
	assert.Contains(t, md, "**Global Status:** FAIL")
}

func TestGenerateUndeterminedAndNew(t *testing.T) {
	rep := &analysis.Report{
		Configs: []*analysis.ConfigReport{
			{
				ConfigID: "c",
				Rows: []analysis.Row{
					{
						Metric: "errors", Stat: "MEAN",
						Observed: 3, Reference: 0, HasReference: true,
						Threshold: 0.05,
						Status:    analysis.StatusUndetermined,
					},
					{
						Metric: "fresh", Stat: "MEAN",
						Observed: 7,
						Status:   analysis.StatusNew,
					},
				},
			},
		},
	}

	md := Generate(rep, Options{WorkflowName: "wf"})
	assert.Contains(t, md, "| ∞ |")
	assert.Contains(t, md, "UNDETERMINED")
	assert.Contains(t, md, "| fresh <small>(MEAN)</small> | - | 7.0000 | N/A | - | NEW |")
}

func TestGenerateTruncation(t *testing.T) {
	cfg := &analysis.ConfigReport{ConfigID: strings.Repeat("x", 100)}
	rep := &analysis.Report{Configs: []*analysis.ConfigReport{cfg, cfg, cfg}}

	md := Generate(rep, Options{WorkflowName: "wf", MaxChars: 200})
	assert.LessOrEqual(t, len(md), 200)
	assert.Contains(t, md, "truncated")
}

func TestCommitLink(t *testing.T) {
	assert.Equal(t, "unknown", CommitLink("", "https://github.com/org/repo"))
	assert.Equal(t, "abc", CommitLink("abc", ""))
	assert.Equal(t,
		"[abcdef1](https://github.com/org/repo/commit/abcdef1234567890)",
		CommitLink("abcdef1234567890", "https://github.com/org/repo"))
}
