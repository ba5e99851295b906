// Package report renders an analysis report as GitHub-flavored
// markdown, suitable for job summaries and pull request comments.
package report

import (
	"fmt"
	"strings"

	"github.com/ethpandaops/regressoor/pkg/analysis"
)

// Options control report rendering.
type Options struct {
	// WorkflowName appears in the report title.
	WorkflowName string
	// RepoURL is the base repository URL used for commit links.
	RepoURL string
	// MaxChars caps the rendered size; 0 means unlimited.
	MaxChars int
}

const truncationNotice = "\n\n*(report truncated)*\n"

// Generate renders the full markdown report.
func Generate(rep *analysis.Report, opts Options) string {
	var sb strings.Builder

	sb.Grow(4096)

	fmt.Fprintf(&sb, "## Benchmark Results: %s\n", opts.WorkflowName)

	for _, cfg := range rep.Configs {
		writeConfig(&sb, cfg, opts.RepoURL)
	}

	status := "PASS"
	if rep.Failed() {
		status = "FAIL"
	}

	fmt.Fprintf(&sb, "\n**Global Status:** %s\n", status)

	out := sb.String()
	if opts.MaxChars > 0 && len(out) > opts.MaxChars {
		cut := opts.MaxChars - len(truncationNotice)
		if cut < 0 {
			cut = 0
		}

		out = out[:cut] + truncationNotice
	}

	return out
}

func writeConfig(sb *strings.Builder, cfg *analysis.ConfigReport, repoURL string) {
	if cfg.Err != nil {
		if cfg.Failed {
			fmt.Fprintf(sb, "\n### %s: FAILED\n", cfg.ConfigID)
		} else {
			fmt.Fprintf(sb, "\n### %s: Incomplete\n", cfg.ConfigID)
		}

		fmt.Fprintf(sb, "%s.\n", capitalize(cfg.Err.Reason))

		return
	}

	fmt.Fprintf(sb, "\n### %s\n", cfg.ConfigID)

	baselineHeader := "Baseline"
	if cfg.BaselineSHA != "" {
		baselineHeader = fmt.Sprintf("Baseline <br> (%s)", CommitLink(cfg.BaselineSHA, repoURL))
	}

	currentHeader := "Current"
	if cfg.ExperimentSHA != "" {
		currentHeader = fmt.Sprintf("Current <br> (%s)", CommitLink(cfg.ExperimentSHA, repoURL))
	}

	fmt.Fprintf(sb, "| Metric | %s | %s | Delta | Threshold | Status |\n",
		baselineHeader, currentHeader)
	sb.WriteString("| :--- | :--- | :--- | :--- | :--- | :--- |\n")

	for _, row := range cfg.Rows {
		writeRow(sb, row)
	}
}

func writeRow(sb *strings.Builder, row analysis.Row) {
	name := fmt.Sprintf("%s <small>(%s)</small>", row.Metric, row.Stat)

	if row.Status == analysis.StatusNotFound {
		fmt.Fprintf(sb, "| %s | - | - | - | - | NOT FOUND |\n", name)

		return
	}

	reference := "-"
	if row.HasReference {
		reference = formatValue(row.Reference, row.Unit)
	}

	observed := formatValue(row.Observed, row.Unit)

	delta := "N/A"

	switch {
	case row.HasDelta:
		delta = fmt.Sprintf("%+.2f%%", row.Delta*100)
	case row.Status == analysis.StatusUndetermined:
		delta = "∞"
	}

	threshold := "-"
	if row.Status != analysis.StatusInfo && row.Status != analysis.StatusNew {
		threshold = fmt.Sprintf("%.0f%%", row.Threshold*100)
	}

	fmt.Fprintf(sb, "| %s | %s | %s | %s | %s | %s |\n",
		name, reference, observed, delta, threshold, row.Status)
}

// CommitLink renders a short-SHA markdown link into repoURL, or
// "unknown" when the SHA is missing.
func CommitLink(sha, repoURL string) string {
	if sha == "" {
		return "unknown"
	}

	short := sha
	if len(short) > 7 {
		short = short[:7]
	}

	if repoURL == "" {
		return short
	}

	return fmt.Sprintf("[%s](%s/commit/%s)", short, strings.TrimRight(repoURL, "/"), sha)
}

func formatValue(v float64, unit string) string {
	s := fmt.Sprintf("%.4f", v)

	if unit != "" {
		return s + " " + unit
	}

	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
