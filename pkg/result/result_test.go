package result

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(configID string) *BenchmarkResult {
	return &BenchmarkResult{
		ConfigID:     configID,
		CommitSHA:    "abcdef1234567890",
		RunTimestamp: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Stats: []ComputedStat{
			NewComputedStat("wall_time", "MEAN", "ms", 101.02),
		},
		GithubRunID:  42,
		WorkflowType: "PRESUBMIT",
		RunnerLabel:  "linux-x86-n2-32",
		Branch:       "main",
		RunURL:       "https://github.com/org/repo/actions/runs/42",
	}
}

func TestNewComputedStatRounds(t *testing.T) {
	s := NewComputedStat("wall_time", "MEAN", "ms", 101.018934)
	assert.Equal(t, 101.02, s.Value)

	s = NewComputedStat("wall_time", "P99", "ms", 4.96)
	assert.Equal(t, 4.96, s.Value)
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	want := sampleResult("b_e_presubmit")

	path, err := Write(dir, want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ResultFileName), path)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteInvalid(t *testing.T) {
	_, err := Write(t.TempDir(), &BenchmarkResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config_id is required")
}

func TestStatMap(t *testing.T) {
	r := sampleResult("c")
	r.Stats = append(r.Stats, NewComputedStat("wall_time", "P90", "ms", 102.0))

	m := r.StatMap()
	require.Len(t, m, 2)
	assert.Equal(t, 101.02, m[StatKey{Metric: "wall_time", Stat: "MEAN"}].Value)
	assert.Equal(t, 102.0, m[StatKey{Metric: "wall_time", Stat: "P90"}].Value)
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t,
		"benchmark-result-b_e_presubmit-EXPERIMENT-17.json",
		ArtifactName("b_e_presubmit", "EXPERIMENT", "17"))
	assert.Equal(t,
		"benchmark-result-b_e_presubmit-17.json",
		ArtifactName("b_e_presubmit", "", "17"))
}

func writeArtifact(t *testing.T, dir, name string, r *BenchmarkResult) {
	t.Helper()

	tmp := t.TempDir()
	_, err := Write(tmp, r)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(tmp, ResultFileName))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "job-1")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	writeArtifact(t, dir, "benchmark-result-a-1.json", sampleResult("a"))
	writeArtifact(t, sub, "benchmark-result-b-2.json", sampleResult("b"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	results, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestLoadDirInvalidResult(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "benchmark-result-x-1.json"), []byte(`{"stats": []}`), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config_id is required")
}

func TestLoadABDir(t *testing.T) {
	dir := t.TempDir()

	writeArtifact(t, dir, "benchmark-result-b_e_presubmit-EXPERIMENT-17.json",
		sampleResult("b_e_presubmit"))
	writeArtifact(t, dir, "benchmark-result-b_e_presubmit-BASELINE-18.json",
		sampleResult("b_e_presubmit"))
	// No group marker: ignored.
	writeArtifact(t, dir, "benchmark-result-b_e_presubmit-19.json",
		sampleResult("b_e_presubmit"))

	results, err := LoadABDir(dir)
	require.NoError(t, err)
	require.Contains(t, results, "b_e_presubmit")

	groups := results["b_e_presubmit"]
	require.Len(t, groups, 2)
	assert.Contains(t, groups, "EXPERIMENT")
	assert.Contains(t, groups, "BASELINE")
}

func TestLoadABDirGroupInConfigID(t *testing.T) {
	// A config id that itself contains a group keyword must still split
	// on the last marker occurrence.
	dir := t.TempDir()
	writeArtifact(t, dir, "benchmark-result-train-BASELINE-check_env_presubmit-EXPERIMENT-3.json",
		sampleResult("train-BASELINE-check_env_presubmit"))

	results, err := LoadABDir(dir)
	require.NoError(t, err)
	require.Contains(t, results, "train-BASELINE-check_env_presubmit")
	assert.Contains(t, results["train-BASELINE-check_env_presubmit"], "EXPERIMENT")
}

func TestCollectSystemInfo(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	info := CollectSystemInfo(log)
	require.NotNil(t, info)
	assert.NotEmpty(t, info.Arch)
	assert.Positive(t, info.CPUCores)
}
