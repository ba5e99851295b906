package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/regressoor/pkg/config"
)

type fakeUploader struct {
	uploads map[string]string
	failOn  string
}

func (f *fakeUploader) Preflight(_ context.Context) error { return nil }

func (f *fakeUploader) Upload(_ context.Context, localDir, subPrefix string) error {
	if f.failOn != "" && filepath.Base(localDir) == f.failOn {
		return os.ErrPermission
	}

	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}

	f.uploads[localDir] = subPrefix

	return nil
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func TestOutputDirs(t *testing.T) {
	tbDir := t.TempDir()

	t.Setenv(TensorboardOutputDirEnv, tbDir)
	t.Setenv(WorkloadArtifactsDirEnv, filepath.Join(t.TempDir(), "does-not-exist"))

	dirs := OutputDirs(testLogger())
	assert.Equal(t, []string{tbDir}, dirs)
}

func TestOutputDirsUnset(t *testing.T) {
	t.Setenv(TensorboardOutputDirEnv, "")
	t.Setenv(WorkloadArtifactsDirEnv, "")

	assert.Empty(t, OutputDirs(testLogger()))
}

func TestCollect(t *testing.T) {
	logs := filepath.Join(t.TempDir(), "tb_logs")
	dumps := filepath.Join(t.TempDir(), "dumps")
	require.NoError(t, os.Mkdir(logs, 0o755))
	require.NoError(t, os.Mkdir(dumps, 0o755))

	up := &fakeUploader{}
	err := Collect(context.Background(), testLogger(), up, "train_cpu_presubmit/123", []string{logs, dumps})
	require.NoError(t, err)

	assert.Equal(t, "train_cpu_presubmit/123/tb_logs", up.uploads[logs])
	assert.Equal(t, "train_cpu_presubmit/123/dumps", up.uploads[dumps])
}

func TestCollectEmpty(t *testing.T) {
	up := &fakeUploader{}
	require.NoError(t, Collect(context.Background(), testLogger(), up, "p", nil))
	assert.Empty(t, up.uploads)
}

func TestCollectPropagatesError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tb_logs")
	require.NoError(t, os.Mkdir(dir, 0o755))

	up := &fakeUploader{failOn: "tb_logs"}
	err := Collect(context.Background(), testLogger(), up, "p", []string{dir})
	require.Error(t, err)
}

func TestResolvePrefix(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		subPrefix string
		want      string
	}{
		{
			name:      "default prefix",
			prefix:    "",
			subPrefix: "train_cpu_presubmit/123/tb_logs",
			want:      "artifacts/runs/train_cpu_presubmit/123/tb_logs",
		},
		{
			name:      "custom prefix",
			prefix:    "ci/benchmarks",
			subPrefix: "job/tb_logs",
			want:      "ci/benchmarks/job/tb_logs",
		},
		{
			name:      "trailing slash stripped",
			prefix:    "ci/",
			subPrefix: "/job/",
			want:      "ci/job",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &s3Uploader{
				cfg: &config.S3UploadConfig{Prefix: tt.prefix},
			}
			assert.Equal(t, tt.want, u.resolvePrefix(tt.subPrefix))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantPrefix string
	}{
		{
			name:       "json file",
			path:       "out/benchmark_result.json",
			wantPrefix: "application/json",
		},
		{
			name:       "no extension",
			path:       "out/events.out.tfevents.12345.host",
			wantPrefix: "application/octet-stream",
		},
		{
			name:       "text file",
			path:       "out/notes.txt",
			wantPrefix: "text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, detectContentType(tt.path), tt.wantPrefix)
		})
	}
}
