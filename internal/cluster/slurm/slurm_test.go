package slurm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Parse([]byte(`
ml_calculator: mace
pseudo_dir: /opt/pseudo
materials: [MoS2]
adsorbants: [Li]
cluster:
  account: cenvalos
  modules: [anaconda3/2023.09, cuda/12.1]
  environment_setup: [source activate base]
  partitions:
    - name: cenvalarc.gpu
      max_jobs: 2
      cores_per_node: 32
      time_limit: "23:59:00"
      gpu: true
      constraint: gpu
    - name: long
      max_jobs: 4
      cores_per_node: 64
      time_limit: "2-23:59:00"
`))
	require.NoError(t, err)
	return cfg
}

type call struct {
	name string
	args []string
}

func fakeRunner(t *testing.T, calls *[]call, out string, err error) CommandRunner {
	return func(_ context.Context, name string, args ...string) (string, error) {
		*calls = append(*calls, call{name: name, args: args})
		return out, err
	}
}

func TestSubmit(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	var calls []call
	backend := New(cfg, Options{
		ConfigPath: "workflow.yaml",
		ScriptsDir: dir,
		LogsDir:    "logs",
		ResultsDir: "results",
		Runner:     fakeRunner(t, &calls, "Submitted batch job 48213\n", nil),
	})

	task := &models.Task{
		ID:        "ml_MoS2_Li_000",
		Kind:      models.TaskKindML,
		Material:  "MoS2",
		Adsorbant: "Li",
	}
	handle, err := backend.Submit(context.Background(), &cluster.SubmitRequest{
		Task:      task,
		Partition: cfg.Partitions().Get("cenvalarc.gpu"),
	})
	require.NoError(t, err)
	assert.Equal(t, "48213", handle)

	require.Len(t, calls, 1)
	assert.Equal(t, "sbatch", calls[0].name)

	script, err := os.ReadFile(filepath.Join(dir, "ml_MoS2_Li_000.sh"))
	require.NoError(t, err)
	for _, want := range []string{
		"#SBATCH --job-name=ml_MoS2_Li_000",
		"#SBATCH --partition=cenvalarc.gpu",
		"#SBATCH --account=cenvalos",
		"#SBATCH --constraint=gpu",
		"#SBATCH --gres=gpu:1",
		"#SBATCH --time=23:59:00",
		"module load cuda/12.1",
		"source activate base",
		"export CUDA_VISIBLE_DEVICES=$SLURM_LOCALID",
		"--ml-only",
	} {
		assert.Contains(t, string(script), want)
	}
}

func TestSubmitDFTScript(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	var calls []call
	backend := New(cfg, Options{
		ConfigPath: "workflow.yaml",
		ScriptsDir: dir,
		LogsDir:    "logs",
		ResultsDir: "results",
		Runner:     fakeRunner(t, &calls, "Submitted batch job 48214", nil),
	})

	task := &models.Task{
		ID:        "dft_MoS2_Li_000",
		Kind:      models.TaskKindDFT,
		Material:  "MoS2",
		Adsorbant: "Li",
		Heights:   models.HeightRange{Points: []float64{2.0, 2.3, 6.5}},
	}
	_, err := backend.Submit(context.Background(), &cluster.SubmitRequest{
		Task:      task,
		Partition: cfg.Partitions().Get("long"),
	})
	require.NoError(t, err)

	script, err := os.ReadFile(filepath.Join(dir, "dft_MoS2_Li_000.sh"))
	require.NoError(t, err)
	assert.Contains(t, string(script), "--dft-only")
	assert.Contains(t, string(script), "--heights 2,2.3,6.5")
	assert.NotContains(t, string(script), "--gres=gpu:1")
	assert.NotContains(t, string(script), "CUDA_VISIBLE_DEVICES")
}

func TestSubmitFailure(t *testing.T) {
	cfg := testConfig(t)

	var calls []call
	backend := New(cfg, Options{
		ScriptsDir: t.TempDir(),
		Runner: fakeRunner(t, &calls,
			"sbatch: error: invalid partition specified", errors.New("exit status 1")),
	})

	_, err := backend.Submit(context.Background(), &cluster.SubmitRequest{
		Task:      &models.Task{ID: "ml_MoS2_Li_000", Kind: models.TaskKindML},
		Partition: cfg.Partitions().Get("cenvalarc.gpu"),
	})

	var subErr *cluster.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "ml_MoS2_Li_000", subErr.TaskID)
}

func TestStatus(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name string
		out  string
		err  error
		want cluster.Status
	}{
		{name: "running", out: "RUNNING\n", want: cluster.StatusRunning},
		{name: "pending", out: "PENDING\n", want: cluster.StatusPending},
		{name: "left the queue", out: "", want: cluster.StatusUnknown},
		{name: "squeue forgot the id", out: "", err: errors.New("exit status 1"), want: cluster.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []call
			backend := New(cfg, Options{Runner: fakeRunner(t, &calls, tt.out, tt.err)})

			got, err := backend.Status(context.Background(), "48213")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			require.Len(t, calls, 1)
			assert.Equal(t, "squeue", calls[0].name)
			assert.Contains(t, calls[0].args, "48213")
		})
	}
}

func TestLive(t *testing.T) {
	cfg := testConfig(t)

	var calls []call
	backend := New(cfg, Options{
		Runner: fakeRunner(t, &calls, "48213 RUNNING\n48214 PENDING\n\n", nil),
	})

	live, err := backend.Live(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]cluster.Status{
		"48213": cluster.StatusRunning,
		"48214": cluster.StatusPending,
	}, live)
}
