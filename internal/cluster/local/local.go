// Package local implements the cluster contract with local processes,
// for workstation runs and tests. Each partition's job ceiling is
// enforced by a bounded worker pool.
package local

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster/slurm"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/worker"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

// Local runs job payloads as child processes.
type Local struct {
	cfg        *config.Config
	configPath string
	logsDir    string
	resultsDir string

	mu    sync.Mutex
	pools map[string]*worker.Pool
	jobs  map[string]cluster.Status
}

type Options struct {
	ConfigPath string
	LogsDir    string
	ResultsDir string
}

func New(cfg *config.Config, opts Options) *Local {
	pools := make(map[string]*worker.Pool, len(cfg.Cluster.Partitions))
	for _, p := range cfg.Cluster.Partitions {
		pools[p.Name] = worker.NewPool(p.MaxJobs)
	}
	return &Local{
		cfg:        cfg,
		configPath: opts.ConfigPath,
		logsDir:    opts.LogsDir,
		resultsDir: opts.ResultsDir,
		pools:      pools,
		jobs:       map[string]cluster.Status{},
	}
}

// Submit launches the task's payload as a child process, bounded by
// the partition's pool. The returned handle is process-local.
func (l *Local) Submit(ctx context.Context, req *cluster.SubmitRequest) (string, error) {
	pool, ok := l.pools[req.Partition.Name]
	if !ok {
		return "", &cluster.SubmissionError{
			TaskID: req.Task.ID,
			Err:    errors.Errorf("unknown partition %s", req.Partition.Name),
		}
	}

	handle := uuid.NewString()
	l.setStatus(handle, cluster.StatusPending)

	task := req.Task
	err := pool.Launch(ctx, func() {
		l.setStatus(handle, cluster.StatusRunning)
		l.setStatus(handle, l.execute(task))
	})
	if err != nil {
		l.forget(handle)
		return "", &cluster.SubmissionError{TaskID: task.ID, Err: err}
	}
	return handle, nil
}

func (l *Local) execute(task *models.Task) cluster.Status {
	workDir := filepath.Join(l.resultsDir, task.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		log.Error("failed to create work directory", "task", task.ID, "error", err)
		return cluster.StatusFailed
	}
	if err := os.MkdirAll(l.logsDir, 0o755); err != nil {
		log.Error("failed to create logs directory", "task", task.ID, "error", err)
		return cluster.StatusFailed
	}

	logFile, err := os.Create(filepath.Join(l.logsDir, task.ID+".log"))
	if err != nil {
		log.Error("failed to create job log", "task", task.ID, "error", err)
		return cluster.StatusFailed
	}
	defer logFile.Close()

	cmd := exec.Command("bash", "-c", slurm.Command(l.cfg, l.configPath, task))
	cmd.Dir = workDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		log.Warn("local job failed", "task", task.ID, "error", err)
		return cluster.StatusFailed
	}
	return cluster.StatusCompleted
}

// Status reports the state of a previously submitted job.
func (l *Local) Status(_ context.Context, handle string) (cluster.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.jobs[handle]; ok {
		return s, nil
	}
	return cluster.StatusUnknown, nil
}

// Live lists jobs still pending or running.
func (l *Local) Live(_ context.Context) (map[string]cluster.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	live := map[string]cluster.Status{}
	for handle, s := range l.jobs {
		if !s.Terminal() {
			live[handle] = s
		}
	}
	return live, nil
}

// Wait blocks until every launched process has exited.
func (l *Local) Wait() {
	for _, pool := range l.pools {
		pool.Wait()
	}
}

func (l *Local) setStatus(handle string, s cluster.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs[handle] = s
}

func (l *Local) forget(handle string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.jobs, handle)
}
