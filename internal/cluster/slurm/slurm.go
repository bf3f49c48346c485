// Package slurm implements the cluster contract against a SLURM
// batch scheduler using the sbatch and squeue command-line tools.
package slurm

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

// CommandRunner executes one scheduler command and returns its
// combined output. Injectable for tests.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// Slurm submits jobs with sbatch and polls them with squeue.
type Slurm struct {
	cfg        *config.Config
	configPath string
	scriptsDir string
	logsDir    string
	resultsDir string
	run        CommandRunner
}

type Options struct {
	ConfigPath string
	ScriptsDir string
	LogsDir    string
	ResultsDir string
	Runner     CommandRunner
}

func New(cfg *config.Config, opts Options) *Slurm {
	run := opts.Runner
	if run == nil {
		run = execRunner
	}
	return &Slurm{
		cfg:        cfg,
		configPath: opts.ConfigPath,
		scriptsDir: opts.ScriptsDir,
		logsDir:    opts.LogsDir,
		resultsDir: opts.ResultsDir,
		run:        run,
	}
}

// Submit renders the task's batch script, writes it under the scripts
// directory, and dispatches it with sbatch.
func (s *Slurm) Submit(ctx context.Context, req *cluster.SubmitRequest) (string, error) {
	if err := os.MkdirAll(s.scriptsDir, 0o755); err != nil {
		return "", &cluster.SubmissionError{TaskID: req.Task.ID, Err: err}
	}

	path := filepath.Join(s.scriptsDir, req.Task.ID+".sh")
	script := Script(s.cfg, s.configPath, req, s.logsDir, s.resultsDir)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", &cluster.SubmissionError{TaskID: req.Task.ID, Err: err}
	}

	out, err := s.run(ctx, "sbatch", path)
	if err != nil {
		return "", &cluster.SubmissionError{
			TaskID: req.Task.ID,
			Err:    errors.Wrap(err, strings.TrimSpace(out)),
		}
	}

	handle, err := parseSubmission(out)
	if err != nil {
		return "", &cluster.SubmissionError{TaskID: req.Task.ID, Err: err}
	}

	log.Debug("job submitted", "task", req.Task.ID, "job_id", handle, "partition", req.Partition.Name)
	return handle, nil
}

// parseSubmission extracts the job id from sbatch output of the form
// "Submitted batch job 12345".
func parseSubmission(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "Submitted batch job") {
			continue
		}
		fields := strings.Fields(line)
		return fields[len(fields)-1], nil
	}
	return "", errors.Errorf("unexpected sbatch output: %q", strings.TrimSpace(out))
}

// Status polls one job. A job squeue no longer lists is reported
// UNKNOWN; the monitor decides whether that means completion.
func (s *Slurm) Status(ctx context.Context, handle string) (cluster.Status, error) {
	out, err := s.run(ctx, "squeue", "-j", handle, "-h", "-o", "%T")
	if err != nil {
		// squeue errors out for ids it has already forgotten.
		return cluster.StatusUnknown, nil
	}

	state := strings.TrimSpace(out)
	if state == "" {
		return cluster.StatusUnknown, nil
	}
	return cluster.ParseStatus(state), nil
}

// Live lists the jobs squeue still tracks for the current user.
func (s *Slurm) Live(ctx context.Context) (map[string]cluster.Status, error) {
	args := []string{"-h", "-o", "%A %T"}
	if user := os.Getenv("USER"); user != "" {
		args = append(args, "-u", user)
	}

	out, err := s.run(ctx, "squeue", args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list queue")
	}

	live := map[string]cluster.Status{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		live[fields[0]] = cluster.ParseStatus(fields[1])
	}
	return live, nil
}
