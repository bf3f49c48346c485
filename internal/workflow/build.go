package workflow

import (
	"github.com/pkg/errors"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster/local"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster/slurm"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/monitor"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/scheduler"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/selector"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/env"
)

// Build wires an orchestrator from the workflow document and the
// process environment.
func Build(cfg *config.Config, st *state.State, store *state.Store) (*Orchestrator, error) {
	vars := env.Variables()

	backend, err := Backend(cfg, vars)
	if err != nil {
		return nil, err
	}

	schedule, err := ParseSchedule(vars.ReportSchedule)
	if err != nil {
		return nil, err
	}

	partitions := cfg.Partitions()
	return New(Options{
		State:        st,
		Store:        store,
		Scheduler:    scheduler.New(st, backend, partitions, cfg.Workflow.DFTCores, vars.SubmitRetryLimit),
		Monitor:      monitor.New(st, backend, partitions, vars.TimeoutGrace),
		Selector:     selector.New(cfg.Workflow.DFTFraction, cfg.Workflow.DFTMaxPoints, vars.ResultsDir),
		Backend:      backend,
		ReportsDir:   vars.ReportsDir,
		PollInterval: vars.PollInterval,
		MaxDuration:  vars.MaxMonitorDuration,
		Schedule:     schedule,
	}), nil
}

// Backend selects the compute back-end named by the environment.
func Backend(cfg *config.Config, vars env.Environment) (cluster.Interface, error) {
	switch vars.ClusterBackend {
	case "slurm":
		return slurm.New(cfg, slurm.Options{
			ConfigPath: vars.ConfigPath,
			ScriptsDir: vars.ScriptsDir,
			LogsDir:    vars.LogsDir,
			ResultsDir: vars.ResultsDir,
		}), nil
	case "local":
		return local.New(cfg, local.Options{
			ConfigPath: vars.ConfigPath,
			LogsDir:    vars.LogsDir,
			ResultsDir: vars.ResultsDir,
		}), nil
	}
	return nil, errors.Errorf("unknown cluster backend %q", vars.ClusterBackend)
}
