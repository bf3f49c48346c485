package run

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/backlog"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/metrics"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/workflow"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/env"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

const (
	usage   = "run"
	short   = "Run the full energy profile workflow"
	long    = "Generate the ML backlog, dispatch it to the cluster, monitor it to completion, escalate to DFT validation, and write the final summary"
	example = "epc run"
)

// Cmd is the run command.
var Cmd = &cobra.Command{
	Use:        usage,
	Short:      short,
	Long:       long,
	Aliases:    []string{"r"},
	SuggestFor: []string{"start", "launch", "execute"},
	Example:    example,
	RunE:       run,
}

func run(cmd *cobra.Command, args []string) error {
	vars := env.Variables()

	cfg, err := config.Load(vars.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.CheckPseudopotentials(); err != nil {
		return err
	}

	store, err := state.NewStore(vars.StateDir)
	if err != nil {
		return err
	}
	defer store.Close()

	st := state.New(models.WorkflowRun{ID: uuid.New(), StartedAt: time.Now().UTC()})
	if err := st.Add(backlog.GenerateML(cfg, vars.ResultsDir)...); err != nil {
		return err
	}
	log.Info("backlog generated",
		"tasks", len(st.Tasks()),
		"materials", len(cfg.Materials),
		"adsorbants", len(cfg.Adsorbants))

	orch, err := workflow.Build(cfg, st, store)
	if err != nil {
		return err
	}

	metrics.Register()
	return workflow.Serve(cmd.Context(), orch, st)
}
