package resume

import (
	"github.com/spf13/cobra"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/metrics"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/workflow"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/env"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

const (
	usage   = "resume"
	short   = "Resume an interrupted workflow"
	long    = "Reload the persisted workflow state, reconcile it against the cluster queue, and continue monitoring where the previous process left off"
	example = "epc resume"
)

// Cmd is the resume command.
var Cmd = &cobra.Command{
	Use:        usage,
	Short:      short,
	Long:       long,
	SuggestFor: []string{"restart", "continue", "recover"},
	Example:    example,
	RunE:       resume,
}

func resume(cmd *cobra.Command, args []string) error {
	vars := env.Variables()

	cfg, err := config.Load(vars.ConfigPath)
	if err != nil {
		return err
	}

	store, err := state.NewStore(vars.StateDir)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Load()
	if err != nil {
		return err
	}

	counts := st.Counts()
	log.Info("workflow state loaded",
		"run_id", st.Run().ID,
		"tasks", len(st.Tasks()),
		"counts", counts)

	orch, err := workflow.Build(cfg, st, store)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := orch.Reconcile(ctx); err != nil {
		return err
	}

	metrics.Register()
	return workflow.Serve(ctx, orch, st)
}
