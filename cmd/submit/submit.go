package submit

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
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
	usage   = "submit <task-id>"
	short   = "Run a single task synchronously"
	long    = "Dispatch one task from the generated backlog and monitor it to completion, for debugging cluster and script issues in isolation"
	example = "epc submit ml_MoS2_Li_000"
)

// Cmd is the submit command.
var Cmd = &cobra.Command{
	Use:        usage,
	Short:      short,
	Long:       long,
	Args:       cobra.ExactArgs(1),
	SuggestFor: []string{"dispatch", "one", "single"},
	Example:    example,
	RunE:       submit,
}

func submit(cmd *cobra.Command, args []string) error {
	vars := env.Variables()

	cfg, err := config.Load(vars.ConfigPath)
	if err != nil {
		return err
	}

	task := find(backlog.GenerateML(cfg, vars.ResultsDir), args[0])
	if task == nil {
		return errors.Errorf("task %s is not in the generated backlog", args[0])
	}

	st := state.New(models.WorkflowRun{ID: uuid.New(), StartedAt: time.Now().UTC()})
	if err := st.Add(task); err != nil {
		return err
	}

	// Single-task runs are ephemeral: no persistence, no escalation.
	orch, err := workflow.Build(cfg, st, nil)
	if err != nil {
		return err
	}
	orch.DisableEscalation()

	log.Info("submitting single task", "task", task.ID)
	metrics.Register()
	return workflow.Serve(cmd.Context(), orch, st)
}

func find(tasks []*models.Task, id string) *models.Task {
	for _, task := range tasks {
		if task.ID == id {
			return task
		}
	}
	return nil
}
