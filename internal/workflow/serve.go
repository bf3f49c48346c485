package workflow

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/AbrarFaiyad/energy-profile-calculator/api"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

// Serve drives the orchestrator with the status API alongside it,
// until the workflow drains or a signal arrives. The returned error
// is non-nil when the run was cut short or any task failed.
func Serve(parent context.Context, orch *Orchestrator, st *state.State) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.New(st)
	go func() {
		if err := server.Start(); err != nil {
			log.Error("api failure", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("api shutdown failure", "error", err)
		}
	}()

	if err := orch.Run(ctx); err != nil {
		return err
	}
	if st.Failed() {
		return errors.New("workflow completed with failed tasks")
	}

	log.Info("workflow completed")
	return nil
}
