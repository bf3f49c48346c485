// Package workflow ties the cycle together: dispatch, poll, DFT
// escalation, persistence, and the final report. One orchestrator
// owns one workflow run from start to drain.
package workflow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/monitor"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/report"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/scheduler"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/selector"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

// ErrDeadlineExceeded ends a run that outlived the maximum monitor
// duration with work still in flight.
var ErrDeadlineExceeded = errors.New("maximum monitor duration exceeded")

type Orchestrator struct {
	state        *state.State
	store        *state.Store
	scheduler    *scheduler.Scheduler
	monitor      *monitor.Monitor
	selector     *selector.Selector
	backend      cluster.Interface
	reportsDir   string
	pollInterval time.Duration
	maxDuration  time.Duration
	schedule     cron.Schedule
	nextReport   time.Time
}

type Options struct {
	State        *state.State
	Store        *state.Store
	Scheduler    *scheduler.Scheduler
	Monitor      *monitor.Monitor
	Selector     *selector.Selector
	Backend      cluster.Interface
	ReportsDir   string
	PollInterval time.Duration
	MaxDuration  time.Duration
	Schedule     cron.Schedule
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		state:        opts.State,
		store:        opts.Store,
		scheduler:    opts.Scheduler,
		monitor:      opts.Monitor,
		selector:     opts.Selector,
		backend:      opts.Backend,
		reportsDir:   opts.ReportsDir,
		pollInterval: opts.PollInterval,
		maxDuration:  opts.MaxDuration,
		schedule:     opts.Schedule,
	}
	if o.schedule != nil {
		o.nextReport = o.schedule.Next(time.Now())
	}
	return o
}

// ParseSchedule parses a standard five-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(
		cron.Minute |
			cron.Hour |
			cron.Dom |
			cron.Month |
			cron.Dow,
	)

	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid report schedule %q", expr)
	}
	return sched, nil
}

// Run drives the cycle until the workflow drains, the context ends,
// or the maximum monitor duration elapses.
func (o *Orchestrator) Run(ctx context.Context) error {
	deadline := time.Now().Add(o.maxDuration)

	for {
		done, err := o.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if o.maxDuration > 0 && time.Now().After(deadline) {
			log.Error("workflow deadline exceeded", "max_duration", o.maxDuration)
			return ErrDeadlineExceeded
		}

		if err := sleep(ctx, o.pollInterval); err != nil {
			return err
		}
	}
}

// Step performs one full cycle: dispatch, poll, escalate, persist.
// It reports done once every task is terminal.
func (o *Orchestrator) Step(ctx context.Context) (bool, error) {
	o.state.IncrementIteration()

	if err := o.scheduler.Cycle(ctx); err != nil {
		return false, err
	}

	snap, err := o.monitor.Poll(ctx)
	if err != nil {
		return false, err
	}

	log.Info("workflow progress",
		"iteration", o.state.Run().Iteration,
		"total", snap.Total,
		"pending", snap.Counts[models.TaskStatusPending],
		"queued", snap.Counts[models.TaskStatusQueued],
		"running", snap.Counts[models.TaskStatusRunning],
		"succeeded", snap.Counts[models.TaskStatusSucceeded],
		"failed", snap.Counts[models.TaskStatusFailed],
		"cancelled", snap.Counts[models.TaskStatusCancelled],
		"active_subjects", snap.ActiveSubjects,
		"elapsed", snap.Elapsed.Round(time.Second))

	if err := o.escalate(); err != nil {
		return false, err
	}

	if o.state.Drained() {
		o.state.Complete()
		if err := o.persist(); err != nil {
			return false, err
		}
		if err := o.archive(); err != nil {
			return false, err
		}
		o.writeReport()
		return true, nil
	}

	if err := o.persist(); err != nil {
		return false, err
	}
	o.maybeScheduledReport()
	return false, nil
}

// escalate injects the DFT validation backlog once every ML task is
// terminal. Selection happens at most once per run.
func (o *Orchestrator) escalate() error {
	if o.selector == nil || o.state.DFTSelected() {
		return nil
	}
	if !o.state.AllTerminal(models.TaskKindML) {
		return nil
	}

	tasks := o.selector.Select(o.state)
	if len(tasks) > 0 {
		if err := o.state.Add(tasks...); err != nil {
			return err
		}
		log.Info("validation backlog added", "tasks", len(tasks))
	}
	o.state.SetDFTSelected()
	return nil
}

// DisableEscalation keeps the run from injecting validation tasks,
// for single-task debugging runs.
func (o *Orchestrator) DisableEscalation() {
	o.selector = nil
}

// Reconcile compares persisted active tasks against the cluster's
// live queue after a resume. Nothing is transitioned here; tasks that
// vanished resolve through the normal poll rules.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	live, err := o.backend.Live(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reconcile with cluster")
	}

	known, lost := 0, 0
	for _, task := range o.state.Active() {
		if _, ok := live[task.JobHandle]; ok {
			known++
			continue
		}
		lost++
		log.Warn("active task no longer in queue",
			"task", task.ID,
			"job_id", task.JobHandle,
			"status", task.Status)
	}

	log.Info("state reconciled", "active", known+lost, "in_queue", known, "vanished", lost)
	return nil
}

func (o *Orchestrator) persist() error {
	if o.store == nil {
		return nil
	}
	return errors.Wrap(o.store.Save(o.state), "failed to persist workflow state")
}

// archive retires the drained run so a later resume does not pick it
// back up.
func (o *Orchestrator) archive() error {
	if o.store == nil {
		return nil
	}
	return errors.Wrap(o.store.Archive(o.state.Run().ID), "failed to archive workflow run")
}

func (o *Orchestrator) writeReport() {
	if o.reportsDir == "" {
		return
	}

	path, err := report.Aggregate(o.state).WriteFile(o.reportsDir)
	if err != nil {
		log.Error("failed to write summary", "error", err)
		return
	}
	log.Info("summary written", "path", path)
}

func (o *Orchestrator) maybeScheduledReport() {
	if o.schedule == nil || time.Now().Before(o.nextReport) {
		return
	}
	o.writeReport()
	o.nextReport = o.schedule.Next(time.Now())
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
