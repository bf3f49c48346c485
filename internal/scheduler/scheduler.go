// Package scheduler implements the dispatch cycle: it drains the
// pending backlog into the cluster in creation order, subject to
// dependency gating and per-partition capacity ceilings.
package scheduler

import (
	"context"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/metrics"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

const (
	ReasonDependencyFailed = "dependency failed"
	ReasonDependencyGone   = "dependency missing"
	ReasonRetriesExhausted = "submission retries exhausted"
)

type Scheduler struct {
	state      *state.State
	backend    cluster.Interface
	partitions models.Partitions
	dftCores   int
	retryLimit int
}

func New(st *state.State, backend cluster.Interface, partitions models.Partitions, dftCores, retryLimit int) *Scheduler {
	if retryLimit < 1 {
		retryLimit = 1
	}
	return &Scheduler{
		state:      st,
		backend:    backend,
		partitions: partitions,
		dftCores:   dftCores,
		retryLimit: retryLimit,
	}
}

// Cycle performs one dispatch pass. Tasks whose dependency failed are
// cancelled; the rest of the backlog is offered to the cluster in
// creation order. Tasks that find no capacity simply stay pending for
// the next cycle.
func (s *Scheduler) Cycle(ctx context.Context) error {
	for _, task := range s.state.Pending() {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready, err := s.gate(task)
		if err != nil {
			return err
		}
		if !ready {
			continue
		}

		partition := s.place(task)
		if partition == nil {
			continue
		}

		if err := s.submit(ctx, task, partition); err != nil {
			return err
		}
	}

	for name, active := range s.state.ActiveByPartition() {
		metrics.PartitionActiveJobs.WithLabelValues(name).Set(float64(active))
	}
	return nil
}

// gate resolves the task's dependency: cancelled tasks propagate,
// unfinished dependencies hold the task back.
func (s *Scheduler) gate(task *models.Task) (bool, error) {
	if task.DependsOn == "" {
		return true, nil
	}

	dep, ok := s.state.Get(task.DependsOn)
	if !ok {
		log.Warn("task depends on unknown task", "task", task.ID, "depends_on", task.DependsOn)
		return false, s.state.MarkCancelled(task.ID, ReasonDependencyGone)
	}

	switch dep.Status {
	case models.TaskStatusSucceeded:
		return true, nil
	case models.TaskStatusFailed, models.TaskStatusCancelled:
		log.Info("cancelling task", "task", task.ID, "reason", ReasonDependencyFailed, "depends_on", dep.ID)
		return false, s.state.MarkCancelled(task.ID, ReasonDependencyFailed)
	}
	return false, nil
}

// place picks the least-loaded eligible partition with headroom, or
// nil when every candidate is full. Occupancy is recomputed from live
// state for every placement.
func (s *Scheduler) place(task *models.Task) *models.Partition {
	minCores := 0
	if task.Kind == models.TaskKindDFT {
		minCores = s.dftCores
	}

	active := s.state.ActiveByPartition()
	for _, p := range s.partitions.Eligible(task.Kind, minCores).ByLoad(active) {
		if p.HasCapacity(active[p.Name]) {
			return p
		}
	}
	return nil
}

func (s *Scheduler) submit(ctx context.Context, task *models.Task, partition *models.Partition) error {
	handle, err := s.backend.Submit(ctx, &cluster.SubmitRequest{
		Task:      task,
		Partition: partition,
	})
	if err != nil {
		metrics.SubmissionRetriesTotal.WithLabelValues(partition.Name).Inc()

		retries, rerr := s.state.IncrementRetries(task.ID)
		if rerr != nil {
			return rerr
		}

		log.Warn("submission failed",
			"task", task.ID,
			"partition", partition.Name,
			"attempt", retries,
			"error", err)

		if retries >= s.retryLimit {
			metrics.TaskFailuresTotal.WithLabelValues("submission").Inc()
			return s.state.MarkFailed(task.ID, ReasonRetriesExhausted)
		}
		return nil
	}

	metrics.TasksSubmittedTotal.WithLabelValues(string(task.Kind), partition.Name).Inc()
	log.Info("task queued", "task", task.ID, "partition", partition.Name, "job_id", handle)
	return s.state.MarkQueued(task.ID, partition.Name, handle)
}
