// Package monitor implements the poll cycle: it maps back-end job
// states onto task lifecycle transitions. Completion claims are never
// trusted on their own; a task only succeeds when its result artifact
// actually exists.
package monitor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/metrics"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

const (
	ReasonMissingArtifact   = "completed without result artifact"
	ReasonWalltimeExceeded  = "walltime exceeded"
	ReasonCancelledExternal = "cancelled by cluster"
)

// Snapshot is one poll cycle's view of workflow progress.
type Snapshot struct {
	Counts         map[models.TaskStatus]int `json:"counts"`
	Total          int                       `json:"total"`
	ActiveSubjects []string                  `json:"active_subjects,omitempty"`
	Elapsed        time.Duration             `json:"elapsed"`
}

// Done reports whether every task reached a terminal status.
func (s Snapshot) Done() bool {
	active := s.Counts[models.TaskStatusPending] +
		s.Counts[models.TaskStatusQueued] +
		s.Counts[models.TaskStatusRunning]
	return active == 0
}

type Monitor struct {
	state      *state.State
	backend    cluster.Interface
	partitions models.Partitions
	grace      time.Duration
	now        func() time.Time
}

func New(st *state.State, backend cluster.Interface, partitions models.Partitions, grace time.Duration) *Monitor {
	return &Monitor{
		state:      st,
		backend:    backend,
		partitions: partitions,
		grace:      grace,
		now:        time.Now,
	}
}

// Poll performs one pass over the active tasks. A poll error on one
// task is logged and skipped; the task keeps its current status until
// the next cycle.
func (m *Monitor) Poll(ctx context.Context) (Snapshot, error) {
	metrics.PollCyclesTotal.Inc()

	for _, task := range m.state.Active() {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		status, err := m.backend.Status(ctx, task.JobHandle)
		if err != nil {
			log.Warn("status poll failed", "task", task.ID, "job_id", task.JobHandle, "error", err)
			continue
		}

		if err := m.apply(task, status); err != nil {
			return Snapshot{}, err
		}
	}

	return m.snapshot(), nil
}

func (m *Monitor) apply(task *models.Task, status cluster.Status) error {
	switch status {
	case cluster.StatusPending:
		return m.checkDeadline(task)

	case cluster.StatusRunning:
		if task.Status == models.TaskStatusQueued {
			if err := m.state.MarkRunning(task.ID); err != nil {
				return err
			}
			log.Info("task running", "task", task.ID, "job_id", task.JobHandle)
			return nil
		}
		return m.checkDeadline(task)

	case cluster.StatusCompleted:
		return m.finish(task)

	case cluster.StatusFailed, cluster.StatusTimeout, cluster.StatusNodeFail:
		return m.fail(task, fmt.Sprintf("job %s", strings.ToLower(string(status))))

	case cluster.StatusCancelled:
		m.observe(task, models.TaskStatusCancelled)
		log.Warn("task cancelled externally", "task", task.ID, "job_id", task.JobHandle)
		return m.state.MarkCancelled(task.ID, ReasonCancelledExternal)

	case cluster.StatusUnknown:
		// A job that vanished after it was seen running has usually
		// finished between polls; the artifact decides. A job that
		// vanished while queued is retained until its deadline.
		if task.Status == models.TaskStatusRunning && m.artifactPresent(task) {
			return m.finish(task)
		}
		return m.checkDeadline(task)
	}
	return nil
}

// finish succeeds the task only when its result artifact exists.
func (m *Monitor) finish(task *models.Task) error {
	if !m.artifactPresent(task) {
		return m.fail(task, ReasonMissingArtifact)
	}

	m.observe(task, models.TaskStatusSucceeded)
	log.Info("task succeeded", "task", task.ID, "result", task.ResultPath)
	return m.state.MarkSucceeded(task.ID)
}

func (m *Monitor) fail(task *models.Task, reason string) error {
	metrics.TaskFailuresTotal.WithLabelValues(failureClass(reason)).Inc()
	m.observe(task, models.TaskStatusFailed)
	log.Error("task failed", "task", task.ID, "job_id", task.JobHandle, "reason", reason)
	return m.state.MarkFailed(task.ID, reason)
}

// checkDeadline fails tasks that outlived their partition's walltime
// plus the grace period.
func (m *Monitor) checkDeadline(task *models.Task) error {
	partition := m.partitions.Get(task.Partition)
	if partition == nil || partition.TimeLimit == 0 {
		return nil
	}

	start := task.SubmittedAt
	if task.StartedAt != nil {
		start = task.StartedAt
	}
	if start == nil {
		return nil
	}

	if m.now().Sub(*start) > partition.TimeLimit+m.grace {
		return m.fail(task, ReasonWalltimeExceeded)
	}
	return nil
}

func (m *Monitor) artifactPresent(task *models.Task) bool {
	info, err := os.Stat(task.ResultPath)
	return err == nil && info.Size() > 0
}

func (m *Monitor) observe(task *models.Task, status models.TaskStatus) {
	metrics.TasksCompletedTotal.WithLabelValues(string(task.Kind), string(status)).Inc()
	if task.SubmittedAt != nil {
		metrics.TaskDurationSeconds.
			WithLabelValues(string(task.Kind), string(status)).
			Observe(m.now().Sub(*task.SubmittedAt).Seconds())
	}
}

func (m *Monitor) snapshot() Snapshot {
	counts := m.state.Counts()

	total := 0
	for _, n := range counts {
		total += n
	}
	return Snapshot{
		Counts:         counts,
		Total:          total,
		ActiveSubjects: m.state.ActiveSubjects(),
		Elapsed:        time.Since(m.state.Run().StartedAt),
	}
}

func failureClass(reason string) string {
	switch reason {
	case ReasonMissingArtifact:
		return "artifact"
	case ReasonWalltimeExceeded:
		return "timeout"
	}
	return "execution"
}
