// Package state holds the authoritative in-memory workflow state and
// its persistence. All mutation goes through State's methods under a
// single lock; every observer (scheduler, monitor, API) reads copies.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
)

// State is the single writer over the workflow's tasks.
type State struct {
	mu    sync.RWMutex
	run   models.WorkflowRun
	tasks map[string]*models.Task
	order []string
}

// New wraps a workflow run with an empty task set.
func New(run models.WorkflowRun) *State {
	return &State{
		run:   run,
		tasks: map[string]*models.Task{},
	}
}

// Add appends tasks in the given order. Task ids must be unique; a
// duplicate leaves the state untouched.
func (s *State) Add(tasks ...*models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tasks {
		if _, ok := s.tasks[t.ID]; ok {
			return errors.Errorf("duplicate task id %s", t.ID)
		}
	}

	now := time.Now().UTC()
	for _, t := range tasks {
		c := *t
		c.RunID = s.run.ID
		c.Position = len(s.order)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		s.tasks[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	return nil
}

// Run returns a copy of the run record.
func (s *State) Run() models.WorkflowRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run
}

// Get returns a copy of the task, if present.
func (s *State) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return *t, true
}

// Tasks returns copies of all tasks in creation order.
func (s *State) Tasks() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(*models.Task) bool { return true })
}

// Pending returns the dispatch backlog in creation order.
func (s *State) Pending() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(t *models.Task) bool { return t.Status == models.TaskStatusPending })
}

// Active returns tasks currently occupying cluster capacity.
func (s *State) Active() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(func(t *models.Task) bool { return t.Active() })
}

// snapshot copies tasks matching keep, in creation order. Callers
// hold at least the read lock.
func (s *State) snapshot(keep func(*models.Task) bool) []*models.Task {
	out := make([]*models.Task, 0, len(s.order))
	for _, id := range s.order {
		if t := s.tasks[id]; keep(t) {
			c := *t
			out = append(out, &c)
		}
	}
	return out
}

// ActiveByPartition counts queued+running tasks per partition. The
// counts are recomputed from the live task set on every call.
func (s *State) ActiveByPartition() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, t := range s.tasks {
		if t.Active() {
			counts[t.Partition]++
		}
	}
	return counts
}

// ActiveSubjects lists the distinct subjects with a task currently
// running, sorted.
func (s *State) ActiveSubjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	for _, t := range s.tasks {
		if t.Status == models.TaskStatusRunning {
			seen[t.Subject()] = true
		}
	}

	subjects := make([]string, 0, len(seen))
	for subject := range seen {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	return subjects
}

// Counts tallies tasks per lifecycle status.
func (s *State) Counts() map[models.TaskStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[models.TaskStatus]int{}
	for _, t := range s.tasks {
		counts[t.Status]++
	}
	return counts
}

// AllTerminal reports whether every task of the kind is finished.
func (s *State) AllTerminal(kind models.TaskKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if t.Kind == kind && !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// Drained reports whether every task is finished.
func (s *State) Drained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// Failed reports whether any task finished in failure.
func (s *State) Failed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if t.Status == models.TaskStatusFailed {
			return true
		}
	}
	return false
}

// MarkQueued records a successful submission.
func (s *State) MarkQueued(id, partition, handle string) error {
	return s.transition(id, models.TaskStatusQueued, func(t *models.Task) {
		now := time.Now().UTC()
		t.Partition = partition
		t.JobHandle = handle
		t.SubmittedAt = &now
	})
}

// MarkRunning records that the back-end started executing the task.
func (s *State) MarkRunning(id string) error {
	return s.transition(id, models.TaskStatusRunning, func(t *models.Task) {
		if t.StartedAt == nil {
			now := time.Now().UTC()
			t.StartedAt = &now
		}
	})
}

// MarkSucceeded finishes the task successfully.
func (s *State) MarkSucceeded(id string) error {
	return s.transition(id, models.TaskStatusSucceeded, s.complete)
}

// MarkFailed finishes the task in failure, recording the reason.
func (s *State) MarkFailed(id, reason string) error {
	return s.transition(id, models.TaskStatusFailed, func(t *models.Task) {
		t.Reason = reason
		s.complete(t)
	})
}

// MarkCancelled finishes the task as cancelled, recording the reason.
func (s *State) MarkCancelled(id, reason string) error {
	return s.transition(id, models.TaskStatusCancelled, func(t *models.Task) {
		t.Reason = reason
		s.complete(t)
	})
}

// IncrementRetries bumps the submission attempt counter and returns
// the new value.
func (s *State) IncrementRetries(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return 0, errors.Errorf("unknown task %s", id)
	}
	t.Retries++
	t.UpdatedAt = time.Now().UTC()
	return t.Retries, nil
}

// IncrementIteration bumps the orchestration cycle counter.
func (s *State) IncrementIteration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run.Iteration++
}

// SetDFTSelected records that validation tasks have been injected, so
// selection runs at most once per workflow.
func (s *State) SetDFTSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run.DFTSelected = true
}

// DFTSelected reports whether validation tasks were already injected.
func (s *State) DFTSelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run.DFTSelected
}

// Complete stamps the run's completion time.
func (s *State) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.run.CompletedAt = &now
}

func (s *State) complete(t *models.Task) {
	now := time.Now().UTC()
	t.CompletedAt = &now
}

func (s *State) transition(id string, to models.TaskStatus, apply func(*models.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return errors.Errorf("unknown task %s", id)
	}
	if t.Status.Terminal() {
		return errors.Errorf("task %s is already %s", id, t.Status)
	}

	t.Status = to
	if apply != nil {
		apply(t)
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Restore rebuilds a State from persisted tasks, preserving their
// recorded creation order.
func Restore(run models.WorkflowRun, tasks []*models.Task) *State {
	s := New(run)

	sorted := append([]*models.Task(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	for _, t := range sorted {
		c := *t
		s.tasks[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
	return s
}
