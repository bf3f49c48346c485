// Package cluster defines the contract between the orchestrator and
// the compute back-end that actually runs jobs. Back-ends are treated
// as black boxes: the orchestrator submits, polls, and reconciles
// through this interface only.
package cluster

import (
	"context"
	"fmt"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
)

// Status is the state of a job as reported by the back-end. It is the
// external vocabulary; the monitor maps it onto task lifecycle states.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusTimeout   Status = "TIMEOUT"
	StatusNodeFail  Status = "NODE_FAIL"
	// StatusUnknown means the back-end has no record of the job, e.g.
	// it left the queue between polls or was never observed.
	StatusUnknown Status = "UNKNOWN"
)

// ParseStatus normalizes a back-end state string. Unrecognized states
// map to UNKNOWN rather than failing the poll.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusPending, StatusRunning, StatusCompleted,
		StatusFailed, StatusCancelled, StatusTimeout, StatusNodeFail:
		return Status(s)
	}
	return StatusUnknown
}

// Terminal reports whether the back-end considers the job finished.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout, StatusNodeFail:
		return true
	}
	return false
}

// SubmitRequest carries everything a back-end needs to dispatch one
// task onto one partition.
type SubmitRequest struct {
	Task      *models.Task
	Partition *models.Partition
}

// Interface is implemented by each compute back-end.
type Interface interface {
	// Submit dispatches the task and returns the back-end job handle.
	Submit(ctx context.Context, req *SubmitRequest) (string, error)
	// Status reports the current state of a previously submitted job.
	Status(ctx context.Context, handle string) (Status, error)
	// Live lists the handles the back-end still knows about, used to
	// reconcile persisted state on resume.
	Live(ctx context.Context) (map[string]Status, error)
}

// SubmissionError wraps a failed dispatch attempt. Submission failures
// are retryable up to the orchestrator's retry ceiling, unlike
// execution failures.
type SubmissionError struct {
	TaskID string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission of %s failed: %v", e.TaskID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
