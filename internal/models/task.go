package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/heights"
)

// TaskKind distinguishes the two computation back-ends.
type TaskKind string

const (
	// TaskKindML is a machine-learned potential evaluation: fast,
	// GPU-favorable, covers the whole height grid in one job.
	TaskKindML TaskKind = "ml"
	// TaskKindDFT is a density-functional-theory validation: slow,
	// CPU-bound, runs on a reduced subset of the ML heights.
	TaskKindDFT TaskKind = "dft"
)

// TaskStatus enumerates the task lifecycle states.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// HeightRange is either a regular grid or an explicit list of sampled
// heights. DFT tasks always carry explicit points selected from their
// ML counterpart's grid.
type HeightRange struct {
	Range  *heights.Range `json:"range,omitempty"`
	Points []float64      `json:"points,omitempty"`
}

// Values expands the height range into its sampled points.
func (h HeightRange) Values() []float64 {
	if len(h.Points) > 0 {
		return append([]float64(nil), h.Points...)
	}
	if h.Range != nil {
		return h.Range.Points()
	}
	return nil
}

// Task is one unit of work: a single adsorbant/surface energy profile
// on one back-end.
type Task struct {
	ID          string      `gorm:"primaryKey" json:"id"`
	RunID       uuid.UUID   `gorm:"index" json:"run_id"`
	Seq         int         `gorm:"index" json:"seq"`
	Position    int         `gorm:"index" json:"position"`
	Kind        TaskKind    `json:"kind"`
	Material    string      `json:"material"`
	Adsorbant   string      `json:"adsorbant"`
	Heights     HeightRange `gorm:"serializer:json" json:"heights"`
	Status      TaskStatus  `json:"status"`
	DependsOn   string      `json:"depends_on,omitempty"`
	Partition   string      `json:"partition,omitempty"`
	JobHandle   string      `json:"job_handle,omitempty"`
	Retries     int         `json:"retries"`
	ResultPath  string      `json:"result_path"`
	Reason      string      `json:"reason,omitempty"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Subject identifies the adsorbant/surface combination independent of
// the back-end kind.
func (t *Task) Subject() string {
	return fmt.Sprintf("%s/%s", t.Material, t.Adsorbant)
}

// Active reports whether the task occupies cluster capacity.
func (t *Task) Active() bool {
	return t.Status == TaskStatusQueued || t.Status == TaskStatusRunning
}
