package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowRun is the persisted identity of one workflow execution.
type WorkflowRun struct {
	ID          uuid.UUID `gorm:"primaryKey"`
	StartedAt   time.Time
	Iteration   int
	DFTSelected bool
	CompletedAt *time.Time
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// All lists every persisted model for migration.
var All = []interface{}{
	&Task{},
	&WorkflowRun{},
}
