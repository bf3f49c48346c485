// Package report aggregates finished tasks into the run-wide summary:
// per-subject binding energies, ML/DFT comparison deltas, and the
// failure list.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

// SummaryFile is the name of the persisted run summary.
const SummaryFile = "workflow_summary.json"

// Result is one back-end's view of a subject's energy profile.
type Result struct {
	TaskID        string  `json:"task_id"`
	OptimalHeight float64 `json:"optimal_height"`
	MinEnergy     float64 `json:"min_energy"`
	Points        int     `json:"points"`
}

// Subject compares the ML profile with its DFT validation, when one
// exists.
type Subject struct {
	Subject   string   `json:"subject"`
	Material  string   `json:"material"`
	Adsorbant string   `json:"adsorbant"`
	ML        *Result  `json:"ml,omitempty"`
	DFT       *Result  `json:"dft,omitempty"`
	Delta     *float64 `json:"ml_dft_delta,omitempty"`
}

// Failure records one task that did not succeed.
type Failure struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Comparison is the run-wide summary document.
type Comparison struct {
	RunID       uuid.UUID                 `json:"run_id"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Elapsed     time.Duration             `json:"elapsed"`
	Counts      map[models.TaskStatus]int `json:"counts"`
	Subjects    []Subject                 `json:"subjects"`
	Failures    []Failure                 `json:"failures"`
}

// Aggregate folds the workflow state and its result artifacts into a
// comparison. Artifacts that cannot be read leave their side of the
// comparison empty; they do not fail the report.
func Aggregate(st *state.State) *Comparison {
	run := st.Run()
	c := &Comparison{
		RunID:       run.ID,
		GeneratedAt: time.Now().UTC(),
		Elapsed:     time.Since(run.StartedAt),
		Counts:      st.Counts(),
		Subjects:    []Subject{},
		Failures:    []Failure{},
	}

	bySubject := map[string]*Subject{}
	for _, task := range st.Tasks() {
		switch task.Status {
		case models.TaskStatusFailed, models.TaskStatusCancelled:
			c.Failures = append(c.Failures, Failure{
				TaskID: task.ID,
				Status: string(task.Status),
				Reason: task.Reason,
			})
			continue
		case models.TaskStatusSucceeded:
		default:
			continue
		}

		profile, err := LoadProfile(task.ResultPath)
		if err != nil {
			log.Warn("result artifact unreadable", "task", task.ID, "error", err)
			continue
		}

		key := task.Subject()
		subject, ok := bySubject[key]
		if !ok {
			subject = &Subject{
				Subject:   key,
				Material:  task.Material,
				Adsorbant: task.Adsorbant,
			}
			bySubject[key] = subject
		}

		h, e := profile.Minimum()
		result := &Result{
			TaskID:        task.ID,
			OptimalHeight: h,
			MinEnergy:     e,
			Points:        len(profile.Heights),
		}
		if task.Kind == models.TaskKindML {
			subject.ML = result
		} else {
			subject.DFT = result
		}
	}

	for _, subject := range bySubject {
		if subject.ML != nil && subject.DFT != nil {
			delta := subject.ML.MinEnergy - subject.DFT.MinEnergy
			subject.Delta = &delta
		}
		c.Subjects = append(c.Subjects, *subject)
	}
	sort.Slice(c.Subjects, func(i, j int) bool {
		return c.Subjects[i].Subject < c.Subjects[j].Subject
	})
	return c
}

// WriteFile persists the comparison under dir and returns the path.
func (c *Comparison) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create reports directory")
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to encode summary")
	}

	path := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write summary")
	}
	return path, nil
}
