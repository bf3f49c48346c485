// Package backlog generates the initial task set from a validated
// workflow document.
package backlog

import (
	"fmt"
	"path/filepath"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
)

// TaskID builds the canonical task identifier. The sequence number is
// the position of the (material, adsorbant) pair in enumeration order,
// so regenerating the backlog from the same document yields identical
// ids.
func TaskID(kind models.TaskKind, material, adsorbant string, seq int) string {
	return fmt.Sprintf("%s_%s_%s_%03d", kind, material, adsorbant, seq)
}

// ResultPath is where a task's back-end is expected to write its
// energies artifact.
func ResultPath(resultsDir string, t *models.Task) string {
	name := fmt.Sprintf("%s_%s_results.json", t.Adsorbant, t.Kind)
	return filepath.Join(resultsDir, t.ID, name)
}

// GenerateML expands the materials × adsorbants cross product into one
// pending ML task per pair. Generation is deterministic and performs
// no I/O; calling it twice with the same document yields the same
// tasks.
func GenerateML(cfg *config.Config, resultsDir string) []*models.Task {
	tasks := make([]*models.Task, 0, len(cfg.Materials)*len(cfg.Adsorbants))

	seq := 0
	for _, material := range cfg.Materials {
		for _, adsorbant := range cfg.Adsorbants {
			r := cfg.ZRange(adsorbant)
			t := &models.Task{
				ID:        TaskID(models.TaskKindML, material, adsorbant, seq),
				Seq:       seq,
				Kind:      models.TaskKindML,
				Material:  material,
				Adsorbant: adsorbant,
				Heights:   models.HeightRange{Range: &r},
				Status:    models.TaskStatusPending,
			}
			t.ResultPath = ResultPath(resultsDir, t)
			tasks = append(tasks, t)
			seq++
		}
	}
	return tasks
}

// DeriveDFT builds the validation task for a completed ML task,
// carrying the selected height subset. The sequence number is reused
// from the ML task; the kind prefix keeps the id unique.
func DeriveDFT(ml *models.Task, points []float64, resultsDir string) *models.Task {
	t := &models.Task{
		ID:        TaskID(models.TaskKindDFT, ml.Material, ml.Adsorbant, ml.Seq),
		Seq:       ml.Seq,
		Kind:      models.TaskKindDFT,
		Material:  ml.Material,
		Adsorbant: ml.Adsorbant,
		Heights:   models.HeightRange{Points: points},
		Status:    models.TaskStatusPending,
		DependsOn: ml.ID,
	}
	t.ResultPath = ResultPath(resultsDir, t)
	return t
}
