// Package selector decides which completed ML profiles get escalated
// to DFT validation, and which height points each validation samples.
package selector

import (
	"math"
	"sort"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/backlog"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/report"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/state"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/heights"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/log"
)

// DefaultFarField is the reference height treated as the unbound
// baseline, in angstroms.
const DefaultFarField = 6.5

// neighborOffsets are sampled on both sides of the energy minimum.
var neighborOffsets = []float64{0.3, 0.6}

// Scorer ranks a profile's priority for validation. Higher wins.
type Scorer func(p *report.Profile) float64

// BindingDepth scores by well depth against the far-field reference.
func BindingDepth(ref float64) Scorer {
	return func(p *report.Profile) float64 {
		return p.BindingDepth(ref)
	}
}

type Selector struct {
	Fraction   float64
	MaxPoints  int
	FarField   float64
	ResultsDir string
	// Score overrides the ranking policy. Nil scores by binding depth
	// against FarField.
	Score Scorer
}

func New(fraction float64, maxPoints int, resultsDir string) *Selector {
	return &Selector{
		Fraction:   fraction,
		MaxPoints:  maxPoints,
		FarField:   DefaultFarField,
		ResultsDir: resultsDir,
	}
}

func (s *Selector) scorer() Scorer {
	if s.Score != nil {
		return s.Score
	}
	return BindingDepth(s.FarField)
}

type candidate struct {
	task    models.Task
	profile *report.Profile
	score   float64
}

// Select ranks the succeeded ML tasks and derives validation tasks
// for the top fraction. A fraction of zero selects nothing, which is
// not an error. Profiles that cannot be loaded are skipped with a
// warning; their tasks simply never escalate.
func (s *Selector) Select(st *state.State) []*models.Task {
	var succeeded []models.Task
	for _, task := range st.Tasks() {
		if task.Kind == models.TaskKindML && task.Status == models.TaskStatusSucceeded {
			succeeded = append(succeeded, *task)
		}
	}

	count := int(math.Ceil(s.Fraction * float64(len(succeeded))))
	if count == 0 {
		log.Info("no tasks selected for validation",
			"succeeded", len(succeeded),
			"fraction", s.Fraction)
		return nil
	}

	score := s.scorer()
	candidates := make([]candidate, 0, len(succeeded))
	for _, task := range succeeded {
		profile, err := report.LoadProfile(task.ResultPath)
		if err != nil {
			log.Warn("skipping unreadable profile", "task", task.ID, "error", err)
			continue
		}
		candidates = append(candidates, candidate{
			task:    task,
			profile: profile,
			score:   score(profile),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].task.Subject() < candidates[j].task.Subject()
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}

	tasks := make([]*models.Task, 0, len(candidates))
	for _, c := range candidates {
		points := s.Points(c.profile)
		task := c.task
		tasks = append(tasks, backlog.DeriveDFT(&task, points, s.ResultsDir))
		log.Info("selected for validation",
			"task", task.ID,
			"binding_depth", c.score,
			"points", points)
	}
	return tasks
}

// Points picks the validation heights for one profile: the energy
// minimum, its neighbors snapped to the sampled grid, and the
// far-field reference, capped at MaxPoints.
func (s *Selector) Points(p *report.Profile) []float64 {
	optimal, _ := p.Minimum()
	selected := []float64{optimal}

	lo, hi := p.Heights[0], p.Heights[0]
	for _, h := range p.Heights {
		lo, hi = math.Min(lo, h), math.Max(hi, h)
	}

	for _, delta := range neighborOffsets {
		for _, sign := range []float64{-1, 1} {
			if c := optimal + sign*delta; lo <= c && c <= hi {
				selected = append(selected, heights.Nearest(p.Heights, c))
			}
		}
	}

	if s.FarField <= hi {
		selected = append(selected, heights.Nearest(p.Heights, s.FarField))
	}

	selected = heights.Dedupe(selected, 1e-6)
	if len(selected) > s.MaxPoints {
		selected = selected[:s.MaxPoints]
	}
	return selected
}
