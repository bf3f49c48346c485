// Package heights models the sampled height grid above a surface.
package heights

import (
	"fmt"
	"math"
	"sort"
)

// Range samples heights from Start to End (inclusive, within half a
// step) at a fixed Step, all in angstroms.
type Range struct {
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	Step  float64 `yaml:"step" json:"step"`
}

// Validate reports whether the range describes a usable grid.
func (r Range) Validate() error {
	if r.Step <= 0 {
		return fmt.Errorf("height range step must be positive, got %v", r.Step)
	}
	if r.End < r.Start {
		return fmt.Errorf("height range end %v is below start %v", r.End, r.Start)
	}
	return nil
}

// Points expands the range into its sampled grid.
func (r Range) Points() []float64 {
	if r.Step <= 0 || r.End < r.Start {
		return nil
	}

	n := int(math.Floor((r.End-r.Start)/r.Step+1e-6)) + 1
	points := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, r.Start+float64(i)*r.Step)
	}
	return points
}

// Nearest returns the grid point closest to v. The grid must be
// non-empty.
func Nearest(points []float64, v float64) float64 {
	best := points[0]
	for _, p := range points[1:] {
		if math.Abs(p-v) < math.Abs(best-v) {
			best = p
		}
	}
	return best
}

// Dedupe sorts points ascending and removes duplicates within tol.
func Dedupe(points []float64, tol float64) []float64 {
	if len(points) == 0 {
		return nil
	}

	sorted := append([]float64(nil), points...)
	sort.Float64s(sorted)

	out := sorted[:1]
	for _, p := range sorted[1:] {
		if p-out[len(out)-1] > tol {
			out = append(out, p)
		}
	}
	return out
}
