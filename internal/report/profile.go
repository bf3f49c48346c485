package report

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Profile is the energies-over-heights artifact a job writes on
// success.
type Profile struct {
	Heights     []float64 `json:"heights"`
	MLEnergies  []float64 `json:"ml_energies,omitempty"`
	DFTEnergies []float64 `json:"dft_energies,omitempty"`
	Energies    []float64 `json:"energies,omitempty"`
}

// LoadProfile reads and validates one result artifact.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read result artifact")
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "malformed result artifact %s", path)
	}

	values := p.Values()
	if len(p.Heights) == 0 || len(values) == 0 {
		return nil, errors.Errorf("result artifact %s has no energy profile", path)
	}
	if len(values) != len(p.Heights) {
		return nil, errors.Errorf(
			"result artifact %s has %d heights but %d energies",
			path, len(p.Heights), len(values))
	}
	return &p, nil
}

// Values returns the energy series, preferring the explicitly labeled
// key over the generic one.
func (p *Profile) Values() []float64 {
	switch {
	case len(p.MLEnergies) > 0:
		return p.MLEnergies
	case len(p.DFTEnergies) > 0:
		return p.DFTEnergies
	}
	return p.Energies
}

// Minimum returns the height and energy of the profile's minimum.
func (p *Profile) Minimum() (height, energy float64) {
	values := p.Values()

	idx := 0
	for i, e := range values {
		if e < values[idx] {
			idx = i
		}
	}
	return p.Heights[idx], values[idx]
}

// At returns the energy at the grid point nearest to h.
func (p *Profile) At(h float64) float64 {
	values := p.Values()

	idx := 0
	best := abs(p.Heights[0] - h)
	for i, g := range p.Heights {
		if d := abs(g - h); d < best {
			best, idx = d, i
		}
	}
	return values[idx]
}

// BindingDepth is the well depth relative to the far-field reference:
// E(ref) - E(min). Deeper wells bind more strongly.
func (p *Profile) BindingDepth(ref float64) float64 {
	_, min := p.Minimum()
	return p.At(ref) - min
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
