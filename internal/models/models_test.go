package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/heights"
)

func TestTaskStatusTerminal(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		terminal bool
	}{
		{TaskStatusPending, false},
		{TaskStatusQueued, false},
		{TaskStatusRunning, false},
		{TaskStatusSucceeded, true},
		{TaskStatusFailed, true},
		{TaskStatusCancelled, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.terminal, tt.status.Terminal(), string(tt.status))
	}
}

func TestHeightRangeValues(t *testing.T) {
	grid := HeightRange{Range: &heights.Range{Start: 2, End: 4, Step: 1}}
	assert.InDeltaSlice(t, []float64{2, 3, 4}, grid.Values(), 1e-9)

	explicit := HeightRange{Points: []float64{2.4, 3.0}}
	assert.InDeltaSlice(t, []float64{2.4, 3.0}, explicit.Values(), 1e-9)

	assert.Nil(t, HeightRange{}.Values())
}

func testPartitions() Partitions {
	return Partitions{
		{Name: "cenvalarc.gpu", MaxJobs: 4, CoresPerNode: 32, GPU: true},
		{Name: "gpu", MaxJobs: 4, CoresPerNode: 28, GPU: true},
		{Name: "long", MaxJobs: 3, CoresPerNode: 56, TimeLimit: 120 * time.Hour},
		{Name: "cenvalarc.compute", MaxJobs: 3, CoresPerNode: 64},
	}
}

func TestPartitionsEligible(t *testing.T) {
	ps := testPartitions()

	ml := ps.Eligible(TaskKindML, 0)
	assert.Len(t, ml, 2)
	assert.Equal(t, "cenvalarc.gpu", ml[0].Name)

	dft := ps.Eligible(TaskKindDFT, 60)
	assert.Len(t, dft, 1)
	assert.Equal(t, "cenvalarc.compute", dft[0].Name)
}

func TestPartitionsByLoadPrefersLeastLoaded(t *testing.T) {
	ps := testPartitions().Eligible(TaskKindML, 0)

	ordered := ps.ByLoad(map[string]int{"cenvalarc.gpu": 3, "gpu": 1})
	assert.Equal(t, "gpu", ordered[0].Name)

	// Equal load falls back to declaration order.
	ordered = ps.ByLoad(map[string]int{"cenvalarc.gpu": 2, "gpu": 2})
	assert.Equal(t, "cenvalarc.gpu", ordered[0].Name)
}

func TestPartitionHasCapacity(t *testing.T) {
	p := &Partition{Name: "long", MaxJobs: 3}
	assert.True(t, p.HasCapacity(2))
	assert.False(t, p.HasCapacity(3))
}
