package models

import (
	"sort"
	"time"
)

// Partition describes one cluster queue and its concurrency ceiling.
type Partition struct {
	Name          string
	MaxJobs       int
	CoresPerNode  int
	MemoryPerNode string
	TimeLimit     time.Duration
	Walltime      string
	GPU           bool
	Constraint    string
}

// HasCapacity reports whether the partition can take another job given
// the number of queued+running jobs currently attributed to it.
func (p *Partition) HasCapacity(active int) bool {
	return active < p.MaxJobs
}

// Partitions is an ordered set; declaration order is the priority
// order used to break load ties.
type Partitions []*Partition

// Get returns the named partition, or nil.
func (ps Partitions) Get(name string) *Partition {
	for _, p := range ps {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Eligible filters partitions able to run the task kind: ML needs a
// GPU partition, DFT needs a CPU partition with at least minCores
// cores per node.
func (ps Partitions) Eligible(kind TaskKind, minCores int) Partitions {
	out := make(Partitions, 0, len(ps))
	for _, p := range ps {
		switch kind {
		case TaskKindML:
			if p.GPU {
				out = append(out, p)
			}
		case TaskKindDFT:
			if !p.GPU && p.CoresPerNode >= minCores {
				out = append(out, p)
			}
		}
	}
	return out
}

// ByLoad orders partitions least-loaded first, preserving declaration
// order between equally loaded partitions.
func (ps Partitions) ByLoad(active map[string]int) Partitions {
	out := append(Partitions(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool {
		return active[out[i].Name] < active[out[j].Name]
	})
	return out
}
