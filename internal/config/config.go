// Package config parses and validates the workflow document: the
// materials, adsorbants, height grids, cluster partitions, and
// workflow limits for one orchestration run. Any malformed or missing
// field fails here, before a single task is generated.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/heights"
)

// Config is the validated workflow document.
type Config struct {
	MLModel       string                   `yaml:"ml_calculator"`
	PseudoDir     string                   `yaml:"pseudo_dir"`
	Materials     []string                 `yaml:"materials"`
	Adsorbants    []string                 `yaml:"adsorbants"`
	ZRanges       map[string]heights.Range `yaml:"z_ranges"`
	DefaultZRange heights.Range            `yaml:"default_z_range"`
	Workflow      Workflow                 `yaml:"workflow"`
	Cluster       Cluster                  `yaml:"cluster"`
}

// Workflow holds escalation and sizing limits.
type Workflow struct {
	DFTFraction  float64 `yaml:"dft_fraction"`
	DFTMaxPoints int     `yaml:"dft_max_points"`
	DFTCores     int     `yaml:"dft_cores"`
	MLCores      int     `yaml:"ml_cores"`
	MLMemory     string  `yaml:"ml_memory"`
	DFTMemory    string  `yaml:"dft_memory"`
}

// Cluster describes the compute environment jobs are dispatched to.
type Cluster struct {
	Account          string      `yaml:"account"`
	Modules          []string    `yaml:"modules"`
	EnvironmentSetup []string    `yaml:"environment_setup"`
	Runner           string      `yaml:"runner"`
	Partitions       []Partition `yaml:"partitions"`
}

// Partition is one declared cluster queue; declaration order is the
// tie-break priority used by placement.
type Partition struct {
	Name          string `yaml:"name"`
	MaxJobs       int    `yaml:"max_jobs"`
	CoresPerNode  int    `yaml:"cores_per_node"`
	MemoryPerNode string `yaml:"memory_per_node"`
	TimeLimit     string `yaml:"time_limit"`
	GPU           bool   `yaml:"gpu"`
	Constraint    string `yaml:"constraint"`
}

// Load reads, parses, and validates the workflow document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read workflow config")
	}
	return Parse(data)
}

// Parse parses YAML bytes into a Config, rejecting unknown fields.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{
		Workflow: Workflow{
			DFTFraction:  0.3,
			DFTMaxPoints: 5,
			DFTCores:     32,
			MLCores:      8,
			MLMemory:     "32G",
			DFTMemory:    "128G",
		},
		DefaultZRange: heights.Range{Start: 2.5, End: 8.0, Step: 0.2},
		Cluster: Cluster{
			Runner: "python3 comprehensive_runner.py",
		},
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse workflow config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs semantic validation on the document.
func (c *Config) Validate() error {
	if len(c.Materials) == 0 {
		return fmt.Errorf("materials must contain at least one entry")
	}
	if len(c.Adsorbants) == 0 {
		return fmt.Errorf("adsorbants must contain at least one entry")
	}
	if strings.TrimSpace(c.MLModel) == "" {
		return fmt.Errorf("ml_calculator is required")
	}

	if c.Workflow.DFTFraction < 0 || c.Workflow.DFTFraction > 1 {
		return fmt.Errorf("workflow.dft_fraction must be within [0,1], got %v", c.Workflow.DFTFraction)
	}
	if c.Workflow.DFTMaxPoints < 1 {
		return fmt.Errorf("workflow.dft_max_points must be positive")
	}

	if err := c.DefaultZRange.Validate(); err != nil {
		return errors.Wrap(err, "default_z_range")
	}
	for ads, r := range c.ZRanges {
		if err := r.Validate(); err != nil {
			return errors.Wrapf(err, "z_ranges[%s]", ads)
		}
	}

	if len(c.Cluster.Partitions) == 0 {
		return fmt.Errorf("cluster.partitions must contain at least one entry")
	}

	seen := map[string]bool{}
	for i, p := range c.Cluster.Partitions {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("cluster.partitions[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate partition name: %s", p.Name)
		}
		seen[p.Name] = true

		if p.MaxJobs < 1 {
			return fmt.Errorf("partition %s: max_jobs must be positive", p.Name)
		}
		if p.CoresPerNode < 1 {
			return fmt.Errorf("partition %s: cores_per_node must be positive", p.Name)
		}
		if _, err := ParseWalltime(p.TimeLimit); err != nil {
			return errors.Wrapf(err, "partition %s", p.Name)
		}
	}

	if len(c.Partitions().Eligible(models.TaskKindML, 0)) == 0 {
		return fmt.Errorf("no GPU partition declared for ML tasks")
	}
	if c.Workflow.DFTFraction > 0 {
		if len(c.Partitions().Eligible(models.TaskKindDFT, c.Workflow.DFTCores)) == 0 {
			return fmt.Errorf(
				"no CPU partition with >= %d cores declared for DFT tasks",
				c.Workflow.DFTCores)
		}
		if strings.TrimSpace(c.PseudoDir) == "" {
			return fmt.Errorf("pseudo_dir is required when workflow.dft_fraction > 0")
		}
	}

	return nil
}

// CheckPseudopotentials verifies the pseudopotential directory exists
// when DFT escalation is enabled.
func (c *Config) CheckPseudopotentials() error {
	if c.Workflow.DFTFraction == 0 {
		return nil
	}

	info, err := os.Stat(c.PseudoDir)
	if err != nil {
		return errors.Wrapf(err, "pseudopotential directory %s", c.PseudoDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("pseudopotential path %s is not a directory", c.PseudoDir)
	}
	return nil
}

// Partitions converts the declared partitions into the resource model.
func (c *Config) Partitions() models.Partitions {
	out := make(models.Partitions, 0, len(c.Cluster.Partitions))
	for _, p := range c.Cluster.Partitions {
		limit, _ := ParseWalltime(p.TimeLimit)
		out = append(out, &models.Partition{
			Name:          p.Name,
			MaxJobs:       p.MaxJobs,
			CoresPerNode:  p.CoresPerNode,
			MemoryPerNode: p.MemoryPerNode,
			TimeLimit:     limit,
			Walltime:      p.TimeLimit,
			GPU:           p.GPU,
			Constraint:    p.Constraint,
		})
	}
	return out
}

// ZRange returns the height grid for an adsorbant, falling back to the
// document default.
func (c *Config) ZRange(adsorbant string) heights.Range {
	if r, ok := c.ZRanges[adsorbant]; ok {
		return r
	}
	return c.DefaultZRange
}
