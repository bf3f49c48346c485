package slurm

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/cluster"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
)

// Script renders the batch script for one task. ML tasks reserve a
// GPU; DFT tasks run wide on CPU nodes with the electronic-structure
// modules loaded.
func Script(cfg *config.Config, configPath string, req *cluster.SubmitRequest, logsDir, resultsDir string) string {
	task, part := req.Task, req.Partition

	cores := cfg.Workflow.MLCores
	memory := cfg.Workflow.MLMemory
	if task.Kind == models.TaskKindDFT {
		cores = cfg.Workflow.DFTCores
		memory = cfg.Workflow.DFTMemory
	}
	if cores > part.CoresPerNode {
		cores = part.CoresPerNode
	}

	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n\n")

	directive := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, "#SBATCH "+format+"\n", args...)
	}
	directive("--job-name=%s", task.ID)
	directive("--partition=%s", part.Name)
	if cfg.Cluster.Account != "" {
		directive("--account=%s", cfg.Cluster.Account)
	}
	if task.Kind == models.TaskKindML {
		if part.Constraint != "" {
			directive("--constraint=%s", part.Constraint)
		}
		directive("--gres=gpu:1")
	}
	directive("--nodes=1")
	directive("--ntasks-per-node=%d", cores)
	if memory != "" {
		directive("--mem=%s", memory)
	}
	directive("--time=%s", part.Walltime)
	directive("--output=%s", filepath.Join(logsDir, task.ID+".o%j"))
	directive("--error=%s", filepath.Join(logsDir, task.ID+".e%j"))

	b.WriteString("\nmodule purge\n")
	for _, m := range cfg.Cluster.Modules {
		fmt.Fprintf(&b, "module load %s\n", m)
	}
	for _, line := range cfg.Cluster.EnvironmentSetup {
		b.WriteString(line + "\n")
	}

	b.WriteString("\nexport OMP_NUM_THREADS=$SLURM_CPUS_PER_TASK\n")
	if task.Kind == models.TaskKindML {
		b.WriteString("export CUDA_VISIBLE_DEVICES=$SLURM_LOCALID\n")
	}

	workDir := filepath.Join(resultsDir, task.ID)
	fmt.Fprintf(&b, "\nmkdir -p %s\ncd %s\n\n", workDir, workDir)

	b.WriteString(Command(cfg, configPath, task))
	b.WriteString("\n")
	return b.String()
}

// Command renders the payload invocation shared by the batch and
// local back-ends.
func Command(cfg *config.Config, configPath string, task *models.Task) string {
	args := []string{
		cfg.Cluster.Runner,
		"--config " + configPath,
		"--material " + task.Material,
		"--adsorbant " + task.Adsorbant,
	}
	if task.Kind == models.TaskKindDFT {
		args = append(args, "--dft-only", "--heights "+joinHeights(task.Heights.Values()))
	} else {
		args = append(args, "--ml-only")
	}
	return strings.Join(args, " \\\n    ")
}

func joinHeights(points []float64) string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, strconv.FormatFloat(p, 'g', -1, 64))
	}
	return strings.Join(out, ",")
}
