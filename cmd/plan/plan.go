package plan

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/backlog"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/config"
	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
	"github.com/AbrarFaiyad/energy-profile-calculator/pkg/env"
)

const (
	usage   = "plan"
	short   = "Print the task backlog without submitting anything"
	long    = "Validate the workflow document and print the ML backlog it would generate, along with the partitions each task could land on"
	example = "epc plan"
)

// Cmd is the plan command.
var Cmd = &cobra.Command{
	Use:        usage,
	Short:      short,
	Long:       long,
	Aliases:    []string{"p"},
	SuggestFor: []string{"dry-run", "preview", "show"},
	Example:    example,
	RunE:       plan,
}

func plan(cmd *cobra.Command, args []string) error {
	vars := env.Variables()

	cfg, err := config.Load(vars.ConfigPath)
	if err != nil {
		return err
	}

	tasks := backlog.GenerateML(cfg, vars.ResultsDir)
	partitions := cfg.Partitions()

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tKIND\tSUBJECT\tHEIGHTS\tELIGIBLE PARTITIONS")
	for _, task := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			task.ID,
			task.Kind,
			task.Subject(),
			len(task.Heights.Values()),
			names(partitions.Eligible(task.Kind, cfg.Workflow.MLCores)))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	dft := int(math.Ceil(float64(len(tasks)) * cfg.Workflow.DFTFraction))
	fmt.Printf("\n%d ML tasks; up to %d DFT validations (fraction %.2f)\n",
		len(tasks), dft, cfg.Workflow.DFTFraction)
	return nil
}

func names(partitions models.Partitions) string {
	out := ""
	for i, p := range partitions {
		if i > 0 {
			out += ","
		}
		out += p.Name
	}
	return out
}
