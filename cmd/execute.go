package cmd

import (
	"github.com/AbrarFaiyad/energy-profile-calculator/cmd/plan"
	"github.com/AbrarFaiyad/energy-profile-calculator/cmd/resume"
	"github.com/AbrarFaiyad/energy-profile-calculator/cmd/run"
	"github.com/AbrarFaiyad/energy-profile-calculator/cmd/submit"
	"github.com/spf13/cobra"
)

var cmds = []*cobra.Command{
	run.Cmd,
	plan.Cmd,
	resume.Cmd,
	submit.Cmd,
}

// Execute builds the command tree and executes commands.
func Execute() error {
	command := &cobra.Command{
		Use: "epc",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	for _, c := range cmds {
		command.AddCommand(c)
	}

	return command.Execute()
}
