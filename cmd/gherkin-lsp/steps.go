package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStepsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List every registered step definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, report, err := flags.loadWorkspace()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, step := range ws.Registry().Steps() {
				loc := step.Definition
				fmt.Fprintf(out, "%5d  %s  %s:%d:%d\n",
					step.Count, step.Text, relative(flags.root, loc.Path), loc.Range.Start.Line+1, loc.Range.Start.Character+1)
			}
			for _, pattern := range report.Steps.Unmatched {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: step pattern %q matched no files\n", pattern)
			}
			return nil
		},
	}
}
