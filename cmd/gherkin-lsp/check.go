package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// errUndefinedSteps makes check exit non-zero
var errUndefinedSteps = errors.New("undefined steps found")

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report feature file steps that match no step definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := flags.loadWorkspace()
			if err != nil {
				return err
			}

			results, err := ws.Check()
			if err != nil {
				return err
			}

			count := 0
			out := cmd.OutOrStdout()
			for _, file := range results {
				for _, d := range file.Diagnostics {
					fmt.Fprintf(out, "%s:%d:%d: %s\n",
						relative(flags.root, file.Path), d.Range.Start.Line+1, d.Range.Start.Character+1, d.Message)
					count++
				}
			}
			if count > 0 {
				return fmt.Errorf("%w: %d in %d files", errUndefinedSteps, count, len(results))
			}
			return nil
		},
	}
}

// relative shortens path for display when it lies under root
func relative(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && filepath.IsLocal(rel) {
		return filepath.ToSlash(rel)
	}
	return path
}
