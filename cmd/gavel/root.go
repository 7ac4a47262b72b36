package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gavel",
		Short: "gavel - boolean rule compiler, evaluator and rule service",
		Long: `gavel compiles rules such as

  (age > 30 and department == 'Sales') or (age < 25 and department == 'Marketing')

and evaluates them against JSON records. Use "gavel check" to try a rule from
the command line and "gavel serve" to run the HTTP rule service.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand(), newCheckCommand(), newVersionCommand())
	return root
}
