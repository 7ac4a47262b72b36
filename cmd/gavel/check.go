package main

import (
	"fmt"

	"github.com/ezachrisen/gavel"
	"github.com/ezachrisen/gavel/internal/record"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	data     string
	explain  bool
	backend  string
	maxDepth int
}

func newCheckCommand() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check <rule>",
		Short: "Compile a rule, show its structure, and optionally evaluate it",
		Example: `  gavel check "age > 30 and department == 'Sales'"
  gavel check "age > 30 and department == 'Sales'" --data '{"age": 35, "department": "Sales"}' --explain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "JSON object to evaluate the rule against")
	cmd.Flags().BoolVarP(&opts.explain, "explain", "e", false, "print an evaluation report")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "native", "evaluator: native or cel")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 256, "maximum nesting of parentheses")
	return cmd
}

func check(cmd *cobra.Command, text string, opts checkOptions) error {
	out := cmd.OutOrStdout()

	evaluator, err := newEvaluator(opts.backend)
	if err != nil {
		return err
	}

	n, err := gavel.Compile(text, gavel.MaxDepth(opts.maxDepth))
	if err != nil {
		return errors.Wrap(err, "compiling rule")
	}

	fmt.Fprintf(out, "Canonical: %s\n\n", n)
	fmt.Fprintln(out, gavel.Tree(n))
	fmt.Fprintln(out, gavel.Describe(n))

	if opts.data == "" {
		return nil
	}

	var dec record.Decoder
	data, err := dec.Decode([]byte(opts.data))
	if err != nil {
		return errors.Wrap(err, "reading --data")
	}

	if opts.explain {
		_, d, err := gavel.Trace(n, data)
		if d != nil {
			fmt.Fprintln(out, d.AsString(text, data))
		}
		if err != nil {
			return errors.Wrap(err, "evaluating rule")
		}
	}

	pass, err := evaluator.Evaluate(n, data)
	if err != nil {
		return errors.Wrap(err, "evaluating rule")
	}
	fmt.Fprintf(out, "Result: %t\n", pass)
	return nil
}
