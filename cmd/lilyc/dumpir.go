/*
 * lily-cc - `lilyc dump-ir` subcommand
 *
 * Copyright 2024, Richard Cornwell
 *
 * Round-trips a textual-IR file through internal/ir.Parse/Serialize,
 * optionally running SSA construction and/or the optimizer fixpoint first,
 * to inspect a pass's output without running the full pipeline (property
 * R1, §8).
 */

package main

import (
	"github.com/spf13/cobra"

	"github.com/rcornwell/lily-cc/internal/optimize"
)

func newDumpIRCmd() *cobra.Command {
	var output string
	var doSSA bool
	var doOpt bool

	cmd := &cobra.Command{
		Use:   "dump-ir <input.ir>",
		Short: "parse and re-serialize a function, optionally after SSA construction and/or optimization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFunc(args[0])
			if err != nil {
				return err
			}
			if doSSA {
				ensureSSA(f)
			}
			if doOpt {
				optimize.Optimize(f)
			}
			return writeFunc(output, f)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&doSSA, "ssa", false, "run SSA construction before printing")
	cmd.Flags().BoolVar(&doOpt, "opt", false, "run the optimizer fixpoint before printing")
	return cmd
}
