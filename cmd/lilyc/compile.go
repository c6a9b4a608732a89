/*
 * lily-cc - `lilyc compile` subcommand
 *
 * Copyright 2024, Richard Cornwell
 *
 * Runs the full pipeline described by spec.md §1's data-flow summary over
 * one textual-IR input function: SSA construction (if not already in SSA
 * form), the optimizer fixpoint, ABI expansion, and the codegen driver.
 */

package main

import (
	"github.com/spf13/cobra"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/codegen"
	"github.com/rcornwell/lily-cc/internal/diag"
	"github.com/rcornwell/lily-cc/internal/optimize"
)

func newCompileCmd() *cobra.Command {
	var target string
	var output string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "compile <input.ir>",
		Short: "compile one textual-IR function through optimize, ABI expansion, and isel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			logger := newLogger()
			codegen.Logger = logger
			defer diag.Recover(&err)

			t, terr := resolveTarget(target)
			if terr != nil {
				return terr
			}

			f, perr := readFunc(args[0])
			if perr != nil {
				return perr
			}

			tgt, p, terr := riscvTarget(t)
			if terr != nil {
				return terr
			}

			if interactive {
				return runREPL(logger, f, tgt, p)
			}

			ensureSSA(f)
			optimize.Optimize(f)
			backend.ExpandABI(p, tgt, f)
			codegen.Run(p, tgt, tgt.Tree(), tgt.Flow(), f)

			return writeFunc(output, f)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "arch-abi, e.g. riscv64-lp64d (default riscv64-lp64d)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "step through the pipeline in a REPL instead of running it straight through")
	return cmd
}
