/*
 * lily-cc - `lilyc isel-trace` subcommand
 *
 * Copyright 2024, Richard Cornwell
 *
 * Prints a function before and after the codegen driver runs, so isel's
 * substitutions (§4.6) can be read off the diff instead of having to
 * single-step under a debugger - the textual-IR analogue of the teacher's
 * emu/disassemble output.
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/codegen"
	"github.com/rcornwell/lily-cc/internal/diag"
	"github.com/rcornwell/lily-cc/internal/ir"
	"github.com/rcornwell/lily-cc/internal/optimize"
)

func newISelTraceCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "isel-trace <input.ir>",
		Short: "print a function before and after instruction selection",
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

			ensureSSA(f)
			optimize.Optimize(f)
			backend.ExpandABI(p, tgt, f)

			fmt.Fprintln(os.Stdout, "; before isel")
			if err := ir.Serialize(os.Stdout, f); err != nil {
				return err
			}

			codegen.Run(p, tgt, tgt.Tree(), tgt.Flow(), f)

			fmt.Fprintln(os.Stdout, "; after isel")
			return ir.Serialize(os.Stdout, f)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "arch-abi, e.g. riscv64-lp64d (default riscv64-lp64d)")
	return cmd
}
