/*
 * lily-cc - command-line driver
 *
 * Copyright 2024, Richard Cornwell
 *
 * Wires the pipeline internal/ir -> internal/ssa -> internal/optimize ->
 * internal/backend -> internal/codegen behind a small command tree, the
 * way the teacher's main.go wires config/emu/telnet behind getopt flags.
 * github.com/spf13/cobra owns subcommand dispatch and usage text
 * (oisee-z80-optimizer/cmd/z80opt/main.go's style); each subcommand's own
 * flags are still plain cobra/pflag primitives, the same stack the rest
 * of the pack reaches for, but the interactive "-i" REPL mode of `compile`
 * (repl.go) reuses the teacher's command/parser abbreviation-matching
 * idiom verbatim rather than adding a third flag library just for that
 * one surface.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcornwell/lily-cc/internal/diag"
)

var (
	logFile   string
	traceFlag string
	explain   string
)

func newLogger() *slog.Logger {
	var file *os.File
	if logFile != "" {
		f, err := os.Create(logFile)
		if err == nil {
			file = f
		}
	}
	h := diag.NewHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}, traceFlag != "")
	return slog.New(h)
}

func main() {
	root := &cobra.Command{
		Use:   "lilyc",
		Short: "lily-cc: a retargetable C compiler core (RISC-V backend)",
	}
	root.PersistentFlags().StringVar(&logFile, "log", "", "write the trace log to this file in addition to stderr")
	root.PersistentFlags().StringVar(&traceFlag, "trace", "", "enable tracing: any non-empty value mirrors every log record to stderr (pass names are not filtered)")
	root.PersistentFlags().StringVar(&explain, "explain", "", "print the explanation for a [BUG]/diagnostic code and exit")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if explain != "" {
			text := diag.Explain(explain)
			if text == "" {
				return fmt.Errorf("no explanation registered for %q", explain)
			}
			fmt.Println(text)
			os.Exit(0)
		}
		return nil
	}

	root.AddCommand(newCompileCmd())
	root.AddCommand(newDumpIRCmd())
	root.AddCommand(newISelTraceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lilyc:", err)
		os.Exit(1)
	}
}
