/*
 * lily-cc - interactive pipeline REPL for `lilyc compile -i`
 *
 * Copyright 2024, Richard Cornwell
 *
 * github.com/peterh/liner drives line editing and history, the same
 * library command/reader/reader.go uses for the S370 console. Command
 * dispatch reuses command/parser/parser.go's abbreviation-matching
 * idiom (a name/min-length table plus a prefix-length check) rather than
 * cobra, since this surface is a REPL loop over one persistent *ir.Func,
 * not a process invocation.
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/backend/riscv"
	"github.com/rcornwell/lily-cc/internal/codegen"
	"github.com/rcornwell/lily-cc/internal/ir"
	"github.com/rcornwell/lily-cc/internal/optimize"
)

type replState struct {
	f   *ir.Func
	tgt *riscv.Target
	p   *backend.Profile
}

type replCmd struct {
	name    string
	min     int
	process func(*replState) error
}

var replCmds = []replCmd{
	{name: "ssa", min: 1, process: func(s *replState) error { ensureSSA(s.f); return nil }},
	{name: "optimize", min: 2, process: func(s *replState) error { optimize.Optimize(s.f); return nil }},
	{name: "abi", min: 1, process: func(s *replState) error { backend.ExpandABI(s.p, s.tgt, s.f); return nil }},
	{name: "isel", min: 2, process: func(s *replState) error {
		codegen.Run(s.p, s.tgt, s.tgt.Tree(), s.tgt.Flow(), s.f)
		return nil
	}},
	{name: "dump", min: 1, process: func(s *replState) error { return ir.Serialize(os.Stdout, s.f) }},
	{name: "help", min: 1, process: func(s *replState) error {
		fmt.Println("commands: ssa, optimize, abi, isel, dump, quit")
		return nil
	}},
}

func matchReplCmd(name string) *replCmd {
	var match *replCmd
	for i := range replCmds {
		c := &replCmds[i]
		if len(name) < c.min || len(name) > len(c.name) {
			continue
		}
		if c.name[:len(name)] != name {
			continue
		}
		if match != nil {
			return nil
		}
		match = c
	}
	return match
}

// runREPL steps f through the pipeline one stage at a time under operator
// control, printing the function on demand rather than running straight
// through to isel.
func runREPL(logger *slog.Logger, f *ir.Func, tgt *riscv.Target, p *backend.Profile) error {
	state := &replState{f: f, tgt: tgt, p: p}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("lilyc interactive pipeline - type 'help' for commands, 'quit' to exit")
	for {
		input, err := line.Prompt("lilyc> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}
		line.AppendHistory(input)

		word := strings.ToLower(strings.TrimSpace(input))
		if word == "" {
			continue
		}
		if word == "quit" || word == "exit" {
			return nil
		}

		c := matchReplCmd(word)
		if c == nil {
			fmt.Println("unknown or ambiguous command:", word)
			continue
		}
		if err := c.process(state); err != nil {
			logger.Error(err.Error())
			fmt.Println("error:", err.Error())
		}
	}
}
