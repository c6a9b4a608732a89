/*
 * lily-cc - shared pipeline helpers for the lilyc subcommands
 *
 * Copyright 2024, Richard Cornwell
 */

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/backend/riscv"
	"github.com/rcornwell/lily-cc/internal/config"
	"github.com/rcornwell/lily-cc/internal/ir"
	"github.com/rcornwell/lily-cc/internal/ssa"
)

// readFunc parses one function from path, or stdin if path is "-".
func readFunc(path string) (*ir.Func, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return ir.Parse(r, ir.ParseOptions{})
}

// writeFunc serializes f to path, or stdout if path is "" or "-".
func writeFunc(path string, f *ir.Func) error {
	if path == "" || path == "-" {
		return ir.Serialize(os.Stdout, f)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return ir.Serialize(out, f)
}

// ensureSSA runs dominator-based SSA construction if f isn't already in
// SSA form.
func ensureSSA(f *ir.Func) {
	if !f.EnforceSSA {
		ssa.Construct(f)
	}
}

// resolveTarget parses a "-target" flag value of the form "arch-abi" (or
// "" for the default), the way config.ParseTargetString expects.
func resolveTarget(flag string) (*config.Target, error) {
	if flag == "" {
		flag = "riscv64-lp64d"
	}
	return config.ParseTargetString(flag)
}

// riscvTarget builds a ready-to-use target and profile for t.ABI.
func riscvTarget(t *config.Target) (*riscv.Target, *backend.Profile, error) {
	tgt := riscv.NewTarget()
	p, err := tgt.CreateProfile(t.ABI)
	if err != nil {
		return nil, nil, fmt.Errorf("target: %w", err)
	}
	tgt.InitCodegen(p)
	return tgt, p, nil
}
