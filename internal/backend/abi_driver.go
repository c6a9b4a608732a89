/*
 * lily-cc - ABI expansion driver
 *
 * Copyright 2024, Richard Cornwell
 *
 * spec.md's data-flow summary (§1) places ABI expansion between the
 * optimizer and isel, ahead of internal/codegen's own six-step driver
 * (§4.5), but names no single function that walks a whole *ir.Func doing
 * it; this fills that gap the way internal/codegen/driver.go walks every
 * block for its own steps.
 */

package backend

import "github.com/rcornwell/lily-cc/internal/ir"

// ExpandABI rewrites f's entry, call sites, and return instructions for
// profile p via tgt's three Xabi hooks (§4.7), in program order. Run once
// per function, before internal/codegen.Run.
func ExpandABI(p *Profile, tgt Target, f *ir.Func) {
	tgt.XabiEntry(p, f)

	for _, c := range f.Blocks {
		for _, in := range append([]*ir.Insn(nil), c.Insns...) {
			switch in.Kind {
			case ir.KindCall:
				tgt.XabiCall(p, f, in)
			case ir.KindReturn:
				tgt.XabiReturn(p, f, in)
			}
		}
	}
}
