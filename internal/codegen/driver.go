/*
 * lily-cc - codegen driver
 *
 * Copyright 2024, Richard Cornwell
 *
 * Runs the six ordered steps of spec.md §4.5 over a function: redundant-
 * jump removal, library-call softening, operand-order normalization, the
 * target's optional pre-isel hook, per-instruction instruction selection
 * walked in reverse within each block, and the target's optional post-isel
 * hook. Grounded on
 * _examples/original_source/src/compiler/common/codegen/codegen.c's
 * top-level driver function, which calls the same six stages in the same
 * order over every block of a function.
 */

package codegen

import (
	"log/slog"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/diag"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// Logger receives the [BUG] diagnostic raised when isel exhausts every
// candidate for an instruction.
var Logger *slog.Logger

func bug(code, format string, args ...any) {
	diag.Raise(Logger, code, format, args...)
}

// Run drives f through codegen for profile p using target tgt, the
// expression candidate trie t (built once per profile by Generate over
// tgt's registered InsnProtos), and the flow/mem-access table flow (built
// by GenerateFlow over tgt's registered FlowProtos).
func Run(p *backend.Profile, tgt backend.Target, t *CandTree, flow *FlowTree, f *ir.Func) {
	removeRedundantJumps(f)
	softenLibraryCalls(p, f)
	normalizeOperandOrder(f)

	tgt.PreISelPass(p, f)

	wasSSA := f.EnforceSSA
	f.EnforceSSA = false
	for _, c := range f.Blocks {
		iselBlock(p, t, flow, f, c)
	}
	f.EnforceSSA = wasSSA

	tgt.PostISelPass(p, f)
}

// removeRedundantJumps deletes a terminal JUMP whose target is the block
// immediately following it in f.Blocks' list order (step 1).
func removeRedundantJumps(f *ir.Func) {
	for i, c := range f.Blocks {
		if len(c.Insns) == 0 || i+1 >= len(f.Blocks) {
			continue
		}
		last := c.Insns[len(c.Insns)-1]
		if last.Kind == ir.KindJump && last.Target == f.Blocks[i+1] {
			c.Delete(last)
		}
	}
}

// iselBlock walks c's instructions in reverse, replacing every non-machine,
// non-combinator instruction with its winning substitution (step 5).
// Instructions already deleted as part of an earlier (tail-ward) match are
// skipped. Expr1/Expr2 go through the expression candidate trie t; every
// other non-machine, non-combinator kind (control flow, loads/stores,
// calls, memcpy, clobber markers, undefined bindings) goes through the
// flow table instead (flowsel.go).
func iselBlock(p *backend.Profile, t *CandTree, flow *FlowTree, f *ir.Func, c *ir.Code) {
	snapshot := append([]*ir.Insn(nil), c.Insns...)
	deleted := map[*ir.Insn]bool{}

	for i := len(snapshot) - 1; i >= 0; i-- {
		in := snapshot[i]
		if deleted[in] {
			continue
		}
		if in.Kind == ir.KindCombinator || in.Kind == ir.KindMachine {
			continue
		}

		if in.Kind == ir.KindExpr1 || in.Kind == ir.KindExpr2 {
			proto, bindings, ok := Select(t, p, in)
			if !ok {
				bug("E-ISEL-NOMATCH", "no substitution covers %s", backend.DescribeInsn(in))
			}
			for _, covered := range Materialize(f, in, proto, bindings) {
				deleted[covered] = true
			}
			continue
		}

		proto, ok := SelectFlow(flow, p, in)
		if !ok {
			bug("E-ISEL-NOMATCH", "no substitution covers %s", backend.DescribeInsn(in))
		}
		MaterializeFlow(proto, in)
	}
}
