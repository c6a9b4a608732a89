/*
 * lily-cc - operand-order normalization
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on
 * _examples/original_source/src/compiler/common/codegen/codegen.c's
 * canonicalize_expr pass, step 3 of spec.md §4.5: commutative and
 * order-invariant comparison ops get their lone variable operand moved to
 * the left, and a constant-subtrahend sub becomes an add of the negated
 * constant (every machine target's immediate-arithmetic instructions take
 * their register operand first).
 */

package codegen

import (
	"github.com/rcornwell/lily-cc/internal/interp"
	"github.com/rcornwell/lily-cc/internal/ir"
)

func normalizeOperandOrder(f *ir.Func) {
	for _, c := range f.Blocks {
		for _, in := range c.Insns {
			if in.Kind != ir.KindExpr2 {
				continue
			}
			if in.Bin.Commutative() && in.LHS.IsConst() && in.RHS.IsVar() {
				in.LHS, in.RHS = in.RHS, in.LHS
			}
			if in.Bin == ir.OpSub && in.RHS.IsConst() {
				in.Bin = ir.OpAdd
				in.RHS = ir.ConstOperand(interp.Calc1(ir.OpNeg, in.RHS.Con))
			}
		}
	}
}
