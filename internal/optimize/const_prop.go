/*
 * lily-cc - constant propagation and useless-copy elimination
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on ir_optimizer.c:const_prop_expr/opt_const_prop. Each
 * single-assignment variable is checked for one of five foldable shapes;
 * a match rewrites every use of the variable and deletes the now-dead
 * assignment, which may in turn make an operand of that assignment
 * single-use and foldable, hence the outer fixpoint loop.
 */

package optimize

import (
	"github.com/rcornwell/lily-cc/internal/interp"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// constProp propagates constants and useless copies to a fixpoint.
// Returns whether anything changed.
func constProp(f *ir.Func) bool {
	propagated := false
	for {
		loop := false
		for _, v := range snapshotVars(f) {
			if len(v.AssignedAt()) != 1 {
				continue
			}
			if constPropExpr(f, v.AssignedAt()[0]) {
				loop = true
			}
		}
		propagated = propagated || loop
		if !loop {
			break
		}
	}
	return propagated
}

// snapshotVars copies f.Vars so a pass can delete variables while
// iterating without disturbing the walk (the teacher's C loop captures
// "next" before each deletion for the same reason).
func snapshotVars(f *ir.Func) []*ir.Var {
	out := make([]*ir.Var, len(f.Vars))
	copy(out, f.Vars)
	return out
}

// constPropExpr tries to fold or simplify the single assignment to
// in.Dest, rewriting every use and deleting the assignment on success.
func constPropExpr(f *ir.Func, in *ir.Insn) bool {
	switch in.Kind {
	case ir.KindExpr1:
		return constPropUnary(f, in)
	case ir.KindExpr2:
		return constPropBinary(f, in)
	default:
		return false
	}
}

func constPropUnary(f *ir.Func, in *ir.Insn) bool {
	if in.Src.IsConst() {
		var val ir.Const
		if in.Un == ir.OpMov {
			val = interp.Cast(in.Dest.Prim, in.Src.Con)
		} else {
			val = interp.Calc1(in.Un, in.Src.Con)
		}
		replaceAndDelete(f, in, ir.ConstOperand(val))
		return true
	}
	if in.Un == ir.OpMov && in.Src.IsVar() && in.Src.Var.Prim == in.Dest.Prim {
		// A mov between two variables of the same type is a useless copy.
		replaceAndDelete(f, in, in.Src)
		return true
	}
	return false
}

func constPropBinary(f *ir.Func, in *ir.Insn) bool {
	if in.LHS.IsConst() && in.RHS.IsConst() {
		val := interp.Calc2(in.Bin, in.LHS.Con, in.RHS.Con)
		replaceAndDelete(f, in, ir.ConstOperand(val))
		return true
	}
	if in.Bin == ir.OpMul && in.RHS.IsConst() && in.RHS.Con.IsZero() {
		replaceAndDelete(f, in, ir.ConstOperand(ir.U64Const(in.Dest.Prim, 0)))
		return true
	}
	if in.Bin == ir.OpMul && in.LHS.IsConst() && in.LHS.Con.IsZero() {
		replaceAndDelete(f, in, ir.ConstOperand(ir.U64Const(in.Dest.Prim, 0)))
		return true
	}
	if (in.Bin == ir.OpMul || in.Bin == ir.OpDiv) && in.RHS.IsConst() && in.RHS.Con.IsOne() {
		replaceAndDelete(f, in, in.LHS)
		return true
	}
	if in.Bin == ir.OpMul && in.LHS.IsConst() && in.LHS.Con.IsOne() {
		replaceAndDelete(f, in, in.RHS)
		return true
	}
	return false
}

// replaceAndDelete rewrites every use of in.Dest to repl, then deletes the
// now-dead assignment instruction and the destination variable itself
// (ir_var_replace + ir_var_delete in the teacher).
func replaceAndDelete(f *ir.Func, in *ir.Insn, repl ir.Operand) {
	dest := in.Dest
	ir.ReplaceAllUsesOperand(dest, repl)
	in.Parent.Delete(in)
	f.DeleteVar(dest)
}
