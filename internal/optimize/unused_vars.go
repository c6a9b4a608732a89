/*
 * lily-cc - unused variable elimination
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on ir_optimizer.c:opt_unused_vars ("delete all variables and
 * assignments to them whose value is never read"). Two deviations from a
 * literal port, both because this IR's KindCall/KindLoad/KindMachine
 * carry a Dest the teacher's call/load instructions never did:
 *   - argument variables are exempted (see isArgVar)
 *   - a var is only pruned if every instruction assigning it is pure
 *     (Expr1/Expr2/Combinator/Undefined/LeaStack/LeaSymbol/Load); an
 *     unused Call or Machine result is left alone since removing the
 *     instruction could discard a side effect the value-drop rule was
 *     never meant to reach.
 */

package optimize

import "github.com/rcornwell/lily-cc/internal/ir"

// unusedVars deletes every variable with no remaining use, along with the
// pure instructions that assigned it, to a fixpoint.
func unusedVars(f *ir.Func) bool {
	deleted := false
	for {
		loop := false
		for _, v := range snapshotVars(f) {
			if len(v.UsedAt()) != 0 || isArgVar(f, v) {
				continue
			}
			if !allAssignsPrunable(v) {
				continue
			}
			for _, in := range append([]*ir.Insn(nil), v.AssignedAt()...) {
				in.Parent.Delete(in)
			}
			f.DeleteVar(v)
			deleted = true
			loop = true
		}
		if !loop {
			break
		}
	}
	return deleted
}

func isArgVar(f *ir.Func, v *ir.Var) bool {
	for _, a := range f.Args {
		if a.Kind == ir.ArgVar && a.Var == v {
			return true
		}
	}
	return false
}

func allAssignsPrunable(v *ir.Var) bool {
	for _, in := range v.AssignedAt() {
		switch in.Kind {
		case ir.KindExpr1, ir.KindExpr2, ir.KindCombinator, ir.KindUndefined, ir.KindLeaStack, ir.KindLeaSymbol, ir.KindLoad:
		default:
			return false
		}
	}
	return true
}
