/*
 * lily-cc - SSA construction tests
 *
 * Copyright 2024, Richard Cornwell
 */

package ssa

import (
	"testing"

	"github.com/rcornwell/lily-cc/internal/ir"
)

// nonSSADiamond builds the same diamond shape as internal/ir's fixtures,
// but with every block reassigning a single shared variable, the
// non-SSA input shape Construct must convert (§8 scenario 4).
func nonSSADiamond() *ir.Func {
	f := ir.NewFunc("abs")
	x := f.NewVar("x", ir.S32)
	result := f.NewVar("result", ir.S32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}

	entry := f.NewBlock("entry")
	neg := f.NewBlock("neg")
	done := f.NewBlock("done")

	isNeg := f.NewVar("is_neg", ir.Bool)
	entry.AddExpr2(isNeg, ir.OpSlt, ir.VarOperand(x), ir.ConstOperand(ir.U64Const(ir.S32, 0)))
	entry.AddExpr1(result, ir.OpMov, ir.VarOperand(x))
	entry.AddBranch(ir.VarOperand(isNeg), neg, done)

	neg.AddExpr1(result, ir.OpNeg, ir.VarOperand(x))
	neg.AddJump(done)

	done.AddReturn(ir.VarOperand(result), true)

	return f
}

func TestConstructProducesValidSSA(t *testing.T) {
	f := nonSSADiamond()
	Construct(f)

	if !f.EnforceSSA {
		t.Fatalf("Construct should set EnforceSSA")
	}
	if err := f.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants after Construct: %v", err)
	}
}

func TestConstructInsertsPhiAtJoin(t *testing.T) {
	f := nonSSADiamond()
	Construct(f)

	done := f.Blocks[2]
	if len(done.Insns) == 0 || done.Insns[0].Kind != ir.KindCombinator {
		t.Fatalf("expected a phi as the first instruction of the join block, got %+v", done.Insns)
	}
	phi := done.Insns[0]
	if len(phi.Arms) != 2 {
		t.Fatalf("expected 2 phi arms, got %d", len(phi.Arms))
	}
	for _, a := range phi.Arms {
		if !a.Value.IsVar() {
			t.Fatalf("phi arm from %s has no value filled in", a.Pred.Name)
		}
	}
}

func TestConstructSingleAssignmentPerVar(t *testing.T) {
	f := nonSSADiamond()
	Construct(f)
	for _, v := range f.Vars {
		if len(v.AssignedAt()) > 1 {
			t.Fatalf("variable %%%s assigned %d times after SSA construction", v.Name, len(v.AssignedAt()))
		}
	}
}

// diamondWithUnassignedLocal builds a diamond where a local variable
// (not an argument) is assigned only on one incoming path to the join,
// so the phi arm from the other path has no reaching definition.
func diamondWithUnassignedLocal() (*ir.Func, *ir.Var) {
	f := ir.NewFunc("maybe_set")
	x := f.NewVar("x", ir.S32)
	scratch := f.NewVar("scratch", ir.S32)
	result := f.NewVar("result", ir.S32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}

	entry := f.NewBlock("entry")
	set := f.NewBlock("set")
	done := f.NewBlock("done")

	isPos := f.NewVar("is_pos", ir.Bool)
	entry.AddExpr2(isPos, ir.OpSlt, ir.ConstOperand(ir.U64Const(ir.S32, 0)), ir.VarOperand(x))
	entry.AddBranch(ir.VarOperand(isPos), set, done)

	set.AddExpr1(scratch, ir.OpMov, ir.VarOperand(x))
	set.AddJump(done)

	done.AddExpr1(result, ir.OpMov, ir.VarOperand(scratch))
	done.AddReturn(ir.VarOperand(result), true)

	return f, scratch
}

func TestConstructBindsUnreachingPhiArmAsUndefined(t *testing.T) {
	f, scratch := diamondWithUnassignedLocal()
	Construct(f)

	done := f.Blocks[2]
	if len(done.Insns) == 0 || done.Insns[0].Kind != ir.KindCombinator {
		t.Fatalf("expected a phi as the first instruction of the join block, got %+v", done.Insns)
	}
	phi := done.Insns[0]

	entry := f.Blocks[0]
	var fromEntry *ir.Var
	for _, a := range phi.Arms {
		if a.Pred == entry {
			if !a.Value.IsVar() {
				t.Fatalf("phi arm from entry has no value filled in")
			}
			fromEntry = a.Value.Var
		}
	}
	if fromEntry == nil {
		t.Fatalf("expected a phi arm from entry")
	}
	if fromEntry == scratch {
		t.Fatalf("phi arm from entry still points at the stale pre-rename %%scratch")
	}

	var undef *ir.Insn
	for _, in := range fromEntry.AssignedAt() {
		if in.Kind == ir.KindUndefined {
			undef = in
		}
	}
	if undef == nil {
		t.Fatalf("expected %%%s to be bound by a KindUndefined instruction, assigned at %+v", fromEntry.Name, fromEntry.AssignedAt())
	}
	if undef.Parent != entry {
		t.Fatalf("expected the undefined binding to live in entry (the predecessor edge it covers), got %v", undef.Parent)
	}
}

func TestDominatorTreeDiamond(t *testing.T) {
	f := nonSSADiamond()
	dom := Build(f)
	entry, neg, done := f.Blocks[0], f.Blocks[1], f.Blocks[2]

	if dom.IDom(neg) != entry {
		t.Fatalf("idom(neg) = %v, want entry", dom.IDom(neg))
	}
	if dom.IDom(done) != entry {
		t.Fatalf("idom(done) = %v, want entry (done has two preds)", dom.IDom(done))
	}
	if _, ok := dom.Frontier(neg)[done]; !ok {
		t.Fatalf("expected done in the dominance frontier of neg")
	}
}
