/*
 * lily-cc - optimizer tests
 *
 * Copyright 2024, Richard Cornwell
 */

package optimize

import (
	"strings"
	"testing"

	"github.com/rcornwell/lily-cc/internal/ir"
)

func TestConstPropFoldsBinaryExpr(t *testing.T) {
	f := ir.NewFunc("add_consts")
	sum := f.NewVar("sum", ir.U32)
	entry := f.NewBlock("entry")
	entry.AddExpr2(sum, ir.OpAdd, ir.ConstOperand(ir.U64Const(ir.U32, 2)), ir.ConstOperand(ir.U64Const(ir.U32, 3)))
	entry.AddReturn(ir.VarOperand(sum), true)

	if !constProp(f) {
		t.Fatalf("expected const-prop to report a change")
	}
	ret := entry.Insns[len(entry.Insns)-1]
	if !ret.RetVal.IsConst() || ret.RetVal.Con.Lo != 5 {
		t.Fatalf("expected return operand folded to 5, got %+v", ret.RetVal)
	}
	if err := f.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestConstPropRemovesUselessCopy(t *testing.T) {
	f := ir.NewFunc("copy")
	x := f.NewVar("x", ir.S32)
	y := f.NewVar("y", ir.S32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	entry.AddExpr1(y, ir.OpMov, ir.VarOperand(x))
	entry.AddReturn(ir.VarOperand(y), true)

	if !constProp(f) {
		t.Fatalf("expected const-prop to report a change")
	}
	ret := entry.Insns[len(entry.Insns)-1]
	if !ret.RetVal.IsVar() || ret.RetVal.Var != x {
		t.Fatalf("expected return operand renamed to x, got %+v", ret.RetVal)
	}
	for _, v := range f.Vars {
		if v == y {
			t.Fatalf("expected y to be deleted")
		}
	}
}

func TestConstPropMulByZero(t *testing.T) {
	f := ir.NewFunc("mul_zero")
	x := f.NewVar("x", ir.U32)
	z := f.NewVar("z", ir.U32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	entry.AddExpr2(z, ir.OpMul, ir.VarOperand(x), ir.ConstOperand(ir.U64Const(ir.U32, 0)))
	entry.AddReturn(ir.VarOperand(z), true)

	if !constProp(f) {
		t.Fatalf("expected const-prop to report a change")
	}
	ret := entry.Insns[len(entry.Insns)-1]
	if !ret.RetVal.IsConst() || !ret.RetVal.Con.IsZero() {
		t.Fatalf("expected return operand folded to zero, got %+v", ret.RetVal)
	}
}

func TestUnusedVarsDeletesDeadAssignment(t *testing.T) {
	f := ir.NewFunc("dead_assign")
	x := f.NewVar("x", ir.S32)
	unused := f.NewVar("unused", ir.S32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	entry.AddExpr2(unused, ir.OpAdd, ir.VarOperand(x), ir.VarOperand(x))
	entry.AddReturn(ir.VarOperand(x), true)

	if !unusedVars(f) {
		t.Fatalf("expected unused-var pass to report a change")
	}
	if len(entry.Insns) != 1 {
		t.Fatalf("expected the dead add to be deleted, got %d insns", len(entry.Insns))
	}
	for _, v := range f.Vars {
		if v == unused {
			t.Fatalf("expected unused to be deleted from f.Vars")
		}
	}
}

func TestUnusedVarsKeepsArguments(t *testing.T) {
	f := ir.NewFunc("ignored_arg")
	x := f.NewVar("x", ir.S32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	entry.AddReturn(ir.ConstOperand(ir.U64Const(ir.S32, 0)), true)

	unusedVars(f)
	for _, v := range f.Vars {
		if v == x {
			return
		}
	}
	t.Fatalf("expected argument x to survive unused-var elimination")
}

// deadBranchFixture builds entry -branch(const true)-> live / dead, where
// dead is only reachable via the false arm of the constant branch.
func deadBranchFixture() (*ir.Func, *ir.Code, *ir.Code) {
	f := ir.NewFunc("dead_branch")
	entry := f.NewBlock("entry")
	live := f.NewBlock("live")
	dead := f.NewBlock("dead")
	entry.AddBranch(ir.ConstOperand(ir.BoolConst(true)), live, dead)
	live.AddReturn(ir.ConstOperand(ir.U64Const(ir.S32, 1)), true)
	dead.AddReturn(ir.ConstOperand(ir.U64Const(ir.S32, 2)), true)
	return f, live, dead
}

func TestDeadCodeRemovesUnreachableBlock(t *testing.T) {
	f, _, dead := deadBranchFixture()

	if !deadCode(f) {
		t.Fatalf("expected dead-code pass to report a change")
	}
	for _, c := range f.Blocks {
		if c == dead {
			t.Fatalf("expected the dead block to be removed")
		}
	}
	if err := f.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestBranchesMergesSinglePredChain(t *testing.T) {
	f := ir.NewFunc("chain")
	entry := f.NewBlock("entry")
	mid := f.NewBlock("mid")
	done := f.NewBlock("done")
	entry.AddJump(mid)
	mid.AddJump(done)
	done.AddReturn(ir.ConstOperand(ir.U64Const(ir.S32, 0)), true)

	if !branches(f) {
		t.Fatalf("expected branch merging to report a change")
	}
	if len(f.Blocks) != 1 {
		t.Fatalf("expected the chain to collapse to 1 block, got %d", len(f.Blocks))
	}
	if len(f.Blocks[0].Insns) != 1 || f.Blocks[0].Insns[0].Kind != ir.KindReturn {
		t.Fatalf("expected the merged block to end with the return, got %+v", f.Blocks[0].Insns)
	}
	if err := f.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestStrengthReduceDivByPowerOfTwo(t *testing.T) {
	f := ir.NewFunc("divide")
	x := f.NewVar("x", ir.U32)
	q := f.NewVar("q", ir.U32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	entry.AddExpr2(q, ir.OpDiv, ir.VarOperand(x), ir.ConstOperand(ir.U64Const(ir.U32, 8)))
	entry.AddReturn(ir.VarOperand(q), true)

	if !strengthReduce(f) {
		t.Fatalf("expected strength reduction to report a change")
	}
	in := q.AssignedAt()[0]
	if in.Bin != ir.OpShr || !in.RHS.IsConst() || in.RHS.Con.Lo != 3 {
		t.Fatalf("expected div by 8 to become shr by 3, got op=%v rhs=%+v", in.Bin, in.RHS)
	}
}

func TestStrengthReduceUnsignedRemByPowerOfTwo(t *testing.T) {
	f := ir.NewFunc("modulo")
	x := f.NewVar("x", ir.U32)
	r := f.NewVar("r", ir.U32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	entry.AddExpr2(r, ir.OpRem, ir.VarOperand(x), ir.ConstOperand(ir.U64Const(ir.U32, 8)))
	entry.AddReturn(ir.VarOperand(r), true)

	if !strengthReduce(f) {
		t.Fatalf("expected strength reduction to report a change")
	}
	in := r.AssignedAt()[0]
	if in.Bin != ir.OpBand || !in.RHS.IsConst() || in.RHS.Con.Lo != 7 {
		t.Fatalf("expected rem by 8 to become band with 7, got op=%v rhs=%+v", in.Bin, in.RHS)
	}
}

func TestStrengthReduceLeavesSignedRemAlone(t *testing.T) {
	f := ir.NewFunc("signed_modulo")
	x := f.NewVar("x", ir.S32)
	r := f.NewVar("r", ir.S32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	entry.AddExpr2(r, ir.OpRem, ir.VarOperand(x), ir.ConstOperand(ir.U64Const(ir.S32, 8)))
	entry.AddReturn(ir.VarOperand(r), true)

	if strengthReduce(f) {
		t.Fatalf("signed rem by a power of two should not be reduced")
	}
	if r.AssignedAt()[0].Bin != ir.OpRem {
		t.Fatalf("expected the signed rem to survive untouched")
	}
}

func TestOptimizeEndToEndOnDeadBranchFixture(t *testing.T) {
	f, _, _ := deadBranchFixture()
	Optimize(f)

	if len(f.Blocks) != 1 {
		t.Fatalf("expected branches+deadcode to collapse to 1 block, got %d", len(f.Blocks))
	}
	if err := f.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestOptimizeIsIdempotent(t *testing.T) {
	f, _, _ := deadBranchFixture()
	Optimize(f)

	var before strings.Builder
	if err := ir.Serialize(&before, f); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	if changed := Optimize(f); changed {
		t.Fatalf("expected a fixed point, but a second Optimize pass reported a change")
	}

	var after strings.Builder
	if err := ir.Serialize(&after, f); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if before.String() != after.String() {
		t.Fatalf("a second Optimize pass mutated the function at a fixed point:\nbefore:\n%s\nafter:\n%s", before.String(), after.String())
	}
}
