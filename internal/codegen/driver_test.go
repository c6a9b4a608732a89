/*
 * lily-cc - codegen driver tests
 *
 * Copyright 2024, Richard Cornwell
 */

package codegen

import (
	"testing"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// fakeTarget is a minimal backend.Target with no ABI work to do, used to
// exercise the driver's hook-calling steps.
type fakeTarget struct {
	preCalled, postCalled bool
}

func (t *fakeTarget) CreateProfile(abi string) (*backend.Profile, error) { return nil, nil }
func (t *fakeTarget) InitCodegen(p *backend.Profile)                     {}
func (t *fakeTarget) PreISelPass(p *backend.Profile, f *ir.Func)         { t.preCalled = true }
func (t *fakeTarget) PostISelPass(p *backend.Profile, f *ir.Func)        { t.postCalled = true }
func (t *fakeTarget) XabiEntry(p *backend.Profile, f *ir.Func)           {}
func (t *fakeTarget) XabiCall(p *backend.Profile, f *ir.Func, call *ir.Insn)  {}
func (t *fakeTarget) XabiReturn(p *backend.Profile, f *ir.Func, ret *ir.Insn) {}

// retFlow is a flow table covering RETURN only, which is every
// non-expression instruction the driver tests' functions reach isel with.
func retFlow() *FlowTree {
	return GenerateFlow([]*FlowProto{{
		Kind: ir.KindReturn,
		Emit: func(in *ir.Insn) { in.Parent.ReplaceWithMachine(in, machineProto{"ret"}, nil) },
	}})
}

func TestRunRemovesRedundantJump(t *testing.T) {
	f := ir.NewFunc("fallthrough")
	entry := f.NewBlock("entry")
	next := f.NewBlock("next")
	entry.AddJump(next)
	r := f.NewVar("r", ir.U32)
	next.AddExpr2(r, ir.OpAdd, ir.ConstOperand(ir.U64Const(ir.U32, 1)), ir.ConstOperand(ir.U64Const(ir.U32, 1)))
	next.AddReturn(ir.VarOperand(r), true)

	tree := Generate([]*InsnProto{addProto(), addiProto()})
	p := testProfile()
	tgt := &fakeTarget{}
	Run(p, tgt, tree, retFlow(), f)

	if len(entry.Insns) != 0 {
		t.Fatalf("expected the redundant jump to be removed, got %+v", entry.Insns)
	}
	if !tgt.preCalled || !tgt.postCalled {
		t.Fatalf("expected both isel hooks to run")
	}
}

func TestRunSoftensUnsupportedMul(t *testing.T) {
	f := ir.NewFunc("mul_soft")
	x := f.NewVar("x", ir.U32)
	y := f.NewVar("y", ir.U32)
	r := f.NewVar("r", ir.U32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}, {Kind: ir.ArgVar, Var: y}}
	entry := f.NewBlock("entry")
	entry.AddExpr2(r, ir.OpMul, ir.VarOperand(x), ir.VarOperand(y))
	entry.AddReturn(ir.VarOperand(r), true)

	p := &backend.Profile{PointerWidth: 4, WordWidth: 4, HasMul: false}

	softenLibraryCalls(p, f)
	normalizeOperandOrder(f)

	call := entry.Insns[0]
	if call.Kind != ir.KindCall || call.CallSym != "__lily_mul_u32" {
		t.Fatalf("expected a softened call to __lily_mul_u32, got %+v", call)
	}
}

func TestRunAbortsOnIselMiss(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected codegen to panic on an unmatched instruction")
		}
	}()

	f := ir.NewFunc("no_match")
	x := f.NewVar("x", ir.U32)
	r := f.NewVar("r", ir.U32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	entry.AddExpr2(r, ir.OpBxor, ir.VarOperand(x), ir.VarOperand(x))
	entry.AddReturn(ir.VarOperand(r), true)

	tree := Generate([]*InsnProto{addProto(), addiProto()})
	p := testProfile()
	Run(p, &fakeTarget{}, tree, retFlow(), f)
}
