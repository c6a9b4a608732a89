/*
 * lily-cc - RISC-V ABI expander tests
 *
 * Copyright 2024, Richard Cornwell
 */

package riscv

import (
	"testing"

	"github.com/rcornwell/lily-cc/internal/ir"
)

func TestCreateProfileRVEHasSixArgGPRs(t *testing.T) {
	tgt := NewTarget()
	p, err := tgt.CreateProfile("ilp32e")
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if len(p.ArgGPRs) != 6 {
		t.Fatalf("expected 6 arg GPRs under ilp32e, got %d", len(p.ArgGPRs))
	}
	if p.PointerWidth != 4 || p.HasF32 || p.HasF64 {
		t.Fatalf("expected a 32-bit, soft-float profile, got %+v", p)
	}
}

func TestCreateProfileLP64DHasEightArgGPRsAndFPRs(t *testing.T) {
	tgt := NewTarget()
	p, err := tgt.CreateProfile("lp64d")
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if len(p.ArgGPRs) != 8 || len(p.ArgFPRs) != 8 {
		t.Fatalf("expected 8 arg GPRs and FPRs under lp64d, got %d/%d", len(p.ArgGPRs), len(p.ArgFPRs))
	}
	if p.PointerWidth != 8 || !p.HasF32 || !p.HasF64 {
		t.Fatalf("expected a 64-bit hardware-float profile, got %+v", p)
	}
}

func TestCreateProfileRejectsUnknownABI(t *testing.T) {
	tgt := NewTarget()
	if _, err := tgt.CreateProfile("rv32gc"); err == nil {
		t.Fatalf("expected an error for an unrecognized ABI name")
	}
}

// TestXabiEntryBindsArgumentsToRegisters exercises rv_xabi_entry's integer
// path (§4.7, scenario 5's shape): every scalar argument up to ArgGPRs'
// length is bound via a RegRead machine instruction ahead of the existing
// body, in argument order.
func TestXabiEntryBindsArgumentsToRegisters(t *testing.T) {
	tgt := NewTarget()
	p, _ := tgt.CreateProfile("lp64")

	f := ir.NewFunc("add2")
	x := f.NewVar("x", ir.U64)
	y := f.NewVar("y", ir.U64)
	r := f.NewVar("r", ir.U64)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}, {Kind: ir.ArgVar, Var: y}}
	entry := f.NewBlock("entry")
	body := entry.AddExpr2(r, ir.OpAdd, ir.VarOperand(x), ir.VarOperand(y))
	entry.AddReturn(ir.VarOperand(r), true)

	tgt.XabiEntry(p, f)

	if len(entry.Insns) != 4 {
		t.Fatalf("expected 2 RegRead insns ahead of the 2 original insns, got %d", len(entry.Insns))
	}
	first, second := entry.Insns[0], entry.Insns[1]
	if first.Kind != ir.KindMachine || first.Proto.ProtoName() != "regread:a0" || first.Dest != x {
		t.Fatalf("expected a0 bound to x first, got %+v", first)
	}
	if second.Kind != ir.KindMachine || second.Proto.ProtoName() != "regread:a1" || second.Dest != y {
		t.Fatalf("expected a1 bound to y second, got %+v", second)
	}
	if entry.Insns[2] != body {
		t.Fatalf("expected the original body to follow the register bindings unchanged")
	}
}

// TestXabiEntrySpillsOverflowArgsToStack exercises the RVE path, whose
// 6-GPR limit is exhausted by a 7th scalar argument.
func TestXabiEntrySpillsOverflowArgsToStack(t *testing.T) {
	tgt := NewTarget()
	p, _ := tgt.CreateProfile("ilp32e")

	f := ir.NewFunc("seven_args")
	vars := make([]*ir.Var, 7)
	args := make([]ir.Arg, 7)
	for i := range vars {
		vars[i] = f.NewVar("", ir.U32)
		args[i] = ir.Arg{Kind: ir.ArgVar, Var: vars[i]}
	}
	f.Args = args
	entry := f.NewBlock("entry")
	entry.AddReturn(ir.Operand{}, false)

	tgt.XabiEntry(p, f)

	if len(entry.Insns) != 8 {
		t.Fatalf("expected 6 RegReads + 1 stack Load + the original return, got %d", len(entry.Insns))
	}
	last := entry.Insns[6]
	if last.Kind != ir.KindLoad || last.Dest != vars[6] {
		t.Fatalf("expected the 7th argument to be loaded from the stack frame, got %+v", last)
	}
}

// TestXabiCallEmitsClobberExcludingReturnRegister checks that an integer
// call's return register is not listed among the registers a CLOBBER
// marker kills.
func TestXabiCallEmitsClobberExcludingReturnRegister(t *testing.T) {
	tgt := NewTarget()
	p, _ := tgt.CreateProfile("lp64")

	f := ir.NewFunc("caller")
	a := f.NewVar("a", ir.U64)
	r := f.NewVar("r", ir.U64)
	entry := f.NewBlock("entry")
	call := entry.AddCallDirect(r, "callee", []ir.Operand{ir.VarOperand(a)}, ir.ReturnDesc{Kind: ir.RetPrim, Prim: ir.U64})

	tgt.XabiCall(p, f, call)

	if len(entry.Insns) != 3 {
		t.Fatalf("expected 1 RegWrite + 1 Clobber + the call itself, got %d", len(entry.Insns))
	}
	clobber := entry.Insns[1]
	if clobber.Kind != ir.KindClobber {
		t.Fatalf("expected a clobber marker immediately before the call, got %+v", clobber)
	}
	for _, reg := range clobber.ClobberRegs {
		if reg == regCode(IntRegs[10]) {
			t.Fatalf("expected a0 (the return register) excluded from the clobber set")
		}
	}
}

// TestXabiReturnWritesReturnRegister checks the scalar return path writes
// into a0 via a RegWrite ahead of the return instruction.
func TestXabiReturnWritesReturnRegister(t *testing.T) {
	tgt := NewTarget()
	p, _ := tgt.CreateProfile("lp64")

	f := ir.NewFunc("ret_one")
	f.Return = ir.ReturnDesc{Kind: ir.RetPrim, Prim: ir.U64}
	r := f.NewVar("r", ir.U64)
	entry := f.NewBlock("entry")
	ret := entry.AddReturn(ir.VarOperand(r), true)

	tgt.XabiReturn(p, f, ret)

	if len(entry.Insns) != 2 {
		t.Fatalf("expected 1 RegWrite + the return itself, got %d", len(entry.Insns))
	}
	write := entry.Insns[0]
	if write.Kind != ir.KindMachine || write.Proto.ProtoName() != "regwrite:a0" {
		t.Fatalf("expected a RegWrite into a0 ahead of the return, got %+v", write)
	}
}
