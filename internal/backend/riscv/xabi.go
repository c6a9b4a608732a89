/*
 * lily-cc - RISC-V ABI expansion (entry, call, return)
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on rv_xabi_entry/rv_xabi_call/rv_xabi_return in
 * _examples/original_source/src/compiler/back/riscv/rv_abi.c. Struct and
 * oversized-float argument handling approximates the original's
 * pointer-aliasing by-reference path with an explicit Memcpy/stack-bounce
 * instead, since this IR's Frame model has no notion of "this local slot is
 * really a pointer to the caller's copy" (documented in DESIGN.md).
 */

package riscv

import (
	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// retvalPtrs remembers, per function, the hidden pointer argument a
// large-struct return binds at entry, so XabiReturn can find it again. The
// original stores this directly on its func_t; this IR's Func has no
// target-specific slot, so the target keeps its own side table.
var retvalPtrs = map[*ir.Func]*ir.Var{}

func ptrPrim(ptrSize int) ir.Prim {
	if ptrSize == 8 {
		return ir.U64
	}
	return ir.U32
}

// XabiEntry expands the calling convention at function entry (§4.7): every
// argument is bound to its incoming register, or read from the
// stack-argument frame once registers are exhausted, with all of the new
// instructions spliced in immediately before the function's first existing
// instruction.
func (t *Target) XabiEntry(p *backend.Profile, f *ir.Func) {
	tup := t.extra[p]
	entry := f.Entry
	if entry == nil {
		return
	}
	var anchor *ir.Insn
	if len(entry.Insns) > 0 {
		anchor = entry.Insns[0]
	}

	cs := &ccState{
		block: entry, at: anchor,
		gprs: p.ArgGPRs, fprs: p.ArgFPRs, ptrSize: p.PointerWidth,
	}
	cs.stackFrame = f.NewFrame("incoming_stack_args", 0, uint64(p.PointerWidth), nil)

	if f.Return.Kind == ir.RetStruct && int64(f.Return.Size) > 2*int64(p.PointerWidth) {
		rv := f.NewVar("", ptrPrim(p.PointerWidth))
		t.allocIntEntry(cs, rv)
		retvalPtrs[f] = rv
	}

	for _, arg := range f.Args {
		switch arg.Kind {
		case ir.ArgStructFrame:
			t.allocStructEntry(cs, arg.Frame)
		case ir.ArgIgnored:
			t.allocIgnoredEntry(cs, tup, arg.Prim)
		case ir.ArgVar:
			v := arg.Var
			if v.Prim.Float() && ((v.Prim == ir.F32 && tup.f32) || (v.Prim == ir.F64 && tup.f64)) {
				t.allocFloatEntry(cs, v, p.PointerWidth)
			} else {
				t.allocIntEntry(cs, v)
			}
		}
	}

	cs.stackFrame.Size = uint64(cs.stackArgs)
}

func (t *Target) allocIntEntry(cs *ccState, dest *ir.Var) {
	if reg, ok := cs.nextGPR(); ok {
		cs.emitRegRead(dest, reg)
		return
	}
	off := cs.stackArgs
	cs.stackArgs += int64(cs.ptrSize)
	cs.emit(&ir.Insn{Kind: ir.KindLoad, Dest: dest, Mem: &ir.MemRef{Base: ir.BaseFrame, Frame: cs.stackFrame, Offset: off}})
}

func (t *Target) allocIgnoredEntry(cs *ccState, tup abiTuple, prim ir.Prim) {
	if prim.Float() && ((prim == ir.F32 && tup.f32) || (prim == ir.F64 && tup.f64)) {
		if _, ok := cs.nextFPR(); ok {
			return
		}
	}
	if _, ok := cs.nextGPR(); ok {
		return
	}
	cs.stackArgs += int64(cs.ptrSize)
}

// allocStructEntry binds a struct argument's backing frame to its incoming
// registers/stack slots (rv_xabi_entry_struct): zero-size is dropped,
// <=ptrSize and <=2*ptrSize copy one or two register-or-stack words into
// the frame, anything larger arrives by reference and is copied in once.
func (t *Target) allocStructEntry(cs *ccState, fr *ir.Frame) {
	if fr.Size == 0 {
		return
	}
	f := cs.block.Func
	ptr := int64(cs.ptrSize)

	switch {
	case int64(fr.Size) <= ptr:
		tmp := f.NewVar("", ptrPrim(cs.ptrSize))
		t.allocIntEntry(cs, tmp)
		cs.emit(&ir.Insn{Kind: ir.KindStore, StoreVal: ir.VarOperand(tmp), Mem: &ir.MemRef{Base: ir.BaseFrame, Frame: fr, Offset: 0}})
	case int64(fr.Size) <= 2*ptr:
		for _, off := range []int64{0, ptr} {
			tmp := f.NewVar("", ptrPrim(cs.ptrSize))
			t.allocIntEntry(cs, tmp)
			cs.emit(&ir.Insn{Kind: ir.KindStore, StoreVal: ir.VarOperand(tmp), Mem: &ir.MemRef{Base: ir.BaseFrame, Frame: fr, Offset: off}})
		}
	default:
		ptrVar := f.NewVar("", ptrPrim(cs.ptrSize))
		t.allocIntEntry(cs, ptrVar)
		cs.emit(&ir.Insn{
			Kind:    ir.KindMemcpy,
			CopyDst: &ir.MemRef{Base: ir.BaseFrame, Frame: fr, Offset: 0},
			CopySrc: &ir.MemRef{Base: ir.BaseVarPtr, VarPtr: ptrVar, Offset: 0},
			CopyLen: fr.Size,
		})
	}
}

// allocFloatEntry binds a hardware-float argument (rv_xabi_entry_float): an
// FPR if one remains, else falls through to the integer path, bit-casting
// through a same-size temp (or a two-limb stack bounce when the float is
// wider than one pointer word, e.g. f64 under a 32-bit soft-pointer ABI).
func (t *Target) allocFloatEntry(cs *ccState, dest *ir.Var, ptrWidth int) {
	if reg, ok := cs.nextFPR(); ok {
		cs.emitRegRead(dest, reg)
		return
	}

	f := cs.block.Func
	size := dest.Prim.Size()
	if size <= ptrWidth {
		tmp := f.NewVar("", ptrPrim(ptrWidth))
		t.allocIntEntry(cs, tmp)
		cs.emit(&ir.Insn{Kind: ir.KindExpr1, Dest: dest, Un: ir.OpBitcast, Src: ir.VarOperand(tmp)})
		return
	}

	bounce := f.NewFrame("", uint64(size), uint64(ptrWidth), nil)
	for off := 0; off < size; off += ptrWidth {
		tmp := f.NewVar("", ptrPrim(ptrWidth))
		t.allocIntEntry(cs, tmp)
		cs.emit(&ir.Insn{Kind: ir.KindStore, StoreVal: ir.VarOperand(tmp), Mem: &ir.MemRef{Base: ir.BaseFrame, Frame: bounce, Offset: int64(off)}})
	}
	cs.emit(&ir.Insn{Kind: ir.KindLoad, Dest: dest, Mem: &ir.MemRef{Base: ir.BaseFrame, Frame: bounce, Offset: 0}})
}

// XabiCall expands one call instruction's arguments into register writes
// and stack stores, and emits the caller-saved clobber marker the original
// computes from the (rve, rv64, f32, f64) tuple (§4.7).
func (t *Target) XabiCall(p *backend.Profile, f *ir.Func, call *ir.Insn) {
	tup := t.extra[p]
	block := call.Parent
	if block == nil {
		return
	}

	cs := &ccState{block: block, at: call, gprs: p.ArgGPRs, fprs: p.ArgFPRs, ptrSize: p.PointerWidth}
	cs.stackFrame = f.NewFrame("outgoing_stack_args", 0, uint64(p.PointerWidth), nil)

	retOutparam := call.CallReturn.Kind == ir.RetStruct && int64(call.CallReturn.Size) > 2*int64(p.PointerWidth)
	if retOutparam {
		t.allocIntCall(cs, ir.VarOperand(call.Dest))
	}

	for _, arg := range call.CallArgs {
		switch {
		case arg.IsMem() && arg.Mem != nil:
			// A MemRef operand here stands for a struct argument passed by
			// value; its referenced bytes are the struct's contents.
			t.allocStructCall(cs, arg.Mem)
		case arg.Prim().Float() && ((arg.Prim() == ir.F32 && tup.f32) || (arg.Prim() == ir.F64 && tup.f64)):
			t.allocFloatCall(cs, arg)
		default:
			t.allocIntCall(cs, arg)
		}
	}

	cs.stackFrame.Size = uint64(cs.stackArgs)

	isIntRet := call.CallReturn.Kind == ir.RetPrim && call.CallReturn.Prim.Integer()
	isFloatRet := call.CallReturn.Kind == ir.RetPrim && call.CallReturn.Prim.Float()

	clobbers := map[int]bool{}
	for _, r := range p.CallerSaved {
		clobbers[regCode(r)] = true
	}
	if isIntRet {
		delete(clobbers, regCode(IntRegs[10]))
	}
	if isFloatRet {
		delete(clobbers, regCode(FloatRegs[10]))
	}
	regs := make([]int, 0, len(clobbers))
	for n := range clobbers {
		regs = append(regs, n)
	}
	block.InsertBefore(call, &ir.Insn{Kind: ir.KindClobber, ClobberRegs: regs})
}

// regCode maps a register to the flat space ir.Insn.ClobberRegs uses,
// offsetting float register numbers clear of the integer file (both are
// independently numbered 0-31 in the RISC-V encoding).
func regCode(r backend.Register) int {
	if r.Class&(backend.RegF32|backend.RegF64) != 0 {
		return r.Num + 100
	}
	return r.Num
}

func (t *Target) allocIntCall(cs *ccState, val ir.Operand) {
	if reg, ok := cs.nextGPR(); ok {
		cs.emitRegWrite(reg, val)
		return
	}
	off := cs.stackArgs
	cs.stackArgs += int64(cs.ptrSize)
	cs.emit(&ir.Insn{Kind: ir.KindStore, StoreVal: val, Mem: &ir.MemRef{Base: ir.BaseFrame, Frame: cs.stackFrame, Offset: off}})
}

func (t *Target) allocFloatCall(cs *ccState, val ir.Operand) {
	if reg, ok := cs.nextFPR(); ok {
		cs.emitRegWrite(reg, val)
		return
	}
	f := cs.block.Func
	tmp := f.NewVar("", ptrPrim(cs.ptrSize))
	cs.emit(&ir.Insn{Kind: ir.KindExpr1, Dest: tmp, Un: ir.OpBitcast, Src: val})
	t.allocIntCall(cs, ir.VarOperand(tmp))
}

func (t *Target) allocStructCall(cs *ccState, mem *ir.MemRef) {
	ptr := int64(cs.ptrSize)
	f := cs.block.Func

	size := int64(0)
	if mem.Frame != nil {
		size = int64(mem.Frame.Size)
	}

	switch {
	case size <= ptr:
		tmp := f.NewVar("", ptrPrim(cs.ptrSize))
		cs.emit(&ir.Insn{Kind: ir.KindLoad, Dest: tmp, Mem: mem})
		t.allocIntCall(cs, ir.VarOperand(tmp))
	case size <= 2*ptr:
		for _, off := range []int64{0, ptr} {
			tmp := f.NewVar("", ptrPrim(cs.ptrSize))
			sub := *mem
			sub.Offset += off
			cs.emit(&ir.Insn{Kind: ir.KindLoad, Dest: tmp, Mem: &sub})
			t.allocIntCall(cs, ir.VarOperand(tmp))
		}
	default:
		ptrVar := f.NewVar("", ptrPrim(cs.ptrSize))
		cs.emit(&ir.Insn{Kind: ir.KindLeaStack, Dest: ptrVar, Frame: mem.Frame})
		t.allocIntCall(cs, ir.VarOperand(ptrVar))
	}
}

// XabiReturn expands a return instruction: a large-struct return copies
// through the hidden pointer XabiEntry bound, everything else is written
// directly into its return register (§4.7).
func (t *Target) XabiReturn(p *backend.Profile, f *ir.Func, ret *ir.Insn) {
	block := ret.Parent
	if block == nil || !ret.HasRetVal {
		return
	}

	if f.Return.Kind == ir.RetStruct && int64(f.Return.Size) > 2*int64(p.PointerWidth) {
		rv := retvalPtrs[f]
		if rv == nil || !ret.RetVal.IsMem() {
			return
		}
		block.InsertBefore(ret, &ir.Insn{
			Kind:    ir.KindMemcpy,
			CopyDst: &ir.MemRef{Base: ir.BaseVarPtr, VarPtr: rv, Offset: 0},
			CopySrc: ret.RetVal.Mem,
			CopyLen: f.Return.Size,
		})
		return
	}

	switch {
	case f.Return.Prim.Float() && ((f.Return.Prim == ir.F32 && p.HasF32) || (f.Return.Prim == ir.F64 && p.HasF64)):
		block.InsertBefore(ret, &ir.Insn{Kind: ir.KindMachine, Proto: RegWrite{Reg: p.ReturnFPRs[0]}, MOperands: []ir.Operand{ret.RetVal}})
	case f.Return.Kind == ir.RetStruct:
		ptr := int64(p.PointerWidth)
		for i, off := range []int64{0, ptr} {
			if int64(f.Return.Size) <= off {
				break
			}
			tmp := f.NewVar("", ptrPrim(p.PointerWidth))
			sub := *ret.RetVal.Mem
			sub.Offset += off
			block.InsertBefore(ret, &ir.Insn{Kind: ir.KindLoad, Dest: tmp, Mem: &sub})
			block.InsertBefore(ret, &ir.Insn{Kind: ir.KindMachine, Proto: RegWrite{Reg: p.ReturnGPRs[i]}, MOperands: []ir.Operand{ir.VarOperand(tmp)}})
		}
	default:
		block.InsertBefore(ret, &ir.Insn{Kind: ir.KindMachine, Proto: RegWrite{Reg: p.ReturnGPRs[0]}, MOperands: []ir.Operand{ret.RetVal}})
	}
}
