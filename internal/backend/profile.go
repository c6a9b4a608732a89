/*
 * lily-cc - backend profile model
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on spec.md §6 "Target backend interface" and §9's "Polymorphic
 * backend" design note: the original's virtual-table-of-function-pointers
 * becomes a Go interface, one implementor per target, with concrete profile
 * data held behind it. Register capability layout mirrors
 * _examples/original_source/src/compiler/back/riscv/rv_registers.h's
 * per-register capability bitset idea, generalized away from RISC-V here
 * and specialized back in internal/backend/riscv.
 */

// Package backend declares the polymorphic target interface codegen drives,
// and the register/profile data model every target's profile is built from.
package backend

import "github.com/rcornwell/lily-cc/internal/ir"

// RegClass is a bitset of the primitive-kind capabilities a physical
// register can hold, tested against an operand_rule's size/kind
// requirements during isel validation.
type RegClass uint16

const (
	RegInt8 RegClass = 1 << iota
	RegInt16
	RegInt32
	RegInt64
	RegInt128
	RegF32
	RegF64
	RegPointer
)

// Register describes one physical register: its ABI name, number, and the
// capability bitset of values it can hold.
type Register struct {
	Name  string
	Num   int
	Class RegClass
}

// Profile is a concrete target configuration: ABI plus enabled extensions,
// carrying the register file and every capability flag isel and the ABI
// expander consult (§6).
type Profile struct {
	Name string

	Registers  []Register
	PointerBit RegClass // which RegClass bit a pointer-sized value needs
	WordBit    RegClass // which RegClass bit a machine-word-sized value needs

	PointerWidth int // bytes
	WordWidth    int // bytes
	MinArith     int // bytes, smallest width arithmetic hardware accepts directly
	MaxArith     int // bytes, largest width arithmetic hardware accepts directly

	HasF32      bool
	HasF64      bool
	HasMul      bool
	HasDiv      bool
	HasRem      bool
	HasVarShift bool

	// ArgGPRs/ArgFPRs name the registers (in order) the ABI expander
	// allocates to scalar integer/pointer and float arguments respectively.
	ArgGPRs []Register
	ArgFPRs []Register

	// ReturnGPRs/ReturnFPRs name the registers a small-struct or scalar
	// return value is written into, in order.
	ReturnGPRs []Register
	ReturnFPRs []Register

	// CallerSaved lists every register a call clobbers, used to build the
	// CLOBBER instruction marker the ABI expander emits at call sites.
	CallerSaved []Register
}

// SizeClass returns the RegClass bit an integer value of the given byte
// size needs, or 0 if no integer register class covers that size.
func SizeClass(size int) RegClass {
	switch {
	case size <= 1:
		return RegInt8
	case size <= 2:
		return RegInt16
	case size <= 4:
		return RegInt32
	case size <= 8:
		return RegInt64
	case size <= 16:
		return RegInt128
	default:
		return 0
	}
}

// PrimClass returns the RegClass bit(s) a value of the given primitive
// needs to be held in a register.
func PrimClass(p ir.Prim) RegClass {
	switch {
	case p == ir.F32:
		return RegF32
	case p == ir.F64:
		return RegF64
	default:
		return SizeClass(p.Size())
	}
}

// Target is the polymorphic backend interface every machine target
// implements (§6): profile creation, codegen initialization, optional isel
// hooks, and ABI expansion. Instruction selection itself is not a method
// here: internal/codegen.Run performs it from the candidate and flow tables
// it is handed.
type Target interface {
	// CreateProfile builds the concrete Profile for a named ABI variant
	// (e.g. "lp64d" for RISC-V), returning an error for an unrecognized
	// name.
	CreateProfile(abi string) (*Profile, error)

	// InitCodegen prepares any per-compilation state the target needs
	// before the driver starts walking f (e.g. building the candidate
	// tree once per profile).
	InitCodegen(p *Profile)

	// PreISelPass and PostISelPass are optional hooks run immediately
	// before and after step 5 of the driver; a target with nothing to do
	// returns without modifying f.
	PreISelPass(p *Profile, f *ir.Func)
	PostISelPass(p *Profile, f *ir.Func)

	// XabiEntry, XabiCall, and XabiReturn expand the calling convention
	// at function entry, call sites, and return instructions (§4.7).
	XabiEntry(p *Profile, f *ir.Func)
	XabiCall(p *Profile, f *ir.Func, call *ir.Insn)
	XabiReturn(p *Profile, f *ir.Func, ret *ir.Insn)
}
