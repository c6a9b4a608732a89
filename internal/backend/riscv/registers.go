/*
 * lily-cc - RISC-V register file
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on spec.md §6's RISC-V register file description and
 * _examples/original_source/src/compiler/back/riscv/rv_abi.c's register
 * numbering convention (GPR 10+n for argument n, FPR offset 32+10+n).
 * Named the way emu/opcodemap/opcodemap.go enumerates the S/370's general
 * registers: one table, comment per entry, no magic numbers scattered
 * through the rest of the package.
 */

package riscv

import "github.com/rcornwell/lily-cc/internal/backend"

// IntRegs is the 32-entry integer register file with the standard ABI
// names.
var IntRegs = [32]backend.Register{
	{Name: "zero", Num: 0, Class: allIntClasses},
	{Name: "ra", Num: 1, Class: allIntClasses},
	{Name: "sp", Num: 2, Class: allIntClasses | backend.RegPointer},
	{Name: "gp", Num: 3, Class: allIntClasses | backend.RegPointer},
	{Name: "tp", Num: 4, Class: allIntClasses | backend.RegPointer},
	{Name: "t0", Num: 5, Class: allIntClasses},
	{Name: "t1", Num: 6, Class: allIntClasses},
	{Name: "t2", Num: 7, Class: allIntClasses},
	{Name: "s0", Num: 8, Class: allIntClasses | backend.RegPointer}, // aka fp
	{Name: "s1", Num: 9, Class: allIntClasses},
	{Name: "a0", Num: 10, Class: allIntClasses | backend.RegPointer},
	{Name: "a1", Num: 11, Class: allIntClasses | backend.RegPointer},
	{Name: "a2", Num: 12, Class: allIntClasses | backend.RegPointer},
	{Name: "a3", Num: 13, Class: allIntClasses | backend.RegPointer},
	{Name: "a4", Num: 14, Class: allIntClasses | backend.RegPointer},
	{Name: "a5", Num: 15, Class: allIntClasses | backend.RegPointer},
	{Name: "a6", Num: 16, Class: allIntClasses | backend.RegPointer},
	{Name: "a7", Num: 17, Class: allIntClasses | backend.RegPointer},
	{Name: "s2", Num: 18, Class: allIntClasses},
	{Name: "s3", Num: 19, Class: allIntClasses},
	{Name: "s4", Num: 20, Class: allIntClasses},
	{Name: "s5", Num: 21, Class: allIntClasses},
	{Name: "s6", Num: 22, Class: allIntClasses},
	{Name: "s7", Num: 23, Class: allIntClasses},
	{Name: "s8", Num: 24, Class: allIntClasses},
	{Name: "s9", Num: 25, Class: allIntClasses},
	{Name: "s10", Num: 26, Class: allIntClasses},
	{Name: "s11", Num: 27, Class: allIntClasses},
	{Name: "t3", Num: 28, Class: allIntClasses},
	{Name: "t4", Num: 29, Class: allIntClasses},
	{Name: "t5", Num: 30, Class: allIntClasses},
	{Name: "t6", Num: 31, Class: allIntClasses},
}

const allIntClasses = backend.RegInt8 | backend.RegInt16 | backend.RegInt32 | backend.RegInt64

// FloatRegs is the 32-entry float register file, present only when an F or
// D extension is enabled.
var FloatRegs = [32]backend.Register{
	{Name: "ft0", Num: 0, Class: bothFloatClasses}, {Name: "ft1", Num: 1, Class: bothFloatClasses},
	{Name: "ft2", Num: 2, Class: bothFloatClasses}, {Name: "ft3", Num: 3, Class: bothFloatClasses},
	{Name: "ft4", Num: 4, Class: bothFloatClasses}, {Name: "ft5", Num: 5, Class: bothFloatClasses},
	{Name: "ft6", Num: 6, Class: bothFloatClasses}, {Name: "ft7", Num: 7, Class: bothFloatClasses},
	{Name: "fs0", Num: 8, Class: bothFloatClasses}, {Name: "fs1", Num: 9, Class: bothFloatClasses},
	{Name: "fa0", Num: 10, Class: bothFloatClasses}, {Name: "fa1", Num: 11, Class: bothFloatClasses},
	{Name: "fa2", Num: 12, Class: bothFloatClasses}, {Name: "fa3", Num: 13, Class: bothFloatClasses},
	{Name: "fa4", Num: 14, Class: bothFloatClasses}, {Name: "fa5", Num: 15, Class: bothFloatClasses},
	{Name: "fa6", Num: 16, Class: bothFloatClasses}, {Name: "fa7", Num: 17, Class: bothFloatClasses},
	{Name: "fs2", Num: 18, Class: bothFloatClasses}, {Name: "fs3", Num: 19, Class: bothFloatClasses},
	{Name: "fs4", Num: 20, Class: bothFloatClasses}, {Name: "fs5", Num: 21, Class: bothFloatClasses},
	{Name: "fs6", Num: 22, Class: bothFloatClasses}, {Name: "fs7", Num: 23, Class: bothFloatClasses},
	{Name: "fs8", Num: 24, Class: bothFloatClasses}, {Name: "fs9", Num: 25, Class: bothFloatClasses},
	{Name: "fs10", Num: 26, Class: bothFloatClasses}, {Name: "fs11", Num: 27, Class: bothFloatClasses},
	{Name: "ft8", Num: 28, Class: bothFloatClasses}, {Name: "ft9", Num: 29, Class: bothFloatClasses},
	{Name: "ft10", Num: 30, Class: bothFloatClasses}, {Name: "ft11", Num: 31, Class: bothFloatClasses},
}

const bothFloatClasses = backend.RegF32 | backend.RegF64

// argGPRsFull/argGPRsRVE/argFPRs/tempGPRs/tempFPRs/saveGPRs name the
// register groups the ABI expander and call-clobber logic consult, by ABI register name rather than raw number
// (rv_abi.c computes these with RV_*_REGS macros; named slices read the
// same here).
var (
	argGPRsFull = []backend.Register{IntRegs[10], IntRegs[11], IntRegs[12], IntRegs[13], IntRegs[14], IntRegs[15], IntRegs[16], IntRegs[17]}
	argGPRsRVE  = []backend.Register{IntRegs[10], IntRegs[11], IntRegs[12], IntRegs[13], IntRegs[14], IntRegs[15]}
	argFPRs     = []backend.Register{FloatRegs[10], FloatRegs[11], FloatRegs[12], FloatRegs[13], FloatRegs[14], FloatRegs[15], FloatRegs[16], FloatRegs[17]}
	tempGPRs    = []backend.Register{IntRegs[5], IntRegs[6], IntRegs[7], IntRegs[28], IntRegs[29], IntRegs[30], IntRegs[31]}
	tempFPRs    = []backend.Register{FloatRegs[0], FloatRegs[1], FloatRegs[2], FloatRegs[3], FloatRegs[4], FloatRegs[5], FloatRegs[6], FloatRegs[7]}
	saveGPRsRVE = []backend.Register{} // RVE has no s2-s11
	saveGPRs    = []backend.Register{IntRegs[18], IntRegs[19], IntRegs[20], IntRegs[21], IntRegs[22], IntRegs[23], IntRegs[24], IntRegs[25], IntRegs[26], IntRegs[27]}
)
