/*
 * lily-cc - RISC-V ABI register glue
 *
 * Copyright 2024, Richard Cornwell
 *
 * Stands in for the original's IR_OPERAND_REG(regno) magic operand (see
 * abi.go's header comment): a Machine instruction naming a fixed physical
 * register, used only by the ABI expander to read an incoming argument out
 * of its register or write an outgoing argument/return value into one.
 */

package riscv

import (
	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// RegRead is a Machine prototype meaning "dest = contents of Reg", used at
// function entry to bind an incoming argument register to its IR variable.
type RegRead struct {
	Reg backend.Register
}

func (r RegRead) ProtoName() string { return "regread:" + r.Reg.Name }

// RegWrite is a Machine prototype meaning "write MOperands[0] into Reg",
// used at call sites and returns to place an outgoing value into its ABI
// register.
type RegWrite struct {
	Reg backend.Register
}

func (r RegWrite) ProtoName() string { return "regwrite:" + r.Reg.Name }

// emitRegRead appends a RegRead machine instruction assigning dest from
// reg, immediately before cs.at.
func (cs *ccState) emitRegRead(dest *ir.Var, reg backend.Register) {
	cs.emit(&ir.Insn{Kind: ir.KindMachine, Dest: dest, Proto: RegRead{Reg: reg}})
}

// emitRegWrite appends a RegWrite machine instruction copying val into reg.
func (cs *ccState) emitRegWrite(reg backend.Register, val ir.Operand) {
	cs.emit(&ir.Insn{Kind: ir.KindMachine, Proto: RegWrite{Reg: reg}, MOperands: []ir.Operand{val}})
}
