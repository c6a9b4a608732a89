/*
 * lily-cc - RISC-V instruction prototype table
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on _examples/original_source/src/compiler/back/riscv/rv_isel.c's
 * per-opcode match/emit table and rv_instructions.c's mnemonic/operand
 * shapes, expressed as codegen.InsnProto match trees (§4.6). Covers the
 * register-register and register-immediate forms of every arithmetic,
 * logical, shift, and comparison op the IR can emit. LOAD/STORE/CALL/
 * JUMP/BRANCH/RETURN and the rest of the non-expression instruction kinds
 * are registered as codegen.FlowProtos instead (flowproto.go) - addressing-
 * mode fusion into those is still out of scope (a LOAD/STORE's own operand
 * never feeds another instruction's match tree here), but the instructions
 * themselves are no longer exempt from isel.
 */

package riscv

import (
	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/codegen"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// regRule accepts any register-width integer operand the profile's XLEN
// can hold.
func regRule(wordBytes int) codegen.OperandRule {
	return codegen.OperandRule{
		AllowReg: true, Signed: true, Unsigned: true,
		Sizes: codegen.SizeBits(1, 2, 4, wordBytes),
	}
}

// immRule accepts a register or a 12-bit signed I-type immediate, the
// RISC-V encoding's universal immediate width for addi/slti/andi/ori/xori.
func immRule(wordBytes int) codegen.OperandRule {
	return codegen.OperandRule{
		AllowReg: true, AllowImm: true, Signed: true, Unsigned: true,
		Sizes: codegen.SizeBits(1, 2, 4, wordBytes), ConstBits: 12,
	}
}

// shamtRule accepts a register or a 5/6-bit shift-amount immediate (6 bits
// once XLEN=64 needs to express a shift of up to 63).
func shamtRule(wordBytes int) codegen.OperandRule {
	bits := 5
	if wordBytes == 8 {
		bits = 6
	}
	return codegen.OperandRule{
		AllowReg: true, AllowImm: true, Unsigned: true,
		Sizes: codegen.SizeBits(1, 2, 4, wordBytes), ConstBits: bits, ConstUnsigned: true,
	}
}

func floatRule(size int) codegen.OperandRule {
	return codegen.OperandRule{AllowReg: true, Float: true, Sizes: codegen.SizeBits(size)}
}

func regReg(mnemonic string, op ir.BinOp, rule codegen.OperandRule) *codegen.InsnProto {
	return &codegen.InsnProto{
		Mnemonic: mnemonic,
		Match:    codegen.Binary(op, codegen.Operand(0, rule), codegen.Operand(1, rule)),
		DestRule: rule,
		Emit: func(b *codegen.Builder, dest *ir.Var, get func(int) ir.Operand) {
			b.Emit(dest, mnemonic, get(0), get(1))
		},
	}
}

func regImm(mnemonic string, op ir.BinOp, reg, imm codegen.OperandRule) *codegen.InsnProto {
	return &codegen.InsnProto{
		Mnemonic: mnemonic,
		Match:    codegen.Binary(op, codegen.Operand(0, reg), codegen.Operand(1, imm)),
		DestRule: reg,
		Emit: func(b *codegen.Builder, dest *ir.Var, get func(int) ir.Operand) {
			b.Emit(dest, mnemonic, get(0), get(1))
		},
	}
}

func unary(mnemonic string, op ir.UnOp, rule codegen.OperandRule) *codegen.InsnProto {
	return &codegen.InsnProto{
		Mnemonic: mnemonic,
		Match:    codegen.Unary(op, codegen.Operand(0, rule)),
		DestRule: rule,
		Emit: func(b *codegen.Builder, dest *ir.Var, get func(int) ir.Operand) {
			b.Emit(dest, mnemonic, get(0))
		},
	}
}

// InsnProtos builds the prototype table a profile's candidate tree is
// generated from (Target.InitCodegen calls codegen.Generate(InsnProtos(p))
// exactly once).
func InsnProtos(p *backend.Profile) []*codegen.InsnProto {
	w := p.WordWidth
	reg := regRule(w)
	imm := immRule(w)
	sh := shamtRule(w)

	protos := []*codegen.InsnProto{
		regReg("add", ir.OpAdd, reg),
		regImm("addi", ir.OpAdd, reg, imm),
		regReg("sub", ir.OpSub, reg),
		regReg("and", ir.OpBand, reg),
		regImm("andi", ir.OpBand, reg, imm),
		regReg("or", ir.OpBor, reg),
		regImm("ori", ir.OpBor, reg, imm),
		regReg("xor", ir.OpBxor, reg),
		regImm("xori", ir.OpBxor, reg, imm),
		regReg("sll", ir.OpShl, reg),
		regImm("slli", ir.OpShl, reg, sh),
		regReg("srl", ir.OpShr, reg),
		regImm("srli", ir.OpShr, reg, sh),
		regReg("slt", ir.OpSlt, reg),
		regImm("slti", ir.OpSlt, reg, imm),
		unary("neg", ir.OpNeg, reg),
		unary("mv", ir.OpMov, reg),
		unary("snez", ir.OpSnez, reg),
		unary("seqz", ir.OpSeqz, reg),
	}

	if p.HasMul {
		protos = append(protos,
			regReg("mul", ir.OpMul, reg),
			regReg("div", ir.OpDiv, reg),
			regReg("rem", ir.OpRem, reg),
		)
	}

	if p.HasF32 {
		f := floatRule(4)
		protos = append(protos,
			regReg("fadd.s", ir.OpAdd, f),
			regReg("fsub.s", ir.OpSub, f),
			regReg("fmul.s", ir.OpMul, f),
			regReg("fdiv.s", ir.OpDiv, f),
		)
	}
	if p.HasF64 {
		f := floatRule(8)
		protos = append(protos,
			regReg("fadd.d", ir.OpAdd, f),
			regReg("fsub.d", ir.OpSub, f),
			regReg("fmul.d", ir.OpMul, f),
			regReg("fdiv.d", ir.OpDiv, f),
		)
	}

	return protos
}
