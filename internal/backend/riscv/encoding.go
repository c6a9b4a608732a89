/*
 * lily-cc - RISC-V instruction encodings
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on
 * _examples/original_source/src/compiler/back/riscv/rv_instructions.h's
 * rv_opcode_t/rv_enc_type_t/rv_encoding_t: the "encoding cookie" attached to
 * every instruction prototype there (major opcode, encoding type, funct3/
 * funct7/funct12) becomes the Encoding table below, keyed by the same
 * mnemonics proto.go registers. funct3/funct7 values are the RV32I/RV64I/M
 * base ISA's standard encoding, not invented.
 */

package riscv

// Opcode names a RISC-V major opcode (the low 7 bits of every 32-bit
// instruction, always ending in 0b11 for a non-compressed instruction). The
// constants below enumerate the major opcodes; their values are not the
// encoded bit patterns.
type Opcode uint8

const (
	OpLoad Opcode = iota
	OpLoadFP
	OpMiscMem
	OpImm
	OpAUIPC
	OpImm32
	OpStore
	OpStoreFP
	OpAMO
	OpOp
	OpLUI
	OpOp32
	OpBranch
	OpJALR
	OpJAL
	OpSystem
)

// EncType is the instruction-layout family (§rv_enc_type_t), including the
// assembler pseudo-forms li/ret/j/jr that never appear as their own major
// opcode.
type EncType uint8

const (
	EncR EncType = iota
	EncI
	EncS
	EncB
	EncU
	EncJ
	EncBits
	EncPseudoLI
	EncPseudoRet
	EncPseudoJ
	EncPseudoJR
)

// Encoding is one instruction's encoding cookie: which major opcode and
// layout it uses, and the funct3/funct7/funct12 bits that select it within
// that opcode.
type Encoding struct {
	Opcode  Opcode
	Enc     EncType
	Funct3  uint8
	Funct7  uint8
	Funct12 uint16
}

// Encodings maps a prototype's mnemonic (as registered in proto.go) to its
// RISC-V encoding cookie.
var Encodings = map[string]Encoding{
	"add":  {Opcode: OpOp, Enc: EncR, Funct3: 0b000, Funct7: 0b0000000},
	"addi": {Opcode: OpImm, Enc: EncI, Funct3: 0b000},
	"sub":  {Opcode: OpOp, Enc: EncR, Funct3: 0b000, Funct7: 0b0100000},
	"and":  {Opcode: OpOp, Enc: EncR, Funct3: 0b111, Funct7: 0b0000000},
	"andi": {Opcode: OpImm, Enc: EncI, Funct3: 0b111},
	"or":   {Opcode: OpOp, Enc: EncR, Funct3: 0b110, Funct7: 0b0000000},
	"ori":  {Opcode: OpImm, Enc: EncI, Funct3: 0b110},
	"xor":  {Opcode: OpOp, Enc: EncR, Funct3: 0b100, Funct7: 0b0000000},
	"xori": {Opcode: OpImm, Enc: EncI, Funct3: 0b100},
	"sll":  {Opcode: OpOp, Enc: EncR, Funct3: 0b001, Funct7: 0b0000000},
	"slli": {Opcode: OpImm, Enc: EncI, Funct3: 0b001, Funct7: 0b0000000},
	"srl":  {Opcode: OpOp, Enc: EncR, Funct3: 0b101, Funct7: 0b0000000},
	"srli": {Opcode: OpImm, Enc: EncI, Funct3: 0b101, Funct7: 0b0000000},
	"slt":  {Opcode: OpOp, Enc: EncR, Funct3: 0b010, Funct7: 0b0000000},
	"slti": {Opcode: OpImm, Enc: EncI, Funct3: 0b010},
	"mul":  {Opcode: OpOp, Enc: EncR, Funct3: 0b000, Funct7: 0b0000001},
	"div":  {Opcode: OpOp, Enc: EncR, Funct3: 0b100, Funct7: 0b0000001},
	"rem":  {Opcode: OpOp, Enc: EncR, Funct3: 0b110, Funct7: 0b0000001},

	"neg":  {Opcode: OpOp, Enc: EncR, Funct3: 0b000, Funct7: 0b0100000}, // sub rd, x0, rs
	"mv":   {Opcode: OpImm, Enc: EncI, Funct3: 0b000},                  // addi rd, rs, 0
	"snez": {Opcode: OpOp, Enc: EncR, Funct3: 0b011, Funct7: 0b0000000}, // sltu rd, x0, rs
	"seqz": {Opcode: OpImm, Enc: EncI, Funct3: 0b011},                  // sltiu rd, rs, 1

	"li": {Enc: EncPseudoLI},

	"lb": {Opcode: OpLoad, Enc: EncI, Funct3: 0b000},
	"lh": {Opcode: OpLoad, Enc: EncI, Funct3: 0b001},
	"lw": {Opcode: OpLoad, Enc: EncI, Funct3: 0b010},
	"ld": {Opcode: OpLoad, Enc: EncI, Funct3: 0b011},
	"sb": {Opcode: OpStore, Enc: EncS, Funct3: 0b000},
	"sh": {Opcode: OpStore, Enc: EncS, Funct3: 0b001},
	"sw": {Opcode: OpStore, Enc: EncS, Funct3: 0b010},
	"sd": {Opcode: OpStore, Enc: EncS, Funct3: 0b011},

	"beq": {Opcode: OpBranch, Enc: EncB, Funct3: 0b000},
	"bne": {Opcode: OpBranch, Enc: EncB, Funct3: 0b001},
	"blt": {Opcode: OpBranch, Enc: EncB, Funct3: 0b100},
	"bge": {Opcode: OpBranch, Enc: EncB, Funct3: 0b101},

	// bnez rs, offset is the assembler's bne rs, x0, offset: flowproto.go's
	// BRANCH prototype always tests its one bool operand against zero
	// rather than fusing a comparison in, so it never needs the two-
	// register beq/bne/blt/bge forms above.
	"bnez": {Opcode: OpBranch, Enc: EncB, Funct3: 0b001},

	"ret": {Opcode: OpJALR, Enc: EncPseudoRet},
	"j":   {Opcode: OpJAL, Enc: EncPseudoJ},
	"jr":  {Opcode: OpJALR, Enc: EncPseudoJR},
	"jal": {Opcode: OpJAL, Enc: EncJ},
	// jalr rd, rs, 0 is also how an indirect call is made; flowproto.go's
	// CALL prototype never needs the "jr" pseudo-form (a tail call through
	// a function pointer), so this is the only consumer of OpJALR/EncI.
	"jalr": {Opcode: OpJALR, Enc: EncI, Funct3: 0b000},

	"fadd.s": {Opcode: OpOp, Enc: EncR, Funct7: 0b0000000},
	"fsub.s": {Opcode: OpOp, Enc: EncR, Funct7: 0b0000100},
	"fmul.s": {Opcode: OpOp, Enc: EncR, Funct7: 0b0001000},
	"fdiv.s": {Opcode: OpOp, Enc: EncR, Funct7: 0b0001100},
	"fadd.d": {Opcode: OpOp, Enc: EncR, Funct7: 0b0000001},
	"fsub.d": {Opcode: OpOp, Enc: EncR, Funct7: 0b0000101},
	"fmul.d": {Opcode: OpOp, Enc: EncR, Funct7: 0b0001001},
	"fdiv.d": {Opcode: OpOp, Enc: EncR, Funct7: 0b0001101},
}
