/*
 * lily-cc - IR primitive kinds
 *
 * Copyright 2024, Richard Cornwell
 */

// Package ir implements the typed SSA intermediate representation: the
// data model of §3 (functions, code blocks, variables, constants,
// operands, instructions, stack frames), the builder that keeps
// assigned-at/used-at/pred/succ in sync as instructions are edited, and
// the textual serializer/parser documented as the IR format.
package ir

import "fmt"

// Prim is one of the thirteen IR primitive kinds.
type Prim uint8

const (
	S8 Prim = iota
	U8
	S16
	U16
	S32
	U32
	S64
	U64
	S128
	U128
	Bool
	F32
	F64
	nPrim
)

var primNames = [nPrim]string{
	S8: "s8", U8: "u8", S16: "s16", U16: "u16",
	S32: "s32", U32: "u32", S64: "s64", U64: "u64",
	S128: "s128", U128: "u128", Bool: "bool", F32: "f32", F64: "f64",
}

// sizes in bytes, indexed by Prim.
var primSizes = [nPrim]int{
	S8: 1, U8: 1, S16: 2, U16: 2,
	S32: 4, U32: 4, S64: 8, U64: 8,
	S128: 16, U128: 16, Bool: 1, F32: 4, F64: 8,
}

func (p Prim) String() string {
	if p >= nPrim {
		return fmt.Sprintf("prim(%d)", uint8(p))
	}
	return primNames[p]
}

// Size returns the primitive's fixed byte size (bool is 1).
func (p Prim) Size() int { return primSizes[p] }

// Bits returns the primitive's bit width.
func (p Prim) Bits() int { return p.Size() * 8 }

// Unsigned reports whether p is an unsigned integer kind. The low bit of
// the Prim enumeration distinguishes unsigned (set) from signed by
// construction, per §3: "the low bit distinguishes unsigned ... from
// signed; this parity is relied on by several passes."
func (p Prim) Unsigned() bool {
	switch p {
	case U8, U16, U32, U64, U128:
		return true
	default:
		return false
	}
}

// Signed reports whether p is a signed integer kind.
func (p Prim) Signed() bool {
	switch p {
	case S8, S16, S32, S64, S128:
		return true
	default:
		return false
	}
}

// Integer reports whether p is a signed or unsigned integer kind.
func (p Prim) Integer() bool { return p.Signed() || p.Unsigned() }

// Float reports whether p is f32 or f64.
func (p Prim) Float() bool { return p == F32 || p == F64 }

// SignedCounterpart returns the signed kind of the same width as an
// unsigned p (used by cast/trim to share sign-extension logic), and vice
// versa. Bool and float kinds return themselves.
func (p Prim) SignedCounterpart() Prim {
	switch p {
	case U8:
		return S8
	case U16:
		return S16
	case U32:
		return S32
	case U64:
		return S64
	case U128:
		return S128
	default:
		return p
	}
}

// ParsePrim looks up a primitive by its textual name (§6).
func ParsePrim(s string) (Prim, bool) {
	for i, n := range primNames {
		if n == s {
			return Prim(i), true
		}
	}
	return 0, false
}

// UnOp enumerates the IR unary operators.
type UnOp uint8

const (
	OpMov UnOp = iota
	OpNeg
	OpBitcast
	OpBneg
	OpSnez
	OpSeqz
	nUnOp
)

var unOpNames = [nUnOp]string{
	OpMov: "mov", OpNeg: "neg", OpBitcast: "bitcast",
	OpBneg: "bneg", OpSnez: "snez", OpSeqz: "seqz",
}

func (o UnOp) String() string { return unOpNames[o] }

// BinOp enumerates the IR binary operators.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpShl
	OpShr
	OpBand
	OpBor
	OpBxor
	OpSeq
	OpSne
	OpSlt
	OpSle
	OpSgt
	OpSge
	nBinOp
)

var binOpNames = [nBinOp]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem",
	OpShl: "shl", OpShr: "shr", OpBand: "band", OpBor: "bor", OpBxor: "bxor",
	OpSeq: "seq", OpSne: "sne", OpSlt: "slt", OpSle: "sle", OpSgt: "sgt", OpSge: "sge",
}

func (o BinOp) String() string { return binOpNames[o] }

// Comparison reports whether o produces a bool result.
func (o BinOp) Comparison() bool {
	switch o {
	case OpSeq, OpSne, OpSlt, OpSle, OpSgt, OpSge:
		return true
	default:
		return false
	}
}

// Commutative reports whether operand order does not affect the result.
func (o BinOp) Commutative() bool {
	switch o {
	case OpAdd, OpMul, OpBand, OpBor, OpBxor, OpSeq, OpSne:
		return true
	default:
		return false
	}
}
