/*
 * lily-cc - match tree and instruction prototype declarations
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on
 * _examples/original_source/src/compiler/common/codegen/cand_tree.h's
 * EXPR_TREE node shapes and operand_rule bitsets (§4.6). Covers the four
 * shapes an expression substitution tree needs: a placeholder operand, an
 * exact-value constant, and unary/binary expression nodes. The original's
 * FLOW and MEM_ACCESS tree nodes (control flow, loads/stores, calls,
 * memcpy, clobber markers) are matched by flowsel.go's separate, much
 * smaller kind-keyed table instead of being folded into this model - see
 * its header comment.
 */

package codegen

import "github.com/rcornwell/lily-cc/internal/ir"

// TreeKind tags one node of a match tree.
type TreeKind uint8

const (
	TreeOperand TreeKind = iota // placeholder: binds to whatever IR operand sits here
	TreeConst                    // literal: only matches a constant equal to ConstVal
	TreeUnary                     // matches an Expr1 instruction
	TreeBinary                     // matches an Expr2 instruction
)

// OperandRule validates a bound operand the way §4.6 describes: storage
// class, primitive kind, size, and (for immediates) bit width.
type OperandRule struct {
	AllowReg bool
	AllowMem bool
	AllowImm bool

	Signed   bool
	Unsigned bool
	Float    bool
	Bool     bool

	Sizes    uint8 // bitset; bit i sits at sizeBitFor(1<<i)
	SizePtr  bool  // overrides Sizes: must equal the profile's pointer width
	SizeWord bool  // overrides Sizes: must equal the profile's word width

	ConstBits     int  // 0 = unlimited; else max immediate bit width
	ConstUnsigned bool // "uint" flag: if unset, an unsigned constant counts one fewer bit
}

// sizeBitFor maps a byte size to its bit in OperandRule.Sizes.
func sizeBitFor(size int) uint8 {
	switch size {
	case 1:
		return 1 << 0
	case 2:
		return 1 << 1
	case 4:
		return 1 << 2
	case 8:
		return 1 << 3
	case 16:
		return 1 << 4
	default:
		return 0
	}
}

// SizeBits ORs together the bits for the given byte sizes, for use building
// an OperandRule.Sizes field.
func SizeBits(sizes ...int) uint8 {
	var b uint8
	for _, s := range sizes {
		b |= sizeBitFor(s)
	}
	return b
}

// MatchNode is one node of a prototype's declarative match tree.
type MatchNode struct {
	Kind TreeKind

	// TreeOperand, TreeConst: placeholder index a binding is recorded
	// under, fetched back out by an InsnProto's Emit function.
	Placeholder int
	Rule        OperandRule // TreeOperand only

	ConstVal ir.Const // TreeConst only

	Un       ir.UnOp  // TreeUnary
	Bin      ir.BinOp // TreeBinary
	Operands []*MatchNode
}

// Operand builds a placeholder leaf.
func Operand(placeholder int, rule OperandRule) *MatchNode {
	return &MatchNode{Kind: TreeOperand, Placeholder: placeholder, Rule: rule}
}

// ConstLiteral builds a leaf that only matches an operand equal to c,
// binding the matched operand under placeholder for Emit to retrieve.
func ConstLiteral(placeholder int, c ir.Const) *MatchNode {
	return &MatchNode{Kind: TreeConst, Placeholder: placeholder, ConstVal: c}
}

// Unary builds an Expr1 match node.
func Unary(op ir.UnOp, src *MatchNode) *MatchNode {
	return &MatchNode{Kind: TreeUnary, Un: op, Operands: []*MatchNode{src}}
}

// Binary builds an Expr2 match node.
func Binary(op ir.BinOp, lhs, rhs *MatchNode) *MatchNode {
	return &MatchNode{Kind: TreeBinary, Bin: op, Operands: []*MatchNode{lhs, rhs}}
}

// Binding is one placeholder's matched operand plus the rule it was
// validated against (zero Rule for a TreeConst leaf, which isel never
// needs to register-promote).
type Binding struct {
	Op   ir.Operand
	Rule OperandRule
}

// EmitFunc builds the substitution tree's instructions into b, producing
// the final machine instruction that assigns dest. get retrieves the bound
// operand for a placeholder index, promoting a constant into a register
// first if its rule demands it (Builder.Get handles that; Emit funcs should
// call get rather than read bindings directly).
type EmitFunc func(b *Builder, dest *ir.Var, get func(placeholder int) ir.Operand)

// InsnProto is one target machine-instruction prototype: the IR shape it
// covers (Match), the rule its own result must satisfy when it is itself
// consumed as an operand one level up (DestRule), and how to materialize it
// (Emit).
type InsnProto struct {
	Mnemonic string
	Match    *MatchNode
	DestRule OperandRule
	Emit     EmitFunc
}
