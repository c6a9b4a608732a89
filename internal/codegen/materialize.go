/*
 * lily-cc - substitution materialization
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on
 * _examples/original_source/src/compiler/common/codegen/cand_tree.c's
 * cand_tree_isel: the winning substitution is built into fresh machine
 * instructions inserted immediately before the instruction it replaces,
 * then the original instruction and every instruction its match tree
 * covered are deleted, per spec.md §4.6's final paragraph.
 */

package codegen

import "github.com/rcornwell/lily-cc/internal/ir"

// Builder inserts the machine instructions of a winning substitution tree,
// all spliced in immediately before the instruction being replaced.
type Builder struct {
	f     *ir.Func
	block *ir.Code
	at    *ir.Insn
}

// Temp allocates a fresh variable to hold an intermediate substitution
// result.
func (b *Builder) Temp(prim ir.Prim) *ir.Var {
	return b.f.NewVar("", prim)
}

// Emit inserts one machine instruction assigning dest, immediately before
// the instruction being replaced.
func (b *Builder) Emit(dest *ir.Var, mnemonic string, operands ...ir.Operand) *ir.Insn {
	in := &ir.Insn{Kind: ir.KindMachine, Dest: dest, Proto: machineProto{mnemonic}, MOperands: operands}
	return b.block.InsertBefore(b.at, in)
}

type machineProto struct{ name string }

func (m machineProto) ProtoName() string { return m.name }

// Materialize builds proto's substitution tree ahead of in, then deletes in
// and every instruction its match tree covered. Returns the deleted
// instructions so the caller (the codegen driver) can skip them if its own
// walk has not reached them yet.
func Materialize(f *ir.Func, in *ir.Insn, proto *InsnProto, bindings map[int]Binding) []*ir.Insn {
	b := &Builder{f: f, block: in.Parent, at: in}

	get := func(placeholder int) ir.Operand {
		bd := bindings[placeholder]
		if bd.Op.IsConst() && bd.Rule.AllowReg && !bd.Rule.AllowImm {
			tmp := b.Temp(bd.Op.Prim())
			b.Emit(tmp, "li", bd.Op)
			return ir.VarOperand(tmp)
		}
		return bd.Op
	}
	proto.Emit(b, in.Dest, get)

	covered := collectCovered(in, proto.Match)
	for _, c := range covered {
		c.Parent.Delete(c)
	}
	return covered
}

// collectCovered returns in plus every nested instruction proto's match
// tree recursed into (via a same-block, single-assignment defining
// instruction), deepest first and in itself last.
func collectCovered(in *ir.Insn, node *MatchNode) []*ir.Insn {
	var operands []ir.Operand
	switch in.Kind {
	case ir.KindExpr1:
		operands = []ir.Operand{in.Src}
	case ir.KindExpr2:
		operands = []ir.Operand{in.LHS, in.RHS}
	}

	var out []*ir.Insn
	for i, child := range node.Operands {
		if child.Kind == TreeUnary || child.Kind == TreeBinary {
			def := operands[i].Var.AssignedAt()[0]
			out = append(out, collectCovered(def, child)...)
		}
	}
	return append(out, in)
}
