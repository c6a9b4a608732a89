/*
 * lily-cc - isel tests
 *
 * Copyright 2024, Richard Cornwell
 */

package codegen

import (
	"testing"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/ir"
)

func testProfile() *backend.Profile {
	return &backend.Profile{
		PointerWidth: 4, WordWidth: 4,
		HasMul: true, HasDiv: true, HasRem: true, HasVarShift: true,
	}
}

var regRule = OperandRule{AllowReg: true, Signed: true, Unsigned: true, Sizes: SizeBits(4)}
var immRule = OperandRule{AllowReg: true, AllowImm: true, Signed: true, Unsigned: true, ConstBits: 12, Sizes: SizeBits(4)}

func addProto() *InsnProto {
	return &InsnProto{
		Mnemonic: "add",
		Match:    Binary(ir.OpAdd, Operand(0, regRule), Operand(1, regRule)),
		DestRule: regRule,
		Emit: func(b *Builder, dest *ir.Var, get func(int) ir.Operand) {
			b.Emit(dest, "add", get(0), get(1))
		},
	}
}

func addiProto() *InsnProto {
	return &InsnProto{
		Mnemonic: "addi",
		Match:    Binary(ir.OpAdd, Operand(0, regRule), Operand(1, immRule)),
		DestRule: regRule,
		Emit: func(b *Builder, dest *ir.Var, get func(int) ir.Operand) {
			b.Emit(dest, "addi", get(0), get(1))
		},
	}
}

// add3Proto fuses (x+y)+z into one machine instruction, exercising the
// recursive gather/match/materialize path over a nested TreeBinary operand.
func add3Proto() *InsnProto {
	inner := Binary(ir.OpAdd, Operand(0, regRule), Operand(1, regRule))
	return &InsnProto{
		Mnemonic: "add3",
		Match:    Binary(ir.OpAdd, inner, Operand(2, regRule)),
		DestRule: regRule,
		Emit: func(b *Builder, dest *ir.Var, get func(int) ir.Operand) {
			b.Emit(dest, "add3", get(0), get(1), get(2))
		},
	}
}

func TestSelectPrefersImmediateOverRegisterPromotion(t *testing.T) {
	tree := Generate([]*InsnProto{addProto(), addiProto()})
	p := testProfile()

	f := ir.NewFunc("add_const")
	x := f.NewVar("x", ir.U32)
	r := f.NewVar("r", ir.U32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	in := entry.AddExpr2(r, ir.OpAdd, ir.VarOperand(x), ir.ConstOperand(ir.U64Const(ir.U32, 5)))

	proto, bindings, ok := Select(tree, p, in)
	if !ok {
		t.Fatalf("expected a match")
	}
	if proto.Mnemonic != "addi" {
		t.Fatalf("expected addi to win on immediate bonus, got %s", proto.Mnemonic)
	}
	if bindings[1].Op.Con.Lo != 5 {
		t.Fatalf("expected placeholder 1 bound to the constant, got %+v", bindings[1])
	}
}

func TestMaterializeReplacesWithMachineInsn(t *testing.T) {
	tree := Generate([]*InsnProto{addProto(), addiProto()})
	p := testProfile()

	f := ir.NewFunc("add_const")
	x := f.NewVar("x", ir.U32)
	r := f.NewVar("r", ir.U32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}}
	entry := f.NewBlock("entry")
	in := entry.AddExpr2(r, ir.OpAdd, ir.VarOperand(x), ir.ConstOperand(ir.U64Const(ir.U32, 5)))

	proto, bindings, ok := Select(tree, p, in)
	if !ok {
		t.Fatalf("expected a match")
	}
	Materialize(f, in, proto, bindings)

	if len(entry.Insns) != 1 {
		t.Fatalf("expected exactly one machine instruction, got %d", len(entry.Insns))
	}
	out := entry.Insns[0]
	if out.Kind != ir.KindMachine || out.Proto.ProtoName() != "addi" || out.Dest != r {
		t.Fatalf("expected a materialized addi assigning r, got %+v", out)
	}
}

func TestGatherRecursesIntoSameBlockDefinition(t *testing.T) {
	tree := Generate([]*InsnProto{addProto(), add3Proto()})
	p := testProfile()

	f := ir.NewFunc("add3")
	x := f.NewVar("x", ir.U32)
	y := f.NewVar("y", ir.U32)
	z := f.NewVar("z", ir.U32)
	sum := f.NewVar("sum", ir.U32)
	r := f.NewVar("r", ir.U32)
	f.Args = []ir.Arg{{Kind: ir.ArgVar, Var: x}, {Kind: ir.ArgVar, Var: y}, {Kind: ir.ArgVar, Var: z}}
	entry := f.NewBlock("entry")
	entry.AddExpr2(sum, ir.OpAdd, ir.VarOperand(x), ir.VarOperand(y))
	top := entry.AddExpr2(r, ir.OpAdd, ir.VarOperand(sum), ir.VarOperand(z))

	proto, bindings, ok := Select(tree, p, top)
	if !ok {
		t.Fatalf("expected a match")
	}
	if proto.Mnemonic != "add3" {
		t.Fatalf("expected the fused add3 prototype to win, got %s", proto.Mnemonic)
	}

	Materialize(f, top, proto, bindings)
	if len(entry.Insns) != 1 {
		t.Fatalf("expected both the inner add and the outer add to be covered, got %d insns", len(entry.Insns))
	}
	out := entry.Insns[0]
	if out.Proto.ProtoName() != "add3" || out.Dest != r {
		t.Fatalf("expected a materialized add3 assigning r, got %+v", out)
	}
	if len(out.MOperands) != 3 || !operandsEqual(out.MOperands[0], ir.VarOperand(x)) ||
		!operandsEqual(out.MOperands[1], ir.VarOperand(y)) || !operandsEqual(out.MOperands[2], ir.VarOperand(z)) {
		t.Fatalf("expected add3's operands to be x, y, z, got %+v", out.MOperands)
	}
}
