/*
 * lily-cc - library-call softening
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on
 * _examples/original_source/src/compiler/common/codegen/codegen.c's
 * soften_expr pass and the `__lily_<op>_<prim>` symbol grammar of
 * spec.md §6: an EXPR1/EXPR2 instruction the target profile cannot do in
 * hardware is replaced with a direct call to a runtime support symbol,
 * step 2 of the driver (§4.5).
 */

package codegen

import (
	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/ir"
)

var binOpSymbol = map[ir.BinOp]string{
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul",
	ir.OpDiv: "div", ir.OpRem: "rem", ir.OpShr: "shr", ir.OpShl: "shl",
}

// softenLibraryCalls replaces every EXPR1/EXPR2 instruction the profile
// cannot execute in hardware with a call to __lily_<op>_<prim>.
func softenLibraryCalls(p *backend.Profile, f *ir.Func) {
	for _, c := range f.Blocks {
		for _, in := range append([]*ir.Insn(nil), c.Insns...) {
			switch in.Kind {
			case ir.KindExpr1:
				softenUnary(p, c, in)
			case ir.KindExpr2:
				softenBinary(p, c, in)
			}
		}
	}
}

func needsHWFloat(p *backend.Profile, prim ir.Prim) bool {
	switch prim {
	case ir.F32:
		return !p.HasF32
	case ir.F64:
		return !p.HasF64
	default:
		return false
	}
}

func softenUnary(p *backend.Profile, c *ir.Code, in *ir.Insn) {
	if in.Un != ir.OpNeg || !needsHWFloat(p, in.Dest.Prim) {
		return
	}
	sym := "__lily_neg_" + in.Dest.Prim.String()
	call := &ir.Insn{
		Kind: ir.KindCall, Dest: in.Dest, CallKindTag: ir.CallDirect,
		CallSym: sym, CallArgs: []ir.Operand{in.Src},
		CallReturn: ir.ReturnDesc{Kind: ir.RetPrim, Prim: in.Dest.Prim},
	}
	c.InsertBefore(in, call)
	c.Delete(in)
}

func softenBinary(p *backend.Profile, c *ir.Code, in *ir.Insn) {
	prim := in.Dest.Prim
	soften := needsHWFloat(p, prim)
	switch in.Bin {
	case ir.OpMul:
		soften = soften || !p.HasMul
	case ir.OpDiv:
		soften = soften || !p.HasDiv
	case ir.OpRem:
		soften = soften || !p.HasRem
	case ir.OpShl, ir.OpShr:
		soften = soften || (!in.RHS.IsConst() && !p.HasVarShift)
	}
	sym, ok := binOpSymbol[in.Bin]
	if !soften || !ok {
		return
	}

	rhs := in.RHS
	if (in.Bin == ir.OpShl || in.Bin == ir.OpShr) && !rhs.IsConst() {
		cnt := c.Func.NewVar("", ir.U8)
		c.InsertBefore(in, &ir.Insn{Kind: ir.KindExpr1, Dest: cnt, Un: ir.OpMov, Src: rhs})
		rhs = ir.VarOperand(cnt)
	}

	symName := "__lily_" + sym + "_" + prim.String()
	call := &ir.Insn{
		Kind: ir.KindCall, Dest: in.Dest, CallKindTag: ir.CallDirect,
		CallSym: symName, CallArgs: []ir.Operand{in.LHS, rhs},
		CallReturn: ir.ReturnDesc{Kind: ir.RetPrim, Prim: prim},
	}
	c.InsertBefore(in, call)
	c.Delete(in)
}
