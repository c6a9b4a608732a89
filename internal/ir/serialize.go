/*
 * lily-cc - IR textual serializer
 *
 * Copyright 2024, Richard Cornwell
 */

package ir

import (
	"fmt"
	"io"
	"math"
	"strings"
)

var hexDigits = "0123456789abcdef"

// writeHex appends the hex digits of a two-half 128-bit value to b,
// low-to-high bit order, trimmed to the primitive's nibble width. Adapted
// from the teacher's util/hex formatting helpers (FormatWord/FormatHalf),
// generalized from fixed word/halfword widths to an arbitrary nibble count.
func writeHex(b *strings.Builder, lo, hi uint64, nibbles int) {
	b.WriteString("0x")
	if nibbles > 16 {
		for i := (nibbles - 16) - 1; i >= 0; i-- {
			b.WriteByte(hexDigits[(hi>>(4*uint(i)))&0xf])
		}
		nibbles = 16
	}
	for i := nibbles - 1; i >= 0; i-- {
		b.WriteByte(hexDigits[(lo>>(4*uint(i)))&0xf])
	}
}

// WriteOperand renders an operand per §6's grammar.
func WriteOperand(b *strings.Builder, o Operand) {
	switch o.Kind {
	case OperVar:
		b.WriteByte('%')
		b.WriteString(o.Var.Name)
	case OperConst:
		writeConst(b, o.Con)
	case OperMem:
		writeMemRef(b, o.Mem)
	}
}

func writeConst(b *strings.Builder, c Const) {
	if c.Prim == Bool {
		if c.Lo != 0 {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
		return
	}
	b.WriteString(c.Prim.String())
	b.WriteByte('\'')
	if c.Prim.Float() {
		if c.Prim == F32 {
			bits := math.Float32bits(float32(c.FVal))
			writeHex(b, uint64(bits), 0, 8)
		} else {
			bits := math.Float64bits(c.FVal)
			writeHex(b, bits, 0, 16)
		}
		fmt.Fprintf(b, " /* %v */", c.FVal)
		return
	}
	writeHex(b, c.Lo, c.Hi, c.Prim.Size()*2)
}

func writeMemRef(b *strings.Builder, m *MemRef) {
	b.WriteByte('[')
	switch m.Base {
	case BaseAbs:
		fmt.Fprintf(b, "0x%x", m.AbsAddr)
	case BaseFrame:
		b.WriteString("frame:")
		b.WriteString(m.Frame.Name)
	case BaseVarPtr:
		b.WriteByte('%')
		b.WriteString(m.VarPtr.Name)
	case BaseCodeLabel:
		b.WriteByte('%')
		b.WriteString(m.CodeLabel.Name)
	case BaseSymbol:
		b.WriteString("sym:")
		b.WriteString(m.Symbol)
	}
	if m.Index != nil {
		fmt.Fprintf(b, "+%%%s*%d", m.Index.Name, m.Scale)
	}
	if m.Offset != 0 {
		fmt.Fprintf(b, "%+d", m.Offset)
	}
	b.WriteByte(']')
}

// Serialize writes f in the §6 textual format to w.
func Serialize(w io.Writer, f *Func) error {
	var b strings.Builder
	if f.EnforceSSA {
		b.WriteString("ssa_")
	}
	fmt.Fprintf(&b, "function %s\n", f.Name)
	for _, v := range f.Vars {
		fmt.Fprintf(&b, "    var %%%s %s\n", v.Name, v.Prim)
	}
	for _, a := range f.Args {
		switch a.Kind {
		case ArgVar:
			fmt.Fprintf(&b, "    arg %%%s\n", a.Var.Name)
		case ArgStructFrame:
			fmt.Fprintf(&b, "    arg frame:%s\n", a.Frame.Name)
		case ArgIgnored:
			fmt.Fprintf(&b, "    arg ignore %s\n", a.Prim)
		}
	}
	for _, fr := range f.Frames {
		fmt.Fprintf(&b, "    frame %%%s u64'0x%x u64'0x%x\n", fr.Name, fr.Size, fr.Align)
	}
	for _, c := range f.Blocks {
		fmt.Fprintf(&b, "code %%%s\n", c.Name)
		for _, in := range c.Insns {
			writeInsn(&b, in)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeInsn(b *strings.Builder, in *Insn) {
	b.WriteString("    ")
	switch in.Kind {
	case KindExpr1:
		fmt.Fprintf(b, "%s %%%s, ", in.Un, in.Dest.Name)
		WriteOperand(b, in.Src)
		b.WriteByte('\n')
	case KindExpr2:
		fmt.Fprintf(b, "%s %%%s, ", in.Bin, in.Dest.Name)
		WriteOperand(b, in.LHS)
		b.WriteString(", ")
		WriteOperand(b, in.RHS)
		b.WriteByte('\n')
	case KindCombinator:
		fmt.Fprintf(b, "phi %%%s", in.Dest.Name)
		for _, a := range in.Arms {
			fmt.Fprintf(b, ", %%%s ", a.Pred.Name)
			WriteOperand(b, a.Value)
		}
		b.WriteByte('\n')
	case KindUndefined:
		fmt.Fprintf(b, "undef %%%s\n", in.Dest.Name)
	case KindLoad:
		fmt.Fprintf(b, "load %%%s, ", in.Dest.Name)
		writeMemRef(b, in.Mem)
		b.WriteByte('\n')
	case KindStore:
		b.WriteString("store ")
		WriteOperand(b, in.StoreVal)
		b.WriteString(", ")
		writeMemRef(b, in.Mem)
		b.WriteByte('\n')
	case KindLeaStack:
		fmt.Fprintf(b, "lea_stack %%%s, %%%s\n", in.Dest.Name, in.Frame.Name)
	case KindLeaSymbol:
		fmt.Fprintf(b, "lea_symbol %%%s, %s\n", in.Dest.Name, in.Symbol)
	case KindJump:
		fmt.Fprintf(b, "jump %%%s\n", in.Target.Name)
	case KindBranch:
		b.WriteString("branch ")
		WriteOperand(b, in.Cond)
		fmt.Fprintf(b, ", %%%s\n", in.Target.Name)
	case KindCall:
		if in.Dest != nil {
			fmt.Fprintf(b, "%%%s = ", in.Dest.Name)
		}
		if in.CallKindTag == CallDirect {
			fmt.Fprintf(b, "call %s", in.CallSym)
		} else {
			b.WriteString("call ")
			WriteOperand(b, in.CallPtr)
		}
		for _, a := range in.CallArgs {
			b.WriteString(", ")
			WriteOperand(b, a)
		}
		b.WriteByte('\n')
	case KindReturn:
		b.WriteString("return")
		if in.HasRetVal {
			b.WriteByte(' ')
			WriteOperand(b, in.RetVal)
		}
		b.WriteByte('\n')
	case KindMemcpy:
		b.WriteString("memcpy ")
		writeMemRef(b, in.CopyDst)
		b.WriteString(", ")
		writeMemRef(b, in.CopySrc)
		fmt.Fprintf(b, ", u64'0x%x\n", in.CopyLen)
	case KindClobber:
		b.WriteString("clobber")
		for _, r := range in.ClobberRegs {
			fmt.Fprintf(b, " %d", r)
		}
		b.WriteByte('\n')
	case KindMachine:
		fmt.Fprintf(b, "machine %s", in.Proto.ProtoName())
		if in.Dest != nil {
			fmt.Fprintf(b, " %%%s,", in.Dest.Name)
		}
		for i, o := range in.MOperands {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteByte(' ')
			WriteOperand(b, o)
		}
		b.WriteByte('\n')
	}
}
