/*
 * lily-cc - IR serialize/parse round-trip tests (R1)
 *
 * Copyright 2024, Richard Cornwell
 */

package ir

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// textShape strips everything the parser doesn't need to reconstruct
// (IDs, arena bookkeeping) so the comparison is over IR semantics, not
// pointer identity.
type textShape struct {
	Prim   Prim
	Bin    BinOp
	Un     UnOp
	Kind   InsnKind
	LoHi   [2]uint64
	Name   string
}

func shapeOf(f *Func) []textShape {
	var out []textShape
	for _, c := range f.Blocks {
		for _, in := range c.Insns {
			s := textShape{Kind: in.Kind}
			switch in.Kind {
			case KindExpr1:
				s.Un = in.Un
				if in.Src.IsConst() {
					s.LoHi = [2]uint64{in.Src.Con.Lo, in.Src.Con.Hi}
					s.Prim = in.Src.Con.Prim
				}
			case KindExpr2:
				s.Bin = in.Bin
			case KindReturn:
				if in.HasRetVal && in.RetVal.IsVar() {
					s.Name = in.RetVal.Var.Name
				}
			}
			out = append(out, s)
		}
	}
	return out
}

func TestSerializeParseRoundTrip(t *testing.T) {
	f := diamond()

	var buf bytes.Buffer
	if err := Serialize(&buf, f); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	got, err := Parse(strings.NewReader(buf.String()), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v\ninput:\n%s", err, buf.String())
	}

	if err := got.CheckInvariants(); err != nil {
		t.Fatalf("parsed function violates invariants: %v", err)
	}

	if diff := cmp.Diff(shapeOf(f), shapeOf(got), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round-tripped IR differs (-want +got):\n%s", diff)
	}

	if len(got.Blocks) != len(f.Blocks) {
		t.Fatalf("block count mismatch: want %d got %d", len(f.Blocks), len(got.Blocks))
	}
	for i, c := range f.Blocks {
		if len(c.Insns) != len(got.Blocks[i].Insns) {
			t.Fatalf("block %s: instruction count mismatch: want %d got %d",
				c.Name, len(c.Insns), len(got.Blocks[i].Insns))
		}
	}
}

func TestSerializeParseFloatConstant(t *testing.T) {
	f := NewFunc("floats")
	v := f.NewVar("v", F64)
	b := f.NewBlock("entry")
	b.AddExpr1(v, OpMov, ConstOperand(F64Const(3.5)))
	b.AddReturn(VarOperand(v), true)

	var buf bytes.Buffer
	if err := Serialize(&buf, f); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Parse(strings.NewReader(buf.String()), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v\ninput:\n%s", err, buf.String())
	}
	mov := got.Blocks[0].Insns[0]
	if !mov.Src.IsConst() || mov.Src.Con.FVal != 3.5 {
		t.Fatalf("expected float constant 3.5 to survive round trip, got %+v", mov.Src)
	}
}
