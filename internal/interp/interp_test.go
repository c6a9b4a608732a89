/*
 * lily-cc - interp tests
 *
 * Copyright 2024, Richard Cornwell
 */

package interp

import (
	"testing"

	"github.com/rcornwell/lily-cc/internal/ir"
)

func TestTrimSignExtends(t *testing.T) {
	got := Trim(ir.Const{Prim: ir.S8, Lo: 0xff})
	if int64(got.Lo) != -1 {
		t.Fatalf("trim(s8, 0xff) = %d, want -1", int64(got.Lo))
	}
	if got.Hi != ^uint64(0) {
		t.Fatalf("trim(s8, 0xff).Hi = %#x, want all-ones", got.Hi)
	}
}

func TestTrimUnsignedMasks(t *testing.T) {
	got := Trim(ir.Const{Prim: ir.U8, Lo: 0x1ff})
	if got.Lo != 0xff {
		t.Fatalf("trim(u8, 0x1ff) = %#x, want 0xff", got.Lo)
	}
}

func TestCalc2AddOverflowWraps(t *testing.T) {
	lhs := ir.U64Const(ir.U8, 0xff)
	rhs := ir.U64Const(ir.U8, 1)
	got := Calc2(ir.OpAdd, lhs, rhs)
	if got.Lo != 0 {
		t.Fatalf("0xff + 1 (u8) = %#x, want 0 (wrap)", got.Lo)
	}
}

func TestCalc2SignedDivTruncatesTowardZero(t *testing.T) {
	lhs := Trim(ir.U64Const(ir.S32, uint64(uint32(int32(-7)))))
	rhs := ir.U64Const(ir.S32, 2)
	got := Calc2(ir.OpDiv, lhs, rhs)
	if int32(uint32(got.Lo)) != -3 {
		t.Fatalf("-7 / 2 (s32) = %d, want -3", int32(uint32(got.Lo)))
	}
}

func TestCalc2UnsignedRemByPowerOfTwo(t *testing.T) {
	lhs := ir.U64Const(ir.U32, 13)
	rhs := ir.U64Const(ir.U32, 8)
	got := Calc2(ir.OpRem, lhs, rhs)
	if got.Lo != 5 {
		t.Fatalf("13 %% 8 (u32) = %d, want 5", got.Lo)
	}
}

func TestCalc1NegFloat(t *testing.T) {
	got := Calc1(ir.OpNeg, ir.F64Const(2.5))
	if got.FVal != -2.5 {
		t.Fatalf("neg(2.5) = %v, want -2.5", got.FVal)
	}
}

func TestCalc1SnezSeqz(t *testing.T) {
	zero := ir.U64Const(ir.S32, 0)
	nonzero := ir.U64Const(ir.S32, 5)
	if Calc1(ir.OpSeqz, zero).Lo != 1 {
		t.Fatalf("seqz(0) should be true")
	}
	if Calc1(ir.OpSnez, zero).Lo != 0 {
		t.Fatalf("snez(0) should be false")
	}
	if Calc1(ir.OpSnez, nonzero).Lo != 1 {
		t.Fatalf("snez(5) should be true")
	}
}

func TestCastIntToFloat(t *testing.T) {
	got := Cast(ir.F64, ir.U64Const(ir.S32, uint64(uint32(int32(-4)))))
	if got.FVal != -4 {
		t.Fatalf("cast(s32 -4 -> f64) = %v, want -4", got.FVal)
	}
}

func TestTrimIsIdempotent(t *testing.T) {
	c := ir.Const{Prim: ir.S8, Lo: 0xff}
	once := Trim(c)
	twice := Trim(once)
	if once != twice {
		t.Fatalf("Trim(Trim(c)) = %+v, want Trim(c) = %+v", twice, once)
	}
}

func TestCastToSamePrimIsIdempotent(t *testing.T) {
	c := ir.U64Const(ir.S32, uint64(uint32(int32(-4))))
	once := Cast(ir.S32, c)
	twice := Cast(ir.S32, once)
	if once != twice {
		t.Fatalf("Cast(S32, Cast(S32, c)) = %+v, want Cast(S32, c) = %+v", twice, once)
	}
}

func TestU128Arithmetic(t *testing.T) {
	a := NewU128(0xffffffffffffffff, 0)
	b := NewU128(1, 0)
	sum := a.Add(b)
	if sum.Lo != 0 || sum.Hi != 1 {
		t.Fatalf("0xffffffffffffffff + 1 = %#x:%#x, want carry into Hi", sum.Hi, sum.Lo)
	}
}

func TestU128DivMod(t *testing.T) {
	a := NewU128(100, 0)
	b := NewU128(7, 0)
	q, r := a.DivModUnsigned(b)
	if q.Lo != 14 || r.Lo != 2 {
		t.Fatalf("100 / 7 = %d rem %d, want 14 rem 2", q.Lo, r.Lo)
	}
}
