/*
 * lily-cc - constant-folding arithmetic over IR primitives
 *
 * Copyright 2024, Richard Cornwell
 *
 * Trim/Cast/Calc1/Calc2 give the optimizer (const-prop) and the fixture
 * tests a pure-function evaluator over ir.Const, matching the original
 * compiler's interp.c dispatch switch-on-ir_prim_t. u128/s128 go through
 * int128.go; everything <= 64 bits stays on the Lo half.
 */

package interp

import (
	"log/slog"

	"golang.org/x/exp/constraints"

	"github.com/rcornwell/lily-cc/internal/diag"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// Logger receives [BUG] diagnostics for operator/primitive mismatches that
// should never reach this package once the front end and isel have done
// their own type checking.
var Logger *slog.Logger

func bug(code, format string, args ...any) {
	diag.Raise(Logger, code, format, args...)
}

// signExtend widens a trimmed two's-complement value of the given bit
// width to a full-width Go integer. Generic over the Go integer kinds the
// trim table actually needs (int64 for the Lo half, nothing wider since
// the 128-bit case is handled separately by int128.go).
func signExtend[T constraints.Signed](v T, bits int) T {
	shift := 64 - bits
	return (v << shift) >> shift
}

// Trim truncates unused high bits of value per its primitive width,
// sign-extending the Lo half for signed integer kinds (§4.2).
func Trim(value ir.Const) ir.Const {
	switch value.Prim {
	case ir.S128, ir.U128:
		return value
	case ir.Bool:
		if value.Lo != 0 || value.Hi != 0 {
			value.Lo = 1
		} else {
			value.Lo = 0
		}
		value.Hi = 0
		return value
	case ir.F32, ir.F64:
		return value
	}
	bits := value.Prim.Bits()
	if bits >= 64 {
		value.Hi = 0
		return value
	}
	mask := uint64(1)<<uint(bits) - 1
	value.Lo &= mask
	value.Hi = 0
	if value.Prim.Signed() {
		lo := signExtend(int64(value.Lo), bits)
		value.Lo = uint64(lo)
		if lo < 0 {
			value.Hi = ^uint64(0)
		}
	}
	return value
}

// Cast converts value to target following the IR's casting rules: casting
// to bool is "not equal to zero"; casting between float widths widens or
// narrows; casting float<->integer converts numerically; casting between
// integer widths trims/sign-extends (§4.2).
func Cast(target ir.Prim, value ir.Const) ir.Const {
	if target == value.Prim {
		return value
	}
	if target == ir.Bool {
		return Calc1(ir.OpSnez, value)
	}
	if target == ir.F32 {
		if value.Prim == ir.F64 {
			return ir.F32Const(float32(value.FVal))
		}
		return ir.F32Const(intConstToFloat32(value))
	}
	if target == ir.F64 {
		if value.Prim == ir.F32 {
			return ir.F64Const(value.FVal)
		}
		return ir.F64Const(intConstToFloat64(value))
	}
	if value.Prim.Float() {
		return floatConstToInt(target, value)
	}
	value.Prim = target
	return Trim(value)
}

func intConstToFloat64(v ir.Const) float64 {
	v = Trim(v)
	if v.Prim == ir.S128 || v.Prim == ir.U128 {
		u := U128{v.Lo, v.Hi}
		if v.Prim.Signed() && v.Hi&(1<<63) != 0 {
			u = u.Neg()
			return -(float64(u.Hi)*18446744073709551616.0 + float64(u.Lo))
		}
		return float64(u.Hi)*18446744073709551616.0 + float64(u.Lo)
	}
	if v.Prim.Unsigned() {
		return float64(v.Lo)
	}
	return float64(int64(v.Lo))
}

func intConstToFloat32(v ir.Const) float32 { return float32(intConstToFloat64(v)) }

func floatConstToInt(target ir.Prim, v ir.Const) ir.Const {
	f := v.FVal
	if target.Unsigned() {
		return Trim(ir.Const{Prim: target, Lo: uint64(f)})
	}
	return Trim(ir.Const{Prim: target, Lo: uint64(int64(f))})
}

// Calc1 evaluates a unary expression (§4.2). mov is identity; snez/seqz
// test for (in)equality with zero; bneg/neg are defined for every kind
// except the combinations the original flags as a [BUG] (bitwise negation
// of a float, arithmetic negation of a bool).
func Calc1(op ir.UnOp, value ir.Const) ir.Const {
	switch op {
	case ir.OpMov, ir.OpBitcast:
		return value
	case ir.OpSnez, ir.OpSeqz:
		eqz := isZeroConst(value)
		result := eqz
		if op == ir.OpSnez {
			result = !eqz
		}
		return ir.BoolConst(result)
	case ir.OpBneg:
		if value.Prim == ir.Bool {
			return ir.BoolConst(value.Lo == 0)
		}
		if value.Prim.Float() {
			bug("E-PRIM-BAD", "cannot bitwise-negate a %s constant", value.Prim)
		}
		value.Lo = ^value.Lo
		value.Hi = ^value.Hi
		return Trim(value)
	case ir.OpNeg:
		if value.Prim == ir.Bool {
			bug("E-PRIM-BAD", "cannot arithmetically negate a bool constant")
		}
		if value.Prim == ir.F64 {
			return ir.F64Const(-value.FVal)
		}
		if value.Prim == ir.F32 {
			return ir.F32Const(float32(-value.FVal))
		}
		u := U128{value.Lo, value.Hi}.Neg()
		value.Lo, value.Hi = u.Lo, u.Hi
		return Trim(value)
	default:
		bug("E-PRIM-BAD", "invalid unary operator %v", op)
		return ir.Const{}
	}
}

func isZeroConst(v ir.Const) bool {
	if v.Prim.Float() {
		return v.FVal == 0
	}
	if v.Prim == ir.S128 || v.Prim == ir.U128 {
		return v.Lo == 0 && v.Hi == 0
	}
	bits := v.Prim.Bits()
	if bits == 0 {
		bits = 8
	}
	mask := uint64(1)<<uint(bits) - 1
	if bits >= 64 {
		mask = ^uint64(0)
	}
	return v.Lo&mask == 0
}

// Calc2 evaluates a binary expression (§4.2). Comparisons always yield
// bool; arithmetic/bitwise ops yield the operand primitive. Float operands
// dispatch to Go's float64 math; integer operands (including s128/u128)
// dispatch to int128.go.
func Calc2(op ir.BinOp, lhs, rhs ir.Const) ir.Const {
	if lhs.Prim.Float() {
		return calc2Float(op, lhs, rhs)
	}
	if lhs.Prim == ir.Bool {
		lv, rv := lhs.Lo&1, rhs.Lo&1
		if op.Comparison() {
			return ir.BoolConst(compareUint(op, lv, rv))
		}
		switch op {
		case ir.OpBand:
			return ir.BoolConst(lv&rv != 0)
		case ir.OpBor:
			return ir.BoolConst(lv|rv != 0)
		case ir.OpBxor:
			return ir.BoolConst(lv^rv != 0)
		default:
			bug("E-PRIM-BAD", "invalid binary operator %v for bool", op)
		}
	}
	return calc2Int(op, lhs, rhs)
}

func calc2Float(op ir.BinOp, lhs, rhs ir.Const) ir.Const {
	a, b := lhs.FVal, rhs.FVal
	if op.Comparison() {
		var r bool
		switch op {
		case ir.OpSgt:
			r = a > b
		case ir.OpSle:
			r = a <= b
		case ir.OpSlt:
			r = a < b
		case ir.OpSge:
			r = a >= b
		case ir.OpSeq:
			r = a == b
		case ir.OpSne:
			r = a != b
		default:
			bug("E-PRIM-BAD", "invalid comparison %v for float", op)
		}
		return ir.BoolConst(r)
	}
	var v float64
	switch op {
	case ir.OpAdd:
		v = a + b
	case ir.OpSub:
		v = a - b
	case ir.OpMul:
		v = a * b
	case ir.OpDiv:
		v = a / b
	default:
		bug("E-PRIM-BAD", "invalid binary operator %v for float", op)
	}
	if lhs.Prim == ir.F32 {
		return ir.F32Const(float32(v))
	}
	return ir.F64Const(v)
}

func compareUint(op ir.BinOp, a, b uint64) bool {
	switch op {
	case ir.OpSeq:
		return a == b
	case ir.OpSne:
		return a != b
	case ir.OpSlt:
		return a < b
	case ir.OpSle:
		return a <= b
	case ir.OpSgt:
		return a > b
	case ir.OpSge:
		return a >= b
	}
	return false
}

func calc2Int(op ir.BinOp, lhs, rhs ir.Const) ir.Const {
	a := U128{lhs.Lo, lhs.Hi}
	b := U128{rhs.Lo, rhs.Hi}
	signed := lhs.Prim.Signed()

	if op.Comparison() {
		return ir.BoolConst(compareInt(op, a, b, signed))
	}

	var out U128
	switch op {
	case ir.OpAdd:
		out = a.Add(b)
	case ir.OpSub:
		out = a.Sub(b)
	case ir.OpMul:
		out = a.Mul(b)
	case ir.OpBand:
		out = a.And(b)
	case ir.OpBor:
		out = a.Or(b)
	case ir.OpBxor:
		out = a.Xor(b)
	case ir.OpShl:
		out = a.Shl(uint(b.Lo))
	case ir.OpShr:
		if signed {
			out = a.ShrSigned(uint(b.Lo))
		} else {
			out = a.ShrUnsigned(uint(b.Lo))
		}
	case ir.OpDiv:
		if signed {
			out, _ = a.DivModSigned(b)
		} else {
			out, _ = a.DivModUnsigned(b)
		}
	case ir.OpRem:
		if signed {
			_, out = a.DivModSigned(b)
		} else {
			_, out = a.DivModUnsigned(b)
		}
	default:
		bug("E-PRIM-BAD", "invalid binary operator %v for integer", op)
	}
	return Trim(ir.Const{Prim: lhs.Prim, Lo: out.Lo, Hi: out.Hi})
}

func compareInt(op ir.BinOp, a, b U128, signed bool) bool {
	if !signed {
		switch op {
		case ir.OpSeq:
			return a == b
		case ir.OpSne:
			return a != b
		case ir.OpSlt:
			return a.Less(b)
		case ir.OpSle:
			return a.Less(b) || a == b
		case ir.OpSgt:
			return b.Less(a)
		case ir.OpSge:
			return b.Less(a) || a == b
		}
		return false
	}
	aNeg := a.Hi&(1<<63) != 0
	bNeg := b.Hi&(1<<63) != 0
	lessSigned := func() bool {
		if aNeg != bNeg {
			return aNeg
		}
		return a.Less(b)
	}
	switch op {
	case ir.OpSeq:
		return a == b
	case ir.OpSne:
		return a != b
	case ir.OpSlt:
		return lessSigned()
	case ir.OpSle:
		return lessSigned() || a == b
	case ir.OpSgt:
		return !lessSigned() && a != b
	case ir.OpSge:
		return !lessSigned()
	}
	return false
}
