/*
 * lily-cc - IR instructions
 *
 * Copyright 2024, Richard Cornwell
 */

package ir

// InsnKind tags an Insn's variant. The design note in §9 calls for "a
// single tagged variant Insn{ Expr1{...}, Expr2{...}, Phi{...}, ... }";
// Go has no sum type, so Insn is one struct carrying every kind's fields,
// selected by Kind — the shape the teacher itself uses for its `ir_insn_t`
// would-be union once translated, and the shape Go's own compiler SSA
// package uses for its Value nodes.
type InsnKind uint8

const (
	KindExpr1 InsnKind = iota
	KindExpr2
	KindCombinator
	KindUndefined
	KindLoad
	KindStore
	KindLeaStack
	KindLeaSymbol
	KindJump
	KindBranch
	KindCall
	KindReturn
	KindMemcpy
	KindClobber
	KindMachine
)

// CombinatorArm is one incoming edge of a φ instruction: which predecessor
// block it comes from, and which operand is bound for that edge.
type CombinatorArm struct {
	Pred  *Code
	Value Operand
}

// CallKind distinguishes a direct call (named symbol) from an indirect
// call through a function-pointer operand.
type CallKind uint8

const (
	CallDirect CallKind = iota
	CallIndirect
)

// MachineProto is the interface a target-specific machine instruction
// prototype satisfies; kept minimal so internal/ir has no dependency on
// any particular backend package.
type MachineProto interface {
	ProtoName() string
}

// Insn is one instruction, tagged by Kind (§3). Not every field is used by
// every kind; see the comment on each field.
type Insn struct {
	ID     int
	Parent *Code

	Kind InsnKind

	Dest *Var // Expr1, Expr2, Combinator, Undefined, Load, LeaStack, LeaSymbol, Call (direct-return var), Machine

	// Expr1
	Un  UnOp
	Src Operand

	// Expr2
	Bin BinOp
	LHS Operand
	RHS Operand

	// Combinator (phi)
	Arms []CombinatorArm

	// Load/Store
	Mem *MemRef
	StoreVal Operand

	// LeaStack/LeaSymbol
	Frame  *Frame
	Symbol string

	// Jump/Branch
	Target    *Code
	Cond      Operand
	TargetElse *Code // fallthrough target for Branch (informational only)

	// Call
	CallKindTag CallKind
	CallSym     string
	CallPtr     Operand
	CallArgs    []Operand
	CallReturn  ReturnDesc

	// Return
	RetVal   Operand
	HasRetVal bool

	// Memcpy
	CopyDst *MemRef
	CopySrc *MemRef
	CopyLen uint64

	// Clobber
	ClobberRegs []int

	// Machine
	Proto     MachineProto
	MOperands []Operand
}

// IsTerminator reports whether the instruction ends a block's control flow.
func (in *Insn) IsTerminator() bool {
	switch in.Kind {
	case KindJump, KindBranch, KindReturn:
		return true
	default:
		return false
	}
}

// Operands calls fn for every operand the instruction reads (not its
// destination). Used to keep used-at sets, and by isel/codegen passes that
// need a uniform walk over "what does this instruction read".
func (in *Insn) Operands(fn func(Operand)) {
	switch in.Kind {
	case KindExpr1:
		fn(in.Src)
	case KindExpr2:
		fn(in.LHS)
		fn(in.RHS)
	case KindCombinator:
		for _, a := range in.Arms {
			fn(a.Value)
		}
	case KindStore:
		fn(in.StoreVal)
		if in.Mem != nil && in.Mem.Index != nil {
			fn(VarOperand(in.Mem.Index))
		}
	case KindLoad:
		if in.Mem != nil && in.Mem.Index != nil {
			fn(VarOperand(in.Mem.Index))
		}
	case KindBranch:
		fn(in.Cond)
	case KindCall:
		if in.CallKindTag == CallIndirect {
			fn(in.CallPtr)
		}
		for _, a := range in.CallArgs {
			fn(a)
		}
	case KindReturn:
		if in.HasRetVal {
			fn(in.RetVal)
		}
	case KindMachine:
		for _, a := range in.MOperands {
			fn(a)
		}
	}
}

// Vars returns the set of distinct variables read by the instruction,
// excluding its destination.
func (in *Insn) Vars() []*Var {
	var out []*Var
	seen := map[*Var]bool{}
	in.Operands(func(o Operand) {
		if o.IsVar() && !seen[o.Var] {
			seen[o.Var] = true
			out = append(out, o.Var)
		}
	})
	return out
}
