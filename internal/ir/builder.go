/*
 * lily-cc - IR builder
 *
 * Copyright 2024, Richard Cornwell
 */

package ir

import (
	"log/slog"
	"strconv"

	"github.com/rcornwell/lily-cc/internal/diag"
)

// Logger receives [BUG] diagnostics raised by builder invariant checks. A
// nil Logger disables logging but not the panic/abort itself (matching
// §7: continuing after a violated invariant is never an option).
var Logger *slog.Logger

// NewFunc creates an empty function. Its EnforceSSA is normally false until
// internal/ssa converts the function; a front end may also build
// already-SSA IR directly and set it true from the start.
func NewFunc(name string) *Func {
	return &Func{Name: name}
}

// NewVar appends a fresh variable to f's arena. If name is "", a decimal
// ordinal is synthesized (§4.1).
func (f *Func) NewVar(name string, prim Prim) *Var {
	id := f.nextVarID
	f.nextVarID++
	if name == "" {
		name = strconv.Itoa(id)
	}
	v := &Var{ID: id, Name: name, Prim: prim, Func: f, usedAt: map[*Insn]struct{}{}}
	f.Vars = append(f.Vars, v)
	return v
}

// NewFrame appends a fresh stack frame to f's arena.
func (f *Func) NewFrame(name string, size, align uint64, backVar *Var) *Frame {
	id := f.nextFrameID
	f.nextFrameID++
	if name == "" {
		name = strconv.Itoa(id)
	}
	fr := &Frame{ID: id, Name: name, Size: size, Align: align, BackVar: backVar}
	f.Frames = append(f.Frames, fr)
	return fr
}

// NewBlock appends a fresh code block. The first block created becomes
// the entry unless Entry is already set.
func (f *Func) NewBlock(name string) *Code {
	id := f.nextBlockID
	f.nextBlockID++
	if name == "" {
		name = "L" + strconv.Itoa(id)
	}
	c := &Code{ID: id, Name: name, Func: f, Pred: map[*Code]struct{}{}, Succ: map[*Code]struct{}{}}
	f.Blocks = append(f.Blocks, c)
	if f.Entry == nil {
		f.Entry = c
	}
	return c
}

// bug raises a [BUG] diagnostic through the shared Logger and panics.
func bug(code, format string, args ...any) {
	diag.Raise(Logger, code, format, args...)
}

// assign records that insn assigns dest, enforcing single-assignment when
// enforce_ssa holds (§4.1).
func (f *Func) assign(dest *Var, insn *Insn) {
	if dest == nil {
		return
	}
	if f.EnforceSSA && len(dest.assignedAt) > 0 {
		bug("E-SSA-REASSIGN", "variable %%%s assigned again while enforce_ssa is set", dest.Name)
	}
	dest.assignedAt = append(dest.assignedAt, insn)
}

func (f *Func) unassign(dest *Var, insn *Insn) {
	if dest == nil {
		return
	}
	out := dest.assignedAt[:0]
	for _, i := range dest.assignedAt {
		if i != insn {
			out = append(out, i)
		}
	}
	dest.assignedAt = out
}

// use records that insn reads v.
func use(v *Var, insn *Insn) {
	if v == nil {
		return
	}
	if v.usedAt == nil {
		v.usedAt = map[*Insn]struct{}{}
	}
	v.usedAt[insn] = struct{}{}
}

func unuse(v *Var, insn *Insn) {
	if v == nil {
		return
	}
	delete(v.usedAt, insn)
}

// linkCFG records a control-flow edge from src to dst.
func linkCFG(src, dst *Code) {
	if src == nil || dst == nil {
		return
	}
	src.Succ[dst] = struct{}{}
	dst.Pred[src] = struct{}{}
}

func unlinkCFG(src, dst *Code) {
	if src == nil || dst == nil {
		return
	}
	delete(src.Succ, dst)
	delete(dst.Pred, src)
}

// recordUses registers use-sites for every operand the instruction reads
// and the CFG edges for every block it targets, then assigns its
// destination. Called once after an Insn's kind-specific fields are filled
// in, by every Add* constructor below.
func (c *Code) recordUses(in *Insn) {
	in.Operands(func(o Operand) {
		if o.IsVar() {
			use(o.Var, in)
		}
	})
	switch in.Kind {
	case KindJump:
		linkCFG(c, in.Target)
	case KindBranch:
		linkCFG(c, in.Target)
		if in.TargetElse != nil {
			linkCFG(c, in.TargetElse)
		}
	}
	c.Func.assign(in.Dest, in)
}

// insertAt appends in to the block (loc < 0) or inserts before the
// instruction currently at index loc.
func (c *Code) insertAt(in *Insn, loc int) *Insn {
	in.Parent = c
	if loc < 0 || loc >= len(c.Insns) {
		c.Insns = append(c.Insns, in)
	} else {
		c.Insns = append(c.Insns, nil)
		copy(c.Insns[loc+1:], c.Insns[loc:])
		c.Insns[loc] = in
	}
	c.recordUses(in)
	return in
}

// AddExpr1 appends a unary-expression instruction.
func (c *Code) AddExpr1(dest *Var, op UnOp, src Operand) *Insn {
	return c.insertAt(&Insn{Kind: KindExpr1, Dest: dest, Un: op, Src: src}, -1)
}

// AddExpr2 appends a binary-expression instruction.
func (c *Code) AddExpr2(dest *Var, op BinOp, lhs, rhs Operand) *Insn {
	return c.insertAt(&Insn{Kind: KindExpr2, Dest: dest, Bin: op, LHS: lhs, RHS: rhs}, -1)
}

// AddCombinator appends a phi instruction.
func (c *Code) AddCombinator(dest *Var, arms []CombinatorArm) *Insn {
	return c.insertAt(&Insn{Kind: KindCombinator, Dest: dest, Arms: arms}, -1)
}

// AddUndefined appends an instruction that sets dest to an unknown value.
func (c *Code) AddUndefined(dest *Var) *Insn {
	return c.insertAt(&Insn{Kind: KindUndefined, Dest: dest}, -1)
}

// AddLoad appends a load from a memory reference.
func (c *Code) AddLoad(dest *Var, mem *MemRef) *Insn {
	return c.insertAt(&Insn{Kind: KindLoad, Dest: dest, Mem: mem}, -1)
}

// AddStore appends a store of val to a memory reference.
func (c *Code) AddStore(val Operand, mem *MemRef) *Insn {
	return c.insertAt(&Insn{Kind: KindStore, Mem: mem, StoreVal: val}, -1)
}

// AddLeaStack appends a "load effective address of frame" instruction.
func (c *Code) AddLeaStack(dest *Var, frame *Frame) *Insn {
	return c.insertAt(&Insn{Kind: KindLeaStack, Dest: dest, Frame: frame}, -1)
}

// AddLeaSymbol appends a "load effective address of symbol" instruction.
func (c *Code) AddLeaSymbol(dest *Var, symbol string) *Insn {
	return c.insertAt(&Insn{Kind: KindLeaSymbol, Dest: dest, Symbol: symbol}, -1)
}

// AddJump appends an unconditional jump.
func (c *Code) AddJump(target *Code) *Insn {
	return c.insertAt(&Insn{Kind: KindJump, Target: target}, -1)
}

// AddBranch appends a conditional branch: taken on cond, falls through
// otherwise. elseTarget may be nil when the fallthrough is simply "the
// next block in list order" rather than an explicit edge.
func (c *Code) AddBranch(cond Operand, target, elseTarget *Code) *Insn {
	return c.insertAt(&Insn{Kind: KindBranch, Cond: cond, Target: target, TargetElse: elseTarget}, -1)
}

// AddCallDirect appends a direct call to a named symbol.
func (c *Code) AddCallDirect(dest *Var, sym string, args []Operand, ret ReturnDesc) *Insn {
	return c.insertAt(&Insn{
		Kind: KindCall, Dest: dest, CallKindTag: CallDirect, CallSym: sym,
		CallArgs: args, CallReturn: ret,
	}, -1)
}

// AddCallIndirect appends a call through a function-pointer operand.
func (c *Code) AddCallIndirect(dest *Var, ptr Operand, args []Operand, ret ReturnDesc) *Insn {
	return c.insertAt(&Insn{
		Kind: KindCall, Dest: dest, CallKindTag: CallIndirect, CallPtr: ptr,
		CallArgs: args, CallReturn: ret,
	}, -1)
}

// AddReturn appends a return instruction, with or without a value.
func (c *Code) AddReturn(val Operand, hasVal bool) *Insn {
	return c.insertAt(&Insn{Kind: KindReturn, RetVal: val, HasRetVal: hasVal}, -1)
}

// AddMemcpy appends a memcpy instruction.
func (c *Code) AddMemcpy(dst, src *MemRef, length uint64) *Insn {
	return c.insertAt(&Insn{Kind: KindMemcpy, CopyDst: dst, CopySrc: src, CopyLen: length}, -1)
}

// AddClobber appends a clobber marker naming the registers a call kills.
func (c *Code) AddClobber(regs []int) *Insn {
	return c.insertAt(&Insn{Kind: KindClobber, ClobberRegs: regs}, -1)
}

// AddMachine appends a target-specific machine instruction.
func (c *Code) AddMachine(dest *Var, proto MachineProto, operands []Operand) *Insn {
	return c.insertAt(&Insn{Kind: KindMachine, Dest: dest, Proto: proto, MOperands: operands}, -1)
}

// ReplaceWithMachine converts in into a MACHINE instruction in place,
// preserving its identity and its Dest. Used by isel for kinds whose
// non-operand fields (Target/TargetElse of a JUMP/BRANCH, the CFG edges
// linkCFG recorded for them) must survive the conversion; everywhere else
// deleting and re-inserting a fresh instruction is simpler and is what
// codegen's own Materialize does instead. Old operand fields are left set
// (Insn's own doc comment already allows fields idle outside their kind)
// but un-recorded from used-at, and the new operands are recorded in their
// place.
func (c *Code) ReplaceWithMachine(in *Insn, proto MachineProto, operands []Operand) *Insn {
	in.Operands(func(o Operand) {
		if o.IsVar() {
			unuse(o.Var, in)
		}
	})
	in.Kind = KindMachine
	in.Proto = proto
	in.MOperands = operands
	in.Operands(func(o Operand) {
		if o.IsVar() {
			use(o.Var, in)
		}
	})
	return in
}

// InsertBefore inserts a fully-built instruction immediately before ref in
// ref's block (used by isel substitution and ABI expansion to splice in
// new instructions at a specific point).
func (c *Code) InsertBefore(ref *Insn, in *Insn) *Insn {
	idx := c.indexOf(ref)
	if idx < 0 {
		idx = len(c.Insns)
	}
	return c.insertAt(in, idx)
}

// InsertAfter inserts a fully-built instruction immediately after ref.
func (c *Code) InsertAfter(ref *Insn, in *Insn) *Insn {
	idx := c.indexOf(ref)
	if idx < 0 {
		return c.insertAt(in, -1)
	}
	return c.insertAt(in, idx+1)
}

func (c *Code) indexOf(in *Insn) int {
	for i, x := range c.Insns {
		if x == in {
			return i
		}
	}
	return -1
}

// Delete removes in from its block, un-recording every use/assignment and
// CFG edge it contributed (§4.1).
func (c *Code) Delete(in *Insn) {
	idx := c.indexOf(in)
	if idx < 0 {
		return
	}
	in.Operands(func(o Operand) {
		if o.IsVar() {
			unuse(o.Var, in)
		}
	})
	c.Func.unassign(in.Dest, in)
	switch in.Kind {
	case KindJump:
		unlinkCFG(c, in.Target)
	case KindBranch:
		unlinkCFG(c, in.Target)
		if in.TargetElse != nil {
			unlinkCFG(c, in.TargetElse)
		}
	}
	c.Insns = append(c.Insns[:idx], c.Insns[idx+1:]...)
}

// DeleteVar replaces every use of v with "undefined" and deletes v from
// f.Vars (§4.1: "Deleting a variable first replaces every use with
// undefined, then lets dead-code cleanup reap the effect").
func (f *Func) DeleteVar(v *Var) {
	for in := range v.usedAt {
		replaceOperandVar(in, v, nil)
	}
	v.usedAt = map[*Insn]struct{}{}
	for i, x := range f.Vars {
		if x == v {
			f.Vars = append(f.Vars[:i], f.Vars[i+1:]...)
			break
		}
	}
}

// replaceOperandVar rewrites every operand of in that reads oldVar: to
// ConstOperand-free "undefined" if newVar is nil (the variable is being
// deleted), else to a reference to newVar. Used by both DeleteVar and the
// optimizer's rename-on-fold rewrites.
func replaceOperandVar(in *Insn, oldVar, newVar *Var) {
	replace := func(o Operand) Operand {
		if o.IsVar() && o.Var == oldVar {
			unuse(oldVar, in)
			if newVar == nil {
				return Operand{}
			}
			use(newVar, in)
			return VarOperand(newVar)
		}
		return o
	}
	switch in.Kind {
	case KindExpr1:
		in.Src = replace(in.Src)
	case KindExpr2:
		in.LHS = replace(in.LHS)
		in.RHS = replace(in.RHS)
	case KindCombinator:
		for i := range in.Arms {
			in.Arms[i].Value = replace(in.Arms[i].Value)
		}
	case KindStore:
		in.StoreVal = replace(in.StoreVal)
	case KindBranch:
		in.Cond = replace(in.Cond)
	case KindCall:
		if in.CallKindTag == CallIndirect {
			in.CallPtr = replace(in.CallPtr)
		}
		for i := range in.CallArgs {
			in.CallArgs[i] = replace(in.CallArgs[i])
		}
	case KindReturn:
		if in.HasRetVal {
			in.RetVal = replace(in.RetVal)
		}
	case KindMachine:
		for i := range in.MOperands {
			in.MOperands[i] = replace(in.MOperands[i])
		}
	}
}

// ReplaceAllUses rewrites every use of oldVar across the function to
// newVar, used by constant propagation's mov-rename rule.
func ReplaceAllUses(oldVar, newVar *Var) {
	for in := range clone(oldVar.usedAt) {
		replaceOperandVar(in, oldVar, newVar)
	}
}

// ReplaceAllUsesConst rewrites every use of oldVar to a constant operand.
func ReplaceAllUsesConst(oldVar *Var, c Const) {
	for in := range clone(oldVar.usedAt) {
		replace := func(o Operand) Operand {
			if o.IsVar() && o.Var == oldVar {
				unuse(oldVar, in)
				return ConstOperand(c)
			}
			return o
		}
		switch in.Kind {
		case KindExpr1:
			in.Src = replace(in.Src)
		case KindExpr2:
			in.LHS = replace(in.LHS)
			in.RHS = replace(in.RHS)
		case KindCombinator:
			for i := range in.Arms {
				in.Arms[i].Value = replace(in.Arms[i].Value)
			}
		case KindStore:
			in.StoreVal = replace(in.StoreVal)
		case KindBranch:
			in.Cond = replace(in.Cond)
		case KindCall:
			for i := range in.CallArgs {
				in.CallArgs[i] = replace(in.CallArgs[i])
			}
		case KindReturn:
			if in.HasRetVal {
				in.RetVal = replace(in.RetVal)
			}
		}
	}
}

// ReplaceAllUsesOperand rewrites every use of oldVar to the given operand,
// dispatching to ReplaceAllUses or ReplaceAllUsesConst by the operand's
// kind. Used by the optimizer's fold rules, where the replacement (the
// surviving side of a mov, or an operand of a simplified expression) may
// turn out to be either a variable or a constant.
func ReplaceAllUsesOperand(oldVar *Var, op Operand) {
	switch {
	case op.IsConst():
		ReplaceAllUsesConst(oldVar, op.Con)
	case op.IsVar():
		ReplaceAllUses(oldVar, op.Var)
	}
}

func clone(m map[*Insn]struct{}) map[*Insn]struct{} {
	out := make(map[*Insn]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// RemoveBlock deletes an entire block: all of its instructions are
// unwound (releasing their def/use and CFG edges), and the block itself
// is dropped from f.Blocks. Used by dead-code elimination's unreachable
// block sweep.
func (f *Func) RemoveBlock(c *Code) {
	for len(c.Insns) > 0 {
		c.Delete(c.Insns[len(c.Insns)-1])
	}
	for p := range c.Pred {
		delete(p.Succ, c)
	}
	for s := range c.Succ {
		delete(s.Pred, c)
	}
	for i, x := range f.Blocks {
		if x == c {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			break
		}
	}
}

// RebuildSideTables recomputes every Var's assigned-at/used-at table and
// every Code's pred/succ set from scratch by walking f.Blocks. Passes that
// restructure many instructions at once (SSA construction's phi insertion
// and renaming, isel's substitution) find it simpler to edit f.Blocks
// directly and call this once afterward than to thread every edit through
// the builder's incremental Add*/Delete bookkeeping.
func (f *Func) RebuildSideTables() {
	for _, v := range f.Vars {
		v.assignedAt = nil
		v.usedAt = map[*Insn]struct{}{}
	}
	for _, c := range f.Blocks {
		c.Pred = map[*Code]struct{}{}
		c.Succ = map[*Code]struct{}{}
	}
	for _, c := range f.Blocks {
		for _, in := range c.Insns {
			in.Parent = c
			if in.Dest != nil {
				in.Dest.assignedAt = append(in.Dest.assignedAt, in)
			}
			in.Operands(func(o Operand) {
				if o.IsVar() {
					use(o.Var, in)
				}
			})
			switch in.Kind {
			case KindJump:
				linkCFG(c, in.Target)
			case KindBranch:
				linkCFG(c, in.Target)
				if in.TargetElse != nil {
					linkCFG(c, in.TargetElse)
				}
			}
		}
	}
}

// CheckInvariants validates P1-P3 (§8), raising a [BUG] diagnostic on the
// first violation found. Intended for use in tests and as an optional
// post-pass assertion in debug builds of the driver.
func (f *Func) CheckInvariants() error {
	var err error
	defer diag.Recover(&err)

	for _, v := range f.Vars {
		for in := range v.usedAt {
			found := false
			in.Operands(func(o Operand) {
				if o.IsVar() && o.Var == v {
					found = true
				}
			})
			if !found {
				bug("E-PRIM-BAD", "P1 violated: %%%s in used-at but not an operand of insn", v.Name)
			}
		}
	}
	for _, c := range f.Blocks {
		for _, in := range c.Insns {
			in.Operands(func(o Operand) {
				if o.IsVar() {
					if _, ok := o.Var.usedAt[in]; !ok {
						bug("E-PRIM-BAD", "P1 violated: %%%s is an operand but not in used-at", o.Var.Name)
					}
				}
			})
			if in.Dest != nil {
				found := false
				for _, a := range in.Dest.assignedAt {
					if a == in {
						found = true
					}
				}
				if !found {
					bug("E-PRIM-BAD", "P2 violated: insn assigns %%%s but is absent from assigned-at", in.Dest.Name)
				}
			}
		}
	}
	for _, c := range f.Blocks {
		for s := range c.Succ {
			if _, ok := s.Pred[c]; !ok {
				bug("E-PRIM-BAD", "P3 violated: %s in %s.succ but %s not in %s.pred", s.Name, c.Name, c.Name, s.Name)
			}
		}
	}
	if f.EnforceSSA {
		for _, v := range f.Vars {
			if len(v.assignedAt) > 1 {
				bug("E-SSA-REASSIGN", "P2 violated: %%%s assigned %d times under enforce_ssa", v.Name, len(v.assignedAt))
			}
		}
	}
	return err
}
