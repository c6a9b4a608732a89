/*
 * lily-cc - SSA construction: phi placement and renaming
 *
 * Copyright 2024, Richard Cornwell
 *
 * Takes a non-SSA ir.Func (every variable may be assigned more than
 * once) and rewrites it in place so every variable has exactly one
 * static assignment, inserting combinator (phi) instructions at
 * dominance-frontier join points per the standard Cytron et al.
 * placement rule, then renaming via a dominator-tree-order stack walk
 * (§4.3). golang.org/x/tools/container/intsets backs the per-variable
 * "blocks that assign it" and "blocks needing a phi" worklists, the way
 * the teacher's event queue (emu/event/event.go) drains a worklist of
 * pending events rather than rescanning everything each tick.
 */

package ssa

import (
	"golang.org/x/tools/container/intsets"

	"github.com/rcornwell/lily-cc/internal/ir"
)

// Construct converts f into SSA form, setting f.EnforceSSA = true on
// success. f must already have its CFG built (blocks linked via
// branch/jump).
func Construct(f *ir.Func) *DomInfo {
	dom := Build(f)
	blockIndex := map[*ir.Code]int{}
	for i, c := range dom.order {
		blockIndex[c] = i
	}

	placePhis(f, dom, blockIndex)
	origins := recordPhiOrigins(f)
	rename(f, dom, origins)
	f.RebuildSideTables()

	f.EnforceSSA = true
	return dom
}

// assignsOf returns, for each variable, the set of blocks (by dfs index)
// containing an assignment to it.
func assignsOf(f *ir.Func, dom *DomInfo, blockIndex map[*ir.Code]int) map[*ir.Var]*intsets.Sparse {
	out := map[*ir.Var]*intsets.Sparse{}
	for _, c := range dom.order {
		for _, in := range c.Insns {
			if in.Dest == nil {
				continue
			}
			s, ok := out[in.Dest]
			if !ok {
				s = &intsets.Sparse{}
				out[in.Dest] = s
			}
			s.Insert(blockIndex[c])
		}
	}
	return out
}

func placePhis(f *ir.Func, dom *DomInfo, blockIndex map[*ir.Code]int) {
	assigns := assignsOf(f, dom, blockIndex)
	hasPhi := map[*ir.Var]*intsets.Sparse{}

	for v, defSet := range assigns {
		hasPhi[v] = &intsets.Sparse{}
		worklist := &intsets.Sparse{}
		worklist.Copy(defSet)

		for !worklist.IsEmpty() {
			i := worklist.Min()
			worklist.Remove(i)
			c := dom.order[i]
			for y := range dom.Frontier(c) {
				yi := blockIndex[y]
				if hasPhi[v].Has(yi) {
					continue
				}
				hasPhi[v].Insert(yi)
				insertPhi(y, v)
				if !defSet.Has(yi) {
					worklist.Insert(yi)
					defSet.Insert(yi)
				}
			}
		}
	}
}

// insertPhi adds a combinator at the start of block c for variable v,
// with one arm per predecessor (value filled in during renaming).
func insertPhi(c *ir.Code, v *ir.Var) {
	var arms []ir.CombinatorArm
	for p := range c.Pred {
		arms = append(arms, ir.CombinatorArm{Pred: p, Value: ir.Operand{}})
	}
	in := &ir.Insn{Kind: ir.KindCombinator, Dest: v, Arms: arms}
	if len(c.Insns) == 0 {
		c.Insns = append(c.Insns, in)
	} else {
		c.Insns = append(c.Insns, nil)
		copy(c.Insns[1:], c.Insns[:len(c.Insns)-1])
		c.Insns[0] = in
	}
	in.Parent = c
}

// renameState tracks, for each original variable, a stack of its current
// SSA-renamed replacement as the dominator tree is walked.
type renameState struct {
	f       *ir.Func
	stacks  map[*ir.Var][]*ir.Var
	fresh   map[*ir.Var]int
	origins phiOrigins
	args    map[*ir.Var]bool
	undef   map[*ir.Var]map[*ir.Code]*ir.Var
}

func rename(f *ir.Func, dom *DomInfo, origins phiOrigins) {
	st := &renameState{
		f: f, stacks: map[*ir.Var][]*ir.Var{}, fresh: map[*ir.Var]int{}, origins: origins,
		args: map[*ir.Var]bool{}, undef: map[*ir.Var]map[*ir.Code]*ir.Var{},
	}
	for _, a := range f.Args {
		if a.Kind == ir.ArgVar {
			st.args[a.Var] = true
		}
	}
	if f.Entry == nil {
		return
	}
	st.walk(f.Entry, dom)
}

func (st *renameState) top(v *ir.Var) *ir.Var {
	s := st.stacks[v]
	if len(s) == 0 {
		return v // no reaching definition: treat as the original (e.g. an argument)
	}
	return s[len(s)-1]
}

// phiArmValue resolves the operand a phi arm coming from predecessor c
// should bind to for original variable orig. A function argument is live
// from entry with no assignment instruction, so it resolves to itself as
// before; any other variable with an empty rename stack has no reaching
// definition along this edge, per spec.md §4.3's tie-break rule, and
// resolves to an explicit undefined binding instead of the stale
// pre-rename *ir.Var.
func (st *renameState) phiArmValue(orig *ir.Var, c *ir.Code) ir.Operand {
	if s := st.stacks[orig]; len(s) > 0 {
		return ir.VarOperand(s[len(s)-1])
	}
	if st.args[orig] {
		return ir.VarOperand(orig)
	}
	return ir.VarOperand(st.undefinedIn(orig, c))
}

// undefinedIn returns the variable an AddUndefined instruction in block c
// binds orig's undefined value to, inserting that instruction the first
// time it's needed and reusing it for any other phi in c's successors
// that also needs orig undefined along this same edge.
func (st *renameState) undefinedIn(orig *ir.Var, c *ir.Code) *ir.Var {
	if byBlock, ok := st.undef[orig]; ok {
		if v, ok := byBlock[c]; ok {
			return v
		}
	} else {
		st.undef[orig] = map[*ir.Code]*ir.Var{}
	}

	nv := st.freshVar(orig)
	if n := len(c.Insns); n > 0 && c.Insns[n-1].IsTerminator() {
		c.InsertBefore(c.Insns[n-1], &ir.Insn{Kind: ir.KindUndefined, Dest: nv})
	} else {
		c.AddUndefined(nv)
	}
	st.undef[orig][c] = nv
	return nv
}

func (st *renameState) push(orig, fresh *ir.Var) {
	st.stacks[orig] = append(st.stacks[orig], fresh)
}

func (st *renameState) freshVar(orig *ir.Var) *ir.Var {
	n := st.fresh[orig]
	st.fresh[orig]++
	name := orig.Name
	if n > 0 {
		name = orig.Name + "." + itoa(n)
	}
	return st.f.NewVar(name, orig.Prim)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

// blockOrigDest records, per phi instruction, the pre-renaming variable
// it defines. Captured once right after phi placement, before renaming
// touches any Dest field, so predecessor blocks can look up a join's phi
// by its original variable regardless of dominator-tree visit order.
type phiOrigins map[*ir.Insn]*ir.Var

func recordPhiOrigins(f *ir.Func) phiOrigins {
	origins := phiOrigins{}
	for _, c := range f.Blocks {
		for _, in := range c.Insns {
			if in.Kind == ir.KindCombinator && in.Dest != nil {
				origins[in] = in.Dest
			}
		}
	}
	return origins
}

func (st *renameState) walk(c *ir.Code, dom *DomInfo) {
	popCount := map[*ir.Var]int{}

	for _, in := range c.Insns {
		if in.Kind != ir.KindCombinator {
			rewriteOperands(in, st)
		}
		if in.Dest != nil {
			orig := in.Dest
			nv := st.freshVar(orig)
			in.Dest = nv
			st.push(orig, nv)
			popCount[orig]++
		}
	}

	for s := range c.Succ {
		for _, in := range s.Insns {
			if in.Kind != ir.KindCombinator {
				continue
			}
			orig, ok := st.origins[in]
			if !ok {
				continue
			}
			for i := range in.Arms {
				if in.Arms[i].Pred == c {
					in.Arms[i].Value = st.phiArmValue(orig, c)
				}
			}
		}
	}

	for _, child := range dom.Children(c) {
		st.walk(child, dom)
	}

	for v, n := range popCount {
		stack := st.stacks[v]
		st.stacks[v] = stack[:len(stack)-n]
	}
}

func rewriteOperands(in *ir.Insn, st *renameState) {
	rewrite := func(o ir.Operand) ir.Operand {
		if !o.IsVar() {
			return o
		}
		return ir.VarOperand(st.top(o.Var))
	}
	switch in.Kind {
	case ir.KindExpr1:
		in.Src = rewrite(in.Src)
	case ir.KindExpr2:
		in.LHS = rewrite(in.LHS)
		in.RHS = rewrite(in.RHS)
	case ir.KindStore:
		in.StoreVal = rewrite(in.StoreVal)
	case ir.KindBranch:
		in.Cond = rewrite(in.Cond)
	case ir.KindCall:
		if in.CallKindTag == ir.CallIndirect {
			in.CallPtr = rewrite(in.CallPtr)
		}
		for i := range in.CallArgs {
			in.CallArgs[i] = rewrite(in.CallArgs[i])
		}
	case ir.KindReturn:
		if in.HasRetVal {
			in.RetVal = rewrite(in.RetVal)
		}
	case ir.KindMachine:
		for i := range in.MOperands {
			in.MOperands[i] = rewrite(in.MOperands[i])
		}
	}
}
