/*
 * lily-cc - dominator tree construction
 *
 * Copyright 2024, Richard Cornwell
 *
 * Lengauer-Tarjan dominators (§4.3). No file in the kept original_source
 * tree implements SSA construction directly (the distilled spec names the
 * algorithm without shipping it); this is built straight from the
 * classic semi-dominator/bucket formulation, with the worklist idiom
 * modeled on the teacher's emu/event/event.go time-ordered queue drain.
 */

package ssa

import "github.com/rcornwell/lily-cc/internal/ir"

// DomInfo holds the per-function dominator-tree artifacts the rest of
// SSA construction (phi placement, renaming) consumes.
type DomInfo struct {
	order    []*ir.Code        // DFS preorder
	dfsNum   map[*ir.Code]int  // block -> preorder index
	parent   map[*ir.Code]*ir.Code
	semi     map[*ir.Code]int
	idom     map[*ir.Code]*ir.Code
	children map[*ir.Code][]*ir.Code
	frontier map[*ir.Code]map[*ir.Code]struct{}
}

// IDom returns c's immediate dominator, or nil for the entry block.
func (d *DomInfo) IDom(c *ir.Code) *ir.Code { return d.idom[c] }

// Children returns the blocks c immediately dominates.
func (d *DomInfo) Children(c *ir.Code) []*ir.Code { return d.children[c] }

// Frontier returns c's dominance frontier.
func (d *DomInfo) Frontier(c *ir.Code) map[*ir.Code]struct{} { return d.frontier[c] }

// Order returns blocks in DFS preorder starting from the entry.
func (d *DomInfo) Order() []*ir.Code { return d.order }

// Dominates reports whether a dominates b (reflexively).
func (d *DomInfo) Dominates(a, b *ir.Code) bool {
	for c := b; c != nil; c = d.idom[c] {
		if c == a {
			return true
		}
	}
	return false
}

type dsu struct {
	parent []int
	label  []int // vertex with minimum semi on path to parent[i]
	semi   []int
}

func newDSU(n int) *dsu {
	d := &dsu{parent: make([]int, n), label: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
		d.label[i] = i
	}
	return d
}

func (d *dsu) find(v int) int {
	if d.parent[v] == v {
		return v
	}
	root := d.find(d.parent[v])
	if d.semi[d.label[d.parent[v]]] < d.semi[d.label[v]] {
		d.label[v] = d.label[d.parent[v]]
	}
	d.parent[v] = root
	return root
}

func (d *dsu) eval(v int) int {
	if d.parent[v] == v {
		return v
	}
	d.find(v)
	return d.label[v]
}

func (d *dsu) link(v, w int) { d.parent[w] = v }

// Build computes the dominator tree and dominance frontiers of f, rooted
// at f.Entry. Blocks unreachable from the entry are omitted.
func Build(f *ir.Func) *DomInfo {
	d := &DomInfo{
		dfsNum:   map[*ir.Code]int{},
		parent:   map[*ir.Code]*ir.Code{},
		semi:     map[*ir.Code]int{},
		idom:     map[*ir.Code]*ir.Code{},
		children: map[*ir.Code][]*ir.Code{},
		frontier: map[*ir.Code]map[*ir.Code]struct{}{},
	}
	if f.Entry == nil {
		return d
	}

	dfs(f.Entry, d)
	n := len(d.order)
	if n == 0 {
		return d
	}

	numOf := func(c *ir.Code) int { return d.dfsNum[c] }

	semiVtx := make([]*ir.Code, n)
	bucket := make([][]int, n)
	idomIdx := make([]int, n)
	parentIdx := make([]int, n)
	for i, c := range d.order {
		semiVtx[i] = c
		if p, ok := d.parent[c]; ok {
			parentIdx[i] = numOf(p)
		} else {
			parentIdx[i] = -1
		}
	}

	u := newDSU(n)
	u.semi = make([]int, n)
	for i := range u.semi {
		u.semi[i] = i
	}

	for i := n - 1; i >= 1; i-- {
		w := semiVtx[i]
		semiW := i
		for v := range w.Pred {
			vi, ok := d.dfsNum[v]
			if !ok {
				continue // unreachable predecessor
			}
			var ui int
			if vi <= i {
				ui = vi
			} else {
				ui = u.semi[u.eval(vi)]
			}
			if ui < semiW {
				semiW = ui
			}
		}
		u.semi[i] = semiW
		bucket[semiW] = append(bucket[semiW], i)
		u.link(parentIdx[i], i)

		pb := bucket[parentIdx[i]]
		bucket[parentIdx[i]] = nil
		for _, v := range pb {
			uu := u.eval(v)
			if u.semi[uu] < u.semi[v] {
				idomIdx[v] = uu
			} else {
				idomIdx[v] = parentIdx[i]
			}
		}
	}
	for i := 1; i < n; i++ {
		if idomIdx[i] != u.semi[i] {
			idomIdx[i] = idomIdx[idomIdx[i]]
		}
	}

	for i := 1; i < n; i++ {
		c := semiVtx[i]
		idomC := semiVtx[idomIdx[i]]
		d.idom[c] = idomC
		d.children[idomC] = append(d.children[idomC], c)
	}

	computeFrontiers(f, d)
	return d
}

func dfs(entry *ir.Code, d *DomInfo) {
	type frame struct {
		c    *ir.Code
		next []*ir.Code
		i    int
	}
	visited := map[*ir.Code]bool{}
	stack := []frame{{c: entry}}
	visited[entry] = true
	d.dfsNum[entry] = 0
	d.order = append(d.order, entry)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == nil {
			top.next = sortedSucc(top.c)
		}
		advanced := false
		for top.i < len(top.next) {
			s := top.next[top.i]
			top.i++
			if !visited[s] {
				visited[s] = true
				d.parent[s] = top.c
				d.dfsNum[s] = len(d.order)
				d.order = append(d.order, s)
				stack = append(stack, frame{c: s})
				advanced = true
				break
			}
		}
		if !advanced && top.i >= len(top.next) {
			stack = stack[:len(stack)-1]
		}
	}
}

// sortedSucc returns c's successors in a deterministic order (by block
// ID) since ir.Code.Succ is a set.
func sortedSucc(c *ir.Code) []*ir.Code {
	out := make([]*ir.Code, 0, len(c.Succ))
	for s := range c.Succ {
		out = append(out, s)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ID > out[j].ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func computeFrontiers(f *ir.Func, d *DomInfo) {
	for _, c := range d.order {
		d.frontier[c] = map[*ir.Code]struct{}{}
	}
	for _, c := range d.order {
		if len(c.Pred) < 2 {
			continue
		}
		for p := range c.Pred {
			if _, ok := d.dfsNum[p]; !ok {
				continue
			}
			runner := p
			for runner != d.idom[c] && runner != nil {
				d.frontier[runner][c] = struct{}{}
				runner = d.idom[runner]
			}
		}
	}
}
