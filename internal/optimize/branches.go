/*
 * lily-cc - branch merging
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on ir_optimizer.c:branch_opt_dfs/merge_code/opt_branches: a
 * block whose only successor has no other predecessor is folded into
 * that successor, collapsing a chain of single-entry, single-exit blocks
 * into one. Unlike the teacher's in-place predecessor/successor surgery,
 * mergeCode here just transplants the instruction list and leans on
 * ir.Func.RebuildSideTables to re-derive Pred/Succ from the moved
 * terminators, the same trick SSA construction uses for its own bulk
 * restructuring.
 */

package optimize

import "github.com/rcornwell/lily-cc/internal/ir"

// branches merges single-pred/single-succ block chains to a fixpoint via
// a reachability walk from the entry block. Returns whether anything
// changed.
func branches(f *ir.Func) bool {
	for _, c := range f.Blocks {
		c.Visited = false
	}
	if f.Entry == nil {
		return false
	}
	return branchOptDFS(f, f.Entry)
}

func branchOptDFS(f *ir.Func, c *ir.Code) bool {
	if c.Visited {
		return false
	}
	c.Visited = true

	changed := false
	for len(c.Succ) == 1 {
		var succ *ir.Code
		for s := range c.Succ {
			succ = s
		}
		if len(succ.Pred) == 1 {
			mergeCode(f, c, succ)
			changed = true
		} else {
			break
		}
	}

	for s := range c.Succ {
		if branchOptDFS(f, s) {
			changed = true
		}
	}
	return changed
}

// mergeCode folds second's instructions onto the end of first (first's
// trailing jump to second is dropped first), removes second from f, and
// rebuilds the def/use and CFG side tables from the new layout.
func mergeCode(f *ir.Func, first, second *ir.Code) {
	last := first.Insns[len(first.Insns)-1]
	first.Delete(last)

	for _, in := range second.Insns {
		in.Parent = first
	}
	first.Insns = append(first.Insns, second.Insns...)
	second.Insns = nil

	for i, c := range f.Blocks {
		if c == second {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			break
		}
	}
	f.RebuildSideTables()
}
