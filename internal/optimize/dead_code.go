/*
 * lily-cc - dead code elimination
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on ir_optimizer.c:dead_code_dfs/opt_dead_code: a reachability
 * walk from the entry block treats Jump/Return, and a constant-condition
 * Branch, as making everything after them in the same block dead, then
 * deletes every block the walk never reached. ir.Code.Visited is the same
 * per-block marker field the teacher's ir_code_t carries.
 */

package optimize

import "github.com/rcornwell/lily-cc/internal/ir"

// deadCode removes unreachable code to a fixpoint. Returns whether
// anything changed.
func deadCode(f *ir.Func) bool {
	changed := false
	for {
		for _, c := range f.Blocks {
			c.Visited = false
		}
		loop := false
		if f.Entry != nil {
			loop = deadCodeDFS(f.Entry)
		}
		for _, c := range snapshotBlocks(f) {
			if !c.Visited {
				f.RemoveBlock(c)
				loop = true
			}
		}
		changed = changed || loop
		if !loop {
			break
		}
	}
	return changed
}

func snapshotBlocks(f *ir.Func) []*ir.Code {
	out := make([]*ir.Code, len(f.Blocks))
	copy(out, f.Blocks)
	return out
}

// deadCodeDFS walks c's instructions, deleting anything unreachable
// within the block and recursing into live successors. Returns whether
// anything changed.
func deadCodeDFS(c *ir.Code) bool {
	if c.Visited {
		return false
	}
	c.Visited = true

	dead := false
	changed := false
	for _, in := range append([]*ir.Insn(nil), c.Insns...) {
		if dead {
			c.Delete(in)
			changed = true
			continue
		}
		switch in.Kind {
		case ir.KindJump:
			dead = true
			if deadCodeDFS(in.Target) {
				changed = true
			}
		case ir.KindReturn:
			dead = true
		case ir.KindBranch:
			if in.Cond.IsConst() {
				if !in.Cond.Con.IsZero() {
					dead = true
					if deadCodeDFS(in.Target) {
						changed = true
					}
				} else {
					c.Delete(in)
					changed = true
				}
			} else {
				if deadCodeDFS(in.Target) {
					changed = true
				}
				if in.TargetElse != nil {
					if deadCodeDFS(in.TargetElse) {
						changed = true
					}
				}
			}
		}
	}
	return changed
}
