/*
 * lily-cc - optimizer driver
 *
 * Copyright 2024, Richard Cornwell
 *
 * Runs the fixpoint pass group (const-prop, unused-var removal, dead-code
 * elimination, branch merging) to a fixpoint, then the one-shot strength
 * reduction pass, per §4.4. Grounded line-for-line on
 * ir_optimizer.c:ir_optimize.
 */

package optimize

import "github.com/rcornwell/lily-cc/internal/ir"

// Optimize runs every optimization pass over f until the fixpoint group
// stops changing anything, then strength-reduces once. Returns whether
// anything in f was changed.
func Optimize(f *ir.Func) bool {
	changed := false
	for {
		a := constProp(f)
		b := unusedVars(f)
		c := deadCode(f)
		d := branches(f)
		loop := a || b || c || d
		changed = changed || loop
		if !loop {
			break
		}
	}
	changed = strengthReduce(f) || changed
	return changed
}
