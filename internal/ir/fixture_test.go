/*
 * lily-cc - hand-built IR fixtures standing in for a C front end
 *
 * Copyright 2024, Richard Cornwell
 *
 * internal/ir exposes only the builder API a front end would call; no
 * tokenizer/parser for C itself is in scope (§5 non-goals). These fixtures
 * play the front end's role for the rest of the test suite the way a
 * config-driven test double would.
 */

package ir

import "testing"

// fixtureAbsOf builds a one-argument function computing the absolute value
// of a signed 32-bit argument through a diamond, the shape used by spec.md
// §8 scenario 4 (SSA phi placement at a join point).
func fixtureAbsOf() *Func {
	f := NewFunc("abs")
	x := f.NewVar("x", S32)
	f.Args = []Arg{{Kind: ArgVar, Var: x}}
	f.Return = ReturnDesc{Kind: RetPrim, Prim: S32}

	entry := f.NewBlock("entry")
	neg := f.NewBlock("neg")
	done := f.NewBlock("done")

	isNeg := f.NewVar("is_neg", Bool)
	entry.AddExpr2(isNeg, OpSlt, VarOperand(x), ConstOperand(U64Const(S32, 0)))
	entry.AddBranch(VarOperand(isNeg), neg, done)

	negated := f.NewVar("negated", S32)
	neg.AddExpr1(negated, OpNeg, VarOperand(x))
	neg.AddJump(done)

	result := f.NewVar("result", S32)
	done.AddCombinator(result, []CombinatorArm{
		{Pred: entry, Value: VarOperand(x)},
		{Pred: neg, Value: VarOperand(negated)},
	})
	done.AddReturn(VarOperand(result), true)

	f.EnforceSSA = true
	return f
}

// fixturePowerOfTwoDivide builds `return x / 8` over an unsigned 32-bit
// argument, the shape used by spec.md §8 scenario 2 (one-shot strength
// reduction of division by a power of two).
func fixturePowerOfTwoDivide() *Func {
	f := NewFunc("div_by_8")
	x := f.NewVar("x", U32)
	f.Args = []Arg{{Kind: ArgVar, Var: x}}
	f.Return = ReturnDesc{Kind: RetPrim, Prim: U32}

	entry := f.NewBlock("entry")
	result := f.NewVar("result", U32)
	entry.AddExpr2(result, OpDiv, VarOperand(x), ConstOperand(U64Const(U32, 8)))
	entry.AddReturn(VarOperand(result), true)

	f.EnforceSSA = true
	return f
}

// fixtureDeadBranch builds a function with a constant-folded branch
// condition, the shape used by spec.md §8 scenarios 1/3 (constant
// propagation feeding dead-code elimination of the unreachable arm).
func fixtureDeadBranch() *Func {
	f := NewFunc("dead_branch")
	f.Return = ReturnDesc{Kind: RetPrim, Prim: S32}

	entry := f.NewBlock("entry")
	live := f.NewBlock("live")
	dead := f.NewBlock("dead")

	c := f.NewVar("c", Bool)
	entry.AddExpr1(c, OpMov, ConstOperand(BoolConst(true)))
	entry.AddBranch(VarOperand(c), live, dead)

	liveVal := f.NewVar("live_val", S32)
	live.AddExpr1(liveVal, OpMov, ConstOperand(U64Const(S32, 1)))
	live.AddReturn(VarOperand(liveVal), true)

	deadVal := f.NewVar("dead_val", S32)
	dead.AddExpr1(deadVal, OpMov, ConstOperand(U64Const(S32, 2)))
	dead.AddReturn(VarOperand(deadVal), true)

	f.EnforceSSA = true
	return f
}

func TestFixturesSatisfyInvariants(t *testing.T) {
	for _, tc := range []struct {
		name string
		f    *Func
	}{
		{"abs", fixtureAbsOf()},
		{"div_by_8", fixturePowerOfTwoDivide()},
		{"dead_branch", fixtureDeadBranch()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.f.CheckInvariants(); err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
		})
	}
}
