/*
 * lily-cc - flow and memory-access instruction selection
 *
 * Copyright 2024, Richard Cornwell
 *
 * matchtree.go's MatchNode model covers EXPR1/EXPR2 only (see its header
 * comment); the original's cand_tree.c instead gives control-flow and
 * memory instructions their own IR_INSN_FLOW tree node, matched by flow
 * kind rather than by recursing into operand subtrees
 * (_examples/original_source/src/compiler/common/codegen/cand_tree.c's
 * expr.flow case). LOAD, STORE, LEA_STACK, LEA_SYMBOL, JUMP, BRANCH, CALL,
 * RETURN, MEMCPY, CLOBBER, and UNDEFINED never need MatchNode's recursive
 * nested-instruction matching (none of them is itself a value one level up
 * binds an operand rule against), so this is a separate, much smaller
 * dispatch keyed directly on ir.InsnKind, per spec.md §4.5 step 5's "for
 * every non-machine, non-combinator instruction ... call isel".
 */

package codegen

import (
	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// FlowEmitFunc materializes in into a MACHINE instruction, in place, via
// ir.Code.ReplaceWithMachine. Unlike EmitFunc it receives the whole
// original instruction: flow and mem-access shapes carry structure - block
// targets, call symbols, memory references - that the four-shape MatchNode
// model was never built to bind into placeholders.
type FlowEmitFunc func(in *ir.Insn)

// FlowProto is one target machine-instruction prototype for a kind
// matchtree.go's model doesn't cover.
type FlowProto struct {
	Kind    ir.InsnKind
	Applies func(p *backend.Profile, in *ir.Insn) bool // nil: always applies
	Emit    FlowEmitFunc
}

// FlowTree is the per-profile table of registered FlowProtos, grouped by
// the InsnKind they cover. Unlike CandTree there is no trie: each kind has
// at most a handful of shapes, so a linear scan per kind is simpler and
// just as fast.
type FlowTree struct {
	byKind map[ir.InsnKind][]*FlowProto
}

// GenerateFlow builds a FlowTree from every registered FlowProto.
func GenerateFlow(protos []*FlowProto) *FlowTree {
	t := &FlowTree{byKind: map[ir.InsnKind][]*FlowProto{}}
	for _, fp := range protos {
		t.byKind[fp.Kind] = append(t.byKind[fp.Kind], fp)
	}
	return t
}

// SelectFlow returns the first registered prototype for in.Kind whose
// Applies predicate accepts in. Registration order breaks ties; there is
// no operand-consumption count to compare the way Select uses one.
func SelectFlow(t *FlowTree, p *backend.Profile, in *ir.Insn) (*FlowProto, bool) {
	if t == nil {
		return nil, false
	}
	for _, fp := range t.byKind[in.Kind] {
		if fp.Applies == nil || fp.Applies(p, in) {
			return fp, true
		}
	}
	return nil, false
}

// MaterializeFlow runs proto's Emit, converting in into a MACHINE
// instruction in place. Unlike Materialize there is nothing to recurse
// into and delete: a flow/mem-access instruction's operands are always
// leaves, never a nested same-block defining instruction.
func MaterializeFlow(proto *FlowProto, in *ir.Insn) {
	proto.Emit(in)
}
