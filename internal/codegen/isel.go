/*
 * lily-cc - two-phase instruction selection
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on
 * _examples/original_source/src/compiler/common/codegen/isel_tree.c's
 * tree_isel_add_candidates_insn/_operand (candidate gathering) and
 * tree_isel_match_proto/_insn/_operand (scoring and validation), per
 * spec.md §4.6.
 */

package codegen

import (
	"math/bits"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// Gather walks t against in (candidate gathering), returning every
// prototype whose match tree's top-level shape could possibly cover in,
// deduplicated. Phase two (Score/Select) does the real validation.
func Gather(t *CandTree, in *ir.Insn) []*InsnProto {
	var out []*InsnProto
	seen := map[*InsnProto]bool{}
	gatherInsn(t.roots, in.Parent, in, &out, seen)
	return out
}

func gatherInsn(trie map[shapeKey]*candNode, block *ir.Code, in *ir.Insn, out *[]*InsnProto, seen map[*InsnProto]bool) {
	var key shapeKey
	var operands []ir.Operand
	switch in.Kind {
	case ir.KindExpr1:
		key = shapeKey{kind: TreeUnary, un: in.Un}
		operands = []ir.Operand{in.Src}
	case ir.KindExpr2:
		key = shapeKey{kind: TreeBinary, bin: in.Bin}
		operands = []ir.Operand{in.LHS, in.RHS}
	default:
		return
	}
	n, ok := trie[key]
	if !ok {
		return
	}
	for i, o := range operands {
		gatherOperand(n.operandTries[i], block, o, out, seen)
	}
}

func gatherOperand(trie map[shapeKey]*candNode, block *ir.Code, op ir.Operand, out *[]*InsnProto, seen map[*InsnProto]bool) {
	if n, ok := trie[shapeKey{kind: TreeOperand}]; ok {
		addProtos(n.protos, out, seen)
	}
	if op.IsConst() {
		if n, ok := trie[shapeKey{kind: TreeConst, cval: op.Con}]; ok {
			addProtos(n.protos, out, seen)
		}
	}
	if op.IsVar() {
		v := op.Var
		if len(v.AssignedAt()) == 1 {
			def := v.AssignedAt()[0]
			if def.Parent == block {
				gatherInsn(trie, block, def, out, seen)
			}
		}
	}
}

func addProtos(protos []*InsnProto, out *[]*InsnProto, seen map[*InsnProto]bool) {
	for _, p := range protos {
		if !seen[p] {
			seen[p] = true
			*out = append(*out, p)
		}
	}
}

// Select runs Gather then fully matches and scores every candidate,
// returning the highest-scoring substitution (ties keep the first seen).
func Select(t *CandTree, p *backend.Profile, in *ir.Insn) (*InsnProto, map[int]Binding, bool) {
	bestScore := -1
	var best *InsnProto
	var bestBindings map[int]Binding
	for _, proto := range Gather(t, in) {
		bindings := map[int]Binding{}
		score, ok := matchInsn(proto.Match, in, p, bindings)
		if !ok {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = proto
			bestBindings = bindings
		}
	}
	return best, bestBindings, best != nil
}

func matchInsn(node *MatchNode, in *ir.Insn, p *backend.Profile, bindings map[int]Binding) (int, bool) {
	var operands []ir.Operand
	switch in.Kind {
	case ir.KindExpr1:
		if node.Kind != TreeUnary || node.Un != in.Un {
			return 0, false
		}
		operands = []ir.Operand{in.Src}
	case ir.KindExpr2:
		if node.Kind != TreeBinary || node.Bin != in.Bin {
			return 0, false
		}
		operands = []ir.Operand{in.LHS, in.RHS}
	default:
		return 0, false
	}

	score := 1 // this instruction consumed
	for i, child := range node.Operands {
		s, ok := matchOperand(child, in.Parent, operands[i], p, bindings)
		if !ok {
			return 0, false
		}
		score += s
	}
	return score, true
}

func matchOperand(node *MatchNode, block *ir.Code, op ir.Operand, p *backend.Profile, bindings map[int]Binding) (int, bool) {
	switch node.Kind {
	case TreeConst:
		if !op.IsConst() || !constEqual(op.Con, node.ConstVal) {
			return 0, false
		}
		return bindLeaf(node.Placeholder, op, OperandRule{}, bindings)

	case TreeOperand:
		if !validOperand(node.Rule, op, p) {
			return 0, false
		}
		score, ok := bindLeaf(node.Placeholder, op, node.Rule, bindings)
		if !ok {
			return 0, false
		}
		if op.IsConst() && node.Rule.AllowImm {
			score++ // bonus: constant slots directly into an immediate
		}
		return score, true

	case TreeUnary, TreeBinary:
		if !op.IsVar() {
			return 0, false
		}
		v := op.Var
		if len(v.AssignedAt()) != 1 {
			return 0, false
		}
		def := v.AssignedAt()[0]
		if def.Parent != block {
			return 0, false
		}
		return matchInsn(node, def, p, bindings)

	default:
		return 0, false
	}
}

// bindLeaf records op under placeholder, requiring equal operands on a
// repeated placeholder index per spec.md §4.6 step 1.
func bindLeaf(placeholder int, op ir.Operand, rule OperandRule, bindings map[int]Binding) (int, bool) {
	if prev, ok := bindings[placeholder]; ok {
		if !operandsEqual(prev.Op, op) {
			return 0, false
		}
		return 1, true
	}
	bindings[placeholder] = Binding{Op: op, Rule: rule}
	return 1, true
}

func constEqual(a, b ir.Const) bool {
	return a.Prim == b.Prim && a.Lo == b.Lo && a.Hi == b.Hi && a.FVal == b.FVal
}

func operandsEqual(a, b ir.Operand) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ir.OperVar:
		return a.Var == b.Var
	case ir.OperConst:
		return constEqual(a.Con, b.Con)
	default:
		return false
	}
}

// validOperand checks storage, primitive, and size per spec.md §4.6 step 2.
func validOperand(rule OperandRule, op ir.Operand, p *backend.Profile) bool {
	switch op.Kind {
	case ir.OperVar:
		if !rule.AllowReg {
			return false
		}
	case ir.OperMem:
		if !rule.AllowMem {
			return false
		}
	case ir.OperConst:
		if !rule.AllowImm && !rule.AllowReg {
			return false
		}
	}

	prim := op.Prim()
	if !primAllowed(rule, prim) {
		return false
	}

	size := prim.Size()
	switch {
	case rule.SizePtr:
		if size != p.PointerWidth {
			return false
		}
	case rule.SizeWord:
		if size != p.WordWidth {
			return false
		}
	case rule.Sizes != 0:
		if rule.Sizes&sizeBitFor(size) == 0 {
			return false
		}
	}

	if op.IsConst() && rule.AllowImm && rule.ConstBits > 0 {
		limit := rule.ConstBits
		if !rule.ConstUnsigned && prim.Unsigned() {
			limit--
		}
		needed := constBitsNeeded(op.Con)
		if rule.ConstUnsigned && int64(op.Con.Lo) >= 0 {
			needed-- // an unsigned immediate field has no sign bit
		}
		if needed > limit {
			return false
		}
	}
	return true
}

func primAllowed(rule OperandRule, p ir.Prim) bool {
	if !rule.Signed && !rule.Unsigned && !rule.Float && !rule.Bool {
		return true
	}
	switch {
	case p.Float():
		return rule.Float
	case p == ir.Bool:
		return rule.Bool
	case p.Signed():
		return rule.Signed
	case p.Unsigned():
		return rule.Unsigned
	default:
		return false
	}
}

// constBitsNeeded returns the number of bits needed to hold c.Lo as a
// two's-complement immediate (s128/u128 immediates never arise in
// practice, so only the low half is considered).
func constBitsNeeded(c ir.Const) int {
	v := int64(c.Lo)
	if v >= 0 {
		return bits.Len64(uint64(v)) + 1
	}
	return bits.Len64(^uint64(v)) + 1
}
