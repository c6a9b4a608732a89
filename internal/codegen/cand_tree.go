/*
 * lily-cc - candidate tree construction
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded on
 * _examples/original_source/src/compiler/common/codegen/cand_tree.c's
 * cand_tree_generate/isel_insert_insn: every prototype's match tree is
 * inserted into a trie keyed by instruction-kind/op (or leaf shape) at each
 * layer, unifying children on the same layer that already share that shape.
 * A leaf (placeholder or constant-literal) node accumulates every
 * prototype whose match tree terminates there, exactly per spec.md §4.6's
 * "operand placeholders and constant-literal nodes carry a list of the
 * substitutions that terminate there."
 */

package codegen

import "github.com/rcornwell/lily-cc/internal/ir"

// shapeKey is the trie key at one layer: enough of a MatchNode's shape to
// decide whether two nodes can share a trie path.
type shapeKey struct {
	kind TreeKind
	un   ir.UnOp
	bin  ir.BinOp
	cval ir.Const
}

func shapeOf(n *MatchNode) shapeKey {
	switch n.Kind {
	case TreeOperand:
		return shapeKey{kind: TreeOperand}
	case TreeConst:
		return shapeKey{kind: TreeConst, cval: n.ConstVal}
	case TreeUnary:
		return shapeKey{kind: TreeUnary, un: n.Un}
	case TreeBinary:
		return shapeKey{kind: TreeBinary, bin: n.Bin}
	default:
		return shapeKey{}
	}
}

// candNode is one trie node. Leaf nodes (TreeOperand/TreeConst shapes)
// accumulate protos; internal nodes (TreeUnary/TreeBinary shapes) carry one
// child trie per operand position.
type candNode struct {
	shape        shapeKey
	protos       []*InsnProto
	operandTries []map[shapeKey]*candNode
}

// CandTree is the candidate trie for one target profile, built once by
// Generate.
type CandTree struct {
	roots map[shapeKey]*candNode
}

// Generate builds the candidate trie from every registered prototype.
// Insertion is idempotent: inserting the same prototype twice leaves the
// trie unchanged beyond a harmless duplicate proto entry at its leaves,
// which Select's dedup in Gather absorbs.
func Generate(protos []*InsnProto) *CandTree {
	t := &CandTree{roots: map[shapeKey]*candNode{}}
	for _, p := range protos {
		insertNode(t.roots, p.Match, p)
	}
	return t
}

func insertNode(trie map[shapeKey]*candNode, node *MatchNode, proto *InsnProto) {
	key := shapeOf(node)
	n, ok := trie[key]
	if !ok {
		n = &candNode{shape: key}
		if node.Kind == TreeUnary || node.Kind == TreeBinary {
			n.operandTries = make([]map[shapeKey]*candNode, len(node.Operands))
			for i := range n.operandTries {
				n.operandTries[i] = map[shapeKey]*candNode{}
			}
		}
		trie[key] = n
	}
	switch node.Kind {
	case TreeOperand, TreeConst:
		n.protos = append(n.protos, proto)
	case TreeUnary, TreeBinary:
		for i, child := range node.Operands {
			insertNode(n.operandTries[i], child, proto)
		}
	}
}
