/*
 * lily-cc - instruction prototype registry
 *
 * Copyright 2024, Richard Cornwell
 *
 * Supplements spec.md's codegen driver (§4.5 step 5: "if it returns no
 * replacement the compiler aborts with a diagnostic naming the instruction
 * and its variable types") with the original's insn_proto pretty-printer,
 * grounded on
 * _examples/original_source/src/compiler/common/insn_proto.c/.h: every
 * registered prototype carries a name and mnemonic so a failed isel can
 * name which prototypes were tried, not just that none matched.
 */

package backend

import (
	"fmt"
	"strings"

	"github.com/rcornwell/lily-cc/internal/ir"
)

// Proto names one machine instruction prototype: the mnemonic it
// materializes as (ir.MachineProto.ProtoName), plus its operand count,
// purely for diagnostic rendering.
type Proto struct {
	Mnemonic string
	Operands int
}

func (p Proto) ProtoName() string { return p.Mnemonic }

// Registry collects every prototype a target registers, keyed by mnemonic,
// so codegen's "no match" diagnostic can list candidates that were tried.
type Registry struct {
	byMnemonic map[string]Proto
	order      []string
}

func NewRegistry() *Registry {
	return &Registry{byMnemonic: map[string]Proto{}}
}

func (r *Registry) Register(p Proto) {
	if _, ok := r.byMnemonic[p.Mnemonic]; !ok {
		r.order = append(r.order, p.Mnemonic)
	}
	r.byMnemonic[p.Mnemonic] = p
}

func (r *Registry) Lookup(mnemonic string) (Proto, bool) {
	p, ok := r.byMnemonic[mnemonic]
	return p, ok
}

// All returns every registered prototype in registration order.
func (r *Registry) All() []Proto {
	out := make([]Proto, 0, len(r.order))
	for _, m := range r.order {
		out = append(out, r.byMnemonic[m])
	}
	return out
}

// DescribeInsn renders an instruction and the primitive of every variable
// it touches, for the isel-miss diagnostic.
func DescribeInsn(in *ir.Insn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "insn kind=%d", in.Kind)
	if in.Dest != nil {
		fmt.Fprintf(&b, " dest=%%%s:%s", in.Dest.Name, in.Dest.Prim)
	}
	for _, v := range in.Vars() {
		fmt.Fprintf(&b, " %%%s:%s", v.Name, v.Prim)
	}
	return b.String()
}

// DescribeCandidates renders the mnemonics of every prototype in r, for the
// "tried and rejected" portion of the isel-miss diagnostic.
func DescribeCandidates(r *Registry) string {
	if r == nil || len(r.order) == 0 {
		return "no prototypes registered"
	}
	return "tried: " + strings.Join(r.order, ", ")
}
