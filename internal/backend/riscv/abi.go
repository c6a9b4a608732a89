/*
 * lily-cc - RISC-V ABI expander
 *
 * Copyright 2024, Richard Cornwell
 *
 * Grounded line-for-line on
 * _examples/original_source/src/compiler/back/riscv/rv_abi.c: the seven-way
 * ABI switch repeated at the top of every function there becomes the
 * abiTuple computed once in CreateProfile; rv_ccstate_t becomes ccState;
 * rv_xabi_call_int/_struct/_float and rv_xabi_entry_int/_struct/_float
 * become the allocInt/allocStruct/allocFloat pair below, driven by the same
 * GPR-then-stack-spill and two-pointer-word struct tiering the original
 * uses.
 *
 * This IR has no physical-register operand kind (register allocation is
 * out of scope per spec.md's Non-goals), so where the original reads or
 * writes IR_OPERAND_REG(regno) directly, the expander here emits a Machine
 * instruction against the regio.go RegRead/RegWrite pseudo-prototypes
 * instead: a fixed physical register named directly in a Machine
 * instruction, exercised only by ABI glue code, never by isel.
 */

package riscv

import (
	"fmt"

	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/codegen"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// abiTuple is the (rve, rv64, f32, f64) decode of an ABI name, computed
// once per profile the way rv_abi.c's repeated switch does per call.
type abiTuple struct {
	name string
	rve  bool
	rv64 bool
	f32  bool
	f64  bool
}

var abiTuples = map[string]abiTuple{
	"ilp32":  {name: "ilp32"},
	"ilp32e": {name: "ilp32e", rve: true},
	"ilp32f": {name: "ilp32f", f32: true},
	"ilp32d": {name: "ilp32d", f32: true, f64: true},
	"lp64":   {name: "lp64", rv64: true},
	"lp64f":  {name: "lp64f", rv64: true, f32: true},
	"lp64d":  {name: "lp64d", rv64: true, f32: true, f64: true},
}

// Target is RISC-V's backend.Target implementation: one instance per
// compilation, holding the profile-keyed ABI tuple and the candidate tree
// built once InitCodegen runs.
type Target struct {
	extra map[*backend.Profile]abiTuple
	tree  *codegen.CandTree
	flow  *codegen.FlowTree
}

// NewTarget returns a fresh RISC-V target.
func NewTarget() *Target {
	return &Target{extra: map[*backend.Profile]abiTuple{}}
}

// CreateProfile builds the Profile for one of the seven base RISC-V ABI
// names (§4.7): ilp32, ilp32e, ilp32f, ilp32d, lp64, lp64f, lp64d.
func (t *Target) CreateProfile(abi string) (*backend.Profile, error) {
	tup, ok := abiTuples[abi]
	if !ok {
		return nil, fmt.Errorf("riscv: unknown ABI %q", abi)
	}

	ptrWidth := 4
	if tup.rv64 {
		ptrWidth = 8
	}

	gprs := argGPRsFull
	if tup.rve {
		gprs = argGPRsRVE
	}

	var fprs []backend.Register
	if tup.f32 || tup.f64 {
		fprs = argFPRs
	}

	regs := append([]backend.Register{}, IntRegs[:]...)
	if tup.f32 || tup.f64 {
		regs = append(regs, FloatRegs[:]...)
	}

	callerSaved := append([]backend.Register{}, tempGPRs...)
	callerSaved = append(callerSaved, gprs...)
	if tup.f32 || tup.f64 {
		callerSaved = append(callerSaved, tempFPRs...)
		callerSaved = append(callerSaved, fprs...)
	}

	p := &backend.Profile{
		Name:         tup.name,
		Registers:    regs,
		PointerWidth: ptrWidth,
		WordWidth:    ptrWidth,
		MinArith:     1,
		MaxArith:     ptrWidth,
		HasF32:       tup.f32,
		HasF64:       tup.f64,
		HasMul:       true,
		HasDiv:       true,
		HasRem:       true,
		HasVarShift:  true,
		ArgGPRs:      gprs,
		ArgFPRs:      fprs,
		ReturnGPRs:   []backend.Register{IntRegs[10], IntRegs[11]},
		ReturnFPRs:   []backend.Register{FloatRegs[10], FloatRegs[11]},
		CallerSaved:  callerSaved,
	}
	t.extra[p] = tup
	return p, nil
}

// InitCodegen builds the candidate tree and the flow/mem-access table once
// per profile, as the comment on backend.Target.InitCodegen specifies.
func (t *Target) InitCodegen(p *backend.Profile) {
	t.tree = codegen.Generate(InsnProtos(p))
	t.flow = codegen.GenerateFlow(FlowProtos(p))
}

// Tree returns the candidate tree InitCodegen built, for the caller to
// thread into codegen.Run.
func (t *Target) Tree() *codegen.CandTree { return t.tree }

// Flow returns the flow/mem-access table InitCodegen built, for the caller
// to thread into codegen.Run.
func (t *Target) Flow() *codegen.FlowTree { return t.flow }

func (t *Target) PreISelPass(p *backend.Profile, f *ir.Func)  {}
func (t *Target) PostISelPass(p *backend.Profile, f *ir.Func) {}

// ccState is the calling-convention cursor threaded through one function's
// (or one call's) argument allocation, mirroring rv_ccstate_t: how many
// GPRs/FPRs remain, how many bytes of the stack-argument frame have been
// claimed, and where new instructions are spliced in.
type ccState struct {
	block *ir.Code
	at    *ir.Insn // new instructions are inserted immediately before this

	gprs, fprs   []backend.Register
	gprUsed      int
	fprUsed      int
	ptrSize      int
	stackArgs    int64
	stackFrame   *ir.Frame // ArgStructFrame-style spill area for overflow args
}

func (cs *ccState) emit(in *ir.Insn) *ir.Insn {
	return cs.block.InsertBefore(cs.at, in)
}

func (cs *ccState) nextGPR() (backend.Register, bool) {
	if cs.gprUsed >= len(cs.gprs) {
		return backend.Register{}, false
	}
	r := cs.gprs[cs.gprUsed]
	cs.gprUsed++
	return r, true
}

func (cs *ccState) nextFPR() (backend.Register, bool) {
	if cs.fprUsed >= len(cs.fprs) {
		return backend.Register{}, false
	}
	r := cs.fprs[cs.fprUsed]
	cs.fprUsed++
	return r, true
}
