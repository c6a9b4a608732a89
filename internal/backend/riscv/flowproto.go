/*
 * lily-cc - RISC-V flow and memory-access instruction prototypes
 *
 * Copyright 2024, Richard Cornwell
 *
 * Mirrors proto.go, but for the instruction kinds codegen's FlowTree
 * dispatches on instead of its expression candidate trie (see
 * flowsel.go's header comment): control flow, loads/stores, calls,
 * memcpy, clobber markers, and undefined bindings. Grounded on
 * _examples/original_source/src/compiler/back/riscv/rv_isel.c's flow-kind
 * cases and rv_instructions.c's ret/j/jr/jal/jalr and load/store mnemonics.
 */

package riscv

import (
	"github.com/rcornwell/lily-cc/internal/backend"
	"github.com/rcornwell/lily-cc/internal/codegen"
	"github.com/rcornwell/lily-cc/internal/ir"
)

// flowProto is a bare mnemonic MachineProto, the flow-table equivalent of
// materialize.go's unexported machineProto.
type flowProto struct{ name string }

func (m flowProto) ProtoName() string { return m.name }

// loadMnemonic and storeMnemonic pick the encoding by operand byte size;
// addressing-mode fusion remains out of scope (proto.go's header comment),
// so this only ever emits the flat l*/s* forms against in.Mem.
func loadMnemonic(size int) (string, bool) {
	switch size {
	case 1:
		return "lb", true
	case 2:
		return "lh", true
	case 4:
		return "lw", true
	case 8:
		return "ld", true
	default:
		return "", false
	}
}

func storeMnemonic(size int) (string, bool) {
	switch size {
	case 1:
		return "sb", true
	case 2:
		return "sh", true
	case 4:
		return "sw", true
	case 8:
		return "sd", true
	default:
		return "", false
	}
}

// FlowProtos builds the flow/mem-access prototype table a profile's
// FlowTree is generated from (Target.InitCodegen calls
// codegen.GenerateFlow(FlowProtos(p)) once, alongside InsnProtos(p)).
func FlowProtos(p *backend.Profile) []*codegen.FlowProto {
	return []*codegen.FlowProto{
		// RETURN always becomes a bare ret: XabiReturn (xabi.go) already
		// wrote the return value into its ABI register, via a RegWrite,
		// before this instruction is reached.
		{
			Kind: ir.KindReturn,
			Emit: func(in *ir.Insn) {
				in.Parent.ReplaceWithMachine(in, flowProto{"ret"}, nil)
			},
		},
		{
			Kind: ir.KindJump,
			Emit: func(in *ir.Insn) {
				in.Parent.ReplaceWithMachine(in, flowProto{"j"}, nil)
			},
		},
		// BRANCH always lowers to a single bnez against its bool Cond
		// operand: comparison-and-branch fusion (into beq/bne/blt/bge, all
		// registered in encoding.go but otherwise unused) is left for a
		// future peephole pass, same as addressing-mode fusion for
		// LOAD/STORE.
		{
			Kind: ir.KindBranch,
			Emit: func(in *ir.Insn) {
				in.Parent.ReplaceWithMachine(in, flowProto{"bnez"}, []ir.Operand{in.Cond})
			},
		},
		{
			Kind: ir.KindCall,
			Emit: func(in *ir.Insn) {
				if in.CallKindTag == ir.CallIndirect {
					in.Parent.ReplaceWithMachine(in, flowProto{"jalr"}, []ir.Operand{in.CallPtr})
					return
				}
				in.Parent.ReplaceWithMachine(in, flowProto{"jal"}, nil)
			},
		},
		{
			Kind: ir.KindLoad,
			Applies: func(p *backend.Profile, in *ir.Insn) bool {
				_, ok := loadMnemonic(in.Dest.Prim.Size())
				return ok
			},
			Emit: func(in *ir.Insn) {
				mnemonic, _ := loadMnemonic(in.Dest.Prim.Size())
				var ops []ir.Operand
				if in.Mem != nil && in.Mem.Index != nil {
					ops = []ir.Operand{ir.VarOperand(in.Mem.Index)}
				}
				in.Parent.ReplaceWithMachine(in, flowProto{mnemonic}, ops)
			},
		},
		{
			Kind: ir.KindStore,
			Applies: func(p *backend.Profile, in *ir.Insn) bool {
				_, ok := storeMnemonic(in.StoreVal.Prim().Size())
				return ok
			},
			Emit: func(in *ir.Insn) {
				mnemonic, _ := storeMnemonic(in.StoreVal.Prim().Size())
				ops := []ir.Operand{in.StoreVal}
				if in.Mem != nil && in.Mem.Index != nil {
					ops = append(ops, ir.VarOperand(in.Mem.Index))
				}
				in.Parent.ReplaceWithMachine(in, flowProto{mnemonic}, ops)
			},
		},
		// LEA_STACK/LEA_SYMBOL carry their Frame/Symbol directly on the
		// Insn, the same way RegRead/RegWrite (regio.go) carry a register:
		// a pseudo marker with no RV encoding of its own, resolved once
		// frame layout and symbol addresses are known downstream.
		{
			Kind: ir.KindLeaStack,
			Emit: func(in *ir.Insn) {
				in.Parent.ReplaceWithMachine(in, flowProto{"lea.stack"}, nil)
			},
		},
		{
			Kind: ir.KindLeaSymbol,
			Emit: func(in *ir.Insn) {
				in.Parent.ReplaceWithMachine(in, flowProto{"lea.symbol"}, nil)
			},
		},
		// MEMCPY keeps its CopyDst/CopySrc/CopyLen and becomes an opaque
		// glue marker rather than an unrolled load/store sequence; a
		// future pass can expand it once frame layout makes the addresses
		// concrete.
		{
			Kind: ir.KindMemcpy,
			Emit: func(in *ir.Insn) {
				in.Parent.ReplaceWithMachine(in, flowProto{"memcpy.inline"}, nil)
			},
		},
		{
			Kind: ir.KindClobber,
			Emit: func(in *ir.Insn) {
				in.Parent.ReplaceWithMachine(in, flowProto{"clobber"}, nil)
			},
		},
		// UNDEFINED has no reaching definition to materialize (ssa's
		// construct.go binds one for a phi arm whose predecessor edge
		// never actually assigns the variable); "undef" is a marker like
		// RegRead/RegWrite, never meant to be encoded, since the phi arm
		// that reads it is only ever selected along an edge that isn't
		// taken at runtime.
		{
			Kind: ir.KindUndefined,
			Emit: func(in *ir.Insn) {
				in.Parent.ReplaceWithMachine(in, flowProto{"undef"}, nil)
			},
		},
	}
}
