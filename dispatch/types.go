// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package dispatch implements the opcode dispatch table: a map from
// opcode to exactly one handler, built once at startup and looked up in
// O(1) by the step loop. Handler families (binary arithmetic, branches,
// cast/box/unbox, pointer prefixes) are expressed as composition — a
// generic handler constructor parameterized by small op/predicate
// functions — rather than the inheritance chains a managed-bytecode
// interpreter written in an OO language would use for the same thing
// (spec §9).
package dispatch

import (
	"fmt"

	"github.com/corevm/bcvm/bcheap"
	"github.com/corevm/bcvm/genctx"
	"github.com/corevm/bcvm/layout"
	"github.com/corevm/bcvm/stackslot"
)

// Opcode is a closed-set instruction identifier. The set here samples the
// instruction families spec §4.5 names; a real front end would generate
// this list from a richer metadata source (out of scope, spec §1).
type Opcode uint16

const (
	OpAdd Opcode = iota
	OpAddOvf
	OpAddOvfUn
	OpSub
	OpSubOvf
	OpSubOvfUn
	OpMul
	OpMulOvf
	OpMulOvfUn
	OpDiv
	OpDivUn
	OpRem
	OpRemUn
	OpBrTrue
	OpBrFalse
	OpBrZero
	OpCastclass
	OpIsinst
	OpBox
	OpUnbox
	OpUnboxAny
	OpConvI
	OpConvU
	OpConvI1
	OpConvI2
	OpConvI4
	OpConvI8
	OpUnaligned
	OpVolatile
	OpReadonly
	opcodeCount
)

var opcodeNames = [...]string{
	OpAdd: "add", OpAddOvf: "add.ovf", OpAddOvfUn: "add.ovf.un",
	OpSub: "sub", OpSubOvf: "sub.ovf", OpSubOvfUn: "sub.ovf.un",
	OpMul: "mul", OpMulOvf: "mul.ovf", OpMulOvfUn: "mul.ovf.un",
	OpDiv: "div", OpDivUn: "div.un", OpRem: "rem", OpRemUn: "rem.un",
	OpBrTrue: "brtrue", OpBrFalse: "brfalse", OpBrZero: "brzero",
	OpCastclass: "castclass", OpIsinst: "isinst",
	OpBox: "box", OpUnbox: "unbox", OpUnboxAny: "unbox.any",
	OpConvI: "conv.i", OpConvU: "conv.u",
	OpConvI1: "conv.i1", OpConvI2: "conv.i2", OpConvI4: "conv.i4", OpConvI8: "conv.i8",
	OpUnaligned: "unaligned.", OpVolatile: "volatile.", OpReadonly: "readonly.",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) && opcodeNames[o] != "" {
		return opcodeNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// Instruction is one decoded bytecode instruction: an opcode plus
// whatever operands it needs (branch target, target-type descriptor,
// narrowing width). Operand shapes vary per opcode family; handlers type-
// assert Arg into the shape they expect.
type Instruction struct {
	Op  Opcode
	Arg any
}

// ResultKind distinguishes the three dispatch outcomes spec §4.5 names.
type ResultKind int

const (
	Success ResultKind = iota
	Branch
	Throw
)

// Result is the outcome of dispatching one instruction.
type Result struct {
	Kind      ResultKind
	Target    int            // valid when Kind == Branch
	Exception bcheap.Address // valid when Kind == Throw
	unknown   bool           // set by branch handlers under an Unknown condition
}

// SuccessResult builds a fall-through result.
func SuccessResult() Result { return Result{Kind: Success} }

// BranchResult builds a taken-branch result targeting ip.
func BranchResult(ip int) Result { return Result{Kind: Branch, Target: ip} }

// ThrowResult builds an exception result carrying a reference to a
// newly-allocated exception object.
func ThrowResult(exc bcheap.Address) Result { return Result{Kind: Throw, Exception: exc} }

// Context is the capability set a handler needs from the caller's
// execution frame: a LIFO evaluation stack, heap/layout access, and the
// current generic context. vmexec.Frame implements this interface; the
// dispatch package never imports vmexec, avoiding an import cycle between
// "the table handlers run against" and "the frame that owns the table".
type Context interface {
	PopSlot() (stackslot.Slot, error)
	PushSlot(stackslot.Slot)
	Heap() *bcheap.ManagedObjectHeap
	Layout() *layout.Factory
	GenericContext() genctx.Context
	IP() int
}

// HandlerFunc executes the behavior of one or more opcodes.
type HandlerFunc func(ctx Context, instr Instruction) (Result, error)

// Handler is a declaratively-registered behavior object: it advertises
// the non-empty set of opcodes it serves (spec §6).
type Handler struct {
	Opcodes []Opcode
	Fn      HandlerFunc
}
