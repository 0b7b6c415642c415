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

// Package vmexec is the execution context: a Frame carries the evaluation
// stack, instruction pointer, locals, and generic context one method
// activation needs, and Run drives the dispatch table's step loop over a
// decoded instruction stream, the same fetch/dispatch/advance shape
// vm.run's bytecode loop uses for its own opcode stream.
package vmexec

import (
	"fmt"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/bcheap"
	"github.com/corevm/bcvm/dispatch"
	"github.com/corevm/bcvm/genctx"
	"github.com/corevm/bcvm/layout"
	"github.com/corevm/bcvm/stackslot"
)

// Frame is one method activation: (method, ip, evaluationStack, locals,
// genericContext), per the execution-frame tuple. Its stack is mutated
// only by the handler processing the current instruction; locals are
// addressed by index and reserved for future ldloc/stloc-family handlers.
type Frame struct {
	Method string

	stack  []stackslot.Slot
	locals []stackslot.Slot
	ip     int
	gen    genctx.Context

	heap *bcheap.ManagedObjectHeap
	lf   *layout.Factory
}

// NewFrame constructs a fresh frame over heap/lf, with numLocals
// zero-valued Integer locals (spec §4.2's default-initialized locals) and
// an empty evaluation stack.
func NewFrame(method string, heap *bcheap.ManagedObjectHeap, lf *layout.Factory, gen genctx.Context, numLocals int) *Frame {
	locals := make([]stackslot.Slot, numLocals)
	for i := range locals {
		locals[i] = stackslot.NewInteger(int(lf.PointerSize()) * 8)
		locals[i].Contents.Span().SetKnownZero()
	}
	return &Frame{Method: method, heap: heap, lf: lf, gen: gen, locals: locals}
}

// PopSlot implements dispatch.Context: it removes and returns the top of
// the evaluation stack, failing with InvalidOperation on underflow.
func (f *Frame) PopSlot() (stackslot.Slot, error) {
	if len(f.stack) == 0 {
		return stackslot.Slot{}, fmt.Errorf("vmexec: evaluation stack underflow in %q at ip=%d: %w", f.Method, f.ip, bcerr.InvalidOperation)
	}
	top := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return top, nil
}

// PushSlot implements dispatch.Context: it appends s to the top of the
// evaluation stack.
func (f *Frame) PushSlot(s stackslot.Slot) {
	f.stack = append(f.stack, s)
}

// Heap implements dispatch.Context.
func (f *Frame) Heap() *bcheap.ManagedObjectHeap { return f.heap }

// Layout implements dispatch.Context.
func (f *Frame) Layout() *layout.Factory { return f.lf }

// GenericContext implements dispatch.Context.
func (f *Frame) GenericContext() genctx.Context { return f.gen }

// IP implements dispatch.Context.
func (f *Frame) IP() int { return f.ip }

// StackDepth reports the number of slots currently on the evaluation
// stack, for diagnostics and test assertions.
func (f *Frame) StackDepth() int { return len(f.stack) }

// PeekSlot returns the top of the evaluation stack without removing it,
// failing with InvalidOperation if empty.
func (f *Frame) PeekSlot() (stackslot.Slot, error) {
	if len(f.stack) == 0 {
		return stackslot.Slot{}, fmt.Errorf("vmexec: PeekSlot on empty stack in %q: %w", f.Method, bcerr.InvalidOperation)
	}
	return f.stack[len(f.stack)-1], nil
}

// GetLocal reads local variable slot i, failing with InvalidArgument if
// out of range.
func (f *Frame) GetLocal(i int) (stackslot.Slot, error) {
	if i < 0 || i >= len(f.locals) {
		return stackslot.Slot{}, fmt.Errorf("vmexec: local index %d out of range (%d locals) in %q: %w", i, len(f.locals), f.Method, bcerr.InvalidArgument)
	}
	return f.locals[i], nil
}

// SetLocal writes local variable slot i, failing with InvalidArgument if
// out of range.
func (f *Frame) SetLocal(i int, s stackslot.Slot) error {
	if i < 0 || i >= len(f.locals) {
		return fmt.Errorf("vmexec: local index %d out of range (%d locals) in %q: %w", i, len(f.locals), f.Method, bcerr.InvalidArgument)
	}
	f.locals[i] = s
	return nil
}

// clone returns a deep copy of f for use as a forked successor: the
// evaluation stack and locals are copied slot-by-slot via Slot.Clone, not
// just the slice headers, because binary-op handlers mutate a slot's
// BitVector in place before pushing the same Slot back (spec §4.5,
// dispatch.newArith/newCheckedArith). Without a deep copy, a Slot that
// survives the fork boundary would still alias its Contents between the
// fall-through and taken Frames, so arithmetic on one path would corrupt
// the other's value of the same slot.
func (f *Frame) clone() *Frame {
	out := &Frame{
		Method: f.Method,
		ip:     f.ip,
		gen:    f.gen,
		heap:   f.heap,
		lf:     f.lf,
	}
	out.stack = make([]stackslot.Slot, len(f.stack))
	for i, s := range f.stack {
		out.stack[i] = s.Clone()
	}
	out.locals = make([]stackslot.Slot, len(f.locals))
	for i, s := range f.locals {
		out.locals[i] = s.Clone()
	}
	return out
}
