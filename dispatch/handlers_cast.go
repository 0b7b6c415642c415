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

package dispatch

import (
	"encoding/binary"
	"fmt"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/bcheap"
	"github.com/corevm/bcvm/layout"
	"github.com/corevm/bcvm/stackslot"
)

// CastArg is the operand a Castclass/Isinst instruction carries: the
// assignability check itself is an external-collaborator concern (symbol
// resolution against on-disk type metadata, spec §1), so the decoded
// instruction simply carries the already-resolved predicate.
type CastArg struct {
	TargetTypeName  string
	CheckAssignable func(objAddr bcheap.Address) (bool, error)
}

// newCastHandler re-expresses CastOpCodeHandlerBase as composition: the
// common "pop a ref, check assignability" logic lives here, and
// onSuccess/onFailure supply what a subclass override would have done
// (spec §9's guidance to flatten inheritance chains into parameterized
// handlers).
func newCastHandler(op Opcode, onSuccess, onFailure func(ctx Context, objAddr bcheap.Address) (Result, error)) Handler {
	return Handler{
		Opcodes: []Opcode{op},
		Fn: func(ctx Context, instr Instruction) (Result, error) {
			slot, err := ctx.PopSlot()
			if err != nil {
				return Result{}, err
			}
			if slot.Hint != stackslot.Ref {
				return Result{}, fmt.Errorf("dispatch: %s on non-Ref slot: %w", op, bcerr.InvalidProgram)
			}
			arg, ok := instr.Arg.(CastArg)
			if !ok {
				return Result{}, fmt.Errorf("dispatch: %s missing cast operand: %w", op, bcerr.InvalidProgram)
			}
			null, err := slot.IsNull()
			if err != nil {
				return Result{}, err
			}
			if null == stackslot.True {
				// a null reference is assignable to any reference type
				return onSuccess(ctx, 0)
			}
			addr := bcheap.Address(binary.LittleEndian.Uint64(pad8(slot.Contents.Span().Bits())))
			ok2, err := arg.CheckAssignable(addr)
			if err != nil {
				return Result{}, err
			}
			if ok2 {
				return onSuccess(ctx, addr)
			}
			return onFailure(ctx, addr)
		},
	}
}

func pad8(b []byte) []byte {
	var out [8]byte
	copy(out[:], b)
	return out[:]
}

// CastHandlers returns the Castclass/Isinst/Box/Unbox/UnboxAny family.
func CastHandlers() []Handler {
	pushRef := func(ctx Context, objAddr bcheap.Address) (Result, error) {
		a := uint64(objAddr)
		ctx.PushSlot(stackslot.NewRef(int(ctx.Layout().PointerSize()), &a))
		return SuccessResult(), nil
	}
	throwInvalidCast := func(ctx Context, objAddr bcheap.Address) (Result, error) {
		exc, err := allocateOverflowException(ctx) // stand-in exception allocation (spec §7: shape is out of scope)
		if err != nil {
			return Result{}, err
		}
		return ThrowResult(exc), nil
	}
	pushNull := func(ctx Context, objAddr bcheap.Address) (Result, error) {
		ctx.PushSlot(stackslot.NewRef(int(ctx.Layout().PointerSize()), nil))
		return SuccessResult(), nil
	}
	return []Handler{
		newCastHandler(OpCastclass, pushRef, throwInvalidCast),
		newCastHandler(OpIsinst, pushRef, pushNull),
		boxHandler(),
		unboxHandler(OpUnbox, false),
		unboxHandler(OpUnboxAny, true),
	}
}

// BoxArg is the operand a Box instruction carries: the field sizes of the
// object to allocate, from which its size is computed.
type BoxArg struct {
	FieldSizes []uint32
}

func boxHandler() Handler {
	return Handler{
		Opcodes: []Opcode{OpBox},
		Fn: func(ctx Context, instr Instruction) (Result, error) {
			value, err := ctx.PopSlot()
			if err != nil {
				return Result{}, err
			}
			arg, _ := instr.Arg.(BoxArg)
			h := ctx.Heap()
			headerSize := ctx.Layout().ObjectHeaderSize()
			addr, err := h.AllocateObject(layout.KindObject, arg.FieldSizes, false)
			if err != nil {
				return Result{}, err
			}
			payloadAddr := bcheap.Address(uint32(addr) + headerSize)
			if err := h.Raw().Write(payloadAddr, value.Contents.Span().Bits()); err != nil {
				return Result{}, err
			}
			a := uint64(addr)
			ctx.PushSlot(stackslot.NewRef(int(ctx.Layout().PointerSize()), &a))
			return SuccessResult(), nil
		},
	}
}

// UnboxArg is the operand an Unbox/UnboxAny instruction carries: the
// boxed value's size in bytes.
type UnboxArg struct {
	ValueSize int
}

// unboxHandler implements UnboxHandlerBase: dataAddress = objectAddress +
// ObjectHeaderSize, then pushes either a managed pointer to the boxed
// payload (Unbox) or a copy of the value (UnboxAny), per spec §4.5.
func unboxHandler(op Opcode, copyValue bool) Handler {
	return Handler{
		Opcodes: []Opcode{op},
		Fn: func(ctx Context, instr Instruction) (Result, error) {
			slot, err := ctx.PopSlot()
			if err != nil {
				return Result{}, err
			}
			if slot.Hint != stackslot.Ref {
				return Result{}, fmt.Errorf("dispatch: %s on non-Ref slot: %w", op, bcerr.InvalidProgram)
			}
			null, err := slot.IsNull()
			if err != nil {
				return Result{}, err
			}
			if null != stackslot.False {
				return Result{}, fmt.Errorf("dispatch: %s on null or unknown reference: %w", op, bcerr.InvalidOperation)
			}
			objAddr := bcheap.Address(binary.LittleEndian.Uint64(pad8(slot.Contents.Span().Bits())))
			dataAddr := bcheap.Address(uint32(objAddr) + ctx.Layout().ObjectHeaderSize())
			arg, _ := instr.Arg.(UnboxArg)
			if copyValue {
				buf := make([]byte, arg.ValueSize)
				if err := ctx.Heap().Raw().Read(dataAddr, buf); err != nil {
					return Result{}, err
				}
				out := stackslot.NewStruct(arg.ValueSize)
				copy(out.Contents.Span().Bits(), buf)
				for i := range out.Contents.Span().Mask() {
					out.Contents.Span().Mask()[i] = 0xff
				}
				ctx.PushSlot(out)
			} else {
				a := uint64(dataAddr)
				ctx.PushSlot(stackslot.NewRef(int(ctx.Layout().PointerSize()), &a))
			}
			return SuccessResult(), nil
		},
	}
}
