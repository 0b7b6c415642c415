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
	"fmt"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/bcheap"
	"github.com/corevm/bcvm/bitvec"
	"github.com/corevm/bcvm/layout"
	"github.com/corevm/bcvm/stackslot"
)

// intOp is the shape every non-overflow-checked integer arithmetic op in
// bitvec shares.
type intOp func(dst, src bitvec.BitVectorSpan) error

// floatOp is the shape every float arithmetic op in bitvec shares.
type floatOp func(dst, src bitvec.BitVectorSpan) error

// popOperandPair pops the two operands of a binary op off the stack (rhs
// was pushed last, so it pops first) and checks that their type hints are
// compatible: both Integer or both Float (spec §4.5); mixed hints fail
// with InvalidProgram.
func popOperandPair(ctx Context) (lhs, rhs stackslot.Slot, err error) {
	rhs, err = ctx.PopSlot()
	if err != nil {
		return
	}
	lhs, err = ctx.PopSlot()
	if err != nil {
		return
	}
	if lhs.Hint != rhs.Hint {
		err = fmt.Errorf("dispatch: binary op on mismatched type hints %s/%s: %w", lhs.Hint, rhs.Hint, bcerr.InvalidProgram)
		return
	}
	if lhs.Hint != stackslot.Integer && lhs.Hint != stackslot.Float {
		err = fmt.Errorf("dispatch: binary op on non-arithmetic type hint %s: %w", lhs.Hint, bcerr.InvalidProgram)
		return
	}
	return
}

// newArith builds a generic binary-op handler parameterized by the
// integer and float bitvec ops to apply, re-expressing what would be an
// inheritance chain (BinaryOpCodeHandlerBase -> AddHandler, ...) in an OO
// source as composition (spec §9).
func newArith(op Opcode, intFn intOp, floatFn floatOp) Handler {
	return Handler{
		Opcodes: []Opcode{op},
		Fn: func(ctx Context, instr Instruction) (Result, error) {
			lhs, rhs, err := popOperandPair(ctx)
			if err != nil {
				return Result{}, err
			}
			dst, src := lhs.Contents.Span(), rhs.Contents.Span()
			if lhs.Hint == stackslot.Float {
				if err := floatFn(dst, src); err != nil {
					return Result{}, err
				}
			} else {
				if err := intFn(dst, src); err != nil {
					return Result{}, err
				}
			}
			ctx.PushSlot(lhs)
			return SuccessResult(), nil
		},
	}
}

// newCheckedArith builds a binary-op handler that additionally tests an
// overflow flag (signed or unsigned, per signed) and raises an
// OverflowException throw result when the flag is definitely set. An
// unknown flag must not throw (spec §4.5).
func newCheckedArith(op Opcode, signed bool, ovf func(dst, src bitvec.BitVectorSpan, signed bool) (bitvec.Overflow, error)) Handler {
	return Handler{
		Opcodes: []Opcode{op},
		Fn: func(ctx Context, instr Instruction) (Result, error) {
			lhs, rhs, err := popOperandPair(ctx)
			if err != nil {
				return Result{}, err
			}
			if lhs.Hint != stackslot.Integer {
				return Result{}, fmt.Errorf("dispatch: %s is integer-only: %w", op, bcerr.InvalidProgram)
			}
			dst, src := lhs.Contents.Span(), rhs.Contents.Span()
			flag, err := ovf(dst, src, signed)
			if err != nil {
				return Result{}, err
			}
			if flag == bitvec.OverflowTrue {
				exc, err := allocateOverflowException(ctx)
				if err != nil {
					return Result{}, err
				}
				return ThrowResult(exc), nil
			}
			ctx.PushSlot(lhs)
			return SuccessResult(), nil
		},
	}
}

// allocateOverflowException allocates a minimal exception object to
// carry in a Throw dispatch result. Real exception-object shape
// (message, stack trace) belongs to the out-of-scope exception-dispatch
// path (spec §7); this core only needs a valid reference to hand back.
func allocateOverflowException(ctx Context) (ref bcheap.Address, err error) {
	addr, err := ctx.Heap().AllocateObject(layout.KindObject, nil, true)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

// BinaryOpHandlers returns the Add/Sub/Mul/Div/Rem handler family,
// including their signed/unsigned and overflow-checked variants.
func BinaryOpHandlers() []Handler {
	return []Handler{
		newArith(OpAdd, func(dst, src bitvec.BitVectorSpan) error { return dst.IntegerAdd(src) }, func(dst, src bitvec.BitVectorSpan) error { return dst.FloatAdd(src) }),
		newArith(OpSub, func(dst, src bitvec.BitVectorSpan) error { return dst.IntegerSub(src) }, func(dst, src bitvec.BitVectorSpan) error { return dst.FloatSub(src) }),
		newArith(OpMul, func(dst, src bitvec.BitVectorSpan) error { return dst.IntegerMul(src) }, func(dst, src bitvec.BitVectorSpan) error { return dst.FloatMul(src) }),
		newArith(OpDiv, func(dst, src bitvec.BitVectorSpan) error { return dst.IntegerSDiv(src) }, func(dst, src bitvec.BitVectorSpan) error { return dst.FloatDiv(src) }),
		newArith(OpDivUn, func(dst, src bitvec.BitVectorSpan) error { return dst.IntegerDiv(src) }, func(dst, src bitvec.BitVectorSpan) error {
			return fmt.Errorf("dispatch: div.un has no float variant: %w", bcerr.InvalidProgram)
		}),
		newArith(OpRem, func(dst, src bitvec.BitVectorSpan) error { return dst.IntegerSRem(src) }, func(dst, src bitvec.BitVectorSpan) error {
			return fmt.Errorf("dispatch: rem requires integer operands for this handler; use a Float-aware caller: %w", bcerr.InvalidProgram)
		}),
		newArith(OpRemUn, func(dst, src bitvec.BitVectorSpan) error { return dst.IntegerRem(src) }, func(dst, src bitvec.BitVectorSpan) error {
			return fmt.Errorf("dispatch: rem.un has no float variant: %w", bcerr.InvalidProgram)
		}),
		newCheckedArith(OpAddOvf, true, func(dst, src bitvec.BitVectorSpan, signed bool) (bitvec.Overflow, error) { return dst.AddOvf(src, signed) }),
		newCheckedArith(OpAddOvfUn, false, func(dst, src bitvec.BitVectorSpan, signed bool) (bitvec.Overflow, error) { return dst.AddOvf(src, signed) }),
		newCheckedArith(OpSubOvf, true, func(dst, src bitvec.BitVectorSpan, signed bool) (bitvec.Overflow, error) { return dst.SubOvf(src, signed) }),
		newCheckedArith(OpSubOvfUn, false, func(dst, src bitvec.BitVectorSpan, signed bool) (bitvec.Overflow, error) { return dst.SubOvf(src, signed) }),
		newCheckedArith(OpMulOvf, true, func(dst, src bitvec.BitVectorSpan, signed bool) (bitvec.Overflow, error) { return dst.MulOvf(src, signed) }),
		newCheckedArith(OpMulOvfUn, false, func(dst, src bitvec.BitVectorSpan, signed bool) (bitvec.Overflow, error) { return dst.MulOvf(src, signed) }),
	}
}
