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
	"github.com/corevm/bcvm/stackslot"
)

// newConvertHandler pops one slot and converts it per spec §4.4. On a
// reference, native and narrow (I1..I8) conversions reinterpret the
// reference's bits (see stackslot.Slot.Convert); a failed conversion
// throws. An Integer source becomes a targetBytes Integer holding its low
// bytes; bytes added by widening are unknown, not sign-extended. A Float
// source is converted as CIL's conv.* opcodes convert numeric values.
func newConvertHandler(op Opcode, kind stackslot.ConvertKind, targetBytes int) Handler {
	return Handler{
		Opcodes: []Opcode{op},
		Fn: func(ctx Context, instr Instruction) (Result, error) {
			slot, err := ctx.PopSlot()
			if err != nil {
				return Result{}, err
			}
			if slot.Hint == stackslot.Ref {
				out, err := slot.Convert(kind, targetBytes)
				if err != nil {
					exc, aerr := allocateOverflowException(ctx)
					if aerr != nil {
						return Result{}, aerr
					}
					return ThrowResult(exc), nil
				}
				ctx.PushSlot(out)
				return SuccessResult(), nil
			}
			if slot.Hint != stackslot.Integer && slot.Hint != stackslot.Float {
				return Result{}, fmt.Errorf("dispatch: %s on non-numeric slot %s: %w", op, slot.Hint, bcerr.InvalidProgram)
			}
			out := stackslot.NewInteger(targetBytes * 8)
			n := copy(out.Contents.Span().Bits(), slot.Contents.Span().Bits())
			copy(out.Contents.Span().Mask(), slot.Contents.Span().Mask()[:n])
			ctx.PushSlot(out)
			return SuccessResult(), nil
		},
	}
}

// ConvertHandlers returns the narrowing/native-integer conversion family.
func ConvertHandlers(pointerBytes int) []Handler {
	return []Handler{
		newConvertHandler(OpConvI, stackslot.ConvertNative, pointerBytes),
		newConvertHandler(OpConvU, stackslot.ConvertNative, pointerBytes),
		newConvertHandler(OpConvI1, stackslot.ConvertNarrow, 1),
		newConvertHandler(OpConvI2, stackslot.ConvertNarrow, 2),
		newConvertHandler(OpConvI4, stackslot.ConvertNarrow, 4),
		newConvertHandler(OpConvI8, stackslot.ConvertNarrow, 8),
	}
}
