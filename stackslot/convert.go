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

package stackslot

import (
	"fmt"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/bitvec"
)

// ConvertNativeInt reinterprets a Ref slot as a native, pointer-width
// integer: the result's bits are known only if the reference is known
// null (value 0); otherwise the bits are fully unknown (spec §4.4).
func (s Slot) ConvertNativeInt() (Slot, error) {
	if s.Hint != Ref {
		return Slot{}, fmt.Errorf("stackslot: ConvertNativeInt on non-Ref slot (%s): %w", s.Hint, bcerr.InvalidProgram)
	}
	null, err := s.IsNull()
	if err != nil {
		return Slot{}, err
	}
	out := NewInteger(s.size * 8)
	if null == True {
		out.Contents.Span().SetKnownZero()
	}
	return out, nil
}

// ConvertNarrowInt reinterprets a Ref slot as a narrow (1/2/4/8-byte)
// integer: bits are all known zero iff the reference is known null,
// otherwise fully unknown. Only the low targetBytes of the result carry
// meaning per spec §4.4.
func (s Slot) ConvertNarrowInt(targetBytes int) (Slot, error) {
	if s.Hint != Ref {
		return Slot{}, fmt.Errorf("stackslot: ConvertNarrowInt on non-Ref slot (%s): %w", s.Hint, bcerr.InvalidProgram)
	}
	null, err := s.IsNull()
	if err != nil {
		return Slot{}, err
	}
	out := NewInteger(targetBytes * 8)
	if null == True {
		out.Contents.Span().SetKnownZero()
	}
	return out, nil
}

// ConvertKind distinguishes the two Convert* realizations a reference
// source may take.
type ConvertKind int

const (
	// ConvertNative is a native-integer reinterpretation (I/U, 4 or 8
	// bytes matching pointer width): always succeeds.
	ConvertNative ConvertKind = iota
	// ConvertNarrow is a narrowing I1/I2/I4/I8/U1/U2/U4/U8 reinterpretation:
	// succeeds with the same reinterpretation rule as ConvertNative.
	ConvertNarrow
	// ConvertOther is any other narrowing conversion attempted on a
	// reference (e.g. to Float): always fails with InvalidCast.
	ConvertOther
)

// Convert dispatches a Convert* opcode applied to a Ref slot per spec
// §4.4: native-integer and narrow-integer conversions succeed with the
// reinterpretation rules implemented above; any other kind (ConvertOther)
// fails with InvalidCast.
func (s Slot) Convert(kind ConvertKind, targetBytes int) (Slot, error) {
	switch kind {
	case ConvertNative:
		return s.ConvertNativeInt()
	case ConvertNarrow:
		return s.ConvertNarrowInt(targetBytes)
	default:
		return Slot{}, fmt.Errorf("stackslot: narrowing Convert* on a reference: %w", bcerr.InvalidCast)
	}
}

// Reinterpret copies src's bits into a new slot tagged with hint, without
// altering the underlying byte/known-mask contents.
func Reinterpret(src bitvec.BitVectorSpan, hint TypeHint) Slot {
	bv := bitvec.New(src.Len())
	bv.Span().CopyFrom(src) //nolint:errcheck // same width by construction
	return Slot{Contents: bv, Hint: hint, size: src.Len() / 8}
}
