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

// Package stackslot is the evaluation-stack value model: a StackSlot pairs
// a bit-vector payload with a type hint used purely as a dispatch aid for
// arithmetic, never as a semantic type.
package stackslot

import (
	"fmt"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/bitvec"
)

// TypeHint selects integer vs IEEE-754 arithmetic on a slot; it is not a
// semantic type.
type TypeHint int

const (
	Integer TypeHint = iota
	Float
	Ref
	Struct
)

func (t TypeHint) String() string {
	switch t {
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Ref:
		return "Ref"
	case Struct:
		return "Struct"
	default:
		return "<Unknown>"
	}
}

// Slot is one evaluation-stack entry.
type Slot struct {
	Contents *bitvec.BitVector
	Hint     TypeHint
	size     int // bytes; for Ref this equals the machine's pointer width
}

// NewInteger constructs an Integer-hinted slot of the given bit-width,
// fully unknown.
func NewInteger(nbits int) Slot {
	return Slot{Contents: bitvec.New(nbits), Hint: Integer, size: (nbits + 7) / 8}
}

// NewFloat constructs a Float-hinted slot of the given bit-width (32 or
// 64), fully unknown.
func NewFloat(nbits int) Slot {
	return Slot{Contents: bitvec.New(nbits), Hint: Float, size: (nbits + 7) / 8}
}

// NewStruct constructs a Struct-hinted slot of the given byte size, fully
// unknown.
func NewStruct(size int) Slot {
	return Slot{Contents: bitvec.New(size * 8), Hint: Struct, size: size}
}

// NewRef constructs a Ref-hinted slot with pointerSize-byte contents. A
// nil addr means the reference is fully unknown; otherwise the contents
// hold the known pointer-width address (0 for a known-null reference).
func NewRef(pointerSize int, addr *uint64) Slot {
	bv := bitvec.New(pointerSize * 8)
	if addr != nil {
		span := bv.Span()
		putLE(span.Bits(), *addr)
		for i := range span.Mask() {
			span.Mask()[i] = 0xff
		}
	}
	return Slot{Contents: bv, Hint: Ref, size: pointerSize}
}

func putLE(buf []byte, v uint64) {
	for i := range buf {
		buf[i] = byte(v >> (8 * uint(i)))
	}
}

// Size returns the slot's size in bytes.
func (s Slot) Size() int { return s.size }

// Clone returns a copy of s backed by an independent BitVector, so
// mutating the clone's contents (as handlers do in place, spec §4.5)
// never affects s.
func (s Slot) Clone() Slot {
	return Slot{Contents: s.Contents.Clone(), Hint: s.Hint, size: s.size}
}

// Tribool is a three-valued truth value.
type Tribool int

const (
	False Tribool = iota
	True
	Unknown
)

// Not implements three-valued negation: Not(Unknown) == Unknown.
func (t Tribool) Not() Tribool {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// zeroTest is the three-valued "are all bits zero" predicate shared by
// IsNull and IsZero: a slot reads as zero iff every bit is both known and
// clear, Unknown if any bit is unknown, and False otherwise. It is
// hint-agnostic because brtrue/brfalse conditions are ordinary Integer
// slots, not references (spec §4.4).
func (s Slot) zeroTest() (Tribool, error) {
	span := s.Contents.Span()
	if !span.IsFullyKnown() {
		return Unknown, nil
	}
	for _, b := range span.Bits() {
		if b != 0 {
			return False, nil
		}
	}
	return True, nil
}

// IsNull evaluates the three-valued truth of "is this reference null".
// It fails with InvalidProgram for non-Ref slots.
func (s Slot) IsNull() (Tribool, error) {
	if s.Hint != Ref {
		return Unknown, fmt.Errorf("stackslot: IsNull on non-Ref slot (%s): %w", s.Hint, bcerr.InvalidProgram)
	}
	return s.zeroTest()
}

// IsZero is the three-valued "is this value zero" predicate the
// BrTrue/BrFalse/BrZero handler family consumes (spec §4.4). Unlike
// IsNull it accepts any slot kind: a branch condition is ordinarily an
// Integer slot, and a null reference also reads as zero.
func (s Slot) IsZero() (Tribool, error) { return s.zeroTest() }

// IsNonZero is the three-valued negation of IsZero.
func (s Slot) IsNonZero() (Tribool, error) {
	z, err := s.IsZero()
	if err != nil {
		return Unknown, err
	}
	return z.Not(), nil
}

// IsPositive is False when the reference is known-null, Unknown
// otherwise (spec §4.4) — a reference, known non-null or not, is never
// provably "positive" without a richer value domain.
func (s Slot) IsPositive() (Tribool, error) {
	null, err := s.IsNull()
	if err != nil {
		return Unknown, err
	}
	if null == True {
		return False, nil
	}
	return Unknown, nil
}

// IsNegative is always False for a reference slot.
func (s Slot) IsNegative() (Tribool, error) {
	if s.Hint != Ref {
		return Unknown, fmt.Errorf("stackslot: IsNegative on non-Ref slot (%s): %w", s.Hint, bcerr.InvalidProgram)
	}
	return False, nil
}
