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

package bitvec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/corevm/bcvm/bcerr"
)

// the widths the integer ops in this file compute exactly via uint64
// math; wider spans fall back to the conservative mask-clearing policy
// (asUint64 reports them as not exact).
const maxExactIntWidth = 64

func (s BitVectorSpan) asUint64() (uint64, bool) {
	if s.nbits > maxExactIntWidth || !s.IsFullyKnown() {
		return 0, false
	}
	var buf [8]byte
	copy(buf[:], s.bits)
	return binary.LittleEndian.Uint64(buf[:]), true
}

func (s BitVectorSpan) putUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(s.bits, buf[:len(s.bits)])
	// clear any high bits beyond nbits within the final byte
	if rem := s.nbits % 8; rem != 0 && len(s.bits) > 0 {
		s.bits[len(s.bits)-1] &= byte(1<<uint(rem)) - 1
	}
}

// mustSameWidth validates that two spans about to be combined share a
// bit-width, the precondition for every arithmetic/logic op in this file.
func mustSameWidth(a, b BitVectorSpan) error {
	if a.nbits != b.nbits {
		return fmt.Errorf("bitvec: width mismatch %d != %d: %w", a.nbits, b.nbits, bcerr.InvalidOperation)
	}
	return nil
}

// integerBinop implements the "policy used" mask rule from spec §4.1: if
// both operands are fully known, compute exactly and mark fully known;
// otherwise the result is fully unknown.
func (s BitVectorSpan) integerBinop(rhs BitVectorSpan, exact func(a, b uint64) uint64) error {
	if err := mustSameWidth(s, rhs); err != nil {
		return err
	}
	a, aok := s.asUint64()
	b, bok := rhs.asUint64()
	if !aok || !bok {
		s.ClearKnown()
		return nil
	}
	s.putUint64(exact(a, b))
	full, last := fullMaskBytes(s.nbits)
	for i := 0; i < len(s.mask)-1; i++ {
		s.mask[i] = full
	}
	if len(s.mask) > 0 {
		s.mask[len(s.mask)-1] = last
	}
	return nil
}

// IntegerAdd adds rhs into the receiver, little-endian two's complement.
func (s BitVectorSpan) IntegerAdd(rhs BitVectorSpan) error {
	return s.integerBinop(rhs, func(a, b uint64) uint64 { return a + b })
}

// IntegerSub subtracts rhs from the receiver.
func (s BitVectorSpan) IntegerSub(rhs BitVectorSpan) error {
	return s.integerBinop(rhs, func(a, b uint64) uint64 { return a - b })
}

// IntegerMul multiplies the receiver by rhs.
func (s BitVectorSpan) IntegerMul(rhs BitVectorSpan) error {
	return s.integerBinop(rhs, func(a, b uint64) uint64 { return a * b })
}

// IntegerDiv performs unsigned division; a zero, fully-known divisor fails
// with InvalidArgument. Signed division is IntegerSDiv.
func (s BitVectorSpan) IntegerDiv(rhs BitVectorSpan) error {
	if err := mustSameWidth(s, rhs); err != nil {
		return err
	}
	b, bok := rhs.asUint64()
	if bok && b == 0 {
		return fmt.Errorf("bitvec: IntegerDiv by zero: %w", bcerr.InvalidArgument)
	}
	return s.integerBinop(rhs, func(a, b uint64) uint64 { return a / b })
}

// IntegerRem computes the unsigned remainder of the receiver by rhs.
func (s BitVectorSpan) IntegerRem(rhs BitVectorSpan) error {
	if err := mustSameWidth(s, rhs); err != nil {
		return err
	}
	b, bok := rhs.asUint64()
	if bok && b == 0 {
		return fmt.Errorf("bitvec: IntegerRem by zero: %w", bcerr.InvalidArgument)
	}
	return s.integerBinop(rhs, func(a, b uint64) uint64 { return a % b })
}

// IntegerSDiv performs signed division.
func (s BitVectorSpan) IntegerSDiv(rhs BitVectorSpan) error {
	if err := mustSameWidth(s, rhs); err != nil {
		return err
	}
	b, bok := rhs.asUint64()
	if bok && b == 0 {
		return fmt.Errorf("bitvec: IntegerSDiv by zero: %w", bcerr.InvalidArgument)
	}
	nbits := s.nbits
	return s.integerBinop(rhs, func(a, b uint64) uint64 {
		sa, sb := signExtend(a, nbits), signExtend(b, nbits)
		return uint64(sa/sb) & widthMask(nbits)
	})
}

// IntegerSRem computes the signed remainder of the receiver by rhs.
func (s BitVectorSpan) IntegerSRem(rhs BitVectorSpan) error {
	if err := mustSameWidth(s, rhs); err != nil {
		return err
	}
	b, bok := rhs.asUint64()
	if bok && b == 0 {
		return fmt.Errorf("bitvec: IntegerSRem by zero: %w", bcerr.InvalidArgument)
	}
	nbits := s.nbits
	return s.integerBinop(rhs, func(a, b uint64) uint64 {
		sa, sb := signExtend(a, nbits), signExtend(b, nbits)
		return uint64(sa%sb) & widthMask(nbits)
	})
}

// Overflow is a three-valued overflow flag: Known-true, Known-false, or
// Unknown when the operand mask was not fully known (spec §4.1).
type Overflow int

const (
	OverflowFalse Overflow = iota
	OverflowTrue
	OverflowUnknown
)

// AddOvf adds rhs into the receiver and additionally reports signed or
// unsigned overflow, selected by signed. When either operand is not
// fully known the arithmetic result is fully unknown and the overflow
// flag is OverflowUnknown (never a throw-triggering true).
func (s BitVectorSpan) AddOvf(rhs BitVectorSpan, signed bool) (Overflow, error) {
	if err := mustSameWidth(s, rhs); err != nil {
		return OverflowUnknown, err
	}
	a, aok := s.asUint64()
	b, bok := rhs.asUint64()
	if !aok || !bok {
		s.ClearKnown()
		return OverflowUnknown, nil
	}
	sum := a + b
	var ovf bool
	if signed {
		sa, sb, ssum := signExtend(a, s.nbits), signExtend(b, s.nbits), signExtend(sum, s.nbits)
		ovf = (sa >= 0) == (sb >= 0) && (ssum >= 0) != (sa >= 0)
	} else {
		mask := widthMask(s.nbits)
		ovf = (sum & mask) < (a & mask)
	}
	s.putUint64(sum)
	full, last := fullMaskBytes(s.nbits)
	for i := 0; i < len(s.mask)-1; i++ {
		s.mask[i] = full
	}
	if len(s.mask) > 0 {
		s.mask[len(s.mask)-1] = last
	}
	if ovf {
		return OverflowTrue, nil
	}
	return OverflowFalse, nil
}

// SubOvf subtracts rhs from the receiver and reports overflow, mirroring
// AddOvf's three-valued policy.
func (s BitVectorSpan) SubOvf(rhs BitVectorSpan, signed bool) (Overflow, error) {
	if err := mustSameWidth(s, rhs); err != nil {
		return OverflowUnknown, err
	}
	a, aok := s.asUint64()
	b, bok := rhs.asUint64()
	if !aok || !bok {
		s.ClearKnown()
		return OverflowUnknown, nil
	}
	diff := a - b
	var ovf bool
	if signed {
		sa, sb, sdiff := signExtend(a, s.nbits), signExtend(b, s.nbits), signExtend(diff, s.nbits)
		ovf = (sa >= 0) != (sb >= 0) && (sdiff >= 0) != (sa >= 0)
	} else {
		mask := widthMask(s.nbits)
		ovf = (a & mask) < (b & mask)
	}
	s.putUint64(diff)
	full, last := fullMaskBytes(s.nbits)
	for i := 0; i < len(s.mask)-1; i++ {
		s.mask[i] = full
	}
	if len(s.mask) > 0 {
		s.mask[len(s.mask)-1] = last
	}
	if ovf {
		return OverflowTrue, nil
	}
	return OverflowFalse, nil
}

// MulOvf multiplies the receiver by rhs and reports overflow.
func (s BitVectorSpan) MulOvf(rhs BitVectorSpan, signed bool) (Overflow, error) {
	if err := mustSameWidth(s, rhs); err != nil {
		return OverflowUnknown, err
	}
	a, aok := s.asUint64()
	b, bok := rhs.asUint64()
	if !aok || !bok {
		s.ClearKnown()
		return OverflowUnknown, nil
	}
	mask := widthMask(s.nbits)
	prod := (a * b) & mask
	var ovf bool
	if signed {
		sa, sb, sprod := signExtend(a, s.nbits), signExtend(b, s.nbits), signExtend(prod, s.nbits)
		if sa != 0 {
			ovf = sprod/sa != sb
		}
	} else {
		if a != 0 && (prod/a) != (b&mask) {
			ovf = true
		}
	}
	s.putUint64(prod)
	full, last := fullMaskBytes(s.nbits)
	for i := 0; i < len(s.mask)-1; i++ {
		s.mask[i] = full
	}
	if len(s.mask) > 0 {
		s.mask[len(s.mask)-1] = last
	}
	if ovf {
		return OverflowTrue, nil
	}
	return OverflowFalse, nil
}

func widthMask(nbits int) uint64 {
	if nbits >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(nbits)) - 1
}

func signExtend(v uint64, nbits int) int64 {
	if nbits >= 64 {
		return int64(v)
	}
	shift := 64 - uint(nbits)
	return int64(v<<shift) >> shift
}

// FloatAdd/FloatSub/FloatMul/FloatDiv interpret the span's bytes as
// IEEE-754 binary32 (width 32) or binary64 (width 64); other widths fail
// with InvalidOperation (spec §4.1).

func (s BitVectorSpan) floatBinop(rhs BitVectorSpan, op func(a, b float64) float64) error {
	if err := mustSameWidth(s, rhs); err != nil {
		return err
	}
	if s.nbits != 32 && s.nbits != 64 {
		return fmt.Errorf("bitvec: float width %d unsupported: %w", s.nbits, bcerr.InvalidOperation)
	}
	if !s.IsFullyKnown() || !rhs.IsFullyKnown() {
		s.ClearKnown()
		return nil
	}
	var a, b, result float64
	if s.nbits == 32 {
		a = float64(math.Float32frombits(binary.LittleEndian.Uint32(s.bits)))
		b = float64(math.Float32frombits(binary.LittleEndian.Uint32(rhs.bits)))
		result = op(a, b)
		binary.LittleEndian.PutUint32(s.bits, math.Float32bits(float32(result)))
	} else {
		a = math.Float64frombits(binary.LittleEndian.Uint64(s.bits))
		b = math.Float64frombits(binary.LittleEndian.Uint64(rhs.bits))
		result = op(a, b)
		binary.LittleEndian.PutUint64(s.bits, math.Float64bits(result))
	}
	for i := range s.mask {
		s.mask[i] = 0xff
	}
	return nil
}

func (s BitVectorSpan) FloatAdd(rhs BitVectorSpan) error {
	return s.floatBinop(rhs, func(a, b float64) float64 { return a + b })
}

func (s BitVectorSpan) FloatSub(rhs BitVectorSpan) error {
	return s.floatBinop(rhs, func(a, b float64) float64 { return a - b })
}

func (s BitVectorSpan) FloatMul(rhs BitVectorSpan) error {
	return s.floatBinop(rhs, func(a, b float64) float64 { return a * b })
}

func (s BitVectorSpan) FloatDiv(rhs BitVectorSpan) error {
	return s.floatBinop(rhs, func(a, b float64) float64 { return a / b })
}
