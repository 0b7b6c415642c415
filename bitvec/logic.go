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

// logicalBinop applies a per-byte bitwise op to the receiver in place,
// following the same known-mask policy as integerBinop: both operands
// must be fully known for the result to be marked known.
func (s BitVectorSpan) logicalBinop(rhs BitVectorSpan, op func(a, b byte) byte) error {
	if err := mustSameWidth(s, rhs); err != nil {
		return err
	}
	if !s.IsFullyKnown() || !rhs.IsFullyKnown() {
		s.ClearKnown()
		return nil
	}
	for i := range s.bits {
		s.bits[i] = op(s.bits[i], rhs.bits[i])
	}
	full, last := fullMaskBytes(s.nbits)
	for i := 0; i < len(s.mask)-1; i++ {
		s.mask[i] = full
	}
	if len(s.mask) > 0 {
		s.mask[len(s.mask)-1] = last
	}
	return nil
}

// And computes the bitwise AND of the receiver and rhs in place.
func (s BitVectorSpan) And(rhs BitVectorSpan) error {
	return s.logicalBinop(rhs, func(a, b byte) byte { return a & b })
}

// Or computes the bitwise OR of the receiver and rhs in place.
func (s BitVectorSpan) Or(rhs BitVectorSpan) error {
	return s.logicalBinop(rhs, func(a, b byte) byte { return a | b })
}

// Xor computes the bitwise XOR of the receiver and rhs in place.
func (s BitVectorSpan) Xor(rhs BitVectorSpan) error {
	return s.logicalBinop(rhs, func(a, b byte) byte { return a ^ b })
}

// Not complements the receiver in place. A fully-known input yields a
// fully-known output; any unknown bit taints the whole result, as there
// is no partner operand to preserve partial knowledge against.
func (s BitVectorSpan) Not() {
	if !s.IsFullyKnown() {
		s.ClearKnown()
		return
	}
	for i := range s.bits {
		s.bits[i] = ^s.bits[i]
	}
	full, last := fullMaskBytes(s.nbits)
	for i := 0; i < len(s.mask)-1; i++ {
		s.mask[i] = full
	}
	if len(s.mask) > 0 {
		s.mask[len(s.mask)-1] = last
	}
	// trim any complemented bits beyond nbits in the final byte
	if rem := s.nbits % 8; rem != 0 && len(s.bits) > 0 {
		s.bits[len(s.bits)-1] &= byte(1<<uint(rem)) - 1
	}
}

// Shl shifts the receiver left by n bits. On a fully-known receiver the
// bits shifted in from the low side are known zeros; any unknown bit
// makes the whole result unknown.
func (s BitVectorSpan) Shl(n uint) {
	if !s.IsFullyKnown() {
		s.ClearKnown()
		return
	}
	v, _ := s.asUint64()
	v = (v << n) & widthMask(s.nbits)
	s.putUint64(v)
}

// Shr shifts the receiver right by n bits, logically (zero-filling).
func (s BitVectorSpan) Shr(n uint) {
	if !s.IsFullyKnown() {
		s.ClearKnown()
		return
	}
	v, _ := s.asUint64()
	v = v >> n
	s.putUint64(v)
}

// Sar shifts the receiver right by n bits, arithmetically (sign-filling).
func (s BitVectorSpan) Sar(n uint) {
	if !s.IsFullyKnown() {
		s.ClearKnown()
		return
	}
	v, _ := s.asUint64()
	sv := signExtend(v, s.nbits)
	sv >>= n
	s.putUint64(uint64(sv) & widthMask(s.nbits))
}
