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

// Package bitvec implements a fixed-width, partial-information bit vector:
// a byte buffer paired with a parallel mask of known-bit flags. Arithmetic
// and logical operations propagate "unknown" conservatively so the same
// engine can execute fully-concrete and partially-symbolic code paths
// without duplicating opcode handlers.
package bitvec

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/ints"
	"github.com/dchest/siphash"
	"golang.org/x/sys/cpu"
)

// wideScan enables the 8-bytes-at-a-time known-mask fast path. Mirrors the
// teacher's portable-mode fallback (vm/interp.go's `portable` var): an
// AVX512-capable CPU gets the wide path unless overridden by env.
var wideScan = os.Getenv("BCVM_PORTABLE") == "" && cpu.X86.HasAVX512

// BitVector is an owned, fixed-width buffer of bits plus a parallel
// known-bit mask. Both bits and mask are ⌈n/8⌉ bytes.
type BitVector struct {
	nbits int
	bits  []byte
	mask  []byte
}

// New allocates a BitVector of the given bit-width with all bits unknown.
func New(nbits int) *BitVector {
	nbytes := byteLen(nbits)
	return &BitVector{
		nbits: nbits,
		bits:  make([]byte, nbytes),
		mask:  make([]byte, nbytes),
	}
}

// NewKnown allocates a BitVector of the given bit-width initialized to
// the little-endian bytes in v, fully known.
func NewKnown(nbits int, v []byte) *BitVector {
	bv := New(nbits)
	copy(bv.bits, v)
	full, last := fullMaskBytes(nbits)
	for i := range bv.mask {
		bv.mask[i] = full
	}
	if len(bv.mask) > 0 {
		bv.mask[len(bv.mask)-1] = last
	}
	return bv
}

func byteLen(nbits int) int {
	return (nbits + 7) / 8
}

// Clone returns a copy of b with independent bits/mask storage: mutating
// the clone through its Span never affects b.
func (b *BitVector) Clone() *BitVector {
	return &BitVector{
		nbits: b.nbits,
		bits:  append([]byte(nil), b.bits...),
		mask:  append([]byte(nil), b.mask...),
	}
}

// Len returns the bit-width of the vector.
func (b *BitVector) Len() int { return b.nbits }

// Span returns a view over the entire vector, aliasing its storage.
func (b *BitVector) Span() BitVectorSpan {
	return BitVectorSpan{nbits: b.nbits, bits: b.bits, mask: b.mask}
}

// IsKnown reports whether every bit in the vector is known. This is the
// narrow contract external collaborators (data-flow/dependency trackers)
// are expected to rely on, per spec §1.
func (b *BitVector) IsKnown() bool {
	return b.Span().IsFullyKnown()
}

// Size reports the vector's size in bytes, rounding the bit-width up.
func (b *BitVector) Size() int {
	return byteLen(b.nbits)
}

func (b *BitVector) String() string {
	return b.Span().String()
}

// BitVectorSpan is a non-owning view over a byte buffer plus known-mask,
// with the same invariants as BitVector. Writes through a span alias the
// owner's storage.
type BitVectorSpan struct {
	nbits int
	bits  []byte
	mask  []byte
}

// NewSpan constructs a span directly aliasing bits/mask, typically used by
// callers slicing into heap chunk storage (see layout.Factory's Slice*
// helpers).
func NewSpan(nbits int, bits, mask []byte) BitVectorSpan {
	return BitVectorSpan{nbits: nbits, bits: bits, mask: mask}
}

// Len returns the bit-width of the span.
func (s BitVectorSpan) Len() int { return s.nbits }

// Bits returns the raw (possibly partially-unknown) backing bytes.
func (s BitVectorSpan) Bits() []byte { return s.bits }

// Mask returns the known-bit mask bytes (1 = known, 0 = unknown).
func (s BitVectorSpan) Mask() []byte { return s.mask }

// IsFullyKnown reports whether every bit in the span is known.
func (s BitVectorSpan) IsFullyKnown() bool {
	full, partial := fullMaskBytes(s.nbits)
	interior := s.mask[:len(s.mask)-1]
	if wideScan {
		if !allOnesWide(interior) {
			return false
		}
	} else {
		for _, b := range interior {
			if b != full {
				return false
			}
		}
	}
	if len(s.mask) > 0 && s.mask[len(s.mask)-1] != partial {
		return false
	}
	return true
}

// allOnesWide checks 8 bytes at a time that every byte in buf is 0xff.
func allOnesWide(buf []byte) bool {
	for len(buf) >= 8 {
		if binary.LittleEndian.Uint64(buf) != 0xffffffffffffffff {
			return false
		}
		buf = buf[8:]
	}
	for _, b := range buf {
		if b != 0xff {
			return false
		}
	}
	return true
}

// fullMaskBytes returns the all-known mask byte for interior bytes and the
// (possibly partial) mask byte expected for the final byte of an n-bit span.
func fullMaskBytes(nbits int) (full, last byte) {
	full = 0xff
	rem := nbits % 8
	if rem == 0 {
		return full, full
	}
	return full, byte(1<<uint(rem)) - 1
}

// ClearKnown marks every bit in the span as unknown. Used whenever an
// operation cannot preserve knowledge of its result (spec §4.1).
func (s BitVectorSpan) ClearKnown() {
	for i := range s.mask {
		s.mask[i] = 0
	}
}

// SetKnownZero zeros the span's bits and marks them fully known. Used for
// "initialize" allocation semantics (spec §4.3).
func (s BitVectorSpan) SetKnownZero() {
	for i := range s.bits {
		s.bits[i] = 0
	}
	full, last := fullMaskBytes(s.nbits)
	for i := 0; i < len(s.mask)-1; i++ {
		s.mask[i] = full
	}
	if len(s.mask) > 0 {
		s.mask[len(s.mask)-1] = last
	}
}

// CopyFrom overwrites the receiver's bits and mask with src's. Both spans
// must have equal bit-width.
func (s BitVectorSpan) CopyFrom(src BitVectorSpan) error {
	if s.nbits != src.nbits {
		return fmt.Errorf("bitvec: CopyFrom width mismatch %d != %d: %w", s.nbits, src.nbits, bcerr.InvalidOperation)
	}
	copy(s.bits, src.bits)
	copy(s.mask, src.mask)
	return nil
}

// Equal reports whether two spans have identical bits and mask bytes.
func (s BitVectorSpan) Equal(o BitVectorSpan) bool {
	if s.nbits != o.nbits {
		return false
	}
	for i := range s.bits {
		if s.bits[i] != o.bits[i] || s.mask[i] != o.mask[i] {
			return false
		}
	}
	return true
}

// Hash returns a SipHash (keys k0, k1) over the span's bits followed by
// its known mask, the same construction the teacher reaches for when
// hashing symbol/partition data (vm/siphash_generic.go).
func (s BitVectorSpan) Hash(k0, k1 uint64) uint64 {
	buf := make([]byte, 0, len(s.bits)+len(s.mask))
	buf = append(buf, s.bits...)
	buf = append(buf, s.mask...)
	return siphash.Hash(k0, k1, buf)
}

func (s BitVectorSpan) String() string {
	out := make([]byte, s.nbits)
	for i := 0; i < s.nbits; i++ {
		if !ints.TestBit(s.mask, i) {
			out[s.nbits-1-i] = '?'
			continue
		}
		if ints.TestBit(s.bits, i) {
			out[s.nbits-1-i] = '1'
		} else {
			out[s.nbits-1-i] = '0'
		}
	}
	return string(out)
}
