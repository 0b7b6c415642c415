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

// Package bcheap implements the raw, untyped chunked allocator the
// emulation core allocates objects, arrays and strings out of
// (bcheap.BasicHeap), and the typed façade layered on top of it
// (ManagedObjectHeap, in managed.go). Chunk storage is bit-vector backed
// so every byte carries a companion known-bit, per the three-valued
// memory model the rest of the core assumes.
package bcheap

import (
	"fmt"
	"sort"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/bitvec"
	"github.com/corevm/bcvm/diag"
	"github.com/corevm/bcvm/heap"
	"github.com/corevm/bcvm/ints"
)

// Address is a stable identifier for a live chunk's base byte. Addresses
// are opaque outside this package beyond ordering and equality.
type Address uint32

// AddressRange describes the byte range [Base, Base+Size) of a chunk.
type AddressRange struct {
	Base Address
	Size uint32
}

func (r AddressRange) contains(a Address) bool {
	return a >= r.Base && uint64(a) < uint64(r.Base)+uint64(r.Size)
}

type chunk struct {
	rng AddressRange
	bv  *bitvec.BitVector
}

// freeRange is one entry of the free list, which is kept min-heap-ordered
// by Size (then Base).
type freeRange struct {
	rng AddressRange
}

func freeLess(a, b freeRange) bool {
	if a.rng.Size != b.rng.Size {
		return a.rng.Size < b.rng.Size
	}
	return a.rng.Base < b.rng.Base
}

// BasicHeap is a bump-or-freelist allocator with a fixed maximum size. It
// is not safe for concurrent mutation (spec §5); multiple heaps may run
// in parallel if disjoint.
type BasicHeap struct {
	maxSize uint32
	bump    Address // next address to carve from if the free list has no fit
	origin  Address // reporting bias applied by Rebase
	live    map[Address]*chunk
	free    []freeRange
}

// NewBasicHeap constructs an empty heap with the given maximum size in
// bytes. Internal address 0 is never handed out, so no live chunk reads as
// a null reference; at most maxSize-1 bytes can be allocated.
func NewBasicHeap(maxSize uint32) *BasicHeap {
	return &BasicHeap{
		maxSize: maxSize,
		bump:    1,
		live:    make(map[Address]*chunk),
	}
}

func (h *BasicHeap) external(a Address) Address { return a + h.origin }
func (h *BasicHeap) internal(a Address) Address { return a - h.origin }

// Allocate returns a new chunk of exactly n bytes. If initialize, bits
// and mask are zeroed (fully known zero); otherwise bits are unspecified
// and mask is zero (fully unknown).
func (h *BasicHeap) Allocate(n uint32, initialize bool) (Address, error) {
	base, err := h.reserve(n)
	if err != nil {
		return 0, err
	}
	bv := bitvec.New(int(n) * 8)
	if initialize {
		bv.Span().SetKnownZero()
	}
	h.live[base] = &chunk{rng: AddressRange{Base: base, Size: n}, bv: bv}
	diag.Debugln(fmt.Sprintf("bcheap: allocated %d bytes at %#x", n, h.external(base)))
	return h.external(base), nil
}

// reserve finds n contiguous internal bytes, preferring the smallest
// free-list entry that fits before falling back to the bump pointer.
func (h *BasicHeap) reserve(n uint32) (Address, error) {
	if n == 0 {
		return h.bump, nil
	}
	if idx := h.bestFit(n); idx >= 0 {
		entry := h.free[idx]
		h.removeFree(idx)
		base := entry.rng.Base
		if leftover := entry.rng.Size - n; leftover > 0 {
			h.coalesceFreeRange(AddressRange{Base: base + Address(n), Size: leftover})
		}
		return base, nil
	}
	if uint64(h.bump)+uint64(n) > uint64(h.maxSize) {
		return 0, fmt.Errorf("bcheap: cannot satisfy %d-byte allocation (max size %d): %w", n, h.maxSize, bcerr.OutOfMemory)
	}
	base := h.bump
	h.bump += Address(n)
	return base, nil
}

// bestFit returns the index of the smallest free range that can hold n
// bytes, or -1 if none fits. It is a linear scan over every free range;
// the heap order of the free list does not shorten it.
func (h *BasicHeap) bestFit(n uint32) int {
	best := -1
	for i, fr := range h.free {
		if fr.rng.Size < n {
			continue
		}
		if best == -1 || fr.rng.Size < h.free[best].rng.Size {
			best = i
		}
	}
	return best
}

func (h *BasicHeap) removeFree(idx int) {
	last := len(h.free) - 1
	h.free[idx] = h.free[last]
	h.free = h.free[:last]
	if idx < len(h.free) {
		heap.FixSlice(h.free, idx, freeLess)
	}
}

// Free releases the chunk at address a. Freeing a non-base address fails
// with InvalidArgument.
func (h *BasicHeap) Free(a Address) error {
	internalAddr := h.internal(a)
	c, ok := h.live[internalAddr]
	if !ok {
		return fmt.Errorf("bcheap: %#x is not a live chunk base: %w", a, bcerr.InvalidArgument)
	}
	delete(h.live, internalAddr)
	h.coalesceFreeRange(c.rng)
	diag.Debugln(fmt.Sprintf("bcheap: freed %d bytes at %#x", c.rng.Size, a))
	return nil
}

// coalesceFreeRange merges rng into the free list, fusing it with any
// adjacent or overlapping free ranges via ints.Intervals.Compress instead
// of leaving fragmentation for bestFit to scan around on every allocation.
func (h *BasicHeap) coalesceFreeRange(rng AddressRange) {
	merged := make(ints.Intervals, 0, len(h.free)+1)
	merged = append(merged, ints.Interval{Start: int(rng.Base), End: int(rng.Base) + int(rng.Size)})
	for _, fr := range h.free {
		merged = append(merged, ints.Interval{Start: int(fr.rng.Base), End: int(fr.rng.Base) + int(fr.rng.Size)})
	}
	merged.Compress()

	h.free = h.free[:0]
	for _, iv := range merged {
		heap.PushSlice(&h.free, freeRange{rng: AddressRange{Base: Address(iv.Start), Size: uint32(iv.Len())}}, freeLess)
	}
}

// IsValidAddress reports whether a is the base of a live chunk.
func (h *BasicHeap) IsValidAddress(a Address) bool {
	_, ok := h.live[h.internal(a)]
	return ok
}

// GetChunkSpan returns a view over the chunk's contents, aliasing its
// storage.
func (h *BasicHeap) GetChunkSpan(a Address) (bitvec.BitVectorSpan, error) {
	c, ok := h.live[h.internal(a)]
	if !ok {
		return bitvec.BitVectorSpan{}, fmt.Errorf("bcheap: %#x is not a live chunk base: %w", a, bcerr.InvalidArgument)
	}
	return c.bv.Span(), nil
}

// GetChunkSize returns the size in bytes of the chunk at address a.
func (h *BasicHeap) GetChunkSize(a Address) (uint32, error) {
	c, ok := h.live[h.internal(a)]
	if !ok {
		return 0, fmt.Errorf("bcheap: %#x is not a live chunk base: %w", a, bcerr.InvalidArgument)
	}
	return c.rng.Size, nil
}

// GetAllocatedChunks returns a snapshot of live chunk address ranges,
// sorted by base address. Subsequent Allocate/Free calls do not affect
// an already-returned snapshot.
func (h *BasicHeap) GetAllocatedChunks() []AddressRange {
	out := make([]AddressRange, 0, len(h.live))
	for _, c := range h.live {
		rng := c.rng
		rng.Base = h.external(rng.Base)
		out = append(out, rng)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}

// findContaining locates the live chunk whose range contains a, if any.
func (h *BasicHeap) findContaining(a Address) (*chunk, bool) {
	internalAddr := h.internal(a)
	for _, c := range h.live {
		if c.rng.contains(internalAddr) {
			return c, true
		}
	}
	return nil, false
}

// Read copies len(buf) bytes starting at address a into buf. Out-of-range
// reads fail with AccessViolation.
func (h *BasicHeap) Read(a Address, buf []byte) error {
	c, ok := h.findContaining(a)
	if !ok {
		return fmt.Errorf("bcheap: read at %#x: %w", a, bcerr.AccessViolation)
	}
	off := uint32(h.internal(a) - c.rng.Base)
	if uint64(off)+uint64(len(buf)) > uint64(c.rng.Size) {
		return fmt.Errorf("bcheap: read [%d,%d) exceeds %d-byte chunk: %w", off, off+uint32(len(buf)), c.rng.Size, bcerr.AccessViolation)
	}
	copy(buf, c.bv.Span().Bits()[off:])
	return nil
}

// Write copies buf into the chunk at address a. Out-of-range writes fail
// with AccessViolation.
func (h *BasicHeap) Write(a Address, buf []byte) error {
	c, ok := h.findContaining(a)
	if !ok {
		return fmt.Errorf("bcheap: write at %#x: %w", a, bcerr.AccessViolation)
	}
	off := uint32(h.internal(a) - c.rng.Base)
	if uint64(off)+uint64(len(buf)) > uint64(c.rng.Size) {
		return fmt.Errorf("bcheap: write [%d,%d) exceeds %d-byte chunk: %w", off, off+uint32(len(buf)), c.rng.Size, bcerr.AccessViolation)
	}
	span := c.bv.Span()
	copy(span.Bits()[off:], buf)
	for i := off; i < off+uint32(len(buf)); i++ {
		byteIdx := i
		span.Mask()[byteIdx] = 0xff
	}
	return nil
}

// Rebase shifts the heap's reported address range to start at b without
// moving stored data logically: every address handed out before or after
// the call is translated through the same bias, so relative offsets
// between live chunks are preserved.
func (h *BasicHeap) Rebase(b Address) {
	h.origin = b
}

// Range reports the heap's externally-visible address range.
func (h *BasicHeap) Range() AddressRange {
	return AddressRange{Base: h.origin, Size: h.maxSize}
}

// HeapStats summarizes allocator occupancy, grounded in the teacher's
// page-bitmap accounting (vm/malloc.go's vmPageBits/PagesUsed) adapted
// from a fixed-page VMM bitmap to a freelist occupancy summary.
type HeapStats struct {
	Used           uint32
	Free           uint32
	LargestFreeRun uint32
	ChunkCount     int
}

// Stats reports current allocator occupancy.
func (h *BasicHeap) Stats() HeapStats {
	var used uint32
	for _, c := range h.live {
		used += c.rng.Size
	}
	var largest uint32
	for _, fr := range h.free {
		if fr.rng.Size > largest {
			largest = fr.rng.Size
		}
	}
	tailFree := h.maxSize - uint32(h.bump)
	if tailFree > largest {
		largest = tailFree
	}
	return HeapStats{
		Used:           used,
		Free:           h.maxSize - used,
		LargestFreeRun: largest,
		ChunkCount:     len(h.live),
	}
}
