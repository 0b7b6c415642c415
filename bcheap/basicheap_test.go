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

package bcheap

import "testing"

func TestAllocateThenReadWrite(t *testing.T) {
	h := NewBasicHeap(1024)
	addr, err := h.Allocate(16, true)
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsValidAddress(addr) {
		t.Fatal("freshly allocated address should be valid")
	}

	buf := []byte{1, 2, 3, 4}
	if err := h.Write(addr, buf); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 4)
	if err := h.Read(addr, out); err != nil {
		t.Fatal(err)
	}
	for i := range buf {
		if out[i] != buf[i] {
			t.Fatalf("byte %d: got %d, want %d", i, out[i], buf[i])
		}
	}
}

func TestAllocateInitializeZeroesAndMarksKnown(t *testing.T) {
	h := NewBasicHeap(1024)
	addr, err := h.Allocate(8, true)
	if err != nil {
		t.Fatal(err)
	}
	span, err := h.GetChunkSpan(addr)
	if err != nil {
		t.Fatal(err)
	}
	if !span.IsFullyKnown() {
		t.Fatal("initialize=true should produce a fully-known zero chunk")
	}
	for _, b := range span.Bits() {
		if b != 0 {
			t.Fatal("initialize=true should zero the chunk")
		}
	}
}

func TestAllocateWithoutInitializeIsUnknown(t *testing.T) {
	h := NewBasicHeap(1024)
	addr, err := h.Allocate(8, false)
	if err != nil {
		t.Fatal(err)
	}
	span, err := h.GetChunkSpan(addr)
	if err != nil {
		t.Fatal(err)
	}
	if span.IsFullyKnown() {
		t.Fatal("initialize=false should leave the chunk unknown")
	}
}

func TestFreeThenReuseViaFreeList(t *testing.T) {
	h := NewBasicHeap(1024)
	a, err := h.Allocate(16, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Free(a); err != nil {
		t.Fatal(err)
	}
	if h.IsValidAddress(a) {
		t.Fatal("freed address should no longer be valid")
	}

	before := h.Stats()
	b, err := h.Allocate(16, true)
	if err != nil {
		t.Fatal(err)
	}
	after := h.Stats()
	if after.ChunkCount != before.ChunkCount+1 {
		t.Fatalf("chunk count should increase by 1, got %d -> %d", before.ChunkCount, after.ChunkCount)
	}
	if b != a {
		t.Fatalf("reallocated chunk at %#x, want the freed address %#x", b, a)
	}
}

func TestFreeUnknownAddressFails(t *testing.T) {
	h := NewBasicHeap(1024)
	if err := h.Free(Address(999)); err == nil {
		t.Fatal("expected error freeing a non-live address")
	}
}

func TestAllocateBeyondMaxSizeFails(t *testing.T) {
	h := NewBasicHeap(8)
	if _, err := h.Allocate(16, false); err == nil {
		t.Fatal("expected OutOfMemory allocating past the heap's max size")
	}
}

func TestReadWriteOutOfRangeFails(t *testing.T) {
	h := NewBasicHeap(1024)
	addr, err := h.Allocate(4, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Read(addr, make([]byte, 8)); err == nil {
		t.Fatal("expected AccessViolation reading past chunk end")
	}
	if err := h.Write(addr, make([]byte, 8)); err == nil {
		t.Fatal("expected AccessViolation writing past chunk end")
	}
}

func TestRebaseShiftsReportedAddresses(t *testing.T) {
	h := NewBasicHeap(1024)
	a, err := h.Allocate(16, true)
	if err != nil {
		t.Fatal(err)
	}
	h.Rebase(Address(0x1000))
	chunks := h.GetAllocatedChunks()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Base != a+Address(0x1000) {
		t.Fatalf("rebased base = %#x, want %#x", chunks[0].Base, a+Address(0x1000))
	}
	if !h.IsValidAddress(a + Address(0x1000)) {
		t.Fatal("rebased external address should be valid")
	}
}

func TestFreeCoalescesAdjacentRanges(t *testing.T) {
	h := NewBasicHeap(1024)
	a, err := h.Allocate(16, true)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Allocate(16, true)
	if err != nil {
		t.Fatal(err)
	}
	// a and b are adjacent (bump-allocated back to back). Freeing both
	// should coalesce into a single 32-byte free range, not two fragments.
	if err := h.Free(a); err != nil {
		t.Fatal(err)
	}
	if err := h.Free(b); err != nil {
		t.Fatal(err)
	}
	if len(h.free) != 1 {
		t.Fatalf("got %d free ranges, want 1 coalesced range", len(h.free))
	}
	if h.free[0].rng.Size != 32 {
		t.Fatalf("coalesced free range size = %d, want 32", h.free[0].rng.Size)
	}

	// A single 32-byte allocation should now be satisfiable from the
	// coalesced range without growing the bump pointer.
	before := h.Stats()
	if _, err := h.Allocate(32, true); err != nil {
		t.Fatal(err)
	}
	after := h.Stats()
	if after.Free != before.Free-32 {
		t.Fatalf("free bytes after allocation = %d, want %d", after.Free, before.Free-32)
	}
}

func TestGetAllocatedChunksSortedByBase(t *testing.T) {
	h := NewBasicHeap(1024)
	var addrs []Address
	for i := 0; i < 3; i++ {
		a, err := h.Allocate(8, true)
		if err != nil {
			t.Fatal(err)
		}
		addrs = append(addrs, a)
	}
	chunks := h.GetAllocatedChunks()
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Base < chunks[i-1].Base {
			t.Fatal("chunks must be sorted by base address")
		}
	}
}
