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

import "testing"

func TestNewKnownRoundTrips(t *testing.T) {
	bv := NewKnown(32, []byte{0x78, 0x56, 0x34, 0x12})
	if !bv.IsKnown() {
		t.Fatal("expected fully known vector")
	}
	v, ok := bv.Span().asUint64()
	if !ok {
		t.Fatal("expected exact uint64 conversion to succeed")
	}
	if v != 0x12345678 {
		t.Fatalf("got %#x, want %#x", v, 0x12345678)
	}
}

func TestIntegerAddKnownPlusKnown(t *testing.T) {
	a := NewKnown(32, []byte{2, 0, 0, 0})
	b := NewKnown(32, []byte{3, 0, 0, 0})
	if err := a.Span().IntegerAdd(b.Span()); err != nil {
		t.Fatal(err)
	}
	if !a.IsKnown() {
		t.Fatal("2+3 should be fully known")
	}
	v, _ := a.Span().asUint64()
	if v != 5 {
		t.Fatalf("got %d, want 5", v)
	}
}

func TestIntegerAddKnownPlusUnknown(t *testing.T) {
	a := NewKnown(32, []byte{2, 0, 0, 0})
	b := New(32) // fully unknown
	if err := a.Span().IntegerAdd(b.Span()); err != nil {
		t.Fatal(err)
	}
	if a.IsKnown() {
		t.Fatal("known + unknown must stay unknown")
	}
}

func TestIntegerAddWidthMismatch(t *testing.T) {
	a := NewKnown(32, []byte{1, 0, 0, 0})
	b := NewKnown(64, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	if err := a.Span().IntegerAdd(b.Span()); err == nil {
		t.Fatal("expected width mismatch error")
	}
}

func TestIntegerDivByKnownZeroFails(t *testing.T) {
	a := NewKnown(32, []byte{10, 0, 0, 0})
	b := NewKnown(32, []byte{0, 0, 0, 0})
	if err := a.Span().IntegerDiv(b.Span()); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestAddOvfDetectsUnsignedOverflow(t *testing.T) {
	a := NewKnown(8, []byte{250})
	b := NewKnown(8, []byte{10})
	ovf, err := a.Span().AddOvf(b.Span(), false)
	if err != nil {
		t.Fatal(err)
	}
	if ovf != OverflowTrue {
		t.Fatalf("expected overflow, got %v", ovf)
	}
}

func TestAddOvfUnknownOperandNeverThrows(t *testing.T) {
	a := New(8) // unknown
	b := NewKnown(8, []byte{10})
	ovf, err := a.Span().AddOvf(b.Span(), false)
	if err != nil {
		t.Fatal(err)
	}
	if ovf != OverflowUnknown {
		t.Fatalf("expected OverflowUnknown, got %v", ovf)
	}
}

func TestLogicalAnd(t *testing.T) {
	a := NewKnown(8, []byte{0b1100})
	b := NewKnown(8, []byte{0b1010})
	if err := a.Span().And(b.Span()); err != nil {
		t.Fatal(err)
	}
	v, _ := a.Span().asUint64()
	if v != 0b1000 {
		t.Fatalf("got %b, want %b", v, 0b1000)
	}
}

func TestShlShiftsKnownBits(t *testing.T) {
	a := NewKnown(8, []byte{0b00000011})
	a.Span().Shl(2)
	v, _ := a.Span().asUint64()
	if v != 0b00001100 {
		t.Fatalf("got %b, want %b", v, 0b00001100)
	}
}

func TestSarSignExtendsNegative(t *testing.T) {
	a := NewKnown(8, []byte{0b10000000}) // -128 as int8
	a.Span().Sar(4)
	v, _ := a.Span().asUint64()
	if v != 0b11111000 {
		t.Fatalf("got %08b, want %08b", v, 0b11111000)
	}
}

func TestHashStableOverEqualContent(t *testing.T) {
	a := NewKnown(32, []byte{1, 2, 3, 4})
	b := NewKnown(32, []byte{1, 2, 3, 4})
	if a.Span().Hash(1, 2) != b.Span().Hash(1, 2) {
		t.Fatal("equal spans must hash equal")
	}
}

func TestSpanString(t *testing.T) {
	bv := NewKnown(4, []byte{0b0101})
	if got := bv.Span().String(); got != "0101" {
		t.Fatalf("got %q, want %q", got, "0101")
	}
}

func TestClearKnownThenIsFullyKnownFalse(t *testing.T) {
	bv := NewKnown(16, []byte{1, 2})
	bv.Span().ClearKnown()
	if bv.IsKnown() {
		t.Fatal("expected ClearKnown to make the span unknown")
	}
}
