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

package layout

import (
	"testing"

	"github.com/corevm/bcvm/bitvec"
	"github.com/corevm/bcvm/config"
)

func newFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := New(config.Default64())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestGetObjectSizeSumsHeaderAndFields(t *testing.T) {
	f := newFactory(t)
	size, err := f.GetObjectSize(KindObject, []uint32{4, 8})
	if err != nil {
		t.Fatal(err)
	}
	want := f.ObjectHeaderSize() + 4 + 8
	if size != want {
		t.Fatalf("got %d, want %d", size, want)
	}
}

func TestGetObjectSizeRejectsNonObjectKind(t *testing.T) {
	f := newFactory(t)
	if _, err := f.GetObjectSize(KindArray, nil); err == nil {
		t.Fatal("expected error for GetObjectSize on KindArray")
	}
}

func TestGetArrayObjectSize(t *testing.T) {
	f := newFactory(t)
	elem, _, err := f.ElementStride(config.Int32)
	if err != nil {
		t.Fatal(err)
	}
	size, err := f.GetArrayObjectSize(config.ElementLayout{Size: 4, Align: 4}, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := f.ObjectHeaderSize() + f.PointerSize() + 10*elem
	if size != want {
		t.Fatalf("got %d, want %d", size, want)
	}
}

func TestGetArrayObjectSizeRejectsNegativeLength(t *testing.T) {
	f := newFactory(t)
	if _, err := f.GetArrayObjectSize(config.ElementLayout{Size: 4, Align: 4}, -1); err == nil {
		t.Fatal("expected error for negative array length")
	}
}

func TestGetStringObjectSize(t *testing.T) {
	f := newFactory(t)
	size, err := f.GetStringObjectSize(5)
	if err != nil {
		t.Fatal(err)
	}
	want := f.ObjectHeaderSize() + 4 + 2*5
	if size != want {
		t.Fatalf("got %d, want %d", size, want)
	}
}

func TestSliceArrayLengthAndElements(t *testing.T) {
	f := newFactory(t)
	size, err := f.GetArrayObjectSize(config.ElementLayout{Size: 4, Align: 4}, 2)
	if err != nil {
		t.Fatal(err)
	}
	obj := bitvec.NewKnown(int(size)*8, make([]byte, size))

	lenSpan, err := f.SliceArrayLength(obj.Span())
	if err != nil {
		t.Fatal(err)
	}
	if lenSpan.Len() != int(f.PointerSize())*8 {
		t.Fatalf("length span width = %d, want %d", lenSpan.Len(), int(f.PointerSize())*8)
	}

	elemSpan, err := f.SliceArrayElements(obj.Span(), config.ElementLayout{Size: 4, Align: 4}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if elemSpan.Len() != 2*4*8 {
		t.Fatalf("element span width = %d, want %d", elemSpan.Len(), 2*4*8)
	}
}

func TestSliceOutOfBoundsFails(t *testing.T) {
	f := newFactory(t)
	obj := bitvec.NewKnown(int(f.ObjectHeaderSize())*8, make([]byte, f.ObjectHeaderSize()))
	if _, err := f.SliceArrayLength(obj.Span()); err == nil {
		t.Fatal("expected AccessViolation slicing past a header-only object")
	}
}
