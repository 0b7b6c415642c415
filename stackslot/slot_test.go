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

import "testing"

func TestIsZeroOnIntegerSlot(t *testing.T) {
	s := NewInteger(32)
	span := s.Contents.Span()
	span.SetKnownZero()
	z, err := s.IsZero()
	if err != nil {
		t.Fatal(err)
	}
	if z != True {
		t.Fatalf("got %v, want True", z)
	}
}

func TestIsZeroOnUnknownIntegerSlotIsUnknown(t *testing.T) {
	s := NewInteger(32) // fully unknown by construction
	z, err := s.IsZero()
	if err != nil {
		t.Fatalf("IsZero on an Integer slot must not require Hint==Ref: %v", err)
	}
	if z != Unknown {
		t.Fatalf("got %v, want Unknown", z)
	}
}

func TestIsNonZeroOnNonzeroInteger(t *testing.T) {
	one := uint64(1)
	s := NewInteger(32)
	putLE(s.Contents.Span().Bits(), one)
	for i := range s.Contents.Span().Mask() {
		s.Contents.Span().Mask()[i] = 0xff
	}
	nz, err := s.IsNonZero()
	if err != nil {
		t.Fatal(err)
	}
	if nz != True {
		t.Fatalf("got %v, want True", nz)
	}
}

func TestIsNullRejectsNonRefSlot(t *testing.T) {
	s := NewInteger(32)
	if _, err := s.IsNull(); err == nil {
		t.Fatal("expected error for IsNull on Integer slot")
	}
}

func TestIsNullOnKnownNullRef(t *testing.T) {
	zero := uint64(0)
	s := NewRef(8, &zero)
	n, err := s.IsNull()
	if err != nil {
		t.Fatal(err)
	}
	if n != True {
		t.Fatalf("got %v, want True", n)
	}
}

func TestIsNullOnUnknownRef(t *testing.T) {
	s := NewRef(8, nil)
	n, err := s.IsNull()
	if err != nil {
		t.Fatal(err)
	}
	if n != Unknown {
		t.Fatalf("got %v, want Unknown", n)
	}
}

func TestIsPositiveFalseOnNullRef(t *testing.T) {
	zero := uint64(0)
	s := NewRef(8, &zero)
	p, err := s.IsPositive()
	if err != nil {
		t.Fatal(err)
	}
	if p != False {
		t.Fatalf("got %v, want False", p)
	}
}

func TestIsNegativeAlwaysFalseForRef(t *testing.T) {
	addr := uint64(42)
	s := NewRef(8, &addr)
	n, err := s.IsNegative()
	if err != nil {
		t.Fatal(err)
	}
	if n != False {
		t.Fatalf("got %v, want False", n)
	}
}

func TestTriboolNot(t *testing.T) {
	cases := map[Tribool]Tribool{True: False, False: True, Unknown: Unknown}
	for in, want := range cases {
		if got := in.Not(); got != want {
			t.Fatalf("Not(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestTypeHintString(t *testing.T) {
	cases := map[TypeHint]string{Integer: "Integer", Float: "Float", Ref: "Ref", Struct: "Struct"}
	for hint, want := range cases {
		if got := hint.String(); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}
