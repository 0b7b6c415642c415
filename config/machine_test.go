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

package config

import "testing"

func TestDefault64Validates(t *testing.T) {
	m := Default64()
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if m.Is32Bit() {
		t.Fatal("Default64 must not report Is32Bit")
	}
}

func TestDefault32Validates(t *testing.T) {
	m := Default32()
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
	if !m.Is32Bit() {
		t.Fatal("Default32 must report Is32Bit")
	}
}

func TestValidateRejectsBadPointerSize(t *testing.T) {
	m := Default64()
	m.PointerSize = 6
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for non-4/8 pointer size")
	}
}

func TestValidateRejectsMissingElement(t *testing.T) {
	m := Default64()
	delete(m.Elements, Int8)
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for missing element layout")
	}
}

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	m := Default64()
	doc, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Load(doc)
	if err != nil {
		t.Fatal(err)
	}
	if got.PointerSize != m.PointerSize || got.ObjectHeaderSize != m.ObjectHeaderSize {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := Load([]byte("pointerSize: 7\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestChecksumStableAndSensitiveToContent(t *testing.T) {
	a := Default64()
	b := Default64()
	sumA, err := a.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	sumB, err := b.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	if sumA != sumB {
		t.Fatal("identical configs must checksum equal")
	}
	b.HeapSize = a.HeapSize + 1
	sumC, err := b.Checksum()
	if err != nil {
		t.Fatal(err)
	}
	if sumA == sumC {
		t.Fatal("differing configs must checksum differently")
	}
}
