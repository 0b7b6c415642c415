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

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/config"
	"github.com/corevm/bcvm/layout"
)

// ManagedObjectHeap layers typed object/array/string allocation on top of
// a raw BasicHeap, using a layout.Factory to compute sizes and field
// offsets.
type ManagedObjectHeap struct {
	raw *BasicHeap
	lf  *layout.Factory
}

// NewManagedObjectHeap constructs a typed façade over raw, using lf for
// layout decisions.
func NewManagedObjectHeap(raw *BasicHeap, lf *layout.Factory) *ManagedObjectHeap {
	return &ManagedObjectHeap{raw: raw, lf: lf}
}

// Raw returns the underlying untyped allocator, for handlers that need
// direct chunk access (e.g. Read/Write on a computed field address).
func (m *ManagedObjectHeap) Raw() *BasicHeap { return m.raw }

// AllocateObject allocates a non-array, non-string object with the given
// field sizes. Array/SzArray/String kinds are rejected since their sizes
// depend on instance data.
func (m *ManagedObjectHeap) AllocateObject(kind layout.Kind, fieldSizes []uint32, initialize bool) (Address, error) {
	size, err := m.lf.GetObjectSize(kind, fieldSizes)
	if err != nil {
		return 0, err
	}
	return m.raw.Allocate(size, initialize)
}

// AllocateSzArray allocates a single-dimension, zero-based array of count
// elements of kind elem, writes its length field, and marks that field
// fully known.
func (m *ManagedObjectHeap) AllocateSzArray(elem config.ElementLayout, count int, initialize bool) (Address, error) {
	size, err := m.lf.GetArrayObjectSize(elem, count)
	if err != nil {
		return 0, err
	}
	addr, err := m.raw.Allocate(size, initialize)
	if err != nil {
		return 0, err
	}
	obj, err := m.raw.GetChunkSpan(addr)
	if err != nil {
		return 0, err
	}
	lenSpan, err := m.lf.SliceArrayLength(obj)
	if err != nil {
		return 0, err
	}
	writeLengthField(lenSpan, count, m.lf.Is32Bit())
	return addr, nil
}

// AllocateString allocates a string object of the given UTF-16 length
// (code units) and writes its length field, always 32-bit wide.
func (m *ManagedObjectHeap) AllocateString(length int, initialize bool) (Address, error) {
	size, err := m.lf.GetStringObjectSize(length)
	if err != nil {
		return 0, err
	}
	addr, err := m.raw.Allocate(size, initialize)
	if err != nil {
		return 0, err
	}
	obj, err := m.raw.GetChunkSpan(addr)
	if err != nil {
		return 0, err
	}
	lenSpan, err := m.lf.SliceStringLength(obj)
	if err != nil {
		return 0, err
	}
	writeLengthField(lenSpan, length, true)
	return addr, nil
}

// AllocateStringValue allocates a string object sized to hold value and
// writes value's UTF-16LE code units into its data slice.
func (m *ManagedObjectHeap) AllocateStringValue(value string) (Address, error) {
	units := utf16.Encode([]rune(value))
	addr, err := m.AllocateString(len(units), false)
	if err != nil {
		return 0, err
	}
	obj, err := m.raw.GetChunkSpan(addr)
	if err != nil {
		return 0, err
	}
	dataSpan, err := m.lf.SliceStringData(obj, len(units))
	if err != nil {
		return 0, err
	}
	buf := dataSpan.Bits()
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	mask := dataSpan.Mask()
	for i := range mask {
		mask[i] = 0xff
	}
	return addr, nil
}

// ReadString decodes the UTF-16 data slice of a string object back into a
// Go string; length must equal the code-unit count stored at allocation
// time (ordinarily read via SliceStringLength by the caller).
func (m *ManagedObjectHeap) ReadString(addr Address, length int) (string, error) {
	obj, err := m.raw.GetChunkSpan(addr)
	if err != nil {
		return "", err
	}
	dataSpan, err := m.lf.SliceStringData(obj, length)
	if err != nil {
		return "", err
	}
	if !dataSpan.IsFullyKnown() {
		return "", fmt.Errorf("bcheap: string data at %#x is not fully known: %w", addr, bcerr.InvalidOperation)
	}
	units := make([]uint16, length)
	buf := dataSpan.Bits()
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}
	return string(utf16.Decode(units)), nil
}

func writeLengthField(span interface {
	Bits() []byte
	Mask() []byte
}, n int, use32 bool) {
	buf := span.Bits()
	if use32 {
		binary.LittleEndian.PutUint32(buf, uint32(n))
	} else {
		binary.LittleEndian.PutUint64(buf, uint64(n))
	}
	mask := span.Mask()
	for i := range mask {
		mask[i] = 0xff
	}
}
