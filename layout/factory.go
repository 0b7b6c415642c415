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

// Package layout is the authoritative source of type layout: object
// header size, field offsets, array/string object sizes, and pointer
// width. It is pure (no mutable state after construction) and is
// consulted by the heap façade (bcheap.ManagedObjectHeap) and by the
// execution frame (vmexec.Frame).
package layout

import (
	"fmt"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/bitvec"
	"github.com/corevm/bcvm/config"
	"github.com/corevm/bcvm/ints"
)

// Kind distinguishes the four shapes of heap object this layout handles.
// Array/SzArray/String sizes depend on instance data (element count,
// string length) and so are computed by GetArrayObjectSize /
// GetStringObjectSize rather than GetObjectSize.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindSzArray
	KindString
)

// Factory computes object layout from a config.Machine. It holds no
// mutable state: every method is a pure function of its arguments and the
// Machine it was constructed with.
type Factory struct {
	m config.Machine
}

// New constructs a Factory from a validated Machine configuration.
func New(m config.Machine) (*Factory, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &Factory{m: m}, nil
}

// Is32Bit reports whether the factory's machine uses 4-byte pointers.
func (f *Factory) Is32Bit() bool { return f.m.Is32Bit() }

// ObjectHeaderSize returns the fixed-size prefix of every heap object.
func (f *Factory) ObjectHeaderSize() uint32 { return f.m.ObjectHeaderSize }

// PointerSize returns the machine's pointer width in bytes (4 or 8).
func (f *Factory) PointerSize() uint32 { return f.m.PointerSize }

// ElementStride returns the natural size and alignment of a primitive
// element kind, as configured on the machine.
func (f *Factory) ElementStride(p config.Primitive) (size, align uint32, err error) {
	el, ok := f.m.Elements[p]
	if !ok {
		return 0, 0, fmt.Errorf("layout: no element layout for %q: %w", p, bcerr.InvalidOperation)
	}
	return el.Size, el.Align, nil
}

// alignUp rounds v up to the next multiple of alignment, via the same
// generic helper the teacher's pointer/length alignment arithmetic uses.
func alignUp(v, alignment uint32) uint32 {
	if alignment == 0 {
		return v
	}
	return ints.AlignUp32(v, alignment)
}

// GetObjectSize returns H + sum(field sizes) for a non-array, non-string
// type. fieldSizes lists each declared field's size in bytes (the caller
// is responsible for substituting generic field types and sizing fields
// before calling this).
func (f *Factory) GetObjectSize(kind Kind, fieldSizes []uint32) (uint32, error) {
	if kind != KindObject {
		return 0, fmt.Errorf("layout: GetObjectSize does not support kind %v (size depends on instance data): %w", kind, bcerr.InvalidOperation)
	}
	size := f.m.ObjectHeaderSize
	for _, fs := range fieldSizes {
		size += fs
	}
	return size, nil
}

// GetArrayObjectSize returns H + W + n*stride(elem), where stride is the
// element's natural size padded up to its natural alignment.
func (f *Factory) GetArrayObjectSize(elem config.ElementLayout, n int) (uint32, error) {
	if n < 0 {
		return 0, fmt.Errorf("layout: array length %d is negative: %w", n, bcerr.InvalidArgument)
	}
	stride := alignUp(elem.Size, elem.Align)
	return f.m.ObjectHeaderSize + f.m.PointerSize + uint32(n)*stride, nil
}

// GetStringObjectSize returns H + 4 + 2*n for a UTF-16 string of n code
// units.
func (f *Factory) GetStringObjectSize(n int) (uint32, error) {
	if n < 0 {
		return 0, fmt.Errorf("layout: string length %d is negative: %w", n, bcerr.InvalidArgument)
	}
	return f.m.ObjectHeaderSize + 4 + 2*uint32(n), nil
}

// SliceArrayLength returns the span over an array object's length field
// (offset H, width = pointer width), aliasing obj's storage.
func (f *Factory) SliceArrayLength(obj bitvec.BitVectorSpan) (bitvec.BitVectorSpan, error) {
	return f.slice(obj, f.m.ObjectHeaderSize, f.m.PointerSize)
}

// SliceArrayElements returns the span over an array object's element data
// (offset H+W, width n*stride), aliasing obj's storage.
func (f *Factory) SliceArrayElements(obj bitvec.BitVectorSpan, elem config.ElementLayout, n int) (bitvec.BitVectorSpan, error) {
	if n < 0 {
		return bitvec.BitVectorSpan{}, fmt.Errorf("layout: array length %d is negative: %w", n, bcerr.InvalidArgument)
	}
	stride := alignUp(elem.Size, elem.Align)
	return f.slice(obj, f.m.ObjectHeaderSize+f.m.PointerSize, uint32(n)*stride)
}

// SliceStringLength returns the span over a string object's 4-byte length
// field (offset H), aliasing obj's storage.
func (f *Factory) SliceStringLength(obj bitvec.BitVectorSpan) (bitvec.BitVectorSpan, error) {
	return f.slice(obj, f.m.ObjectHeaderSize, 4)
}

// SliceStringData returns the span over a string object's UTF-16 data
// (offset H+4, width 2*n bytes), aliasing obj's storage.
func (f *Factory) SliceStringData(obj bitvec.BitVectorSpan, n int) (bitvec.BitVectorSpan, error) {
	if n < 0 {
		return bitvec.BitVectorSpan{}, fmt.Errorf("layout: string length %d is negative: %w", n, bcerr.InvalidArgument)
	}
	return f.slice(obj, f.m.ObjectHeaderSize+4, 2*uint32(n))
}

// slice returns a byte-addressed sub-span of obj at [offset, offset+size),
// failing with AccessViolation if it would run past obj's storage.
func (f *Factory) slice(obj bitvec.BitVectorSpan, offset, size uint32) (bitvec.BitVectorSpan, error) {
	total := uint32(len(obj.Bits()))
	if uint64(offset)+uint64(size) > uint64(total) {
		return bitvec.BitVectorSpan{}, fmt.Errorf("layout: slice [%d,%d) out of bounds of %d-byte object: %w", offset, offset+size, total, bcerr.AccessViolation)
	}
	return bitvec.NewSpan(int(size)*8, obj.Bits()[offset:offset+size], obj.Mask()[offset:offset+size]), nil
}
