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

// Package config describes the ambient machine configuration the
// emulation core is parameterized over: pointer width, object header
// size, and the natural size/alignment of each primitive element type.
// Configuration is ordinarily loaded from a YAML file via sigs.k8s.io/yaml
// (which round-trips YAML through the JSON struct tags below), the same
// way cmd/sneller wires query-engine globals from parsed configuration.
package config

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"sigs.k8s.io/yaml"
)

// Primitive identifies one of the machine's primitive element kinds, used
// as a key into Machine.Elements.
type Primitive string

const (
	Int8    Primitive = "int8"
	Int16   Primitive = "int16"
	Int32   Primitive = "int32"
	Int64   Primitive = "int64"
	Float32 Primitive = "float32"
	Float64 Primitive = "float64"
	Pointer Primitive = "pointer"
)

// ElementLayout is the natural size and alignment of one primitive kind.
type ElementLayout struct {
	Size  uint32 `json:"size"`
	Align uint32 `json:"align"`
}

// Machine is the ambient configuration ValueFactory and Heap are built
// from.
type Machine struct {
	PointerSize      uint32                         `json:"pointerSize"`
	ObjectHeaderSize uint32                          `json:"objectHeaderSize"`
	HeapSize         uint32                          `json:"heapSize"`
	Elements         map[Primitive]ElementLayout `json:"elements"`
}

// Default32 returns the conventional 32-bit machine configuration: 4-byte
// pointers, an 8-byte object header, and natural x86 element sizes.
func Default32() Machine {
	return Machine{
		PointerSize:      4,
		ObjectHeaderSize: 8,
		HeapSize:         64 << 20,
		Elements:         defaultElements(4),
	}
}

// Default64 returns the conventional 64-bit machine configuration.
func Default64() Machine {
	return Machine{
		PointerSize:      8,
		ObjectHeaderSize: 16,
		HeapSize:         256 << 20,
		Elements:         defaultElements(8),
	}
}

func defaultElements(ptrSize uint32) map[Primitive]ElementLayout {
	return map[Primitive]ElementLayout{
		Int8:    {Size: 1, Align: 1},
		Int16:   {Size: 2, Align: 2},
		Int32:   {Size: 4, Align: 4},
		Int64:   {Size: 8, Align: 8},
		Float32: {Size: 4, Align: 4},
		Float64: {Size: 8, Align: 8},
		Pointer: {Size: ptrSize, Align: ptrSize},
	}
}

// Validate checks internal consistency: pointer size must be 4 or 8, and
// every required primitive must have a layout.
func (m Machine) Validate() error {
	if m.PointerSize != 4 && m.PointerSize != 8 {
		return fmt.Errorf("config: pointer size must be 4 or 8, got %d", m.PointerSize)
	}
	for _, p := range []Primitive{Int8, Int16, Int32, Int64, Float32, Float64, Pointer} {
		layout, ok := m.Elements[p]
		if !ok {
			return fmt.Errorf("config: missing element layout for %q", p)
		}
		if layout.Size == 0 || layout.Align == 0 {
			return fmt.Errorf("config: invalid element layout for %q: %+v", p, layout)
		}
	}
	return nil
}

// Is32Bit reports whether the machine is configured with 4-byte pointers.
func (m Machine) Is32Bit() bool { return m.PointerSize == 4 }

// Load parses a YAML document into a Machine, then validates it.
func Load(doc []byte) (Machine, error) {
	var m Machine
	if err := yaml.Unmarshal(doc, &m); err != nil {
		return Machine{}, fmt.Errorf("config: parsing machine config: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Machine{}, err
	}
	return m, nil
}

// Marshal serializes the machine configuration back to YAML; Checksum
// hashes this form.
func (m Machine) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Checksum returns a hex-encoded BLAKE2b-256 digest of the machine's
// canonical YAML form. cmd/bcrun logs this alongside a run's output so
// two runs can be compared for configuration drift without diffing the
// whole document.
func (m Machine) Checksum() (string, error) {
	doc, err := m.Marshal()
	if err != nil {
		return "", fmt.Errorf("config: checksum: %w", err)
	}
	sum := blake2b.Sum256(doc)
	return hex.EncodeToString(sum[:]), nil
}
