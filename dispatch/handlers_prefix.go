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

package dispatch

// PrefixHandlers returns the Unaligned/Volatile/Readonly pointer-prefix
// family. These are specified as no-ops over the current virtual memory
// model (spec §4.5): they return Success without touching the stack.
// Future memory models may attach real semantics (spec §9 open
// question), at which point these three become the natural seam.
func PrefixHandlers() []Handler {
	noop := func(ctx Context, instr Instruction) (Result, error) {
		return SuccessResult(), nil
	}
	return []Handler{
		{Opcodes: []Opcode{OpUnaligned}, Fn: noop},
		{Opcodes: []Opcode{OpVolatile}, Fn: noop},
		{Opcodes: []Opcode{OpReadonly}, Fn: noop},
	}
}
