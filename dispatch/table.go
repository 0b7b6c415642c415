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

import (
	"fmt"

	"github.com/corevm/bcvm/bcerr"
)

// Table maps each opcode to exactly one handler. Lookup is O(1).
type Table struct {
	handlers [opcodeCount]HandlerFunc
	set      [opcodeCount]bool
}

// NewTable constructs an empty dispatch table.
func NewTable() *Table {
	return &Table{}
}

// Register installs h for every opcode it advertises. Duplicate
// registration for any opcode fails the whole call with
// ConfigurationError, matching the handler-registration contract in
// spec §6 — table construction either fully succeeds or is rejected, so a
// caller never ends up with a partially-registered handler family.
func (t *Table) Register(h Handler) error {
	if len(h.Opcodes) == 0 {
		return fmt.Errorf("dispatch: handler advertises no opcodes: %w", bcerr.ConfigurationError)
	}
	for _, op := range h.Opcodes {
		if t.set[op] {
			return fmt.Errorf("dispatch: opcode %s already registered: %w", op, bcerr.ConfigurationError)
		}
	}
	for _, op := range h.Opcodes {
		t.handlers[op] = h.Fn
		t.set[op] = true
	}
	return nil
}

// Dispatch looks up and invokes the handler for instr.Op.
func (t *Table) Dispatch(ctx Context, instr Instruction) (Result, error) {
	if int(instr.Op) >= len(t.handlers) || !t.set[instr.Op] {
		return Result{}, fmt.Errorf("dispatch: no handler registered for opcode %s: %w", instr.Op, bcerr.InvalidProgram)
	}
	return t.handlers[instr.Op](ctx, instr)
}

// BuildDefault constructs a Table with every handler family in this
// package registered, failing if any two families collide on an opcode.
// pointerBytes sizes the native-integer Conv.I/Conv.U results to the
// target machine's pointer width (config.Machine.PointerSize, spec §4.4).
func BuildDefault(pointerBytes int) (*Table, error) {
	t := NewTable()
	families := [][]Handler{
		BinaryOpHandlers(),
		BranchHandlers(),
		CastHandlers(),
		PrefixHandlers(),
		ConvertHandlers(pointerBytes),
	}
	for _, fam := range families {
		for _, h := range fam {
			if err := t.Register(h); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}
