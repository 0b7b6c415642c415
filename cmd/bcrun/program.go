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

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/corevm/bcvm/dispatch"
	"github.com/corevm/bcvm/stackslot"
	"github.com/corevm/bcvm/vmexec"
)

// opcodeByName covers the binary-arithmetic, branch, and conversion
// families: the ones a flat, label-free text format can express without a
// symbol table for cast/box type metadata (out of scope, spec §1).
var opcodeByName = map[string]dispatch.Opcode{
	"add": dispatch.OpAdd, "add.ovf": dispatch.OpAddOvf, "add.ovf.un": dispatch.OpAddOvfUn,
	"sub": dispatch.OpSub, "sub.ovf": dispatch.OpSubOvf, "sub.ovf.un": dispatch.OpSubOvfUn,
	"mul": dispatch.OpMul, "mul.ovf": dispatch.OpMulOvf, "mul.ovf.un": dispatch.OpMulOvfUn,
	"div": dispatch.OpDiv, "div.un": dispatch.OpDivUn,
	"rem": dispatch.OpRem, "rem.un": dispatch.OpRemUn,
	"brtrue": dispatch.OpBrTrue, "brfalse": dispatch.OpBrFalse, "brzero": dispatch.OpBrZero,
	"conv.i": dispatch.OpConvI, "conv.u": dispatch.OpConvU,
	"conv.i1": dispatch.OpConvI1, "conv.i2": dispatch.OpConvI2,
	"conv.i4": dispatch.OpConvI4, "conv.i8": dispatch.OpConvI8,
	"unaligned.": dispatch.OpUnaligned, "volatile.": dispatch.OpVolatile, "readonly.": dispatch.OpReadonly,
}

// parsedProgram is the result of assembling a textual program: the
// initial pushes (performed directly against the frame, since constant
// loading is a bytecode-parsing concern out of scope for the dispatch
// table itself) and the dispatch-level instruction stream.
type parsedProgram struct {
	setup []stackslot.Slot
	prog  vmexec.Program
}

// parseProgram reads one instruction per line from r. Blank lines and
// lines starting with "#" are ignored. Two forms are recognized:
//
//	push.i4 <value>   push.i8 <value>   push.f4 <value>   push.f8 <value>
//	<opcode> [target]
//
// push lines are appended to setup in order; all other lines compile to
// dispatch.Instruction entries addressed by their own index in prog
// (branch targets are instruction indices into that same stream, not
// counting push lines).
func parseProgram(r io.Reader) (parsedProgram, error) {
	var out parsedProgram
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		mnemonic := fields[0]

		if slot, ok, err := parsePush(mnemonic, fields); err != nil {
			return parsedProgram{}, fmt.Errorf("bcrun: line %d: %w", lineNo, err)
		} else if ok {
			out.setup = append(out.setup, slot)
			continue
		}

		op, ok := opcodeByName[mnemonic]
		if !ok {
			return parsedProgram{}, fmt.Errorf("bcrun: line %d: unrecognized opcode %q", lineNo, mnemonic)
		}
		instr := dispatch.Instruction{Op: op}
		if isBranch(op) {
			if len(fields) != 2 {
				return parsedProgram{}, fmt.Errorf("bcrun: line %d: %s requires a branch target", lineNo, mnemonic)
			}
			target, err := strconv.Atoi(fields[1])
			if err != nil {
				return parsedProgram{}, fmt.Errorf("bcrun: line %d: bad branch target %q: %w", lineNo, fields[1], err)
			}
			instr.Arg = dispatch.BranchTarget{IP: target}
		}
		out.prog = append(out.prog, instr)
	}
	if err := sc.Err(); err != nil {
		return parsedProgram{}, fmt.Errorf("bcrun: reading program: %w", err)
	}
	return out, nil
}

func isBranch(op dispatch.Opcode) bool {
	return op == dispatch.OpBrTrue || op == dispatch.OpBrFalse || op == dispatch.OpBrZero
}

func parsePush(mnemonic string, fields []string) (stackslot.Slot, bool, error) {
	if !strings.HasPrefix(mnemonic, "push.") {
		return stackslot.Slot{}, false, nil
	}
	if len(fields) != 2 {
		return stackslot.Slot{}, false, fmt.Errorf("%s requires exactly one immediate operand", mnemonic)
	}
	switch mnemonic {
	case "push.i4", "push.i8":
		v, err := strconv.ParseInt(fields[1], 0, 64)
		if err != nil {
			return stackslot.Slot{}, false, fmt.Errorf("bad integer immediate %q: %w", fields[1], err)
		}
		nbits := 32
		if mnemonic == "push.i8" {
			nbits = 64
		}
		slot := stackslot.NewInteger(nbits)
		putImmediate(slot, uint64(v))
		return slot, true, nil
	case "push.f4", "push.f8":
		// float immediates are accepted as raw bit patterns (hex), since a
		// text assembler has no use for decimal-to-IEEE754 parsing here.
		bits, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return stackslot.Slot{}, false, fmt.Errorf("bad float bit pattern %q: %w", fields[1], err)
		}
		nbits := 32
		if mnemonic == "push.f8" {
			nbits = 64
		}
		slot := stackslot.NewFloat(nbits)
		putImmediate(slot, bits)
		return slot, true, nil
	default:
		return stackslot.Slot{}, false, fmt.Errorf("unrecognized push form %q", mnemonic)
	}
}

func putImmediate(slot stackslot.Slot, v uint64) {
	span := slot.Contents.Span()
	buf := span.Bits()
	for i := range buf {
		buf[i] = byte(v >> (8 * uint(i)))
	}
	mask := span.Mask()
	for i := range mask {
		mask[i] = 0xff
	}
}
