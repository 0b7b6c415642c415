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
	"github.com/corevm/bcvm/stackslot"
)

// BranchTarget is the operand shape a branch instruction's Arg carries.
type BranchTarget struct {
	IP int
}

// UnknownBranchPolicy controls what a branch handler does when the
// popped condition is three-valued Unknown. The choice is held in the
// package variable CurrentBranchPolicy rather than hardcoded in the
// handlers; its default is ForkOnUnknown.
type UnknownBranchPolicy int

const (
	// FallThroughOnUnknown treats an unknown condition as "don't take the
	// branch" — simplest to reason about for a purely concrete caller.
	FallThroughOnUnknown UnknownBranchPolicy = iota
	// ForkOnUnknown is the policy spec §4.5 calls "the specified
	// default": the caller is expected to explore both successors. Since
	// a single dispatch step can only return one Result, this core
	// surfaces the Unknown condition via UnknownCondition() on Result and
	// leaves forking to the caller (e.g. a worklist-based driver that
	// re-enters Dispatch once per successor).
	ForkOnUnknown
)

// CurrentBranchPolicy is the process-wide branch-on-unknown policy. It
// defaults to ForkOnUnknown per spec §4.5's stated default; a caller that
// only wants concrete execution can set it to FallThroughOnUnknown.
var CurrentBranchPolicy = ForkOnUnknown

// Result.unknown is set whenever a branch handler observed an Unknown
// condition, under either policy: with ForkOnUnknown the Kind is Branch,
// with FallThroughOnUnknown it is Success. UnknownCondition reports it so
// the caller can drive a fork instead of trusting Kind alone.
func (r Result) UnknownCondition() bool { return r.unknown }

func newBranchHandler(op Opcode, takeWhen stackslot.Tribool) Handler {
	return Handler{
		Opcodes: []Opcode{op},
		Fn: func(ctx Context, instr Instruction) (Result, error) {
			slot, err := ctx.PopSlot()
			if err != nil {
				return Result{}, err
			}
			cond, err := slot.IsNonZero()
			if err != nil {
				return Result{}, err
			}
			target, ok := instr.Arg.(BranchTarget)
			if !ok {
				return Result{}, fmt.Errorf("dispatch: %s missing branch target operand: %w", op, bcerr.InvalidProgram)
			}
			switch cond {
			case takeWhen:
				return BranchResult(target.IP), nil
			case takeWhen.Not():
				return SuccessResult(), nil
			default:
				if CurrentBranchPolicy == ForkOnUnknown {
					return Result{Kind: Branch, Target: target.IP, unknown: true}, nil
				}
				return Result{Kind: Success, unknown: true}, nil
			}
		},
	}
}

// BranchHandlers returns the BrTrue/BrFalse/BrZero handler family.
func BranchHandlers() []Handler {
	return []Handler{
		newBranchHandler(OpBrTrue, stackslot.True),
		newBranchHandler(OpBrFalse, stackslot.False),
		newBranchHandler(OpBrZero, stackslot.False),
	}
}
