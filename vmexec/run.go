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

package vmexec

import (
	"fmt"

	"github.com/corevm/bcvm/bcerr"
	"github.com/corevm/bcvm/bcheap"
	"github.com/corevm/bcvm/dispatch"
)

// Program is a decoded, linear instruction stream addressed by
// instruction index (not byte offset): BranchTarget.IP and a frame's ip
// both index into this slice. A real front end would decode a byte
// stream into this shape; that decoder is out of scope.
type Program []dispatch.Instruction

// OutcomeKind classifies how a frame's execution ended.
type OutcomeKind int

const (
	// Completed means ip ran past the end of the program with the stack
	// intact: normal return.
	Completed OutcomeKind = iota
	// Threw means a handler returned dispatch.Throw.
	Threw
	// StepLimitExceeded means maxSteps was reached without a Completed or
	// Threw outcome; the caller is responsible for bounding runaway
	// programs since the emulator itself performs no timeout or
	// cancellation (spec §5's "no cancellation" rule).
	StepLimitExceeded
)

// Outcome is one terminal state of a single execution path: the frame as
// it stood when execution stopped, plus why it stopped.
type Outcome struct {
	Kind      OutcomeKind
	Frame     *Frame
	Exception bcheap.Address // valid when Kind == Threw
}

// Step executes exactly one instruction against f using table, advancing
// f.ip on a Success result, setting it to the target on a Branch, and
// leaving it unchanged on a Throw. It is the atomic unit spec §5 describes: the handler
// observes frame and heap, mutates them, and returns, with no suspension
// point inside.
func Step(f *Frame, table *dispatch.Table, prog Program) (dispatch.Result, error) {
	if f.ip < 0 || f.ip >= len(prog) {
		return dispatch.Result{}, fmt.Errorf("vmexec: ip %d out of range (%d instructions) in %q: %w", f.ip, len(prog), f.Method, bcerr.InvalidProgram)
	}
	result, err := table.Dispatch(f, prog[f.ip])
	if err != nil {
		return dispatch.Result{}, err
	}
	switch result.Kind {
	case dispatch.Success:
		f.ip++
	case dispatch.Branch:
		f.ip = result.Target
	}
	return result, nil
}

// Run drives f to completion, executing at most maxSteps instructions.
// An Unknown branch condition forks f into both successors per
// dispatch.CurrentBranchPolicy: when that policy is ForkOnUnknown, Run
// returns one Outcome per successor path, continuing each to its own
// terminus; FallThroughOnUnknown (or a Branch that resolved definitely)
// stays on a single path, returning exactly one Outcome.
func Run(f *Frame, table *dispatch.Table, prog Program, maxSteps int) ([]Outcome, error) {
	steps := 0
	for {
		if f.ip >= len(prog) {
			return []Outcome{{Kind: Completed, Frame: f}}, nil
		}
		if steps >= maxSteps {
			return []Outcome{{Kind: StepLimitExceeded, Frame: f}}, nil
		}
		steps++
		preIP := f.ip

		result, err := Step(f, table, prog)
		if err != nil {
			return nil, err
		}

		switch result.Kind {
		case dispatch.Throw:
			return []Outcome{{Kind: Threw, Frame: f, Exception: result.Exception}}, nil
		case dispatch.Branch:
			if !result.UnknownCondition() {
				continue
			}
			// The branch handler only forks via a Branch result
			// (handlers_branch.go never forks a Success), so the taken
			// successor is f itself (Step already set f.ip to the
			// target) and the fall-through successor is a clone resuming
			// at the instruction after the one that just ran.
			fallThrough := f.clone()
			fallThrough.ip = preIP + 1
			taken, err := Run(f, table, prog, maxSteps-steps)
			if err != nil {
				return nil, err
			}
			rest, err := Run(fallThrough, table, prog, maxSteps-steps)
			if err != nil {
				return nil, err
			}
			return append(taken, rest...), nil
		case dispatch.Success:
			continue
		}
	}
}
