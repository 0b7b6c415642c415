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

// Package bcerr enumerates the host-error taxonomy surfaced by the
// emulation core. These are sentinel values, not exception types: call
// sites wrap them with fmt.Errorf("...: %w", bcerr.X) and callers use
// errors.Is to distinguish kinds.
package bcerr

import "errors"

var (
	// InvalidOperation covers unsupported allocation shapes (array/string
	// sizes requested through the object API) and IEEE width mismatches.
	InvalidOperation = errors.New("invalid operation")

	// InvalidArgument covers negative sizes and malformed addresses.
	InvalidArgument = errors.New("invalid argument")

	// OutOfMemory is fatal to the current step; upper layers may convert
	// it into an emulated OutOfMemoryException.
	OutOfMemory = errors.New("out of memory")

	// AccessViolation covers out-of-range heap reads/writes.
	AccessViolation = errors.New("access violation")

	// InvalidCast covers narrowing Convert* on a reference; cast handlers
	// convert this into a Throw(InvalidCastException) dispatch result
	// rather than propagating it to the caller.
	InvalidCast = errors.New("invalid cast")

	// InvalidProgram covers stack-type mismatches observed by a handler;
	// the input bytecode is malformed.
	InvalidProgram = errors.New("invalid program")

	// ConfigurationError covers duplicate opcode registration at
	// dispatch-table build time.
	ConfigurationError = errors.New("configuration error")
)
