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

// Package diag holds the package-level diagnostic hooks used across the
// emulation core, mirroring the vm.Errorf pattern: a nil-able function
// variable embedders can set during init() to capture extra diagnostics
// without the core depending on a logging library.
package diag

// Errorf is a global diagnostic sink for error-path detail, reached
// through Errorln. Unset by default.
var Errorf func(f string, args ...any)

// Debugf is a global diagnostic sink for verbose tracing (heap
// allocate/free lines, cmd/bcrun's config checksum). Unset by default.
var Debugf func(f string, args ...any)

func errorf(f string, args ...any) {
	if Errorf != nil {
		Errorf(f, args...)
	}
}

func debugf(f string, args ...any) {
	if Debugf != nil {
		Debugf(f, args...)
	}
}

// Errorln calls Errorf with a plain message, no formatting.
func Errorln(msg string) { errorf("%s", msg) }

// Debugln calls Debugf with a plain message, no formatting.
func Debugln(msg string) { debugf("%s", msg) }
