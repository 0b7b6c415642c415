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
	"os"
	"path/filepath"
	"testing"
)

// withFlags sets the package-level flag vars for the duration of fn and
// restores them afterward, since run()/writeOutput() read *entry/*edges/
// *outPath/*compress directly rather than taking parameters.
func withFlags(t *testing.T, entryVal, edgesVal, outVal string, compressVal bool, fn func()) {
	t.Helper()
	oldEntry, oldEdges, oldOut, oldCompress := *entry, *edges, *outPath, *compress
	*entry, *edges, *outPath, *compress = entryVal, edgesVal, outVal, compressVal
	defer func() { *entry, *edges, *outPath, *compress = oldEntry, oldEdges, oldOut, oldCompress }()
	fn()
}

func TestRunRequiresEntry(t *testing.T) {
	withFlags(t, "", "a:b", "", false, func() {
		if err := run(); err == nil {
			t.Fatal("expected error when -entry is empty")
		}
	})
}

func TestRunWritesDiamondDumpToFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "dump.txt")
	withFlags(t, "a", "a:b,a:c,b:d,c:d", out, false, func() {
		if err := run(); err != nil {
			t.Fatal(err)
		}
	})
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty dump")
	}
}

func TestRunCompressRequiresOutPath(t *testing.T) {
	withFlags(t, "a", "a:b", "", true, func() {
		if err := run(); err == nil {
			t.Fatal("expected error when -z is set without -out")
		}
	})
}

func TestRunCompressedOutputDiffersFromPlain(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.txt")
	zout := filepath.Join(dir, "z.out")

	withFlags(t, "a", "a:b,a:c,b:d,c:d", plain, false, func() {
		if err := run(); err != nil {
			t.Fatal(err)
		}
	})
	withFlags(t, "a", "a:b,a:c,b:d,c:d", zout, true, func() {
		if err := run(); err != nil {
			t.Fatal(err)
		}
	})

	plainData, err := os.ReadFile(plain)
	if err != nil {
		t.Fatal(err)
	}
	zData, err := os.ReadFile(zout)
	if err != nil {
		t.Fatal(err)
	}
	if string(plainData) == string(zData) {
		t.Fatal("compressed output should differ from plain output")
	}
}

func TestRunRejectsMalformedEdge(t *testing.T) {
	withFlags(t, "a", "a-b", "", false, func() {
		if err := run(); err == nil {
			t.Fatal("expected error for an edge missing the \":\" separator")
		}
	})
}
