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
	"strings"
	"testing"

	"github.com/corevm/bcvm/dispatch"
)

func TestParseProgramPushesAndOps(t *testing.T) {
	src := `
# load two operands then add
push.i4 2
push.i4 3
add
`
	p, err := parseProgram(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.setup) != 2 {
		t.Fatalf("got %d setup slots, want 2", len(p.setup))
	}
	if len(p.prog) != 1 || p.prog[0].Op != dispatch.OpAdd {
		t.Fatalf("got %+v, want a single add instruction", p.prog)
	}
}

func TestParseProgramSkipsBlankAndCommentLines(t *testing.T) {
	src := "\n# comment\n\npush.i4 1\n"
	p, err := parseProgram(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.setup) != 1 {
		t.Fatalf("got %d setup slots, want 1", len(p.setup))
	}
}

func TestParseProgramBranchRequiresTarget(t *testing.T) {
	_, err := parseProgram(strings.NewReader("brtrue\n"))
	if err == nil {
		t.Fatal("expected error for brtrue with no target")
	}
}

func TestParseProgramBranchParsesTarget(t *testing.T) {
	p, err := parseProgram(strings.NewReader("brtrue 5\n"))
	if err != nil {
		t.Fatal(err)
	}
	target, ok := p.prog[0].Arg.(dispatch.BranchTarget)
	if !ok || target.IP != 5 {
		t.Fatalf("got %+v, want BranchTarget{IP: 5}", p.prog[0].Arg)
	}
}

func TestParseProgramRejectsUnknownOpcode(t *testing.T) {
	_, err := parseProgram(strings.NewReader("frobnicate\n"))
	if err == nil {
		t.Fatal("expected error for an unrecognized mnemonic")
	}
}

func TestParseProgramRejectsBadPushImmediate(t *testing.T) {
	_, err := parseProgram(strings.NewReader("push.i4 not-a-number\n"))
	if err == nil {
		t.Fatal("expected error for a malformed integer immediate")
	}
}

func TestParsePushFloatBitPattern(t *testing.T) {
	p, err := parseProgram(strings.NewReader("push.f8 0x3ff0000000000000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.setup) != 1 {
		t.Fatalf("got %d setup slots, want 1", len(p.setup))
	}
	span := p.setup[0].Contents.Span()
	if span.Len() != 64 {
		t.Fatalf("width = %d, want 64", span.Len())
	}
	buf := span.Bits()
	var got uint64
	for i := range buf {
		got |= uint64(buf[i]) << (8 * uint(i))
	}
	if got != 0x3ff0000000000000 {
		t.Fatalf("got %#x, want %#x", got, uint64(0x3ff0000000000000))
	}
}

func TestParseProgramRejectsPushWithWrongArgCount(t *testing.T) {
	_, err := parseProgram(strings.NewReader("push.i4\n"))
	if err == nil {
		t.Fatal("expected error for push.i4 with no operand")
	}
}
