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

package genctx

import "testing"

func TestResolveGenericTypeVar(t *testing.T) {
	ctx := Context{TypeArgs: []Signature{{Concrete: "int32"}, {Concrete: "string"}}}
	sig := Signature{IsTypeVar: true, VarIndex: 1}
	got, err := ctx.ResolveGenericType(sig)
	if err != nil {
		t.Fatal(err)
	}
	if got.Concrete != "string" {
		t.Fatalf("got %q, want %q", got.Concrete, "string")
	}
}

func TestResolveGenericTypeVarOutOfRange(t *testing.T) {
	ctx := Context{TypeArgs: []Signature{{Concrete: "int32"}}}
	sig := Signature{IsTypeVar: true, VarIndex: 5}
	if _, err := ctx.ResolveGenericType(sig); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestResolveGenericInstanceRecurses(t *testing.T) {
	ctx := Context{TypeArgs: []Signature{{Concrete: "int32"}}}
	sig := Signature{Concrete: "List", GenericArgs: []Signature{{IsTypeVar: true, VarIndex: 0}}}
	got, err := ctx.ResolveGenericType(sig)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.GenericArgs) != 1 || got.GenericArgs[0].Concrete != "int32" {
		t.Fatalf("got %+v", got)
	}
}

func TestResolveFieldTypePopulatesFromDeclaringType(t *testing.T) {
	field := Field{
		DeclaringTypeArgs: []Signature{{Concrete: "float64"}},
		Type:              Signature{IsTypeVar: true, VarIndex: 0},
	}
	var empty Context
	got, err := empty.ResolveFieldType(field)
	if err != nil {
		t.Fatal(err)
	}
	if got.Concrete != "float64" {
		t.Fatalf("got %q, want %q", got.Concrete, "float64")
	}
}

func TestSignatureString(t *testing.T) {
	cases := []struct {
		sig  Signature
		want string
	}{
		{Signature{IsTypeVar: true, VarIndex: 2}, "!2"},
		{Signature{IsMethodVar: true, VarIndex: 1}, "!!1"},
		{Signature{Concrete: "int32"}, "int32"},
	}
	for _, c := range cases {
		if got := c.sig.String(); got != c.want {
			t.Fatalf("got %q, want %q", got, c.want)
		}
	}
}

func TestContextEmpty(t *testing.T) {
	var c Context
	if !c.Empty() {
		t.Fatal("zero-value Context should be empty")
	}
	c.TypeArgs = []Signature{{Concrete: "x"}}
	if c.Empty() {
		t.Fatal("Context with TypeArgs should not be empty")
	}
}
