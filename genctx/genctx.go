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

// Package genctx resolves formal generic type/method parameters in
// field/type signatures against an ambient generic context. It is the
// small external collaborator spec §4.7 describes: the emulator invokes
// it to map a formal generic parameter to a concrete type signature
// before computing layout. Bytecode parsing, symbol resolution from
// on-disk metadata, and full type-system modeling are out of scope here
// (spec §1) — Signature and TypeArg are deliberately thin stand-ins a
// real symbol-resolution layer would supply.
package genctx

import "fmt"

// Signature is a minimal field/type signature: either a concrete type
// name, or a reference to the n'th formal parameter of the declaring
// type (IsTypeVar) or declaring method (IsMethodVar).
type Signature struct {
	Concrete     string
	IsTypeVar    bool
	IsMethodVar  bool
	VarIndex     int
	GenericArgs  []Signature // for a generic-instance type, e.g. List<T>
}

func (s Signature) String() string {
	switch {
	case s.IsTypeVar:
		return fmt.Sprintf("!%d", s.VarIndex)
	case s.IsMethodVar:
		return fmt.Sprintf("!!%d", s.VarIndex)
	case len(s.GenericArgs) > 0:
		return fmt.Sprintf("%s<%v>", s.Concrete, s.GenericArgs)
	default:
		return s.Concrete
	}
}

// Field is a minimal stand-in for a resolved field: its declaring type's
// generic arguments and its own (possibly formal) signature.
type Field struct {
	DeclaringTypeArgs []Signature
	Type              Signature
}

// Context is the ambient generic context G = (typeArgs, methodArgs) a
// resolver substitutes formals against.
type Context struct {
	TypeArgs   []Signature
	MethodArgs []Signature
}

// Empty reports whether the context carries no bindings at all.
func (c Context) Empty() bool {
	return len(c.TypeArgs) == 0 && len(c.MethodArgs) == 0
}

// ResolveFieldType returns field's type with every formal parameter
// substituted. If the receiver context is empty, it is first populated
// from the field's declaring type's arguments, per spec §4.7.
func (c Context) ResolveFieldType(field Field) (Signature, error) {
	if c.Empty() {
		c = Context{TypeArgs: field.DeclaringTypeArgs}
	}
	return c.ResolveGenericType(field.Type)
}

// ResolveGenericType recursively substitutes formal parameters in sig
// against the context, including within a generic-instance type's
// arguments (e.g. List<!0> -> List<int32>).
func (c Context) ResolveGenericType(sig Signature) (Signature, error) {
	switch {
	case sig.IsTypeVar:
		if sig.VarIndex < 0 || sig.VarIndex >= len(c.TypeArgs) {
			return Signature{}, fmt.Errorf("genctx: type variable !%d has no binding in context of %d type args", sig.VarIndex, len(c.TypeArgs))
		}
		return c.TypeArgs[sig.VarIndex], nil
	case sig.IsMethodVar:
		if sig.VarIndex < 0 || sig.VarIndex >= len(c.MethodArgs) {
			return Signature{}, fmt.Errorf("genctx: method variable !!%d has no binding in context of %d method args", sig.VarIndex, len(c.MethodArgs))
		}
		return c.MethodArgs[sig.VarIndex], nil
	case len(sig.GenericArgs) > 0:
		resolved := make([]Signature, len(sig.GenericArgs))
		for i, arg := range sig.GenericArgs {
			r, err := c.ResolveGenericType(arg)
			if err != nil {
				return Signature{}, err
			}
			resolved[i] = r
		}
		return Signature{Concrete: sig.Concrete, GenericArgs: resolved}, nil
	default:
		return sig, nil
	}
}
