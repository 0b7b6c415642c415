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

package domtree

import (
	"testing"

	"github.com/google/uuid"
)

// diamond builds:
//
//	a -> b -> d
//	a -> c -> d
func diamond() *EdgeListGraph {
	g := NewEdgeListGraph("a")
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "d")
	g.AddEdge("c", "d")
	return g
}

func TestDiamondIdom(t *testing.T) {
	g := diamond()
	tree, err := Build(g)
	if err != nil {
		t.Fatal(err)
	}
	a, b, c, d := g.NodeID("a"), g.NodeID("b"), g.NodeID("c"), g.NodeID("d")

	check := func(node, want string) {
		id := g.NodeID(node)
		dom, ok := tree.Idom(id)
		if !ok {
			t.Fatalf("%s: expected reachable", node)
		}
		if dom != g.NodeID(want) {
			t.Fatalf("idom(%s) = %s, want %s", node, nameFor(g, dom), want)
		}
	}
	check("a", "a")
	check("b", "a")
	check("c", "a")
	check("d", "a") // d's only idom is a: neither b nor c alone dominates it

	if !tree.Dominates(a, d) {
		t.Fatal("a should dominate d")
	}
	if tree.Dominates(b, d) {
		t.Fatal("b must not dominate d (c is an alternate path)")
	}
	if !tree.Dominates(a, a) {
		t.Fatal("every node dominates itself")
	}
	_ = c
}

func nameFor(g *EdgeListGraph, id uuid.UUID) string {
	for name, v := range g.Names() {
		if v == id {
			return name
		}
	}
	return "?"
}

func TestDiamondDominanceFrontier(t *testing.T) {
	g := diamond()
	tree, err := Build(g)
	if err != nil {
		t.Fatal(err)
	}
	b, d := g.NodeID("b"), g.NodeID("d")
	front, err := tree.DominanceFrontier(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(front) != 1 || front[0] != d {
		t.Fatalf("DF(b) = %v, want [d]", front)
	}
}

// irreducible builds a CFG with two loop entries reachable from distinct
// predecessors, none of which properly dominates the other:
//
//	entry -> x, entry -> y
//	x -> y, y -> x
func TestIrreducibleLoopIdom(t *testing.T) {
	g := NewEdgeListGraph("entry")
	g.AddEdge("entry", "x")
	g.AddEdge("entry", "y")
	g.AddEdge("x", "y")
	g.AddEdge("y", "x")

	tree, err := Build(g)
	if err != nil {
		t.Fatal(err)
	}
	entry := g.NodeID("entry")
	x, ok := tree.Idom(g.NodeID("x"))
	if !ok || x != entry {
		t.Fatalf("idom(x) should be entry")
	}
	y, ok := tree.Idom(g.NodeID("y"))
	if !ok || y != entry {
		t.Fatalf("idom(y) should be entry")
	}
}

func TestUnreachableNodeAbsent(t *testing.T) {
	g := NewEdgeListGraph("entry")
	g.AddEdge("entry", "a")
	orphan := g.NodeID("orphan") // mentioned, never connected

	tree, err := Build(g)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tree.Idom(orphan); ok {
		t.Fatal("orphan node must be absent from the dominator tree")
	}
	if _, err := tree.DominanceFrontier(orphan); err == nil {
		t.Fatal("expected error for unreached node")
	}
}

func TestChildrenOfEntryInDiamond(t *testing.T) {
	g := diamond()
	tree, err := Build(g)
	if err != nil {
		t.Fatal(err)
	}
	kids := tree.Children(g.NodeID("a"))
	if len(kids) != 3 {
		t.Fatalf("expected a to have 3 dom-tree children (b, c, d), got %d", len(kids))
	}
}
