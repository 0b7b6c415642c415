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

import "github.com/google/uuid"

// EdgeListGraph is a Graph built from named nodes and directed edges
// between them; each distinct name is stamped with a fresh uuid.UUID the
// first time it is mentioned. It is the reference CFG implementation
// cmd/domdump parses its "-edges" flag into, and the shape this package's
// own tests build fixtures with.
type EdgeListGraph struct {
	entry string
	ids   map[string]uuid.UUID
	succ  map[uuid.UUID][]uuid.UUID
	pred  map[uuid.UUID][]uuid.UUID
}

// NewEdgeListGraph constructs an empty graph whose entry point is named
// entry (added to the node set on first use).
func NewEdgeListGraph(entry string) *EdgeListGraph {
	return &EdgeListGraph{
		entry: entry,
		ids:   make(map[string]uuid.UUID),
		succ:  make(map[uuid.UUID][]uuid.UUID),
		pred:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (g *EdgeListGraph) idFor(name string) uuid.UUID {
	id, ok := g.ids[name]
	if !ok {
		id = uuid.New()
		g.ids[name] = id
	}
	return id
}

// AddEdge records a directed edge from -> to, creating either endpoint's
// node identity on first mention.
func (g *EdgeListGraph) AddEdge(from, to string) {
	f, t := g.idFor(from), g.idFor(to)
	g.succ[f] = append(g.succ[f], t)
	g.pred[t] = append(g.pred[t], f)
}

// NodeID returns the identity assigned to a node by name, creating it if
// this is the first mention (useful for isolated nodes with no edges).
func (g *EdgeListGraph) NodeID(name string) uuid.UUID { return g.idFor(name) }

// Entrypoint implements Graph.
func (g *EdgeListGraph) Entrypoint() uuid.UUID { return g.idFor(g.entry) }

// GetPredecessors implements Graph.
func (g *EdgeListGraph) GetPredecessors(id uuid.UUID) []uuid.UUID { return g.pred[id] }

// GetOutgoingEdges implements Graph.
func (g *EdgeListGraph) GetOutgoingEdges(id uuid.UUID) []uuid.UUID { return g.succ[id] }

// Names returns the node-name -> identity mapping, for callers (like
// cmd/domdump) that need to print results keyed by the original names
// rather than raw UUIDs.
func (g *EdgeListGraph) Names() map[string]uuid.UUID { return g.ids }
