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

// Package domtree builds an immediate-dominator tree from a CFG using the
// Lengauer-Tarjan algorithm, and answers Dominates queries and lazily
// computed dominance-frontier lookups against it.
package domtree

import "github.com/google/uuid"

// Node is a CFG node with a stable identity. A real front end's basic
// block type can implement this. EdgeListGraph (graph.go), the Graph used
// by cmd/domdump and by this package's tests, identifies its nodes by
// uuid.UUID directly.
type Node interface {
	NodeID() uuid.UUID
}

// Graph is the CFG input Build consumes: a distinguished entry point and
// predecessor/successor edges keyed by node identity.
type Graph interface {
	Entrypoint() uuid.UUID
	GetPredecessors(id uuid.UUID) []uuid.UUID
	GetOutgoingEdges(id uuid.UUID) []uuid.UUID
}
