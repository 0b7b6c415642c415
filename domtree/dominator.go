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
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/corevm/bcvm/bcerr"
)

// Tree is an immutable, constructed-once immediate-dominator tree. Parent
// links are identity values (uuid.UUID), not owning pointers, so the tree
// can be handed to readers freely once Build returns.
type Tree struct {
	entry    uuid.UUID
	idom     map[uuid.UUID]uuid.UUID
	children map[uuid.UUID][]uuid.UUID

	graph Graph

	frontierOnce sync.Once
	frontier     map[uuid.UUID][]uuid.UUID
}

// buildState holds the Lengauer-Tarjan working arrays, indexed by 1-based
// DFS pre-order number (0 means unreached), the same layout the
// reference dominator computation uses for its int32 arrays — uuid.UUID
// stands in for that implementation's uint64 object ID.
type buildState struct {
	toID   []uuid.UUID       // toID[i] = node with pre-order number i
	toIdx  map[uuid.UUID]int // inverse of toID
	parent []int
	semi   []int // semi[i] = pre-order number of i's semidominator
	idom   []int
	anc    []int // ancestor in the compressed forest, 0 = none
	label  []int // label[i] = j such that semi[j] is minimal on path i->root
	bucket [][]int
}

// Build runs the Lengauer-Tarjan algorithm from g.Entrypoint(), producing
// idom[entry] = entry and a tree rooted at entry (spec §4.6). Nodes
// unreachable from entry are absent from the result.
func Build(g Graph) (*Tree, error) {
	entry := g.Entrypoint()

	st := &buildState{toIdx: make(map[uuid.UUID]int)}
	st.toID = append(st.toID, uuid.Nil) // index 0 is "undefined"

	// Step 1: iterative DFS (no recursion, so depth is bounded only by
	// heap, not goroutine stack) recording pre-order number and parent.
	type frame struct {
		id   uuid.UUID
		next int
		succ []uuid.UUID
	}
	visit := func(id uuid.UUID) int {
		idx := len(st.toID)
		st.toID = append(st.toID, id)
		st.toIdx[id] = idx
		st.parent = append(st.parent, 0)
		st.semi = append(st.semi, idx)
		st.idom = append(st.idom, 0)
		st.anc = append(st.anc, 0)
		st.label = append(st.label, idx)
		st.bucket = append(st.bucket, nil)
		return idx
	}
	visit(entry)
	stack := []*frame{{id: entry, succ: g.GetOutgoingEdges(entry)}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		advanced := false
		for top.next < len(top.succ) {
			w := top.succ[top.next]
			top.next++
			if _, seen := st.toIdx[w]; seen {
				continue
			}
			wIdx := visit(w)
			st.parent[wIdx] = st.toIdx[top.id]
			stack = append(stack, &frame{id: w, succ: g.GetOutgoingEdges(w)})
			advanced = true
			break
		}
		if !advanced {
			stack = stack[:len(stack)-1]
		}
	}

	n := len(st.toID) - 1

	compress := func(v int) {
		var path []int
		cur := v
		for st.anc[cur] != 0 && st.anc[st.anc[cur]] != 0 {
			path = append(path, cur)
			cur = st.anc[cur]
		}
		for i := len(path) - 1; i >= 0; i-- {
			node := path[i]
			anc := st.anc[node]
			if st.semi[st.label[anc]] < st.semi[st.label[node]] {
				st.label[node] = st.label[anc]
			}
			st.anc[node] = st.anc[anc]
		}
	}
	eval := func(v int) int {
		if st.anc[v] == 0 {
			return v
		}
		compress(v)
		return st.label[v]
	}
	link := func(v, w int) { st.anc[w] = v }

	// Step 3: process nodes in reverse pre-order, excluding the entry.
	for i := n; i >= 2; i-- {
		w := i
		for _, p := range g.GetPredecessors(st.toID[w]) {
			pIdx, reached := st.toIdx[p]
			if !reached {
				continue
			}
			var u int
			if pIdx <= w {
				u = pIdx
			} else {
				u = eval(pIdx)
			}
			if st.semi[u] < st.semi[w] {
				st.semi[w] = st.semi[u]
			}
		}
		st.bucket[st.semi[w]] = append(st.bucket[st.semi[w]], w)
		link(st.parent[w], w)

		parentOfW := st.parent[w]
		for _, v := range st.bucket[parentOfW] {
			u := eval(v)
			if st.semi[u] < st.semi[v] {
				st.idom[v] = u
			} else {
				st.idom[v] = parentOfW
			}
		}
		st.bucket[parentOfW] = nil
	}

	// Step 4: forward pass fixing up idoms that were only provisionally
	// set to the node's semidominator in step 3.
	for i := 2; i <= n; i++ {
		if st.idom[i] != st.semi[i] {
			st.idom[i] = st.idom[st.idom[i]]
		}
	}
	st.idom[1] = 1 // idom(entry) = entry

	idom := make(map[uuid.UUID]uuid.UUID, n)
	children := make(map[uuid.UUID][]uuid.UUID, n)
	for i := 1; i <= n; i++ {
		node := st.toID[i]
		dom := st.toID[st.idom[i]]
		idom[node] = dom
		if node != entry {
			children[dom] = append(children[dom], node)
		}
	}

	return &Tree{
		entry:    entry,
		idom:     idom,
		children: children,
		graph:    g,
	}, nil
}

// Idom returns id's immediate dominator. It reports false if id was never
// reached by the DFS (unreachable from the entry point).
func (t *Tree) Idom(id uuid.UUID) (uuid.UUID, bool) {
	d, ok := t.idom[id]
	return d, ok
}

// Children returns id's immediate dominator-tree children (nodes whose
// immediate dominator is id).
func (t *Tree) Children(id uuid.UUID) []uuid.UUID {
	return t.children[id]
}

// Dominates reports whether d dominates n: walk n's tree ancestors and
// check whether d is encountered, per spec §4.6. Every reached node
// dominates itself.
func (t *Tree) Dominates(d, n uuid.UUID) bool {
	if _, ok := t.idom[n]; !ok {
		return false
	}
	cur := n
	for {
		if cur == d {
			return true
		}
		if cur == t.entry {
			return cur == d
		}
		next := t.idom[cur]
		if next == cur {
			return false
		}
		cur = next
	}
}

// DominanceFrontier returns id's dominance frontier, computing the
// frontier map for the whole tree on first call under a sync.Once guard;
// later reads never observe a partially built map, and no synchronization
// is needed once the map is published (spec §5's double-checked-mutex
// resource rule, realized the way the corpus realizes "compute once under
// concurrent readers").
func (t *Tree) DominanceFrontier(id uuid.UUID) ([]uuid.UUID, error) {
	t.frontierOnce.Do(t.buildFrontier)
	if _, ok := t.idom[id]; !ok {
		return nil, fmt.Errorf("domtree: node %s was never reached from the entry point: %w", id, bcerr.InvalidArgument)
	}
	return t.frontier[id], nil
}

func (t *Tree) buildFrontier() {
	frontier := make(map[uuid.UUID][]uuid.UUID)
	seen := make(map[[2]uuid.UUID]bool)
	for n := range t.idom {
		preds := t.graph.GetPredecessors(n)
		if len(preds) < 2 {
			continue
		}
		idomN := t.idom[n]
		for _, p := range preds {
			if _, ok := t.idom[p]; !ok {
				continue
			}
			runner := p
			for runner != idomN {
				key := [2]uuid.UUID{runner, n}
				if !seen[key] {
					seen[key] = true
					frontier[runner] = append(frontier[runner], n)
				}
				next := t.idom[runner]
				if next == runner {
					break
				}
				runner = next
			}
		}
	}
	t.frontier = frontier
}
