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

// Command domdump reads a textual edge-list CFG, builds its dominator
// tree, and prints the idom and dominance-frontier tables — the
// dominator-tree analogue of cmd/dump's role of exposing an internal
// data structure for inspection.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/corevm/bcvm/compr"
	"github.com/corevm/bcvm/diag"
	"github.com/corevm/bcvm/domtree"
)

var (
	edges    = flag.String("edges", "", `comma-separated "from:to" directed edges, e.g. "a:b,a:c,b:d,c:d"`)
	entry    = flag.String("entry", "", "name of the CFG entry node (required)")
	outPath  = flag.String("out", "", "write the dump to this file instead of stdout")
	compress = flag.Bool("z", false, "zstd-compress the dump (requires -out)")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	diag.Errorf = func(f string, args ...any) { log.Printf("error: "+f, args...) }

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if *entry == "" {
		return fmt.Errorf("domdump: -entry is required")
	}

	g := domtree.NewEdgeListGraph(*entry)
	if *edges != "" {
		for _, pair := range strings.Split(*edges, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				return fmt.Errorf("domdump: bad edge %q, want \"from:to\"", pair)
			}
			g.AddEdge(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}

	tree, err := domtree.Build(g)
	if err != nil {
		return err
	}

	names := g.Names()
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "idom:")
	for _, name := range ordered {
		id := names[name]
		dom, ok := tree.Idom(id)
		if !ok {
			fmt.Fprintf(&buf, "  %s: unreachable\n", name)
			continue
		}
		domName := nameOf(names, dom)
		fmt.Fprintf(&buf, "  %s -> %s\n", name, domName)
	}

	fmt.Fprintln(&buf, "dominance frontier:")
	for _, name := range ordered {
		id := names[name]
		front, err := tree.DominanceFrontier(id)
		if err != nil {
			continue
		}
		frontNames := make([]string, len(front))
		for i, f := range front {
			frontNames[i] = nameOf(names, f)
		}
		sort.Strings(frontNames)
		fmt.Fprintf(&buf, "  %s: {%s}\n", name, strings.Join(frontNames, ", "))
	}

	return writeOutput(buf.Bytes())
}

// writeOutput emits the dump to stdout, or to -out (optionally
// zstd-compressed) when given.
func writeOutput(data []byte) error {
	if *outPath == "" {
		if *compress {
			return fmt.Errorf("domdump: -z requires -out")
		}
		_, err := os.Stdout.Write(data)
		return err
	}
	if *compress {
		enc := compr.Compression("zstd")
		data = enc.Compress(data, nil)
	}
	return os.WriteFile(*outPath, data, 0o644)
}

func nameOf(names map[string]uuid.UUID, id uuid.UUID) string {
	for n, v := range names {
		if v == id {
			return n
		}
	}
	return id.String()
}
