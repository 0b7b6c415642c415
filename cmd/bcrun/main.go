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

// Command bcrun loads a machine configuration and a tiny textual bytecode
// program, executes it against a fresh heap and frame, and prints each
// resulting outcome (its kind, evaluation stack, and exception reference
// if it threw) as JSON on stdout. It exercises the dispatch/vmexec/bcheap
// stack the way cmd/sneller exercises the query engine end to end.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/corevm/bcvm/bcheap"
	"github.com/corevm/bcvm/config"
	"github.com/corevm/bcvm/diag"
	"github.com/corevm/bcvm/dispatch"
	"github.com/corevm/bcvm/genctx"
	"github.com/corevm/bcvm/layout"
	"github.com/corevm/bcvm/vmexec"
)

var (
	configPath  = flag.String("config", "", "path to a machine config YAML file (default: built-in 64-bit machine)")
	programPath = flag.String("program", "", "path to a textual bytecode program (required)")
	maxSteps    = flag.Int("max-steps", 10000, "step budget; execution stops with a step-limit outcome past this many instructions")
	verbose     = flag.Bool("v", false, "enable diag.Debugf tracing to stderr")
)

type stackSummary struct {
	Hint  string `json:"hint"`
	Known bool   `json:"known"`
	Bits  string `json:"bits,omitempty"`
}

type outcomeSummary struct {
	Kind      string         `json:"kind"`
	Stack     []stackSummary `json:"stack"`
	Exception *uint32        `json:"exception,omitempty"`
}

func main() {
	flag.Parse()
	log.SetFlags(0)
	diag.Errorf = func(f string, args ...any) { log.Printf("error: "+f, args...) }
	if *verbose {
		diag.Debugf = func(f string, args ...any) { log.Printf("debug: "+f, args...) }
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if *programPath == "" {
		return fmt.Errorf("bcrun: -program is required")
	}

	machine := config.Default64()
	if *configPath != "" {
		doc, err := os.ReadFile(*configPath)
		if err != nil {
			return fmt.Errorf("bcrun: reading config: %w", err)
		}
		machine, err = config.Load(doc)
		if err != nil {
			return err
		}
	}

	lf, err := layout.New(machine)
	if err != nil {
		return err
	}
	if sum, err := machine.Checksum(); err == nil {
		diag.Debugf("machine config checksum: %s", sum)
	}

	f, err := os.Open(*programPath)
	if err != nil {
		return fmt.Errorf("bcrun: opening program: %w", err)
	}
	defer f.Close()
	parsed, err := parseProgram(f)
	if err != nil {
		return err
	}

	raw := bcheap.NewBasicHeap(machine.HeapSize)
	heap := bcheap.NewManagedObjectHeap(raw, lf)

	table, err := dispatch.BuildDefault(int(machine.PointerSize))
	if err != nil {
		return err
	}

	frame := vmexec.NewFrame("main", heap, lf, genctx.Context{}, 0)
	for _, s := range parsed.setup {
		frame.PushSlot(s)
	}

	outcomes, err := vmexec.Run(frame, table, parsed.prog, *maxSteps)
	if err != nil {
		return err
	}

	summaries := make([]outcomeSummary, len(outcomes))
	for i, o := range outcomes {
		summaries[i] = summarize(o)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

// summarize drains o.Frame's evaluation stack top-to-bottom into a
// JSON-friendly form. The process exits right after printing, so there is
// no need to preserve frame state afterward.
func summarize(o vmexec.Outcome) outcomeSummary {
	s := outcomeSummary{}
	switch o.Kind {
	case vmexec.Completed:
		s.Kind = "completed"
	case vmexec.Threw:
		s.Kind = "threw"
		exc := uint32(o.Exception)
		s.Exception = &exc
	case vmexec.StepLimitExceeded:
		s.Kind = "step-limit-exceeded"
	}
	for o.Frame.StackDepth() > 0 {
		slot, err := o.Frame.PopSlot()
		if err != nil {
			break
		}
		s.Stack = append(s.Stack, stackSummary{
			Hint:  slot.Hint.String(),
			Known: slot.Contents.Span().IsFullyKnown(),
			Bits:  fmt.Sprintf("%x", slot.Contents.Span().Bits()),
		})
	}
	return s
}
