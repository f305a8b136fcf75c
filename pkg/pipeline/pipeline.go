// Package pipeline wires the leaf packages into a single batch run:
// load, flow-follow from the entry point, lift idioms, build/structure
// each discovered procedure's CFG, run the inter-procedural data-flow
// pass from the entry procedure, and bundle the result for the back
// end.
//
// Grounded on original_source/src/dcc.c's main() (FrontEnd -> udm ->
// BackEnd), generalized from dcc.c's three monolithic calls into one
// Go-native driver function that owns the shared tables passed between
// stages.
package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/dcc-go/dcc/pkg/bundle"
	"github.com/dcc-go/dcc/pkg/callgraph"
	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/dataflow"
	"github.com/dcc-go/dcc/pkg/idiom"
	"github.com/dcc-go/dcc/pkg/interact"
	"github.com/dcc-go/dcc/pkg/libsig"
	"github.com/dcc-go/dcc/pkg/loader"
	"github.com/dcc-go/dcc/pkg/memmap"
	"github.com/dcc-go/dcc/pkg/proc"
	"github.com/dcc-go/dcc/pkg/scanner"
	"github.com/dcc-go/dcc/pkg/symtab"

	"github.com/dcc-go/dcc/pkg/flow"
)

// Options configures one run. Prompt is supplied by the caller so this
// package never decides what "interactive" means (cmd/dcc wires a
// terminal prompter or interact.NoOp depending on -i).
type Options struct {
	Prompt interact.Prompter
	Sig    libsig.Matcher
}

// Result is everything a back end or CLI reporter needs after the run.
type Result struct {
	Image   *loader.Image
	Procs   *proc.List
	Calls   *callgraph.Graph
	Sym     *symtab.Table
	Mem     *memmap.Map
	Graphs  map[int]*cfg.Graph
	RPO     map[int][]int
	Bundles map[int]*bundle.Set
	Entry   int
}

// Run executes the full pipeline against filename and returns the
// populated tables, or the first fatal error surfaced via the error
// chain from loader/flow.
func Run(filename string, opts Options, log *logrus.Logger) (*Result, error) {
	if opts.Prompt == nil {
		opts.Prompt = interact.NoOp{}
	}
	if opts.Sig == nil {
		opts.Sig = libsig.NoneMatcher{}
	}

	log.WithField("file", filename).Info("loading image")
	img, err := loader.Load(filename)
	if err != nil {
		return nil, err
	}

	scan := scanner.New(img.Bytes, img.RelocOffs)
	procs := proc.NewList()
	calls := callgraph.New()
	sym := symtab.New()
	mem := memmap.New(uint(len(img.Bytes)))

	follower := flow.New(scan, procs, calls, sym, mem, opts.Sig, opts.Prompt, log)

	log.WithField("entry", img.EntryAddr()).Info("following control flow from entry point")
	entryID, err := follower.Walk(img.EntryAddr(), "start")
	if err != nil {
		return nil, err
	}

	graphs := make(map[int]*cfg.Graph, len(procs.Procs))
	rpos := make(map[int][]int, len(procs.Procs))
	bundles := make(map[int]*bundle.Set, len(procs.Procs))

	for id, p := range procs.Procs {
		if p.Has(proc.FlagIsLibrary) || p.IR.Len() == 0 {
			continue
		}

		log.WithField("proc", p.Name).Debug("lifting idioms")
		idiom.Run(p)

		log.WithField("proc", p.Name).Debug("building control-flow graph")
		g := cfg.Build(p)
		cfg.Compress(g)
		rpo := cfg.Number(g)
		cfg.Dominators(g, rpo)
		if !cfg.Reducibility(g) {
			p.Set(proc.FlagGraphIrred)
			log.WithField("proc", p.Name).Warn("irreducible control-flow graph")
		}

		cfg.StructureLoops(g, rpo)
		cfg.StructureCases(g, rpo)
		cfg.StructureIfs(g, rpo)
		cfg.MergeCompoundConditions(p, g)

		graphs[id] = g
		rpos[id] = rpo
		p.CFGHead = g.Head
		p.DFSLast = rpo
		p.NumBB = len(g.Blocks)
	}

	log.WithField("proc", procs.Get(entryID).Name).Info("running inter-procedural data-flow analysis")
	analyzer := dataflow.NewAnalyzer(procs, calls, graphs)
	analyzer.Run(entryID, 0)

	// A binary can reach procedures the entry point never calls directly
	// (e.g. a handler wired by a vector table the flow-follower still
	// discovered as its own procedure). Run's own analyzed-set guard
	// makes re-running already-covered ids a cheap no-op, so sweep every
	// built graph to make sure none were left unsubstituted.
	for id := range graphs {
		analyzer.Run(id, 0)
	}

	for id, p := range procs.Procs {
		g, ok := graphs[id]
		if !ok {
			continue
		}
		bundles[id] = bundle.Build(p, g, rpos[id])
	}

	return &Result{
		Image:   img,
		Procs:   procs,
		Calls:   calls,
		Sym:     sym,
		Mem:     mem,
		Graphs:  graphs,
		RPO:     rpos,
		Bundles: bundles,
		Entry:   entryID,
	}, nil
}
