// Package bundle implements the output-ordering structure a back end
// would consume (original_source/src/bundle.c): HLL statements are
// grouped into one bundle per basic block, keyed by the block's
// position in reverse post-order; each statement carries its IR index
// and high-level-label number. The IR's own Bundle field is not used.
package bundle

import (
	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/proc"
)

// Stmt is one back-patchable statement reference within a bundle: the
// IR index it was emitted from, carried alongside so a back end can
// re-derive source text or re-order around control structures.
type Stmt struct {
	IRIndex int
	Label   int // this statement's own high-level label, for jump back-patching
}

// Bundle is an ordered run of statements sharing one code-bundle index.
type Bundle struct {
	Index int
	Stmts []Stmt
}

// Set is a procedure's ordered collection of bundles, indexed by
// bundle index for back-patch resolution.
type Set struct {
	bundles []Bundle
}

// New returns an empty bundle set.
func New() *Set { return &Set{} }

// Bundle returns (creating if necessary) the bundle at idx.
func (s *Set) Bundle(idx int) *Bundle {
	for idx >= len(s.bundles) {
		s.bundles = append(s.bundles, Bundle{Index: len(s.bundles)})
	}
	return &s.bundles[idx]
}

// Append adds stmt to the bundle at idx.
func (s *Set) Append(idx int, stmt Stmt) {
	b := s.Bundle(idx)
	b.Stmts = append(b.Stmts, stmt)
}

// Len returns the number of bundles allocated so far.
func (s *Set) Len() int { return len(s.bundles) }

// All returns the bundles in index order, for a back end to walk.
func (s *Set) All() []Bundle { return s.bundles }

// Build assigns one bundle per reachable basic block, in the graph's
// reverse-post-order block sequence, and appends every valid high-level
// statement of that block to it in IR order. The structured CFG's own
// block order determines emission order; bundle.c's role is to carry
// that order to the back end.
func Build(p *proc.Procedure, g *cfg.Graph, rpo []int) *Set {
	s := New()
	for bundleIdx, bi := range rpo {
		b := &g.Blocks[bi]
		if b.Has(cfg.InvalidBB) || b.Length == 0 {
			continue
		}
		for sp := b.Start; sp < b.Start+b.Length; sp++ {
			idx := g.Seq[sp]
			ins := p.IR.At(idx)
			if ins.Invalid || ins.Kind != ir.HighLevel {
				continue
			}
			s.Append(bundleIdx, Stmt{IRIndex: idx, Label: ins.HLLabel})
		}
	}
	return s
}
