package dataflow

import (
	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/proc"
)

// BuildDUChains walks forward from every defining HL instruction to
// collect up to ir.MaxUses reaching uses of each defined register
// within the block, extending one block forward along the call
// successor to reach a function-return consumer. A def with no use that
// is not live-out and not library-return residue is invalidated and its
// references removed from earlier uses.
func BuildDUChains(p *proc.Procedure, g *cfg.Graph) {
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		if b.Has(cfg.InvalidBB) {
			continue
		}
		for sp := b.Start; sp < b.Start+b.Length; sp++ {
			idx := g.Seq[sp]
			ins := p.IR.At(idx)
			if ins.Invalid || ins.Kind != ir.HighLevel || ins.RegDefMask == 0 {
				continue
			}
			ins.DU = ir.DefUse{}
			uses := collectUses(p, g, bi, sp, ins.RegDefMask)
			ins.DU.NumDefs = 1
			if popCount(ins.RegDefMask) > 1 {
				ins.DU.NumDefs = 2
			}
			ins.DU.Uses[0] = uses

			if len(uses) == 0 && b.LiveOut&ins.RegDefMask == 0 && !isLibraryCallResidue(ins) {
				ins.Invalid = true
				for ep := b.Start; ep < sp; ep++ {
					earlier := p.IR.At(g.Seq[ep])
					for d := range earlier.DU.Uses {
						for k, u := range earlier.DU.Uses[d] {
							if u == idx {
								earlier.DU.Uses[d] = append(earlier.DU.Uses[d][:k:k], earlier.DU.Uses[d][k+1:]...)
								break
							}
						}
					}
				}
			}
		}
	}
}

// collectUses walks forward from (bi, afterSP) for up to ir.MaxUses HL
// instructions that use any bit of defMask before it is redefined,
// continuing into the unique call-successor block if the def reaches
// the end of bi undefined.
func collectUses(p *proc.Procedure, g *cfg.Graph, bi, afterSP int, defMask uint32) []int {
	var uses []int
	b := &g.Blocks[bi]
	remaining := defMask
	for sp := afterSP + 1; sp < b.Start+b.Length && len(uses) < ir.MaxUses; sp++ {
		idx := g.Seq[sp]
		ins := p.IR.At(idx)
		if ins.Invalid {
			continue
		}
		if ins.RegUseMask&remaining != 0 {
			uses = append(uses, idx)
		}
		remaining &^= ins.RegDefMask
		if remaining == 0 {
			return uses
		}
	}
	if remaining != 0 && len(b.Out) == 1 && len(uses) < ir.MaxUses {
		succ := &g.Blocks[b.Out[0]]
		for sp := succ.Start; sp < succ.Start+succ.Length && len(uses) < ir.MaxUses; sp++ {
			idx := g.Seq[sp]
			ins := p.IR.At(idx)
			if ins.Invalid {
				continue
			}
			if ins.RegUseMask&remaining != 0 {
				uses = append(uses, idx)
			}
			remaining &^= ins.RegDefMask
			if remaining == 0 {
				break
			}
		}
	}
	return uses
}

func isLibraryCallResidue(ins *ir.Instruction) bool {
	return ins.High != nil && ins.High.Kind == ir.HLCall && ins.High.Proc < 0
}

func popCount(m uint32) int {
	n := 0
	for m != 0 {
		n += int(m & 1)
		m >>= 1
	}
	return n
}
