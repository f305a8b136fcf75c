package cfg

import (
	"github.com/dcc-go/dcc/pkg/expr"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/proc"
)

// jcond returns the trailing JCOND high-level expression of a two-branch
// block, if any.
func jcond(p *proc.Procedure, g *Graph, bi int) *ir.Instruction {
	b := &g.Blocks[bi]
	if b.Type != TwoBranch || b.Length == 0 {
		return nil
	}
	ins := p.IR.At(g.Seq[b.Start+b.Length-1])
	if ins.High == nil || ins.High.Kind != ir.HLJCond {
		return nil
	}
	return ins
}

// MergeCompoundConditions folds chains of two-branch blocks into DBL_AND /
// DBL_OR compound conditions: while one side of a 2-branch block has
// exactly one HL instruction, exactly one in-edge, and both branches
// lead to a common pair of targets shared with its predecessor, combine
// the two conditions and splice the block out.
func MergeCompoundConditions(p *proc.Procedure, g *Graph) {
	changed := true
	for changed {
		changed = false
		for bi := range g.Blocks {
			if tryMerge(p, g, bi) {
				changed = true
			}
		}
	}
}

func tryMerge(p *proc.Procedure, g *Graph, bi int) bool {
	b := &g.Blocks[bi]
	if b.Type != TwoBranch || len(b.Out) != 2 {
		return false
	}
	for side := 0; side < 2; side++ {
		inner := b.Out[side]
		outer := b.Out[1-side]
		ib := &g.Blocks[inner]
		if ib.Type != TwoBranch || ib.Length != 1 || len(ib.In) != 1 || len(ib.Out) != 2 {
			continue
		}
		innerCond := jcond(p, g, inner)
		outerCond := jcond(p, g, bi)
		if innerCond == nil || outerCond == nil {
			continue
		}
		var newOp expr.Op
		var keep, drop int
		switch {
		case side == 0 && ib.Out[0] == outer:
			// b's true branch falls into inner, whose true branch also
			// reaches outer: (b || inner) true-merges to outer.
			newOp = expr.OpLogOr
			keep, drop = ib.Out[1], outer
		case side == 0 && ib.Out[1] == outer:
			newOp = expr.OpLogAnd
			innerCond.High.Exp = expr.NewNegation(innerCond.High.Exp)
			keep, drop = ib.Out[0], outer
		case side == 1 && ib.Out[1] == outer:
			newOp = expr.OpLogOr
			outerCond.High.Exp = expr.NewNegation(outerCond.High.Exp)
			keep, drop = ib.Out[0], outer
		case side == 1 && ib.Out[0] == outer:
			newOp = expr.OpLogAnd
			keep, drop = ib.Out[1], outer
		default:
			continue
		}
		_ = drop
		outerCond.High.Exp = expr.NewBoolean(newOp, outerCond.High.Exp, innerCond.High.Exp)
		b.Out = []int{keep, outer}
		removeIn(g, inner, bi)
		for _, o := range ib.Out {
			removeIn(g, o, inner)
		}
		ib.Flags |= InvalidBB
		for _, o := range b.Out {
			already := false
			for _, x := range g.Blocks[o].In {
				if x == bi {
					already = true
					break
				}
			}
			if !already {
				g.Blocks[o].In = append(g.Blocks[o].In, bi)
			}
		}
		return true
	}
	return false
}
