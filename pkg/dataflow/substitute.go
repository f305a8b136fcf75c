package dataflow

import (
	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/expr"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/proc"
)

// pushStack is the per-procedure scratch used by PUSH/POP/CALL-argument
// resolution; cleared at procedure entry, never shared across
// procedures.
type pushStack struct {
	items []*expr.Expr
}

func (s *pushStack) push(e *expr.Expr) { s.items = append(s.items, e) }

func (s *pushStack) pop() *expr.Expr {
	if len(s.items) == 0 {
		return nil
	}
	e := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return e
}

// ForwardSubstitute replaces single-use register definitions' rhs into
// their use site, eliminating the temporary, and resolves PUSH/POP/CALL-
// argument expression-stack plumbing.
func ForwardSubstitute(p *proc.Procedure, g *cfg.Graph) {
	stack := &pushStack{}
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		if b.Has(cfg.InvalidBB) {
			continue
		}
		for sp := b.Start; sp < b.Start+b.Length; sp++ {
			ins := p.IR.At(g.Seq[sp])
			if ins.Invalid || ins.Kind != ir.HighLevel || ins.High == nil {
				continue
			}
			switch ins.High.Kind {
			case ir.HLPush:
				stack.push(ins.High.Exp)
			case ir.HLPop:
				if e := stack.pop(); e != nil {
					ins.High.Exp = e
				}
			case ir.HLCall:
				resolveCallArgs(p, ins, stack)
			}
			substituteDef(p, ins)
		}
	}
}

// resolveCallArgs drains the expression stack into the call's argument
// list: Pascal convention pops exactly cbParam bytes, C convention pops
// until cbParam is exhausted or, for rest-of-stack calls, the stack is
// empty.
func resolveCallArgs(p *proc.Procedure, ins *ir.Instruction, stack *pushStack) {
	restOfStack := p.Convention == proc.ConventionC && p.CBParam == 0
	remaining := p.CBParam
	for {
		if !restOfStack && remaining <= 0 {
			break
		}
		e := stack.pop()
		if e == nil {
			break
		}
		ins.High.Args = append([]*expr.Expr{e}, ins.High.Args...)
		remaining -= 2
	}
}

// substituteDef attempts single-use forward substitution of ins's def
// into its sole reaching use, first against the use's rhs then its lhs,
// provided the def's rhs registers are not redefined between def and use
// (x-cleanliness).
func substituteDef(p *proc.Procedure, ins *ir.Instruction) {
	if ins.DU.NumDefs == 0 || len(ins.DU.Uses[0]) != 1 {
		return
	}
	if ins.High == nil || ins.High.Kind != ir.HLAssign || ins.High.RHS == nil {
		return
	}
	useIdx := ins.DU.Uses[0][0]
	use := p.IR.At(useIdx)
	if use.Invalid || use.High == nil {
		return
	}
	if !xClean(p, ins, use) {
		return
	}

	kind, idx := lhsIdentity(ins.High.LHS)
	if kind < 0 {
		return
	}
	if rhs, ok := use.High.RHS.ReplaceRegister(kind, idx, ins.High.RHS); ok {
		use.High.RHS = rhs
		ins.Invalid = true
		return
	}
	if use.High.LHS != nil {
		if lhs, ok := use.High.LHS.ReplaceRegister(kind, idx, ins.High.RHS); ok {
			use.High.LHS = lhs
			ins.Invalid = true
		}
	}
}

// xClean reports whether no instruction strictly between def and use
// (by IR index, a conservative approximation of block-local program
// order) redefines any register def's rhs references.
func xClean(p *proc.Procedure, def, use *ir.Instruction) bool {
	if def.High.RHS == nil {
		return false
	}
	lhsKind, lhsIdx := lhsIdentity(def.High.LHS)
	defIdx := indexOfInstruction(p, def)
	useIdx := indexOfInstruction(p, use)
	if defIdx < 0 || useIdx < 0 {
		return true
	}
	for i := defIdx + 1; i < useIdx; i++ {
		mid := p.IR.At(i)
		if mid.Invalid || mid.High == nil || mid.High.LHS == nil {
			continue
		}
		k, x := lhsIdentity(mid.High.LHS)
		if k < 0 {
			continue
		}
		if k == lhsKind && x == lhsIdx {
			return false
		}
		if def.High.RHS.UsesRegister(k, x) {
			return false
		}
	}
	return true
}

func lhsIdentity(e *expr.Expr) (expr.IdentKind, int) {
	if e == nil || e.Kind != expr.Identifier {
		return -1, -1
	}
	return e.IdentKind, e.Idx
}

func indexOfInstruction(p *proc.Procedure, ins *ir.Instruction) int {
	for i := 0; i < p.IR.Len(); i++ {
		if p.IR.At(i) == ins {
			return i
		}
	}
	return -1
}
