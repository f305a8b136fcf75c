// Package dataflow implements condition-code elimination, per-block
// live-use/def computation, the inter-procedural live-in/live-out fixed
// point, return-value inference, def-use chain construction, and
// forward substitution.
//
// Shape cross-checked against jpshackelford-ralph-cc-go's
// liveness-fixed-point file (no stable importable module path, read for
// shape only).
package dataflow

import (
	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/expr"
	"github.com/dcc-go/dcc/pkg/ident"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/opcode"
	"github.com/dcc-go/dcc/pkg/proc"
)

// EliminateConditionCodes walks every Jcc in p, searching backward for
// the flag-defining instruction whose def-mask covers the Jcc's
// use-mask, and replaces the pair with a JCOND high-level instruction.
func EliminateConditionCodes(p *proc.Procedure, g *cfg.Graph) {
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		for sp := b.Start; sp < b.Start+b.Length; sp++ {
			idx := g.Seq[sp]
			ins := p.IR.At(idx)
			if ins.Invalid || ins.Kind != ir.LowLevel || ins.Low == nil {
				continue
			}
			if !ins.Low.Mnemonic.IsConditionalJump() {
				continue
			}
			if ins.Low.Mnemonic == opcode.MnJCXZ {
				// JCXZ tests CX itself, with no flag-defining partner.
				ins.Kind = ir.HighLevel
				ins.High = &ir.HighLevel{Kind: ir.HLJCond, Exp: buildJCond(p, ins)}
				continue
			}
			defIdx, defSP, ok := findFlagDef(p, g, bi, sp, ins.Low.FlagsUse)
			if !ok {
				// No local definer: this block is a single Jcc whose
				// predecessor already carries a JCOND, so merge by
				// rewriting the predecessor's operator in place.
				if sp == b.Start && len(b.In) == 1 {
					mergeIntoPredecessor(p, g, b.In[0], ins)
				}
				continue
			}
			exp := buildJCond(p, p.IR.At(defIdx))
			if exp == nil {
				continue
			}
			ins.Kind = ir.HighLevel
			ins.High = &ir.HighLevel{Kind: ir.HLJCond, Exp: exp}
			p.IR.At(defIdx).Invalid = true
			_ = defSP
		}
	}
}

// findFlagDef walks backward from sp (exclusive) within block bi for a
// CMP/TEST/OR whose FlagsDef covers use. Stops at the block's start.
func findFlagDef(p *proc.Procedure, g *cfg.Graph, bi, sp int, use opcode.FlagBit) (int, int, bool) {
	b := &g.Blocks[bi]
	for i := sp - 1; i >= b.Start; i-- {
		idx := g.Seq[i]
		ins := p.IR.At(idx)
		if ins.Invalid || ins.Kind != ir.LowLevel || ins.Low == nil {
			continue
		}
		switch ins.Low.Mnemonic {
		case opcode.MnCMP, opcode.MnTEST, opcode.MnOR:
			if ins.Low.FlagsDef&use == use {
				return idx, i, true
			}
		}
	}
	return -1, -1, false
}

// buildJCond constructs the JCOND boolean expression for the
// flag-defining instruction def, per the CMP/OR/TEST/JCXZ rules.
func buildJCond(p *proc.Procedure, def *ir.Instruction) *expr.Expr {
	if def.Low == nil {
		return nil
	}
	lhs := operandExpr(p, def.Low.Src)
	switch def.Low.Mnemonic {
	case opcode.MnCMP:
		rhs := operandExpr(p, def.Low.Dst)
		return expr.NewBoolean(expr.OpEQ, lhs, rhs)
	case opcode.MnOR:
		return expr.NewBoolean(expr.OpNE, lhs, expr.NewConstant(0, 2))
	case opcode.MnTEST:
		rhs := operandExpr(p, def.Low.Dst)
		return expr.NewBoolean(expr.OpNE, expr.NewBoolean(expr.OpAnd, lhs, rhs), expr.NewConstant(0, 2))
	case opcode.MnJCXZ:
		return expr.NewBoolean(expr.OpEQ, operandExpr(p, ir.Operand{Reg: opcode.RegCX}), expr.NewConstant(0, 2))
	default:
		return nil
	}
}

// mergeIntoPredecessor rewrites pred's trailing JCOND boolean operator
// to reflect jcc, when the current block is nothing but that single
// conditional jump.
func mergeIntoPredecessor(p *proc.Procedure, g *cfg.Graph, pred int, jcc *ir.Instruction) {
	pb := &g.Blocks[pred]
	if pb.Length == 0 {
		return
	}
	tail := p.IR.At(g.Seq[pb.Start+pb.Length-1])
	if tail.High == nil || tail.High.Kind != ir.HLJCond || tail.High.Exp == nil {
		return
	}
	if tail.High.Exp.Kind == expr.Boolean {
		tail.High.Exp.Op = tail.High.Exp.Op.Negate()
	}
}

func operandExpr(p *proc.Procedure, o ir.Operand) *expr.Expr {
	if o.Reg >= ir.IndexBase {
		return expr.NewDereference(expr.NewConstant(int64(o.Disp), 2))
	}
	if idx := p.Locals.FindRegister(o.Reg); idx >= 0 {
		return expr.NewRegister(idx)
	}
	idx := p.Locals.Add(regIdent(o.Reg))
	p.Locals.Get(idx).Name = ident.NewRegisterName(idx)
	return expr.NewRegister(idx)
}
