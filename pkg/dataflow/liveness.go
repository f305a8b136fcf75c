package dataflow

import (
	"github.com/dcc-go/dcc/pkg/callgraph"
	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/ident"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/opcode"
	"github.com/dcc-go/dcc/pkg/proc"
)

// Analyzer drives the data-flow pipeline across the call graph,
// recursing lazily into not-yet-analysed callees.
type Analyzer struct {
	Procs  *proc.List
	Calls  *callgraph.Graph
	Graphs map[int]*cfg.Graph // procedure id -> already-built CFG

	analyzed map[int]bool
}

// NewAnalyzer returns an Analyzer over an already flow-followed,
// idiom-recognized, CFG-built, structured procedure list.
func NewAnalyzer(procs *proc.List, calls *callgraph.Graph, graphs map[int]*cfg.Graph) *Analyzer {
	return &Analyzer{Procs: procs, Calls: calls, Graphs: graphs, analyzed: map[int]bool{}}
}

// Run performs the full per-procedure data-flow pass: condition-code
// elimination, block live sets, the inter-procedural fixed point
// (recursing into not-yet-analysed callees), return inference, du-chain
// construction, and forward substitution. Returns the procedure's final
// live-in set, for the caller's own liveOut computation at the call
// site.
func (a *Analyzer) Run(procID int, callerLiveOut uint32) uint32 {
	p := a.Procs.Get(procID)
	if a.analyzed[procID] {
		return p.LiveIn
	}
	a.analyzed[procID] = true
	g := a.Graphs[procID]
	if g == nil || len(g.Blocks) == 0 {
		return 0
	}

	EliminateConditionCodes(p, g)
	computeBlockSets(p, g)
	a.fixedPoint(procID, p, g, callerLiveOut)
	inferReturn(p)
	BuildDUChains(p, g)
	ForwardSubstitute(p, g)

	return p.LiveIn
}

// computeBlockSets fills LiveUse/LiveDef per block, scanning HL
// instructions in order.
func computeBlockSets(p *proc.Procedure, g *cfg.Graph) {
	for bi := range g.Blocks {
		b := &g.Blocks[bi]
		b.LiveUse, b.LiveDef = 0, 0
		for sp := b.Start; sp < b.Start+b.Length; sp++ {
			ins := p.IR.At(g.Seq[sp])
			if ins.Invalid {
				continue
			}
			b.LiveUse |= ins.RegUseMask &^ b.LiveDef
			b.LiveDef |= ins.RegDefMask
		}
	}
}

// fixedPoint iterates reverse post order until no block's liveIn/liveOut
// changes.
func (a *Analyzer) fixedPoint(procID int, p *proc.Procedure, g *cfg.Graph, callerLiveOut uint32) {
	rpo := make([]int, len(g.Blocks))
	for i := range rpo {
		rpo[i] = i
	}
	// g.Blocks carry DFSLast already from cfg.Number; sort a local copy
	// by DFSFirst ascending to approximate reverse post order.
	for i := 1; i < len(rpo); i++ {
		for j := i; j > 0 && g.Blocks[rpo[j-1]].DFSFirst > g.Blocks[rpo[j]].DFSFirst; j-- {
			rpo[j-1], rpo[j] = rpo[j], rpo[j-1]
		}
	}

	changed := true
	for changed {
		changed = false
		for _, bi := range rpo {
			b := &g.Blocks[bi]
			if b.Has(cfg.InvalidBB) {
				continue
			}
			var liveOut uint32
			switch b.Type {
			case cfg.Return:
				liveOut = callerLiveOut
				if p.Has(proc.FlagIsFunc) && b.Length > 0 {
					emitReturn(p, g, bi, callerLiveOut)
				}
			case cfg.Call:
				liveOut = a.liveOutAcrossCall(p, g, bi, callerLiveOut)
			default:
				for _, succ := range b.Out {
					liveOut |= g.Blocks[succ].LiveIn
				}
			}
			liveIn := b.LiveUse | (liveOut &^ b.LiveDef)
			if liveOut != b.LiveOut || liveIn != b.LiveIn {
				b.LiveOut, b.LiveIn = liveOut, liveIn
				changed = true
			}
		}
	}

	final := g.Blocks[g.Head].LiveIn
	if p.Has(proc.FlagSIRegVar) {
		final &^= opcode.DUMask(opcode.RegSI, false, false)
	}
	if p.Has(proc.FlagDIRegVar) {
		final &^= opcode.DUMask(opcode.RegDI, false, false)
	}
	p.LiveIn = final
	p.LiveOut = callerLiveOut
}

// liveOutAcrossCall recurses into the callee (if not yet analysed),
// using the caller's current liveOut restricted to return-value
// registers as the callee's initial liveOut; the callee's liveIn
// becomes the call instruction's use set and its liveOut its def set.
func (a *Analyzer) liveOutAcrossCall(p *proc.Procedure, g *cfg.Graph, bi int, callerLiveOut uint32) uint32 {
	b := &g.Blocks[bi]
	var fall uint32
	for _, succ := range b.Out {
		fall |= g.Blocks[succ].LiveIn
	}
	if b.Length == 0 {
		return fall
	}
	ins := p.IR.At(g.Seq[b.Start+b.Length-1])
	if ins.Low == nil || ins.Low.Proc < 0 {
		return fall
	}
	calleeID := ins.Low.Proc
	callee := a.Procs.Get(calleeID)
	if callee.Has(proc.FlagIsLibrary) {
		return fall
	}
	returnMask := opcode.DUMask(opcode.RegAX, false, false) | opcode.DUMask(opcode.RegBX, false, false) |
		opcode.DUMask(opcode.RegCX, false, false) | opcode.DUMask(opcode.RegDX, false, false)
	calleeLiveIn := a.Run(calleeID, callerLiveOut&returnMask)
	ins.RegUseMask = calleeLiveIn
	ins.RegDefMask = callee.LiveOut
	return fall
}

// emitReturn produces the RET(expr) high-level instruction at a return
// block's tail, using the procedure's return-value identifier.
func emitReturn(p *proc.Procedure, g *cfg.Graph, bi int, liveOut uint32) {
	b := &g.Blocks[bi]
	idx := g.Seq[b.Start+b.Length-1]
	ins := p.IR.At(idx)
	exp := p.ReturnExpr()
	if exp == nil {
		return
	}
	ins.Kind = ir.HighLevel
	ins.High = &ir.HighLevel{Kind: ir.HLRet, Exp: exp}
}

// inferReturn classifies the procedure's return shape from its final
// live-out set.
func inferReturn(p *proc.Procedure) {
	axMask := opcode.DUMask(opcode.RegAX, false, false)
	dxMask := opcode.DUMask(opcode.RegDX, false, false)
	bxMask := opcode.DUMask(opcode.RegBX, false, false)
	cxMask := opcode.DUMask(opcode.RegCX, false, false)

	switch {
	case p.LiveOut&axMask != 0 && p.LiveOut&dxMask != 0:
		p.ReturnT = proc.ReturnLong
		p.Set(proc.FlagIsFunc)
		idx := p.Locals.FindLongRegister(opcode.RegDX, opcode.RegAX)
		if idx < 0 {
			idx = p.Locals.Add(longRegIdent(opcode.RegDX, opcode.RegAX))
			p.Locals.Get(idx).Name = ident.NewRegisterName(idx)
		}
		p.ReturnVar = idx
	case p.LiveOut&(axMask|bxMask|cxMask|dxMask) != 0:
		p.ReturnT = proc.ReturnWord
		p.Set(proc.FlagIsFunc)
		reg := firstRegOut(p.LiveOut, axMask, bxMask, cxMask, dxMask)
		idx := p.Locals.FindRegister(reg)
		if idx < 0 {
			idx = p.Locals.Add(regIdent(reg))
			p.Locals.Get(idx).Name = ident.NewRegisterName(idx)
		}
		p.ReturnVar = idx
	default:
		p.ReturnT = proc.ReturnVoid
		p.ReturnVar = -1
	}
}

func firstRegOut(liveOut uint32, masks ...uint32) uint8 {
	regs := []uint8{opcode.RegAX, opcode.RegBX, opcode.RegCX, opcode.RegDX}
	for i, m := range masks {
		if liveOut&m != 0 {
			return regs[i]
		}
	}
	return opcode.RegAX
}

