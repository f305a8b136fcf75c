package dataflow

import (
	"testing"

	"github.com/dcc-go/dcc/pkg/callgraph"
	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/opcode"
	"github.com/dcc-go/dcc/pkg/proc"
)

func TestComputeBlockSets(t *testing.T) {
	p := proc.New("sub", 0)
	p.IR.Append(ir.Instruction{RegDefMask: 1})
	p.IR.Append(ir.Instruction{RegUseMask: 1}) // uses what block 0 just defined, not live-use
	p.IR.Append(ir.Instruction{RegUseMask: 2}) // uses something never defined in-block: live-use

	g := &cfg.Graph{Seq: []int{0, 1, 2}, Blocks: []cfg.BasicBlock{
		{Start: 0, Length: 3},
	}}
	computeBlockSets(p, g)

	b := &g.Blocks[0]
	if b.LiveDef != 1 {
		t.Errorf("LiveDef = %#x, want 0x1", b.LiveDef)
	}
	if b.LiveUse != 2 {
		t.Errorf("LiveUse = %#x, want 0x2 (the locally-defined register must not appear in LiveUse)", b.LiveUse)
	}
}

func TestComputeBlockSetsSkipsInvalid(t *testing.T) {
	p := proc.New("sub", 0)
	p.IR.Append(ir.Instruction{RegUseMask: 4, Invalid: true})

	g := &cfg.Graph{Seq: []int{0}, Blocks: []cfg.BasicBlock{
		{Start: 0, Length: 1},
	}}
	computeBlockSets(p, g)

	if g.Blocks[0].LiveUse != 0 {
		t.Errorf("LiveUse = %#x, want 0 (invalidated instruction must not contribute)", g.Blocks[0].LiveUse)
	}
}

func TestInferReturnVoid(t *testing.T) {
	p := proc.New("sub", 0)
	p.LiveOut = 0
	inferReturn(p)
	if p.ReturnT != proc.ReturnVoid || p.ReturnVar != -1 {
		t.Errorf("ReturnT=%v ReturnVar=%d, want Void/-1", p.ReturnT, p.ReturnVar)
	}
}

func TestInferReturnWord(t *testing.T) {
	p := proc.New("sub", 0)
	p.LiveOut = opcode.DUMask(opcode.RegAX, false, false)
	inferReturn(p)
	if p.ReturnT != proc.ReturnWord {
		t.Errorf("ReturnT = %v, want ReturnWord", p.ReturnT)
	}
	if !p.Has(proc.FlagIsFunc) {
		t.Error("FlagIsFunc not set for a word-returning procedure")
	}
	if p.ReturnVar < 0 {
		t.Error("ReturnVar not assigned for a word-returning procedure")
	}
}

func TestInferReturnLong(t *testing.T) {
	p := proc.New("sub", 0)
	p.LiveOut = opcode.DUMask(opcode.RegAX, false, false) | opcode.DUMask(opcode.RegDX, false, false)
	inferReturn(p)
	if p.ReturnT != proc.ReturnLong {
		t.Errorf("ReturnT = %v, want ReturnLong", p.ReturnT)
	}
}

func TestLiveOutAcrossCallSeedsAllFourReturnRegisters(t *testing.T) {
	bxMask := opcode.DUMask(opcode.RegBX, false, false)
	cxMask := opcode.DUMask(opcode.RegCX, false, false)

	procs := proc.NewList()
	calleeID := procs.Add(proc.New("callee", 0x100))
	callee := procs.Get(calleeID)
	callee.IR.Append(ir.Instruction{Label: 0, Kind: ir.LowLevel, Low: &ir.LowLevel{Mnemonic: opcode.MnRET}})
	calleeGraph := &cfg.Graph{Seq: []int{0}, Blocks: []cfg.BasicBlock{{Start: 0, Length: 1, Type: cfg.Return}}}

	callerID := procs.Add(proc.New("caller", 0))
	caller := procs.Get(callerID)
	caller.IR.Append(ir.Instruction{Label: 0, Kind: ir.LowLevel, Low: &ir.LowLevel{Mnemonic: opcode.MnCALL, Proc: calleeID}})
	callerGraph := &cfg.Graph{Seq: []int{0}, Blocks: []cfg.BasicBlock{{Start: 0, Length: 1, Type: cfg.Call}}}

	a := NewAnalyzer(procs, callgraph.New(), map[int]*cfg.Graph{calleeID: calleeGraph, callerID: callerGraph})

	// caller's liveOut demands only BX and CX at the call site: a callee
	// returning in either register must have that demand reach it.
	a.liveOutAcrossCall(caller, callerGraph, 0, bxMask|cxMask)

	ins := caller.IR.At(0)
	if ins.RegUseMask&(bxMask|cxMask) != bxMask|cxMask {
		t.Errorf("call's RegUseMask = %#x, want BX|CX (%#x) preserved through the return-register seed", ins.RegUseMask, bxMask|cxMask)
	}
}

func TestFirstRegOutPrefersEarliestMask(t *testing.T) {
	axMask := opcode.DUMask(opcode.RegAX, false, false)
	bxMask := opcode.DUMask(opcode.RegBX, false, false)
	got := firstRegOut(axMask|bxMask, axMask, bxMask)
	if got != opcode.RegAX {
		t.Errorf("firstRegOut = %v, want RegAX (first matching mask wins)", got)
	}
}
