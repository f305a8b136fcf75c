package dataflow

import (
	"testing"

	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/expr"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/proc"
)

func TestForwardSubstitutePushPop(t *testing.T) {
	p := proc.New("sub", 0)
	pushed := expr.NewConstant(7, 2)
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, High: &ir.HighLevel{Kind: ir.HLPush, Exp: pushed}})
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, High: &ir.HighLevel{Kind: ir.HLPop}})

	g := &cfg.Graph{Seq: []int{0, 1}, Blocks: []cfg.BasicBlock{{Start: 0, Length: 2}}}
	ForwardSubstitute(p, g)

	if p.IR.At(1).High.Exp != pushed {
		t.Error("POP did not receive the matching PUSH's expression")
	}
}

func TestForwardSubstituteCallArgsPascalConvention(t *testing.T) {
	p := proc.New("sub", 0)
	p.Convention = proc.ConventionPascal
	p.CBParam = 4 // two word args
	a1 := expr.NewConstant(1, 2)
	a2 := expr.NewConstant(2, 2)
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, High: &ir.HighLevel{Kind: ir.HLPush, Exp: a1}})
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, High: &ir.HighLevel{Kind: ir.HLPush, Exp: a2}})
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, High: &ir.HighLevel{Kind: ir.HLCall, Callee: "foo"}})

	g := &cfg.Graph{Seq: []int{0, 1, 2}, Blocks: []cfg.BasicBlock{{Start: 0, Length: 3}}}
	ForwardSubstitute(p, g)

	call := p.IR.At(2)
	if len(call.High.Args) != 2 {
		t.Fatalf("Args len = %d, want 2", len(call.High.Args))
	}
	if call.High.Args[0] != a1 || call.High.Args[1] != a2 {
		t.Error("call args not in push order")
	}
}

func TestSubstituteDefSingleUse(t *testing.T) {
	p := proc.New("sub", 0)
	localIdx := p.Locals.Add(regIdent(0))
	defRHS := expr.NewConstant(5, 2)
	def := ir.Instruction{
		Kind: ir.HighLevel,
		High: &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(localIdx), RHS: defRHS},
		DU:   ir.DefUse{NumDefs: 1, Uses: [2][]int{{1}}},
	}
	use := ir.Instruction{
		Kind: ir.HighLevel,
		High: &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(99), RHS: expr.NewRegister(localIdx)},
	}
	p.IR.Append(def)
	p.IR.Append(use)

	substituteDef(p, p.IR.At(0))

	if !p.IR.At(0).Invalid {
		t.Error("the substituted def should be invalidated")
	}
	rhs := p.IR.At(1).High.RHS
	if rhs.Kind != expr.Constant || rhs.Value != 5 {
		t.Errorf("use's RHS = %+v, want the def's constant substituted in", rhs)
	}
}

func TestXCleanBlocksWhenRedefinedBetween(t *testing.T) {
	p := proc.New("sub", 0)
	localIdx := p.Locals.Add(regIdent(0))
	def := ir.Instruction{
		Kind: ir.HighLevel,
		High: &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(localIdx), RHS: expr.NewConstant(5, 2)},
	}
	redef := ir.Instruction{
		Kind: ir.HighLevel,
		High: &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(localIdx), RHS: expr.NewConstant(9, 2)},
	}
	use := ir.Instruction{
		Kind: ir.HighLevel,
		High: &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(99), RHS: expr.NewRegister(localIdx)},
	}
	p.IR.Append(def)
	p.IR.Append(redef)
	p.IR.Append(use)

	if xClean(p, p.IR.At(0), p.IR.At(2)) {
		t.Error("xClean should be false when the def's identity is redefined before the use")
	}
}

func TestXCleanBlocksWhenRHSRegisterRedefinedBetween(t *testing.T) {
	// temp = [BX] ; BX = BX + 1 ; AX = temp
	// BX is never the def's own LHS, but the def's rhs reads through it,
	// so folding AX = [BX] here would evaluate the load post-increment.
	p := proc.New("sub", 0)
	tempIdx := p.Locals.Add(regIdent(0))
	bxIdx := p.Locals.Add(regIdent(1))
	def := ir.Instruction{
		Kind: ir.HighLevel,
		High: &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(tempIdx), RHS: expr.NewDereference(expr.NewRegister(bxIdx))},
	}
	incBX := ir.Instruction{
		Kind: ir.HighLevel,
		High: &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(bxIdx), RHS: expr.NewConstant(1, 2)},
	}
	use := ir.Instruction{
		Kind: ir.HighLevel,
		High: &ir.HighLevel{Kind: ir.HLAssign, LHS: expr.NewRegister(99), RHS: expr.NewRegister(tempIdx)},
	}
	p.IR.Append(def)
	p.IR.Append(incBX)
	p.IR.Append(use)

	if xClean(p, p.IR.At(0), p.IR.At(2)) {
		t.Error("xClean should be false when a register the def's rhs reads is redefined before the use")
	}
}
