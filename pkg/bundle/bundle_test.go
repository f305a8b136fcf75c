package bundle

import (
	"testing"

	"github.com/dcc-go/dcc/pkg/cfg"
	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/proc"
)

func TestSetAppendAndAll(t *testing.T) {
	s := New()
	s.Append(0, Stmt{IRIndex: 1, Label: 10})
	s.Append(0, Stmt{IRIndex: 2, Label: 11})
	s.Append(2, Stmt{IRIndex: 5, Label: 12})

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (bundle 1 is allocated as a gap)", s.Len())
	}
	all := s.All()
	if len(all[0].Stmts) != 2 {
		t.Errorf("bundle 0 has %d statements, want 2", len(all[0].Stmts))
	}
	if len(all[1].Stmts) != 0 {
		t.Errorf("bundle 1 (gap) has %d statements, want 0", len(all[1].Stmts))
	}
	if len(all[2].Stmts) != 1 {
		t.Errorf("bundle 2 has %d statements, want 1", len(all[2].Stmts))
	}
}

func TestBuildOrdersByRPOAndSkipsInvalid(t *testing.T) {
	p := proc.New("p", 0)
	// IR index 0: high-level statement (kept)
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, HLLabel: 1, High: &ir.HighLevel{Kind: ir.HLRet}})
	// IR index 1: invalidated high-level statement (skipped)
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, Invalid: true, HLLabel: 2})
	// IR index 2: low-level instruction (skipped, not HighLevel)
	p.IR.Append(ir.Instruction{Kind: ir.LowLevel})
	// IR index 3: high-level statement (kept)
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, HLLabel: 3, High: &ir.HighLevel{Kind: ir.HLRet}})

	g := &cfg.Graph{
		Seq: []int{0, 1, 2, 3},
		Blocks: []cfg.BasicBlock{
			{Start: 0, Length: 2}, // seq positions 0,1 -> IR 0 (kept), IR 1 (invalid, skipped)
			{Start: 2, Length: 2}, // seq positions 2,3 -> IR 2 (low-level, skipped), IR 3 (kept)
		},
	}
	rpo := []int{1, 0} // reverse the natural block order to confirm Build follows rpo, not index order

	set := Build(p, g, rpo)
	all := set.All()
	if len(all) != 2 {
		t.Fatalf("Build produced %d bundles, want 2", len(all))
	}
	if len(all[0].Stmts) != 1 || all[0].Stmts[0].IRIndex != 3 {
		t.Errorf("first bundle (block 1 per rpo) = %+v, want single stmt IRIndex=3", all[0].Stmts)
	}
	if len(all[1].Stmts) != 1 || all[1].Stmts[0].IRIndex != 0 {
		t.Errorf("second bundle (block 0 per rpo) = %+v, want single stmt IRIndex=0", all[1].Stmts)
	}
}

func TestBuildSkipsInvalidBlocks(t *testing.T) {
	p := proc.New("p", 0)
	p.IR.Append(ir.Instruction{Kind: ir.HighLevel, HLLabel: 1, High: &ir.HighLevel{}})

	g := &cfg.Graph{
		Seq:    []int{0},
		Blocks: []cfg.BasicBlock{{Start: 0, Length: 1, Flags: cfg.InvalidBB}},
	}
	set := Build(p, g, []int{0})
	if set.Len() != 0 {
		t.Errorf("Build produced %d bundles for an invalid-only block, want 0", set.Len())
	}
}
