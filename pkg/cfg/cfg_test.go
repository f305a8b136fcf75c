package cfg

import (
	"testing"

	"github.com/dcc-go/dcc/pkg/ir"
	"github.com/dcc-go/dcc/pkg/opcode"
	"github.com/dcc-go/dcc/pkg/proc"
)

// buildCondProc builds a 3-instruction procedure: JE (label 0, target 2),
// a fallthrough MOV (label 1), and a RET (label 2): the classic
// 2-branch-then-join shape Build must turn into two basic blocks.
func buildCondProc() *proc.Procedure {
	p := proc.New("sub", 0)
	p.IR.Append(ir.Instruction{
		Label: 0, Kind: ir.LowLevel,
		Low: &ir.LowLevel{Mnemonic: opcode.MnJE, Immed: 2},
	})
	p.IR.Append(ir.Instruction{
		Label: 1, Kind: ir.LowLevel,
		Low: &ir.LowLevel{Mnemonic: opcode.MnMOV},
	})
	p.IR.Append(ir.Instruction{
		Label: 2, Kind: ir.LowLevel,
		Low: &ir.LowLevel{Mnemonic: opcode.MnRET},
	})
	return p
}

func TestBuildSplitsAtJumpTarget(t *testing.T) {
	p := buildCondProc()
	g := Build(p)

	if len(g.Blocks) != 3 {
		t.Fatalf("len(Blocks) = %d, want 3 (JE alone, MOV alone, RET alone)", len(g.Blocks))
	}
	head := &g.Blocks[0]
	if head.Type != TwoBranch {
		t.Errorf("head.Type = %v, want TwoBranch", head.Type)
	}
	if len(head.Out) != 2 {
		t.Fatalf("head.Out = %v, want 2 out-edges (fallthrough + target)", head.Out)
	}
}

func TestBuildEmptyProcedureReturnsEmptyGraph(t *testing.T) {
	p := proc.New("sub", 0)
	g := Build(p)
	if len(g.Blocks) != 0 {
		t.Errorf("len(Blocks) = %d, want 0 for an empty procedure", len(g.Blocks))
	}
}

func TestBuildAddsTrailingNowhereWhenNotTerminating(t *testing.T) {
	p := proc.New("sub", 0)
	p.IR.Append(ir.Instruction{Label: 0, Kind: ir.LowLevel, Low: &ir.LowLevel{Mnemonic: opcode.MnMOV}})
	g := Build(p)

	last := &g.Blocks[len(g.Blocks)-1]
	if last.Type != Nowhere {
		t.Errorf("last block Type = %v, want Nowhere (no RET to terminate the procedure)", last.Type)
	}
}

func TestOrderedIndicesSkipsInvalidAndSortsByLabel(t *testing.T) {
	p := proc.New("sub", 0)
	p.IR.Append(ir.Instruction{Label: 5})
	p.IR.Append(ir.Instruction{Label: 1, Invalid: true})
	p.IR.Append(ir.Instruction{Label: 2})

	seq := orderedIndices(p)
	if len(seq) != 2 {
		t.Fatalf("len(seq) = %d, want 2 (invalid entry skipped)", len(seq))
	}
	if p.IR.At(seq[0]).Label != 2 || p.IR.At(seq[1]).Label != 5 {
		t.Errorf("seq labels = [%d, %d], want [2, 5] ascending", p.IR.At(seq[0]).Label, p.IR.At(seq[1]).Label)
	}
}
