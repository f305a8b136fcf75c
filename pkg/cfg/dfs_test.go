package cfg

import "testing"

// buildDiamond returns a 4-block diamond: 0 -> {1,2} -> 3.
func buildDiamond() *Graph {
	g := &Graph{Head: 0}
	g.Blocks = []BasicBlock{
		{Out: []int{1, 2}, IDom: NoDom},
		{In: []int{0}, Out: []int{3}, IDom: NoDom},
		{In: []int{0}, Out: []int{3}, IDom: NoDom},
		{In: []int{1, 2}, IDom: NoDom},
	}
	return g
}

func TestNumberReversePostOrder(t *testing.T) {
	g := buildDiamond()
	rpo := Number(g)

	if len(rpo) != 4 {
		t.Fatalf("Number produced %d entries, want 4", len(rpo))
	}
	if rpo[0] != 0 {
		t.Errorf("rpo[0] = %d, want 0 (head visited first)", rpo[0])
	}
	if rpo[len(rpo)-1] != 3 {
		t.Errorf("rpo[last] = %d, want 3 (join block visited last)", rpo[len(rpo)-1])
	}
	// DFSFirst must be strictly increasing along a path from head
	if g.Blocks[0].DFSFirst >= g.Blocks[1].DFSFirst {
		t.Error("DFSFirst of head should precede DFSFirst of its successor")
	}
}

func TestNumberSkipsInvalidBlocks(t *testing.T) {
	g := buildDiamond()
	g.Blocks[2].Flags |= InvalidBB
	rpo := Number(g)
	for _, bi := range rpo {
		if bi == 2 {
			t.Error("Number visited an InvalidBB block")
		}
	}
}

func TestDominators(t *testing.T) {
	g := buildDiamond()
	rpo := Number(g)
	Dominators(g, rpo)

	if g.Blocks[0].IDom != 0 {
		t.Errorf("IDom[0] = %d, want 0 (head dominates itself)", g.Blocks[0].IDom)
	}
	if g.Blocks[1].IDom != 0 {
		t.Errorf("IDom[1] = %d, want 0", g.Blocks[1].IDom)
	}
	if g.Blocks[2].IDom != 0 {
		t.Errorf("IDom[2] = %d, want 0", g.Blocks[2].IDom)
	}
	if g.Blocks[3].IDom != 0 {
		t.Errorf("IDom[3] = %d, want 0 (join point's immediate dominator is the branch head, not either arm)", g.Blocks[3].IDom)
	}
}

func TestDominates(t *testing.T) {
	g := buildDiamond()
	rpo := Number(g)
	Dominators(g, rpo)

	if !Dominates(g, 0, 3) {
		t.Error("Dominates(0, 3) = false, want true")
	}
	if Dominates(g, 1, 2) {
		t.Error("Dominates(1, 2) = true, want false (parallel arms don't dominate each other)")
	}
	if !Dominates(g, 1, 1) {
		t.Error("Dominates(1, 1) = false, want true (a block dominates itself)")
	}
}
