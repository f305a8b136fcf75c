// Package cfg builds and structures a procedure's control-flow graph:
// basic-block construction, compression, DFS numbering, reducibility
// testing via Hecht's interval algorithm, immediate dominators, and
// loop/case/if/compound-condition structuring.
//
// Conceptual shape cross-checked against fkuehnel-golang-cfg
// (interval/SCC-style dominance) and jpshackelford-ralph-cc-go
// (liveness fixed point), neither of which has a stable importable
// module path, so both are read for shape, not imported.
package cfg

import "github.com/dcc-go/dcc/pkg/proc"

// NodeType is a basic block's control-transfer shape.
type NodeType int

const (
	OneBranch NodeType = iota
	TwoBranch
	MultiBranch
	Fall
	Return
	Call
	LoopInstr
	Terminate
	Nowhere
	IntervalNode
)

// LoopType is the structurer's loop classification.
type LoopType int

const (
	NoLoop LoopType = iota
	While
	Repeat
	Endless
)

// Flag is a per-BB bitmask.
type Flag uint8

const (
	InvalidBB Flag = 1 << iota
	IsLatchNode
)

const NoDom = -1

// BasicBlock is one CFG node. Start/Length index into the CFG's address-
// ordered IR-index sequence (Seq), not directly into the procedure's IR
// array, since invalidated IR slots are excluded from sequencing.
type BasicBlock struct {
	Type         NodeType
	Start, Length int

	In, Out []int // BB indexes, with duplicates representing edge multiplicity

	LiveUse, LiveDef, LiveIn, LiveOut uint32

	DFSFirst, DFSLast int
	IDom              int

	IfFollow   int
	LoopType   LoopType
	LatchNode  int
	LoopHead   int
	LoopFollow int
	CaseHead   int
	CaseTail   int

	NumBackEdges int
	Traversed    int
	Flags        Flag
}

func (b *BasicBlock) Has(f Flag) bool { return b.Flags&f != 0 }

// Graph is a procedure's CFG.
type Graph struct {
	Blocks []BasicBlock
	Seq    []int // procedure.IR indexes in ascending-address order
	Head   int
}

func newBlock() BasicBlock {
	return BasicBlock{IDom: NoDom, IfFollow: -1, LatchNode: -1, LoopHead: -1, LoopFollow: -1, CaseHead: -1, CaseTail: -1}
}

// irIndexAt returns the IR index at seq position seqPos.
func (g *Graph) irIndexAt(seqPos int) int { return g.Seq[seqPos] }

// Build constructs the CFG for p: sequences the IR in ascending address
// order, determines basic-block leaders, creates blocks, and links
// out-edges.
func Build(p *proc.Procedure) *Graph {
	seq := orderedIndices(p)
	g := &Graph{Seq: seq}
	if len(seq) == 0 {
		return g
	}
	addrToSeq := make(map[uint32]int, len(seq))
	for i, idx := range seq {
		addrToSeq[p.IR.At(idx).Label] = i
	}

	leaders := map[int]bool{0: true}
	for i, idx := range seq {
		ins := p.IR.At(idx)
		if !endsBlock(ins) {
			continue
		}
		if i+1 < len(seq) {
			leaders[i+1] = true
		}
		for _, tgt := range targets(p, ins, addrToSeq) {
			leaders[tgt] = true
		}
	}
	starts := sortedKeys(leaders)

	for bi, start := range starts {
		end := len(seq)
		if bi+1 < len(starts) {
			end = starts[bi+1]
		}
		bb := newBlock()
		bb.Start, bb.Length = start, end-start
		g.Blocks = append(g.Blocks, bb)
	}
	if len(g.Blocks) == 0 {
		bb := newBlock()
		bb.Start, bb.Length = 0, len(seq)
		g.Blocks = append(g.Blocks, bb)
	}

	// Trailing synthetic NOWHERE block if the last real instruction
	// doesn't naturally terminate.
	lastIdx := seq[len(seq)-1]
	if !endsBlock(p.IR.At(lastIdx)) {
		nowhere := newBlock()
		nowhere.Type = Nowhere
		nowhere.Start, nowhere.Length = len(seq), 0
		g.Blocks = append(g.Blocks, nowhere)
	}

	startToBB := make(map[int]int, len(g.Blocks))
	for bi := range g.Blocks {
		startToBB[g.Blocks[bi].Start] = bi
	}

	for bi := range g.Blocks {
		bb := &g.Blocks[bi]
		if bb.Length == 0 {
			bb.Type = Nowhere
			continue
		}
		lastSeqPos := bb.Start + bb.Length - 1
		ins := p.IR.At(seq[lastSeqPos])
		fallBB, hasFall := startToBB[lastSeqPos+1]

		switch {
		case isSwitch(ins):
			bb.Type = MultiBranch
			for _, tgtIdx := range p.SwitchCases[seq[lastSeqPos]] {
				if sp, ok := addrToSeq[p.IR.At(tgtIdx).Label]; ok {
					if tgtBB, ok := startToBB[sp]; ok {
						bb.Out = append(bb.Out, tgtBB)
					}
				}
			}
		case isCondJump(ins):
			bb.Type = TwoBranch
			if hasFall {
				bb.Out = append(bb.Out, fallBB)
			}
			if sp, ok := addrToSeq[uint32(ins.Low.Immed)]; ok {
				if tgtBB, ok := startToBB[sp]; ok {
					bb.Out = append(bb.Out, tgtBB)
				}
			}
		case isUncondJump(ins):
			bb.Type = OneBranch
			if sp, ok := addrToSeq[uint32(ins.Low.Immed)]; ok {
				if tgtBB, ok := startToBB[sp]; ok {
					bb.Out = append(bb.Out, tgtBB)
				}
			}
		case ins.IsCall():
			bb.Type = Call
			if hasFall {
				bb.Out = append(bb.Out, fallBB)
			}
		case ins.Low != nil && ins.Low.Mnemonic.IsReturn():
			bb.Type = Return
		case ins.Low != nil && ins.Low.Mnemonic == 0:
			bb.Type = Terminate
		default:
			bb.Type = Fall
			if hasFall {
				bb.Out = append(bb.Out, fallBB)
			}
		}
	}

	for bi := range g.Blocks {
		for _, to := range g.Blocks[bi].Out {
			g.Blocks[to].In = append(g.Blocks[to].In, bi)
		}
	}
	g.Head = 0
	return g
}

// orderedIndices returns p.IR's non-invalid, low-level-or-already-high
// indices sorted by ascending Label (image offset), the address order
// CFG construction needs.
func orderedIndices(p *proc.Procedure) []int {
	seq := make([]int, 0, p.IR.Len())
	for i := 0; i < p.IR.Len(); i++ {
		if !p.IR.At(i).Invalid {
			seq = append(seq, i)
		}
	}
	for i := 1; i < len(seq); i++ {
		for j := i; j > 0 && p.IR.At(seq[j-1]).Label > p.IR.At(seq[j]).Label; j-- {
			seq[j-1], seq[j] = seq[j], seq[j-1]
		}
	}
	return seq
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
