package cfg

// StructureLoops classifies every back-edge-bearing header into
// WHILE/REPEAT/ENDLESS. Must run before StructureIfs, since the latch
// flag it computes participates in the if-structuring predicate.
func StructureLoops(g *Graph, rpo []int) {
	for _, bi := range rpo {
		b := &g.Blocks[bi]
		var latch, backEdges = -1, 0
		for _, pred := range b.In {
			if Dominates(g, bi, pred) {
				backEdges++
				if latch == -1 || g.Blocks[pred].DFSLast > g.Blocks[latch].DFSLast {
					latch = pred
				}
			}
		}
		if latch == -1 {
			continue
		}
		b.NumBackEdges = backEdges
		b.LatchNode = latch
		g.Blocks[latch].Flags |= IsLatchNode
		b.LoopHead = bi

		latchB := &g.Blocks[latch]
		headerIs2Way := len(b.Out) == 2
		latchIs2Way := len(latchB.Out) == 2

		switch {
		case latchIs2Way && headerIs2Way && bothOutsInLoop(g, bi, latch):
			b.LoopType = Repeat
			b.LoopFollow = notInLoop(g, bi, latch, latchB.Out)
		case latchIs2Way && headerIs2Way:
			b.LoopType = While
			b.LoopFollow = outsideOut(g, bi, latchB.Out[0], latchB.Out[1])
		case latchIs2Way && !headerIs2Way:
			b.LoopType = Repeat
		case !latchIs2Way && headerIs2Way:
			if target, ok := walkTowardHeader(g, latch, bi); ok {
				b.LoopType = While
				b.LoopFollow = otherBranch(b, target)
			} else {
				b.LoopType = Endless
			}
		default:
			b.LoopType = Repeat
		}
	}
}

func bothOutsInLoop(g *Graph, head, latch int) bool {
	for _, o := range g.Blocks[latch].Out {
		if !Dominates(g, head, o) {
			return false
		}
	}
	return true
}

func notInLoop(g *Graph, head, latch int, outs []int) int {
	for _, o := range outs {
		if !Dominates(g, head, o) {
			return o
		}
	}
	return outs[0]
}

func outsideOut(g *Graph, head, a, b int) int {
	aIn, bIn := Dominates(g, head, a), Dominates(g, head, b)
	if aIn && !bIn {
		return b
	}
	if bIn && !aIn {
		return a
	}
	return a
}

// walkTowardHeader follows dominator ancestry from latch toward header
// (a 1-way latch, i.e. a LOOP instruction) looking for one of header's
// branch targets.
func walkTowardHeader(g *Graph, latch, header int) (int, bool) {
	cur := latch
	for i := 0; i < len(g.Blocks); i++ {
		for _, t := range g.Blocks[header].Out {
			if cur == t {
				return t, true
			}
		}
		if cur == header || g.Blocks[cur].IDom == cur {
			return 0, false
		}
		cur = g.Blocks[cur].IDom
	}
	return 0, false
}

func otherBranch(b *BasicBlock, chosen int) int {
	for _, o := range b.Out {
		if o != chosen {
			return o
		}
	}
	return chosen
}

// StructureCases tags, for each multi-branch block in reverse post
// order, the exit node: the descendant whose immediate dominator is the
// header, is not a direct successor, and maximizes in-edge count.
func StructureCases(g *Graph, rpo []int) {
	for _, bi := range rpo {
		b := &g.Blocks[bi]
		if b.Type != MultiBranch {
			continue
		}
		directSucc := map[int]bool{}
		for _, o := range b.Out {
			directSucc[o] = true
		}
		exit, bestIn := -1, -1
		for i := range g.Blocks {
			if g.Blocks[i].IDom != bi || directSucc[i] {
				continue
			}
			if len(g.Blocks[i].In) > bestIn {
				exit, bestIn = i, len(g.Blocks[i].In)
			}
		}
		if exit >= 0 {
			b.CaseTail = exit
		}
		b.CaseHead = bi
	}
}

// StructureIfs assigns, for each 2-branch block not flagged as a loop
// latch, the follow node in reverse post order.
func StructureIfs(g *Graph, rpo []int) {
	unresolved := []int{}
	for _, bi := range rpo {
		b := &g.Blocks[bi]
		if b.Type != TwoBranch || b.Has(IsLatchNode) {
			continue
		}
		best, bestScore := -1, 1
		for i := range g.Blocks {
			if g.Blocks[i].IDom != bi {
				continue
			}
			score := len(g.Blocks[i].In) - backEdgeCount(g, i)
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 {
			b.IfFollow = best
		} else {
			unresolved = append(unresolved, bi)
		}
	}
	for _, bi := range unresolved {
		if encl := enclosingFollow(g, rpo, bi); encl >= 0 {
			g.Blocks[bi].IfFollow = encl
		}
	}
}

func backEdgeCount(g *Graph, bi int) int {
	if g.Blocks[bi].LoopHead == bi {
		return g.Blocks[bi].NumBackEdges
	}
	return 0
}

func enclosingFollow(g *Graph, rpo []int, bi int) int {
	idom := g.Blocks[bi].IDom
	for idom != bi && idom != NoDom {
		if g.Blocks[idom].IfFollow >= 0 {
			return g.Blocks[idom].IfFollow
		}
		next := g.Blocks[idom].IDom
		if next == idom {
			break
		}
		idom = next
	}
	return -1
}
