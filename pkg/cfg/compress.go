package cfg

// Compress performs two CFG reductions: chasing one-instruction
// JMP-only blocks (with cycle collapse into NOWHERE), and merging
// fall-through chains where the unique successor has in-degree one.
func Compress(g *Graph) {
	chaseJumpOnly(g)
	mergeFallThrough(g)
}

func isJumpOnlyBlock(b *BasicBlock) bool {
	return b.Type == OneBranch && b.Length == 1
}

// chaseJumpOnly replaces every edge into a one-instruction-JMP block
// with an edge directly to its eventual target, detecting cycles of
// such blocks and collapsing them to NOWHERE.
func chaseJumpOnly(g *Graph) {
	resolve := func(start int) int {
		seen := map[int]bool{}
		cur := start
		for isJumpOnlyBlock(&g.Blocks[cur]) && len(g.Blocks[cur].Out) == 1 {
			if seen[cur] {
				return -1 // cycle
			}
			seen[cur] = true
			cur = g.Blocks[cur].Out[0]
		}
		return cur
	}
	for bi := range g.Blocks {
		for oi, to := range g.Blocks[bi].Out {
			if !isJumpOnlyBlock(&g.Blocks[to]) {
				continue
			}
			final := resolve(to)
			if final == -1 {
				collapseCycle(g, to)
				continue
			}
			g.Blocks[bi].Out[oi] = final
			removeIn(g, to, bi)
			g.Blocks[final].In = append(g.Blocks[final].In, bi)
		}
	}
}

func collapseCycle(g *Graph, start int) {
	seen := map[int]bool{start: true}
	cur := start
	for {
		next := g.Blocks[cur].Out[0]
		if seen[next] {
			break
		}
		seen[next] = true
		cur = next
	}
	for bi := range seen {
		g.Blocks[bi].Type = Nowhere
		g.Blocks[bi].Out = nil
	}
}

func removeIn(g *Graph, target, from int) {
	in := g.Blocks[target].In
	for i, v := range in {
		if v == from {
			g.Blocks[target].In = append(in[:i], in[i+1:]...)
			return
		}
	}
}

// mergeFallThrough absorbs a FALL/ONE_BRANCH block's unique successor
// into it when that successor's in-degree is exactly one, retaining the
// successor's node type and edges.
func mergeFallThrough(g *Graph) {
	changed := true
	for changed {
		changed = false
		for bi := range g.Blocks {
			b := &g.Blocks[bi]
			if b.Has(InvalidBB) {
				continue
			}
			if (b.Type != Fall && b.Type != OneBranch) || len(b.Out) != 1 {
				continue
			}
			succ := b.Out[0]
			if succ == bi || len(g.Blocks[succ].In) != 1 {
				continue
			}
			b.Length += g.Blocks[succ].Length
			b.Type = g.Blocks[succ].Type
			b.Out = g.Blocks[succ].Out
			for _, to := range b.Out {
				replaceIn(g, to, succ, bi)
			}
			g.Blocks[succ].Flags |= InvalidBB
			changed = true
		}
	}
}

func replaceIn(g *Graph, target, oldFrom, newFrom int) {
	for i, v := range g.Blocks[target].In {
		if v == oldFrom {
			g.Blocks[target].In[i] = newFrom
			return
		}
	}
}
