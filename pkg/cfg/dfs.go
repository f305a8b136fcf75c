package cfg

// Number assigns DFS first/last numbers: dfsFirstNum on enter,
// dfsLastNum in descending order on leave, producing a reverse
// post-order in the returned slice.
func Number(g *Graph) []int {
	n := len(g.Blocks)
	visited := make([]bool, n)
	order := make([]int, 0, n)
	var first int
	var dfs func(bi int)
	dfs = func(bi int) {
		if visited[bi] || g.Blocks[bi].Has(InvalidBB) {
			return
		}
		visited[bi] = true
		g.Blocks[bi].DFSFirst = first
		first++
		for _, to := range g.Blocks[bi].Out {
			dfs(to)
		}
		order = append(order, bi)
	}
	dfs(g.Head)
	last := len(order) - 1
	dfsLast := make([]int, len(order))
	for i, bi := range order {
		g.Blocks[bi].DFSLast = last
		dfsLast[last] = bi
		last--
	}
	return dfsLast
}

// Dominators computes immediate dominators in reverse post-order: for
// each block, intersect the dominator chains of its already-numbered
// predecessors.
func Dominators(g *Graph, rpo []int) {
	for i := range g.Blocks {
		g.Blocks[i].IDom = NoDom
	}
	g.Blocks[g.Head].IDom = g.Head

	rpoIndex := make(map[int]int, len(rpo))
	for i, bi := range rpo {
		rpoIndex[bi] = i
	}

	intersect := func(a, b int) int {
		for a != b {
			for rpoIndex[a] > rpoIndex[b] {
				a = g.Blocks[a].IDom
			}
			for rpoIndex[b] > rpoIndex[a] {
				b = g.Blocks[b].IDom
			}
		}
		return a
	}

	changed := true
	for changed {
		changed = false
		for _, bi := range rpo {
			if bi == g.Head {
				continue
			}
			newIdom := NoDom
			for _, pred := range g.Blocks[bi].In {
				if g.Blocks[pred].IDom == NoDom {
					continue
				}
				if newIdom == NoDom {
					newIdom = pred
				} else {
					newIdom = intersect(newIdom, pred)
				}
			}
			if newIdom != NoDom && newIdom != g.Blocks[bi].IDom {
				g.Blocks[bi].IDom = newIdom
				changed = true
			}
		}
	}
}

// Dominates reports whether a is an ancestor of (or equal to) b in the
// dominator tree.
func Dominates(g *Graph, a, b int) bool {
	for {
		if a == b {
			return true
		}
		if b == g.Head || g.Blocks[b].IDom == NoDom {
			return a == b
		}
		next := g.Blocks[b].IDom
		if next == b {
			return a == b
		}
		b = next
	}
}
