package cfg

// intervalGraph is one level of the derived-sequence graph: a set of
// intervals, each a single-entry subgraph whose header is its only
// entry point, plus the inter-interval edges between them. Used to test
// reducibility via derived graphs.
type intervalGraph struct {
	headerOf map[int]int   // node -> interval index owning it
	members  [][]int       // interval index -> member node list
	edges    map[int][]int // interval index -> successor interval indexes
}

// intervals computes Hecht's interval partition of a graph described by
// nodes (opaque ids) and succ/pred adjacency.
func intervals(nodes []int, succ, pred map[int][]int, entry int) *intervalGraph {
	ig := &intervalGraph{headerOf: map[int]int{}, edges: map[int][]int{}}
	inGraph := map[int]bool{}
	for _, n := range nodes {
		inGraph[n] = true
	}
	headerQueue := []int{entry}
	queued := map[int]bool{entry: true}

	for len(headerQueue) > 0 {
		h := headerQueue[0]
		headerQueue = headerQueue[1:]
		if _, already := ig.headerOf[h]; already {
			continue
		}
		intervalIdx := len(ig.members)
		member := map[int]bool{h: true}
		ig.headerOf[h] = intervalIdx
		growing := true
		for growing {
			growing = false
			for _, n := range nodes {
				if member[n] || !inGraph[n] {
					continue
				}
				preds := pred[n]
				if len(preds) == 0 {
					continue
				}
				allIn := true
				for _, p := range preds {
					if !member[p] {
						allIn = false
						break
					}
				}
				if allIn {
					member[n] = true
					ig.headerOf[n] = intervalIdx
					growing = true
				}
			}
		}
		memberList := make([]int, 0, len(member))
		for n := range member {
			memberList = append(memberList, n)
		}
		ig.members = append(ig.members, memberList)

		for n := range member {
			for _, s := range succ[n] {
				if !member[s] && !queued[s] {
					headerQueue = append(headerQueue, s)
					queued[s] = true
				}
			}
		}
	}

	for idx, members := range ig.members {
		seenSucc := map[int]bool{}
		for _, n := range members {
			for _, s := range succ[n] {
				if tgt, ok := ig.headerOf[s]; ok && tgt != idx && !seenSucc[tgt] {
					seenSucc[tgt] = true
					ig.edges[idx] = append(ig.edges[idx], tgt)
				}
			}
		}
	}
	return ig
}

// Reducibility runs the derived-graph sequence to a fixed point,
// returning whether the CFG is reducible. If irreducible, the
// procedure-level caller is expected to set GRAPH_IRRED; node-splitting
// is intentionally not attempted, matching the decision to report
// irreducibility rather than restructure around it.
func Reducibility(g *Graph) bool {
	nodes := make([]int, 0, len(g.Blocks))
	succ := map[int][]int{}
	pred := map[int][]int{}
	for bi := range g.Blocks {
		if g.Blocks[bi].Has(InvalidBB) {
			continue
		}
		nodes = append(nodes, bi)
		succ[bi] = append([]int(nil), g.Blocks[bi].Out...)
		pred[bi] = append([]int(nil), g.Blocks[bi].In...)
	}
	entry := g.Head

	for {
		ig := intervals(nodes, succ, pred, entry)
		if len(ig.members) == 1 {
			return true
		}
		if len(ig.members) == len(nodes) {
			// Derived graph ≡ prior graph: no interval grew, fixed point
			// reached without becoming trivial.
			return false
		}
		newNodes := make([]int, len(ig.members))
		newSucc := map[int][]int{}
		newPred := map[int][]int{}
		for i := range ig.members {
			newNodes[i] = i
		}
		for from, tos := range ig.edges {
			newSucc[from] = tos
			for _, to := range tos {
				newPred[to] = append(newPred[to], from)
			}
		}
		nodes, succ, pred = newNodes, newSucc, newPred
		entry = ig.headerOf[entry]
	}
}
