package cluster

import "sort"

const (
	maxLouvainPasses = 20
	maxMoveRounds    = 100
	gainEpsilon      = 1e-12
)

// louvain assigns every node of g to a community by modularity
// maximization. Higher resolution yields more, smaller communities.
// Scanning order and tie-breaks are fixed, so the result is
// deterministic for a given graph.
func louvain(g *tableGraph, resolution float64) []int {
	assign := make([]int, g.nodeCount)
	for i := range assign {
		assign[i] = i
	}

	n := g.nodeCount
	edges := g.edges

	for pass := 0; pass < maxLouvainPasses; pass++ {
		comm, moved := localMove(n, edges, resolution)

		// Renumber communities in first-seen node order so ids stay
		// stable across passes.
		renum := make(map[int]int, n)
		next := 0
		for i := 0; i < n; i++ {
			if _, ok := renum[comm[i]]; !ok {
				renum[comm[i]] = next
				next++
			}
		}

		for i := range assign {
			assign[i] = renum[comm[assign[i]]]
		}

		if !moved || next == n {
			break
		}

		// Aggregate: one node per community, edge weights summed,
		// intra-community weight becoming a self-loop.
		aggregated := make(map[[2]int]float64, len(edges))
		for key, w := range edges {
			a := renum[comm[key[0]]]
			b := renum[comm[key[1]]]
			aggregated[edgeKey(a, b)] += w
		}
		n = next
		edges = aggregated
	}

	return assign
}

// localMove is the Louvain inner phase: repeatedly move single nodes to
// the neighboring community with the best modularity gain until a full
// sweep makes no move.
func localMove(n int, edges map[[2]int]float64, resolution float64) ([]int, bool) {
	type halfEdge struct {
		to int
		w  float64
	}

	adj := make([][]halfEdge, n)
	degree := make([]float64, n)
	var totalWeight2 float64 // 2m

	for key, w := range edges {
		i, j := key[0], key[1]
		if i == j {
			degree[i] += 2 * w
			totalWeight2 += 2 * w
			continue
		}
		adj[i] = append(adj[i], halfEdge{to: j, w: w})
		adj[j] = append(adj[j], halfEdge{to: i, w: w})
		degree[i] += w
		degree[j] += w
		totalWeight2 += 2 * w
	}

	comm := make([]int, n)
	communityDegree := make([]float64, n)
	for i := range comm {
		comm[i] = i
		communityDegree[i] = degree[i]
	}

	if totalWeight2 == 0 {
		return comm, false
	}

	movedAny := false
	for round := 0; round < maxMoveRounds; round++ {
		movedThisRound := false

		for i := 0; i < n; i++ {
			links := make(map[int]float64)
			for _, e := range adj[i] {
				links[comm[e.to]] += e.w
			}

			current := comm[i]
			communityDegree[current] -= degree[i]

			best := current
			bestGain := links[current] - resolution*communityDegree[current]*degree[i]/totalWeight2

			candidates := make([]int, 0, len(links))
			for c := range links {
				if c != current {
					candidates = append(candidates, c)
				}
			}
			sort.Ints(candidates)

			for _, c := range candidates {
				gain := links[c] - resolution*communityDegree[c]*degree[i]/totalWeight2
				switch {
				case gain > bestGain+gainEpsilon:
					best, bestGain = c, gain
				case gain > bestGain-gainEpsilon && c < best:
					best = c
				}
			}

			communityDegree[best] += degree[i]
			if best != current {
				comm[i] = best
				movedThisRound = true
				movedAny = true
			}
		}

		if !movedThisRound {
			break
		}
	}

	return comm, movedAny
}
