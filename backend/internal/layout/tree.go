package layout

import (
	"sort"

	"kgraph-atlas/backend/internal/constants"
	"kgraph-atlas/backend/internal/graph"
)

// Tree band limits in plane units
const (
	TreeTop    = 12.0
	TreeBottom = 86.0
	TreeLeft   = 10.0
	TreeRight  = 90.0
)

// Tree places nodes in horizontal bands by BFS level. Each connected
// component is walked from its own root and stacked below the previous one,
// so components never share a band.
type Tree struct{}

// Name implements Strategy
func (Tree) Name() Mode { return ModeTree }

// Compute implements Strategy. The preferred root, when visible, is walked
// first; every other unvisited id becomes a component root in input order.
func (Tree) Compute(nodeIDs []int64, edges []graph.Edge, root *int64) map[int64]Position {
	positions := make(map[int64]Position, len(nodeIDs))
	if len(nodeIDs) == 0 {
		return positions
	}

	levels, order := treeLevels(nodeIDs, edges, root)

	bands := make(map[int][]int64)
	for _, id := range order {
		l := levels[id]
		bands[l] = append(bands[l], id)
	}
	distinct := make([]int, 0, len(bands))
	for l := range bands {
		distinct = append(distinct, l)
	}
	sort.Ints(distinct)

	for bandIdx, l := range distinct {
		y := spread(bandIdx, len(distinct), TreeTop, TreeBottom)
		members := bands[l]
		for i, id := range members {
			positions[id] = Position{X: spread(i, len(members), TreeLeft, TreeRight), Y: y}
		}
	}
	return positions
}

// treeLevels assigns every node a global level and returns the BFS visit
// order. Components are offset so the next one starts one level below the
// deepest level reached so far.
func treeLevels(nodeIDs []int64, edges []graph.Edge, root *int64) (map[int64]int, []int64) {
	adj := graph.BuildAdjacency(nodeIDs, edges)

	roots := make([]int64, 0, len(nodeIDs)+1)
	if root != nil && adj.Has(*root) {
		roots = append(roots, *root)
	}
	roots = append(roots, nodeIDs...)

	levels := make(map[int64]int, len(nodeIDs))
	order := make([]int64, 0, len(nodeIDs))
	offset := 0

	for _, r := range roots {
		if _, seen := levels[r]; seen {
			continue
		}
		levels[r] = offset
		maxLevel := offset
		queue := []int64{r}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			order = append(order, cur)
			for _, next := range adj.NeighborsOf(cur) {
				if _, seen := levels[next]; seen {
					continue
				}
				levels[next] = levels[cur] + 1
				if levels[next] > maxLevel {
					maxLevel = levels[next]
				}
				queue = append(queue, next)
			}
		}
		offset = maxLevel + 1
	}

	return levels, order
}

// spread maps index i of n linearly onto [lo, hi]; a single item sits at the
// plane center.
func spread(i, n int, lo, hi float64) float64 {
	if n <= 1 {
		return constants.PlaneCenter
	}
	return lo + float64(i)*(hi-lo)/float64(n-1)
}
