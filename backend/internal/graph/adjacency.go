package graph

import "sort"

// Adjacency holds undirected neighbor sets and per-node degree counts
type Adjacency struct {
	Neighbors map[int64]map[int64]struct{}
	Degree    map[int64]int
}

// BuildAdjacency builds symmetric neighbor sets and degrees for the given
// nodes. Every listed node gets an entry, isolated ones included. Edges
// touching an unlisted node are skipped; callers are expected to pass an edge
// list already restricted to the visible nodes.
func BuildAdjacency(nodeIDs []int64, edges []Edge) Adjacency {
	adj := Adjacency{
		Neighbors: make(map[int64]map[int64]struct{}, len(nodeIDs)),
		Degree:    make(map[int64]int, len(nodeIDs)),
	}
	for _, id := range nodeIDs {
		adj.Neighbors[id] = make(map[int64]struct{})
		adj.Degree[id] = 0
	}

	for _, e := range edges {
		src, okSrc := adj.Neighbors[e.Source]
		tgt, okTgt := adj.Neighbors[e.Target]
		if !okSrc || !okTgt {
			continue
		}
		src[e.Target] = struct{}{}
		tgt[e.Source] = struct{}{}
		adj.Degree[e.Source]++
		adj.Degree[e.Target]++
	}

	return adj
}

// Has reports whether id is a known node
func (a Adjacency) Has(id int64) bool {
	_, ok := a.Neighbors[id]
	return ok
}

// Adjacent reports whether a and b share an edge (in either direction)
func (a Adjacency) Adjacent(x, y int64) bool {
	_, ok := a.Neighbors[x][y]
	return ok
}

// NeighborsOf returns the neighbors of id in ascending order
func (a Adjacency) NeighborsOf(id int64) []int64 {
	set := a.Neighbors[id]
	out := make([]int64, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
