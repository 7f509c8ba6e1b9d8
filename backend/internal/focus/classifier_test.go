package focus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/state"
)

const (
	nodeA int64 = iota + 1
	nodeB
	nodeC
	nodeD
)

var (
	likesAB = graph.Edge{ID: 10, Source: nodeA, Target: nodeB, RelationType: "likes"}
	ownsCD  = graph.Edge{ID: 11, Source: nodeC, Target: nodeD, RelationType: "owns"}
)

func fixture() (graph.Adjacency, []graph.Edge) {
	edges := []graph.Edge{likesAB, ownsCD}
	return graph.BuildAdjacency([]int64{nodeA, nodeB, nodeC, nodeD}, edges), edges
}

func TestClassify_NoFocus(t *testing.T) {
	adj, edges := fixture()
	res := Classify(adj, edges, state.Focus{})

	assert.Nil(t, res.FocusSet)
	for id, class := range res.Nodes {
		assert.Equal(t, NodeDefault, class.State, "node %d", id)
		assert.False(t, class.Selected)
	}
	for id, class := range res.Edges {
		assert.Equal(t, EdgeClass{}, class, "edge %d", id)
		assert.Equal(t, "edge", class.String())
	}
}

func TestClassify_HoverA(t *testing.T) {
	adj, edges := fixture()
	res := Classify(adj, edges, state.Focus{ActiveNodeID: state.ID(nodeA)})

	assert.Equal(t, NodeFocused, res.Nodes[nodeA].State)
	assert.Equal(t, NodeFocused, res.Nodes[nodeB].State)
	assert.Equal(t, NodeDimmed, res.Nodes[nodeC].State)
	assert.Equal(t, NodeDimmed, res.Nodes[nodeD].State)

	ab := res.Edges[likesAB.ID]
	assert.True(t, ab.Focus)
	assert.False(t, ab.Dimmed)
	assert.True(t, ab.Labeled())

	cd := res.Edges[ownsCD.ID]
	assert.True(t, cd.Dimmed)
	assert.False(t, cd.Labeled())
}

func TestClassify_HighlightWithoutHover(t *testing.T) {
	adj, edges := fixture()
	res := Classify(adj, edges, state.Focus{HighlightRelationType: "owns"})

	cd := res.Edges[ownsCD.ID]
	assert.True(t, cd.Highlight)
	assert.False(t, cd.Dimmed)
	assert.True(t, cd.Labeled())

	ab := res.Edges[likesAB.ID]
	assert.True(t, ab.Dimmed)
	assert.False(t, ab.Labeled())

	for _, class := range res.Nodes {
		assert.Equal(t, NodeDefault, class.State)
	}
}

func TestClassify_HighlightIsCaseSensitive(t *testing.T) {
	adj, edges := fixture()
	res := Classify(adj, edges, state.Focus{HighlightRelationType: "Owns"})
	assert.False(t, res.Edges[ownsCD.ID].Highlight)
	assert.True(t, res.Edges[ownsCD.ID].Dimmed)
}

func TestClassify_HighlightNeverDimmed(t *testing.T) {
	adj, edges := fixture()
	for _, active := range []int64{nodeA, nodeB, nodeC, nodeD} {
		res := Classify(adj, edges, state.Focus{
			ActiveNodeID:          state.ID(active),
			HighlightRelationType: "owns",
		})
		assert.False(t, res.Edges[ownsCD.ID].Dimmed, "active %d", active)
	}
}

func TestClassify_FocusAndHighlightCoOccur(t *testing.T) {
	adj, edges := fixture()
	res := Classify(adj, edges, state.Focus{
		ActiveNodeID:          state.ID(nodeC),
		HighlightRelationType: "owns",
	})
	cd := res.Edges[ownsCD.ID]
	assert.Equal(t, EdgeClass{Focus: true, Highlight: true}, cd)
	assert.Equal(t, "edge focus highlight", cd.String())
}

func TestClassify_FocusSetMatchesNeighbors(t *testing.T) {
	nodes := []int64{1, 2, 3, 4, 5, 6}
	edges := []graph.Edge{
		{ID: 1, Source: 1, Target: 2},
		{ID: 2, Source: 3, Target: 1},
		{ID: 3, Source: 4, Target: 5},
		{ID: 4, Source: 2, Target: 6},
	}
	adj := graph.BuildAdjacency(nodes, edges)

	for _, active := range nodes {
		res := Classify(adj, edges, state.Focus{ActiveNodeID: state.ID(active)})
		expected := map[int64]bool{active: true}
		for _, n := range adj.NeighborsOf(active) {
			expected[n] = true
		}
		for _, id := range nodes {
			if expected[id] {
				assert.Equal(t, NodeFocused, res.Nodes[id].State, "active %d node %d", active, id)
			} else {
				assert.Equal(t, NodeDimmed, res.Nodes[id].State, "active %d node %d", active, id)
			}
		}
	}
}

func TestClassify_EdgeBetweenNeighborsNotDimmed(t *testing.T) {
	// B-C is not a focus edge for A, but both ends are in A's focus set
	edges := []graph.Edge{
		{ID: 1, Source: nodeA, Target: nodeB},
		{ID: 2, Source: nodeA, Target: nodeC},
		{ID: 3, Source: nodeB, Target: nodeC},
	}
	adj := graph.BuildAdjacency([]int64{nodeA, nodeB, nodeC}, edges)
	res := Classify(adj, edges, state.Focus{ActiveNodeID: state.ID(nodeA)})

	assert.Equal(t, EdgeClass{}, res.Edges[3])
}

func TestClassify_SelectedLayered(t *testing.T) {
	adj, edges := fixture()
	res := Classify(adj, edges, state.Focus{
		ActiveNodeID:   state.ID(nodeA),
		SelectedNodeID: state.ID(nodeD),
	})
	d := res.Nodes[nodeD]
	assert.Equal(t, NodeDimmed, d.State)
	assert.True(t, d.Selected)
	assert.Equal(t, "node dimmed selected", d.String())
	assert.Equal(t, "node focused", res.Nodes[nodeA].String())
}

func TestClassify_StaleActiveIgnored(t *testing.T) {
	adj, edges := fixture()
	res := Classify(adj, edges, state.Focus{ActiveNodeID: state.ID(99)})
	assert.Nil(t, res.FocusSet)
	for _, class := range res.Nodes {
		assert.Equal(t, NodeDefault, class.State)
	}
}

func TestClassify_Empty(t *testing.T) {
	res := Classify(graph.BuildAdjacency(nil, nil), nil, state.Focus{ActiveNodeID: state.ID(1)})
	assert.Empty(t, res.Nodes)
	assert.Empty(t, res.Edges)
}
