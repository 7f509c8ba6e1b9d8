package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-atlas/backend/internal/focus"
	"kgraph-atlas/backend/internal/graph"
)

func TestAssignClusters(t *testing.T) {
	nodes := []graph.Node{
		{ID: 1, Type: "Person"},
		{ID: 2, Type: "Place"},
		{ID: 3, Type: "Person"},
		{ID: 4, Type: "untyped"},
	}
	clusters := AssignClusters(nodes)

	require.Len(t, clusters, 3)
	assert.Equal(t, "cluster::person", clusters[0].ID)
	assert.Equal(t, 2, clusters[0].Size)
	assert.Equal(t, "Place", clusters[1].Type)
	assert.Equal(t, "cluster::untyped", clusters[2].ID)
	assert.Equal(t, ColorFor("Person"), clusters[0].Color)
}

func TestAssignClusters_SlugCollisions(t *testing.T) {
	nodes := []graph.Node{
		{ID: 1, Type: "Person"},
		{ID: 2, Type: "person"},
		{ID: 3, Type: "Work Item"},
		{ID: 4, Type: "work-item"},
		{ID: 5, Type: "person"},
	}
	clusters := AssignClusters(nodes)

	require.Len(t, clusters, 4)
	ids := make(map[string]string)
	for _, cl := range clusters {
		prev, dup := ids[cl.ID]
		assert.False(t, dup, "cluster id %s shared by %q and %q", cl.ID, prev, cl.Type)
		ids[cl.ID] = cl.Type
	}
	assert.Equal(t, "cluster::person", clusters[0].ID)
	assert.Regexp(t, `^cluster::person-[0-9a-f]{8}$`, clusters[1].ID)
	assert.Equal(t, 2, clusters[1].Size)
	assert.Equal(t, "cluster::work-item", clusters[2].ID)
	assert.NotEqual(t, clusters[2].ID, clusters[3].ID)

	// stable across calls
	assert.Equal(t, clusters, AssignClusters(nodes))
}

func TestClusterID(t *testing.T) {
	assert.Equal(t, "cluster::software-project", ClusterID("Software Project"))
	assert.Equal(t, "cluster::a-b", ClusterID("  a // b!! "))
	assert.Equal(t, "cluster::untyped", ClusterID("!!!"))
	assert.Equal(t, "cluster::untyped", ClusterID(""))
}

func TestColorFor_Deterministic(t *testing.T) {
	for _, label := range []string{"Person", "Place", "untyped", "Organization", ""} {
		c := ColorFor(label)
		assert.Equal(t, c, ColorFor(label))
		assert.Contains(t, clusterPalette, c)
	}
}

func TestColorFor_CoversPalette(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[ColorFor(string(rune('a'+i%26))+string(rune('A'+i/26)))] = true
	}
	assert.Len(t, seen, len(clusterPalette))
}

func TestNodeSize(t *testing.T) {
	assert.Equal(t, 18, NodeSize(0))
	assert.Equal(t, 27, NodeSize(3))
	assert.Equal(t, 42, NodeSize(8))
	assert.Equal(t, 42, NodeSize(1000))
	assert.Equal(t, 18, NodeSize(-4))
}

func TestEdgeLabel(t *testing.T) {
	e := graph.Edge{RelationType: "likes"}
	assert.Equal(t, "", EdgeLabel(e, focus.EdgeClass{}))
	assert.Equal(t, "", EdgeLabel(e, focus.EdgeClass{Dimmed: true}))
	assert.Equal(t, "likes", EdgeLabel(e, focus.EdgeClass{Focus: true}))
	assert.Equal(t, "likes", EdgeLabel(e, focus.EdgeClass{Highlight: true}))
}
