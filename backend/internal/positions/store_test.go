package positions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-atlas/backend/internal/layout"
)

func TestSeed_Idempotent(t *testing.T) {
	s := New()
	nodes := []int64{1, 2, 3}
	computed := layout.Ring{}.Compute(nodes, nil, nil)

	assert.Equal(t, 3, s.Seed(nodes, computed))
	before := s.Snapshot()

	assert.Equal(t, 0, s.Seed(nodes, computed))
	assert.Equal(t, before, s.Snapshot())
}

func TestSeed_NeverOverwrites(t *testing.T) {
	s := New()
	require.True(t, s.Set(1, layout.Position{X: 70, Y: 70}))

	added := s.Seed([]int64{1, 2}, map[int64]layout.Position{
		1: {X: 10, Y: 10},
		2: {X: 20, Y: 20},
	})
	assert.Equal(t, 1, added)

	pos, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, layout.Position{X: 70, Y: 70}, pos)
}

func TestSeed_SkipsIDsWithoutComputedPosition(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Seed([]int64{5}, map[int64]layout.Position{}))
	assert.Equal(t, 0, s.Len())
}

func TestSet_Epsilon(t *testing.T) {
	s := New()
	assert.True(t, s.Set(1, layout.Position{X: 40, Y: 40}))
	assert.False(t, s.Set(1, layout.Position{X: 40.2, Y: 40.3}))
	assert.True(t, s.Set(1, layout.Position{X: 40.5, Y: 40}))

	pos, _ := s.Get(1)
	assert.Equal(t, 40.5, pos.X)
}

func TestSet_Clamps(t *testing.T) {
	s := New()
	s.Set(1, layout.Position{X: -20, Y: 140})
	pos, _ := s.Get(1)
	assert.Equal(t, layout.Position{X: 0, Y: 100}, pos)
}

func TestPrune_KeySetIsIntersection(t *testing.T) {
	s := New()
	s.Seed([]int64{1, 2, 3, 4}, layout.Ring{}.Compute([]int64{1, 2, 3, 4}, nil, nil))

	assert.True(t, s.Prune([]int64{2, 4, 9}))
	keys := make([]int64, 0)
	for id := range s.Snapshot() {
		keys = append(keys, id)
	}
	assert.ElementsMatch(t, []int64{2, 4}, keys)

	assert.False(t, s.Prune([]int64{2, 4}))
}

func TestReset_BumpsEpoch(t *testing.T) {
	s := New()
	s.Set(1, layout.Position{X: 1, Y: 1})
	assert.Equal(t, uint64(0), s.Epoch())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, uint64(1), s.Epoch())

	s.Reset()
	assert.Equal(t, uint64(2), s.Epoch())
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New()
	s.Set(1, layout.Position{X: 10, Y: 10})
	snap := s.Snapshot()
	snap[1] = layout.Position{X: 99, Y: 99}

	pos, _ := s.Get(1)
	assert.Equal(t, 10.0, pos.X)
}

func TestJSON(t *testing.T) {
	s := New()
	s.Reset()
	s.Set(3, layout.Position{X: 12.5, Y: 80})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"epoch":1,"positions":{"3":{"x":12.5,"y":80}}}`, string(data))

	decoded := New()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, s.Snapshot(), decoded.Snapshot())
	assert.Equal(t, uint64(1), decoded.Epoch())
}

func TestUnmarshal_RejectsBadIDs(t *testing.T) {
	s := New()
	err := json.Unmarshal([]byte(`{"epoch":0,"positions":{"abc":{"x":1,"y":1}}}`), s)
	assert.Error(t, err)
}

func TestRestore_KeepsOnlyValidIDs(t *testing.T) {
	s := New()
	s.Reset()
	s.Reset()
	s.Reset()

	n, err := s.Restore([]byte(`{"epoch":1,"positions":{"1":{"x":5,"y":5},"2":{"x":6,"y":6}}}`), []int64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := s.Get(1)
	assert.False(t, ok)
	pos, ok := s.Get(2)
	require.True(t, ok)
	assert.Equal(t, layout.Position{X: 6, Y: 6}, pos)
	assert.Equal(t, uint64(3), s.Epoch())
}
