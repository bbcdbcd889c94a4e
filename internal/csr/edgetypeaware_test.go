package csr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildScenario2 builds a single node with 4 out-edges of two types
// (type 1: dests {0,2}, type 5: dests {1,3}).
func buildScenario2() (*CsrTopology, map[PropertyIndex]EntityTypeID) {
	g := NewWithPropertyIndices(
		[]Edge{0, 4},
		[]Node{3, 1, 2, 0},
		[]PropertyIndex{0, 1, 2, 3},
		nil,
	)
	types := map[PropertyIndex]EntityTypeID{0: 5, 1: 5, 2: 1, 3: 1}
	return g, types
}

func TestEdgeTypeIndexDenseAndFingerprint(t *testing.T) {
	g, types := buildScenario2()
	typeOf := func(p PropertyIndex) EntityTypeID { return types[p] }
	seed := MakeOriginalCopy(g)

	idx := BuildEdgeTypeIndex(seed, typeOf, nil)
	require.Equal(t, 2, idx.Size())

	d1, ok := idx.DenseIndex(1)
	require.True(t, ok)
	d5, ok := idx.DenseIndex(5)
	require.True(t, ok)
	require.NotEqual(t, d1, d5)
	require.Less(t, d1, d5) // sorted by raw type id: 1 before 5

	idx2 := BuildEdgeTypeIndex(seed, typeOf, nil)
	require.Equal(t, idx.Fingerprint(), idx2.Fingerprint())
}

func TestEdgeTypeAwareTopologySlicesByType(t *testing.T) {
	g, types := buildScenario2()
	typeOf := func(p PropertyIndex) EntityTypeID { return types[p] }

	seed := MakeOriginalCopy(g).SortEdgesByTypeThenDest(typeOf, nil)
	idx := BuildEdgeTypeIndex(seed, typeOf, nil)
	aware := BuildEdgeTypeAwareTopology(seed, typeOf, idx, nil)

	d1, _ := idx.DenseIndex(1)
	d5, _ := idx.DenseIndex(5)

	b, e := aware.OutEdgesByType(0, d1)
	require.Equal(t, []Node{0, 2}, aware.Dests()[b:e])

	b, e = aware.OutEdgesByType(0, d5)
	require.Equal(t, []Node{1, 3}, aware.Dests()[b:e])

	require.Equal(t, 2, aware.OutDegreeByType(0, d1))
	require.Equal(t, 2, aware.OutDegreeByType(0, d5))
}

func TestEdgeTypeAwareTopologyHandlesMissingType(t *testing.T) {
	g := NewWithPropertyIndices([]Edge{0, 2}, []Node{0, 1}, []PropertyIndex{0, 1}, nil)
	types := map[PropertyIndex]EntityTypeID{0: 1, 1: 1}
	typeOf := func(p PropertyIndex) EntityTypeID { return types[p] }

	seed := MakeOriginalCopy(g).SortEdgesByTypeThenDest(typeOf, nil)
	// Build an index that also knows about a type with zero edges at
	// this node, by constructing it directly rather than via the scan.
	idx := &EdgeTypeIndex{
		idToIdx:   map[EntityTypeID]uint32{1: 0, 9: 1},
		idxToType: []EntityTypeID{1, 9},
	}
	aware := BuildEdgeTypeAwareTopology(seed, typeOf, idx, nil)

	b, e := aware.OutEdgesByType(0, 1) // dense index for type 9, which has no edges
	require.Equal(t, b, e)
}
