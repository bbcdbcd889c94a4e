package csr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildScenario1 constructs a small N=4 graph:
// edges {0->1, 0->2, 1->2, 2->3}.
func buildScenario1() *CsrTopology {
	adj := []Edge{0, 2, 3, 4, 4}
	dests := []Node{1, 2, 2, 3}
	return New(adj, dests)
}

func TestCsrTopologyBasics(t *testing.T) {
	g := buildScenario1()
	require.NoError(t, g.Validate())
	require.Equal(t, 4, g.NumNodes())
	require.Equal(t, 4, g.NumEdges())

	require.Equal(t, 2, g.OutDegree(0))
	require.Equal(t, 1, g.OutDegree(1))
	require.Equal(t, 1, g.OutDegree(2))
	require.Equal(t, 0, g.OutDegree(3))

	b, e := g.OutEdgesRange(0)
	require.Equal(t, []Node{1, 2}, g.Dests()[b:e])
}

func TestCsrTopologyIdentityPropIdx(t *testing.T) {
	g := buildScenario1()
	for e := Edge(0); e < Edge(g.NumEdges()); e++ {
		require.Equal(t, e, g.PropIdxOfEdge(e))
	}
	for n := Node(0); n < Node(g.NumNodes()); n++ {
		require.Equal(t, n, g.PropIdxOfNode(n))
	}
}

func TestCsrTopologyCopyDoesNotCrossWireIndices(t *testing.T) {
	g := NewWithPropertyIndices(
		[]Edge{0, 1, 2},
		[]Node{1, 0},
		[]PropertyIndex{7, 8},
		[]PropertyIndex{40, 41},
	)

	c := g.Copy()
	require.Equal(t, []PropertyIndex{7, 8}, c.EdgePropIndices())
	require.Equal(t, []PropertyIndex{40, 41}, c.NodePropIndices())

	// Mutating the copy must not affect the original.
	c.edgePropIdx[0] = 99
	require.Equal(t, PropertyIndex(7), g.PropIdxOfEdge(0))
}

func TestCsrTopologyValidateCatchesBadAdj(t *testing.T) {
	bad := New([]Edge{0, 2, 3, 4, 5}, []Node{1, 2, 2, 3})
	require.Error(t, bad.Validate())
}
