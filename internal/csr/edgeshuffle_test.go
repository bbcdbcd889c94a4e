package csr

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vela-graph/rdg/pkg/rdgerr"
)

// countingHandler counts slog.Handle calls without formatting or
// writing anything, for asserting exactly-once warning semantics.
type countingHandler struct{ n *int }

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h countingHandler) Handle(context.Context, slog.Record) error {
	*h.n++
	return nil
}
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h countingHandler) WithGroup(string) slog.Handler       { return h }

func TestMakeTransposeCopyScenario1(t *testing.T) {
	g := buildScenario1()
	tr := MakeTransposeCopy(g, nil)
	require.NoError(t, tr.Validate())
	require.Equal(t, TransposeYes, tr.Transpose)

	// Original: 0->1, 0->2, 1->2, 2->3. Transpose in-degrees:
	// node0: 0, node1: 1 (from 0), node2: 2 (from 0,1), node3: 1 (from 2).
	require.Equal(t, 0, tr.OutDegree(0))
	require.Equal(t, 1, tr.OutDegree(1))
	require.Equal(t, 2, tr.OutDegree(2))
	require.Equal(t, 1, tr.OutDegree(3))

	b, e := tr.OutEdgesRange(1)
	require.Equal(t, []Node{0}, tr.Dests()[b:e])

	b, e = tr.OutEdgesRange(3)
	require.Equal(t, []Node{2}, tr.Dests()[b:e])
}

func TestSortEdgesByDestOrdersEachRow(t *testing.T) {
	// Node 0 has two out-edges, inserted out of dest order.
	g := New([]Edge{0, 2, 2}, []Node{2, 1})
	seed := MakeOriginalCopy(g)
	sorted := seed.SortEdgesByDest(nil)

	require.Equal(t, EdgeSortByDest, sorted.EdgeSort)
	b, e := sorted.OutEdgesRange(0)
	require.Equal(t, []Node{1, 2}, sorted.Dests()[b:e])
}

func TestFindEdgeLinearAndBinary(t *testing.T) {
	g := buildScenario1()
	seed := MakeOriginalCopy(g).SortEdgesByDest(nil)

	e, ok := seed.FindEdge(0, 2)
	require.True(t, ok)
	require.Equal(t, Node(2), seed.OutEdgeDst(e))

	_, ok = seed.FindEdge(0, 3)
	require.False(t, ok)

	_, ok = seed.FindEdge(3, 0)
	require.False(t, ok)

	// A by_dest row longer than binarySearchThreshold takes the binary
	// search path: node 0 points at every even node, odd nodes are absent.
	rowLen := binarySearchThreshold + 6
	adj := make([]Edge, 2*rowLen+1)
	for i := 1; i < len(adj); i++ {
		adj[i] = Edge(rowLen)
	}
	dests := make([]Node, rowLen)
	for i := range dests {
		dests[i] = Node(2 * (rowLen - 1 - i))
	}
	large := MakeOriginalCopy(New(adj, dests)).SortEdgesByDest(nil)
	for v := Node(0); v < Node(2*rowLen); v++ {
		e, ok := large.FindEdge(0, v)
		require.Equal(t, v%2 == 0, ok, "dest %d", v)
		if ok {
			require.Equal(t, v, large.OutEdgeDst(e))
		}
	}
}

func TestFindAllEdgesRequiresByDestSort(t *testing.T) {
	g := New([]Edge{0, 3}, []Node{1, 1, 2})
	unsorted := MakeOriginalCopy(g)
	_, _, err := unsorted.FindAllEdges(0, 1)
	require.Error(t, err)
	require.Equal(t, rdgerr.InvalidArgument, mustKind(t, err))

	sorted := unsorted.SortEdgesByDest(nil)
	b, e, err := sorted.FindAllEdges(0, 1)
	require.NoError(t, err)
	require.Equal(t, 2, int(e-b))
	for i := b; i < e; i++ {
		require.Equal(t, Node(1), sorted.OutEdgeDst(i))
	}
}

func TestFindEdgeWarnsOnceOnLargeUnsortedRow(t *testing.T) {
	adj := []Edge{0, Edge(binarySearchThreshold + 1)}
	dests := make([]Node, binarySearchThreshold+1)
	for i := range dests {
		dests[i] = Node(i)
	}
	g := New(adj, dests)
	seed := MakeOriginalCopy(g)

	var calls int
	seed.Logger = slog.New(countingHandler{n: &calls})

	for i := 0; i < 3; i++ {
		_, ok := seed.FindEdge(0, Node(len(dests)-1))
		require.True(t, ok)
	}
	require.Equal(t, 1, calls)
}

func TestFindEdgeDoesNotWarnOnShortUnsortedRow(t *testing.T) {
	g := New([]Edge{0, 2}, []Node{1, 0})
	seed := MakeOriginalCopy(g)

	var calls int
	seed.Logger = slog.New(countingHandler{n: &calls})

	_, ok := seed.FindEdge(0, 0)
	require.True(t, ok)
	require.Equal(t, 0, calls)
}

func mustKind(t *testing.T, err error) rdgerr.Kind {
	t.Helper()
	kind, ok := rdgerr.KindOf(err)
	require.True(t, ok)
	return kind
}

func TestSortEdgesByTypeThenDest(t *testing.T) {
	// Node 0 has 4 out-edges with mixed types and dests.
	g := NewWithPropertyIndices(
		[]Edge{0, 4},
		[]Node{3, 1, 2, 0},
		[]PropertyIndex{0, 1, 2, 3},
		nil,
	)
	types := map[PropertyIndex]EntityTypeID{0: 5, 1: 5, 2: 1, 3: 1}
	typeOf := func(p PropertyIndex) EntityTypeID { return types[p] }

	seed := MakeOriginalCopy(g)
	sorted := seed.SortEdgesByTypeThenDest(typeOf, nil)

	require.Equal(t, EdgeSortByTypeThenDest, sorted.EdgeSort)
	b, e := sorted.OutEdgesRange(0)
	dests := sorted.Dests()[b:e]
	propIdx := sorted.EdgePropIndices()[b:e]

	// Type 1 edges (orig prop idx 2,3 -> dest 2,0) sort before type 5
	// (orig prop idx 0,1 -> dest 3,1); within each type, sorted by dest.
	require.Equal(t, []Node{0, 2, 1, 3}, dests)
	require.Equal(t, []PropertyIndex{3, 2, 1, 0}, propIdx)
}
