package csr

import "github.com/vela-graph/rdg/internal/parallel"

// EdgeTypeAwareTopology layers a per-node-per-type adjacency index on
// top of an edge_sort=by_type_then_dest EdgeShuffleTopology, so that
// "give me node n's edges of type t" is an O(1) range lookup instead of
// a scan. The index, perTypeBoundary, has length N*K and stores end
// offsets: type k's range at node n begins where type k-1's ends (or at
// seed.adj[n] for k = 0) and ends at perTypeBoundary[n*K+k]; the final
// column perTypeBoundary[n*K+K-1] closes the last type's range.
type EdgeTypeAwareTopology struct {
	*EdgeShuffleTopology
	TypeIndex *EdgeTypeIndex
	// perTypeBoundary[n*K+k] holds the edge offset where type dense-index
	// k's run ends within node n's row (exclusive), or equivalently the
	// offset where k+1's run begins. perTypeBoundary[n*K-1+K] is simply
	// seed.adj[n+1].
	perTypeBoundary []Edge
}

// BuildEdgeTypeAwareTopology constructs the per-type boundary index.
// seed must be sorted edge_sort=by_type_then_dest so that, within each
// node's row, edges of the same type form one contiguous run ordered
// by dense type index; typeIndex supplies that dense ordering.
//
// For every node, a single linear pass over its row (parallelized
// across nodes) walks forward recording, for each dense type index it
// crosses, the edge offset where that type's run ends — filling any
// type with zero edges at that node with the same boundary as the type
// before it, so every node's row of K boundaries is monotone
// non-decreasing and its last boundary is the node's row end.
func BuildEdgeTypeAwareTopology(seed *EdgeShuffleTopology, typeOf TypeOfPropIdx, typeIndex *EdgeTypeIndex, pool *parallel.Pool) *EdgeTypeAwareTopology {
	pool = poolOrDefault(pool)
	n := seed.NumNodes()
	k := typeIndex.Size()
	boundary := make([]Edge, n*k)

	pool.DoAll(n, func(ni int) {
		node := Node(ni)
		b, e := seed.OutEdgesRange(node)
		base := ni * k
		typeCursor := 0
		for edge := b; edge < e; edge++ {
			dense, _ := typeIndex.DenseIndex(typeOf(seed.PropIdxOfEdge(edge)))
			for typeCursor < int(dense) {
				boundary[base+typeCursor] = edge
				typeCursor++
			}
		}
		for typeCursor < k {
			boundary[base+typeCursor] = e
			typeCursor++
		}
	})

	return &EdgeTypeAwareTopology{EdgeShuffleTopology: seed, TypeIndex: typeIndex, perTypeBoundary: boundary}
}

// OutEdgesByType returns the half-open edge range of node n's edges
// whose dense type index is k.
func (t *EdgeTypeAwareTopology) OutEdgesByType(n Node, k uint32) (Edge, Edge) {
	kk := int(k)
	width := t.TypeIndex.Size()
	base := int(n) * width

	end := t.perTypeBoundary[base+kk]
	var begin Edge
	if kk == 0 {
		begin, _ = t.OutEdgesRange(n)
	} else {
		begin = t.perTypeBoundary[base+kk-1]
	}
	return begin, end
}

// OutDegreeByType is the count of node n's edges of dense type index k.
func (t *EdgeTypeAwareTopology) OutDegreeByType(n Node, k uint32) int {
	b, e := t.OutEdgesByType(n, k)
	return int(e - b)
}
