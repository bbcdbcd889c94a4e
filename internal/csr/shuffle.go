package csr

import (
	"sort"

	"github.com/vela-graph/rdg/internal/parallel"
)

// NodeComparator orders two nodes of the seed topology for
// ShuffleTopology's node permutation (by degree, by type, ...).
type NodeComparator func(seed *EdgeShuffleTopology, a, b Node) bool

// ByDegreeDescending orders nodes by out-degree, highest first — the
// comparator used for node_sort=by_degree.
func ByDegreeDescending(seed *EdgeShuffleTopology, a, b Node) bool {
	return seed.OutDegree(a) > seed.OutDegree(b)
}

// ByNodeType orders nodes by entity type, using typeOf to resolve the
// type of the node occupying the original property row.
func ByNodeType(typeOf TypeOfPropIdx, seed *EdgeShuffleTopology, a, b Node) bool {
	return typeOf(seed.PropIdxOfNode(a)) < typeOf(seed.PropIdxOfNode(b))
}

// ShuffleTopology additionally permutes the node numbering of a seed
// EdgeShuffleTopology: node i in the result occupies the position of
// node perm[i] in the seed. Edge destinations are remapped through the
// inverse permutation so the graph's connectivity is preserved.
type ShuffleTopology struct {
	*EdgeShuffleTopology
	NodeSort NodeSort
	// perm[newNode] = oldNode (the seed's node identifier).
	perm []Node
}

// MakeNodeShuffle builds a ShuffleTopology from seed by sorting nodes
// with less, then remapping every edge's destination and the node
// property-index array through the resulting permutation.
func MakeNodeShuffle(seed *EdgeShuffleTopology, less NodeComparator, sortKind NodeSort) *ShuffleTopology {
	n := seed.NumNodes()
	perm := make([]Node, n)
	for i := range perm {
		perm[i] = Node(i)
	}
	sort.SliceStable(perm, func(i, j int) bool { return less(seed, perm[i], perm[j]) })

	oldToNew := make([]Node, n)
	for newIdx, oldIdx := range perm {
		oldToNew[oldIdx] = Node(newIdx)
	}

	adj := make([]Edge, n+1)
	e := seed.NumEdges()
	dests := make([]Node, e)
	edgePropIdx := make([]PropertyIndex, e)
	nodePropIdx := make([]PropertyIndex, n)

	cursor := Edge(0)
	for newIdx, oldIdx := range perm {
		adj[newIdx] = cursor
		b, end := seed.OutEdgesRange(oldIdx)
		for edge := b; edge < end; edge++ {
			dests[cursor] = oldToNew[seed.OutEdgeDst(edge)]
			edgePropIdx[cursor] = seed.PropIdxOfEdge(edge)
			cursor++
		}
		nodePropIdx[newIdx] = seed.PropIdxOfNode(oldIdx)
	}
	adj[n] = cursor

	topo := NewWithPropertyIndices(adj, dests, edgePropIdx, nodePropIdx)
	return &ShuffleTopology{
		EdgeShuffleTopology: &EdgeShuffleTopology{CsrTopology: topo, Transpose: seed.Transpose, EdgeSort: EdgeSortAny},
		NodeSort:            sortKind,
		perm:                perm,
	}
}

// OriginalNode maps a node in this shuffled topology back to its
// identifier in the seed topology it was built from.
func (s *ShuffleTopology) OriginalNode(n Node) Node { return s.perm[n] }

// SortEdgesByDest re-sorts this shuffle's rows by destination, keeping
// the node permutation intact. A node reshuffle invalidates any prior
// edge order, so this re-sort is required after MakeNodeShuffle
// whenever the caller wants edge_sort=by_dest.
func (s *ShuffleTopology) SortEdgesByDest(pool *parallel.Pool) *ShuffleTopology {
	return &ShuffleTopology{EdgeShuffleTopology: s.EdgeShuffleTopology.SortEdgesByDest(pool), NodeSort: s.NodeSort, perm: s.perm}
}

// SortEdgesByTypeThenDest re-sorts this shuffle's rows by (type, dest).
func (s *ShuffleTopology) SortEdgesByTypeThenDest(typeOf TypeOfPropIdx, pool *parallel.Pool) *ShuffleTopology {
	return &ShuffleTopology{EdgeShuffleTopology: s.EdgeShuffleTopology.SortEdgesByTypeThenDest(typeOf, pool), NodeSort: s.NodeSort, perm: s.perm}
}
