// Package csr implements the CSR topology family: the immutable
// canonical CsrTopology, and the EdgeShuffleTopology, ShuffleTopology,
// and EdgeTypeAwareTopology variants derived from it. Bulk operations
// run as a parallel-for over node or edge ranges via package parallel.
package csr

import (
	"fmt"

	"github.com/vela-graph/rdg/internal/parallel"
	"github.com/vela-graph/rdg/pkg/rdgerr"
)

// Node, Edge, and PropertyIndex are dense, zero-based identifiers.
// PropertyIndex translates a position in a (possibly shuffled) topology
// back to the row it occupies in the PropertyManager's column storage.
type (
	Node          = uint32
	Edge          = uint32
	PropertyIndex = uint32
	EntityTypeID  = uint32
)

// CsrTopology is the immutable compressed-sparse-row graph: adj has
// length N+1 and is monotone non-decreasing with adj[0]=0, adj[N]=E;
// dests has length E with every entry in [0,N). edgePropIdx and
// nodePropIdx are optional permutations translating a position in this
// topology to a row index in property storage — when absent, the
// identity mapping (prop_idx_of_edge(e)=e) applies.
type CsrTopology struct {
	adj         []Edge
	dests       []Node
	edgePropIdx []PropertyIndex
	nodePropIdx []PropertyIndex
}

// New builds a canonical topology from adjacency and destination
// arrays, with no property-index permutation (identity translation).
func New(adj []Edge, dests []Node) *CsrTopology {
	return &CsrTopology{adj: adj, dests: dests}
}

// NewWithPropertyIndices builds a topology carrying explicit edge/node
// property-index permutations, as produced by any of the shuffled
// derivatives.
func NewWithPropertyIndices(adj []Edge, dests []Node, edgePropIdx, nodePropIdx []PropertyIndex) *CsrTopology {
	return &CsrTopology{adj: adj, dests: dests, edgePropIdx: edgePropIdx, nodePropIdx: nodePropIdx}
}

// Validate checks the structural invariants a well-formed topology
// must hold: adj[0] = 0, adj[N] = E, adj monotone non-decreasing, and
// every destination in range.
func (t *CsrTopology) Validate() error {
	n := t.NumNodes()
	e := t.NumEdges()
	if len(t.adj) != n+1 {
		return rdgerr.New(rdgerr.AssertionFailed, "adj length %d != N+1 (%d)", len(t.adj), n+1)
	}
	if n > 0 && t.adj[0] != 0 {
		return rdgerr.New(rdgerr.AssertionFailed, "adj[0] = %d, want 0", t.adj[0])
	}
	if n > 0 && int(t.adj[n]) != e {
		return rdgerr.New(rdgerr.AssertionFailed, "adj[N] = %d, want E = %d", t.adj[n], e)
	}
	for i := 0; i < n; i++ {
		if t.adj[i] > t.adj[i+1] {
			return rdgerr.New(rdgerr.AssertionFailed, "adj[%d]=%d > adj[%d]=%d", i, t.adj[i], i+1, t.adj[i+1])
		}
	}
	for i, d := range t.dests {
		if int(d) >= n {
			return rdgerr.New(rdgerr.AssertionFailed, "dest[%d]=%d out of range [0,%d)", i, d, n)
		}
	}
	return nil
}

// NumNodes returns N. adj always has length N+1, so N = len(adj)-1;
// an empty topology (adj unset) has zero nodes.
func (t *CsrTopology) NumNodes() int {
	if len(t.adj) == 0 {
		return 0
	}
	return len(t.adj) - 1
}

// NumEdges returns E = len(dests).
func (t *CsrTopology) NumEdges() int { return len(t.dests) }

// Empty reports whether the topology has no nodes.
func (t *CsrTopology) Empty() bool { return t.NumNodes() == 0 }

// AdjIndices exposes the backing adjacency-offset slice.
func (t *CsrTopology) AdjIndices() []Edge { return t.adj }

// Dests exposes the backing destination slice.
func (t *CsrTopology) Dests() []Node { return t.dests }

// EdgePropIndices exposes the backing edge property-index slice, which
// may be nil if the topology uses the identity mapping.
func (t *CsrTopology) EdgePropIndices() []PropertyIndex { return t.edgePropIdx }

// NodePropIndices exposes the backing node property-index slice, which
// may be nil if the topology uses the identity mapping.
func (t *CsrTopology) NodePropIndices() []PropertyIndex { return t.nodePropIdx }

// OutEdgesRange returns the half-open [begin, end) edge range for node
// n's outgoing edges.
func (t *CsrTopology) OutEdgesRange(n Node) (Edge, Edge) {
	return t.adj[n], t.adj[n+1]
}

// OutDegree returns the number of outgoing edges of n.
func (t *CsrTopology) OutDegree(n Node) int {
	b, e := t.OutEdgesRange(n)
	return int(e - b)
}

// OutEdgeDst returns the destination node of edge e.
func (t *CsrTopology) OutEdgeDst(e Edge) Node { return t.dests[e] }

// PropIdxOfEdge translates topology edge position e to its row in edge
// property storage, identity if no permutation is carried.
func (t *CsrTopology) PropIdxOfEdge(e Edge) PropertyIndex {
	if len(t.edgePropIdx) == 0 {
		return e
	}
	return t.edgePropIdx[e]
}

// PropIdxOfNode translates topology node position n to its row in node
// property storage, identity if no permutation is carried.
func (t *CsrTopology) PropIdxOfNode(n Node) PropertyIndex {
	if len(t.nodePropIdx) == 0 {
		return n
	}
	return t.nodePropIdx[n]
}

// Copy deep-copies this topology's arrays, each destination array
// sourced from its own origin slice — a naive implementation that
// sources both the edge- and node-property-index copies from the same
// source array would silently lose the node permutation.
func (t *CsrTopology) Copy() *CsrTopology {
	out := &CsrTopology{
		adj:   append([]Edge(nil), t.adj...),
		dests: append([]Node(nil), t.dests...),
	}
	if len(t.edgePropIdx) > 0 {
		out.edgePropIdx = append([]PropertyIndex(nil), t.edgePropIdx...)
	}
	if len(t.nodePropIdx) > 0 {
		out.nodePropIdx = append([]PropertyIndex(nil), t.nodePropIdx...)
	}
	return out
}

// Transpose kinds a derived topology can carry.
type Transpose int

const (
	TransposeNo Transpose = iota
	TransposeYes
)

// EdgeSort kinds a derived topology can carry.
type EdgeSort int

const (
	EdgeSortAny EdgeSort = iota
	EdgeSortByDest
	EdgeSortByTypeThenDest
)

// NodeSort kinds a derived topology can carry.
type NodeSort int

const (
	NodeSortAny NodeSort = iota
	NodeSortByDegree
	NodeSortByType
)

// Tag fully identifies one derived view by its transpose/sort kinds.
type Tag struct {
	Transpose Transpose
	EdgeSort  EdgeSort
	NodeSort  NodeSort
}

func (t Tag) String() string {
	return fmt.Sprintf("Tag{transpose=%d,edge_sort=%d,node_sort=%d}", t.Transpose, t.EdgeSort, t.NodeSort)
}

// poolOrDefault normalizes a possibly-nil *parallel.Pool argument.
func poolOrDefault(p *parallel.Pool) *parallel.Pool {
	if p == nil {
		return parallel.Default
	}
	return p
}
