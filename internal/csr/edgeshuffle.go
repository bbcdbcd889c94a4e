package csr

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vela-graph/rdg/internal/parallel"
	"github.com/vela-graph/rdg/pkg/rdgerr"
)

// the row length above which FindEdge switches from a linear scan to
// binary search on by_dest rows. FindAllEdges binary-searches at any
// row length.
const binarySearchThreshold = 64

// EdgeShuffleTopology is a CsrTopology annotated with the edge-level
// transformations that produced it (transpose and/or edge sort), plus
// find_edge/find_all_edges lookups that exploit sort order when
// present.
type EdgeShuffleTopology struct {
	*CsrTopology
	Transpose Transpose
	EdgeSort  EdgeSort

	// Logger receives the one-time warning FindEdge emits when it falls
	// back to a linear scan on a large row. Nil uses slog.Default().
	Logger   *slog.Logger
	warnOnce sync.Once
}

// MakeOriginalCopy wraps a deep copy of the canonical topology with the
// "no transform applied" tag (transpose=no, edge_sort=any).
func MakeOriginalCopy(canonical *CsrTopology) *EdgeShuffleTopology {
	return &EdgeShuffleTopology{CsrTopology: canonical.Copy(), Transpose: TransposeNo, EdgeSort: EdgeSortAny}
}

// MakeTransposeCopy builds the transpose of canonical: for every edge
// u->v in canonical, the result carries v->u. Built in three passes:
//
//  1. in parallel over the edge range, count in-degree of every node
//     (becomes out-degree of the transpose) using per-node atomic
//     counters;
//  2. serially, prefix-sum the per-node counts into the transpose's adj
//     array;
//  3. in parallel over the node range, scatter each original edge into
//     its destination's row using an atomic cursor, one per node,
//     seeded from adj.
func MakeTransposeCopy(canonical *CsrTopology, pool *parallel.Pool) *EdgeShuffleTopology {
	pool = poolOrDefault(pool)
	n := canonical.NumNodes()
	e := canonical.NumEdges()

	counts := make([]atomic.Int64, n)
	pool.DoAll(e, func(i int) {
		d := canonical.OutEdgeDst(Edge(i))
		counts[d].Add(1)
	})

	adj := make([]Edge, n+1)
	running := Edge(0)
	for i := 0; i < n; i++ {
		adj[i] = running
		running += Edge(counts[i].Load())
	}
	adj[n] = running

	cursors := make([]atomic.Int64, n)
	for i := 0; i < n; i++ {
		cursors[i].Store(int64(adj[i]))
	}

	dests := make([]Node, e)
	edgePropIdx := make([]PropertyIndex, e)

	pool.DoAll(n, func(u int) {
		b, end := canonical.OutEdgesRange(Node(u))
		for edge := b; edge < end; edge++ {
			v := canonical.OutEdgeDst(edge)
			pos := cursors[v].Add(1) - 1
			dests[pos] = Node(u)
			edgePropIdx[pos] = canonical.PropIdxOfEdge(edge)
		}
	})

	topo := NewWithPropertyIndices(adj, dests, edgePropIdx, canonical.NodePropIndices())
	return &EdgeShuffleTopology{CsrTopology: topo, Transpose: TransposeYes, EdgeSort: EdgeSortAny}
}

// SortEdgesByDest sorts every node's edge row by destination in place,
// keeping edgePropIdx aligned with dests, and tags the result
// edge_sort=by_dest.
func (t *EdgeShuffleTopology) SortEdgesByDest(pool *parallel.Pool) *EdgeShuffleTopology {
	pool = poolOrDefault(pool)
	out := t.CsrTopology.Copy()
	pool.DoAll(out.NumNodes(), func(i int) {
		b, e := out.OutEdgesRange(Node(i))
		sortEdgeRange(out, b, e, func(a, c Node) bool { return a < c })
	})
	return &EdgeShuffleTopology{CsrTopology: out, Transpose: t.Transpose, EdgeSort: EdgeSortByDest}
}

// TypeOfPropIdx resolves the entity type of an edge given its property
// row — the seam a caller plugs in to look up types from its own
// property storage.
type TypeOfPropIdx func(PropertyIndex) EntityTypeID

// SortEdgesByTypeThenDest sorts every node's row first by edge type
// then by destination, and tags the result
// edge_sort=by_type_then_dest.
func (t *EdgeShuffleTopology) SortEdgesByTypeThenDest(typeOf TypeOfPropIdx, pool *parallel.Pool) *EdgeShuffleTopology {
	pool = poolOrDefault(pool)
	out := t.CsrTopology.Copy()
	pool.DoAll(out.NumNodes(), func(i int) {
		b, e := out.OutEdgesRange(Node(i))
		sortEdgeRangeByTypeThenDest(out, b, e, typeOf)
	})
	return &EdgeShuffleTopology{CsrTopology: out, Transpose: t.Transpose, EdgeSort: EdgeSortByTypeThenDest}
}

// sortEdgeRange sorts dests[b:e] (and the parallel edgePropIdx slice,
// when present) using less as the destination comparator.
func sortEdgeRange(t *CsrTopology, b, e Edge, less func(a, c Node) bool) {
	idx := make([]int, e-b)
	for i := range idx {
		idx[i] = int(b) + i
	}
	sort.Slice(idx, func(i, j int) bool { return less(t.dests[idx[i]], t.dests[idx[j]]) })
	applyPermutation(t, b, e, idx)
}

func sortEdgeRangeByTypeThenDest(t *CsrTopology, b, e Edge, typeOf TypeOfPropIdx) {
	idx := make([]int, e-b)
	for i := range idx {
		idx[i] = int(b) + i
	}
	sort.Slice(idx, func(i, j int) bool {
		ei, ej := Edge(idx[i]), Edge(idx[j])
		ti, tj := typeOf(t.PropIdxOfEdge(ei)), typeOf(t.PropIdxOfEdge(ej))
		if ti != tj {
			return ti < tj
		}
		return t.dests[ei] < t.dests[ej]
	})
	applyPermutation(t, b, e, idx)
}

// applyPermutation reorders dests[b:e] and edgePropIdx[b:e] (if
// present) according to idx, a permutation of [b,e) expressed as
// absolute positions.
func applyPermutation(t *CsrTopology, b, e Edge, idx []int) {
	newDests := make([]Node, e-b)
	var newPropIdx []PropertyIndex
	hasPropIdx := len(t.edgePropIdx) > 0
	if hasPropIdx {
		newPropIdx = make([]PropertyIndex, e-b)
	}
	for i, srcPos := range idx {
		newDests[i] = t.dests[srcPos]
		if hasPropIdx {
			newPropIdx[i] = t.edgePropIdx[srcPos]
		}
	}
	copy(t.dests[b:e], newDests)
	if hasPropIdx {
		copy(t.edgePropIdx[b:e], newPropIdx)
	}
}

// FindEdge returns one edge u->v if present. Rows sorted by_dest and
// longer than binarySearchThreshold use binary search; every other row
// uses a linear scan. A by_type_then_dest row is dest-monotone only
// within a type run, so it counts as unsorted here.
func (t *EdgeShuffleTopology) FindEdge(u, v Node) (Edge, bool) {
	b, e := t.OutEdgesRange(u)
	if t.EdgeSort == EdgeSortByDest && int(e-b) > binarySearchThreshold {
		lo, hi := int(b), int(e)
		for lo < hi {
			mid := (lo + hi) / 2
			if t.dests[mid] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo < int(e) && t.dests[lo] == v {
			return Edge(lo), true
		}
		return 0, false
	}
	if t.EdgeSort != EdgeSortByDest && int(e-b) > binarySearchThreshold {
		t.warnUnsortedLargeRow(int(e - b))
	}
	for i := b; i < e; i++ {
		if t.dests[i] == v {
			return i, true
		}
	}
	return 0, false
}

// warnUnsortedLargeRow logs, at most once per topology, that FindEdge
// is linear-scanning a row past binarySearchThreshold because its
// edge_sort offers no order to binary search on.
func (t *EdgeShuffleTopology) warnUnsortedLargeRow(rowLen int) {
	t.warnOnce.Do(func() {
		logger := t.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("FindEdge linear-scanning a large unsorted row",
			"row_len", rowLen, "edge_sort", t.EdgeSort, "threshold", binarySearchThreshold)
	})
}

// FindAllEdges returns the contiguous [begin,end) range of edges u->v.
// Requires edge_sort=by_dest so that all occurrences of v are adjacent;
// on any other sort state it returns an InvalidArgument error rather
// than guess. An empty range (begin == end) with a nil error means the
// precondition held but u has no edge to v.
func (t *EdgeShuffleTopology) FindAllEdges(u, v Node) (begin, end Edge, err error) {
	if t.EdgeSort != EdgeSortByDest {
		return 0, 0, rdgerr.New(rdgerr.InvalidArgument, "FindAllEdges requires edge_sort=by_dest, got %v", t.EdgeSort)
	}
	b, e := t.OutEdgesRange(u)
	lo, hi := int(b), int(e)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.dests[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	start := lo
	hi = int(e)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.dests[mid] <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return Edge(start), Edge(lo), nil
}
