package csr

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/vela-graph/rdg/internal/parallel"
)

// EdgeTypeIndex is the dense bijection between the entity-type
// manager's (sparse, externally assigned) type identifiers and the
// compact [0,K) indices EdgeTypeAwareTopology uses to size its
// per-node-per-type adjacency index.
type EdgeTypeIndex struct {
	idToIdx   map[EntityTypeID]uint32
	idxToType []EntityTypeID
}

// BuildEdgeTypeIndex scans every edge's type (via typeOf, resolved
// through the topology's own prop-index translation) and returns the
// dense index over the distinct types observed, sorted by raw type id
// so the mapping is deterministic across equivalent builds.
//
// Each worker accumulates its own block's distinct types into a local
// set (via parallel.Local), and the controller merges the per-worker
// sets serially — the merge is cheap since K, the number of distinct
// edge types, is normally tiny next to the edge count.
func BuildEdgeTypeIndex(seed *EdgeShuffleTopology, typeOf TypeOfPropIdx, pool *parallel.Pool) *EdgeTypeIndex {
	pool = poolOrDefault(pool)
	e := seed.NumEdges()

	locals := parallel.NewLocal[map[EntityTypeID]struct{}](pool)
	pool.OnEach(func(tid, nthreads int) {
		local := locals.Get(tid)
		*local = make(map[EntityTypeID]struct{})
		b, end := pool.BlockRange(e, tid, nthreads)
		for i := b; i < end; i++ {
			(*local)[typeOf(seed.PropIdxOfEdge(Edge(i)))] = struct{}{}
		}
	})

	set := make(map[EntityTypeID]struct{})
	for _, local := range locals.All() {
		for t := range local {
			set[t] = struct{}{}
		}
	}

	types := make([]EntityTypeID, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	idx := &EdgeTypeIndex{idToIdx: make(map[EntityTypeID]uint32, len(types)), idxToType: types}
	for i, t := range types {
		idx.idToIdx[t] = uint32(i)
	}
	return idx
}

// Size returns K, the number of distinct edge types indexed.
func (x *EdgeTypeIndex) Size() int { return len(x.idxToType) }

// DenseIndex returns the dense index of t, or ok=false if t was never
// observed when the index was built.
func (x *EdgeTypeIndex) DenseIndex(t EntityTypeID) (uint32, bool) {
	i, ok := x.idToIdx[t]
	return i, ok
}

// TypeAt returns the raw entity type id occupying dense index i.
func (x *EdgeTypeIndex) TypeAt(i uint32) EntityTypeID { return x.idxToType[i] }

// Fingerprint hashes the sorted type-id set this index was built from.
// view.Cache stamps it on every edge-type-aware record it persists, so
// a stale index (e.g. after new edge types are added to the
// property manager) can be detected without rebuilding from scratch.
func (x *EdgeTypeIndex) Fingerprint() uint64 {
	h := xxhash.New()
	buf := make([]byte, 4)
	for _, t := range x.idxToType {
		buf[0] = byte(t)
		buf[1] = byte(t >> 8)
		buf[2] = byte(t >> 16)
		buf[3] = byte(t >> 24)
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}
