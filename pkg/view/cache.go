// Package view implements the in-memory registry that memoizes derived
// topologies by tag, coordinating between the canonical graph,
// on-demand builders in package csr, and storage-backed shadow views,
// reconciling against storage rather than rebuilding from scratch.
package view

import (
	"log/slog"
	"sync"

	"github.com/vela-graph/rdg/internal/csr"
	"github.com/vela-graph/rdg/internal/parallel"
	"github.com/vela-graph/rdg/pkg/model"
	"github.com/vela-graph/rdg/pkg/rdgerr"
)

// EdgeTypeSource resolves the entity type of an edge from its property
// row — the seam a caller plugs in from its own entity-type manager.
type EdgeTypeSource interface {
	EdgeType(propIdx csr.PropertyIndex) csr.EntityTypeID
}

// ShadowLoader resolves a previously persisted derived view by tag,
// the seam onto the storage namespace's topology-record files. A
// Cache with no loader configured always builds from the canonical
// topology on a miss.
type ShadowLoader interface {
	LoadShadow(tag model.Tag) (*model.RdgTopology, bool, error)
}

// Cache owns the canonical topology and memoizes every derived view
// requested from it, keyed by tag.
type Cache struct {
	mu sync.Mutex

	pool       *parallel.Pool
	typeSource EdgeTypeSource
	loader     ShadowLoader
	log        *slog.Logger

	canonical *csr.CsrTopology

	edgeShuffles map[model.Tag]*csr.EdgeShuffleTopology
	shuffles     map[model.Tag]*csr.ShuffleTopology
	typeAware    map[model.Tag]*csr.EdgeTypeAwareTopology

	typeIndex *csr.EdgeTypeIndex
}

// New builds a Cache around canonical. typeSource and loader may be
// nil; a nil loader means shadow lookups always miss.
func New(canonical *csr.CsrTopology, typeSource EdgeTypeSource, loader ShadowLoader, pool *parallel.Pool) *Cache {
	if pool == nil {
		pool = parallel.Default
	}
	return &Cache{
		pool:         pool,
		typeSource:   typeSource,
		loader:       loader,
		canonical:    canonical,
		edgeShuffles: make(map[model.Tag]*csr.EdgeShuffleTopology),
		shuffles:     make(map[model.Tag]*csr.ShuffleTopology),
		typeAware:    make(map[model.Tag]*csr.EdgeTypeAwareTopology),
	}
}

// SetLogger installs the logger every EdgeShuffleTopology this Cache
// builds or loads from a shadow record warns through. Nil is valid and
// leaves each topology using slog.Default().
func (c *Cache) SetLogger(log *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log
}

// GetDefault returns the canonical topology (shared handle; callers
// must not mutate it).
func (c *Cache) GetDefault() *csr.CsrTopology {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canonical
}

// ReseatDefault replaces the canonical topology with newTopo, but only
// if the canonical view's edge_sort is currently "any" — swapping out
// from under an edge-sorted canonical would silently invalidate every
// cached derivative's assumption about what "seed" means.
func (c *Cache) ReseatDefault(newTopo *csr.CsrTopology, currentEdgeSort csr.EdgeSort) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if currentEdgeSort != csr.EdgeSortAny {
		return false
	}
	c.canonical = newTopo
	return true
}

func edgeShuffleTag(transpose csr.Transpose, edgeSort csr.EdgeSort) model.Tag {
	return model.Tag{Transpose: transpose, EdgeSort: edgeSort, NodeSort: csr.NodeSortAny}
}

// BuildOrGetEdgeShuffle returns the cached EdgeShuffleTopology for
// (transpose, edgeSort), building (or loading from storage) on a miss
// and caching the result.
func (c *Cache) BuildOrGetEdgeShuffle(transpose csr.Transpose, edgeSort csr.EdgeSort) (*csr.EdgeShuffleTopology, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildOrGetEdgeShuffleLocked(transpose, edgeSort, false)
}

// PopEdgeShuffle is BuildOrGetEdgeShuffle, except the entry is removed
// from the cache before being returned — used when the caller is about
// to consume the view to build a further derivative and does not want
// it double-cached.
func (c *Cache) PopEdgeShuffle(transpose csr.Transpose, edgeSort csr.EdgeSort) (*csr.EdgeShuffleTopology, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildOrGetEdgeShuffleLocked(transpose, edgeSort, true)
}

func (c *Cache) buildOrGetEdgeShuffleLocked(transpose csr.Transpose, edgeSort csr.EdgeSort, pop bool) (*csr.EdgeShuffleTopology, error) {
	tag := edgeShuffleTag(transpose, edgeSort)
	if existing, ok := c.edgeShuffles[tag]; ok {
		if pop {
			delete(c.edgeShuffles, tag)
		}
		return existing, nil
	}

	built, err := c.resolveEdgeShuffle(tag, transpose, edgeSort)
	if err != nil {
		return nil, err
	}
	if !pop {
		c.edgeShuffles[tag] = built
	}
	return built, nil
}

func (c *Cache) resolveEdgeShuffle(tag model.Tag, transpose csr.Transpose, edgeSort csr.EdgeSort) (*csr.EdgeShuffleTopology, error) {
	if c.loader != nil {
		record, ok, err := c.loader.LoadShadow(tag)
		if err != nil {
			return nil, rdgerr.Wrap(rdgerr.IoError, err, "load shadow edge-shuffle %s", tag)
		}
		if ok {
			loaded := c.edgeShuffleFromRecord(record)
			if record.EdgeTypeFingerprint == 0 || c.typeSource == nil {
				return loaded, nil
			}
			idx := c.typeIndex
			if idx == nil {
				idx = csr.BuildEdgeTypeIndex(loaded, c.typeSource.EdgeType, c.pool)
			}
			if idx.Fingerprint() == record.EdgeTypeFingerprint {
				return loaded, nil
			}
			// Stale edge-type index: rebuild from the canonical topology.
		}
	}

	seed := c.canonical
	var built *csr.EdgeShuffleTopology
	if transpose == csr.TransposeYes {
		built = csr.MakeTransposeCopy(seed, c.pool)
	} else {
		built = csr.MakeOriginalCopy(seed)
	}

	switch edgeSort {
	case csr.EdgeSortByDest:
		built = built.SortEdgesByDest(c.pool)
	case csr.EdgeSortByTypeThenDest:
		if c.typeSource == nil {
			return nil, rdgerr.New(rdgerr.InvalidArgument, "edge_sort=by_type_then_dest requires an edge-type source")
		}
		built = built.SortEdgesByTypeThenDest(c.typeSource.EdgeType, c.pool)
	}
	built.Logger = c.log
	return built, nil
}

func (c *Cache) edgeShuffleFromRecord(r *model.RdgTopology) *csr.EdgeShuffleTopology {
	topo := csr.NewWithPropertyIndices(r.AdjIndices, r.Dests, r.EdgePropIndices, r.NodePropIndices)
	return &csr.EdgeShuffleTopology{CsrTopology: topo, Transpose: r.Tag.Transpose, EdgeSort: r.Tag.EdgeSort, Logger: c.log}
}

// BuildOrGetShuffle returns the cached ShuffleTopology for (transpose,
// nodeSort, edgeSort), building on a miss: it first obtains (without
// popping) a seed edge-shuffle matching transpose with edge_sort=any,
// reshuffles nodes, then re-sorts edges to match edgeSort.
func (c *Cache) BuildOrGetShuffle(transpose csr.Transpose, nodeSort csr.NodeSort, edgeSort csr.EdgeSort) (*csr.ShuffleTopology, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tag := model.Tag{Transpose: transpose, EdgeSort: edgeSort, NodeSort: nodeSort}
	if existing, ok := c.shuffles[tag]; ok {
		return existing, nil
	}

	seed, err := c.buildOrGetEdgeShuffleLocked(transpose, csr.EdgeSortAny, false)
	if err != nil {
		return nil, err
	}

	var cmp csr.NodeComparator
	switch nodeSort {
	case csr.NodeSortByDegree:
		cmp = csr.ByDegreeDescending
	case csr.NodeSortByType:
		if c.typeSource == nil {
			return nil, rdgerr.New(rdgerr.InvalidArgument, "node_sort=by_type requires an edge-type source")
		}
		cmp = func(seed *csr.EdgeShuffleTopology, a, b csr.Node) bool {
			return csr.ByNodeType(c.typeSource.EdgeType, seed, a, b)
		}
	default:
		return nil, rdgerr.New(rdgerr.InvalidArgument, "unsupported node_sort %d", nodeSort)
	}

	shuffled := csr.MakeNodeShuffle(seed, cmp, nodeSort)
	switch edgeSort {
	case csr.EdgeSortByDest:
		shuffled = shuffled.SortEdgesByDest(c.pool)
	case csr.EdgeSortByTypeThenDest:
		if c.typeSource == nil {
			return nil, rdgerr.New(rdgerr.InvalidArgument, "edge_sort=by_type_then_dest requires an edge-type source")
		}
		shuffled = shuffled.SortEdgesByTypeThenDest(c.typeSource.EdgeType, c.pool)
	}
	shuffled.Logger = c.log

	c.shuffles[tag] = shuffled
	return shuffled, nil
}

// BuildOrGetEdgeTypeAware returns the cached EdgeTypeAwareTopology for
// transpose, ensuring the edge-type index exists and popping a seed
// edge-shuffle sorted by_type_then_dest to build the per-type
// adjacency index.
func (c *Cache) BuildOrGetEdgeTypeAware(transpose csr.Transpose) (*csr.EdgeTypeAwareTopology, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tag := model.Tag{Transpose: transpose, EdgeSort: csr.EdgeSortByTypeThenDest, NodeSort: csr.NodeSortAny}
	if existing, ok := c.typeAware[tag]; ok {
		return existing, nil
	}
	if c.typeSource == nil {
		return nil, rdgerr.New(rdgerr.InvalidArgument, "edge-type-aware topology requires an edge-type source")
	}

	seed, err := c.buildOrGetEdgeShuffleLocked(transpose, csr.EdgeSortByTypeThenDest, true)
	if err != nil {
		return nil, err
	}

	if c.typeIndex == nil {
		c.typeIndex = csr.BuildEdgeTypeIndex(seed, c.typeSource.EdgeType, c.pool)
	}

	built := csr.BuildEdgeTypeAwareTopology(seed, c.typeSource.EdgeType, c.typeIndex, c.pool)
	c.typeAware[tag] = built
	return built, nil
}

// DropAll resets the canonical topology to empty and clears every
// derived collection and the edge-type index.
func (c *Cache) DropAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canonical = csr.New(nil, nil)
	c.edgeShuffles = make(map[model.Tag]*csr.EdgeShuffleTopology)
	c.shuffles = make(map[model.Tag]*csr.ShuffleTopology)
	c.typeAware = make(map[model.Tag]*csr.EdgeTypeAwareTopology)
	c.typeIndex = nil
}

// ToRdgTopologies serializes every live derivative into a storable
// RdgTopology record, for PersistenceLayer's Store to write out.
func (c *Cache) ToRdgTopologies() []model.RdgTopology {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.RdgTopology
	for tag, t := range c.edgeShuffles {
		out = append(out, model.RdgTopology{
			Tag:             tag,
			AdjIndices:      t.AdjIndices(),
			Dests:           t.Dests(),
			EdgePropIndices: t.EdgePropIndices(),
			NodePropIndices: t.NodePropIndices(),
		})
	}
	for tag, t := range c.shuffles {
		out = append(out, model.RdgTopology{
			Tag:             tag,
			AdjIndices:      t.AdjIndices(),
			Dests:           t.Dests(),
			EdgePropIndices: t.EdgePropIndices(),
			NodePropIndices: t.NodePropIndices(),
		})
	}
	for tag, t := range c.typeAware {
		rec := model.RdgTopology{
			Tag:             tag,
			AdjIndices:      t.AdjIndices(),
			Dests:           t.Dests(),
			EdgePropIndices: t.EdgePropIndices(),
			NodePropIndices: t.NodePropIndices(),
		}
		if c.typeIndex != nil {
			rec.EdgeTypeFingerprint = c.typeIndex.Fingerprint()
		}
		out = append(out, rec)
	}
	return out
}
