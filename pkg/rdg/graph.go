// Package rdg exposes the Resident Data Graph: the top-level handle
// that ties together the canonical CSR topology, the PGViewCache of
// derived views, the node/edge PropertyManagers, and the
// PersistenceLayer. Make opens the blob store but performs no commit; a
// later Store call performs one; Close releases resources exactly once.
package rdg

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/vela-graph/rdg/internal/blobstore"
	"github.com/vela-graph/rdg/internal/columnar"
	"github.com/vela-graph/rdg/internal/csr"
	"github.com/vela-graph/rdg/internal/parallel"
	"github.com/vela-graph/rdg/internal/wire"
	"github.com/vela-graph/rdg/pkg/model"
	"github.com/vela-graph/rdg/pkg/persistence"
	"github.com/vela-graph/rdg/pkg/property"
	"github.com/vela-graph/rdg/pkg/rdgerr"
	"github.com/vela-graph/rdg/pkg/view"
)

// Config configures a Graph. Paths[0] is the on-disk directory backing
// the blob store (only the first entry is used today).
type Config struct {
	Paths   []string
	Workers int
	NodeID  uint32
	Coord   persistence.Coordinator
	Logger  *slog.Logger

	// ViewType selects which manifest lineage Open resumes from ("" is
	// the primary graph). For both Make and Open it is also the lineage
	// that Store commits under and that shadow lookups read from.
	ViewType string
	// PropertyCacheColumns bounds the node/edge PropertyManagers' hot
	// column cache. Zero leaves caching disabled — columns stay loaded
	// until explicitly Unloaded, matching Make's behavior.
	PropertyCacheColumns int
}

// identityTag names the canonical, untransformed topology — the one
// view Store always persists and Open always looks for on reopen.
func identityTag() model.Tag {
	return model.Tag{Transpose: csr.TransposeNo, EdgeSort: csr.EdgeSortAny, NodeSort: csr.NodeSortAny}
}

// shadowLoader adapts persistence.Store into view.ShadowLoader: a
// cache miss for a derived view first checks whether a prior process
// already persisted that exact tag under the current version before
// paying to rebuild it from the canonical topology.
type shadowLoader struct {
	store    *persistence.Store
	viewType string
}

func (l shadowLoader) LoadShadow(tag model.Tag) (*model.RdgTopology, bool, error) {
	version, ok, err := l.store.LatestVersion(l.viewType)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	topo, found, err := l.store.LoadTopology(l.viewType, version, tag)
	if err != nil || !found {
		return nil, found, err
	}
	return &topo, true, nil
}

// pathsByName projects a PartHeader's property refs into the
// name->path map SeedMany expects.
func pathsByName(refs []model.PropertyFileRef) map[string]string {
	out := make(map[string]string, len(refs))
	for _, ref := range refs {
		out[ref.Name] = ref.Path
	}
	return out
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Graph is the RDG handle: canonical topology + PGViewCache + node/edge
// PropertyManagers + PersistenceLayer. Property columns here are
// uint64-valued; a deployment needing heterogeneous column types
// composes additional typed Managers alongside this one rather than
// forcing one Manager to hold mixed types (see DESIGN.md).
type Graph struct {
	log  *slog.Logger
	pool *parallel.Pool

	blobs   *blobstore.Store
	Views   *view.Cache
	Nodes   *property.Manager[uint64]
	Edges   *property.Manager[uint64]
	Persist *persistence.Store

	viewType string

	mu              sync.Mutex
	edgeTypes       []csr.EntityTypeID
	pendingRemovals []string

	closeOnce sync.Once
}

// EdgeType implements view.EdgeTypeSource by looking up the entity
// type recorded for a given edge property row. Edges with no recorded
// type default to 0, the zero entity type.
func (g *Graph) EdgeType(propIdx csr.PropertyIndex) csr.EntityTypeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	if int(propIdx) >= len(g.edgeTypes) {
		return 0
	}
	return g.edgeTypes[propIdx]
}

// SetEdgeTypes installs the dense, PropertyIndex-aligned entity-type
// array used for edge_sort=by_type_then_dest and the edge-type-aware
// topology. Ownership of types is taken by the Graph.
func (g *Graph) SetEdgeTypes(types []csr.EntityTypeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edgeTypes = types
}

// Make constructs a new Graph from a canonical adjacency/destination
// pair. It opens the backing blob store but performs no commit — the
// caller decides when to call Store.
func Make(canonicalAdj []csr.Edge, canonicalDests []csr.Node, cfg Config) (*Graph, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("rdg: at least one path must be provided in config")
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}
	pool := parallel.New(cfg.Workers)

	blobs, err := blobstore.Open(cfg.Paths[0], cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("rdg: open blob store: %w", err)
	}

	g := &Graph{log: cfg.Logger, pool: pool, blobs: blobs, viewType: cfg.ViewType}
	g.Persist = persistence.Open(blobs, cfg.Coord, cfg.NodeID, pool)
	g.Views = view.New(csr.New(canonicalAdj, canonicalDests), g, shadowLoader{store: g.Persist, viewType: cfg.ViewType}, pool)
	g.Views.SetLogger(cfg.Logger)
	g.Nodes = property.New[uint64](property.NodeScope, blobs, columnar.Uint64Codec{})
	g.Edges = property.New[uint64](property.EdgeScope, blobs, columnar.Uint64Codec{})
	if cfg.PropertyCacheColumns > 0 {
		g.Nodes.EnableCache(cfg.PropertyCacheColumns)
		g.Edges.EnableCache(cfg.PropertyCacheColumns)
	}

	cfg.Logger.Info("rdg graph constructed", "path", cfg.Paths[0], "nodes", len(canonicalAdj)-1, "edges", len(canonicalDests))
	return g, nil
}

// Open reopens the most recently committed graph under cfg.ViewType: it
// resolves the latest manifest, loads every topology blob the part
// header references, picks out the canonical (identity-tagged) one to
// seed the view cache, and seeds both PropertyManagers from the
// property files the part header lists. Callers that want the
// edge-type-aware machinery available after reopen must call
// SetEdgeTypes themselves, same as after Make.
func Open(cfg Config) (*Graph, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("rdg: at least one path must be provided in config")
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}
	pool := parallel.New(cfg.Workers)

	blobs, err := blobstore.Open(cfg.Paths[0], cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("rdg: open blob store: %w", err)
	}

	persist := persistence.Open(blobs, cfg.Coord, cfg.NodeID, pool)
	version, ok, err := persist.LatestVersion(cfg.ViewType)
	if err != nil {
		_ = blobs.Close()
		return nil, rdgerr.Wrap(rdgerr.IoError, err, "find latest version")
	}
	if !ok {
		_ = blobs.Close()
		return nil, rdgerr.New(rdgerr.IoError, "no committed version found for view type %q", cfg.ViewType)
	}

	_, header, topos, err := persist.Load(cfg.ViewType, version, nil)
	if err != nil {
		_ = blobs.Close()
		return nil, rdgerr.Wrap(rdgerr.IoError, err, "load version %d", version)
	}

	var canonical *model.RdgTopology
	for i, topo := range topos {
		if topo.Tag == identityTag() {
			canonical = &topos[i]
			break
		}
	}
	if canonical == nil {
		_ = blobs.Close()
		return nil, rdgerr.New(rdgerr.SchemaMismatch, "version %d has no canonical topology blob", version)
	}

	g := &Graph{log: cfg.Logger, pool: pool, blobs: blobs, viewType: cfg.ViewType, Persist: persist}
	canonicalTopo := csr.NewWithPropertyIndices(canonical.AdjIndices, canonical.Dests, canonical.EdgePropIndices, canonical.NodePropIndices)
	g.Views = view.New(canonicalTopo, g, shadowLoader{store: persist, viewType: cfg.ViewType}, pool)
	g.Views.SetLogger(cfg.Logger)
	g.Nodes = property.New[uint64](property.NodeScope, blobs, columnar.Uint64Codec{})
	g.Edges = property.New[uint64](property.EdgeScope, blobs, columnar.Uint64Codec{})
	if cfg.PropertyCacheColumns > 0 {
		g.Nodes.EnableCache(cfg.PropertyCacheColumns)
		g.Edges.EnableCache(cfg.PropertyCacheColumns)
	}

	nodeRaw, err := persist.LoadProperties(header.NodeProperties)
	if err != nil {
		_ = blobs.Close()
		return nil, rdgerr.Wrap(rdgerr.IoError, err, "load node property files")
	}
	if err := g.Nodes.SeedMany(pathsByName(header.NodeProperties), nodeRaw); err != nil {
		_ = blobs.Close()
		return nil, rdgerr.Wrap(rdgerr.SchemaMismatch, err, "seed node columns")
	}

	edgeRaw, err := persist.LoadProperties(header.EdgeProperties)
	if err != nil {
		_ = blobs.Close()
		return nil, rdgerr.Wrap(rdgerr.IoError, err, "load edge property files")
	}
	if err := g.Edges.SeedMany(pathsByName(header.EdgeProperties), edgeRaw); err != nil {
		_ = blobs.Close()
		return nil, rdgerr.Wrap(rdgerr.SchemaMismatch, err, "seed edge columns")
	}

	cfg.Logger.Info("rdg graph reopened", "path", cfg.Paths[0], "version", version, "nodes", header.NumNodes)
	return g, nil
}

// RemoveNodeColumn drops a node property column and queues its
// on-disk path (if any) to be unlinked once the next Store call
// commits successfully.
func (g *Graph) RemoveNodeColumn(name string) error {
	return g.removeColumn(g.Nodes, name)
}

// RemoveEdgeColumn is RemoveNodeColumn for the edge PropertyManager.
func (g *Graph) RemoveEdgeColumn(name string) error {
	return g.removeColumn(g.Edges, name)
}

func (g *Graph) removeColumn(m *property.Manager[uint64], name string) error {
	path, err := m.Remove(name)
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	g.mu.Lock()
	g.pendingRemovals = append(g.pendingRemovals, path)
	g.mu.Unlock()
	return nil
}

// Store runs one commit: dirty node/edge columns and every live cached
// topology are flushed, then the manifest is atomically advanced per
// policy.
func (g *Graph) Store(policy model.VersionPolicy) (persistence.CommitResult, error) {
	// The identity view must always be cached before a commit: it is
	// the one blob Open later depends on being able to find.
	if _, err := g.Views.BuildOrGetEdgeShuffle(csr.TransposeNo, csr.EdgeSortAny); err != nil {
		return persistence.CommitResult{}, rdgerr.Wrap(rdgerr.IoError, err, "ensure canonical view is cached")
	}
	canonical := g.Views.GetDefault()

	g.mu.Lock()
	removed := g.pendingRemovals
	g.pendingRemovals = nil
	g.mu.Unlock()

	req := persistence.CommitRequest{
		Policy:       policy,
		ViewType:     g.viewType,
		NumHosts:     1,
		NumNodes:     uint64(canonical.NumNodes()),
		NumOwned:     uint64(canonical.NumNodes()),
		NodeColumns:  columnWritesFor(g.Nodes),
		EdgeColumns:  columnWritesFor(g.Edges),
		Topologies:   g.Views.ToRdgTopologies(),
		RemovedPaths: removed,
	}

	result, err := g.Persist.Commit(req)
	if err != nil {
		g.mu.Lock()
		g.pendingRemovals = append(removed, g.pendingRemovals...)
		g.mu.Unlock()
		return persistence.CommitResult{}, err
	}

	for _, ref := range result.PartHeader.NodeProperties {
		if err := g.Nodes.MarkWritten(ref.Name, ref.Path); err != nil {
			g.log.Warn("mark node column written", "name", ref.Name, "error", err)
		}
	}
	for _, ref := range result.PartHeader.EdgeProperties {
		if err := g.Edges.MarkWritten(ref.Name, ref.Path); err != nil {
			g.log.Warn("mark edge column written", "name", ref.Name, "error", err)
		}
	}

	return result, nil
}

func columnWritesFor(m *property.Manager[uint64]) []persistence.ColumnWrite {
	var out []persistence.ColumnWrite
	for _, name := range m.DirtyColumns() {
		name := name
		out = append(out, persistence.ColumnWrite{
			Name: name,
			Encode: func() ([]byte, error) {
				values, err := m.Get(name)
				if err != nil {
					return nil, err
				}
				return wire.EncodeUint64Slice(nil, values), nil
			},
		})
	}
	return out
}

// Close releases the Graph's backing blob store. It is idempotent.
func (g *Graph) Close() error {
	var closeErr error
	g.closeOnce.Do(func() {
		if err := g.blobs.Close(); err != nil {
			closeErr = rdgerr.Wrap(rdgerr.IoError, err, "close blob store")
		}
		g.log.Info("rdg graph closed")
	})
	return closeErr
}
