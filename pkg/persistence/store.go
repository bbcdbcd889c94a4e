// Package persistence implements the manifest model, commit procedure,
// and versioning policies that atomically advance a graph to a new
// on-disk version, using package blobstore's WriteGroup for batched
// async I/O with a finish() barrier.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vela-graph/rdg/internal/blobstore"
	"github.com/vela-graph/rdg/internal/contentaddr"
	"github.com/vela-graph/rdg/internal/parallel"
	"github.com/vela-graph/rdg/pkg/model"
	"github.com/vela-graph/rdg/pkg/rdgerr"
)

// Coordinator is the process-wide communication backend a multi-host
// deployment plugs in for rank/barrier/single-writer coordination.
// SingleHost below is the zero-configuration implementation for a
// non-partitioned graph.
type Coordinator interface {
	Rank() int
	Num() int
	Barrier() error
	OneHostOnly(fn func() error) error
}

// SingleHost is the trivial Coordinator for a one-host deployment: rank
// 0 of 1, a barrier that never blocks, and OneHostOnly that always
// runs.
type SingleHost struct{}

func (SingleHost) Rank() int         { return 0 }
func (SingleHost) Num() int          { return 1 }
func (SingleHost) Barrier() error    { return nil }
func (SingleHost) OneHostOnly(fn func() error) error { return fn() }

// ColumnWrite is one dirty property column awaiting a flush, supplied
// by the caller (the root RDG type owns the typed PropertyManagers and
// knows how to encode each one's value type).
type ColumnWrite struct {
	Name   string
	Encode func() ([]byte, error)
}

// CommitRequest bundles everything Store needs to run one commit.
type CommitRequest struct {
	Policy     model.VersionPolicy
	ViewType   string
	NumHosts   uint32
	PolicyID   uint32
	Transposed bool
	NumNodes   uint64
	NumOwned   uint64

	NodeColumns []ColumnWrite
	EdgeColumns []ColumnWrite
	Topologies  []model.RdgTopology

	// NodeEntityTypeIDs/EdgeEntityTypeIDs: nil means "keep the existing
	// reference" rather than overwrite it with an empty array.
	NodeEntityTypeIDs []byte
	EdgeEntityTypeIDs []byte

	// RemovedPaths lists on-disk blob paths to unlink once this commit
	// has succeeded — the deferred-unlink half of property.Manager.
	// Remove's contract, which retains a removed column's path instead
	// of unlinking it immediately so a concurrent reader of the prior
	// version is never pulled out from under it.
	RemovedPaths []string
}

// CommitResult reports what a successful Store call produced.
type CommitResult struct {
	Manifest   model.Manifest
	PartHeader model.PartHeader
}

// Store is PersistenceLayer: it owns the current in-memory manifest and
// part header, and advances them atomically on each successful commit.
type Store struct {
	mu sync.Mutex

	blobs *blobstore.Store
	pool  *parallel.Pool
	coord Coordinator
	node  uint32
	log   *slog.Logger

	manifest   model.Manifest
	partHeader model.PartHeader
	nodeTypeIDPath string
	edgeTypeIDPath string
}

// Open builds a Store backed by blobs, starting from an empty manifest
// at version 0. Callers resuming from an existing manifest should load
// it separately and seed the Store's version bookkeeping accordingly —
// Open itself never touches the backing store; construction does no
// I/O.
func Open(blobs *blobstore.Store, coord Coordinator, node uint32, pool *parallel.Pool) *Store {
	if pool == nil {
		pool = parallel.Default
	}
	if coord == nil {
		coord = SingleHost{}
	}
	return &Store{blobs: blobs, pool: pool, coord: coord, node: node, log: slog.Default()}
}

// CurrentManifest returns the in-memory manifest as of the last
// successful commit or Load call (or the zero manifest before either).
func (s *Store) CurrentManifest() model.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifest
}

// LatestVersion scans the blob store for the highest-numbered manifest
// under viewType and returns it, or ok=false if none exists yet.
func (s *Store) LatestVersion(viewType string) (version uint64, ok bool, err error) {
	keys, err := s.blobs.ListPrefix(manifestPrefix(viewType))
	if err != nil {
		return 0, false, fmt.Errorf("persistence: list manifests: %w", err)
	}
	for _, key := range keys {
		if v, parsed := parseManifestVersion(viewType, key); parsed && (!ok || v > version) {
			version, ok = v, true
		}
	}
	return version, ok, nil
}

// Commit opens a WriteGroup, flushes dirty columns and topology blobs
// in parallel, writes the part header, blocks on the write barrier,
// crosses the host barrier, has one designated host write the new
// manifest, then swaps the in-memory manifest.
//
// A fault-sensitivity marker (markCommitFault) surrounds each
// commit-critical region so fault-injection tests can force a failure
// at a specific step without touching production logic.
func (s *Store) Commit(req CommitRequest) (CommitResult, error) {
	s.mu.Lock()
	nextVersion := s.manifest.Version
	if req.Policy == model.NextVersion {
		nextVersion++
	}
	nodeTypeIDPath := s.nodeTypeIDPath
	edgeTypeIDPath := s.edgeTypeIDPath
	s.mu.Unlock()

	wg := s.blobs.OpenWriteGroup(s.pool)

	nodeRefs := make([]model.PropertyFileRef, len(req.NodeColumns))
	for i, cw := range req.NodeColumns {
		i, cw := i, cw
		wg.Schedule(func() error {
			raw, err := cw.Encode()
			if err != nil {
				return fmt.Errorf("encode node column %q: %w", cw.Name, err)
			}
			path := contentaddr.NewFileName(cw.Name, raw)
			if err := s.blobs.Put(path, raw); err != nil {
				return fmt.Errorf("write node column %q: %w", cw.Name, err)
			}
			nodeRefs[i] = model.PropertyFileRef{Name: cw.Name, Path: path, State: "clean"}
			return nil
		})
	}

	edgeRefs := make([]model.PropertyFileRef, len(req.EdgeColumns))
	for i, cw := range req.EdgeColumns {
		i, cw := i, cw
		wg.Schedule(func() error {
			raw, err := cw.Encode()
			if err != nil {
				return fmt.Errorf("encode edge column %q: %w", cw.Name, err)
			}
			path := contentaddr.NewFileName(cw.Name, raw)
			if err := s.blobs.Put(path, raw); err != nil {
				return fmt.Errorf("write edge column %q: %w", cw.Name, err)
			}
			edgeRefs[i] = model.PropertyFileRef{Name: cw.Name, Path: path, State: "clean"}
			return nil
		})
	}

	topoKeys := make([]string, len(req.Topologies))
	for i, topo := range req.Topologies {
		i, topo := i, topo
		wg.Schedule(func() error {
			blob := encodeTopology(topo)
			label := tagLabel(topo.Tag)
			key := TopologyPath(req.ViewType, nextVersion, label)
			if err := s.blobs.Put(key, blob); err != nil {
				return fmt.Errorf("write topology %s: %w", label, err)
			}
			topoKeys[i] = key
			return nil
		})
	}

	if req.NodeEntityTypeIDs != nil {
		wg.Schedule(func() error {
			path := contentaddr.NewFileName("node_etypes", req.NodeEntityTypeIDs)
			if err := s.blobs.Put(path, req.NodeEntityTypeIDs); err != nil {
				return fmt.Errorf("write node entity-type ids: %w", err)
			}
			nodeTypeIDPath = path
			return nil
		})
	}
	if req.EdgeEntityTypeIDs != nil {
		wg.Schedule(func() error {
			path := contentaddr.NewFileName("edge_etypes", req.EdgeEntityTypeIDs)
			if err := s.blobs.Put(path, req.EdgeEntityTypeIDs); err != nil {
				return fmt.Errorf("write edge entity-type ids: %w", err)
			}
			edgeTypeIDPath = path
			return nil
		})
	}

	markCommitFault("write-group")
	if err := wg.Finish(); err != nil {
		return CommitResult{}, rdgerr.Wrap(rdgerr.IoError, err, "commit write group")
	}

	header := model.PartHeader{
		StorageFormatVersion: currentStorageFormatVersion,
		NodeProperties:       nodeRefs,
		EdgeProperties:       edgeRefs,
		NumNodes:             req.NumNodes,
		NumOwned:             req.NumOwned,
		PolicyID:             req.PolicyID,
		Transposed:           req.Transposed,
		NodeEntityTypeIDPath: nodeTypeIDPath,
		EdgeEntityTypeIDPath: edgeTypeIDPath,
		TopologyManifests:    topoKeys,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return CommitResult{}, rdgerr.Wrap(rdgerr.IoError, err, "encode part header")
	}

	markCommitFault("part-header")
	headerKey := PartHeaderPath(req.ViewType, s.node, nextVersion)
	if err := s.blobs.Put(headerKey, headerBytes); err != nil {
		return CommitResult{}, rdgerr.Wrap(rdgerr.IoError, err, "write part header")
	}

	markCommitFault("host-barrier")
	if err := s.coord.Barrier(); err != nil {
		return CommitResult{}, rdgerr.Wrap(rdgerr.IoError, err, "host barrier")
	}

	manifest := model.Manifest{
		Version:    nextVersion,
		NumHosts:   req.NumHosts,
		PolicyID:   req.PolicyID,
		Transposed: req.Transposed,
		ViewType:   effectiveViewType(req.ViewType),
		Lineage:    append(append([]string(nil), s.manifest.Lineage...), headerKey),
	}

	markCommitFault("manifest-write")
	writeErr := s.coord.OneHostOnly(func() error {
		manifestBytes, err := json.Marshal(manifest)
		if err != nil {
			return err
		}
		return s.blobs.Put(ManifestPath(req.ViewType, nextVersion), manifestBytes)
	})
	if writeErr != nil {
		return CommitResult{}, rdgerr.Wrap(rdgerr.IoError, writeErr, "write manifest")
	}

	s.mu.Lock()
	s.manifest = manifest
	s.partHeader = header
	s.nodeTypeIDPath = nodeTypeIDPath
	s.edgeTypeIDPath = edgeTypeIDPath
	s.mu.Unlock()

	for _, path := range req.RemovedPaths {
		if err := s.blobs.Delete(path); err != nil {
			s.log.Warn("unlink removed property column", "path", path, "error", err)
		}
	}

	return CommitResult{Manifest: manifest, PartHeader: header}, nil
}

const currentStorageFormatVersion = 1

func tagLabel(t model.Tag) string {
	return fmt.Sprintf("t%d_e%d_n%d", t.Transpose, t.EdgeSort, t.NodeSort)
}

// markCommitFault surrounds each commit-critical region. It is a no-op
// in production; a fault-injection test harness can replace
// injectFault to panic or return an error at a named step.
func markCommitFault(step string) {
	if injectFault != nil {
		injectFault(step)
	}
}

var injectFault func(step string)
