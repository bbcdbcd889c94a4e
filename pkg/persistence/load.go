package persistence

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/vela-graph/rdg/internal/csr"
	"github.com/vela-graph/rdg/pkg/model"
	"github.com/vela-graph/rdg/pkg/rdgerr"
)

// Load resolves the manifest for (viewType, version), its part header,
// and a set of topology blobs it references, via a ReadGroup: manifest
// -> part-header -> scheduled topology opens in a ReadGroup. A nil or
// empty tags loads every topology recorded in the part header's
// TopologyManifests instead of a caller-chosen subset — the shape a
// full reopen needs, since the caller has no a priori tag list yet.
func (s *Store) Load(viewType string, version uint64, tags []model.Tag) (model.Manifest, model.PartHeader, []model.RdgTopology, error) {
	manifestBytes, ok, err := s.blobs.Get(ManifestPath(viewType, version))
	if err != nil {
		return model.Manifest{}, model.PartHeader{}, nil, rdgerr.Wrap(rdgerr.IoError, err, "read manifest")
	}
	if !ok {
		return model.Manifest{}, model.PartHeader{}, nil, rdgerr.New(rdgerr.IoError, "manifest %s@%d not found", viewType, version)
	}
	var manifest model.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return model.Manifest{}, model.PartHeader{}, nil, rdgerr.Wrap(rdgerr.SchemaMismatch, err, "decode manifest")
	}

	headerBytes, ok, err := s.blobs.Get(PartHeaderPath(viewType, s.node, version))
	if err != nil {
		return model.Manifest{}, model.PartHeader{}, nil, rdgerr.Wrap(rdgerr.IoError, err, "read part header")
	}
	if !ok {
		return model.Manifest{}, model.PartHeader{}, nil, rdgerr.New(rdgerr.IoError, "part header for node %d@%d not found", s.node, version)
	}
	var header model.PartHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return model.Manifest{}, model.PartHeader{}, nil, rdgerr.Wrap(rdgerr.SchemaMismatch, err, "decode part header")
	}

	keys, keyTags := topologyKeysToLoad(viewType, version, tags, header.TopologyManifests)

	rg := s.blobs.OpenReadGroup(s.pool)
	topos := make([]model.RdgTopology, len(keys))
	for i, key := range keys {
		i, key, tag := i, key, keyTags[i]
		rg.Get(key, func(v []byte, found bool) error {
			if !found {
				return fmt.Errorf("topology blob %s not found", key)
			}
			decoded, err := decodeTopology(v, tag)
			if err != nil {
				return err
			}
			topos[i] = decoded
			return nil
		})
	}
	if err := rg.Finish(); err != nil {
		return model.Manifest{}, model.PartHeader{}, nil, rdgerr.Wrap(rdgerr.IoError, err, "load topology blobs")
	}

	s.mu.Lock()
	s.manifest = manifest
	s.partHeader = header
	s.nodeTypeIDPath = header.NodeEntityTypeIDPath
	s.edgeTypeIDPath = header.EdgeEntityTypeIDPath
	s.mu.Unlock()

	return manifest, header, topos, nil
}

// topologyKeysToLoad resolves which topology blob keys Load should
// fetch and the tag each one decodes against. An explicit tags list is
// turned directly into keys via TopologyPath; a nil/empty one instead
// parses every key already recorded in manifestKeys (a part header's
// TopologyManifests), skipping any that don't match this
// (viewType, version)'s key shape.
func topologyKeysToLoad(viewType string, version uint64, tags []model.Tag, manifestKeys []string) ([]string, []model.Tag) {
	if len(tags) > 0 {
		keys := make([]string, len(tags))
		for i, tag := range tags {
			keys[i] = TopologyPath(viewType, version, tagLabel(tag))
		}
		return keys, tags
	}

	prefix := TopologyPath(viewType, version, "")
	var keys []string
	var resolved []model.Tag
	for _, key := range manifestKeys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		tag, ok := parseTagLabel(strings.TrimPrefix(key, prefix))
		if !ok {
			continue
		}
		keys = append(keys, key)
		resolved = append(resolved, tag)
	}
	return keys, resolved
}

// parseTagLabel is tagLabel's inverse.
func parseTagLabel(label string) (model.Tag, bool) {
	var transpose, edgeSort, nodeSort int
	n, err := fmt.Sscanf(label, "t%d_e%d_n%d", &transpose, &edgeSort, &nodeSort)
	if err != nil || n != 3 {
		return model.Tag{}, false
	}
	return model.Tag{
		Transpose: csr.Transpose(transpose),
		EdgeSort:  csr.EdgeSort(edgeSort),
		NodeSort:  csr.NodeSort(nodeSort),
	}, true
}

// LoadTopology fetches a single cached topology blob directly by
// (viewType, version, tag), without touching the manifest or part
// header — the single-tag lookup a ShadowLoader needs. ok=false with a
// nil error means the blob is simply absent, not a failure.
func (s *Store) LoadTopology(viewType string, version uint64, tag model.Tag) (model.RdgTopology, bool, error) {
	key := TopologyPath(viewType, version, tagLabel(tag))
	raw, ok, err := s.blobs.Get(key)
	if err != nil {
		return model.RdgTopology{}, false, rdgerr.Wrap(rdgerr.IoError, err, "read topology blob %s", key)
	}
	if !ok {
		return model.RdgTopology{}, false, nil
	}
	decoded, err := decodeTopology(raw, tag)
	if err != nil {
		return model.RdgTopology{}, false, rdgerr.Wrap(rdgerr.SchemaMismatch, err, "decode topology blob %s", key)
	}
	return decoded, true, nil
}

// LoadProperties fetches the raw bytes behind every property file ref
// in refs, keyed by column name, via one ReadGroup — the batched
// property-file open spec's load data flow schedules alongside the
// topology-blob opens. Callers decode each entry with their own Codec.
func (s *Store) LoadProperties(refs []model.PropertyFileRef) (map[string][]byte, error) {
	rg := s.blobs.OpenReadGroup(s.pool)
	out := make(map[string][]byte, len(refs))
	var mu sync.Mutex
	for _, ref := range refs {
		ref := ref
		rg.Get(ref.Path, func(v []byte, found bool) error {
			if !found {
				return fmt.Errorf("property file %s (column %q) not found", ref.Path, ref.Name)
			}
			mu.Lock()
			out[ref.Name] = append([]byte(nil), v...)
			mu.Unlock()
			return nil
		})
	}
	if err := rg.Finish(); err != nil {
		return nil, rdgerr.Wrap(rdgerr.IoError, err, "load property files")
	}
	return out, nil
}
