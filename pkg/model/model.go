// Package model holds the wire/storage records shared by the
// persistence, view, and property layers: manifests, part headers, and
// the topology tag used to key cached derived views.
package model

import (
	"github.com/vela-graph/rdg/internal/csr"
)

// Tag identifies one derived topology view by its transform triple.
// Re-exported from package csr so storage/view code doesn't need to
// import csr just to talk about a tag.
type Tag = csr.Tag

// VersionPolicy selects how Store advances the manifest's version
// counter.
type VersionPolicy int

const (
	// RetainVersion overwrites the current version in place — used for
	// view-type shadows that don't represent a new graph generation.
	RetainVersion VersionPolicy = iota
	// NextVersion strictly increments the version counter.
	NextVersion
)

// Manifest is the JSON document whose atomic write publishes a new
// graph version. ViewType distinguishes shadow manifests
// (e.g. a transposed-default view persisted alongside the primary
// graph) from the primary manifest, whose ViewType is written as
// "default".
type Manifest struct {
	Version     uint64   `json:"version"`
	NumHosts    uint32   `json:"num_hosts"`
	PolicyID    uint32   `json:"policy_id"`
	Transposed  bool     `json:"transposed"`
	ViewType    string   `json:"viewtype"`
	Lineage     []string `json:"lineage"`
}

// PropertyFileRef records one property column's on-disk location and
// lifecycle stub as carried in a PartHeader.
type PropertyFileRef struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state_stub"`
}

// PartHeader is the per-partition metadata record written once per
// commit.
type PartHeader struct {
	StorageFormatVersion uint32            `json:"storage_format_version"`
	UnstableFormat       bool              `json:"unstable_format"`
	NodeProperties       []PropertyFileRef `json:"node_properties"`
	EdgeProperties       []PropertyFileRef `json:"edge_properties"`
	NumNodes             uint64            `json:"num_nodes"`
	NumOwned             uint64            `json:"num_owned"`
	PolicyID             uint32            `json:"policy_id"`
	Transposed           bool              `json:"transposed"`
	NodeEntityTypeIDPath string            `json:"node_entity_type_id_path"`
	EdgeEntityTypeIDPath string            `json:"edge_entity_type_id_path"`
	TopologyManifests    []string          `json:"topology_manifests,omitempty"`
}

// RdgTopology is the on-disk record for one cached derived topology:
// its identifying tag plus the raw arrays needed to reconstruct it.
type RdgTopology struct {
	Tag             Tag      `json:"tag"`
	AdjIndices      []uint32 `json:"adj_indices"`
	Dests           []uint32 `json:"dests"`
	EdgePropIndices []uint32 `json:"edge_prop_indices,omitempty"`
	NodePropIndices []uint32 `json:"node_prop_indices,omitempty"`
	// EdgeTypeFingerprint is set only on the edge-type-aware variant, and
	// is checked against the live EdgeTypeIndex on load to detect a
	// stale cached index.
	EdgeTypeFingerprint uint64 `json:"edge_type_fingerprint,omitempty"`
}
