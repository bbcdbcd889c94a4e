package persistence

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed-width zero padding keeps directory listings sorted
// lexicographically in version order.
const (
	versionPadding = 20
	nodePadding    = 5
)

func versionString(version uint64) string {
	return fmt.Sprintf("%0*d", versionPadding, version)
}

// defaultViewType names the primary manifest, as distinct from a
// shadow manifest for a persisted view (e.g. "transposed").
const defaultViewType = "default"

func effectiveViewType(viewType string) string {
	if viewType == "" {
		return defaultViewType
	}
	return viewType
}

// ManifestPath returns the content key for the manifest naming one
// graph version under a given view type: "manifest_<viewtype>_<version>".
func ManifestPath(viewType string, version uint64) string {
	return fmt.Sprintf("manifest_%s_%s", effectiveViewType(viewType), versionString(version))
}

// PartHeaderPath returns the content key for a partition header,
// carrying viewtype/version in its path so distinct shadow views never
// collide on the same node's header.
func PartHeaderPath(viewType string, nodeID uint32, version uint64) string {
	return fmt.Sprintf("part_%s_%s_node%0*d", effectiveViewType(viewType), versionString(version), nodePadding, nodeID)
}

// TopologyPath returns the content key for one cached derived
// topology's blob, named by its tag so a reload can locate it without
// scanning the whole part header.
func TopologyPath(viewType string, version uint64, tagLabel string) string {
	return fmt.Sprintf("topo_%s_%s_%s", effectiveViewType(viewType), versionString(version), tagLabel)
}

// manifestPrefix returns the prefix every manifest for viewType shares,
// regardless of version — used to list and find the newest one.
func manifestPrefix(viewType string) string {
	return fmt.Sprintf("manifest_%s_", effectiveViewType(viewType))
}

// parseManifestVersion extracts the version encoded in a manifest key
// produced by ManifestPath, or ok=false if key doesn't match the
// expected shape.
func parseManifestVersion(viewType, key string) (uint64, bool) {
	prefix := manifestPrefix(viewType)
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(key, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
