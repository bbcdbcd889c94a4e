package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vela-graph/rdg/internal/blobstore"
	"github.com/vela-graph/rdg/internal/csr"
	"github.com/vela-graph/rdg/pkg/model"
)

func openTestBlobs(t *testing.T) *blobstore.Store {
	t.Helper()
	s, err := blobstore.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func basicRequest(policy model.VersionPolicy) CommitRequest {
	return CommitRequest{
		Policy:   policy,
		NumHosts: 1,
		PolicyID: 1,
		NumNodes: 4,
		NumOwned: 4,
		NodeColumns: []ColumnWrite{
			{Name: "w", Encode: func() ([]byte, error) { return []byte{1, 2, 3}, nil }},
		},
	}
}

func TestCommitMonotonicityNextVersion(t *testing.T) {
	s := Open(openTestBlobs(t), nil, 0, nil)

	r1, err := s.Commit(basicRequest(model.NextVersion))
	require.NoError(t, err)
	require.EqualValues(t, 1, r1.Manifest.Version)

	r2, err := s.Commit(basicRequest(model.NextVersion))
	require.NoError(t, err)
	require.Greater(t, r2.Manifest.Version, r1.Manifest.Version)
}

func TestCommitRetainVersionDoesNotAdvance(t *testing.T) {
	s := Open(openTestBlobs(t), nil, 0, nil)

	r1, err := s.Commit(basicRequest(model.NextVersion))
	require.NoError(t, err)

	r2, err := s.Commit(basicRequest(model.RetainVersion))
	require.NoError(t, err)
	require.Equal(t, r1.Manifest.Version, r2.Manifest.Version)
}

func TestCommitWritesExactlyOneManifestPerVersion(t *testing.T) {
	blobs := openTestBlobs(t)
	s := Open(blobs, SingleHost{}, 0, nil)

	req := basicRequest(model.NextVersion)
	result, err := s.Commit(req)
	require.NoError(t, err)

	keys, err := blobs.ListPrefix(ManifestPath("", result.Manifest.Version))
	require.NoError(t, err)
	require.Len(t, keys, 1)
}

func TestCommitAndLoadTopologyRoundTrip(t *testing.T) {
	s := Open(openTestBlobs(t), nil, 0, nil)

	tag := model.Tag{Transpose: csr.TransposeYes, EdgeSort: csr.EdgeSortByDest, NodeSort: csr.NodeSortAny}
	req := basicRequest(model.NextVersion)
	req.Topologies = []model.RdgTopology{
		{
			Tag:        tag,
			AdjIndices: []uint32{0, 2, 3, 4, 4},
			Dests:      []uint32{1, 2, 2, 3},
		},
	}

	result, err := s.Commit(req)
	require.NoError(t, err)

	_, _, topos, err := s.Load("", result.Manifest.Version, []model.Tag{tag})
	require.NoError(t, err)
	require.Len(t, topos, 1)
	require.Equal(t, []uint32{0, 2, 3, 4, 4}, topos[0].AdjIndices)
	require.Equal(t, []uint32{1, 2, 2, 3}, topos[0].Dests)
}

func TestCommitUnlinksRemovedPaths(t *testing.T) {
	blobs := openTestBlobs(t)
	s := Open(blobs, nil, 0, nil)

	require.NoError(t, blobs.Put("orphan.deadbeef", []byte{1, 2, 3}))
	exists, err := blobs.Exists("orphan.deadbeef")
	require.NoError(t, err)
	require.True(t, exists)

	req := basicRequest(model.NextVersion)
	req.RemovedPaths = []string{"orphan.deadbeef"}
	_, err = s.Commit(req)
	require.NoError(t, err)

	exists, err = blobs.Exists("orphan.deadbeef")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestLoadTopologyRoundTrip(t *testing.T) {
	s := Open(openTestBlobs(t), nil, 0, nil)

	tag := model.Tag{Transpose: csr.TransposeYes, EdgeSort: csr.EdgeSortByDest, NodeSort: csr.NodeSortAny}
	req := basicRequest(model.NextVersion)
	req.Topologies = []model.RdgTopology{
		{Tag: tag, AdjIndices: []uint32{0, 1, 1}, Dests: []uint32{1}},
	}
	result, err := s.Commit(req)
	require.NoError(t, err)

	topo, ok, err := s.LoadTopology("", result.Manifest.Version, tag)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []uint32{0, 1, 1}, topo.AdjIndices)

	missingTag := model.Tag{Transpose: csr.TransposeNo, EdgeSort: csr.EdgeSortAny, NodeSort: csr.NodeSortAny}
	_, ok, err = s.LoadTopology("", result.Manifest.Version, missingTag)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadWithNilTagsDerivesFromPartHeader(t *testing.T) {
	s := Open(openTestBlobs(t), nil, 0, nil)

	tagA := model.Tag{Transpose: csr.TransposeYes, EdgeSort: csr.EdgeSortByDest, NodeSort: csr.NodeSortAny}
	tagB := model.Tag{Transpose: csr.TransposeNo, EdgeSort: csr.EdgeSortAny, NodeSort: csr.NodeSortAny}
	req := basicRequest(model.NextVersion)
	req.Topologies = []model.RdgTopology{
		{Tag: tagA, AdjIndices: []uint32{0, 1, 1}, Dests: []uint32{1}},
		{Tag: tagB, AdjIndices: []uint32{0, 0}, Dests: nil},
	}
	result, err := s.Commit(req)
	require.NoError(t, err)

	_, _, topos, err := s.Load("", result.Manifest.Version, nil)
	require.NoError(t, err)
	require.Len(t, topos, 2)

	gotTags := map[model.Tag]bool{}
	for _, topo := range topos {
		gotTags[topo.Tag] = true
	}
	require.True(t, gotTags[tagA])
	require.True(t, gotTags[tagB])
}

func TestLoadPropertiesFetchesRawColumnBytes(t *testing.T) {
	blobs := openTestBlobs(t)
	s := Open(blobs, nil, 0, nil)

	req := basicRequest(model.NextVersion)
	result, err := s.Commit(req)
	require.NoError(t, err)

	raw, err := s.LoadProperties(result.PartHeader.NodeProperties)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, raw["w"])
}

func TestCommitSurfacesWriteGroupFailure(t *testing.T) {
	s := Open(openTestBlobs(t), nil, 0, nil)

	req := basicRequest(model.NextVersion)
	req.NodeColumns = []ColumnWrite{
		{Name: "bad", Encode: func() ([]byte, error) { return nil, errEncodeFail }},
	}
	_, err := s.Commit(req)
	require.Error(t, err)
}

var errEncodeFail = errors.New("synthetic encode failure")
