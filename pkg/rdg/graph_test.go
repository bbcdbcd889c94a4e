package rdg

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vela-graph/rdg/internal/csr"
	"github.com/vela-graph/rdg/pkg/model"
	"github.com/vela-graph/rdg/pkg/property"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Make(
		[]csr.Edge{0, 2, 3, 4, 4},
		[]csr.Node{1, 2, 2, 3},
		Config{Paths: []string{t.TempDir()}},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestMakeBuildsCanonicalTopology(t *testing.T) {
	g := newTestGraph(t)
	require.Equal(t, 4, g.Views.GetDefault().NumNodes())
	require.Equal(t, 4, g.Views.GetDefault().NumEdges())
}

func TestStorePersistsDirtyColumnsAndTopologies(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Nodes.Add("w", []uint64{1, 2, 3}))

	_, err := g.Views.BuildOrGetEdgeShuffle(csr.TransposeYes, csr.EdgeSortByDest)
	require.NoError(t, err)

	result, err := g.Store(model.NextVersion)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.Manifest.Version)
	require.Len(t, result.PartHeader.NodeProperties, 1)
	// The transpose/by-dest shuffle built above plus the canonical
	// identity view Store always ensures is cached before committing.
	require.Len(t, result.PartHeader.TopologyManifests, 2)

	st, err := g.Nodes.State("w")
	require.NoError(t, err)
	require.Equal(t, property.Clean, st)
}

func mustState(t *testing.T, m *property.Manager[uint64], name string) property.State {
	t.Helper()
	st, err := m.State(name)
	require.NoError(t, err)
	return st
}

func TestOpenReopensCommittedGraph(t *testing.T) {
	dir := t.TempDir()

	g := func() *Graph {
		g, err := Make(
			[]csr.Edge{0, 2, 3, 4, 4},
			[]csr.Node{1, 2, 2, 3},
			Config{Paths: []string{dir}},
		)
		require.NoError(t, err)
		return g
	}()
	require.NoError(t, g.Nodes.Add("w", []uint64{1, 2, 3}))
	_, err := g.Store(model.NextVersion)
	require.NoError(t, err)
	require.NoError(t, g.Close())

	reopened, err := Open(Config{Paths: []string{dir}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	require.Equal(t, 4, reopened.Views.GetDefault().NumNodes())
	require.Equal(t, 4, reopened.Views.GetDefault().NumEdges())
	require.Equal(t, property.Clean, mustState(t, reopened.Nodes, "w"))

	values, err := reopened.Nodes.Get("w")
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, values)
}

func TestRemoveNodeColumnUnlinksOnNextCommit(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Nodes.Add("w", []uint64{1, 2, 3}))

	_, err := g.Store(model.NextVersion)
	require.NoError(t, err)

	path, err := g.Nodes.Path("w")
	require.NoError(t, err)
	require.NotEmpty(t, path)

	require.NoError(t, g.RemoveNodeColumn("w"))
	_, err = g.Nodes.State("w")
	require.Error(t, err)

	_, err = g.Store(model.NextVersion)
	require.NoError(t, err)

	exists, err := g.blobs.Exists(path)
	require.NoError(t, err)
	require.False(t, exists)
}
