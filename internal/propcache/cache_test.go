package propcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyTouched(t *testing.T) {
	var evicted []Key
	c := NewLRU[string](2, func(k Key) { evicted = append(evicted, k) })

	k1 := Key{Scope: NodeScope, Name: "k1"}
	k2 := Key{Scope: NodeScope, Name: "k2"}
	k3 := Key{Scope: NodeScope, Name: "k3"}

	c.Insert(k1, "v1")
	c.Insert(k2, "v2")
	_, ok := c.Get(k1)
	require.True(t, ok)

	c.Insert(k3, "v3")

	require.False(t, c.Contains(k2))
	require.True(t, c.Contains(k1))
	require.True(t, c.Contains(k3))
	require.Equal(t, []Key{k2}, evicted)
	require.LessOrEqual(t, c.Len(), 2)
}

func TestSizeBudgetEvictsByBytes(t *testing.T) {
	sizeOf := func(v []byte) int64 { return int64(len(v)) }
	c := NewSizeBudget[[]byte](10, sizeOf, nil)

	c.Insert(Key{Name: "a"}, make([]byte, 4))
	c.Insert(Key{Name: "b"}, make([]byte, 4))
	require.LessOrEqual(t, c.Bytes(), int64(10))

	c.Insert(Key{Name: "c"}, make([]byte, 4))
	require.LessOrEqual(t, c.Bytes(), int64(10))
	require.False(t, c.Contains(Key{Name: "a"}))
}

func TestRemoveDropsEntryWithoutCallingOnEvict(t *testing.T) {
	var evicted []Key
	c := NewLRU[string](2, func(k Key) { evicted = append(evicted, k) })

	k := Key{Scope: NodeScope, Name: "k1"}
	c.Insert(k, "v1")

	require.True(t, c.Remove(k))
	require.False(t, c.Contains(k))
	require.Equal(t, 0, c.Len())
	require.Empty(t, evicted)

	require.False(t, c.Remove(k))
}

func TestReinsertDoesNotDoubleCountBytes(t *testing.T) {
	sizeOf := func(v []byte) int64 { return int64(len(v)) }
	c := NewSizeBudget[[]byte](100, sizeOf, nil)

	k := Key{Name: "x"}
	c.Insert(k, make([]byte, 10))
	c.Insert(k, make([]byte, 20))

	require.Equal(t, int64(20), c.Bytes())
	require.Equal(t, 1, c.Len())
}
