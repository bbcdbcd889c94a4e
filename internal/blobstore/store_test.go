package blobstore

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("k1", []byte("hello")))

	v, ok, err := s.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), v)

	_, ok, err = s.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteThenAbsent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("k", []byte("v")))
	require.NoError(t, s.Delete("k"))

	exists, err := s.Exists("k")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListPrefix(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("dir/a", []byte("1")))
	require.NoError(t, s.Put("dir/b", []byte("2")))
	require.NoError(t, s.Put("other/c", []byte("3")))

	keys, err := s.ListPrefix("dir/")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"dir/a", "dir/b"}, keys)
}

func TestWriteGroupRunsEveryTaskDespiteFailures(t *testing.T) {
	s := openTestStore(t)
	wg := s.OpenWriteGroup(nil)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		i := i
		wg.Schedule(func() error {
			ran.Add(1)
			if i%3 == 0 {
				return fmt.Errorf("synthetic failure %d", i)
			}
			return nil
		})
	}

	err := wg.Finish()
	require.Error(t, err)
	require.EqualValues(t, 10, ran.Load())
}

func TestReadGroupCollectsValues(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(fmt.Sprintf("key-%d", i), []byte{byte(i)}))
	}

	rg := s.OpenReadGroup(nil)
	got := make([][]byte, 5)
	for i := 0; i < 5; i++ {
		i := i
		rg.Get(fmt.Sprintf("key-%d", i), func(v []byte, ok bool) error {
			if !ok {
				return fmt.Errorf("key-%d missing", i)
			}
			got[i] = v
			return nil
		})
	}
	require.NoError(t, rg.Finish())
	for i := 0; i < 5; i++ {
		require.Equal(t, []byte{byte(i)}, got[i])
	}
}
