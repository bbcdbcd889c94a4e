package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoAllCoversEveryIndex(t *testing.T) {
	p := New(4)
	const n = 1000
	var hits [n]int32
	p.DoAll(n, func(i int) {
		atomic.AddInt32(&hits[i], 1)
	})
	for i, h := range hits {
		require.Equalf(t, int32(1), h, "index %d visited %d times", i, h)
	}
}

func TestDoAllEmptyRange(t *testing.T) {
	p := New(4)
	called := false
	p.DoAll(0, func(int) { called = true })
	require.False(t, called)
}

func TestOnEachRunsOncePerWorker(t *testing.T) {
	p := New(6)
	seen := NewLocal[int](p)
	p.OnEach(func(tid, nthreads int) {
		require.Equal(t, p.NumWorkers(), nthreads)
		*seen.Get(tid) = tid + 1
	})
	for tid, v := range seen.All() {
		require.Equal(t, tid+1, v)
	}
}

func TestBlockRangeCoversWithoutOverlap(t *testing.T) {
	p := New(4)
	const n = 97
	covered := make([]bool, n)
	for tid := 0; tid < 4; tid++ {
		start, end := p.BlockRange(n, tid, 4)
		for i := start; i < end; i++ {
			require.False(t, covered[i], "index %d double-covered", i)
			covered[i] = true
		}
	}
	for i, c := range covered {
		require.Truef(t, c, "index %d never covered", i)
	}
}

// TestBlockRangeConcurrentCallsDoNotCorruptEachOther runs BlockRange
// from many goroutines at once with different nthreads values, the
// shape OnEach callers (DynamicBitset.Offsets, EdgeTypeIndex) use it
// in. Each goroutine's own split must stay internally consistent
// regardless of what other goroutines pass concurrently.
func TestBlockRangeConcurrentCallsDoNotCorruptEachOther(t *testing.T) {
	p := New(4)
	const n = 997
	var wg sync.WaitGroup
	for run := 0; run < 50; run++ {
		nthreads := run%8 + 1
		for tid := 0; tid < nthreads; tid++ {
			tid, nthreads := tid, nthreads
			wg.Add(1)
			go func() {
				defer wg.Done()
				start, end := p.BlockRange(n, tid, nthreads)
				require.GreaterOrEqual(t, end, start)
				require.LessOrEqual(t, end, n)
				require.GreaterOrEqual(t, start, 0)
			}()
		}
	}
	wg.Wait()
}
