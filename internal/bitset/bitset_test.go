package bitset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func fill(b *DynamicBitset, indices ...int) {
	for _, i := range indices {
		b.Set(i)
	}
}

func TestOffsetsAscendingAndMatchesCount(t *testing.T) {
	b := New(200, nil)
	fill(b, 0, 1, 63, 64, 65, 127, 128, 199)

	offsets := b.Offsets(nil)
	require.Equal(t, b.Count(nil), len(offsets))
	for i := 1; i < len(offsets); i++ {
		require.Less(t, offsets[i-1], offsets[i])
	}
	require.Equal(t, []int{0, 1, 63, 64, 65, 127, 128, 199}, offsets)
}

func TestXorCountIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 513
	a := New(n, nil)
	b := New(n, nil)
	for i := 0; i < n; i++ {
		if rng.Intn(2) == 0 {
			a.Set(i)
		}
		if rng.Intn(2) == 0 {
			b.Set(i)
		}
	}

	and := New(n, nil)
	and.AndOf(a, b, nil)
	xor := New(n, nil)
	xor.XorOf(a, b, nil)

	got := xor.Count(nil)
	want := a.Count(nil) + b.Count(nil) - 2*and.Count(nil)
	require.Equal(t, want, got)
}

func TestNotComplementsWords(t *testing.T) {
	b := New(128, nil)
	fill(b, 3, 70)
	b.Not(nil)
	require.False(t, b.Test(3))
	require.False(t, b.Test(70))
	require.True(t, b.Test(4))
	require.True(t, b.Test(127))
}

func TestSerialCountMatchesParallel(t *testing.T) {
	b := New(1000, nil)
	for i := 0; i < 1000; i += 3 {
		b.Set(i)
	}
	require.Equal(t, b.SerialCount(), b.Count(nil))
}
