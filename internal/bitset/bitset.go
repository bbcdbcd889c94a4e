// Package bitset implements a word-packed, parallel dynamic bitset.
// Bulk operations run as a parallel-for over 64-bit words via package
// parallel; Offsets computes the sorted list of set-bit positions via
// a two-phase on_each/prefix-sum/on_each pipeline.
package bitset

import (
	"math/bits"

	"github.com/vela-graph/rdg/internal/parallel"
)

const wordBits = 64

// DynamicBitset is a fixed-size, word-packed bitset.
type DynamicBitset struct {
	size int
	bits []uint64
}

// Empty is the process-wide empty-bitset singleton, shared by callers
// that need a zero-size bitset without allocating one each time.
var Empty = New(0, nil)

// New constructs a bitset of the given bit size. A nil pool falls back
// to parallel.Default.
func New(size int, pool *parallel.Pool) *DynamicBitset {
	if pool == nil {
		pool = parallel.Default
	}
	return &DynamicBitset{
		size: size,
		bits: make([]uint64, (size+wordBits-1)/wordBits),
	}
}

// Size returns the number of addressable bits.
func (b *DynamicBitset) Size() int { return b.size }

// Words exposes the backing word slice — callers that build a derived
// bitset from an existing one (e.g. bitwise combinators below) need
// direct word access.
func (b *DynamicBitset) Words() []uint64 { return b.bits }

// Test reports whether bit i is set.
func (b *DynamicBitset) Test(i int) bool {
	return b.bits[i/wordBits]&(uint64(1)<<(uint(i)%wordBits)) != 0
}

// Set sets bit i. Not safe to call concurrently on the same word as
// another Set/Reset/SetAtomic on overlapping indices; use SetAtomic
// from within a parallel.Pool.DoAll body.
func (b *DynamicBitset) Set(i int) {
	b.bits[i/wordBits] |= uint64(1) << (uint(i) % wordBits)
}

// Reset clears bit i.
func (b *DynamicBitset) Reset(i int) {
	b.bits[i/wordBits] &^= uint64(1) << (uint(i) % wordBits)
}

func withPool(pool *parallel.Pool) *parallel.Pool {
	if pool == nil {
		return parallel.Default
	}
	return pool
}

// Or sets b to b | other, word by word, in parallel.
func (b *DynamicBitset) Or(other *DynamicBitset, pool *parallel.Pool) {
	ow := other.Words()
	withPool(pool).DoAll(len(b.bits), func(i int) { b.bits[i] |= ow[i] })
}

// And sets b to b & other, word by word, in parallel.
func (b *DynamicBitset) And(other *DynamicBitset, pool *parallel.Pool) {
	ow := other.Words()
	withPool(pool).DoAll(len(b.bits), func(i int) { b.bits[i] &= ow[i] })
}

// Xor sets b to b ^ other, word by word, in parallel.
func (b *DynamicBitset) Xor(other *DynamicBitset, pool *parallel.Pool) {
	ow := other.Words()
	withPool(pool).DoAll(len(b.bits), func(i int) { b.bits[i] ^= ow[i] })
}

// Not complements every word of b in place, in parallel.
func (b *DynamicBitset) Not(pool *parallel.Pool) {
	withPool(pool).DoAll(len(b.bits), func(i int) { b.bits[i] = ^b.bits[i] })
}

// AndOf sets b to other1 & other2, word by word, in parallel. b must
// already be sized to match.
func (b *DynamicBitset) AndOf(other1, other2 *DynamicBitset, pool *parallel.Pool) {
	w1, w2 := other1.Words(), other2.Words()
	withPool(pool).DoAll(len(b.bits), func(i int) { b.bits[i] = w1[i] & w2[i] })
}

// XorOf sets b to other1 ^ other2, word by word, in parallel.
func (b *DynamicBitset) XorOf(other1, other2 *DynamicBitset, pool *parallel.Pool) {
	w1, w2 := other1.Words(), other2.Words()
	withPool(pool).DoAll(len(b.bits), func(i int) { b.bits[i] = w1[i] ^ w2[i] })
}

// Count returns the number of set bits via per-word popcount,
// accumulated across a parallel-for with a per-thread partial sum.
func (b *DynamicBitset) Count(pool *parallel.Pool) int {
	p := withPool(pool)
	partials := parallel.NewLocal[int](p)
	p.OnEach(func(tid, nthreads int) {
		start, end := p.BlockRange(len(b.bits), tid, nthreads)
		sum := 0
		for i := start; i < end; i++ {
			sum += bits.OnesCount64(b.bits[i])
		}
		*partials.Get(tid) = sum
	})
	total := 0
	for _, c := range partials.All() {
		total += c
	}
	return total
}

// SerialCount is the non-parallel equivalent of Count, used by callers
// (or tests) operating on small bitsets where spinning up workers isn't
// worth it.
func (b *DynamicBitset) SerialCount() int {
	total := 0
	for _, w := range b.bits {
		total += bits.OnesCount64(w)
	}
	return total
}

// Offsets returns the ascending list of set-bit positions. It runs
// three passes: (1) in parallel, per-thread local count over a block
// range, (2) serially, a prefix sum across threads on the controlling
// goroutine, (3) in parallel, per-thread scatter into a pre-sized
// output using the thread's base offset.
func (b *DynamicBitset) Offsets(pool *parallel.Pool) []int {
	p := withPool(pool)
	nthreads := p.NumWorkers()

	counts := make([]int, nthreads)
	p.OnEach(func(tid, nt int) {
		start, end := p.BlockRange(b.size, tid, nt)
		c := 0
		for i := start; i < end; i++ {
			if b.Test(i) {
				c++
			}
		}
		counts[tid] = c
	})

	prefix := make([]int, nthreads)
	running := 0
	for i := 0; i < nthreads; i++ {
		running += counts[i]
		prefix[i] = running
	}
	total := 0
	if nthreads > 0 {
		total = prefix[nthreads-1]
	}
	if total == 0 {
		return nil
	}

	offsets := make([]int, total)
	p.OnEach(func(tid, nt int) {
		start, end := p.BlockRange(b.size, tid, nt)
		idx := 0
		if tid != 0 {
			idx = prefix[tid-1]
		}
		for i := start; i < end; i++ {
			if b.Test(i) {
				offsets[idx] = i
				idx++
			}
		}
	})
	return offsets
}
