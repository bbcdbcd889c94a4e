package propcache

import (
	"runtime"
	"sync/atomic"
)

// spinlock guards the LRU list: entries are few and held only for
// O(1) splice operations, so a full mutex's syscall-capable park/wake
// path is overkill.
type spinlock struct {
	locked atomic.Bool
}

func (s *spinlock) Lock() {
	for !s.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.locked.Store(false)
}
