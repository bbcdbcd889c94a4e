package blobstore

import (
	"fmt"
	"sync"

	"github.com/vela-graph/rdg/internal/parallel"
)

// WriteGroup is a batched-async-I/O descriptor: a caller schedules any
// number of writes, then calls Finish, which blocks until every write
// has completed and surfaces the first error encountered. A failing
// write does not cancel the rest of the batch, so queued writes keep
// running to completion rather than leaving the store half-updated.
type WriteGroup struct {
	store *Store
	pool  *parallel.Pool
	tasks []func() error

	mu       sync.Mutex
	firstErr error
}

// OpenWriteGroup begins a new write batch against store. A nil pool
// uses parallel.Default.
func (s *Store) OpenWriteGroup(pool *parallel.Pool) *WriteGroup {
	if pool == nil {
		pool = parallel.Default
	}
	writeGroupCounter.Add(1)
	return &WriteGroup{store: s, pool: pool}
}

// Schedule queues an arbitrary write-side task (e.g. encode-then-Put) to
// run when Finish is called. Schedule itself never blocks.
func (wg *WriteGroup) Schedule(task func() error) {
	wg.tasks = append(wg.tasks, task)
}

// Put schedules a plain key/value write.
func (wg *WriteGroup) Put(key string, content []byte) {
	wg.Schedule(func() error { return wg.store.Put(key, content) })
}

// Finish runs every scheduled task concurrently and blocks until all of
// them have completed. It returns the first error encountered, if any;
// every task still runs regardless of earlier failures.
func (wg *WriteGroup) Finish() error {
	wg.pool.DoAll(len(wg.tasks), func(i int) {
		if err := wg.tasks[i](); err != nil {
			wg.mu.Lock()
			if wg.firstErr == nil {
				wg.firstErr = err
			}
			wg.mu.Unlock()
		}
	})
	if wg.firstErr != nil {
		return fmt.Errorf("blobstore: write group: %w", wg.firstErr)
	}
	return nil
}

// ReadGroup is the read-side counterpart, used when loading a manifest
// schedules property-file and topology-blob opens in bulk.
type ReadGroup struct {
	store *Store
	pool  *parallel.Pool
	tasks []func() error

	mu       sync.Mutex
	firstErr error
}

// OpenReadGroup begins a new read batch against store.
func (s *Store) OpenReadGroup(pool *parallel.Pool) *ReadGroup {
	if pool == nil {
		pool = parallel.Default
	}
	return &ReadGroup{store: s, pool: pool}
}

// Schedule queues a read-side task to run when Finish is called.
func (rg *ReadGroup) Schedule(task func() error) {
	rg.tasks = append(rg.tasks, task)
}

// Get schedules a plain key read, invoking onValue with the bytes found
// (or nil, if absent) once Finish runs.
func (rg *ReadGroup) Get(key string, onValue func([]byte, bool) error) {
	rg.Schedule(func() error {
		v, ok, err := rg.store.Get(key)
		if err != nil {
			return err
		}
		return onValue(v, ok)
	})
}

// Finish blocks until every scheduled read has completed, returning the
// first error encountered.
func (rg *ReadGroup) Finish() error {
	rg.pool.DoAll(len(rg.tasks), func(i int) {
		if err := rg.tasks[i](); err != nil {
			rg.mu.Lock()
			if rg.firstErr == nil {
				rg.firstErr = err
			}
			rg.mu.Unlock()
		}
	})
	if rg.firstErr != nil {
		return fmt.Errorf("blobstore: read group: %w", rg.firstErr)
	}
	return nil
}
