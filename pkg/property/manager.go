// Package property implements a columnar bag keyed by name, where each
// column tracks a 3-state lifecycle (absent/clean/dirty) against its
// on-disk representation: load-on-demand, flush-on-dirty against a
// content-addressed backing store.
package property

import (
	"sync"

	"github.com/vela-graph/rdg/internal/contentaddr"
	"github.com/vela-graph/rdg/internal/propcache"
	"github.com/vela-graph/rdg/pkg/rdgerr"
)

// Scope distinguishes node-scoped from edge-scoped columns; column
// names are only required to be unique within a scope.
type Scope int

const (
	NodeScope Scope = iota
	EdgeScope
)

// State is a column's 3-state lifecycle relative to its on-disk copy.
type State int

const (
	Absent State = iota
	Clean
	Dirty
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// Blobs is the minimal contract this package needs from the storage
// namespace: content-addressed get/put by key.
type Blobs interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, content []byte) error
}

// Codec bridges a column's in-memory value slice and its on-disk byte
// representation.
type Codec[V any] interface {
	Encode(values []V) ([]byte, error)
	Decode(data []byte) ([]V, error)
}

// column is one PropertyColumn plus its PropStorageInfo.
type column[V any] struct {
	name   string
	state  State
	path   string
	values []V
}

// Manager is PropertyManager for one scope and one logical value type.
// A graph with heterogeneously typed columns composes one Manager per
// value type it carries, mirroring the "chunked column table" the
// external columnar library is assumed to hold per logical type.
type Manager[V any] struct {
	mu      sync.Mutex
	scope   Scope
	blobs   Blobs
	codec   Codec[V]
	columns map[string]*column[V]
	hot     *propcache.Cache[struct{}]
}

// New builds an empty Manager bound to a scope, backing blob store, and
// codec. Columns stay loaded until the caller explicitly Unloads them
// unless EnableCache is also called.
func New[V any](scope Scope, blobs Blobs, codec Codec[V]) *Manager[V] {
	return &Manager[V]{scope: scope, blobs: blobs, codec: codec, columns: make(map[string]*column[V])}
}

// EnableCache bounds the number of simultaneously loaded columns to
// maxEntries: once Add/Upsert/Load brings a new column in over that
// budget, the least recently touched one is unloaded automatically
// (flushed first if dirty), via an eviction callback that captures this
// Manager rather than reaching for any package-level state.
func (m *Manager[V]) EnableCache(maxEntries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hot = propcache.NewLRU[struct{}](maxEntries, func(k propcache.Key) {
		_ = m.unloadLocked(k.Name)
	})
}

func (m *Manager[V]) cacheScope() propcache.Scope {
	if m.scope == EdgeScope {
		return propcache.EdgeScope
	}
	return propcache.NodeScope
}

// touchLocked records name as just-accessed in the hot-column cache, if
// one is enabled. Called while m.mu is already held; the eviction
// callback it may trigger synchronously reenters this same critical
// section, never the lock itself.
func (m *Manager[V]) touchLocked(name string) {
	if m.hot == nil {
		return
	}
	m.hot.Insert(propcache.Key{Scope: m.cacheScope(), Name: name}, struct{}{})
}

// Add appends a new column with initial values, failing if name is
// already present. The new column starts dirty — it has values the
// backing store does not yet reflect.
func (m *Manager[V]) Add(name string, values []V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.columns[name]; exists {
		return rdgerr.New(rdgerr.InvalidArgument, "column %q already exists", name)
	}
	m.columns[name] = &column[V]{name: name, state: Dirty, values: append([]V(nil), values...)}
	m.touchLocked(name)
	return nil
}

// Upsert overwrites name's values if present, else appends it as a new
// column. Either way the result is dirty.
func (m *Manager[V]) Upsert(name string, values []V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, exists := m.columns[name]; exists {
		c.values = append([]V(nil), values...)
		c.state = Dirty
	} else {
		m.columns[name] = &column[V]{name: name, state: Dirty, values: append([]V(nil), values...)}
	}
	m.touchLocked(name)
}

// Remove drops a column from the in-memory table. Its on-disk path (if
// any) is retained in the returned path so the caller can defer the
// unlink until after the next successful commit.
func (m *Manager[V]) Remove(name string) (path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, exists := m.columns[name]
	if !exists {
		return "", rdgerr.New(rdgerr.PropertyNotFound, "column %q not found", name)
	}
	delete(m.columns, name)
	if m.hot != nil {
		m.hot.Remove(propcache.Key{Scope: m.cacheScope(), Name: name})
	}
	return c.path, nil
}

// Load reads an absent column's values from its on-disk path, marking
// it clean. It fails if the column is not currently absent.
func (m *Manager[V]) Load(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, exists := m.columns[name]
	if !exists {
		return rdgerr.New(rdgerr.PropertyNotFound, "column %q not found", name)
	}
	if c.state != Absent {
		return rdgerr.New(rdgerr.InvalidArgument, "column %q is not absent (state=%s)", name, c.state)
	}
	raw, ok, err := m.blobs.Get(c.path)
	if err != nil {
		return rdgerr.Wrap(rdgerr.IoError, err, "load column %q from %q", name, c.path)
	}
	if !ok {
		return rdgerr.New(rdgerr.IoError, "column %q: backing path %q missing", name, c.path)
	}
	values, err := m.codec.Decode(raw)
	if err != nil {
		return rdgerr.Wrap(rdgerr.SchemaMismatch, err, "decode column %q", name)
	}
	c.values = values
	c.state = Clean
	m.touchLocked(name)
	return nil
}

// Unload flushes a dirty column to a fresh content-addressed file (then
// marks it clean) or, if already clean, simply drops the in-memory
// column; either way the result is absent. Unloading an already-absent
// column is a no-op rather than a PropertyNotFound error.
func (m *Manager[V]) Unload(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unloadLocked(name)
}

// unloadLocked is Unload's body, callable while m.mu is already held —
// the hot-column cache's eviction callback reenters it this way rather
// than through Unload, which would try to relock m.mu.
func (m *Manager[V]) unloadLocked(name string) error {
	c, exists := m.columns[name]
	if !exists {
		return nil
	}
	if c.state == Dirty {
		raw, err := m.codec.Encode(c.values)
		if err != nil {
			return rdgerr.Wrap(rdgerr.SchemaMismatch, err, "encode column %q", name)
		}
		path := contentaddr.NewFileName(name, raw)
		if err := m.blobs.Put(path, raw); err != nil {
			return rdgerr.Wrap(rdgerr.IoError, err, "flush column %q to %q", name, path)
		}
		c.path = path
	}
	c.values = nil
	c.state = Absent
	if m.hot != nil {
		m.hot.Remove(propcache.Key{Scope: m.cacheScope(), Name: name})
	}
	return nil
}

// SeedMany installs a batch of columns as already Clean, decoding each
// one's raw bytes (fetched in bulk by the caller, e.g. via a
// persistence ReadGroup) with this Manager's own Codec — the shape a
// graph reopen needs instead of going through Add, which always starts
// a column Dirty. paths and raw are both keyed by column name; a name
// present in paths but missing from raw is skipped rather than failing
// the whole batch.
func (m *Manager[V]) SeedMany(paths map[string]string, raw map[string][]byte) error {
	for name, path := range paths {
		data, ok := raw[name]
		if !ok {
			continue
		}
		values, err := m.codec.Decode(data)
		if err != nil {
			return rdgerr.Wrap(rdgerr.SchemaMismatch, err, "decode column %q", name)
		}
		m.mu.Lock()
		m.columns[name] = &column[V]{name: name, state: Clean, path: path, values: values}
		m.touchLocked(name)
		m.mu.Unlock()
	}
	return nil
}

// Get returns a column's in-memory values. It fails with
// PropertyNotFound for an absent or missing column — callers must Load
// first.
func (m *Manager[V]) Get(name string) ([]V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, exists := m.columns[name]
	if !exists || c.state == Absent {
		return nil, rdgerr.New(rdgerr.PropertyNotFound, "column %q not loaded", name)
	}
	return c.values, nil
}

// State reports a column's current lifecycle state.
func (m *Manager[V]) State(name string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, exists := m.columns[name]
	if !exists {
		return Absent, rdgerr.New(rdgerr.PropertyNotFound, "column %q not found", name)
	}
	return c.state, nil
}

// ListFull enumerates every column name, loaded or not.
func (m *Manager[V]) ListFull() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.columns))
	for name := range m.columns {
		names = append(names, name)
	}
	return names
}

// ListLoaded enumerates only non-absent column names.
func (m *Manager[V]) ListLoaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name, c := range m.columns {
		if c.state != Absent {
			names = append(names, name)
		}
	}
	return names
}

// DirtyColumns returns the names of every column currently dirty — the
// set PersistenceLayer's Store writes out on commit.
func (m *Manager[V]) DirtyColumns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name, c := range m.columns {
		if c.state == Dirty {
			names = append(names, name)
		}
	}
	return names
}

// MarkWritten records that name's dirty contents were flushed to path
// and the column is now clean — called by rdg.Graph.Store once a
// commit that wrote the column has completed.
func (m *Manager[V]) MarkWritten(name, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, exists := m.columns[name]
	if !exists {
		return rdgerr.New(rdgerr.PropertyNotFound, "column %q not found", name)
	}
	c.path = path
	c.state = Clean
	return nil
}

// Path returns a column's on-disk path, which may be empty if the
// column has never been written.
func (m *Manager[V]) Path(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, exists := m.columns[name]
	if !exists {
		return "", rdgerr.New(rdgerr.PropertyNotFound, "column %q not found", name)
	}
	return c.path, nil
}
