// Package keydir implements the in-memory key directory: a concurrent map
// from key to the location of its latest Set record on disk.
package keydir

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Meta is the in-memory pointer to the latest Set for a key.
type Meta struct {
	FileID uint64
	Offset int64
	Length int64
}

// Dir is the concurrent key directory, backed by a lock-free map so Get
// never blocks behind a concurrent Insert/Remove/Range touching a
// different key.
type Dir struct {
	m *xsync.Map
}

// New returns an empty key directory.
func New() *Dir {
	return &Dir{m: xsync.NewMap()}
}

// Get returns the meta for key, if present.
func (d *Dir) Get(key string) (Meta, bool) {
	v, ok := d.m.Load(key)
	if !ok {
		return Meta{}, false
	}
	return v.(Meta), true
}

// Insert records meta for key and returns the previous meta, if any.
func (d *Dir) Insert(key string, meta Meta) (Meta, bool) {
	old, had := d.m.Load(key)
	d.m.Store(key, meta)
	if !had {
		return Meta{}, false
	}
	return old.(Meta), true
}

// Remove deletes key and returns its meta, if it was present.
func (d *Dir) Remove(key string) (Meta, bool) {
	old, had := d.m.LoadAndDelete(key)
	if !had {
		return Meta{}, false
	}
	return old.(Meta), true
}

// Len returns the number of live keys.
func (d *Dir) Len() int {
	return d.m.Size()
}

// Range calls fn for every live (key, meta) pair. fn may return a new Meta
// and true to rewrite the entry in place — this is the mechanism
// compaction uses to repoint entries at the compacted file without ever
// removing a key mid-walk.
func (d *Dir) Range(fn func(key string, meta Meta) (Meta, bool)) {
	d.m.Range(func(key string, value interface{}) bool {
		if newMeta, rewrite := fn(key, value.(Meta)); rewrite {
			d.m.Store(key, newMeta)
		}
		return true
	})
}
