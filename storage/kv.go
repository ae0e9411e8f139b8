// Package storage implements the typed persistent key-value store: Item/Map/Set built over a raw KV Backend, with composite keys,
// bounded range iteration, and secondary multi/unique indexes.
package storage

import (
	"bytes"
	"sort"
	"sync"

	grugerrors "github.com/left-curve/grug/errors"
)

// Order controls ascending/descending iteration.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Bound is Inclusive or Exclusive.
type Bound int

const (
	Unbounded Bound = iota
	Inclusive
	Exclusive
)

// Bounded pairs a key with how it bounds a range.
type Bounded struct {
	Key   []byte
	Bound Bound
}

func Min(key []byte, b Bound) Bounded { return Bounded{Key: key, Bound: b} }
func Max(key []byte, b Bound) Bounded { return Bounded{Key: key, Bound: b} }

// Iterator walks a bounded key range in the requested order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close()
}

// Backend is the raw KV store every typed abstraction is built on: read,
// scan, write, remove.
type Backend interface {
	Read(key []byte) ([]byte, bool)
	Scan(min, max Bounded, order Order) Iterator
	Write(key, value []byte)
	Remove(key []byte)
	RemoveRange(min, max Bounded)
}

// MemBackend is an in-memory Backend, used by tests and as the state
// layer beneath db.LiteDB's overlay (the "state-storage").
type MemBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemBackend() *MemBackend {
	return &MemBackend{data: map[string][]byte{}}
}

func (m *MemBackend) Read(key []byte) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (m *MemBackend) Write(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
}

func (m *MemBackend) Remove(key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
}

func inRange(key []byte, min, max Bounded) bool {
	if min.Key != nil {
		cmp := bytes.Compare(key, min.Key)
		if min.Bound == Exclusive && cmp <= 0 {
			return false
		}
		if min.Bound == Inclusive && cmp < 0 {
			return false
		}
	}
	if max.Key != nil {
		cmp := bytes.Compare(key, max.Key)
		if max.Bound == Exclusive && cmp >= 0 {
			return false
		}
		if max.Bound == Inclusive && cmp > 0 {
			return false
		}
	}
	return true
}

func (m *MemBackend) RemoveRange(min, max Bounded) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if inRange([]byte(k), min, max) {
			delete(m.data, k)
		}
	}
}

type sliceIterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *sliceIterator) Key() []byte   { return it.keys[it.pos] }
func (it *sliceIterator) Value() []byte { return it.values[it.pos] }
func (it *sliceIterator) Close()        {}

// Scan yields keys in lexicographic order of the encoded key, ascending
// or descending as requested, honoring bounds exactly.
func (m *MemBackend) Scan(min, max Bounded, order Order) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type kv struct {
		k, v []byte
	}
	var matched []kv
	for k, v := range m.data {
		kb := []byte(k)
		if inRange(kb, min, max) {
			vc := make([]byte, len(v))
			copy(vc, v)
			matched = append(matched, kv{k: kb, v: vc})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return bytes.Compare(matched[i].k, matched[j].k) < 0
	})
	if order == Descending {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	keys := make([][]byte, len(matched))
	vals := make([][]byte, len(matched))
	for i, e := range matched {
		keys[i] = e.k
		vals[i] = e.v
	}
	return &sliceIterator{keys: keys, values: vals, pos: -1}
}

var ErrNotFound = grugerrors.ErrDataNotFound
