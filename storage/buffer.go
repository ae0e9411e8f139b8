package storage

import (
	"bytes"
	"sort"
)

// pendingWrite is one staged change: a value to write, or a removal. The
// removal flag is carried explicitly rather than as a sentinel value, so
// no byte sequence a caller stores can ever be mistaken for a deletion.
type pendingWrite struct {
	value   []byte
	deleted bool
}

// Buffer is a write-buffering overlay over a parent Backend: a nested
// transaction (submessage, simulated tx) writes into a
// Buffer so its changes can be discarded wholesale on failure instead of
// mutating the parent. Committing a Buffer flushes its pending writes and
// removals into the parent in one pass. Each nested execution scope gets
// its own Buffer, which is what makes per-frame rollback cheap.
type Buffer struct {
	parent  Backend
	pending map[string]pendingWrite
}

func NewBuffer(parent Backend) *Buffer {
	return &Buffer{parent: parent, pending: map[string]pendingWrite{}}
}

func (buf *Buffer) Read(key []byte) ([]byte, bool) {
	if w, ok := buf.pending[string(key)]; ok {
		if w.deleted {
			return nil, false
		}
		out := make([]byte, len(w.value))
		copy(out, w.value)
		return out, true
	}
	return buf.parent.Read(key)
}

func (buf *Buffer) Write(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	buf.pending[string(key)] = pendingWrite{value: v}
}

func (buf *Buffer) Remove(key []byte) {
	buf.pending[string(key)] = pendingWrite{deleted: true}
}

func (buf *Buffer) RemoveRange(min, max Bounded) {
	it := buf.Scan(min, max, Ascending)
	defer it.Close()
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte{}, it.Key()...))
	}
	for _, k := range keys {
		buf.Remove(k)
	}
}

// Scan merges the overlay's pending writes with the parent's committed
// state, the overlay taking precedence and removed keys suppressed.
func (buf *Buffer) Scan(min, max Bounded, order Order) Iterator {
	seen := map[string]bool{}
	type kv struct {
		k, v []byte
	}
	var merged []kv

	for k, w := range buf.pending {
		kb := []byte(k)
		seen[k] = true
		if !inRange(kb, min, max) {
			continue
		}
		if w.deleted {
			continue
		}
		merged = append(merged, kv{k: kb, v: w.value})
	}

	parentIt := buf.parent.Scan(min, max, Ascending)
	defer parentIt.Close()
	for parentIt.Next() {
		k := parentIt.Key()
		if seen[string(k)] {
			continue
		}
		merged = append(merged, kv{k: append([]byte{}, k...), v: append([]byte{}, parentIt.Value()...)})
	}

	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].k, merged[j].k) < 0
	})
	if order == Descending {
		for i, j := 0, len(merged)-1; i < j; i, j = i+1, j-1 {
			merged[i], merged[j] = merged[j], merged[i]
		}
	}

	keys := make([][]byte, len(merged))
	vals := make([][]byte, len(merged))
	for i, e := range merged {
		keys[i] = e.k
		vals[i] = e.v
	}
	return &sliceIterator{keys: keys, values: vals, pos: -1}
}

// Commit flushes every pending write/removal into the parent backend (a
// submessage's state changes apply only once the call tree above it
// returns Ok). Each key carries only its latest change, and keys are
// flushed in no particular order.
func (buf *Buffer) Commit() {
	for k, w := range buf.pending {
		if w.deleted {
			buf.parent.Remove([]byte(k))
		} else {
			buf.parent.Write([]byte(k), w.value)
		}
	}
	buf.pending = map[string]pendingWrite{}
}

// Discard drops every pending change, leaving the parent untouched
// (a failed submessage whose reply does not propagate the
// error rolls its nested state changes back).
func (buf *Buffer) Discard() {
	buf.pending = map[string]pendingWrite{}
}

// Pending reports whether the overlay holds any uncommitted change.
func (buf *Buffer) Pending() bool {
	return len(buf.pending) > 0
}

// Op is a single staged write or removal, the shape a Buffer's pending set
// is exported as so a caller (the block pipeline, flushing an outermost
// overlay into the versioned DB) can turn it into that DB's own batch type
// without this package depending on it.
type Op struct {
	Insert bool
	Value  []byte
}

// Export returns the overlay's pending changes keyed by raw storage key,
// for a caller to hand to a versioned DB's flush-then-commit path. Does not include entries already committed to the parent.
func (buf *Buffer) Export() map[string]Op {
	out := make(map[string]Op, len(buf.pending))
	for k, w := range buf.pending {
		if w.deleted {
			out[k] = Op{Insert: false}
		} else {
			out[k] = Op{Insert: true, Value: w.value}
		}
	}
	return out
}
