package db

import (
	"encoding/binary"
	"sort"

	"github.com/left-curve/grug/crypto"
)

// Op is a single pending write: either an insert carrying a value, or a
// delete.
type Op struct {
	Insert bool
	Value  []byte
}

func Insert(value []byte) Op { return Op{Insert: true, Value: value} }
func Delete() Op             { return Op{Insert: false} }

// Batch is an unordered set of pending key/value changes to apply as a
// single state-storage flush.
type Batch map[string]Op

// BatchHash computes a deterministic hash over a Batch's sorted entries,
// used by the lite DB in place of a Merkle root since it doesn't Merklize
// state: each
// entry is length-prefixed key, a 1-byte insert/delete flag, and -- for
// inserts -- a length-prefixed value, sorted ascending by key).
func BatchHash(batch Batch) crypto.Hash256 {
	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	for _, k := range keys {
		op := batch[k]
		var kl [2]byte
		binary.BigEndian.PutUint16(kl[:], uint16(len(k)))
		buf = append(buf, kl[:]...)
		buf = append(buf, []byte(k)...)
		if op.Insert {
			buf = append(buf, 1)
			var vl [2]byte
			binary.BigEndian.PutUint16(vl[:], uint16(len(op.Value)))
			buf = append(buf, vl[:]...)
			buf = append(buf, op.Value...)
		} else {
			buf = append(buf, 0)
		}
	}
	return crypto.Sha256(buf)
}
