package storage

import (
	grugerrors "github.com/left-curve/grug/errors"
)

// Index is a secondary index maintained alongside an IndexedMap's primary
// entries (the orderbook's price-time index is the
// motivating case). IndexKeyOf derives the index key from a saved value;
// Save/Remove are called by IndexedMap on every primary write so the index
// never drifts from the primary data.
type Index[PK any, V any] interface {
	Save(b Backend, pk PK, v V) error
	Remove(b Backend, pk PK, v V)
}

// MultiIndex allows more than one primary key per index key: the raw
// storage key is indexKey ++ primaryKey, the two codec encodings
// concatenated without a length prefix, so distinct primary keys never
// collide (e.g. indexing orders by price level). Prefix cuts the encoded
// index key off each stored key to recover the primary key, which
// separates the two correctly only when the index-key encoding has a
// fixed width.
type MultiIndex[IK any, PK any, V any] struct {
	namespace []byte
	indexKey  func(V) IK
	ikCodec   KeyCodec[IK]
	pkCodec   KeyCodec[PK]
}

func NewMultiIndex[IK any, PK any, V any](namespace []byte, indexKey func(V) IK, ikCodec KeyCodec[IK], pkCodec KeyCodec[PK]) *MultiIndex[IK, PK, V] {
	return &MultiIndex[IK, PK, V]{namespace: namespace, indexKey: indexKey, ikCodec: ikCodec, pkCodec: pkCodec}
}

func (idx *MultiIndex[IK, PK, V]) rawKey(ik IK, pk PK) []byte {
	out := make([]byte, 0, len(idx.namespace)+16)
	out = append(out, idx.namespace...)
	out = append(out, idx.ikCodec.Encode(ik)...)
	out = append(out, idx.pkCodec.Encode(pk)...)
	return out
}

func (idx *MultiIndex[IK, PK, V]) Save(b Backend, pk PK, v V) error {
	b.Write(idx.rawKey(idx.indexKey(v), pk), []byte{})
	return nil
}

func (idx *MultiIndex[IK, PK, V]) Remove(b Backend, pk PK, v V) {
	b.Remove(idx.rawKey(idx.indexKey(v), pk))
}

// Prefix returns the primary keys of every entry sharing the given index
// key, in order -- e.g. every resting order at a given (direction, price).
func (idx *MultiIndex[IK, PK, V]) Prefix(b Backend, ik IK, order Order) ([]PK, error) {
	relPrefix := idx.ikCodec.Encode(ik)
	full := append(append([]byte{}, idx.namespace...), relPrefix...)
	lo := Min(full, Inclusive)
	upper := prefixUpperBound(full)
	var hi Bounded
	if upper == nil {
		hi = Max(nil, Unbounded)
	} else {
		hi = Max(upper, Exclusive)
	}

	it := b.Scan(lo, hi, order)
	defer it.Close()

	var out []PK
	for it.Next() {
		rawKey := it.Key()
		if len(rawKey) < len(full) {
			continue
		}
		pk, err := idx.pkCodec.Decode(rawKey[len(idx.namespace)+len(relPrefix):])
		if err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "multi index: decode primary key", err)
		}
		out = append(out, pk)
	}
	return out, nil
}

// UniqueIndex enforces at most one primary key per index key (e.g. a
// contract label must be unique). The raw value stored is the
// primary key itself, so looking an index key up resolves straight to the
// owner.
type UniqueIndex[IK any, PK any, V any] struct {
	namespace []byte
	indexKey  func(V) IK
	ikCodec   KeyCodec[IK]
	pkCodec   KeyCodec[PK]
}

func NewUniqueIndex[IK any, PK any, V any](namespace []byte, indexKey func(V) IK, ikCodec KeyCodec[IK], pkCodec KeyCodec[PK]) *UniqueIndex[IK, PK, V] {
	return &UniqueIndex[IK, PK, V]{namespace: namespace, indexKey: indexKey, ikCodec: ikCodec, pkCodec: pkCodec}
}

func (idx *UniqueIndex[IK, PK, V]) rawKey(ik IK) []byte {
	out := make([]byte, 0, len(idx.namespace)+8)
	out = append(out, idx.namespace...)
	out = append(out, idx.ikCodec.Encode(ik)...)
	return out
}

func (idx *UniqueIndex[IK, PK, V]) Save(b Backend, pk PK, v V) error {
	ik := idx.indexKey(v)
	key := idx.rawKey(ik)
	if existing, ok := b.Read(key); ok {
		holder, err := idx.pkCodec.Decode(existing)
		if err == nil {
			if !idx.sameKey(holder, pk) {
				return grugerrors.New(grugerrors.ERR_ALREADY_EXISTS, "unique index: duplicate key")
			}
		}
	}
	b.Write(key, idx.pkCodec.Encode(pk))
	return nil
}

func (idx *UniqueIndex[IK, PK, V]) sameKey(a, b PK) bool {
	ea := idx.pkCodec.Encode(a)
	eb := idx.pkCodec.Encode(b)
	if len(ea) != len(eb) {
		return false
	}
	for i := range ea {
		if ea[i] != eb[i] {
			return false
		}
	}
	return true
}

func (idx *UniqueIndex[IK, PK, V]) Remove(b Backend, pk PK, v V) {
	b.Remove(idx.rawKey(idx.indexKey(v)))
}

func (idx *UniqueIndex[IK, PK, V]) Load(b Backend, ik IK) (PK, bool, error) {
	var zero PK
	raw, ok := b.Read(idx.rawKey(ik))
	if !ok {
		return zero, false, nil
	}
	pk, err := idx.pkCodec.Decode(raw)
	if err != nil {
		return zero, false, grugerrors.New(grugerrors.ERR_SERDE, "unique index: decode primary key", err)
	}
	return pk, true, nil
}
