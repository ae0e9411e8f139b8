package storage

import (
	"bytes"

	"github.com/left-curve/grug/encoding"
	grugerrors "github.com/left-curve/grug/errors"
)

// KeyCodec encodes/decodes a typed map key to/from its raw storage-key
// bytes. Map is deliberately parameterized over this rather
// than requiring K to implement an interface, since composite keys (tuples)
// need access to the keys package's Compose/Split helpers, not a method set.
type KeyCodec[K any] struct {
	Encode func(K) []byte
	Decode func([]byte) (K, error)
}

// Map is a namespaced collection of key/value pairs.
type Map[K any, V any] struct {
	namespace []byte
	keys      KeyCodec[K]
}

func NewMap[K any, V any](namespace []byte, keys KeyCodec[K]) Map[K, V] {
	return Map[K, V]{namespace: namespace, keys: keys}
}

func (m Map[K, V]) rawKey(k K) []byte {
	out := make([]byte, 0, len(m.namespace)+8)
	out = append(out, m.namespace...)
	out = append(out, m.keys.Encode(k)...)
	return out
}

func (m Map[K, V]) Has(b Backend, k K) bool {
	_, ok := b.Read(m.rawKey(k))
	return ok
}

func (m Map[K, V]) MayLoad(b Backend, k K) (V, bool, error) {
	var zero V
	raw, ok := b.Read(m.rawKey(k))
	if !ok {
		return zero, false, nil
	}
	var v V
	if err := encoding.UnmarshalJSON(raw, &v); err != nil {
		return zero, false, grugerrors.New(grugerrors.ERR_SERDE, "map: decode value", err)
	}
	return v, true, nil
}

func (m Map[K, V]) Load(b Backend, k K) (V, error) {
	v, ok, err := m.MayLoad(b, k)
	if err != nil {
		var zero V
		return zero, err
	}
	if !ok {
		var zero V
		return zero, grugerrors.ErrDataNotFound
	}
	return v, nil
}

func (m Map[K, V]) Save(b Backend, k K, v V) error {
	raw, err := encoding.MarshalJSON(v)
	if err != nil {
		return grugerrors.New(grugerrors.ERR_SERDE, "map: encode value", err)
	}
	b.Write(m.rawKey(k), raw)
	return nil
}

func (m Map[K, V]) Remove(b Backend, k K) {
	b.Remove(m.rawKey(k))
}

func (m Map[K, V]) Update(b Backend, k K, f func(V, bool) (V, error)) (V, error) {
	var zero V
	cur, ok, err := m.MayLoad(b, k)
	if err != nil {
		return zero, err
	}
	next, err := f(cur, ok)
	if err != nil {
		return zero, err
	}
	if err := m.Save(b, k, next); err != nil {
		return zero, err
	}
	return next, nil
}

// Clear removes every entry under the map's namespace.
func (m Map[K, V]) Clear(b Backend) {
	b.RemoveRange(m.prefixBounds())
}

func (m Map[K, V]) prefixBounds() (Bounded, Bounded) {
	min := Min(m.namespace, Inclusive)
	max := Max(prefixUpperBound(m.namespace), Exclusive)
	return min, max
}

// prefixUpperBound returns the smallest byte string that is strictly
// greater than every string with the given prefix, i.e. prefix incremented
// in its last non-0xff byte -- the usual iterator-bound trick for prefix
// scans.
func prefixUpperBound(prefix []byte) []byte {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil // prefix is all 0xff bytes: unbounded above
}

// Entry is a decoded (key, value) pair returned by Range.
type Entry[K any, V any] struct {
	Key   K
	Value V
}

// Range iterates entries whose encoded key lies within [min, max) of the
// map's namespace, in the given order, decoding both key and value.
func (m Map[K, V]) Range(b Backend, min, max *K, order Order) ([]Entry[K, V], error) {
	it := m.scanBounds(b, min, max, order)
	defer it.Close()

	var out []Entry[K, V]
	for it.Next() {
		rawKey := it.Key()
		if !bytes.HasPrefix(rawKey, m.namespace) {
			continue
		}
		k, err := m.keys.Decode(rawKey[len(m.namespace):])
		if err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "map: decode key", err)
		}
		var v V
		if err := encoding.UnmarshalJSON(it.Value(), &v); err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "map: decode value", err)
		}
		out = append(out, Entry[K, V]{Key: k, Value: v})
	}
	return out, nil
}

// Keys collects only the decoded keys of a Range, in the given order.
func (m Map[K, V]) Keys(b Backend, min, max *K, order Order) ([]K, error) {
	raw, err := m.KeysRaw(b, min, max, order)
	if err != nil {
		return nil, err
	}
	out := make([]K, len(raw))
	for i, rk := range raw {
		k, err := m.keys.Decode(rk)
		if err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "map: decode key", err)
		}
		out[i] = k
	}
	return out, nil
}

// Values collects only the decoded values of a Range, in key order.
func (m Map[K, V]) Values(b Backend, min, max *K, order Order) ([]V, error) {
	entries, err := m.Range(b, min, max, order)
	if err != nil {
		return nil, err
	}
	out := make([]V, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out, nil
}

// RawEntry is an undecoded (key, value) pair: the namespace-relative
// encoded key bytes and the stored value bytes as-is.
type RawEntry struct {
	Key   []byte
	Value []byte
}

// RangeRaw iterates like Range but skips decoding, handing back the
// namespace-relative key bytes and raw value bytes.
func (m Map[K, V]) RangeRaw(b Backend, min, max *K, order Order) ([]RawEntry, error) {
	it := m.scanBounds(b, min, max, order)
	defer it.Close()

	var out []RawEntry
	for it.Next() {
		rawKey := it.Key()
		if !bytes.HasPrefix(rawKey, m.namespace) {
			continue
		}
		out = append(out, RawEntry{
			Key:   append([]byte{}, rawKey[len(m.namespace):]...),
			Value: append([]byte{}, it.Value()...),
		})
	}
	return out, nil
}

// KeysRaw collects only the namespace-relative encoded key bytes.
func (m Map[K, V]) KeysRaw(b Backend, min, max *K, order Order) ([][]byte, error) {
	entries, err := m.RangeRaw(b, min, max, order)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out, nil
}

// ValuesRaw collects only the raw stored value bytes, in key order.
func (m Map[K, V]) ValuesRaw(b Backend, min, max *K, order Order) ([][]byte, error) {
	entries, err := m.RangeRaw(b, min, max, order)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out, nil
}

func (m Map[K, V]) scanBounds(b Backend, min, max *K, order Order) Iterator {
	lo := Min(m.namespace, Inclusive)
	if min != nil {
		lo = Min(append(append([]byte{}, m.namespace...), m.keys.Encode(*min)...), Inclusive)
	}
	hi := Max(prefixUpperBound(m.namespace), Exclusive)
	if max != nil {
		hi = Max(append(append([]byte{}, m.namespace...), m.keys.Encode(*max)...), Exclusive)
	}
	return b.Scan(lo, hi, order)
}

// Prefix iterates every entry whose key begins with a namespace-relative
// byte prefix (used for tuple-keyed maps scanning one component, e.g. the
// DEX orderbook scanning all orders at a given direction).
func (m Map[K, V]) Prefix(b Backend, rel []byte, order Order) ([]Entry[K, V], error) {
	full := append(append([]byte{}, m.namespace...), rel...)
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

	var out []Entry[K, V]
	for it.Next() {
		rawKey := it.Key()
		if !bytes.HasPrefix(rawKey, m.namespace) {
			continue
		}
		k, err := m.keys.Decode(rawKey[len(m.namespace):])
		if err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "map: decode key", err)
		}
		var v V
		if err := encoding.UnmarshalJSON(it.Value(), &v); err != nil {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "map: decode value", err)
		}
		out = append(out, Entry[K, V]{Key: k, Value: v})
	}
	return out, nil
}
