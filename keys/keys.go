// Package keys builds composite storage keys: every element except the
// last is length-prefixed with a 2-byte big-endian length, so that a
// prefix of the first K<=N elements can bound-match any subtree. Reading
// one such length as little-endian corrupts any scan over elements longer
// than 255 bytes; this package uses big-endian consistently in both
// directions, and TestCompositeKeyPrefixEndianness regression-tests it.
package keys

import (
	"encoding/binary"

	grugerrors "github.com/left-curve/grug/errors"
)

// Elem is one element of a composite key: raw bytes plus whether this is
// the final element (the last element is never length-prefixed).
type Elem struct {
	Bytes []byte
	Last  bool
}

// Compose concatenates elements, length-prefixing every non-final one with
// a 2-byte big-endian length.
func Compose(elems ...[]byte) []byte {
	var out []byte
	for i, e := range elems {
		if i == len(elems)-1 {
			out = append(out, e...)
			continue
		}
		var lb [2]byte
		binary.BigEndian.PutUint16(lb[:], uint16(len(e)))
		out = append(out, lb[:]...)
		out = append(out, e...)
	}
	return out
}

// Split decomposes a full composite key into exactly nElems elements, the
// first nElems-1 of which are length-prefixed. nElems is the type's
// compile-time KEY_ELEMS count -- required by the caller
// because the wire format alone cannot say how many elements a key has.
func Split(data []byte, nElems int) ([][]byte, error) {
	if nElems <= 0 {
		return nil, grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "nElems must be positive")
	}
	elems := make([][]byte, 0, nElems)
	rest := data
	for i := 0; i < nElems-1; i++ {
		if len(rest) < 2 {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "truncated composite key: missing length prefix")
		}
		n := binary.BigEndian.Uint16(rest[:2])
		rest = rest[2:]
		if len(rest) < int(n) {
			return nil, grugerrors.New(grugerrors.ERR_SERDE, "truncated composite key: short element")
		}
		elems = append(elems, rest[:n])
		rest = rest[n:]
	}
	elems = append(elems, rest)
	return elems, nil
}

// SplitPrefixSuffix splits a full key built from an index-key prefix (the
// first prefixElems elements, length-prefixed) followed by a raw primary-key
// suffix (the remaining bytes, not length-prefixed), i.e. an
// `index_key ++ primary_key` key whose index elements went through Compose.
// storage.MultiIndex does not use this shape: it concatenates its encoded
// keys without length prefixes.
func SplitPrefixSuffix(data []byte, prefixElems int) (prefix [][]byte, suffix []byte, err error) {
	rest := data
	prefix = make([][]byte, 0, prefixElems)
	for i := 0; i < prefixElems; i++ {
		if len(rest) < 2 {
			return nil, nil, grugerrors.New(grugerrors.ERR_SERDE, "truncated composite key: missing length prefix")
		}
		n := binary.BigEndian.Uint16(rest[:2])
		rest = rest[2:]
		if len(rest) < int(n) {
			return nil, nil, grugerrors.New(grugerrors.ERR_SERDE, "truncated composite key: short element")
		}
		prefix = append(prefix, rest[:n])
		rest = rest[n:]
	}
	return prefix, rest, nil
}
