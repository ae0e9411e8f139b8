package keys

import (
	"encoding/binary"

	grugerrors "github.com/left-curve/grug/errors"
	"github.com/left-curve/grug/storage"
	"github.com/left-curve/grug/types"
)

// Uint64Codec encodes a uint64 key as 8 big-endian bytes, so ascending
// key-byte order matches ascending numeric order -- the property every
// counter-keyed map (order ids, proposal ids) in this kernel relies on.
func Uint64Codec() storage.KeyCodec[uint64] {
	return storage.KeyCodec[uint64]{
		Encode: func(v uint64) []byte {
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], v)
			return b[:]
		},
		Decode: func(raw []byte) (uint64, error) {
			if len(raw) != 8 {
				return 0, grugerrors.New(grugerrors.ERR_SERDE, "uint64 key: want 8 bytes, got %d", len(raw))
			}
			return binary.BigEndian.Uint64(raw), nil
		},
	}
}

// AddressCodec encodes types.Address as its raw 20 bytes.
func AddressCodec() storage.KeyCodec[types.Address] {
	return storage.KeyCodec[types.Address]{
		Encode: func(a types.Address) []byte { return a.Bytes() },
		Decode: func(raw []byte) (types.Address, error) {
			var a types.Address
			if len(raw) != 20 {
				return a, grugerrors.New(grugerrors.ERR_SERDE, "address key: want 20 bytes, got %d", len(raw))
			}
			copy(a[:], raw)
			return a, nil
		},
	}
}

// Hash256Codec encodes types.Hash256 as its raw 32 bytes.
func Hash256Codec() storage.KeyCodec[types.Hash256] {
	return storage.KeyCodec[types.Hash256]{
		Encode: func(h types.Hash256) []byte { return h[:] },
		Decode: func(raw []byte) (types.Hash256, error) {
			var h types.Hash256
			if len(raw) != 32 {
				return h, grugerrors.New(grugerrors.ERR_SERDE, "hash key: want 32 bytes, got %d", len(raw))
			}
			copy(h[:], raw)
			return h, nil
		},
	}
}

// StringCodec encodes a string key as its raw UTF-8 bytes (e.g. denoms,
// usernames), used as the final (non-length-prefixed) element of a
// composite key or as a standalone map key.
func StringCodec() storage.KeyCodec[string] {
	return storage.KeyCodec[string]{
		Encode: func(s string) []byte { return []byte(s) },
		Decode: func(raw []byte) (string, error) { return string(raw), nil },
	}
}
