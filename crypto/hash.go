// Package crypto implements the digests and signature schemes the VM
// sandbox exposes to contracts as host functions. Hash algorithms lean on
// golang.org/x/crypto for every scheme it covers; BLAKE3 has no
// golang.org/x/crypto implementation, so github.com/zeebo/blake3 -- the de
// facto standard pure-Go implementation -- covers it.
package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// Hash256 is a 32-byte content hash.
type Hash256 [32]byte

func (h Hash256) Bytes() []byte { return h[:] }

func (h Hash256) String() string { return hex.EncodeToString(h[:]) }

func (h Hash256) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

func (h *Hash256) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return &hexDecodeError{s}
	}
	copy(h[:], b)
	return nil
}

type hexDecodeError struct{ s string }

func (e *hexDecodeError) Error() string { return "invalid hash256 hex: " + e.s }

// Sha256 is the default content-addressing digest.
func Sha256(data []byte) Hash256 { return sha256.Sum256(data) }

// Sha512 returns the full 64-byte SHA-512 digest.
func Sha512(data []byte) [64]byte { return sha512.Sum512(data) }

// Sha512Truncated256 truncates SHA-512 to its first 32 bytes (not the
// SHA-512/256 variant, which uses different initial values).
func Sha512Truncated256(data []byte) Hash256 {
	full := sha512.Sum512(data)
	var out Hash256
	copy(out[:], full[:32])
	return out
}

// Sha3_256 returns the 32-byte SHA3-256 digest.
func Sha3_256(data []byte) Hash256 { return sha3.Sum256(data) }

// Sha3_512 returns the full 64-byte SHA3-512 digest.
func Sha3_512(data []byte) [64]byte { return sha3.Sum512(data) }

// Sha3_512Truncated256 truncates SHA3-512 to its first 32 bytes, matching
// the truncated form some cross-chain payloads require.
func Sha3_512Truncated256(data []byte) Hash256 {
	full := sha3.Sum512(data)
	var out Hash256
	copy(out[:], full[:32])
	return out
}

// Keccak256 is used for cross-chain (EVM) compatibility where specified.
func Keccak256(data []byte) Hash256 {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out Hash256
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2s256 returns the 32-byte BLAKE2s digest.
func Blake2s256(data []byte) Hash256 {
	out := blake2s.Sum256(data)
	return out
}

// Blake2b512 returns the full 64-byte BLAKE2b digest.
func Blake2b512(data []byte) [64]byte { return blake2b.Sum512(data) }

// Blake3 returns the 32-byte BLAKE3 digest.
func Blake3(data []byte) Hash256 {
	return blake3.Sum256(data)
}
