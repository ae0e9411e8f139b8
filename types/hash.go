package types

import (
	"encoding/hex"
	"strings"

	"github.com/left-curve/grug/crypto"
	grugerrors "github.com/left-curve/grug/errors"
)

// Hash256 is a 32-byte content hash (SHA-256 by default, Keccak-256 for
// cross-chain compatibility where specified).
type Hash256 = crypto.Hash256

func HashBytes(data []byte) Hash256 { return crypto.Sha256(data) }

func ParseHash256(s string) (Hash256, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return Hash256{}, grugerrors.New(grugerrors.ERR_PARSE, "invalid hash %q", s)
	}
	var h Hash256
	copy(h[:], b)
	return h, nil
}

func HashString(h Hash256) string { return hex.EncodeToString(h[:]) }
