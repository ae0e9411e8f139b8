// Package types holds the kernel's core data model: blocks,
// transactions, messages, coins, addresses, hashes, contract metadata and
// chain configuration.
package types

import (
	"encoding/hex"
	"strings"

	"github.com/left-curve/grug/crypto"
	grugerrors "github.com/left-curve/grug/errors"
)

// Address is a fixed-length 20-byte opaque identifier.
type Address [20]byte

// GenesisSender is the reserved sentinel address for the genesis block's
// implicit sender.
var GenesisSender = Address{} // all-zero

func (a Address) String() string { return hex.EncodeToString(a[:]) }

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Address) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 20 {
		return grugerrors.New(grugerrors.ERR_PARSE, "invalid address %q", s)
	}
	copy(a[:], b)
	return nil
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) IsZero() bool { return a == Address{} }

// DeriveContractAddress computes addr = H(sender || code_hash || salt)
//.
func DeriveContractAddress(sender Address, codeHash Hash256, salt []byte) Address {
	buf := make([]byte, 0, 20+32+len(salt))
	buf = append(buf, sender[:]...)
	buf = append(buf, codeHash[:]...)
	buf = append(buf, salt...)
	h := crypto.Sha256(buf)
	var addr Address
	copy(addr[:], h[:20])
	return addr
}
