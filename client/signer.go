// Package client implements the typed query/broadcast client: a thin
// wrapper over the consensus adapter's gRPC service, a pluggable Signer
// abstraction, and gas simulation via the /simulate query path.
package client

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/left-curve/grug/types"
)

// Signer produces the credential blob a transaction's sender contract
// interprets during authenticate ("credential blob (opaque to
// the kernel)"). The client package ships one concrete implementation,
// Secp256k1Signer, since that's the scheme the representative safe
// account uses; other schemes plug in by implementing this interface.
type Signer interface {
	Address() types.Address
	Sign(signDoc []byte) ([]byte, error)
}

// Secp256k1Signer signs a transaction's canonical sign-doc with a raw
// secp256k1 private key, producing a 64-byte compact (r||s) signature
// (the Secp256k1Verify counterpart).
type Secp256k1Signer struct {
	priv *secp256k1.PrivateKey
	addr types.Address
}

// NewSecp256k1Signer builds a signer from a raw private key and the
// sender address it signs for; the address is taken as given, not derived
// from the key.
func NewSecp256k1Signer(privKeyBytes []byte, addr types.Address) *Secp256k1Signer {
	priv := secp256k1.PrivKeyFromBytes(privKeyBytes)
	return &Secp256k1Signer{priv: priv, addr: addr}
}

func (s *Secp256k1Signer) Address() types.Address { return s.addr }

func (s *Secp256k1Signer) PublicKey() []byte {
	return s.priv.PubKey().SerializeCompressed()
}

// Sign hashes signDoc with SHA-256 and produces a 64-byte compact
// signature matching crypto.Secp256k1Verify's expected encoding.
func (s *Secp256k1Signer) Sign(signDoc []byte) ([]byte, error) {
	hash := sha256.Sum256(signDoc)
	sig := dcrecdsa.Sign(s.priv, hash[:])
	r := sig.R()
	sv := sig.S()

	out := make([]byte, 64)
	rBytes := r.Bytes()
	svBytes := sv.Bytes()
	copy(out[0:32], rBytes[:])
	copy(out[32:64], svBytes[:])
	return out, nil
}
