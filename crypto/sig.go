package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	grugerrors "github.com/left-curve/grug/errors"
)

// VerificationError is the small closed set of host-returned crypto error
// codes.
type VerificationError int

const (
	ErrIncorrectLength VerificationError = iota
	ErrUnauthentic
	ErrInvalidRecoveryID
)

func (e VerificationError) Error() string {
	switch e {
	case ErrIncorrectLength:
		return "incorrect length"
	case ErrUnauthentic:
		return "unauthentic"
	case ErrInvalidRecoveryID:
		return "invalid recovery id"
	default:
		return "unknown verification error"
	}
}

// Secp256k1Verify verifies a compact (r||s, 64-byte) signature over a
// pre-hashed message with an uncompressed or compressed public key, using
// decred's secp256k1, the usual pure-Go implementation.
func Secp256k1Verify(hash, sig, pubKeyBytes []byte) error {
	if len(hash) != 32 || len(sig) != 64 {
		return ErrIncorrectLength
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return ErrUnauthentic
	}

	r := new(secp256k1.ModNScalar)
	r.SetByteSlice(sig[:32])
	s := new(secp256k1.ModNScalar)
	s.SetByteSlice(sig[32:])
	signature := dcrecdsa.NewSignature(r, s)

	if !signature.Verify(hash, pubKey) {
		return ErrUnauthentic
	}
	return nil
}

// Secp256k1Recover recovers the compressed public key from a 64-byte r||s
// signature and its recovery id (0-3), passed as a separate argument.
func Secp256k1Recover(hash, sig []byte, recoveryID byte) ([]byte, error) {
	if len(hash) != 32 || len(sig) != 64 {
		return nil, ErrIncorrectLength
	}
	if recoveryID > 3 {
		return nil, ErrInvalidRecoveryID
	}

	compact := make([]byte, 65)
	compact[0] = recoveryID + 27 + 4 // compact-sig header byte (compressed)
	copy(compact[1:], sig)

	pubKey, _, err := dcrecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, ErrUnauthentic
	}
	return pubKey.SerializeCompressed(), nil
}

// Secp256r1Verify verifies an ASN.1-free (r||s, 64-byte) signature over a
// pre-hashed message on the NIST P-256 curve. Go's standard library is the
// natural home for a NIST curve; crypto/ecdsa already provides everything
// the check needs.
func Secp256r1Verify(hash, sig, pubKeyBytes []byte) error {
	if len(hash) != 32 || len(sig) != 64 {
		return ErrIncorrectLength
	}

	curve := elliptic.P256()
	x, y := elliptic.Unmarshal(curve, pubKeyBytes)
	if x == nil {
		return ErrUnauthentic
	}
	pubKey := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])

	if !ecdsa.Verify(pubKey, hash, r, s) {
		return ErrUnauthentic
	}
	return nil
}

// Ed25519Verify verifies a 64-byte signature with a 32-byte public key.
func Ed25519Verify(msg, sig, pubKey []byte) error {
	if len(sig) != ed25519.SignatureSize || len(pubKey) != ed25519.PublicKeySize {
		return ErrIncorrectLength
	}
	if !ed25519.Verify(pubKey, msg, sig) {
		return ErrUnauthentic
	}
	return nil
}

// Ed25519BatchVerify verifies matched slices of pre-hashed messages,
// signatures, and public keys, failing atomically if any single pair is
// invalid. Go's ed25519 package has no dedicated batch primitive, so this
// checks each pair individually -- functionally equivalent (same atomicity
// guarantee), at the cost of the constant-factor speedup a true batch
// scheme provides.
func Ed25519BatchVerify(msgs, sigs, pubKeys [][]byte) error {
	if len(msgs) != len(sigs) || len(sigs) != len(pubKeys) {
		return grugerrors.New(grugerrors.ERR_INVALID_ARGUMENT, "batch verify: mismatched slice lengths")
	}
	for i := range msgs {
		if err := Ed25519Verify(msgs[i], sigs[i], pubKeys[i]); err != nil {
			return err
		}
	}
	return nil
}
