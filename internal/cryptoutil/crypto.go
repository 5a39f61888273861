// Package cryptoutil wraps the secp256k1/Keccak-256 primitives used to
// derive addresses and sign and verify transactions.
package cryptoutil

import (
	"crypto/ecdsa"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"

	internalerrors "empower1.com/empower1blockchain/internal/errors"
)

// Address is a 20-byte account identifier, the last 20 bytes of the
// Keccak-256 hash of an uncompressed public key.
type Address [20]byte

func (a Address) Bytes() []byte { return a[:] }

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Signature is a recoverable ECDSA signature over secp256k1: r and s are
// 32 bytes each, v is the recovery id in {0, 1}.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// Compact packs the signature into the 65-byte [R || S || V] form used for
// wire transport and for hashing in SignedTransaction.TransactionHash.
func (sig Signature) Compact() [65]byte {
	var out [65]byte
	copy(out[0:32], sig.R[:])
	copy(out[32:64], sig.S[:])
	out[64] = sig.V
	return out
}

// SignatureFromCompact is the inverse of Compact.
func SignatureFromCompact(b [65]byte) (Signature, error) {
	if b[64] > 1 {
		return Signature{}, internalerrors.ErrInvalidRecoveryID
	}
	var sig Signature
	copy(sig.R[:], b[0:32])
	copy(sig.S[:], b[32:64])
	sig.V = b[64]
	return sig, nil
}

// Keccak256 hashes data with Keccak-256 (not SHA3-256 — Ethereum's variant
// predates the NIST SHA3 padding change).
func Keccak256(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(data...))
	return out
}

// GenerateKeypair returns a fresh secp256k1 keypair.
func GenerateKeypair() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// PublicKeyToAddress derives the account address from an uncompressed
// public key: Keccak256 of the 64 coordinate bytes (the leading 0x04
// marker byte is dropped first), last 20 bytes.
func PublicKeyToAddress(pub *ecdsa.PublicKey) Address {
	full := crypto.FromECDSAPub(pub)
	h := crypto.Keccak256(full[1:])
	var addr Address
	copy(addr[:], h[12:])
	return addr
}

// PrivateKeyToAddress is a convenience wrapper over PublicKeyToAddress.
func PrivateKeyToAddress(priv *ecdsa.PrivateKey) Address {
	return PublicKeyToAddress(&priv.PublicKey)
}

// SignRecoverable signs Keccak256(msg) and returns a recoverable signature.
func SignRecoverable(msg []byte, priv *ecdsa.PrivateKey) (Signature, error) {
	digest := crypto.Keccak256(msg)
	sig, err := crypto.Sign(digest, priv)
	if err != nil {
		return Signature{}, internalerrors.ErrSignatureFailed
	}
	var out Signature
	copy(out.R[:], sig[0:32])
	copy(out.S[:], sig[32:64])
	out.V = sig[64]
	return out, nil
}

// RecoverPublicKey recovers the signer's public key from msg and sig.
func RecoverPublicKey(msg []byte, sig Signature) (*ecdsa.PublicKey, error) {
	digest := crypto.Keccak256(msg)
	compact := sig.Compact()
	pub, err := crypto.SigToPub(digest, compact[:])
	if err != nil {
		return nil, internalerrors.ErrRecoveryFailed
	}
	return pub, nil
}

// RecoverAddress recovers the signer's address from msg and sig.
func RecoverAddress(msg []byte, sig Signature) (Address, error) {
	pub, err := RecoverPublicKey(msg, sig)
	if err != nil {
		return Address{}, err
	}
	return PublicKeyToAddress(pub), nil
}

// Verify checks that sig is a valid signature over Keccak256(msg) by pub.
func Verify(msg []byte, sig Signature, pub *ecdsa.PublicKey) bool {
	digest := crypto.Keccak256(msg)
	compact := sig.Compact()
	sigNoRecovery := compact[:64]
	pubBytes := crypto.FromECDSAPub(pub)
	return crypto.VerifySignature(pubBytes, digest, sigNoRecovery)
}
