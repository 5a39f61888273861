// Package keystore loads or generates the node's secp256k1 signing
// identity and persists it under a fixed directory, mirroring the
// original node's lazy-initialized key pair.
package keystore

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	internalerrors "empower1.com/empower1blockchain/internal/errors"
)

const (
	dirMode  = 0o700
	fileMode = 0o600

	privateKeyFile = "private.key"
	publicKeyFile  = "public.key"
)

// Keys is the node's signing identity: its keypair and derived address.
type Keys struct {
	Private *ecdsa.PrivateKey
	Public  *ecdsa.PublicKey
	Address cryptoutil.Address
}

// Load opens dir and reads the key pair stored there, generating a fresh
// pair on first run. A missing key file after the directory has been
// created (or already existed) is treated as a fatal startup error —
// there is no recovery path for a half-written keystore.
func Load(dir string) (*Keys, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return nil, fmt.Errorf("keystore: create directory %s: %w", dir, err)
		}
		if err := generate(dir); err != nil {
			return nil, fmt.Errorf("keystore: generate keys: %w", err)
		}
	}

	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	privRaw, err := os.ReadFile(privPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerrors.ErrKeyFileMissing, privPath, err)
	}
	pubRaw, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerrors.ErrKeyFileMissing, pubPath, err)
	}

	priv, err := crypto.ToECDSA(privRaw)
	if err != nil {
		return nil, fmt.Errorf("keystore: parse private key: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(pubRaw)
	if err != nil {
		return nil, fmt.Errorf("keystore: parse public key: %w", err)
	}

	return &Keys{
		Private: priv,
		Public:  pub,
		Address: cryptoutil.PublicKeyToAddress(pub),
	}, nil
}

// generate creates a fresh keypair and writes it to dir in the raw
// (private) and uncompressed-point (public) formats the original keystore
// uses.
func generate(dir string) error {
	priv, err := cryptoutil.GenerateKeypair()
	if err != nil {
		return err
	}

	privBytes := crypto.FromECDSA(priv)
	pubBytes := crypto.FromECDSAPub(&priv.PublicKey)

	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), privBytes, fileMode); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, publicKeyFile), pubBytes, fileMode)
}
