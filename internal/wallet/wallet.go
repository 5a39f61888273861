// Package wallet contains the core logic for EmPower1 accounts managed
// locally by the node: building a TransactionRequest into a signed,
// hash-bound transaction using a held private key. It is the thin seam
// between the RPC boundary's eth_sendTransaction and the txmodel signing
// primitives.
package wallet

import (
	"crypto/ecdsa"
	"sync"

	internalerrors "empower1.com/empower1blockchain/internal/errors"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	"empower1.com/empower1blockchain/internal/txmodel"
)

// BuildAndSign turns a request into a signed transaction at the given
// nonce, using priv to sign. The caller (the RPC service's
// eth_sendTransaction) is responsible for sourcing nonce from current
// account state.
func BuildAndSign(req txmodel.TransactionRequest, nonce uint64, priv *ecdsa.PrivateKey) (txmodel.SignedTransaction, error) {
	tx := txmodel.NewFromRequest(req, nonce)
	return txmodel.Sign(tx, priv)
}

// AccountManager holds the private keys of accounts the node signs on
// behalf of for eth_sendTransaction, keyed by address. It is purely
// in-memory: accounts added via eth_addAccount do not survive a restart,
// unlike the node's own persisted keystore identity.
type AccountManager struct {
	mu   sync.Mutex
	keys map[cryptoutil.Address]*ecdsa.PrivateKey
}

// NewAccountManager returns an empty account manager.
func NewAccountManager() *AccountManager {
	return &AccountManager{keys: make(map[cryptoutil.Address]*ecdsa.PrivateKey)}
}

// Add generates a fresh keypair, stores it, and returns its address.
func (m *AccountManager) Add() (cryptoutil.Address, error) {
	priv, err := cryptoutil.GenerateKeypair()
	if err != nil {
		return cryptoutil.Address{}, err
	}
	addr := AddressFor(priv)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[addr] = priv
	return addr, nil
}

// Register stores an already-generated keypair under its derived address
// — used to seed the account manager with the node's own keystore
// identity at startup, so eth_accounts reflects it without duplicating it.
func (m *AccountManager) Register(priv *ecdsa.PrivateKey) cryptoutil.Address {
	addr := AddressFor(priv)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[addr] = priv
	return addr
}

// Accounts lists every managed address.
func (m *AccountManager) Accounts() []cryptoutil.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]cryptoutil.Address, 0, len(m.keys))
	for addr := range m.keys {
		out = append(out, addr)
	}
	return out
}

// Get returns the private key managed for addr.
func (m *AccountManager) Get(addr cryptoutil.Address) (*ecdsa.PrivateKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	priv, ok := m.keys[addr]
	if !ok {
		return nil, internalerrors.ErrAccountNotFound
	}
	return priv, nil
}

// AddressFor derives the address a private key signs on behalf of.
func AddressFor(priv *ecdsa.PrivateKey) cryptoutil.Address {
	return cryptoutil.PrivateKeyToAddress(priv)
}
