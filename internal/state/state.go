// Package state wraps the account trie with the account-level operations
// the execution pipeline needs: balance transfer, nonce advancement, and
// contract deployment.
package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	internalerrors "empower1.com/empower1blockchain/internal/errors"
	"empower1.com/empower1blockchain/internal/storage"
	"empower1.com/empower1blockchain/internal/trie"
	"empower1.com/empower1blockchain/internal/txmodel"
)

// AccountState is the Merkle-Patricia account trie: address -> AccountData.
type AccountState struct {
	trie           *trie.Trie
	initialBalance uint64
}

// New opens an account trie over db, materializing fresh accounts at
// initialBalance.
func New(db storage.KV, initialBalance uint64) *AccountState {
	return &AccountState{trie: trie.New(db), initialBalance: initialBalance}
}

// Load resumes an account trie at a previously-computed root hash.
func Load(db storage.KV, root [32]byte, initialBalance uint64) *AccountState {
	var rootBytes []byte
	if root != ([32]byte{}) {
		rootBytes = root[:]
	}
	return &AccountState{trie: trie.Load(db, rootBytes), initialBalance: initialBalance}
}

// Get returns the account at addr, or ErrAccountNotFound if it has never
// been materialized.
func (s *AccountState) Get(addr txmodel.Address) (txmodel.AccountData, error) {
	raw, err := s.trie.Get(addr.Bytes())
	if err != nil {
		return txmodel.AccountData{}, err
	}
	if len(raw) == 0 {
		return txmodel.AccountData{}, internalerrors.ErrAccountNotFound
	}
	var acc txmodel.AccountData
	if err := rlp.DecodeBytes(raw, &acc); err != nil {
		return txmodel.AccountData{}, err
	}
	return acc, nil
}

// Upsert writes acc at addr unconditionally.
func (s *AccountState) Upsert(addr txmodel.Address, acc txmodel.AccountData) error {
	enc, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return err
	}
	return s.trie.Put(addr.Bytes(), enc)
}

// Ensure materializes addr at the configured initial balance if it does
// not already exist, and returns its current account data either way.
func (s *AccountState) Ensure(addr txmodel.Address) (txmodel.AccountData, error) {
	acc, err := s.Get(addr)
	if err == nil {
		return acc, nil
	}
	if err != internalerrors.ErrAccountNotFound {
		return txmodel.AccountData{}, err
	}
	acc = txmodel.NewAccountData(s.initialBalance)
	if err := s.Upsert(addr, acc); err != nil {
		return txmodel.AccountData{}, err
	}
	return acc, nil
}

// AddBalance credits addr's balance. Saturates rather than overflowing;
// the caller is responsible for any domain-level limit.
func (s *AccountState) AddBalance(addr txmodel.Address, amount uint64) error {
	acc, err := s.Ensure(addr)
	if err != nil {
		return err
	}
	sum := acc.Balance + amount
	if sum < acc.Balance {
		sum = ^uint64(0)
	}
	acc.Balance = sum
	return s.Upsert(addr, acc)
}

// SubBalance debits addr's balance, saturating at zero rather than
// underflowing.
func (s *AccountState) SubBalance(addr txmodel.Address, amount uint64) error {
	acc, err := s.Ensure(addr)
	if err != nil {
		return err
	}
	if amount > acc.Balance {
		acc.Balance = 0
	} else {
		acc.Balance -= amount
	}
	return s.Upsert(addr, acc)
}

// Transfer moves amount from `from` to `to` as a single logical update:
// both the debit and the credit are computed before either is written, so
// a failure partway through never leaves one account's write durable
// without the other's. The original implementation applied these as two
// independent writes with a crash window between them; this closes it.
func (s *AccountState) Transfer(from, to txmodel.Address, amount uint64) error {
	fromAcc, err := s.Ensure(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance < amount {
		return internalerrors.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	toAcc, err := s.Ensure(to)
	if err != nil {
		return err
	}

	fromAcc.Balance -= amount
	toAcc.Balance += amount

	prevRoot := s.trie.Root
	if err := s.Upsert(from, fromAcc); err != nil {
		return err
	}
	if err := s.Upsert(to, toAcc); err != nil {
		s.trie.Root = prevRoot
		return err
	}
	return nil
}

// UpdateNonce advances addr's nonce. submitted must be exactly one more
// than the account's current nonce; any other value is a caller error
// classified upstream as NonceTooLow/NonceTooHigh.
func (s *AccountState) UpdateNonce(addr txmodel.Address, submitted uint64) error {
	acc, err := s.Ensure(addr)
	if err != nil {
		return err
	}
	if submitted != acc.Nonce+1 {
		kind := internalerrors.ErrNonceTooLow
		if submitted > acc.Nonce+1 {
			kind = internalerrors.ErrNonceTooHigh
		}
		return &internalerrors.NonceError{Sentinel: kind, Address: addr.String(), Submitted: submitted, Current: acc.Nonce}
	}
	acc.Nonce = submitted
	return s.Upsert(addr, acc)
}

// DeployContract computes the deterministic deploy address for owner at
// its current nonce (before that nonce is incremented by the outer
// execution step), materializes the new contract account, and stores
// codeHash against it.
func (s *AccountState) DeployContract(owner txmodel.Address, codeHash []byte) (txmodel.Address, error) {
	ownerAcc, err := s.Ensure(owner)
	if err != nil {
		return txmodel.Address{}, err
	}
	addr := ContractAddress(owner, ownerAcc.Nonce)
	acc := txmodel.NewAccountData(s.initialBalance)
	acc.CodeHash = codeHash
	if err := s.Upsert(addr, acc); err != nil {
		return txmodel.Address{}, err
	}
	return addr, nil
}

// ContractAddress is a pure function of the deploying owner's address and
// its nonce at deployment time, matching the original engine's derivation.
// The leading byte of the RLP-encoded (owner, nonce) tuple is stripped
// before hashing, mirroring PublicKeyToAddress's strip of the uncompressed
// public key's leading marker byte.
func ContractAddress(owner txmodel.Address, nonce uint64) txmodel.Address {
	type body struct {
		Owner txmodel.Address
		Nonce uint64
	}
	enc, err := rlp.EncodeToBytes(body{Owner: owner, Nonce: nonce})
	if err != nil {
		panic("state: unreachable encode failure: " + err.Error())
	}
	h := cryptoutil.Keccak256(enc[1:])
	var addr txmodel.Address
	copy(addr[:], h[12:])
	return addr
}

// RootHash returns the account trie's current root hash.
func (s *AccountState) RootHash() [32]byte {
	return s.trie.RootHash()
}

// IterAddresses visits every materialized account address.
func (s *AccountState) IterAddresses(fn func(addr txmodel.Address, acc txmodel.AccountData) error) error {
	return s.trie.Walk(func(key, value []byte) error {
		var addr txmodel.Address
		copy(addr[:], key)
		var acc txmodel.AccountData
		if err := rlp.DecodeBytes(value, &acc); err != nil {
			return err
		}
		return fn(addr, acc)
	})
}
