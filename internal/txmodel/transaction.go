// Package txmodel holds the wire and hashing model for transactions and
// blocks: construction, classification, signing, and verification.
package txmodel

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/rlp"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	internalerrors "empower1.com/empower1blockchain/internal/errors"
)

// Address is re-exported from cryptoutil so callers don't need to import
// both packages for the common case.
type Address = cryptoutil.Address

// Kind classifies a transaction by the shape of its (from, to, data)
// tuple — it never depends on chain state.
type Kind int

const (
	KindInvalid Kind = iota
	KindRegularTransfer
	KindContractDeployment
	KindContractExecution
)

// Transaction is the unsigned transaction body. Hash binds the content of
// every other field, including Nonce — it must be recomputed any time the
// nonce changes, which is why SetNonce exists instead of a bare field
// assignment.
type Transaction struct {
	From   Address
	To     *Address
	Amount uint64 // transfer value; ignored by deployment/execution kinds
	Data   []byte
	Nonce  uint64
	Hash   [32]byte
}

type txHashBody struct {
	From   Address
	To     []byte
	Amount uint64
	Data   []byte
	Nonce  uint64
}

// NewTransaction constructs a transaction and binds its hash.
func NewTransaction(from Address, to *Address, data []byte, nonce uint64) Transaction {
	tx := Transaction{From: from, To: to, Data: data, Nonce: nonce}
	tx.Hash = tx.computeHash()
	return tx
}

// NewTransfer constructs a regular-transfer transaction carrying amount.
func NewTransfer(from Address, to Address, amount uint64, nonce uint64) Transaction {
	tx := Transaction{From: from, To: &to, Amount: amount, Nonce: nonce}
	tx.Hash = tx.computeHash()
	return tx
}

// NewFromRequest constructs a transaction from an RPC-submitted request at
// the given nonce, carrying whichever of To/Amount/Data the request set.
func NewFromRequest(req TransactionRequest, nonce uint64) Transaction {
	tx := Transaction{From: req.From, To: req.To, Amount: req.Amount, Data: req.Data, Nonce: nonce}
	tx.Hash = tx.computeHash()
	return tx
}

// SetNonce updates the nonce and rebinds the hash, since Hash commits to
// Nonce along with every other field.
func (t *Transaction) SetNonce(nonce uint64) {
	t.Nonce = nonce
	t.Hash = t.computeHash()
}

func (t Transaction) computeHash() [32]byte {
	body := txHashBody{From: t.From, Amount: t.Amount, Data: t.Data, Nonce: t.Nonce}
	if t.To != nil {
		body.To = t.To.Bytes()
	}
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		panic("txmodel: unreachable encode failure: " + err.Error())
	}
	return cryptoutil.Keccak256(enc)
}

// Kind classifies the transaction by the shape of (to, data): a nil `to`
// with data present is a contract deployment, a present `to` with data is
// a contract call, a present `to` with no data is a plain transfer, and a
// nil `to` with no data has no valid interpretation.
func (t Transaction) Kind() Kind {
	switch {
	case t.To != nil && len(t.Data) == 0:
		return KindRegularTransfer
	case t.To == nil && len(t.Data) > 0:
		return KindContractDeployment
	case t.To != nil && len(t.Data) > 0:
		return KindContractExecution
	default:
		return KindInvalid
	}
}

// Signature is re-exported from cryptoutil for the same reason as Address.
type Signature = cryptoutil.Signature

// SignedTransaction is a Transaction plus the signature over its Hash.
// TransactionHash (distinct from Transaction.Hash) is the hash of the
// compact signature bytes — it identifies this particular signed envelope,
// not the transaction's content, so re-signing the same transaction
// produces a different TransactionHash even though Transaction.Hash is
// unchanged.
type SignedTransaction struct {
	Transaction     Transaction
	Signature       Signature
	TransactionHash [32]byte
}

// Sign signs tx.Hash with priv and binds the resulting envelope's
// TransactionHash to the compact signature bytes.
func Sign(tx Transaction, priv *ecdsa.PrivateKey) (SignedTransaction, error) {
	sig, err := cryptoutil.SignRecoverable(tx.Hash[:], priv)
	if err != nil {
		return SignedTransaction{}, err
	}
	compact := sig.Compact()
	return SignedTransaction{
		Transaction:     tx,
		Signature:       sig,
		TransactionHash: cryptoutil.Keccak256(compact[:]),
	}, nil
}

// Verify checks that the signed transaction's signature recovers to its
// From address. It first recomputes Hash from the transaction's current
// field values and rejects any envelope whose carried Hash no longer
// matches its body — without this, a decoded transaction that had a field
// (Amount, Data, Nonce, To, ...) tampered with after signing but kept its
// original Hash would still recover correctly, since the signature was
// taken over the (now stale) Hash rather than the live body.
func (s SignedTransaction) Verify() (bool, error) {
	if s.Transaction.computeHash() != s.Transaction.Hash {
		return false, nil
	}
	recovered, err := cryptoutil.RecoverAddress(s.Transaction.Hash[:], s.Signature)
	if err != nil {
		return false, internalerrors.ErrRecoveryFailed
	}
	return recovered == s.Transaction.From, nil
}

type signedTxWire struct {
	From   Address
	To     []byte
	Amount uint64
	Data   []byte
	Nonce  uint64
	Hash   [32]byte
	Sig    [65]byte
}

// RawTransaction RLP-encodes the full signed envelope (including the
// nonce) for wire transport and for eth_sendRawTransaction.
func (s SignedTransaction) RawTransaction() ([]byte, error) {
	w := signedTxWire{
		From:   s.Transaction.From,
		Amount: s.Transaction.Amount,
		Data:   s.Transaction.Data,
		Nonce:  s.Transaction.Nonce,
		Hash:   s.Transaction.Hash,
		Sig:    s.Signature.Compact(),
	}
	if s.Transaction.To != nil {
		w.To = s.Transaction.To.Bytes()
	}
	return rlp.EncodeToBytes(w)
}

// DecodeRawTransaction is the inverse of RawTransaction.
func DecodeRawTransaction(raw []byte) (SignedTransaction, error) {
	var w signedTxWire
	if err := rlp.DecodeBytes(raw, &w); err != nil {
		return SignedTransaction{}, internalerrors.ErrDecodeTransaction
	}
	tx := Transaction{From: w.From, Amount: w.Amount, Data: w.Data, Nonce: w.Nonce, Hash: w.Hash}
	if len(w.To) > 0 {
		var to Address
		copy(to[:], w.To)
		tx.To = &to
	}
	sig, err := cryptoutil.SignatureFromCompact(w.Sig)
	if err != nil {
		return SignedTransaction{}, err
	}
	compact := sig.Compact()
	return SignedTransaction{
		Transaction:     tx,
		Signature:       sig,
		TransactionHash: cryptoutil.Keccak256(compact[:]),
	}, nil
}

// TransactionRequest is the unsigned shape an eth_sendTransaction caller
// submits; the node assigns the nonce from chain state before signing.
type TransactionRequest struct {
	From   Address
	To     *Address
	Amount uint64
	Data   []byte
}

// Log is an event record shape carried over from the original
// implementation's transaction model. Nothing in this sandbox currently
// emits logs (the VM is side-effect only, per its stateless-call
// contract), so Logs on a receipt is always empty — the type exists so a
// future log-emitting execution path has a wire-compatible home to land
// in without a receipt shape change.
type Log struct {
	Address          Address
	BlockHash        [32]byte
	BlockNumber      uint64
	Data             []byte
	LogIndex         uint64
	Topics           [][32]byte
	TransactionHash  [32]byte
	TransactionIndex uint64
}

// TransactionReceipt records the outcome of executing a transaction.
type TransactionReceipt struct {
	TransactionHash [32]byte
	From            Address
	To              *Address
	ContractAddress *Address
	BlockHash       [32]byte
	BlockNumber     uint64
	Status          bool
	Logs            []Log
}
