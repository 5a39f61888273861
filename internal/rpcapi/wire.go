// Package rpcapi exposes the node over JSON-RPC: one method per verb the
// original engine supported, registered under the "eth" namespace so the
// go-ethereum rpc package's method-name convention (exported Go method
// Foo -> JSON-RPC method eth_foo) produces exactly the table the node
// promises its clients.
package rpcapi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	internalerrors "empower1.com/empower1blockchain/internal/errors"
	"empower1.com/empower1blockchain/internal/txmodel"
)

// hexUint64 renders a number as a 0x-prefixed hex string, the wire form
// every numeric RPC result uses.
func hexUint64(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}

func hexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func hexHash(h [32]byte) string {
	return hexBytes(h[:])
}

func parseHexUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, 64)
}

func hexBytesDecode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func parseAddress(s string) (txmodel.Address, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 20 {
		return txmodel.Address{}, fmt.Errorf("rpcapi: invalid address %q", s)
	}
	var addr txmodel.Address
	copy(addr[:], b)
	return addr, nil
}

// BlockNumber is the eth_getBlockByNumber parameter: either the literal
// string "latest" or a 0x-prefixed hex block number. Anything else is
// InvalidBlockNumber.
type BlockNumber struct {
	Latest bool
	Number uint64
}

func (b *BlockNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return internalerrors.ErrInvalidBlockNumber
	}
	if s == "latest" {
		*b = BlockNumber{Latest: true}
		return nil
	}
	if !strings.HasPrefix(s, "0x") {
		return internalerrors.ErrInvalidBlockNumber
	}
	n, err := parseHexUint64(s)
	if err != nil {
		return internalerrors.ErrInvalidBlockNumber
	}
	*b = BlockNumber{Number: n}
	return nil
}

// txWire is the camelCase JSON shape transactions and their receipts use
// on the wire.
type txWire struct {
	From            string `json:"from"`
	To              string `json:"to,omitempty"`
	Amount          string `json:"amount"`
	Data            string `json:"data,omitempty"`
	Nonce           string `json:"nonce"`
	Hash            string `json:"hash"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

func signedTxToWire(tx txmodel.SignedTransaction) txWire {
	w := txWire{
		From:            tx.Transaction.From.String(),
		Amount:          hexUint64(tx.Transaction.Amount),
		Nonce:           hexUint64(tx.Transaction.Nonce),
		Hash:            hexHash(tx.Transaction.Hash),
		TransactionHash: hexHash(tx.TransactionHash),
	}
	if tx.Transaction.To != nil {
		w.To = tx.Transaction.To.String()
	}
	if len(tx.Transaction.Data) > 0 {
		w.Data = hexBytes(tx.Transaction.Data)
	}
	return w
}

// receiptWire is the camelCase JSON shape for eth_getTransactionReceipt,
// matching transactions' wire convention rather than blocks'.
type receiptWire struct {
	TransactionHash string `json:"transactionHash"`
	From            string `json:"from"`
	To              string `json:"to,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
	BlockHash       string `json:"blockHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          bool   `json:"status"`
}

func receiptToWire(r txmodel.TransactionReceipt) receiptWire {
	w := receiptWire{
		TransactionHash: hexHash(r.TransactionHash),
		From:            r.From.String(),
		BlockHash:       hexHash(r.BlockHash),
		BlockNumber:     hexUint64(r.BlockNumber),
		Status:          r.Status,
	}
	if r.To != nil {
		w.To = r.To.String()
	}
	if r.ContractAddress != nil {
		w.ContractAddress = r.ContractAddress.String()
	}
	return w
}

// blockWire is the snake_case JSON shape blocks use on the wire — a
// deliberate asymmetry with transactions' camelCase fields, carried over
// from the original engine's wire format.
type blockWire struct {
	Number            string   `json:"number"`
	ParentHash        string   `json:"parent_hash"`
	TransactionsRoot  string   `json:"transactions_root"`
	StateRoot         string   `json:"state_root"`
	Hash              string   `json:"hash"`
	Transactions      []txWire `json:"transactions"`
}

func blockToWire(b txmodel.Block) blockWire {
	txs := make([]txWire, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = signedTxToWire(tx)
	}
	return blockWire{
		Number:           hexUint64(b.Number),
		ParentHash:       hexHash(b.ParentHash),
		TransactionsRoot: hexHash(b.TransactionsRoot),
		StateRoot:        hexHash(b.StateRoot),
		Hash:             hexHash(b.Hash),
		Transactions:     txs,
	}
}

// transactionRequestWire is the camelCase JSON shape eth_sendTransaction
// accepts.
type transactionRequestWire struct {
	From   string `json:"from"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount,omitempty"`
	Data   string `json:"data,omitempty"`
}

func (w transactionRequestWire) toRequest() (txmodel.TransactionRequest, error) {
	from, err := parseAddress(w.From)
	if err != nil {
		return txmodel.TransactionRequest{}, err
	}
	req := txmodel.TransactionRequest{From: from}
	if w.To != "" {
		to, err := parseAddress(w.To)
		if err != nil {
			return txmodel.TransactionRequest{}, err
		}
		req.To = &to
	}
	if w.Amount != "" {
		amount, err := parseHexUint64(w.Amount)
		if err != nil {
			return txmodel.TransactionRequest{}, err
		}
		req.Amount = amount
	}
	if w.Data != "" {
		data, err := hex.DecodeString(strings.TrimPrefix(w.Data, "0x"))
		if err != nil {
			return txmodel.TransactionRequest{}, err
		}
		req.Data = data
	}
	return req, nil
}
