// Package blockchain ties the account trie, mempool, and WASM sandbox
// together into the node's single orchestrator: it accepts signed
// transactions, ticks a block-building pipeline over them, and answers
// the read queries the JSON-RPC boundary needs.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	internalerrors "empower1.com/empower1blockchain/internal/errors"
	"empower1.com/empower1blockchain/internal/keystore"
	"empower1.com/empower1blockchain/internal/mempool"
	"empower1.com/empower1blockchain/internal/state"
	"empower1.com/empower1blockchain/internal/storage"
	"empower1.com/empower1blockchain/internal/txmodel"
	"empower1.com/empower1blockchain/internal/vm"
)

var codeKeyPrefix = []byte("code:")

// transactionStorage holds receipts behind its own mutex. BlockChain's own
// mutex must always be acquired first — callers never take txs's lock and
// then reach back for bc.mu — so a thread holding both can never deadlock
// against one acquiring them in the opposite order.
type transactionStorage struct {
	mu       sync.Mutex
	receipts map[[32]byte]txmodel.TransactionReceipt
}

func newTransactionStorage() *transactionStorage {
	return &transactionStorage{receipts: make(map[[32]byte]txmodel.TransactionReceipt)}
}

func (ts *transactionStorage) put(r txmodel.TransactionReceipt) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.receipts[r.TransactionHash] = r
}

func (ts *transactionStorage) get(hash [32]byte) (txmodel.TransactionReceipt, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	r, ok := ts.receipts[hash]
	return r, ok
}

// BlockChain is the node's in-memory chain state plus the on-disk account
// trie backing it. mu guards the trie and block history.
type BlockChain struct {
	mu       sync.Mutex
	db       storage.KV
	accounts *state.AccountState
	blocks   []txmodel.Block
	mempool  *mempool.Mempool
	txs      *transactionStorage
	Keys     *keystore.Keys
}

// New opens a chain over db with a fresh, empty account trie and a genesis
// block carrying that trie's (zero) state root. Accounts from an earlier
// run stored in db are not resumed.
func New(db storage.KV, keys *keystore.Keys, initialBalance uint64) (*BlockChain, error) {
	accounts := state.New(db, initialBalance)
	genesis, err := txmodel.Genesis(accounts.RootHash())
	if err != nil {
		return nil, fmt.Errorf("blockchain: build genesis block: %w", err)
	}
	return &BlockChain{
		db:       db,
		accounts: accounts,
		blocks:   []txmodel.Block{genesis},
		mempool:  mempool.New(),
		txs:      newTransactionStorage(),
		Keys:     keys,
	}, nil
}

// CurrentBlock returns the chain tip.
func (bc *BlockChain) CurrentBlock() txmodel.Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.blocks[len(bc.blocks)-1]
}

// BlockByNumber looks up a block by its external number. Numbering is
// 1-based from genesis's perspective only in the sense that genesis is
// block 0 and every later block's Number equals its position in the
// chain, so lookup is a direct index.
func (bc *BlockChain) BlockByNumber(n uint64) (txmodel.Block, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if n >= uint64(len(bc.blocks)) {
		return txmodel.Block{}, internalerrors.ErrBlockNotFound
	}
	return bc.blocks[n], nil
}

// GetBalance returns addr's balance, or 0 for an account that has never
// been materialized.
func (bc *BlockChain) GetBalance(addr txmodel.Address) (uint64, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	acc, err := bc.accounts.Get(addr)
	if errors.Is(err, internalerrors.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// GetNonce returns addr's current nonce, or 0 if it has never been
// materialized.
func (bc *BlockChain) GetNonce(addr txmodel.Address) (uint64, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	acc, err := bc.accounts.Get(addr)
	if errors.Is(err, internalerrors.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// GetCodeHash returns addr's deployed code hash, or nil for a non-contract
// or non-existent account.
func (bc *BlockChain) GetCodeHash(addr txmodel.Address) ([]byte, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	acc, err := bc.accounts.Get(addr)
	if errors.Is(err, internalerrors.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acc.CodeHash, nil
}

// GetCode returns addr's deployed bytecode, or nil if none is deployed.
func (bc *BlockChain) GetCode(addr txmodel.Address) ([]byte, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.db.Get(codeKey(addr))
}

// SendTransaction verifies the envelope's signature against its sender
// and, if valid, queues it for the next pipeline tick.
func (bc *BlockChain) SendTransaction(tx txmodel.SignedTransaction) error {
	ok, err := tx.Verify()
	if err != nil {
		return err
	}
	if !ok {
		return internalerrors.ErrInvalidSignature
	}
	bc.mempool.Push(tx)
	return nil
}

// GetTransactionReceipt looks up a previously sealed receipt.
func (bc *BlockChain) GetTransactionReceipt(hash [32]byte) (txmodel.TransactionReceipt, error) {
	r, ok := bc.txs.get(hash)
	if !ok {
		return txmodel.TransactionReceipt{}, internalerrors.ErrTransactionNotFound
	}
	return r, nil
}

// RunPipeline runs the block-building tick loop until ctx is canceled.
func (bc *BlockChain) RunPipeline(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := bc.tick(ctx); err != nil {
				log.Printf("pipeline: tick failed: %v", err)
			}
		}
	}
}

// tick drains the mempool, executes every transaction in order, triages
// failures (NonceTooHigh requeues for a later tick, everything else is
// dropped and logged), and — if anything was included — seals a new
// block and stamps its receipts. A tick with nothing to include is a
// silent no-op, not an error.
func (bc *BlockChain) tick(ctx context.Context) error {
	drained := bc.mempool.DrainAll()
	if len(drained) == 0 {
		return nil
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	var requeue []txmodel.SignedTransaction
	var included []txmodel.SignedTransaction
	var receipts []txmodel.TransactionReceipt

	tip := bc.blocks[len(bc.blocks)-1]

	for _, tx := range drained {
		receipt, err := bc.processTransaction(ctx, tx)
		if err != nil {
			var nonceErr *internalerrors.NonceError
			if errors.As(err, &nonceErr) && errors.Is(nonceErr.Sentinel, internalerrors.ErrNonceTooHigh) {
				requeue = append(requeue, tx)
				continue
			}
			log.Printf("pipeline: dropping transaction %x: %v", tx.TransactionHash, err)
			continue
		}
		included = append(included, tx)
		receipts = append(receipts, receipt)
	}

	if len(requeue) > 0 {
		bc.mempool.Requeue(requeue...)
	}
	if len(included) == 0 {
		return nil
	}

	newRoot := bc.accounts.RootHash()
	block, err := txmodel.NewBlock(tip.Number+1, tip.Hash, included, newRoot)
	if err != nil {
		return fmt.Errorf("pipeline: seal block: %w", err)
	}
	bc.blocks = append(bc.blocks, block)

	for i := range receipts {
		receipts[i].BlockHash = block.Hash
		receipts[i].BlockNumber = block.Number
		bc.txs.put(receipts[i])
	}

	log.Printf("pipeline: sealed block %d with %d transaction(s)", block.Number, len(included))
	return nil
}

// processTransaction is the execution state machine: classify, ensure the
// recipient exists, dispatch to transfer/deploy/call, advance the
// sender's nonce, and build a receipt. Must run with bc.mu held.
func (bc *BlockChain) processTransaction(ctx context.Context, tx txmodel.SignedTransaction) (txmodel.TransactionReceipt, error) {
	inner := tx.Transaction
	receipt := txmodel.TransactionReceipt{
		TransactionHash: tx.TransactionHash,
		From:            inner.From,
		To:              inner.To,
	}

	switch inner.Kind() {
	case txmodel.KindInvalid:
		return txmodel.TransactionReceipt{}, internalerrors.ErrInvalidTransaction

	case txmodel.KindRegularTransfer:
		if _, err := bc.accounts.Ensure(*inner.To); err != nil {
			return txmodel.TransactionReceipt{}, err
		}
		if err := bc.accounts.Transfer(inner.From, *inner.To, inner.Amount); err != nil {
			return txmodel.TransactionReceipt{}, err
		}

	case txmodel.KindContractExecution:
		if _, err := bc.accounts.Ensure(*inner.To); err != nil {
			return txmodel.TransactionReceipt{}, err
		}
		if err := bc.callContract(ctx, *inner.To, inner.Data); err != nil {
			return txmodel.TransactionReceipt{}, err
		}

	case txmodel.KindContractDeployment:
		codeHash := cryptoutil.Keccak256(inner.Data)
		addr, err := bc.accounts.DeployContract(inner.From, codeHash[:])
		if err != nil {
			return txmodel.TransactionReceipt{}, err
		}
		if err := bc.db.Put(codeKey(addr), inner.Data); err != nil {
			return txmodel.TransactionReceipt{}, err
		}
		receipt.ContractAddress = &addr
	}

	if err := bc.accounts.UpdateNonce(inner.From, inner.Nonce); err != nil {
		return txmodel.TransactionReceipt{}, err
	}

	receipt.Status = true
	return receipt, nil
}

// callContract decodes a contract-execution transaction's Data into a
// function name and typed params, loads the deployed bytecode at addr,
// and invokes it in a fresh sandbox.
func (bc *BlockChain) callContract(ctx context.Context, addr txmodel.Address, data []byte) error {
	function, chunks, err := vm.DecodeCall(data)
	if err != nil {
		return err
	}
	params, err := vm.ParseParams(chunks)
	if err != nil {
		return err
	}
	acc, err := bc.accounts.Get(addr)
	if err != nil && !errors.Is(err, internalerrors.ErrAccountNotFound) {
		return err
	}
	if len(acc.CodeHash) == 0 {
		return &internalerrors.RuntimeError{Sentinel: internalerrors.ErrNotAContractAccount, Address: addr.String()}
	}
	code, err := bc.db.Get(codeKey(addr))
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return &internalerrors.RuntimeError{Sentinel: internalerrors.ErrCallFunction, Address: addr.String(), Msg: "no code at address"}
	}
	if _, err := vm.CallFunction(ctx, code, function, params); err != nil {
		return &internalerrors.RuntimeError{Sentinel: internalerrors.ErrCallFunction, Address: addr.String(), Msg: err.Error()}
	}
	return nil
}

func codeKey(addr txmodel.Address) []byte {
	return append(append([]byte{}, codeKeyPrefix...), addr.Bytes()...)
}
