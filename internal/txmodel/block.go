package txmodel

import (
	"github.com/ethereum/go-ethereum/rlp"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	"empower1.com/empower1blockchain/internal/storage"
	"empower1.com/empower1blockchain/internal/trie"
)

// Block is a hash-chained container of signed transactions. Number is the
// block's external, 1-based index: genesis is number 0, and every block
// thereafter satisfies blocks[N].Number == N once stored at index N.
type Block struct {
	Number           uint64
	ParentHash       [32]byte
	TransactionsRoot [32]byte
	StateRoot        [32]byte
	Transactions     []SignedTransaction
	Hash             [32]byte
}

type blockHashBody struct {
	Number           uint64
	ParentHash       [32]byte
	TransactionsRoot [32]byte
	StateRoot        [32]byte
	TxCount          uint64
}

// NewBlock builds and hash-binds a block on top of parent, with txs
// already executed and stateRoot already reflecting their effects.
func NewBlock(number uint64, parentHash [32]byte, txs []SignedTransaction, stateRoot [32]byte) (Block, error) {
	txRoot, err := TransactionsRoot(txs)
	if err != nil {
		return Block{}, err
	}
	b := Block{
		Number:           number,
		ParentHash:       parentHash,
		TransactionsRoot: txRoot,
		StateRoot:        stateRoot,
		Transactions:     txs,
	}
	b.Hash = b.computeHash()
	return b, nil
}

// Genesis is block 0: no parent, no transactions, state root reflects
// whatever accounts the chain materializes at startup.
func Genesis(stateRoot [32]byte) (Block, error) {
	return NewBlock(0, [32]byte{}, nil, stateRoot)
}

func (b Block) computeHash() [32]byte {
	body := blockHashBody{
		Number:           b.Number,
		ParentHash:       b.ParentHash,
		TransactionsRoot: b.TransactionsRoot,
		StateRoot:        b.StateRoot,
		TxCount:          uint64(len(b.Transactions)),
	}
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		panic("txmodel: unreachable encode failure: " + err.Error())
	}
	return cryptoutil.Keccak256(enc)
}

// TransactionsRoot builds an ephemeral in-memory trie keyed by each
// transaction's TransactionHash and returns its root hash. The trie is
// discarded after computing the root — only the root is part of chain
// state.
func TransactionsRoot(txs []SignedTransaction) ([32]byte, error) {
	tr := trie.New(storage.NewMemory())
	for _, tx := range txs {
		raw, err := tx.RawTransaction()
		if err != nil {
			return [32]byte{}, err
		}
		if err := tr.Put(tx.TransactionHash[:], raw); err != nil {
			return [32]byte{}, err
		}
	}
	return tr.RootHash(), nil
}
