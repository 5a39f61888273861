package mempool

import (
	"sync"

	"empower1.com/empower1blockchain/internal/txmodel"
)

// Mempool is a FIFO queue of signed transactions awaiting inclusion. Order
// matters: the pipeline must execute transactions in the order they were
// submitted so that nonce gaps are detected (and requeued) in a stable,
// predictable sequence rather than whatever order a map happened to yield.
type Mempool struct {
	mu    sync.Mutex
	queue []txmodel.SignedTransaction
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Push appends tx to the tail of the queue.
func (m *Mempool) Push(tx txmodel.SignedTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, tx)
}

// DrainAll atomically removes and returns every queued transaction, in
// FIFO order. The pipeline calls this once per tick so that transactions
// submitted mid-tick wait for the next one rather than racing the current
// drain.
func (m *Mempool) DrainAll() []txmodel.SignedTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	drained := m.queue
	m.queue = nil
	return drained
}

// Requeue pushes txs back onto the tail of the queue, preserving their
// relative order. Used for transactions the pipeline rejected with
// NonceTooHigh: they may become valid once an earlier gap-filling
// transaction lands in a later tick.
func (m *Mempool) Requeue(txs ...txmodel.SignedTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, txs...)
}

// Count returns the number of transactions currently queued.
func (m *Mempool) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
