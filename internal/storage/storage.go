// Package storage provides the byte-addressable key/value backend the
// account trie persists into.
package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
)

// KV is the minimal contract the trie needs from a persistent store.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Flush() error
	Close() error
}

// LevelDB persists trie nodes and account records under a single
// goleveldb database directory.
type LevelDB struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a goleveldb database at path.
func Open(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return val, err
}

func (l *LevelDB) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

// Delete removes key from the database. The account trie never removes a
// node once inserted, so the trie itself never calls it.
func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

// Flush is a no-op: goleveldb's write path is already durable per-Put.
func (l *LevelDB) Flush() error { return nil }

func (l *LevelDB) Close() error { return l.db.Close() }

// Memory is an in-process KV used by the ephemeral transactions-root trie
// and by tests that don't want a filesystem dependency.
type Memory struct {
	data map[string][]byte
}

// NewMemory returns an empty in-memory KV store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	return m.data[string(key)], nil
}

func (m *Memory) Put(key, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *Memory) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *Memory) Flush() error { return nil }

func (m *Memory) Close() error { return nil }
