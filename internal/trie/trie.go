// Package trie implements a Merkle-Patricia trie: a radix tree over the
// nibbles of a key whose node hashes compose into a single root hash that
// depends only on the (key, value) contents, never on insertion order.
//
// Only insertion and lookup are implemented — the state store and the
// ephemeral transactions trie never delete entries, so a remove operation
// would be unreachable dead code.
package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"empower1.com/empower1blockchain/internal/cryptoutil"
	"empower1.com/empower1blockchain/internal/storage"
)

const (
	kindLeaf byte = iota
	kindExtension
	kindBranch
)

type branchBody struct {
	Children [16][]byte
	Value    []byte
}

type pathBody struct {
	Path  []byte
	Value []byte
}

// Trie is a Merkle-Patricia trie backed by a KV store. Node hashes are the
// store keys; Root is the hash of the current root node, or nil for an
// empty trie.
type Trie struct {
	db   storage.KV
	Root []byte
}

// New returns an empty trie over db.
func New(db storage.KV) *Trie {
	return &Trie{db: db}
}

// Load resumes a trie whose root hash was previously persisted elsewhere
// (e.g. in a block's StateRoot).
func Load(db storage.KV, root []byte) *Trie {
	return &Trie{db: db, Root: root}
}

// Get returns the value stored at key, or nil if key is absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.get(t.Root, keyToNibbles(key))
}

func (t *Trie) get(hash []byte, nibbles []byte) ([]byte, error) {
	if len(hash) == 0 {
		return nil, nil
	}
	kind, body, err := t.loadNode(hash)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindLeaf:
		path := decompact(body.(pathBody).Path)
		if nibbleEqual(path, nibbles) {
			return body.(pathBody).Value, nil
		}
		return nil, nil
	case kindExtension:
		pb := body.(pathBody)
		path := decompact(pb.Path)
		if len(nibbles) < len(path) || !nibbleEqual(path, nibbles[:len(path)]) {
			return nil, nil
		}
		return t.get(pb.Value, nibbles[len(path):])
	case kindBranch:
		bb := body.(branchBody)
		if len(nibbles) == 0 {
			return bb.Value, nil
		}
		return t.get(bb.Children[nibbles[0]], nibbles[1:])
	}
	return nil, fmt.Errorf("trie: unknown node kind %d", kind)
}

// Put inserts or overwrites key with value and moves Root to the new root
// node.
func (t *Trie) Put(key, value []byte) error {
	newRoot, err := t.put(t.Root, keyToNibbles(key), value)
	if err != nil {
		return err
	}
	t.Root = newRoot
	return nil
}

func (t *Trie) put(hash []byte, nibbles []byte, value []byte) ([]byte, error) {
	if len(hash) == 0 {
		return t.storeLeaf(nibbles, value)
	}
	kind, body, err := t.loadNode(hash)
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindLeaf:
		pb := body.(pathBody)
		existing := decompact(pb.Path)
		return t.splitLeaf(existing, pb.Value, nibbles, value)
	case kindExtension:
		pb := body.(pathBody)
		existing := decompact(pb.Path)
		common := commonPrefixLen(existing, nibbles)
		if common == len(existing) {
			childHash, err := t.put(pb.Value, nibbles[common:], value)
			if err != nil {
				return nil, err
			}
			return t.storeExtension(existing, childHash)
		}
		return t.splitExtension(existing, pb.Value, nibbles, value)
	case kindBranch:
		bb := body.(branchBody)
		if len(nibbles) == 0 {
			bb.Value = value
		} else {
			childHash, err := t.put(bb.Children[nibbles[0]], nibbles[1:], value)
			if err != nil {
				return nil, err
			}
			bb.Children[nibbles[0]] = childHash
		}
		return t.storeBranch(bb)
	}
	return nil, fmt.Errorf("trie: unknown node kind %d", kind)
}

// splitLeaf handles inserting newNibbles/newVal into a trie that currently
// terminates in a leaf at existingPath/existingVal, producing either a
// plain overwrite (exact key match) or the branch the two diverging keys
// require.
func (t *Trie) splitLeaf(existingPath, existingVal, newNibbles, newVal []byte) ([]byte, error) {
	common := commonPrefixLen(existingPath, newNibbles)
	if common == len(existingPath) && common == len(newNibbles) {
		return t.storeLeaf(existingPath, newVal)
	}

	var branch branchBody
	restExisting := existingPath[common:]
	restNew := newNibbles[common:]

	if len(restExisting) == 0 {
		branch.Value = existingVal
	} else {
		h, err := t.storeLeaf(restExisting[1:], existingVal)
		if err != nil {
			return nil, err
		}
		branch.Children[restExisting[0]] = h
	}

	if len(restNew) == 0 {
		branch.Value = newVal
	} else {
		h, err := t.storeLeaf(restNew[1:], newVal)
		if err != nil {
			return nil, err
		}
		branch.Children[restNew[0]] = h
	}

	branchHash, err := t.storeBranch(branch)
	if err != nil {
		return nil, err
	}
	if common == 0 {
		return branchHash, nil
	}
	return t.storeExtension(existingPath[:common], branchHash)
}

// splitExtension handles inserting newNibbles/newVal into a trie whose
// current extension node (path existingPath, pointing at nextHash) diverges
// from newNibbles before existingPath is fully consumed.
func (t *Trie) splitExtension(existingPath, nextHash, newNibbles, newVal []byte) ([]byte, error) {
	common := commonPrefixLen(existingPath, newNibbles)

	var branch branchBody
	restExisting := existingPath[common:]
	restNew := newNibbles[common:]

	if len(restExisting) == 1 {
		branch.Children[restExisting[0]] = nextHash
	} else {
		h, err := t.storeExtension(restExisting[1:], nextHash)
		if err != nil {
			return nil, err
		}
		branch.Children[restExisting[0]] = h
	}

	if len(restNew) == 0 {
		branch.Value = newVal
	} else {
		h, err := t.storeLeaf(restNew[1:], newVal)
		if err != nil {
			return nil, err
		}
		branch.Children[restNew[0]] = h
	}

	branchHash, err := t.storeBranch(branch)
	if err != nil {
		return nil, err
	}
	if common == 0 {
		return branchHash, nil
	}
	return t.storeExtension(existingPath[:common], branchHash)
}

func (t *Trie) storeLeaf(path []byte, value []byte) ([]byte, error) {
	body := pathBody{Path: compact(path, true), Value: value}
	return t.storeNode(kindLeaf, body)
}

func (t *Trie) storeExtension(path []byte, next []byte) ([]byte, error) {
	body := pathBody{Path: compact(path, false), Value: next}
	return t.storeNode(kindExtension, body)
}

func (t *Trie) storeBranch(body branchBody) ([]byte, error) {
	return t.storeNode(kindBranch, body)
}

func (t *Trie) storeNode(kind byte, body interface{}) ([]byte, error) {
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, err
	}
	full := append([]byte{kind}, enc...)
	hash := cryptoutil.Keccak256(full)
	if err := t.db.Put(hash[:], full); err != nil {
		return nil, err
	}
	return hash[:], nil
}

func (t *Trie) loadNode(hash []byte) (byte, interface{}, error) {
	raw, err := t.db.Get(hash)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) == 0 {
		return 0, nil, fmt.Errorf("trie: missing node for hash %x", hash)
	}
	kind := raw[0]
	switch kind {
	case kindBranch:
		var bb branchBody
		if err := rlp.DecodeBytes(raw[1:], &bb); err != nil {
			return 0, nil, err
		}
		return kind, bb, nil
	default:
		var pb pathBody
		if err := rlp.DecodeBytes(raw[1:], &pb); err != nil {
			return 0, nil, err
		}
		return kind, pb, nil
	}
}

// RootHash returns the trie's current root hash, or the zero hash for an
// empty trie.
func (t *Trie) RootHash() [32]byte {
	if len(t.Root) == 0 {
		return [32]byte{}
	}
	var h [32]byte
	copy(h[:], t.Root)
	return h
}

// Walk visits every (key, value) pair reachable from the root, in nibble
// order. It is the basis for account iteration.
func (t *Trie) Walk(fn func(key, value []byte) error) error {
	return t.walk(t.Root, nil, fn)
}

func (t *Trie) walk(hash []byte, prefix []byte, fn func(key, value []byte) error) error {
	if len(hash) == 0 {
		return nil
	}
	kind, body, err := t.loadNode(hash)
	if err != nil {
		return err
	}
	switch kind {
	case kindLeaf:
		pb := body.(pathBody)
		full := append(append([]byte{}, prefix...), decompact(pb.Path)...)
		return fn(nibblesToKey(full), pb.Value)
	case kindExtension:
		pb := body.(pathBody)
		full := append(append([]byte{}, prefix...), decompact(pb.Path)...)
		return t.walk(pb.Value, full, fn)
	case kindBranch:
		bb := body.(branchBody)
		if len(bb.Value) != 0 {
			if err := fn(nibblesToKey(prefix), bb.Value); err != nil {
				return err
			}
		}
		for i, child := range bb.Children {
			if len(child) == 0 {
				continue
			}
			next := append(append([]byte{}, prefix...), byte(i))
			if err := t.walk(child, next, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func keyToNibbles(key []byte) []byte {
	nibbles := make([]byte, len(key)*2)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	return nibbles
}

func nibblesToKey(nibbles []byte) []byte {
	key := make([]byte, len(nibbles)/2)
	for i := range key {
		key[i] = nibbles[i*2]<<4 | nibbles[i*2+1]
	}
	return key
}

func nibbleEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// compact implements hex-prefix encoding: nibble path plus a terminator
// flag packed into a byte slice, one nibble per half-byte with an odd-length
// marker in the high nibble of the first byte.
func compact(nibbles []byte, terminating bool) []byte {
	flag := byte(0)
	if terminating {
		flag = 2
	}
	odd := len(nibbles)%2 == 1
	if odd {
		flag |= 1
	}
	var out []byte
	start := 0
	if odd {
		out = append(out, flag<<4|nibbles[0])
		start = 1
	} else {
		out = append(out, flag<<4)
	}
	for i := start; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

func decompact(enc []byte) []byte {
	if len(enc) == 0 {
		return nil
	}
	first := enc[0]
	flag := first >> 4
	odd := flag&1 == 1
	var nibbles []byte
	if odd {
		nibbles = append(nibbles, first&0x0f)
	}
	for _, b := range enc[1:] {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles
}
