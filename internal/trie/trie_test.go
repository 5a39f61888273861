package trie

import (
	"bytes"
	"testing"

	"empower1.com/empower1blockchain/internal/storage"
)

func TestPutGetRoundTrip(t *testing.T) {
	tr := New(storage.NewMemory())

	entries := map[string]string{
		"alice": "100",
		"bob":   "250",
		"carol": "7",
	}
	for k, v := range entries {
		if err := tr.Put([]byte(k), []byte(v)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}

	for k, want := range entries {
		got, err := tr.Get([]byte(k))
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", k, err)
		}
		if string(got) != want {
			t.Fatalf("Get(%s): expected %s, got %s", k, want, got)
		}
	}

	if v, err := tr.Get([]byte("dave")); err != nil || v != nil {
		t.Fatalf("expected nil for an absent key, got %v, %v", v, err)
	}
}

func TestOverwriteReplacesValue(t *testing.T) {
	tr := New(storage.NewMemory())
	if err := tr.Put([]byte("key"), []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Put([]byte("key"), []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, err := tr.Get([]byte("key"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Fatalf("expected overwritten value v2, got %s", got)
	}
}

func TestRootHashIndependentOfInsertionOrder(t *testing.T) {
	keys := []string{"aaaa", "aabb", "abcd", "zzzz", "ab"}
	values := map[string]string{
		"aaaa": "1",
		"aabb": "2",
		"abcd": "3",
		"zzzz": "4",
		"ab":   "5",
	}

	trA := New(storage.NewMemory())
	for _, k := range keys {
		if err := trA.Put([]byte(k), []byte(values[k])); err != nil {
			t.Fatal(err)
		}
	}

	reversed := make([]string, len(keys))
	for i, k := range keys {
		reversed[len(keys)-1-i] = k
	}
	trB := New(storage.NewMemory())
	for _, k := range reversed {
		if err := trB.Put([]byte(k), []byte(values[k])); err != nil {
			t.Fatal(err)
		}
	}

	if trA.RootHash() != trB.RootHash() {
		t.Fatalf("expected root hash to be independent of insertion order")
	}
}

func TestWalkVisitsEveryEntry(t *testing.T) {
	tr := New(storage.NewMemory())
	entries := map[string]string{
		"aaaa": "1",
		"aabb": "2",
		"abcd": "3",
		"zzzz": "4",
	}
	for k, v := range entries {
		if err := tr.Put([]byte(k), []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	seen := make(map[string]string)
	err := tr.Walk(func(key, value []byte) error {
		seen[string(key)] = string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(seen) != len(entries) {
		t.Fatalf("expected %d entries, walked %d", len(entries), len(seen))
	}
	for k, v := range entries {
		if seen[k] != v {
			t.Fatalf("expected Walk to report %s=%s, got %s", k, v, seen[k])
		}
	}
}

func TestEmptyTrieRootHashIsZero(t *testing.T) {
	tr := New(storage.NewMemory())
	if tr.RootHash() != ([32]byte{}) {
		t.Fatalf("expected zero root hash for an empty trie")
	}
}

func TestLoadResumesExistingRoot(t *testing.T) {
	db := storage.NewMemory()
	tr := New(db)
	if err := tr.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	root := tr.Root

	resumed := Load(db, root)
	got, err := resumed.Get([]byte("key"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("value")) {
		t.Fatalf("expected resumed trie to see existing data, got %s", got)
	}
}
