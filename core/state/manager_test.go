package state

import (
	"testing"

	"foodcourt/storage"
	"foodcourt/storage/trie"
)

type kvRecord struct {
	Name  string
	Value uint64
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.NewTrie(db, nil)
	if err != nil {
		t.Fatalf("create trie: %v", err)
	}
	return NewManager(tr)
}

func TestManagerKVRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	key := []byte("test/record")

	var out kvRecord
	ok, err := manager.KVGet(key, &out)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ok {
		t.Fatalf("expected missing record")
	}

	if err := manager.KVPut(key, &kvRecord{Name: "alpha", Value: 9}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err = manager.KVGet(key, &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.Name != "alpha" || out.Value != 9 {
		t.Fatalf("unexpected record %+v", out)
	}

	if err := manager.KVDelete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = manager.KVGet(key, nil)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatalf("expected record to be removed")
	}
}

func TestManagerRejectsEmptyKeys(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.KVPut(nil, uint64(1)); err == nil {
		t.Fatalf("expected error for empty put key")
	}
	if _, err := manager.KVGet(nil, nil); err == nil {
		t.Fatalf("expected error for empty get key")
	}
	if err := manager.KVDelete(nil); err == nil {
		t.Fatalf("expected error for empty delete key")
	}
}

func TestManagerRevertRestoresCommittedState(t *testing.T) {
	manager := newTestManager(t)
	key := []byte("test/counter")
	if err := manager.KVPut(key, uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	root, err := manager.Commit(1)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := manager.KVPut(key, uint64(2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := manager.Revert(); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if manager.PendingRoot() != root {
		t.Fatalf("expected pending root to match committed root")
	}
	var got uint64
	if _, err := manager.KVGet(key, &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected reverted value 1, got %d", got)
	}
}

func TestHeightEncoding(t *testing.T) {
	if DecodeHeight(EncodeHeight(12345)) != 12345 {
		t.Fatalf("height round trip failed")
	}
	if DecodeHeight([]byte{1, 2}) != 0 {
		t.Fatalf("malformed height should decode to zero")
	}
}
