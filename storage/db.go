package storage

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	ethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store.
// This allows the ledger to use any database backend (in-memory or persistent)
// while sharing a single trie database for state nodes.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	// NewBatch groups writes that must reach disk together.
	NewBatch() ethdb.Batch
	TrieDB() *triedb.Database
	Close() // A way to gracefully shut down the database connection.
}

type kvDatabase struct {
	disk ethdb.Database

	once   sync.Once
	trieDB *triedb.Database
}

func (db *kvDatabase) Put(key []byte, value []byte) error {
	return db.disk.Put(key, value)
}

func (db *kvDatabase) Get(key []byte) ([]byte, error) {
	ok, err := db.disk.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return db.disk.Get(key)
}

func (db *kvDatabase) Has(key []byte) (bool, error) {
	return db.disk.Has(key)
}

func (db *kvDatabase) Delete(key []byte) error {
	return db.disk.Delete(key)
}

func (db *kvDatabase) NewBatch() ethdb.Batch {
	return db.disk.NewBatch()
}

// TrieDB lazily constructs the hash-scheme trie database shared by every trie
// opened on this store.
func (db *kvDatabase) TrieDB() *triedb.Database {
	db.once.Do(func() {
		db.trieDB = triedb.NewDatabase(db.disk, nil)
	})
	return db.trieDB
}

func (db *kvDatabase) Close() {
	if db.trieDB != nil {
		_ = db.trieDB.Close()
	}
	_ = db.disk.Close()
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	kvDatabase
}

func NewMemDB() *MemDB {
	return &MemDB{kvDatabase: kvDatabase{disk: rawdb.NewMemoryDatabase()}}
}

// --- Persistent DB ---

const (
	levelDBCacheMB   = 16
	levelDBHandles   = 64
	levelDBNamespace = "foodcourt/db/"
)

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	kvDatabase
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	kv, err := ethleveldb.NewCustom(path, levelDBNamespace, func(options *opt.Options) {
		options.BlockCacheCapacity = levelDBCacheMB / 2 * opt.MiB
		options.WriteBuffer = levelDBCacheMB / 4 * opt.MiB
		options.OpenFilesCacheCapacity = levelDBHandles
	})
	if err != nil {
		return nil, err
	}
	return &LevelDB{kvDatabase: kvDatabase{disk: rawdb.NewDatabase(kv)}}, nil
}
