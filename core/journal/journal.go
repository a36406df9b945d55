package journal

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"foodcourt/core/types"
)

var bucketEvents = []byte("events")

const maxListLimit = 1000

// ErrClosed is returned when the journal is used after Close.
var ErrClosed = errors.New("journal: closed")

// Entry is a committed event as stored in the journal.
type Entry struct {
	Height     uint64            `json:"height"`
	Index      uint32            `json:"index"`
	TxHash     string            `json:"txHash"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Journal persists committed events in a bbolt database keyed by height and
// position within the transaction.
type Journal struct {
	db *bolt.DB
}

// Open creates or opens the journal file at path.
func Open(path string, options *bolt.Options) (*Journal, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying Bolt database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func entryKey(height uint64, index uint32) []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint64(key[:8], height)
	binary.BigEndian.PutUint32(key[8:], index)
	return key
}

// Append stores the events committed at height. Appending the same height
// twice overwrites the earlier entries at matching indexes.
func (j *Journal) Append(height uint64, txHash [32]byte, evs []types.Event) error {
	if j == nil || j.db == nil {
		return ErrClosed
	}
	if len(evs) == 0 {
		return nil
	}
	hash := "0x" + hex.EncodeToString(txHash[:])
	return j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		for i, ev := range evs {
			entry := Entry{
				Height:     height,
				Index:      uint32(i),
				TxHash:     hash,
				Type:       ev.Type,
				Attributes: ev.Clone().Attributes,
			}
			encoded, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := bucket.Put(entryKey(height, uint32(i)), encoded); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns up to limit entries at or above fromHeight in commit order. An
// empty typeFilter matches every event type.
func (j *Journal) List(fromHeight uint64, limit int, typeFilter string) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	filter := strings.TrimSpace(typeFilter)
	entries := make([]Entry, 0)
	err := j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketEvents).Cursor()
		for k, v := cursor.Seek(entryKey(fromHeight, 0)); k != nil; k, v = cursor.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			if filter != "" && entry.Type != filter {
				continue
			}
			entries = append(entries, entry)
			if len(entries) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
