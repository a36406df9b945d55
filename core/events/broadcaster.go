package events

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"foodcourt/core/types"
)

const defaultHistoryLimit = 2048

// Record is a committed event as delivered to stream subscribers.
type Record struct {
	Sequence uint64
	Cursor   string
	Height   uint64
	Index    uint32
	TxHash   [32]byte
	Event    types.Event
}

func cloneRecord(rec Record) Record {
	cloned := rec
	cloned.Event = rec.Event.Clone()
	return cloned
}

// Broadcaster fans committed events out to subscribers and keeps a bounded
// history so late subscribers can resume from a cursor.
type Broadcaster struct {
	mu      sync.Mutex
	limit   int
	seq     uint64
	nextID  uint64
	subs    map[uint64]chan Record
	history []Record
}

// NewBroadcaster returns a broadcaster retaining up to limit records. A
// non-positive limit selects the default.
func NewBroadcaster(limit int) *Broadcaster {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &Broadcaster{limit: limit, subs: make(map[uint64]chan Record)}
}

// Publish assigns a sequence number to every event and delivers them to the
// current subscribers. Slow subscribers miss records rather than block the
// ledger. Sends happen under the lock so a concurrent cancel never closes a
// channel mid-send.
func (b *Broadcaster) Publish(height uint64, txHash [32]byte, evs []types.Event) []Record {
	if b == nil || len(evs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	published := make([]Record, 0, len(evs))
	for i, ev := range evs {
		b.seq++
		rec := Record{
			Sequence: b.seq,
			Cursor:   strconv.FormatUint(b.seq, 10),
			Height:   height,
			Index:    uint32(i),
			TxHash:   txHash,
			Event:    ev.Clone(),
		}
		b.history = append(b.history, rec)
		published = append(published, rec)
	}
	if len(b.history) > b.limit {
		excess := len(b.history) - b.limit
		trimmed := make([]Record, b.limit)
		copy(trimmed, b.history[excess:])
		b.history = trimmed
	}

	for _, rec := range published {
		for _, ch := range b.subs {
			select {
			case ch <- cloneRecord(rec):
			default:
			}
		}
	}
	return published
}

// Subscribe registers a subscriber for records after the supplied cursor. The
// returned backlog holds retained records newer than the cursor; cancel
// releases the subscription and closes the channel. Cancelling ctx has the
// same effect.
func (b *Broadcaster) Subscribe(ctx context.Context, cursor string) (<-chan Record, func(), []Record) {
	updates := make(chan Record, 32)

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		if parsed, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
			since = parsed
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = updates
	backlog := make([]Record, 0, len(b.history))
	for _, entry := range b.history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneRecord(entry))
		}
	}
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-done:
			}
		}()
	}

	return updates, cancel, backlog
}

// Subscribers reports the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
