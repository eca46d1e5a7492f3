package app

import (
	"sync"
	"time"

	"github.com/edgard/botscope/internal/telegram"
)

// RingEntry is one retained decode result. Seq is a session-wide sequence
// number that never recycles, so views can reference an entry stably even
// after the ring evicts older ones.
type RingEntry struct {
	Seq        int64
	Result     telegram.DecodeResult
	ReceivedAt time.Time
}

// Ring is a fixed-capacity event buffer. When full, the oldest entry is
// evicted. Safe for concurrent use.
type Ring struct {
	mu      sync.RWMutex
	entries []RingEntry
	cap     int
	nextSeq int64
}

// NewRing creates a ring holding at most capacity entries.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{cap: capacity, nextSeq: 1}
}

// Push appends one result and returns its sequence number.
func (r *Ring) Push(res telegram.DecodeResult, at time.Time) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.nextSeq
	r.nextSeq++
	r.entries = append(r.entries, RingEntry{Seq: seq, Result: res, ReceivedAt: at})
	if len(r.entries) > r.cap {
		r.entries = append(r.entries[:0], r.entries[len(r.entries)-r.cap:]...)
	}
	return seq
}

// Entries returns a snapshot, oldest first.
func (r *Ring) Entries() []RingEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]RingEntry(nil), r.entries...)
}

// Get returns the entry with the given sequence number, if still retained.
func (r *Ring) Get(seq int64) (RingEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Seq == seq {
			return r.entries[i], true
		}
	}
	return RingEntry{}, false
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
