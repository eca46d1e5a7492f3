// Package analytics aggregates running totals over the event stream:
// per-kind and per-chat counters plus an hourly activity histogram. All
// figures reset with the process except per-chat counts, which are seeded
// from the persisted chat table.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/edgard/botscope/internal/registry"
	"github.com/edgard/botscope/internal/telegram"
)

// Aggregator accumulates event statistics. Safe for concurrent use.
type Aggregator struct {
	mu             sync.RWMutex
	total          int64
	decodeFailures int64
	noTimestamp    int64
	perKind        map[telegram.Kind]int64
	perChat        map[int64]int64
	hourly         [24]int64
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		perKind: make(map[telegram.Kind]int64),
		perChat: make(map[int64]int64),
	}
}

// Seed restores per-chat totals from chats loaded out of the cache so the
// per-chat ranking reflects all-time activity, not just this session.
func (a *Aggregator) Seed(chats map[int64]registry.Chat) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, c := range chats {
		a.perChat[id] = c.MessageCount
	}
}

// Record counts one decoded event. Timestamps bucket into UTC hours; an
// event without a timestamp increments a separate counter rather than
// polluting the midnight bucket.
func (a *Aggregator) Record(ev *telegram.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.perKind[ev.Kind]++
	if ev.Chat != nil && ev.Chat.ID != 0 {
		a.perChat[ev.Chat.ID]++
	}
	if ev.Unix > 0 {
		a.hourly[time.Unix(ev.Unix, 0).UTC().Hour()]++
	} else {
		a.noTimestamp++
	}
}

// RecordDecodeFailure counts one record that could not be decoded.
func (a *Aggregator) RecordDecodeFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.decodeFailures++
}

// KindCount is one row of the per-kind ranking.
type KindCount struct {
	Kind  telegram.Kind
	Count int64
}

// ChatCount is one row of the per-chat ranking.
type ChatCount struct {
	ChatID int64
	Count  int64
}

// Snapshot is an immutable view of the aggregator at one instant. Rankings
// are sorted by count descending, ties broken for a stable order.
type Snapshot struct {
	Total          int64
	DecodeFailures int64
	NoTimestamp    int64
	PerKind        []KindCount
	PerChat        []ChatCount
	Hourly         [24]int64
}

// PeakHour returns the busiest UTC hour and its count. With no timestamped
// events it returns (0, 0).
func (s *Snapshot) PeakHour() (int, int64) {
	peak, max := 0, int64(0)
	for h, n := range s.Hourly {
		if n > max {
			peak, max = h, n
		}
	}
	return peak, max
}

// Snapshot captures the current totals.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{
		Total:          a.total,
		DecodeFailures: a.decodeFailures,
		NoTimestamp:    a.noTimestamp,
		Hourly:         a.hourly,
		PerKind:        make([]KindCount, 0, len(a.perKind)),
		PerChat:        make([]ChatCount, 0, len(a.perChat)),
	}
	for kind, n := range a.perKind {
		snap.PerKind = append(snap.PerKind, KindCount{Kind: kind, Count: n})
	}
	for id, n := range a.perChat {
		snap.PerChat = append(snap.PerChat, ChatCount{ChatID: id, Count: n})
	}
	sort.Slice(snap.PerKind, func(i, j int) bool {
		if snap.PerKind[i].Count != snap.PerKind[j].Count {
			return snap.PerKind[i].Count > snap.PerKind[j].Count
		}
		return snap.PerKind[i].Kind < snap.PerKind[j].Kind
	})
	sort.Slice(snap.PerChat, func(i, j int) bool {
		if snap.PerChat[i].Count != snap.PerChat[j].Count {
			return snap.PerChat[i].Count > snap.PerChat[j].Count
		}
		return snap.PerChat[i].ChatID < snap.PerChat[j].ChatID
	})
	return snap
}
