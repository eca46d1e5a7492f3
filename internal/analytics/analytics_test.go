package analytics_test

import (
	"testing"
	"time"

	"github.com/edgard/botscope/internal/analytics"
	"github.com/edgard/botscope/internal/registry"
	"github.com/edgard/botscope/internal/telegram"
)

func TestRecordAccumulates(t *testing.T) {
	t.Parallel()

	agg := analytics.New()
	agg.Record(&telegram.Event{Kind: telegram.KindMessage, Chat: &telegram.Chat{ID: 1}, Unix: 1700000000})
	agg.Record(&telegram.Event{Kind: telegram.KindMessage, Chat: &telegram.Chat{ID: 1}, Unix: 1700000100})
	agg.Record(&telegram.Event{Kind: telegram.KindCallbackQuery, Chat: &telegram.Chat{ID: 2}, Unix: 1700000200})

	snap := agg.Snapshot()
	if snap.Total != 3 {
		t.Errorf("Total = %d, want 3", snap.Total)
	}
	if len(snap.PerKind) != 2 || snap.PerKind[0].Kind != telegram.KindMessage || snap.PerKind[0].Count != 2 {
		t.Errorf("PerKind = %+v, want message ranked first with 2", snap.PerKind)
	}
	if len(snap.PerChat) != 2 || snap.PerChat[0].ChatID != 1 || snap.PerChat[0].Count != 2 {
		t.Errorf("PerChat = %+v, want chat 1 ranked first with 2", snap.PerChat)
	}
}

func TestHourlyBucketsAreUTC(t *testing.T) {
	t.Parallel()

	agg := analytics.New()
	ts := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	agg.Record(&telegram.Event{Kind: telegram.KindMessage, Unix: ts.Unix()})

	snap := agg.Snapshot()
	if snap.Hourly[14] != 1 {
		t.Errorf("Hourly[14] = %d, want 1", snap.Hourly[14])
	}
	for h, n := range snap.Hourly {
		if h != 14 && n != 0 {
			t.Errorf("Hourly[%d] = %d, want 0", h, n)
		}
	}
}

func TestTimestamplessEventsSkipHistogram(t *testing.T) {
	t.Parallel()

	agg := analytics.New()
	agg.Record(&telegram.Event{Kind: telegram.KindPollAnswer})

	snap := agg.Snapshot()
	if snap.Hourly[0] != 0 {
		t.Error("events without timestamps must not land in the midnight bucket")
	}
	if snap.NoTimestamp != 1 {
		t.Errorf("NoTimestamp = %d, want 1", snap.NoTimestamp)
	}
	if snap.Total != 1 {
		t.Errorf("Total = %d, timestampless events still count", snap.Total)
	}
}

func TestSeedCarriesChatTotals(t *testing.T) {
	t.Parallel()

	agg := analytics.New()
	agg.Seed(map[int64]registry.Chat{
		9: {ID: 9, MessageCount: 40},
	})
	agg.Record(&telegram.Event{Kind: telegram.KindMessage, Chat: &telegram.Chat{ID: 9}, Unix: 1700000000})

	snap := agg.Snapshot()
	if snap.PerChat[0].Count != 41 {
		t.Errorf("seeded chat count = %d, want 41", snap.PerChat[0].Count)
	}
	if snap.Total != 1 {
		t.Errorf("Total = %d, seeding must not inflate the session total", snap.Total)
	}
}

func TestDecodeFailuresCountedSeparately(t *testing.T) {
	t.Parallel()

	agg := analytics.New()
	agg.RecordDecodeFailure()
	agg.RecordDecodeFailure()

	snap := agg.Snapshot()
	if snap.DecodeFailures != 2 {
		t.Errorf("DecodeFailures = %d, want 2", snap.DecodeFailures)
	}
	if snap.Total != 0 {
		t.Errorf("Total = %d, failures are not events", snap.Total)
	}
}

func TestPeakHour(t *testing.T) {
	t.Parallel()

	agg := analytics.New()
	base := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	for range 3 {
		agg.Record(&telegram.Event{Kind: telegram.KindMessage, Unix: base.Unix()})
	}
	agg.Record(&telegram.Event{Kind: telegram.KindMessage, Unix: base.Add(2 * time.Hour).Unix()})

	snap := agg.Snapshot()
	hour, count := snap.PeakHour()
	if hour != 8 || count != 3 {
		t.Errorf("PeakHour() = (%d, %d), want (8, 3)", hour, count)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	agg := analytics.New()
	agg.Record(&telegram.Event{Kind: telegram.KindMessage, Chat: &telegram.Chat{ID: 1}, Unix: 1700000000})

	snap := agg.Snapshot()
	snap.PerKind[0].Count = 99
	snap.Hourly[0] = 99

	fresh := agg.Snapshot()
	if fresh.PerKind[0].Count == 99 {
		t.Error("mutating a snapshot must not affect the aggregator")
	}
}
