package registry_test

import (
	"testing"

	"github.com/edgard/botscope/internal/registry"
	"github.com/edgard/botscope/internal/telegram"
)

func TestKindFromID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		id   int64
		want string
	}{
		{name: "positive is private", id: 123456, want: "private"},
		{name: "minus100 prefix is supergroup", id: -1001234567890, want: "supergroup"},
		{name: "plain negative is group", id: -987654, want: "group"},
		{name: "minus100 exact", id: -100, want: "supergroup"},
		{name: "minus10 is group", id: -10, want: "group"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := registry.KindFromID(tc.id); got != tc.want {
				t.Errorf("KindFromID(%d) = %q, want %q", tc.id, got, tc.want)
			}
		})
	}
}

func TestObserveCreatesAndUpdates(t *testing.T) {
	t.Parallel()

	reg := registry.New()

	reg.Observe(&telegram.Event{
		UpdateID: 1,
		Kind:     telegram.KindMessage,
		Chat:     &telegram.Chat{ID: -1001, Type: "supergroup", Title: "Ops"},
		Unix:     1000,
	})
	reg.Observe(&telegram.Event{
		UpdateID: 2,
		Kind:     telegram.KindMessage,
		Chat:     &telegram.Chat{ID: -1001, Type: "supergroup", Title: "Ops Renamed"},
		Unix:     2000,
	})

	chat, ok := reg.Get(-1001)
	if !ok {
		t.Fatal("chat not tracked after observe")
	}
	if chat.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", chat.MessageCount)
	}
	if chat.Title != "Ops Renamed" {
		t.Errorf("Title = %q, renames must propagate", chat.Title)
	}
	if chat.FirstSeenUnix != 1000 {
		t.Errorf("FirstSeenUnix = %d, want the first sighting kept", chat.FirstSeenUnix)
	}
	if chat.LastSeenUnix != 2000 {
		t.Errorf("LastSeenUnix = %d, want 2000", chat.LastSeenUnix)
	}
}

func TestObserveIgnoresChatlessEvents(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Observe(&telegram.Event{UpdateID: 1, Kind: telegram.KindPollAnswer})

	if reg.Len() != 0 {
		t.Errorf("Len() = %d, chatless events must not create records", reg.Len())
	}
}

func TestObserveInfersKindFromID(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Observe(&telegram.Event{
		UpdateID: 1,
		Kind:     telegram.KindMessageReaction,
		Chat:     &telegram.Chat{ID: -1005550001},
		Unix:     100,
	})

	chat, _ := reg.Get(-1005550001)
	if chat.Kind != "supergroup" {
		t.Errorf("Kind = %q, want id-derived supergroup", chat.Kind)
	}

	// A later event with the wire type must not be overridden back.
	reg.Observe(&telegram.Event{
		UpdateID: 2,
		Kind:     telegram.KindMessage,
		Chat:     &telegram.Chat{ID: -1005550001, Type: "channel"},
		Unix:     200,
	})
	chat, _ = reg.Get(-1005550001)
	if chat.Kind != "channel" {
		t.Errorf("Kind = %q, wire type must win once present", chat.Kind)
	}
}

func TestObserveTracksForumTopics(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	for i, thread := range []int64{5, 5, 9} {
		reg.Observe(&telegram.Event{
			UpdateID: int64(i + 1),
			Kind:     telegram.KindMessage,
			Chat:     &telegram.Chat{ID: -1002, Type: "supergroup"},
			ThreadID: thread,
			Unix:     int64(100 + i),
		})
	}

	chat, _ := reg.Get(-1002)
	if chat.Topics[5].Count != 2 || chat.Topics[9].Count != 1 {
		t.Errorf("Topics = %v, want counts per thread", chat.Topics)
	}
	if chat.Topics[5].LastSeenUnix != 101 {
		t.Errorf("Topics[5].LastSeenUnix = %d, want 101", chat.Topics[5].LastSeenUnix)
	}
	if chat.Topics[9].LastSeenUnix != 102 {
		t.Errorf("Topics[9].LastSeenUnix = %d, want 102", chat.Topics[9].LastSeenUnix)
	}
}

func TestChatsSortedByRecency(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Observe(&telegram.Event{UpdateID: 1, Chat: &telegram.Chat{ID: 10, Type: "private"}, Unix: 100})
	reg.Observe(&telegram.Event{UpdateID: 2, Chat: &telegram.Chat{ID: 20, Type: "private"}, Unix: 300})
	reg.Observe(&telegram.Event{UpdateID: 3, Chat: &telegram.Chat{ID: 30, Type: "private"}, Unix: 200})

	chats := reg.Chats()
	if len(chats) != 3 {
		t.Fatalf("len = %d, want 3", len(chats))
	}
	if chats[0].ID != 20 || chats[1].ID != 30 || chats[2].ID != 10 {
		t.Errorf("order = %d,%d,%d; want most recent first", chats[0].ID, chats[1].ID, chats[2].ID)
	}
}

func TestSeedAndExportRoundTrip(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Seed(map[int64]registry.Chat{
		7: {ID: 7, Kind: "private", FirstName: "Alice", MessageCount: 12, LastSeenUnix: 500},
	})

	reg.Observe(&telegram.Event{UpdateID: 1, Chat: &telegram.Chat{ID: 7, Type: "private", FirstName: "Alice"}, Unix: 600})

	exported := reg.Export()
	chat := exported[7]
	if chat.MessageCount != 13 {
		t.Errorf("MessageCount = %d, want seeded count plus one", chat.MessageCount)
	}
	if chat.LastSeenUnix != 600 {
		t.Errorf("LastSeenUnix = %d, want 600", chat.LastSeenUnix)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Observe(&telegram.Event{UpdateID: 1, Chat: &telegram.Chat{ID: 1, Type: "supergroup"}, ThreadID: 3, Unix: 100})

	snap := reg.Chats()
	snap[0].Title = "mutated"
	snap[0].Topics[3] = registry.Topic{Count: 99}

	chat, _ := reg.Get(1)
	if chat.Title == "mutated" || chat.Topics[3].Count == 99 {
		t.Error("mutating a snapshot must not affect the registry")
	}
}
