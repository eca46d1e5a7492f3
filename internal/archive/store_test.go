package archive_test

import (
	"path/filepath"
	"testing"

	"github.com/edgard/botscope/internal/archive"
	"github.com/edgard/botscope/internal/telegram"
)

func newTestStore(t *testing.T) archive.Store {
	t.Helper()

	db, err := archive.NewDB(filepath.Join(t.TempDir(), "archive.db"), nil)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { archive.CloseDB(db, nil) })
	return archive.NewStore(db, nil)
}

func messageEvent(updateID, chatID int64, text string, unix int64) *telegram.Event {
	return &telegram.Event{
		UpdateID: updateID,
		Kind:     telegram.KindMessage,
		Chat:     &telegram.Chat{ID: chatID, Type: "private"},
		From:     &telegram.User{ID: 7, FirstName: "Alice", Username: "alice"},
		Unix:     unix,
		Text:     text,
	}
}

func TestSaveAndLoadHistory(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := t.Context()

	for i, text := range []string{"first", "second", "third"} {
		ev := messageEvent(int64(i+1), 100, text, int64(1700000000+i))
		if err := store.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("SaveEvent() error = %v", err)
		}
	}

	msgs, err := store.RecentByChat(ctx, 100, 2)
	if err != nil {
		t.Fatalf("RecentByChat() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want limit of 2", len(msgs))
	}
	if msgs[0].Content != "third" || msgs[1].Content != "second" {
		t.Errorf("order = %q, %q; want newest first", msgs[0].Content, msgs[1].Content)
	}
	if msgs[0].Username != "alice" {
		t.Errorf("Username = %q, want alice", msgs[0].Username)
	}

	n, err := store.CountByChat(ctx, 100)
	if err != nil {
		t.Fatalf("CountByChat() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountByChat = %d, want 3", n)
	}
}

func TestSaveEventSkipsNonMessages(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := t.Context()

	if err := store.SaveEvent(ctx, &telegram.Event{
		UpdateID: 1,
		Kind:     telegram.KindCallbackQuery,
		Chat:     &telegram.Chat{ID: 200, Type: "private"},
		Unix:     1700000000,
	}); err != nil {
		t.Fatalf("SaveEvent() error = %v", err)
	}
	if err := store.SaveEvent(ctx, &telegram.Event{
		UpdateID: 2,
		Kind:     telegram.KindMessage,
		Unix:     1700000000,
	}); err != nil {
		t.Fatalf("SaveEvent() error = %v", err)
	}

	n, err := store.CountByChat(ctx, 200)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("archived %d rows, want 0 for non-message or chatless events", n)
	}
}

func TestHistoryIsolatedPerChat(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := t.Context()

	if err := store.SaveEvent(ctx, messageEvent(1, 100, "for 100", 1700000000)); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveEvent(ctx, messageEvent(2, 200, "for 200", 1700000001)); err != nil {
		t.Fatal(err)
	}

	msgs, err := store.RecentByChat(ctx, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "for 100" {
		t.Errorf("chat 100 history = %+v, want only its own message", msgs)
	}
}

func TestRunMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.RunMaintenance(t.Context()); err != nil {
		t.Fatalf("RunMaintenance() error = %v", err)
	}
}
