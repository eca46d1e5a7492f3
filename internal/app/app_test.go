package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/edgard/botscope/internal/analytics"
	"github.com/edgard/botscope/internal/app"
	"github.com/edgard/botscope/internal/archive"
	"github.com/edgard/botscope/internal/cache"
	"github.com/edgard/botscope/internal/config"
	"github.com/edgard/botscope/internal/registry"
	"github.com/edgard/botscope/internal/telegram"
)

type fakeStore struct {
	mu     sync.Mutex
	saved  []telegram.Event
	byChat map[int64][]archive.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{byChat: make(map[int64][]archive.Message)}
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) SaveEvent(ctx context.Context, ev *telegram.Event) error {
	if ev == nil || !ev.IsMessage() || ev.Chat == nil || ev.Chat.ID == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *ev)
	f.byChat[ev.Chat.ID] = append(f.byChat[ev.Chat.ID], archive.Message{
		UpdateID: ev.UpdateID,
		ChatID:   ev.Chat.ID,
		Content:  ev.Text,
	})
	return nil
}

func (f *fakeStore) RecentByChat(ctx context.Context, chatID int64, limit int) ([]archive.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]archive.Message(nil), f.byChat[chatID]...), nil
}

func (f *fakeStore) CountByChat(ctx context.Context, chatID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byChat[chatID])), nil
}

func (f *fakeStore) RunMaintenance(ctx context.Context) error { return nil }

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeSender struct {
	lastChat int64
	lastText string
	err      error
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, threadID int64) (*telegram.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastChat = chatID
	f.lastText = text
	return &telegram.Message{MessageID: 1, Chat: telegram.Chat{ID: chatID}, Text: text}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Telegram: config.TelegramConfig{
			BaseURL:     config.DefaultBaseURL,
			PollTimeout: config.DefaultPollTimeout,
			SendTimeout: config.DefaultSendTimeout,
			BackoffBase: config.DefaultBackoffBase,
			BackoffMax:  config.DefaultBackoffMax,
		},
		Cache: config.CacheConfig{
			Path:          filepath.Join(t.TempDir(), "state.json"),
			FlushInterval: config.DefaultFlushInterval,
		},
		Archive: config.ArchiveConfig{
			Path:                filepath.Join(t.TempDir(), "archive.db"),
			MaintenanceInterval: config.DefaultMaintenanceInterval,
			HistoryLimit:        config.DefaultHistoryLimit,
		},
		Monitor: config.MonitorConfig{RingSize: 8, MonitorSize: 4},
		Log:     config.LogConfig{Level: "info", Format: "text", File: "test.log"},
	}
}

func newTestApp(t *testing.T, store archive.Store, sender app.API) (*app.App, *cache.Cache) {
	t.Helper()

	cfg := testConfig(t)
	c := cache.New(cfg.Cache.Path, nil)
	a := app.New(app.Deps{
		Config:   cfg,
		API:      sender,
		Registry: registry.New(),
		Agg:      analytics.New(),
		Cache:    c,
		Store:    store,
		Token:    "123:abc",
		Bot:      telegram.User{ID: 5, IsBot: true, Username: "scope_bot"},
	})
	return a, c
}

func decodedBatch(records ...string) []telegram.DecodeResult {
	items := make([]json.RawMessage, len(records))
	for i, r := range records {
		items[i] = json.RawMessage(r)
	}
	return telegram.DecodeBatch(items)
}

func TestApplyBatchFansOut(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	a, c := newTestApp(t, store, &fakeSender{})

	results := decodedBatch(
		`{"update_id":10,"message":{"message_id":1,"from":{"id":7,"is_bot":false,"first_name":"Bob"},"chat":{"id":100,"type":"private","first_name":"Bob"},"date":1700000000,"text":"hi"}}`,
		`{"update_id":11,"callback_query":{"id":"cb","from":{"id":7,"is_bot":false,"first_name":"Bob"},"data":"x","message":{"message_id":1,"chat":{"id":100,"type":"private"},"date":1700000100}}}`,
		`broken`,
	)
	a.ApplyBatch(results, 12)

	if got := a.Registry().Len(); got != 1 {
		t.Errorf("registry chats = %d, want 1", got)
	}
	chat, _ := a.Registry().Get(100)
	if chat.MessageCount != 2 {
		t.Errorf("MessageCount = %d, both events share the chat", chat.MessageCount)
	}

	snap := a.Analytics().Snapshot()
	if snap.Total != 2 || snap.DecodeFailures != 1 {
		t.Errorf("analytics total=%d failures=%d, want 2 and 1", snap.Total, snap.DecodeFailures)
	}

	if store.savedCount() != 1 {
		t.Errorf("archived %d events, only the message is archivable", store.savedCount())
	}

	if got := len(a.RawEntries()); got != 3 {
		t.Errorf("raw ring = %d entries, want all 3 slots", got)
	}
	if got := len(a.MonitorEntries()); got != 2 {
		t.Errorf("monitor ring = %d entries, want decoded events only", got)
	}

	doc := c.Load()
	if doc.Offset != 12 {
		t.Errorf("persisted offset = %d, want 12", doc.Offset)
	}
	if doc.Token != "123:abc" {
		t.Errorf("persisted token = %q", doc.Token)
	}
	if doc.Chats[100].MessageCount != 2 {
		t.Errorf("persisted chat table = %+v", doc.Chats)
	}
}

func TestMonitorRingEvicts(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, newFakeStore(), &fakeSender{})

	for i := range 6 {
		record := fmt.Sprintf(
			`{"update_id":%d,"message":{"message_id":1,"chat":{"id":1,"type":"private"},"date":1700000000,"text":"x"}}`,
			i+1)
		a.ApplyBatch(decodedBatch(record), int64(i+2))
	}

	entries := a.MonitorEntries()
	if len(entries) != 4 {
		t.Fatalf("monitor ring = %d entries, want capped at 4", len(entries))
	}
	// Sequence numbers stay stable across eviction.
	if entries[0].Seq != 3 || entries[3].Seq != 6 {
		t.Errorf("seqs = %d..%d, want 3..6", entries[0].Seq, entries[3].Seq)
	}
}

func TestSendTestMessageValidation(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	a, _ := newTestApp(t, newFakeStore(), sender)

	if _, err := a.SendTestMessage(t.Context(), 1, "   ", 0); !errors.Is(err, app.ErrEmptyMessage) {
		t.Errorf("blank text error = %v, want ErrEmptyMessage", err)
	}
	if _, err := a.SendTestMessage(t.Context(), 1, strings.Repeat("a", app.MaxMessageLen+1), 0); !errors.Is(err, app.ErrMessageTooLong) {
		t.Errorf("oversized text error = %v, want ErrMessageTooLong", err)
	}

	msg, err := a.SendTestMessage(t.Context(), 42, "  ping  ", 0)
	if err != nil {
		t.Fatalf("SendTestMessage() error = %v", err)
	}
	if msg.MessageID != 1 || sender.lastChat != 42 {
		t.Errorf("message not sent to chat 42: %+v", msg)
	}
	if sender.lastText != "ping" {
		t.Errorf("text = %q, want trimmed", sender.lastText)
	}
}

func TestCheckpointWithoutPoller(t *testing.T) {
	t.Parallel()

	a, c := newTestApp(t, newFakeStore(), &fakeSender{})
	a.Checkpoint()

	doc := c.Load()
	if doc.Token != "123:abc" {
		t.Errorf("checkpoint must persist the token, got %q", doc.Token)
	}
}

func TestHistoryReadsArchive(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	a, _ := newTestApp(t, store, &fakeSender{})

	a.ApplyBatch(decodedBatch(
		`{"update_id":1,"message":{"message_id":1,"chat":{"id":100,"type":"private"},"date":1700000000,"text":"hello"}}`,
	), 2)

	msgs, err := a.History(t.Context(), 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("history = %+v, want the archived message", msgs)
	}
}
