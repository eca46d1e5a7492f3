package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edgard/botscope/internal/cache"
	"github.com/edgard/botscope/internal/registry"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	t.Parallel()

	c := cache.New(filepath.Join(t.TempDir(), "state.json"), nil)

	doc := c.Load()
	if doc.Offset != 0 || doc.Token != "" || len(doc.Chats) != 0 {
		t.Errorf("expected empty document, got %+v", doc)
	}
	if doc.SchemaVersion != cache.SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", doc.SchemaVersion, cache.SchemaVersion)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	c := cache.New(path, nil)

	want := cache.Document{
		Token:  "123:abc",
		Offset: 777,
		Chats: map[int64]registry.Chat{
			-1001: {ID: -1001, Kind: "supergroup", Title: "Ops", MessageCount: 4, LastSeenUnix: 1700000000},
			42:    {ID: 42, Kind: "private", FirstName: "Alice", Topics: map[int64]registry.Topic{3: {Count: 2, LastSeenUnix: 700}}},
		},
	}
	if err := c.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := c.Load()
	if got.Token != want.Token || got.Offset != want.Offset {
		t.Errorf("round trip lost token or offset: %+v", got)
	}
	if len(got.Chats) != 2 {
		t.Fatalf("Chats = %d entries, want 2", len(got.Chats))
	}
	if got.Chats[-1001].Title != "Ops" {
		t.Errorf("chat title lost: %+v", got.Chats[-1001])
	}
	if got.Chats[42].Topics[3] != (registry.Topic{Count: 2, LastSeenUnix: 700}) {
		t.Errorf("topic counters lost: %+v", got.Chats[42])
	}
}

func TestLoadCorruptFileDegradesToEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o600); err != nil {
		t.Fatal(err)
	}

	doc := cache.New(path, nil).Load()
	if doc.Offset != 0 || len(doc.Chats) != 0 {
		t.Errorf("corrupt file must load as empty, got %+v", doc)
	}
}

func TestLoadSchemaMismatchDegradesToEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"schema_version":99,"offset":500}`), 0o600); err != nil {
		t.Fatal(err)
	}

	doc := cache.New(path, nil).Load()
	if doc.Offset != 0 {
		t.Errorf("mismatched schema must not carry data forward, got offset %d", doc.Offset)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := cache.New(filepath.Join(dir, "state.json"), nil)
	if err := c.Save(cache.Document{Offset: 1}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Errorf("expected only state.json, got %v", entries)
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	t.Parallel()

	c := cache.New(filepath.Join(t.TempDir(), "state.json"), nil)
	if err := c.Save(cache.Document{Offset: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(cache.Document{Offset: 2}); err != nil {
		t.Fatal(err)
	}

	if got := c.Load().Offset; got != 2 {
		t.Errorf("Offset = %d, want latest save", got)
	}
}
