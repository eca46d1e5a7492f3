// Package cache persists session state between runs: the bot token, the
// update offset and the discovered chat table. Writes are atomic so a crash
// mid-save can never leave a truncated file behind.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/edgard/botscope/internal/registry"
)

// SchemaVersion is bumped whenever the document layout changes in a way old
// builds cannot read. A mismatched file is discarded, not migrated.
const SchemaVersion = 1

// Document is the on-disk state layout.
type Document struct {
	SchemaVersion int                     `json:"schema_version"`
	Token         string                  `json:"token,omitempty"`
	Offset        int64                   `json:"offset"`
	Chats         map[int64]registry.Chat `json:"chats,omitempty"`
}

// Cache reads and writes the state file.
type Cache struct {
	path   string
	logger *slog.Logger
}

// New creates a cache bound to path. The parent directory is created on the
// first save.
func New(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		path:   path,
		logger: logger.With("component", "cache"),
	}
}

// Load reads the state file. A missing, corrupt or version-mismatched file
// degrades to an empty document with a warning; persistence problems must
// never stop a session from starting.
func (c *Cache) Load() Document {
	empty := Document{SchemaVersion: SchemaVersion, Chats: map[int64]registry.Chat{}}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("failed to read state file, starting fresh", "path", c.path, "error", err)
		}
		return empty
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("state file is corrupt, starting fresh", "path", c.path, "error", err)
		return empty
	}
	if doc.SchemaVersion != SchemaVersion {
		c.logger.Warn("state file schema mismatch, starting fresh",
			"path", c.path,
			"found", doc.SchemaVersion,
			"want", SchemaVersion)
		return empty
	}
	if doc.Chats == nil {
		doc.Chats = map[int64]registry.Chat{}
	}
	return doc
}

// Save writes doc atomically: marshal to a sibling temp file, fsync, then
// rename over the target. Readers either see the previous complete document
// or the new one.
func (c *Cache) Save(doc Document) error {
	doc.SchemaVersion = SchemaVersion

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set state file mode: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (c *Cache) Path() string { return c.path }
