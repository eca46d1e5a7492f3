package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/botscope/internal/telegram"
)

// Message is one archived message-shaped event.
type Message struct {
	ID        uint      `db:"id"`
	UpdateID  int64     `db:"update_id"`
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	ThreadID  int64     `db:"thread_id"`
	Kind      string    `db:"kind"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
	CreatedAt time.Time `db:"created_at"`
}

// Store defines the archive data access layer.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveEvent archives one message-shaped event. Non-message events and
	// events without an origin chat are ignored.
	SaveEvent(ctx context.Context, ev *telegram.Event) error

	// RecentByChat retrieves the most recent 'limit' messages for a chat,
	// newest first.
	RecentByChat(ctx context.Context, chatID int64, limit int) ([]Message, error)

	// CountByChat returns the number of archived messages for a chat.
	CountByChat(ctx context.Context, chatID int64) (int64, error)

	// RunMaintenance performs database maintenance tasks like VACUUM.
	RunMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "archive"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveEvent(ctx context.Context, ev *telegram.Event) error {
	if ev == nil || !ev.IsMessage() || ev.Chat == nil || ev.Chat.ID == 0 {
		return nil
	}

	msg := Message{
		UpdateID:  ev.UpdateID,
		ChatID:    ev.Chat.ID,
		ThreadID:  ev.ThreadID,
		Kind:      string(ev.Kind),
		Content:   ev.Text,
		Timestamp: time.Unix(ev.Unix, 0).UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if ev.From != nil {
		msg.UserID = ev.From.ID
		msg.Username = ev.From.Username
	}

	query := `INSERT INTO messages (update_id, chat_id, user_id, username, thread_id, kind, content, timestamp, created_at)
		VALUES (:update_id, :chat_id, :user_id, :username, :thread_id, :kind, :content, :timestamp, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, query, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to archive message",
			"chat_id", msg.ChatID, "update_id", msg.UpdateID, "error", err)
		return fmt.Errorf("failed to archive message: %w", err)
	}
	return nil
}

func (s *sqlxStore) RecentByChat(ctx context.Context, chatID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	var out []Message
	query := `SELECT id, update_id, chat_id, user_id, username, thread_id, kind, content, timestamp, created_at
		FROM messages WHERE chat_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &out, query, chatID, limit); err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return out, nil
}

func (s *sqlxStore) CountByChat(ctx context.Context, chatID int64) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return 0, fmt.Errorf("failed to count chat history: %w", err)
	}
	return n, nil
}

func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum archive: %w", err)
	}
	s.logger.InfoContext(ctx, "archive maintenance completed")
	return nil
}
