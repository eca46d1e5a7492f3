// Package telegram implements a minimal Telegram Bot API client together
// with the normalization of the update union into canonical events.
package telegram

import "fmt"

// User represents a Telegram user or bot.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DisplayName returns the username when present, otherwise the first name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// Chat represents a Telegram chat. Type is one of "private", "group",
// "supergroup" or "channel" as reported by the API; it may be empty for
// update kinds that do not carry the full chat object.
type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName returns a human-readable name for the chat, preferring the
// title, then the username, then the person's name, falling back to the id.
func (c *Chat) DisplayName() string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Username != "":
		return "@" + c.Username
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return fmt.Sprintf("Chat %d", c.ID)
	}
}

// Message represents a message or channel post. From is absent for channel
// posts; MessageThreadID identifies the forum topic in forum supergroups.
type Message struct {
	MessageID       int64  `json:"message_id"`
	From            *User  `json:"from,omitempty"`
	Chat            Chat   `json:"chat"`
	Date            int64  `json:"date"`
	Text            string `json:"text,omitempty"`
	Caption         string `json:"caption,omitempty"`
	MessageThreadID int64  `json:"message_thread_id,omitempty"`
}

// WebhookInfo describes the current webhook registration as reported by
// getWebhookInfo. An empty URL means no webhook is set.
type WebhookInfo struct {
	URL                string `json:"url"`
	PendingUpdateCount int64  `json:"pending_update_count"`
	LastErrorDate      int64  `json:"last_error_date,omitempty"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}
