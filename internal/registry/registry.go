// Package registry tracks every chat the bot has seen across the update
// stream. Records accumulate activity counters and forum topics and survive
// restarts through the state cache.
package registry

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/edgard/botscope/internal/telegram"
)

// Topic is activity within one forum thread of a chat.
type Topic struct {
	Count        int64 `json:"count"`
	LastSeenUnix int64 `json:"last_seen_unix"`
}

// Chat is one discovered chat. LastSeenUnix is the timestamp of the most
// recent event that referenced it; MessageCount counts every event with this
// chat as origin, not only message-shaped ones.
type Chat struct {
	ID            int64           `json:"id"`
	Kind          string          `json:"kind"`
	Title         string          `json:"title,omitempty"`
	Username      string          `json:"username,omitempty"`
	FirstName     string          `json:"first_name,omitempty"`
	LastName      string          `json:"last_name,omitempty"`
	MessageCount  int64           `json:"message_count"`
	FirstSeenUnix int64           `json:"first_seen_unix,omitempty"`
	LastSeenUnix  int64           `json:"last_seen_unix"`
	Topics        map[int64]Topic `json:"topics,omitempty"`
}

func copyTopics(src map[int64]Topic) map[int64]Topic {
	if src == nil {
		return nil
	}
	out := make(map[int64]Topic, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// DisplayName mirrors the chat display priority: title, then username, then
// person name, then a numeric fallback.
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
		return "Chat " + strconv.FormatInt(c.ID, 10)
	}
}

// KindFromID infers the chat kind from the id sign convention used by the
// Bot API: positive ids are private chats, ids starting with -100 are
// supergroups or channels, other negative ids are basic groups. Used when an
// update kind carries a chat reference without the full chat object.
func KindFromID(id int64) string {
	switch {
	case id > 0:
		return "private"
	case strings.HasPrefix(strconv.FormatInt(id, 10), "-100"):
		return "supergroup"
	default:
		return "group"
	}
}

// Registry is an in-memory chat table keyed by chat id. Safe for concurrent
// use.
type Registry struct {
	mu    sync.RWMutex
	chats map[int64]*Chat
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{chats: make(map[int64]*Chat)}
}

// Seed replaces the registry contents with chats restored from the cache.
func (r *Registry) Seed(chats map[int64]Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.chats = make(map[int64]*Chat, len(chats))
	for id, c := range chats {
		chat := c
		r.chats[id] = &chat
	}
}

// Observe records one event against its origin chat. Events without an
// origin chat are ignored. Identity fields refresh on every sighting so
// renames and username changes propagate; a missing wire type falls back to
// the id-derived kind without clobbering a previously known one.
func (r *Registry) Observe(ev *telegram.Event) {
	if ev.Chat == nil || ev.Chat.ID == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[ev.Chat.ID]
	if !ok {
		chat = &Chat{ID: ev.Chat.ID}
		r.chats[ev.Chat.ID] = chat
	}

	if ev.Chat.Type != "" {
		chat.Kind = ev.Chat.Type
	} else if chat.Kind == "" {
		chat.Kind = KindFromID(ev.Chat.ID)
	}
	chat.Title = ev.Chat.Title
	chat.Username = ev.Chat.Username
	chat.FirstName = ev.Chat.FirstName
	chat.LastName = ev.Chat.LastName

	chat.MessageCount++
	if chat.FirstSeenUnix == 0 && ev.Unix > 0 {
		chat.FirstSeenUnix = ev.Unix
	}
	if ev.Unix > chat.LastSeenUnix {
		chat.LastSeenUnix = ev.Unix
	}

	if ev.ThreadID != 0 {
		if chat.Topics == nil {
			chat.Topics = make(map[int64]Topic)
		}
		topic := chat.Topics[ev.ThreadID]
		topic.Count++
		if ev.Unix > topic.LastSeenUnix {
			topic.LastSeenUnix = ev.Unix
		}
		chat.Topics[ev.ThreadID] = topic
	}
}

// Len returns the number of known chats.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats)
}

// Chats returns an independent snapshot sorted by most recent activity, ties
// broken by id for a stable presentation order.
func (r *Registry) Chats() []Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Chat, 0, len(r.chats))
	for _, c := range r.chats {
		chat := *c
		chat.Topics = copyTopics(c.Topics)
		out = append(out, chat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeenUnix != out[j].LastSeenUnix {
			return out[i].LastSeenUnix > out[j].LastSeenUnix
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a copy of one chat record.
func (r *Registry) Get(id int64) (Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chats[id]
	if !ok {
		return Chat{}, false
	}
	chat := *c
	chat.Topics = copyTopics(c.Topics)
	return chat, true
}

// Export returns the registry as a plain map for persistence.
func (r *Registry) Export() map[int64]Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]Chat, len(r.chats))
	for id, c := range r.chats {
		chat := *c
		chat.Topics = copyTopics(c.Topics)
		out[id] = chat
	}
	return out
}
