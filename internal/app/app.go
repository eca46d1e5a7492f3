// Package app wires the session together: it fans decoded batches out to
// the chat registry, the analytics aggregator, the archive and the view
// buffers, owns state persistence, and exposes the commands the terminal UI
// invokes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/botscope/internal/analytics"
	"github.com/edgard/botscope/internal/archive"
	"github.com/edgard/botscope/internal/cache"
	"github.com/edgard/botscope/internal/config"
	"github.com/edgard/botscope/internal/poller"
	"github.com/edgard/botscope/internal/registry"
	"github.com/edgard/botscope/internal/telegram"
	"github.com/edgard/botscope/internal/webhook"
)

// MaxMessageLen is the Bot API text message limit.
const MaxMessageLen = 4096

// persistTimeout bounds archive writes so a slow disk cannot stall the
// ingestion loop indefinitely.
const persistTimeout = 5 * time.Second

// ErrEmptyMessage rejects test messages with no content.
var ErrEmptyMessage = errors.New("message text cannot be empty")

// ErrMessageTooLong rejects test messages over the API limit.
var ErrMessageTooLong = fmt.Errorf("message text exceeds %d characters", MaxMessageLen)

// API is the slice of the Bot API the app needs beyond polling.
type API interface {
	SendMessage(ctx context.Context, chatID int64, text string, threadID int64) (*telegram.Message, error)
}

// App is the session core. Create with New, start with Run.
type App struct {
	cfg    *config.Config
	api    API
	reg    *registry.Registry
	agg    *analytics.Aggregator
	cache  *cache.Cache
	store  archive.Store
	hook   *webhook.Controller
	poll   *poller.Poller
	logger *slog.Logger

	rawRing     *Ring
	monitorRing *Ring

	mu    sync.Mutex
	token string
	bot   telegram.User
	dirty bool

	// notify is invoked after every state change so the UI can refresh.
	notify func()
}

// Deps carries the collaborators the app composes. Poller is set by the
// caller after construction because the app itself is the poller's sink.
type Deps struct {
	Config   *config.Config
	API      API
	Registry *registry.Registry
	Agg      *analytics.Aggregator
	Cache    *cache.Cache
	Store    archive.Store
	Webhook  *webhook.Controller
	Logger   *slog.Logger
	Token    string
	Bot      telegram.User
	Notify   func()
}

// New assembles the session core from its collaborators.
func New(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := deps.Notify
	if notify == nil {
		notify = func() {}
	}
	return &App{
		cfg:         deps.Config,
		api:         deps.API,
		reg:         deps.Registry,
		agg:         deps.Agg,
		cache:       deps.Cache,
		store:       deps.Store,
		hook:        deps.Webhook,
		logger:      logger.With("component", "app"),
		rawRing:     NewRing(deps.Config.Monitor.RingSize),
		monitorRing: NewRing(deps.Config.Monitor.MonitorSize),
		token:       deps.Token,
		bot:         deps.Bot,
		notify:      notify,
	}
}

// SetPoller attaches the polling loop after construction.
func (a *App) SetPoller(p *poller.Poller) { a.poll = p }

// ApplyBatch is the poller sink: it distributes each decoded batch and
// persists the state that commits the offset.
func (a *App) ApplyBatch(results []telegram.DecodeResult, nextOffset int64) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	for i := range results {
		now := time.Now()
		if results[i].Err != nil {
			a.agg.RecordDecodeFailure()
			a.rawRing.Push(results[i], now)
			a.logger.Warn("dropped undecodable record", "error", results[i].Err)
			continue
		}

		ev := &results[i].Event
		a.reg.Observe(ev)
		a.agg.Record(ev)
		a.rawRing.Push(results[i], now)
		a.monitorRing.Push(results[i], now)

		if err := a.store.SaveEvent(ctx, ev); err != nil {
			a.logger.Warn("archive write failed", "update_id", ev.UpdateID, "error", err)
		}
	}

	a.persist(nextOffset)
	a.notify()
}

// persist writes the state file. A failed write marks the state dirty so
// the periodic checkpoint retries it; ingestion keeps going either way.
func (a *App) persist(offset int64) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()

	doc := cache.Document{
		Token:  token,
		Offset: offset,
		Chats:  a.reg.Export(),
	}
	if err := a.cache.Save(doc); err != nil {
		a.logger.Warn("state save failed, will retry on next checkpoint", "error", err)
		a.mu.Lock()
		a.dirty = true
		a.mu.Unlock()
		return
	}
	a.mu.Lock()
	a.dirty = false
	a.mu.Unlock()
}

// Checkpoint flushes the current state to disk. Used by the periodic job
// and at shutdown.
func (a *App) Checkpoint() {
	offset := int64(0)
	if a.poll != nil {
		offset = a.poll.Offset()
	}
	a.persist(offset)
}

// Bot returns the identity confirmed at startup.
func (a *App) Bot() telegram.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bot
}

// Registry exposes the chat table for the UI.
func (a *App) Registry() *registry.Registry { return a.reg }

// Analytics exposes the aggregator for the UI.
func (a *App) Analytics() *analytics.Aggregator { return a.agg }

// Webhook exposes the delivery-mode controller for the UI.
func (a *App) Webhook() *webhook.Controller { return a.hook }

// RawEntries returns the raw inspection buffer, oldest first.
func (a *App) RawEntries() []RingEntry { return a.rawRing.Entries() }

// MonitorEntries returns the live monitor buffer, oldest first.
func (a *App) MonitorEntries() []RingEntry { return a.monitorRing.Entries() }

// PollerStatus returns the current ingestion status.
func (a *App) PollerStatus() poller.Status {
	if a.poll == nil {
		return poller.Status{State: poller.StateIdle}
	}
	return a.poll.Status()
}

// SendTestMessage validates and sends a diagnostic message.
func (a *App) SendTestMessage(ctx context.Context, chatID int64, text string, threadID int64) (*telegram.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len(text) > MaxMessageLen {
		return nil, ErrMessageTooLong
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Telegram.SendTimeout)
	defer cancel()

	msg, err := a.api.SendMessage(ctx, chatID, text, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to send test message: %w", err)
	}
	a.logger.Info("test message sent", "chat_id", chatID, "message_id", msg.MessageID)
	return msg, nil
}

// SetWebhook registers a webhook, which suspends the poller from its next
// cycle.
func (a *App) SetWebhook(ctx context.Context, url string, dropPending bool) error {
	return a.hook.Set(ctx, url, dropPending)
}

// ClearWebhook removes the webhook and wakes the poller so polling resumes
// immediately.
func (a *App) ClearWebhook(ctx context.Context, dropPending bool) error {
	if err := a.hook.Clear(ctx, dropPending); err != nil {
		return err
	}
	if a.poll != nil {
		a.poll.Wake()
	}
	return nil
}

// RefreshWebhook re-reads the registration from the API.
func (a *App) RefreshWebhook(ctx context.Context) (telegram.WebhookInfo, error) {
	info, err := a.hook.Refresh(ctx)
	if err != nil {
		return telegram.WebhookInfo{}, err
	}
	if a.poll != nil {
		a.poll.Wake()
	}
	return info, nil
}

// History loads archived messages for a chat, newest first.
func (a *App) History(ctx context.Context, chatID int64) ([]archive.Message, error) {
	return a.store.RecentByChat(ctx, chatID, a.cfg.Archive.HistoryLimit)
}

// Run starts the ingestion loop and the background jobs, blocking until ctx
// is cancelled. The state is checkpointed one final time on the way out.
func (a *App) Run(ctx context.Context) error {
	sched, err := a.startScheduler()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.poll.Run(ctx)
	})

	err = g.Wait()

	if shutdownErr := sched.Shutdown(); shutdownErr != nil {
		a.logger.Error("scheduler shutdown failed", "error", shutdownErr)
	}
	a.Checkpoint()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
