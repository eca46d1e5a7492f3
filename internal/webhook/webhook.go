// Package webhook owns the delivery-mode decision. Telegram delivers
// updates either by webhook push or by long polling, never both; the
// controller tracks which mode is active and gates the polling loop
// accordingly.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/edgard/botscope/internal/telegram"
)

// ErrInsecureURL rejects webhook targets that are not HTTPS. The API would
// refuse them anyway; failing locally keeps the error message clear.
var ErrInsecureURL = errors.New("webhook: url must use https")

// API is the slice of the Bot API the controller needs.
type API interface {
	GetWebhookInfo(ctx context.Context) (*telegram.WebhookInfo, error)
	SetWebhook(ctx context.Context, url string, dropPending bool) error
	DeleteWebhook(ctx context.Context, dropPending bool) error
}

// Controller tracks the current webhook registration. Safe for concurrent
// use; it doubles as the poller's gate.
type Controller struct {
	api    API
	logger *slog.Logger

	mu   sync.RWMutex
	info telegram.WebhookInfo
	// known is false until the first successful Refresh; an unknown state
	// keeps polling off so the two delivery modes cannot race at startup.
	known bool
}

// NewController creates a controller. Call Refresh before relying on
// PollingAllowed.
func NewController(api API, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:    api,
		logger: logger.With("component", "webhook"),
	}
}

// Refresh re-reads the registration from the API.
func (c *Controller) Refresh(ctx context.Context) (telegram.WebhookInfo, error) {
	info, err := c.api.GetWebhookInfo(ctx)
	if err != nil {
		return telegram.WebhookInfo{}, fmt.Errorf("failed to query webhook state: %w", err)
	}

	c.mu.Lock()
	c.info = *info
	c.known = true
	c.mu.Unlock()

	c.logger.Debug("webhook state refreshed", "url", info.URL, "pending", info.PendingUpdateCount)
	return *info, nil
}

// Set registers target for push delivery, suspending polling from the next
// cycle. The URL must be HTTPS.
func (c *Controller) Set(ctx context.Context, target string, dropPending bool) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("webhook: invalid url: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "https") || u.Host == "" {
		return ErrInsecureURL
	}

	if err := c.api.SetWebhook(ctx, target, dropPending); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	c.mu.Lock()
	c.info = telegram.WebhookInfo{URL: target}
	c.known = true
	c.mu.Unlock()

	c.logger.Info("webhook registered", "url", target, "drop_pending", dropPending)
	return nil
}

// Clear removes the registration, handing delivery back to polling.
func (c *Controller) Clear(ctx context.Context, dropPending bool) error {
	if err := c.api.DeleteWebhook(ctx, dropPending); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	c.mu.Lock()
	c.info = telegram.WebhookInfo{}
	c.known = true
	c.mu.Unlock()

	c.logger.Info("webhook cleared", "drop_pending", dropPending)
	return nil
}

// Active reports whether a webhook is currently registered.
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.known && c.info.URL != ""
}

// Info returns the last known registration state.
func (c *Controller) Info() (telegram.WebhookInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info, c.known
}

// PollingAllowed implements the poller gate: polling runs only when the
// state is known and no webhook is registered.
func (c *Controller) PollingAllowed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.known && c.info.URL == ""
}
