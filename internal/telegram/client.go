package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Bot API endpoint family.
const DefaultBaseURL = "https://api.telegram.org"

// longPollGrace is added on top of the requested long-poll timeout so the
// HTTP deadline never fires before the server-side hold expires.
const longPollGrace = 10 * time.Second

// ErrUnauthorized marks responses where the API rejected the bot token.
// Callers detect it with errors.Is; it is terminal for the polling loop.
var ErrUnauthorized = errors.New("telegram: unauthorized")

// APIError is a Bot API response with ok=false.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: api error %d: %s", e.Code, e.Description)
}

// Is reports ErrUnauthorized for 401 and 403 responses, which the API
// returns for invalid or revoked tokens.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// Client issues requests against the Bot API. It performs no retries; the
// caller owns backoff and failure policy.
type Client struct {
	token   string
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used for local test servers.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger attaches a logger for request-level debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Bot API client for the given token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("telegram: bot token cannot be empty")
	}
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		httpc:   &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "telegram_client")
	return c, nil
}

// envelope is the common Bot API response wrapper.
type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// call posts params as JSON to the named method and returns the raw result.
// A response with ok=false becomes an *APIError.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var body io.Reader
	if params != nil {
		buf, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", method, err)
	}
	c.logger.Debug("api call finished",
		"method", method,
		"ok", env.OK,
		"duration_ms", time.Since(start).Milliseconds())

	if !env.OK {
		code := env.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &APIError{Code: code, Description: env.Description}
	}
	return env.Result, nil
}

// GetMe validates the token and returns basic information about the bot.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	raw, err := c.call(ctx, "getMe", nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to parse getMe result: %w", err)
	}
	return &u, nil
}

type getUpdatesRequest struct {
	Offset  int64 `json:"offset,omitempty"`
	Timeout int64 `json:"timeout,omitempty"`
}

// GetUpdates long-polls for new updates starting at offset. Each returned
// element is one opaque update record; decoding is the caller's concern so
// that a single malformed record cannot fail the whole batch.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+longPollGrace)
	defer cancel()

	raw, err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:  offset,
		Timeout: int64(timeout / time.Second),
	})
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates result: %w", err)
	}
	return items, nil
}

type sendMessageRequest struct {
	ChatID          int64  `json:"chat_id"`
	Text            string `json:"text"`
	MessageThreadID int64  `json:"message_thread_id,omitempty"`
}

// SendMessage sends a text message to chatID. A non-zero threadID targets a
// forum topic.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, threadID int64) (*Message, error) {
	raw, err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:          chatID,
		Text:            text,
		MessageThreadID: threadID,
	})
	if err != nil {
		return nil, err
	}
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse sendMessage result: %w", err)
	}
	return &m, nil
}

// GetWebhookInfo returns the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	raw, err := c.call(ctx, "getWebhookInfo", nil)
	if err != nil {
		return nil, err
	}
	var info WebhookInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to parse getWebhookInfo result: %w", err)
	}
	return &info, nil
}

type setWebhookRequest struct {
	URL                string `json:"url"`
	DropPendingUpdates bool   `json:"drop_pending_updates,omitempty"`
}

// SetWebhook registers url for push delivery. The API requires HTTPS; URL
// validation happens in the webhook controller before this call.
func (c *Client) SetWebhook(ctx context.Context, url string, dropPending bool) error {
	_, err := c.call(ctx, "setWebhook", setWebhookRequest{URL: url, DropPendingUpdates: dropPending})
	return err
}

type deleteWebhookRequest struct {
	DropPendingUpdates bool `json:"drop_pending_updates,omitempty"`
}

// DeleteWebhook removes the webhook registration, re-enabling polling.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	_, err := c.call(ctx, "deleteWebhook", deleteWebhookRequest{DropPendingUpdates: dropPending})
	return err
}
