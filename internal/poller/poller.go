// Package poller drives the long-poll ingestion loop. It owns the update
// offset, the retry policy and the polling state machine; what happens to
// decoded events is delegated to a Sink so the loop stays testable without
// the rest of the application.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/edgard/botscope/internal/telegram"
)

// State is the polling lifecycle phase.
type State string

const (
	// StateIdle means the loop is between polls, including the backoff wait
	// after a failure.
	StateIdle State = "idle"
	// StatePolling means the loop is actively long-polling.
	StatePolling State = "polling"
	// StateSuspended means polling is administratively off because a webhook
	// is registered (or the webhook state is not yet known).
	StateSuspended State = "suspended"
	// StateStopped means the loop has exited, either by context cancellation
	// or a terminal auth failure.
	StateStopped State = "stopped"
)

// Status is a point-in-time view of the loop. A non-zero
// ConsecutiveFailures count marks degraded connectivity.
type Status struct {
	State               State
	ConsecutiveFailures int
	LastError           string
	// Fatal is set when the API rejected the token. The loop will not
	// recover without a new token.
	Fatal bool
	// NextRetryUnix is when the next attempt is due after a failed poll.
	NextRetryUnix int64
}

// Transport fetches raw update batches. *telegram.Client satisfies it.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]json.RawMessage, error)
}

// Gate decides whether polling may run right now. It is consulted before
// every poll so a webhook registration takes effect at the next cycle.
type Gate interface {
	PollingAllowed() bool
}

// Sink receives each decoded batch together with the offset that commits
// it. ApplyBatch runs on the poll goroutine; implementations persist the
// offset and fan events out from there.
type Sink interface {
	ApplyBatch(results []telegram.DecodeResult, nextOffset int64)
}

// Backoff returns the suspension delay after n consecutive failures,
// doubling from base and capping at max. n is 1 for the first failure.
func Backoff(base, max time.Duration, n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Config carries the loop tunables.
type Config struct {
	// Timeout is the long-poll hold passed to getUpdates.
	Timeout time.Duration
	// BackoffBase and BackoffMax bound the failure suspension delay.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// IdleInterval is how often a suspended loop rechecks the gate.
	IdleInterval time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = 25 * time.Second
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = time.Second
	}
	if out.BackoffMax <= 0 {
		out.BackoffMax = 60 * time.Second
	}
	if out.IdleInterval <= 0 {
		out.IdleInterval = 2 * time.Second
	}
	return out
}

// Poller is the long-poll loop. Create with New, start with Run.
type Poller struct {
	transport Transport
	gate      Gate
	sink      Sink
	cfg       Config
	logger    *slog.Logger

	mu     sync.RWMutex
	status Status
	offset int64

	wake     chan struct{}
	onChange func(Status)
}

// New creates a poller resuming from offset. onChange, when non-nil, is
// invoked after every status transition; it must not block.
func New(transport Transport, gate Gate, sink Sink, offset int64, cfg Config, logger *slog.Logger, onChange func(Status)) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		transport: transport,
		gate:      gate,
		sink:      sink,
		cfg:       cfg.withDefaults(),
		logger:    logger.With("component", "poller"),
		status:    Status{State: StateIdle},
		offset:    offset,
		wake:      make(chan struct{}, 1),
		onChange:  onChange,
	}
}

// Status returns the current loop status.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Offset returns the current committed offset.
func (p *Poller) Offset() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offset
}

// Wake interrupts an idle or suspended wait so the loop re-evaluates
// immediately. Used after a webhook is cleared or a retry is requested.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Poller) setStatus(mut func(*Status)) {
	p.mu.Lock()
	mut(&p.status)
	st := p.status
	p.mu.Unlock()
	if p.onChange != nil {
		p.onChange(st)
	}
}

// Run executes the loop until ctx is cancelled or the token is rejected.
// A terminal auth failure is reported through the status, not the return
// value, so it does not tear down the rest of the process.
func (p *Poller) Run(ctx context.Context) error {
	defer p.setStatus(func(s *Status) { s.State = StateStopped })

	for {
		if ctx.Err() != nil {
			return nil
		}

		if !p.gate.PollingAllowed() {
			p.setStatus(func(s *Status) { s.State = StateSuspended })
			if !p.sleep(ctx, p.cfg.IdleInterval) {
				return nil
			}
			continue
		}

		p.setStatus(func(s *Status) { s.State = StatePolling })

		items, err := p.transport.GetUpdates(ctx, p.Offset(), p.cfg.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, telegram.ErrUnauthorized) {
				p.logger.Error("token rejected, polling halted", "error", err)
				p.setStatus(func(s *Status) {
					s.Fatal = true
					s.LastError = err.Error()
				})
				return nil
			}

			p.mu.RLock()
			failures := p.status.ConsecutiveFailures + 1
			p.mu.RUnlock()
			delay := Backoff(p.cfg.BackoffBase, p.cfg.BackoffMax, failures)
			p.logger.Warn("poll failed, backing off",
				"error", err,
				"failures", failures,
				"retry_in", delay)
			p.setStatus(func(s *Status) {
				s.State = StateIdle
				s.ConsecutiveFailures = failures
				s.LastError = err.Error()
				s.NextRetryUnix = time.Now().Add(delay).Unix()
			})
			if !p.sleep(ctx, delay) {
				return nil
			}
			continue
		}

		p.setStatus(func(s *Status) {
			s.ConsecutiveFailures = 0
			s.LastError = ""
			s.NextRetryUnix = 0
		})

		if len(items) == 0 {
			continue
		}
		p.apply(items)
	}
}

// apply decodes a batch and commits the offset. The offset only advances
// over records that decoded, so a malformed record is re-fetched next poll
// instead of being silently skipped.
func (p *Poller) apply(items []json.RawMessage) {
	results := telegram.DecodeBatch(items)

	next := p.Offset()
	for i := range results {
		if results[i].Err != nil {
			continue
		}
		if id := results[i].Event.UpdateID + 1; id > next {
			next = id
		}
	}

	p.sink.ApplyBatch(results, next)

	p.mu.Lock()
	if next > p.offset {
		p.offset = next
	}
	p.mu.Unlock()

	p.logger.Debug("batch applied", "records", len(results), "next_offset", next)
}

// sleep waits for d, a wake signal or cancellation. Returns false when ctx
// ended.
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-p.wake:
		return true
	case <-t.C:
		return true
	}
}
