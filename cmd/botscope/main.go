// Package main contains the entrypoint for the botscope terminal client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/botscope/internal/analytics"
	"github.com/edgard/botscope/internal/app"
	"github.com/edgard/botscope/internal/archive"
	"github.com/edgard/botscope/internal/cache"
	"github.com/edgard/botscope/internal/config"
	"github.com/edgard/botscope/internal/logger"
	"github.com/edgard/botscope/internal/poller"
	"github.com/edgard/botscope/internal/registry"
	"github.com/edgard/botscope/internal/telegram"
	"github.com/edgard/botscope/internal/tui"
	"github.com/edgard/botscope/internal/webhook"
)

// tokenAttempts bounds interactive token entry retries.
const tokenAttempts = 3

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components (config, logger, cache, archive, client,
// poller, UI), blocks until shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "", "Path to configuration file (default ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		return 1
	}

	log, logCloser, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		return 1
	}
	defer logCloser.Close()
	log.Info("starting up", "log_level", cfg.Log.Level)

	stateCache := cache.New(cfg.Cache.Path, log)
	doc := stateCache.Load()

	client, me, token, err := connect(ctx, cfg, doc.Token, log)
	if err != nil {
		if !errors.Is(err, tui.ErrNoToken) {
			fmt.Fprintln(os.Stderr, "failed to connect:", err)
			log.Error("failed to connect", "error", err)
			return 1
		}
		return 0
	}
	log.Info("token validated", "bot_id", me.ID, "bot_username", me.Username)

	db, err := archive.NewDB(cfg.Archive.Path, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open archive:", err)
		log.Error("failed to open archive", "path", cfg.Archive.Path, "error", err)
		return 1
	}
	defer archive.CloseDB(db, log)
	store := archive.NewStore(db, log)

	reg := registry.New()
	reg.Seed(doc.Chats)
	agg := analytics.New()
	agg.Seed(doc.Chats)

	hook := webhook.NewController(client, log)
	if _, err := hook.Refresh(ctx); err != nil {
		// Polling stays gated until a later refresh succeeds.
		log.Warn("initial webhook query failed", "error", err)
	}

	var program *tea.Program
	notify := func() {
		if program != nil {
			program.Send(tui.RefreshMsg{})
		}
	}

	core := app.New(app.Deps{
		Config:   cfg,
		API:      client,
		Registry: reg,
		Agg:      agg,
		Cache:    stateCache,
		Store:    store,
		Webhook:  hook,
		Logger:   log,
		Token:    token,
		Bot:      *me,
		Notify:   notify,
	})
	pol := poller.New(client, hook, core, doc.Offset, poller.Config{
		Timeout:     cfg.Telegram.PollTimeout,
		BackoffBase: cfg.Telegram.BackoffBase,
		BackoffMax:  cfg.Telegram.BackoffMax,
	}, log, func(poller.Status) { notify() })
	core.SetPoller(pol)

	program = tea.NewProgram(tui.New(core), tea.WithAltScreen())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, runCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return core.Run(runCtx)
	})
	g.Go(func() error {
		_, uiErr := program.Run()
		cancel()
		return uiErr
	})
	g.Go(func() error {
		<-runCtx.Done()
		program.Quit()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("session ended with error", "error", err)
		return 1
	}
	log.Info("session ended")
	return 0
}

// connect resolves the bot token (config, then cached state, then an
// interactive prompt) and validates it against the API with getMe.
func connect(ctx context.Context, cfg *config.Config, cachedToken string, log *slog.Logger) (*telegram.Client, *telegram.User, string, error) {
	token := cfg.Telegram.Token
	if token == "" {
		token = cachedToken
	}

	hint := ""
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		if token == "" {
			entered, err := tui.PromptToken(hint)
			if err != nil {
				return nil, nil, "", err
			}
			token = entered
		}

		client, err := telegram.NewClient(token,
			telegram.WithBaseURL(cfg.Telegram.BaseURL),
			telegram.WithLogger(log))
		if err != nil {
			return nil, nil, "", err
		}

		me, err := client.GetMe(ctx)
		if err == nil {
			return client, me, token, nil
		}
		if !errors.Is(err, telegram.ErrUnauthorized) {
			return nil, nil, "", err
		}

		log.Warn("token rejected by the API")
		hint = "the API rejected that token, try again"
		token = ""
	}
	return nil, nil, "", fmt.Errorf("token rejected after %d attempts", tokenAttempts)
}
