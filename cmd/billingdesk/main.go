package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/billingdesk/internal/api"
	"github.com/odyssey-erp/billingdesk/internal/app"
	"github.com/odyssey-erp/billingdesk/internal/billing"
	"github.com/odyssey-erp/billingdesk/internal/cli"
	"github.com/odyssey-erp/billingdesk/internal/confirm"
	"github.com/odyssey-erp/billingdesk/internal/desk"
	"github.com/odyssey-erp/billingdesk/internal/platform/cache"
	"github.com/odyssey-erp/billingdesk/internal/session"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := cli.Execute(ctx, newFactory(cfg, logger), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newFactory(cfg *app.Config, logger *slog.Logger) cli.Factory {
	return func(ctx context.Context, opts cli.Options) (*cli.Runtime, error) {
		tokens, closeTokens, err := tokenStore(ctx, cfg, opts.Profile, logger)
		if err != nil {
			return nil, err
		}

		client, err := api.New(api.Params{
			BaseURL:               cfg.APIURL,
			Tokens:                tokens,
			Logger:                logger,
			DuplicateCheckTimeout: cfg.DuplicateCheckTimeout,
			OnUnauthorized: func() {
				fmt.Fprintf(os.Stderr, "Session expired. Log in again with \"billingdesk login\" (%s).\n", cfg.LoginURL)
			},
		})
		if err != nil {
			_ = closeTokens()
			return nil, err
		}

		money, err := billing.NewMoneyFormatter(cfg.Locale, cfg.Currency)
		if err != nil {
			_ = closeTokens()
			return nil, err
		}

		prompt := confirm.NewPrompt()
		var confirmer confirm.Confirmer = prompt
		if opts.Yes {
			confirmer = confirm.Static(true)
		}

		return &cli.Runtime{
			Client: client,
			Desk: desk.New(desk.Params{
				Backend:     client,
				Confirmer:   confirmer,
				Money:       money,
				Logger:      logger,
				SearchDelay: cfg.SearchDebounce,
			}),
			Prompt: prompt,
			Money:  money,
			Logger: logger,
			Close:  closeTokens,
		}, nil
	}
}

func tokenStore(ctx context.Context, cfg *app.Config, profile string, logger *slog.Logger) (session.TokenStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.TokenStore {
	case app.TokenStoreRedis:
		client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() error {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
			return nil
		}
		return session.NewRedisStore(client, profile, cfg.TokenTTL), closeFn, nil
	case app.TokenStoreMemory:
		return session.NewMemoryStore(cfg.Token), noop, nil
	}
	return session.NewKeyringStore(profile), noop, nil
}
