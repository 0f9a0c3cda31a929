package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/billingdesk/internal/app"
	"github.com/odyssey-erp/billingdesk/internal/cli"
	"github.com/odyssey-erp/billingdesk/internal/session"
	_ "github.com/odyssey-erp/billingdesk/internal/testing/guard"
)

func testConfig() *app.Config {
	return &app.Config{
		APIURL:                "http://127.0.0.1:8000",
		APITimeout:            time.Second,
		DuplicateCheckTimeout: time.Second,
		TokenStore:            app.TokenStoreMemory,
		Token:                 "seeded",
		TokenTTL:              time.Hour,
		Currency:              "EUR",
		Locale:                "en",
	}
}

func TestMainSkipsInTestMode(t *testing.T) {
	require.True(t, app.InTestMode(), "guard import enables test mode")
	main()
}

func TestTokenStoreSelection(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	cfg := testConfig()
	store, closeFn, err := tokenStore(ctx, cfg, "default", logger)
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, store)
	tok, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "seeded", tok)
	assert.NoError(t, closeFn())

	srv := miniredis.RunT(t)
	cfg.TokenStore, cfg.RedisAddr = app.TokenStoreRedis, srv.Addr()
	store, closeFn, err = tokenStore(ctx, cfg, "office", logger)
	require.NoError(t, err)
	assert.IsType(t, &session.RedisStore{}, store)
	require.NoError(t, store.SetToken(ctx, "abc"))
	tok, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
	assert.NoError(t, closeFn())

	srv.Close()
	_, _, err = tokenStore(ctx, cfg, "office", logger)
	assert.Error(t, err)

	cfg.TokenStore = app.TokenStoreKeyring
	store, _, err = tokenStore(ctx, cfg, "office", logger)
	require.NoError(t, err)
	assert.IsType(t, &session.KeyringStore{}, store)
}

func TestFactoryWiring(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := newFactory(testConfig(), logger)

	rt, err := factory(context.Background(), cli.Options{Profile: "default", Yes: true})
	require.NoError(t, err)
	require.NotNil(t, rt.Client)
	require.NotNil(t, rt.Desk)
	require.NotNil(t, rt.Money)
	assert.NoError(t, rt.Close())

	bad := testConfig()
	bad.Currency = "NOPE"
	_, err = newFactory(bad, logger)(context.Background(), cli.Options{})
	assert.Error(t, err)
}
