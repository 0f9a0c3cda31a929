package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func exerciseStore(t *testing.T, store TokenStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Token(ctx)
	require.ErrorIs(t, err, ErrNoToken)

	require.Error(t, store.SetToken(ctx, "  "))

	require.NoError(t, store.SetToken(ctx, "abc123"))
	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	require.NoError(t, store.SetToken(ctx, "rotated"))
	token, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rotated", token)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Token(ctx)
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Clear(ctx), "clearing twice is harmless")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(""))

	seeded := NewMemoryStore(" seeded ")
	token, err := seeded.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "seeded", token)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	exerciseStore(t, NewKeyringStore("test"))
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "office", time.Hour), srv
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	exerciseStore(t, store)
}

func TestRedisStoreExpiresAndKeepsUser(t *testing.T) {
	store, srv := newRedisStore(t)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Credentials{Token: "t1", User: "admin@example.cy"}))
	assert.True(t, srv.Exists("billingdesk:token:office"))

	creds, err := store.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.cy", creds.User)
	assert.Equal(t, fixed, creds.SavedAt)

	srv.FastForward(2 * time.Hour)
	_, err = store.Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}
