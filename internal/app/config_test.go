package app

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"BILLING_API_URL", "TOKEN_STORE", "APP_ENV", "CURRENCY", "SEARCH_DEBOUNCE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.APIURL)
	assert.Equal(t, TokenStoreKeyring, cfg.TokenStore)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("BILLING_API_URL", "https://billing.example.cy")
	t.Setenv("TOKEN_STORE", "redis")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DUPLICATE_CHECK_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example.cy", cfg.APIURL)
	assert.Equal(t, TokenStoreRedis, cfg.TokenStore)
	assert.Equal(t, 2*time.Second, cfg.DuplicateCheckTimeout)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("TOKEN_STORE", "memory")
	t.Setenv("BILLING_API_URL", "billing.local")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "must be absolute")

	t.Setenv("BILLING_API_URL", "http://billing.local")
	t.Setenv("TOKEN_STORE", "cookie")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "unknown token store")
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json"}).Info("hello", "kind", "invoice")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"kind":"invoice"`)

	buf.Reset()
	newLogger(&buf, &Config{LogFormat: "pretty", LogLevel: "warn"}).Info("hidden")
	assert.Empty(t, buf.String())
}
