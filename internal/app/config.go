package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Token store backends.
const (
	TokenStoreKeyring = "keyring"
	TokenStoreRedis   = "redis"
	TokenStoreMemory  = "memory"
)

// Config holds runtime configuration for the billing desk client.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	APIURL                string        `envconfig:"BILLING_API_URL" default:"http://127.0.0.1:8000"`
	APITimeout            time.Duration `envconfig:"BILLING_API_TIMEOUT" default:"30s"`
	DuplicateCheckTimeout time.Duration `envconfig:"DUPLICATE_CHECK_TIMEOUT" default:"5s"`
	LoginURL              string        `envconfig:"LOGIN_URL" default:"/login"`

	TokenStore    string        `envconfig:"TOKEN_STORE" default:"keyring"`
	Token         string        `envconfig:"BILLING_TOKEN"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"720h"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`

	Currency string `envconfig:"CURRENCY" default:"EUR"`
	Locale   string `envconfig:"LOCALE" default:"en"`

	SearchDebounce time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"300ms"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("billing api url %q must be absolute", c.APIURL)
	}
	switch c.TokenStore {
	case TokenStoreKeyring, TokenStoreRedis, TokenStoreMemory:
	default:
		return fmt.Errorf("unknown token store %q", c.TokenStore)
	}
	if c.APITimeout <= 0 {
		return errors.New("api timeout must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
