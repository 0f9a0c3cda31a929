package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares the token between machines through Redis, keyed by
// profile and expiring after ttl.
type RedisStore struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
	now     func() time.Time
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, profile: profile, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	creds, err := s.Credentials(ctx)
	if err != nil {
		return "", err
	}
	return creds.Token, nil
}

// Credentials returns the stored payload.
func (s *RedisStore) Credentials(ctx context.Context) (Credentials, error) {
	payload, err := s.client.Get(ctx, s.redisKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Credentials{}, ErrNoToken
		}
		return Credentials{}, err
	}
	var creds Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return Credentials{}, err
	}
	if creds.Token == "" {
		return Credentials{}, ErrNoToken
	}
	return creds, nil
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	return s.Save(ctx, Credentials{Token: token})
}

// Save persists the token together with the user it belongs to.
func (s *RedisStore) Save(ctx context.Context, creds Credentials) error {
	creds.Token = strings.TrimSpace(creds.Token)
	if creds.Token == "" {
		return errors.New("session: token cannot be empty")
	}
	creds.SavedAt = s.now().UTC()
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.redisKey(), data, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.redisKey()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *RedisStore) redisKey() string {
	return "billingdesk:token:" + s.profile
}
