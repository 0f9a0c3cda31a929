// Package session keeps the bearer token between invocations. The token is
// read fresh from the store on every API request.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrNoToken indicates that no token has been stored.
var ErrNoToken = errors.New("session: no stored token")

// TokenStore persists the API bearer token.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// CredentialStore is a TokenStore that also records who logged in.
type CredentialStore interface {
	TokenStore
	Save(ctx context.Context, creds Credentials) error
	Credentials(ctx context.Context) (Credentials, error)
}

// Credentials is the payload persisted by stores that keep metadata.
type Credentials struct {
	Token   string    `json:"token"`
	User    string    `json:"user,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore constructs an empty store, optionally seeded.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: strings.TrimSpace(token)}
}

func (m *MemoryStore) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session: token cannot be empty")
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
