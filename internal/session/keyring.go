package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keyring service entries are stored under.
const ServiceName = "billingdesk"

// KeyringStore keeps the token in the operating system keychain.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore constructs a store for the given profile.
func NewKeyringStore(profile string) *KeyringStore {
	if profile == "" {
		profile = "default"
	}
	return &KeyringStore{service: ServiceName, user: profile}
}

func (k *KeyringStore) Token(ctx context.Context) (string, error) {
	token, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token from keyring: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (k *KeyringStore) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session: token cannot be empty")
	}
	if err := keyring.Set(k.service, k.user, token); err != nil {
		return fmt.Errorf("store token in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Clear(ctx context.Context) error {
	if err := keyring.Delete(k.service, k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete token from keyring: %w", err)
	}
	return nil
}
