package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/billingdesk/internal/session"
)

// User is the authenticated account.
type User struct {
	ID        int64     `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Role      string    `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Login exchanges credentials for a bearer token and stores it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("login: username and password are required")
	}
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if out.AccessToken == "" {
		return errors.New("login: server returned no token")
	}
	var err error
	if cs, ok := c.tokens.(session.CredentialStore); ok {
		err = cs.Save(ctx, session.Credentials{Token: out.AccessToken, User: username})
	} else {
		err = c.tokens.SetToken(ctx, out.AccessToken)
	}
	if err != nil {
		return fmt.Errorf("login: store token: %w", err)
	}
	return nil
}

// Me returns the current user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return User{}, fmt.Errorf("current user: %w", err)
	}
	return u, nil
}

// Logout discards the stored token.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Clear(ctx)
}
