// Package api is the authenticated client for the billing REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/billingdesk/internal/platform/httpx"
	"github.com/odyssey-erp/billingdesk/internal/session"
)

// Error is a non-2xx response carrying the server message when available.
type Error = httpx.Error

// Sentinels matched with errors.Is against any client error.
var (
	ErrUnauthorized = httpx.ErrUnauthorized
	ErrNotFound     = httpx.ErrNotFound
	ErrForbidden    = httpx.ErrForbidden
	ErrValidation   = httpx.ErrValidation
)

// RequestIDHeader carries a per request identifier for log correlation.
const RequestIDHeader = "X-Request-ID"

// Params groups the dependencies of a Client.
type Params struct {
	BaseURL    string
	Tokens     session.TokenStore
	HTTPClient *http.Client
	Logger     *slog.Logger
	// OnUnauthorized runs after a 401 once the stored token is discarded.
	OnUnauthorized        func()
	DuplicateCheckTimeout time.Duration
}

// Client talks to the billing backend.
type Client struct {
	base           *url.URL
	http           *http.Client
	tokens         session.TokenStore
	logger         *slog.Logger
	onUnauthorized func()
	dupTimeout     time.Duration
	searches       singleflight.Group
}

// New constructs a Client.
func New(p Params) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(p.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", p.BaseURL)
	}
	if p.Tokens == nil {
		return nil, errors.New("api: token store required")
	}
	c := &Client{
		base:           base,
		http:           p.HTTPClient,
		tokens:         p.Tokens,
		logger:         p.Logger,
		onUnauthorized: p.OnUnauthorized,
		dupTimeout:     p.DuplicateCheckTimeout,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.dupTimeout <= 0 {
		c.dupTimeout = 5 * time.Second
	}
	return c, nil
}

// do performs a JSON request against path (relative to /api). out may be
// nil. A 401 discards the stored token and reports ErrUnauthorized.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", req.Header.Get(RequestIDHeader)),
		slog.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(ctx)
		return httpx.DecodeError(resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpx.DecodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/api" + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())

	token, err := c.tokens.Token(ctx)
	switch {
	case err == nil:
		req.Header.Set("Authorization", "Bearer "+token)
	case errors.Is(err, session.ErrNoToken):
	default:
		c.logger.Warn("read stored token", slog.Any("error", err))
	}
	return req, nil
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Warn("discard token after 401", slog.Any("error", err))
	}
	c.logger.Info("session expired, login required")
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
