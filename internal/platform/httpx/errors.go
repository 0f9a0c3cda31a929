// Package httpx provides HTTP helpers shared by the billing API client and
// its test backend.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Sentinel errors matched with errors.Is on an *Error.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrServer       = errors.New("server error")
)

// FallbackMessage is shown when the server sent no usable detail.
const FallbackMessage = "Request failed"

// Error is a non-2xx response from the billing API.
type Error struct {
	Status  int
	Message string
	kind    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Unwrap exposes the sentinel matching the status code.
func (e *Error) Unwrap() error {
	return e.kind
}

// KindFor maps a status code to its sentinel.
func KindFor(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	}
	return ErrServer
}

// DecodeError builds an *Error from a failed response, preferring the
// server's detail message.
func DecodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := detailMessage(body)
	if msg == "" {
		msg = FallbackMessage
	}
	return &Error{Status: resp.StatusCode, Message: msg, kind: KindFor(resp.StatusCode)}
}

// detailMessage understands {"detail": "..."}, FastAPI style
// {"detail": [{"msg": "..."}]} and RFC7807 bodies.
func detailMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Title  string          `json:"title"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil && strings.TrimSpace(text) != "" {
		return text
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return payload.Title
}
