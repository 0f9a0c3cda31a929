package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorded(status int, write func(http.ResponseWriter)) *http.Response {
	rec := httptest.NewRecorder()
	if write != nil {
		write(rec)
	} else {
		rec.WriteHeader(status)
	}
	return rec.Result()
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		status  int
		message string
		kind    error
	}{
		{
			name: "detail string",
			resp: recorded(0, func(w http.ResponseWriter) {
				Detail(w, http.StatusBadRequest, "Only draft invoices can be deleted.")
			}),
			status:  http.StatusBadRequest,
			message: "Only draft invoices can be deleted.",
			kind:    ErrValidation,
		},
		{
			name: "problem detail",
			resp: recorded(0, func(w http.ResponseWriter) {
				Problem(w, http.StatusConflict, "Duplicate", "email already registered")
			}),
			status:  http.StatusConflict,
			message: "email already registered",
			kind:    ErrConflict,
		},
		{
			name: "fastapi validation list",
			resp: recorded(0, func(w http.ResponseWriter) {
				JSON(w, http.StatusUnprocessableEntity, map[string]any{
					"detail": []map[string]any{{"msg": "field required"}, {"msg": "value is not a valid float"}},
				})
			}),
			status:  http.StatusUnprocessableEntity,
			message: "field required; value is not a valid float",
			kind:    ErrValidation,
		},
		{
			name:    "empty body falls back",
			resp:    recorded(http.StatusBadGateway, nil),
			status:  http.StatusBadGateway,
			message: FallbackMessage,
			kind:    ErrServer,
		},
		{
			name:    "not found",
			resp:    recorded(http.StatusNotFound, nil),
			status:  http.StatusNotFound,
			message: FallbackMessage,
			kind:    ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodeError(tt.resp)
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, ErrUnauthorized, KindFor(http.StatusUnauthorized))
	assert.Equal(t, ErrForbidden, KindFor(http.StatusForbidden))
	assert.Equal(t, ErrServer, KindFor(http.StatusInternalServerError))
}
