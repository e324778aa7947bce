package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hemolink/pkg/domain-errors"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok)
	})

	t.Run("validation includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown blood type: C+"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "unknown blood type: C+", body["error_description"])
	})

	t.Run("store unavailable maps to 503", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeUnavailable, "inventory read failed"))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, assert.AnError)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Normalize() { r.Name = strings.TrimSpace(r.Name) }

func (r *sampleRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder, bool) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, ok := DecodeAndPrepare[sampleRequest](w, r, logger, context.Background(), "req-1")
		return req, w, ok
	}

	t.Run("normalizes and validates", func(t *testing.T) {
		req, _, ok := decode(`{"name":"  st mary  "}`)
		require.True(t, ok)
		assert.Equal(t, "st mary", req.Name)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		_, w, ok := decode(`{"name":`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w)["error"])
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, w, ok := decode(`{"name":"x","extra":1}`)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation failure is reported", func(t *testing.T) {
		_, w, ok := decode(`{"name":"   "}`)
		assert.False(t, ok)
		assert.Equal(t, "validation_error", decodeError(t, w)["error"])
	})
}
