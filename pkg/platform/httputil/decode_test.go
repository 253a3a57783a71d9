package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "assura/pkg/domain-errors"
)

type reasonRequest struct {
	Reason string `json:"reason"`
}

type preparedRequest struct {
	Reason     string `json:"reason"`
	sanitized  bool
	normalized bool
}

func (r *preparedRequest) Sanitize() {
	r.sanitized = true
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *preparedRequest) Normalize() { r.normalized = true }

func (r *preparedRequest) Validate() error {
	if r.Reason == "" {
		return errors.New("reason is required")
	}
	return nil
}

type domainValidatedRequest struct {
	Category string `json:"category"`
}

func (r *domainValidatedRequest) Validate() error {
	if r.Category == "" {
		return dErrors.New(dErrors.CodeBadRequest, "category is required")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeJSON(t *testing.T) {
	t.Run("successful decode", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"erasure request"}`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[reasonRequest](w, r, discardLogger())

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.Equal(t, "erasure request", result.Reason)
	})

	t.Run("invalid JSON is a bad request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{nope}`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[reasonRequest](w, r, discardLogger())

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w)["error"])
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"x","extra":1}`))
		w := httptest.NewRecorder()

		_, ok := DecodeJSON[reasonRequest](w, r, discardLogger())

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("trailing values are rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"a"}{"reason":"b"}`))
		w := httptest.NewRecorder()

		_, ok := DecodeJSON[reasonRequest](w, r, discardLogger())

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("oversized body names the limit", func(t *testing.T) {
		big := `{"reason":"` + strings.Repeat("a", MaxBodySize) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		w := httptest.NewRecorder()

		_, ok := DecodeJSON[reasonRequest](w, r, discardLogger())

		assert.False(t, ok)
		assert.Equal(t, "request body too large", decodeError(t, w)["error_description"])
	})

	t.Run("empty body is a bad request", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(""))
		w := httptest.NewRecorder()

		_, ok := DecodeJSON[reasonRequest](w, r, discardLogger())

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("runs every preparation step", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"  customer request  "}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[preparedRequest](w, r, discardLogger())

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.True(t, result.sanitized)
		assert.True(t, result.normalized)
		assert.Equal(t, "customer request", result.Reason)
	})

	t.Run("plain validation error maps to validation_error", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"   "}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[preparedRequest](w, r, discardLogger())

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Contains(t, body["error_description"], "reason is required")
	})

	t.Run("domain validation error keeps its code", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"category":""}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[domainValidatedRequest](w, r, discardLogger())

		assert.False(t, ok)
		assert.Equal(t, "bad_request", decodeError(t, w)["error"])
	})
}
