package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler() *Handler {
	return NewWithLogger("test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("liveness is always ok", func(t *testing.T) {
		w := serve(newHandler(), "/health/live")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("status lists environment and checks", func(t *testing.T) {
		h := newHandler()
		h.RegisterCheck("encryption", func(context.Context) error { return nil })
		h.RegisterCheck("database", func(context.Context) error { return nil })

		var resp StatusResponse
		require.NoError(t, json.Unmarshal(serve(h, "/health").Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "test", resp.Environment)
		assert.Equal(t, []string{"database", "encryption"}, resp.Checks)
	})

	t.Run("readiness fails without leaking the cause", func(t *testing.T) {
		h := newHandler()
		h.RegisterCheck("database", func(context.Context) error { return errors.New("password authentication failed for user assura") })
		h.RegisterCheck("encryption", func(context.Context) error { return nil })

		w := serve(h, "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "down", resp.Checks["database"])
		assert.Equal(t, "up", resp.Checks["encryption"])
	})

	t.Run("checks respect the timeout", func(t *testing.T) {
		h := newHandler()
		h.RegisterCheck("database", func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			if !ok {
				return errors.New("no deadline")
			}
			return nil
		})
		assert.Equal(t, http.StatusOK, serve(h, "/health/ready").Code)
	})
}
