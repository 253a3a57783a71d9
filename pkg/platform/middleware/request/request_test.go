package request

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assura/pkg/requestcontext"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates UUID when no header provided", func(t *testing.T) {
		var capturedID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedID = requestcontext.RequestID(r.Context())
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gdpr/export/1", nil))

		assert.Len(t, capturedID, 36)
		assert.Equal(t, capturedID, w.Header().Get("X-Request-ID"))
	})

	t.Run("accepts valid client-provided ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "trace.span_1234")
		w := httptest.NewRecorder()
		RequestID(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, "trace.span_1234", w.Header().Get("X-Request-ID"))
	})

	t.Run("replaces unsafe IDs", func(t *testing.T) {
		for _, bad := range []string{
			strings.Repeat("a", MaxRequestIDLength+1),
			"valid\ninjected-log-line",
			"request id",
			`request"id`,
		} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", bad)
			w := httptest.NewRecorder()
			RequestID(okHandler()).ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			assert.NotEqual(t, bad, got)
			assert.Len(t, got, 36)
		}
	})
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gdpr/export/1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestLogger(t *testing.T) {
	t.Run("logs route pattern and anonymized client prefix", func(t *testing.T) {
		var buf bytes.Buffer
		r := chi.NewRouter()
		r.Use(Logger(slog.New(slog.NewJSONHandler(&buf, nil))))
		r.Get("/gdpr/audit-log/{personID}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/gdpr/audit-log/4242", nil)
		req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "203.0.113.77", "curl/8.0"))
		r.ServeHTTP(httptest.NewRecorder(), req)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "http request", line["msg"])
		assert.Equal(t, "INFO", line["level"])
		assert.Equal(t, "/gdpr/audit-log/{personID}", line["route"])
		assert.Equal(t, "203.0.113.0", line["remote_addr_prefix"])
		assert.NotContains(t, buf.String(), "4242")
		assert.NotContains(t, buf.String(), "203.0.113.77")
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		var buf bytes.Buffer
		handler := Logger(slog.New(slog.NewJSONHandler(&buf, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "ERROR", line["level"])
	})

	t.Run("skips healthy probes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := Logger(slog.New(slog.NewJSONHandler(&buf, nil)))(okHandler())
		for _, path := range []string{"/health", "/health/ready", "/metrics"} {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}
		assert.Zero(t, buf.Len())
	})
}

func TestContentTypeJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"json post passes", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"form post rejected", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"delete with text rejected", http.MethodDelete, "text/plain", http.StatusUnsupportedMediaType},
		{"get ignores header", http.MethodGet, "text/plain", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/gdpr/consent/1", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			ContentTypeJSON(okHandler()).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	handler := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gdpr/export/1", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"timeout"}`, w.Body.String())
}

func TestRoutePattern(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			seen = routePattern(req)
		})
	})
	r.Get("/gdpr/export/{personID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/gdpr/export/42", nil))
	assert.Equal(t, "/gdpr/export/{personID}", seen)

	assert.Equal(t, "unmatched", routePattern(httptest.NewRequest(http.MethodGet, "/x", nil)))
}

func TestLatencyMiddleware(t *testing.T) {
	m := NewMetricsWithRegisterer(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/gdpr/export/{personID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/gdpr/export/1", "/gdpr/export/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.requests.WithLabelValues("GET", "/gdpr/export/{personID}", "404")))
	assert.Equal(t, 1, promtestutil.CollectAndCount(m.latency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Observe("GET", "/health", 200, 0.01) })
}
