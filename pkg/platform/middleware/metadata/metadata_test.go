package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"assura/pkg/requestcontext"
)

const firefoxLinux = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

func TestMiddlewareHandler(t *testing.T) {
	tests := []struct {
		name           string
		headers        map[string]string
		remoteAddr     string
		trustedProxies []string
		expectedIP     string
		expectedUA     string
	}{
		{
			name:       "ignores XFF when no trusted proxies",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1", "User-Agent": firefoxLinux},
			remoteAddr: "192.168.1.1:12345",
			expectedIP: "192.168.1.1",
			expectedUA: firefoxLinux,
		},
		{
			name:           "trusts XFF from trusted proxy",
			headers:        map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.2"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.1",
		},
		{
			name:           "trusts X-Real-IP from trusted proxy",
			headers:        map[string]string{"X-Real-IP": "198.51.100.7"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "198.51.100.7",
		},
		{
			name:           "skips trusted hops from the right",
			headers:        map[string]string{"X-Forwarded-For": "198.51.100.9, 203.0.113.1, 10.0.0.3"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.1",
		},
		{
			name:           "IPv4-mapped peer is unmapped before the trust check",
			headers:        map[string]string{"X-Forwarded-For": "203.0.113.5"},
			remoteAddr:     "[::ffff:10.0.0.1]:8080",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.5",
		},
		{
			name:       "unparseable RemoteAddr is unknown",
			remoteAddr: "not-an-addr",
			expectedIP: "unknown",
		},
		{
			name:           "falls back to RemoteAddr on malformed XFF",
			headers:        map[string]string{"X-Forwarded-For": "not-an-ip"},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "10.0.0.1",
		},
		{
			name:       "strips brackets from IPv6 RemoteAddr",
			remoteAddr: "[2001:db8::1]:443",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "truncates oversized user agent",
			headers:    map[string]string{"User-Agent": strings.Repeat("a", 600)},
			remoteAddr: "192.168.1.100:54321",
			expectedIP: "192.168.1.100",
			expectedUA: strings.Repeat("a", MaxUserAgentLength),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedCtx context.Context
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedCtx = r.Context()
				w.WriteHeader(http.StatusOK)
			})

			var prefixes []netip.Prefix
			for _, cidr := range tt.trustedProxies {
				prefixes = append(prefixes, netip.MustParsePrefix(cidr))
			}
			handler := NewMiddleware(prefixes...).Handler(next)

			req := httptest.NewRequest(http.MethodGet, "/gdpr/consent/42/check", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expectedIP, requestcontext.ClientIP(capturedCtx))
			assert.Equal(t, tt.expectedUA, requestcontext.UserAgent(capturedCtx))
			assert.NotEmpty(t, requestcontext.DeviceLabel(capturedCtx))
		})
	}
}

func TestDeviceLabel(t *testing.T) {
	assert.Equal(t, "Unknown Device", DeviceLabel(""))

	label := DeviceLabel(firefoxLinux)
	assert.True(t, strings.HasPrefix(label, "Firefox on "), label)
	assert.Contains(t, label, "Linux")
}
