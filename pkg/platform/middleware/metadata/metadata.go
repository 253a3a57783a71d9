// Package metadata resolves the client address and User-Agent that the GDPR
// audit log records for every action.
package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"assura/pkg/requestcontext"
)

const (
	// MaxForwardedLength bounds X-Forwarded-For and X-Real-IP.
	MaxForwardedLength = 500
	// MaxUserAgentLength matches the audit log user_agent column.
	MaxUserAgentLength = 500
)

const unknownAddr = "unknown"

// Middleware puts client metadata on the request context. Forwarding
// headers count only when the direct peer is a trusted proxy.
type Middleware struct {
	trusted []netip.Prefix
}

// NewMiddleware trusts forwarding headers from peers inside trustedProxies.
// With none, the socket address is always used.
func NewMiddleware(trustedProxies ...netip.Prefix) *Middleware {
	return &Middleware{trusted: trustedProxies}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent := r.Header.Get("User-Agent")
		if len(userAgent) > MaxUserAgentLength {
			userAgent = userAgent[:MaxUserAgentLength]
		}

		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r), userAgent)
		ctx = requestcontext.WithDeviceLabel(ctx, DeviceLabel(userAgent))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) clientIP(r *http.Request) string {
	peer, ok := parseRemoteAddr(r.RemoteAddr)
	if !ok {
		return unknownAddr
	}
	if !m.isTrusted(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if client, ok := m.forwardedClient(xff); ok {
			return client.String()
		}
		return peer.String()
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && len(xri) <= MaxForwardedLength {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}
	return peer.String()
}

// forwardedClient walks X-Forwarded-For from the right and returns the first
// hop that is not itself a trusted proxy. Entries left of it are client
// controlled and ignored.
func (m *Middleware) forwardedClient(xff string) (netip.Addr, bool) {
	if len(xff) > MaxForwardedLength {
		return netip.Addr{}, false
	}
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return netip.Addr{}, false
		}
		addr = addr.Unmap()
		if i == 0 || !m.isTrusted(addr) {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

func (m *Middleware) isTrusted(addr netip.Addr) bool {
	for _, prefix := range m.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseRemoteAddr accepts "ip:port", "[v6]:port" and a bare address.
func parseRemoteAddr(remoteAddr string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(remoteAddr, "[]")); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

// DeviceLabel returns "Browser on OS" for a User-Agent, e.g. "Firefox on Linux".
func DeviceLabel(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	system := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		system = ua.Platform()
	}
	if system == "" {
		system = "Unknown OS"
	}
	return browser + " on " + system
}
