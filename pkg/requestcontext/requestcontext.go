// Package requestcontext carries request-scoped values set by the HTTP
// middleware chain: request ID, client metadata and the verified principal.
package requestcontext

import (
	"context"

	id "assura/pkg/domain"
)

type (
	contextKeyRequestID   struct{}
	contextKeyClientIP    struct{}
	contextKeyUserAgent   struct{}
	contextKeyDeviceLabel struct{}
	contextKeyUserID      struct{}
	contextKeyRole        struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// RequestID returns the request ID or "" outside of an HTTP request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyRequestID{}).(string)
	return v
}

// WithClientMetadata stores the resolved client IP and raw User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, ip)
	return context.WithValue(ctx, contextKeyUserAgent{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyClientIP{}).(string)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyUserAgent{}).(string)
	return v
}

func WithDeviceLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, contextKeyDeviceLabel{}, label)
}

// DeviceLabel is a display name such as "Firefox on Linux".
func DeviceLabel(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyDeviceLabel{}).(string)
	return v
}

// WithPrincipal stores the authenticated user and role.
func WithPrincipal(ctx context.Context, userID id.UserID, role id.Role) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID{}, userID)
	return context.WithValue(ctx, contextKeyRole{}, role)
}

// UserID returns the authenticated user, or the zero ID when unauthenticated.
func UserID(ctx context.Context) id.UserID {
	v, _ := ctx.Value(contextKeyUserID{}).(id.UserID)
	return v
}

func Role(ctx context.Context) id.Role {
	v, _ := ctx.Value(contextKeyRole{}).(id.Role)
	return v
}
