package requestcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	id "assura/pkg/domain"
)

func TestRequestContext(t *testing.T) {
	t.Run("empty context yields zero values", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, RequestID(ctx))
		assert.Empty(t, ClientIP(ctx))
		assert.Empty(t, UserAgent(ctx))
		assert.True(t, UserID(ctx).IsNil())
		assert.Empty(t, Role(ctx))
	})

	t.Run("round-trips stored values", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		ctx = WithClientMetadata(ctx, "203.0.113.9", "curl/8.0")
		ctx = WithDeviceLabel(ctx, "curl on Linux")
		ctx = WithPrincipal(ctx, id.UserID(1), id.RoleAdmin)

		assert.Equal(t, "req-1", RequestID(ctx))
		assert.Equal(t, "203.0.113.9", ClientIP(ctx))
		assert.Equal(t, "curl/8.0", UserAgent(ctx))
		assert.Equal(t, "curl on Linux", DeviceLabel(ctx))
		assert.Equal(t, id.UserID(1), UserID(ctx))
		assert.Equal(t, id.RoleAdmin, Role(ctx))
	})
}
