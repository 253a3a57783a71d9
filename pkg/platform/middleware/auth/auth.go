package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	id "assura/pkg/domain"
	"assura/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID string
	Role   string
	JTI    string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// parseClaims converts the string claims to typed values.
func parseClaims(claims *JWTClaims) (id.UserID, id.Role, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return 0, "", fmt.Errorf("invalid sub: %w", err)
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return 0, "", fmt.Errorf("invalid role: %w", err)
	}
	return userID, role, nil
}

// RequireAuth returns middleware that verifies bearer tokens and stores the
// principal (user ID and role) in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			userID, role, err := parseClaims(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, userID, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects principals whose role is not listed. It must run after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...id.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role := requestcontext.Role(ctx)
			if !slices.Contains(roles, role) {
				logger.WarnContext(ctx, "forbidden - role not permitted",
					"role", role.String(),
					"user_id", requestcontext.UserID(ctx).String(),
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Insufficient role for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
