package jwttoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	"assura/pkg/platform/middleware/requesttime"
)

// Defaults shared by the server and cmd/tokengen.
const (
	DefaultIssuer   = "assura"
	DefaultAudience = "assura-api"
	DefaultTokenTTL = 15 * time.Minute
)

// AccessTokenClaims carries the caller identity. The subject is the user ID.
type AccessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 access tokens. The server only verifies;
// signing exists for cmd/tokengen and tests.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

func NewJWTService(signingKey, issuer, audience string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

func (s *JWTService) GenerateAccessToken(ctx context.Context, userID id.UserID, role id.Role) (string, error) {
	if userID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user ID cannot be empty")
	}
	if !role.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := requesttime.Now(ctx)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        hex.EncodeToString(b),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken checks signature, algorithm, expiry, issuer and audience.
func (s *JWTService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
