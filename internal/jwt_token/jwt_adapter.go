package jwttoken

import (
	"assura/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes JWTService through the auth middleware's validator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*auth.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.JWTClaims{
		UserID: claims.Subject,
		Role:   claims.Role,
		JTI:    claims.ID,
	}, nil
}
