// Package users holds the staff accounts that act on insured persons. Token
// issuance and login live outside this service; the records exist so audit
// entries and contracts reference a real user.
package users

import (
	"strings"
	"time"

	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
)

type User struct {
	ID           id.UserID
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Email        string
	Role         id.Role
	IsActive     bool
	CreatedAt    time.Time
}

// NewUser validates the account fields. passwordHash must already be a bcrypt hash.
func NewUser(username, passwordHash, email string, role id.Role, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown role")
	}
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
	}, nil
}
