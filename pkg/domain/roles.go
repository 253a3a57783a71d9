package domain

import (
	"strings"

	dErrors "assura/pkg/domain-errors"
)

// Role is the access level carried in a verified bearer token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleBroker   Role = "broker"
	RoleAdjuster Role = "adjuster"
	RoleClient   Role = "client"
)

// IsValid returns true if the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleBroker, RoleAdjuster, RoleClient:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts any casing of a known role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	return r, nil
}
