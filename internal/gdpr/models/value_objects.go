package models

import (
	"strings"

	dErrors "assura/pkg/domain-errors"
)

// Category classifies personal data for consent and export purposes.
type Category string

const (
	CategoryGeneral        Category = "general"
	CategoryIdentification Category = "identification"
	CategoryContact        Category = "contact"
	CategoryFinancial      Category = "financial"
	CategoryHealth         Category = "health"
	CategorySensitive      Category = "sensitive"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryGeneral,
	CategoryIdentification,
	CategoryContact,
	CategoryFinancial,
	CategoryHealth,
	CategorySensitive,
}

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts both the wire form ("contact") and the PascalCase
// name ("Contact"), case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid data category: "+s)
	}
	return c, nil
}

// Action tags an audit entry with the operation that produced it.
type Action string

const (
	ActionView           Action = "view"
	ActionEdit           Action = "edit"
	ActionExport         Action = "export"
	ActionAnonymize      Action = "anonymize"
	ActionConsentGranted Action = "consent_granted"
	ActionConsentRevoked Action = "consent_revoked"
	ActionCreate         Action = "create"
	ActionDelete         Action = "delete"
)

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionView, ActionEdit, ActionExport, ActionAnonymize,
		ActionConsentGranted, ActionConsentRevoked, ActionCreate, ActionDelete:
		return true
	}
	return false
}

func (a Action) String() string { return string(a) }
