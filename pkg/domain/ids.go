// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strconv"

	dErrors "assura/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing PersonID where ContractID is expected.
// All identifiers are database-assigned positive integers.
type (
	UserID       int64
	PersonID     int64
	ContractID   int64
	ClaimID      int64
	FileID       int64
	ConsentID    int64
	AuditEntryID int64
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseInt(s, "user ID")
	return UserID(id), err
}

func ParsePersonID(s string) (PersonID, error) {
	id, err := parseInt(s, "person ID")
	return PersonID(id), err
}

func ParseContractID(s string) (ContractID, error) {
	id, err := parseInt(s, "contract ID")
	return ContractID(id), err
}

func ParseClaimID(s string) (ClaimID, error) {
	id, err := parseInt(s, "claim ID")
	return ClaimID(id), err
}

// String methods - for logging and debugging.

func (id UserID) String() string       { return strconv.FormatInt(int64(id), 10) }
func (id PersonID) String() string     { return strconv.FormatInt(int64(id), 10) }
func (id ContractID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id ClaimID) String() string      { return strconv.FormatInt(int64(id), 10) }
func (id FileID) String() string       { return strconv.FormatInt(int64(id), 10) }
func (id ConsentID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id AuditEntryID) String() string { return strconv.FormatInt(int64(id), 10) }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool     { return id == 0 }
func (id PersonID) IsNil() bool   { return id == 0 }
func (id ContractID) IsNil() bool { return id == 0 }
func (id ClaimID) IsNil() bool    { return id == 0 }

// parseInt is the shared validation logic. Zero and negative values are
// rejected because the database never assigns them.
func parseInt(s, label string) (int64, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" must be positive")
	}
	return id, nil
}
