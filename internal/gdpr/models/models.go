package models

import (
	"time"

	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
)

// DefaultTermsVersion is recorded on consents when no terms version is configured.
const DefaultTermsVersion = "1.0"

// ConsentRecord captures a person's consent for one data category.
//
// At most one record per (PersonID, Category) is active. A record is
// created active and only ever transitions to revoked; records are never
// deleted so the ledger keeps the full history.
type ConsentRecord struct {
	ID               id.ConsentID
	PersonID         id.PersonID
	Category         Category
	Purpose          string
	GrantedAt        time.Time
	GrantedBy        id.UserID
	RevokedAt        *time.Time
	RevokedBy        *id.UserID
	RevocationReason string
	TermsVersion     string
	IPAddress        string
}

// NewConsentRecord creates an active ConsentRecord with domain invariant checks.
func NewConsentRecord(personID id.PersonID, category Category, purpose string, grantedBy id.UserID, grantedAt time.Time, termsVersion, ip string) (*ConsentRecord, error) {
	if personID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "person ID required")
	}
	if grantedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "granting user required")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid data category")
	}
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "purpose required")
	}
	if grantedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "grant time required")
	}
	if termsVersion == "" {
		termsVersion = DefaultTermsVersion
	}
	return &ConsentRecord{
		PersonID:     personID,
		Category:     category,
		Purpose:      purpose,
		GrantedAt:    grantedAt,
		GrantedBy:    grantedBy,
		TermsVersion: termsVersion,
		IPAddress:    ip,
	}, nil
}

// IsActive reports whether the consent has not been revoked.
func (c ConsentRecord) IsActive() bool {
	return c.RevokedAt == nil
}

// Revoke marks the record revoked. Revoking twice is an invariant violation.
func (c *ConsentRecord) Revoke(by id.UserID, reason string, at time.Time) error {
	if c.RevokedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "consent already revoked")
	}
	c.RevokedAt = &at
	c.RevokedBy = &by
	c.RevocationReason = reason
	return nil
}

// AuditEntry is one immutable line of the GDPR audit trail.
type AuditEntry struct {
	ID        id.AuditEntryID
	UserID    id.UserID
	PersonID  id.PersonID
	Action    Action
	Details   string
	IPAddress string
	UserAgent string
	Timestamp time.Time
}

// TimeRange bounds an audit query. Nil ends are open; both ends are inclusive.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Validate rejects ranges whose start is after their end.
func (r TimeRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return dErrors.New(dErrors.CodeBadRequest, "from must not be after to")
	}
	return nil
}
