// Package consent is the GDPR consent ledger: per person and data category,
// who granted consent, for what purpose, and when and why it was revoked.
package consent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"assura/internal/gdpr/metrics"
	"assura/internal/gdpr/models"
	"assura/internal/sentinel"
	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	"assura/pkg/platform/middleware/requesttime"
)

// DefaultRevocationReason is recorded when a revocation carries no reason.
const DefaultRevocationReason = "Consent revoked"

// Store persists consent records.
// Error contract:
//   - Insert returns sentinel.ErrConflict when an active record already exists
//   - FindActive returns sentinel.ErrNotFound when no active record exists
//   - Update returns sentinel.ErrNotFound when the record is gone
type Store interface {
	Insert(ctx context.Context, record *models.ConsentRecord) error
	FindActive(ctx context.Context, personID id.PersonID, category models.Category) (*models.ConsentRecord, error)
	Update(ctx context.Context, record *models.ConsentRecord) error
	ListByPerson(ctx context.Context, personID id.PersonID) ([]*models.ConsentRecord, error)
}

// Auditor appends the audit entry of a successful grant or revoke. It must
// write through the same transaction as the Store.
type Auditor interface {
	Record(ctx context.Context, userID id.UserID, personID id.PersonID, action models.Action, details string) error
}

type Option func(*Ledger)

// WithLogger sets the logger for the ledger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics instance for the ledger.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithTermsVersion sets the terms version stamped on new consents.
func WithTermsVersion(v string) Option {
	return func(l *Ledger) {
		if v != "" {
			l.termsVersion = v
		}
	}
}

// Ledger records and revokes consents. Business outcomes are returned as
// booleans; errors are reserved for invalid input and storage failures.
type Ledger struct {
	store        Store
	auditor      Auditor
	logger       *slog.Logger
	metrics      *metrics.Metrics
	termsVersion string
}

func NewLedger(store Store, auditor Auditor, opts ...Option) *Ledger {
	l := &Ledger{
		store:        store,
		auditor:      auditor,
		logger:       slog.Default(),
		termsVersion: models.DefaultTermsVersion,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// HasValidConsent reports whether the person holds an active consent for category.
func (l *Ledger) HasValidConsent(ctx context.Context, personID id.PersonID, category models.Category) (bool, error) {
	if !category.IsValid() {
		return false, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid data category: %s", category))
	}
	_, err := l.store.FindActive(ctx, personID, category)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}
	return true, nil
}

// RecordConsent grants consent for category. It returns false, without
// writing anything, when an active consent already exists.
func (l *Ledger) RecordConsent(ctx context.Context, personID id.PersonID, category models.Category, purpose string, by id.UserID, ip string) (bool, error) {
	purpose = strings.TrimSpace(purpose)
	if !category.IsValid() {
		return false, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid data category: %s", category))
	}
	if purpose == "" {
		return false, dErrors.New(dErrors.CodeBadRequest, "purpose is required")
	}

	_, err := l.store.FindActive(ctx, personID, category)
	if err == nil {
		l.metrics.IncConsentDuplicate(string(category))
		return false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}

	record, err := models.NewConsentRecord(personID, category, purpose, by, requesttime.Now(ctx), l.termsVersion, ip)
	if err != nil {
		return false, err
	}
	if err := l.store.Insert(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race against a concurrent grant.
			l.metrics.IncConsentDuplicate(string(category))
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
	}

	details := fmt.Sprintf("Consent granted for category %s: %s", category, purpose)
	if err := l.auditor.Record(ctx, by, personID, models.ActionConsentGranted, details); err != nil {
		return false, err
	}

	l.metrics.IncConsentGranted(string(category))
	l.logger.InfoContext(ctx, "consent granted",
		"person_id", personID.String(),
		"category", string(category),
		"user_id", by.String(),
	)
	return true, nil
}

// RevokeConsent revokes the active consent for category. It returns false
// when there is nothing to revoke.
func (l *Ledger) RevokeConsent(ctx context.Context, personID id.PersonID, category models.Category, by id.UserID, reason string) (bool, error) {
	if !category.IsValid() {
		return false, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid data category: %s", category))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRevocationReason
	}

	record, err := l.store.FindActive(ctx, personID, category)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}

	if err := record.Revoke(by, reason, requesttime.Now(ctx)); err != nil {
		return false, err
	}
	if err := l.store.Update(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke consent")
	}

	details := fmt.Sprintf("Consent revoked for category %s: %s", category, reason)
	if err := l.auditor.Record(ctx, by, personID, models.ActionConsentRevoked, details); err != nil {
		return false, err
	}

	l.metrics.IncConsentRevoked(string(category))
	l.logger.InfoContext(ctx, "consent revoked",
		"person_id", personID.String(),
		"category", string(category),
		"user_id", by.String(),
	)
	return true, nil
}

// ListConsents returns the person's consent history, newest grant first.
func (l *Ledger) ListConsents(ctx context.Context, personID id.PersonID) ([]*models.ConsentRecord, error) {
	records, err := l.store.ListByPerson(ctx, personID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	return records, nil
}
