// Package audit is the append-only GDPR audit trail: who accessed, changed,
// exported or anonymized which person's data, when and from where.
package audit

import (
	"context"
	"iter"
	"log/slog"

	"assura/internal/gdpr/models"
	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	"assura/pkg/platform/middleware/requesttime"
	"assura/pkg/requestcontext"
)

// Store persists audit entries. Append assigns the entry ID. Query yields
// entries newest first and must be safe to range over more than once.
type Store interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	Query(ctx context.Context, personID id.PersonID, r models.TimeRange) iter.Seq2[models.AuditEntry, error]
}

// Log appends and queries audit entries.
type Log struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Log)

// WithLogger sets the logger for the audit log.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

func NewLog(store Store, opts ...Option) *Log {
	l := &Log{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewEntry builds an entry stamped with the request time and the caller's
// IP and user agent from ctx. The audit trail keeps the raw IP.
func NewEntry(ctx context.Context, userID id.UserID, personID id.PersonID, action models.Action, details string) *models.AuditEntry {
	return &models.AuditEntry{
		UserID:    userID,
		PersonID:  personID,
		Action:    action,
		Details:   details,
		IPAddress: requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		Timestamp: requesttime.Now(ctx),
	}
}

// Append writes entry. Storage failures are returned so the caller's
// transaction fails with them.
func (l *Log) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.PersonID.IsNil() || entry.UserID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "audit entry needs a person and a user")
	}
	if !entry.Action.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid audit action")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requesttime.Now(ctx)
	}
	if err := l.store.Append(ctx, entry); err != nil {
		l.logger.ErrorContext(ctx, "failed to append audit entry",
			"person_id", entry.PersonID.String(),
			"action", string(entry.Action),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	return nil
}

// Record is Append over NewEntry.
func (l *Log) Record(ctx context.Context, userID id.UserID, personID id.PersonID, action models.Action, details string) error {
	return l.Append(ctx, NewEntry(ctx, userID, personID, action, details))
}

// Query returns the person's entries inside r, newest first. The sequence
// is lazy and restartable: each range re-reads the store.
func (l *Log) Query(ctx context.Context, personID id.PersonID, r models.TimeRange) iter.Seq2[models.AuditEntry, error] {
	if err := r.Validate(); err != nil {
		return func(yield func(models.AuditEntry, error) bool) {
			yield(models.AuditEntry{}, err)
		}
	}
	return l.store.Query(ctx, personID, r)
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[models.AuditEntry, error]) ([]models.AuditEntry, error) {
	entries := []models.AuditEntry{}
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
