package service

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"time"

	"assura/internal/encryption"
	"assura/internal/gdpr/audit"
	"assura/internal/gdpr/consent"
	"assura/internal/gdpr/metrics"
	"assura/internal/gdpr/models"
	insured "assura/internal/insured/models"
	"assura/internal/platform/tracer"
	"assura/internal/sentinel"
	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	"assura/pkg/platform/middleware/requesttime"
	"assura/pkg/requestcontext"
)

// PersonStore is the slice of the insured store the GDPR operations need.
// Error contract: Find* and UpdatePerson return sentinel.ErrNotFound for a
// missing person; UpdatePerson returns CodeCrypto when sealing fails.
type PersonStore interface {
	FindPerson(ctx context.Context, personID id.PersonID) (*insured.Person, error)
	FindPersonForUpdate(ctx context.Context, personID id.PersonID) (*insured.Person, error)
	UpdatePerson(ctx context.Context, p *insured.Person) error
	ListContractsByPerson(ctx context.Context, personID id.PersonID) ([]*insured.Contract, error)
	ListClaimsByPerson(ctx context.Context, personID id.PersonID) ([]*insured.Claim, error)
	ListContractFiles(ctx context.Context, contractIDs []id.ContractID) ([]*insured.ContractFile, error)
	ListClaimFiles(ctx context.Context, claimIDs []id.ClaimID) ([]*insured.ClaimFile, error)
}

// Stores bundles the stores a GDPR operation touches. Inside RunInTx they
// all share one transaction.
type Stores struct {
	Persons  PersonStore
	Consents consent.Store
	Audit    audit.Store
}

type Option func(*Service)

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRegistry sets the classification registry the export resolves
// field metadata from. Without one, exports fail with a configuration error.
func WithRegistry(r *encryption.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer; the default records nothing.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithTermsVersion sets the terms version stamped on new consents.
func WithTermsVersion(v string) Option {
	return func(s *Service) {
		s.termsVersion = v
	}
}

// Service is the GDPR orchestrator: export, anonymization and the consent
// and audit operations exposed to the API.
type Service struct {
	stores       Stores
	tx           TxRunner
	schema       *encryption.Schema[insured.Person]
	registry     *encryption.Registry
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       tracer.Tracer
	termsVersion string
}

// New builds the orchestrator. stores serve reads outside transactions;
// tx opens transactions for mutations.
func New(stores Stores, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		stores:       stores,
		tx:           tx,
		schema:       insured.PersonSchema,
		logger:       slog.Default(),
		tracer:       tracer.NewNoop(),
		termsVersion: models.DefaultTermsVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ledger(st Stores) *consent.Ledger {
	return consent.NewLedger(st.Consents, s.auditLog(st),
		consent.WithLogger(s.logger),
		consent.WithMetrics(s.metrics),
		consent.WithTermsVersion(s.termsVersion),
	)
}

func (s *Service) auditLog(st Stores) *audit.Log {
	return audit.NewLog(st.Audit, audit.WithLogger(s.logger))
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveOperation(op, time.Since(start).Seconds())
}

// CanAnonymize is the read-only eligibility probe.
func (s *Service) CanAnonymize(ctx context.Context, personID id.PersonID) (eligible bool, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGDPRCanAnonymize, tracer.Int64(tracer.AttrPersonID, int64(personID)))
	defer func() { span.End(err) }()

	if _, err := s.stores.Persons.FindPerson(ctx, personID); err != nil {
		return false, translatePersonError(err)
	}
	eligible, err = s.checkEligibility(ctx, s.stores.Persons, personID)
	if err != nil {
		return false, err
	}
	span.SetAttributes(tracer.Bool(tracer.AttrEligible, eligible))
	s.metrics.IncEligibilityCheck(eligible)
	return eligible, nil
}

// checkEligibility: no Active contract, and no unresolved claim on any of
// the person's contracts. No contracts or claims is eligible.
func (s *Service) checkEligibility(ctx context.Context, persons PersonStore, personID id.PersonID) (bool, error) {
	contracts, err := persons.ListContractsByPerson(ctx, personID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contracts")
	}
	claims, err := persons.ListClaimsByPerson(ctx, personID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claims")
	}
	return Eligible(contracts, claims), nil
}

// Eligible applies the anonymization rule to a person's contracts and claims.
// Only claims filed on one of the given contracts are considered.
func Eligible(contracts []*insured.Contract, claims []*insured.Claim) bool {
	owned := make(map[id.ContractID]struct{}, len(contracts))
	for _, c := range contracts {
		if c.Status == insured.ContractActive {
			return false
		}
		owned[c.ID] = struct{}{}
	}
	for _, cl := range claims {
		if cl.ContractID == nil {
			continue
		}
		if _, ok := owned[*cl.ContractID]; ok && !cl.Status.IsResolved() {
			return false
		}
	}
	return true
}

// AnonymizePersonalData irreversibly overwrites the person's identifying
// fields. Inside one transaction it locks the person, re-checks
// eligibility, persists the sentinels and appends the audit entry. It
// returns false without writing anything when the person is not eligible.
func (s *Service) AnonymizePersonalData(ctx context.Context, personID id.PersonID, reason string, by id.UserID) (anonymized bool, err error) {
	start := time.Now()
	defer s.observe("anonymize", start)
	ctx, span := s.tracer.Start(ctx, tracer.SpanGDPRAnonymize, tracer.Int64(tracer.AttrPersonID, int64(personID)))
	defer func() { span.End(err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return false, dErrors.New(dErrors.CodeBadRequest, "reason is required")
	}
	if by.IsNil() {
		return false, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}

	err = s.tx.RunInTx(ctx, personID, func(ctx context.Context, st Stores) error {
		person, err := st.Persons.FindPersonForUpdate(ctx, personID)
		if err != nil {
			return translatePersonError(err)
		}
		eligible, err := s.checkEligibility(ctx, st.Persons, personID)
		if err != nil {
			return err
		}
		if !eligible {
			return nil
		}

		person.Anonymize(requesttime.Now(ctx))
		if err := st.Persons.UpdatePerson(ctx, person); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist anonymized person")
		}
		if err := s.auditLog(st).Record(ctx, by, personID, models.ActionAnonymize, "Data anonymization: "+reason); err != nil {
			return err
		}
		anonymized = true
		return nil
	})
	if err != nil {
		s.metrics.IncAnonymization("error")
		return false, err
	}

	outcome := "anonymized"
	if !anonymized {
		outcome = "not_eligible"
	}
	s.metrics.IncAnonymization(outcome)
	span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome))
	s.logger.InfoContext(ctx, "anonymization finished",
		"person_id", personID.String(),
		"user_id", by.String(),
		"outcome", outcome,
		"request_id", requestcontext.RequestID(ctx),
	)
	return anonymized, nil
}

// HasValidConsent reports whether the person holds an active consent for category.
func (s *Service) HasValidConsent(ctx context.Context, personID id.PersonID, category models.Category) (bool, error) {
	return s.ledger(s.stores).HasValidConsent(ctx, personID, category)
}

// RecordConsent grants consent in a transaction with its audit entry. The
// caller's IP from ctx is stored on the record.
func (s *Service) RecordConsent(ctx context.Context, personID id.PersonID, category models.Category, purpose string, by id.UserID) (granted bool, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGDPRConsent,
		tracer.Int64(tracer.AttrPersonID, int64(personID)),
		tracer.String(tracer.AttrCategory, string(category)))
	defer func() { span.End(err) }()

	err = s.tx.RunInTx(ctx, personID, func(ctx context.Context, st Stores) error {
		// The person lock serialises grants, so the unique index never aborts the tx.
		if _, err := st.Persons.FindPersonForUpdate(ctx, personID); err != nil {
			return translatePersonError(err)
		}
		var err error
		granted, err = s.ledger(st).RecordConsent(ctx, personID, category, purpose, by, requestcontext.ClientIP(ctx))
		return err
	})
	if err != nil {
		return false, err
	}
	span.SetAttributes(tracer.Bool(tracer.AttrOutcome, granted))
	return granted, nil
}

// RevokeConsent revokes the active consent in a transaction with its audit entry.
func (s *Service) RevokeConsent(ctx context.Context, personID id.PersonID, category models.Category, by id.UserID, reason string) (revoked bool, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGDPRConsent,
		tracer.Int64(tracer.AttrPersonID, int64(personID)),
		tracer.String(tracer.AttrCategory, string(category)))
	defer func() { span.End(err) }()

	err = s.tx.RunInTx(ctx, personID, func(ctx context.Context, st Stores) error {
		if _, err := st.Persons.FindPersonForUpdate(ctx, personID); err != nil {
			return translatePersonError(err)
		}
		var err error
		revoked, err = s.ledger(st).RevokeConsent(ctx, personID, category, by, reason)
		return err
	})
	if err != nil {
		return false, err
	}
	span.SetAttributes(tracer.Bool(tracer.AttrOutcome, revoked))
	return revoked, nil
}

// ListConsents returns the person's consent history, newest grant first.
func (s *Service) ListConsents(ctx context.Context, personID id.PersonID) ([]*models.ConsentRecord, error) {
	return s.ledger(s.stores).ListConsents(ctx, personID)
}

// AuditLog streams the person's audit trail inside r, newest first.
func (s *Service) AuditLog(ctx context.Context, personID id.PersonID, r models.TimeRange) iter.Seq2[models.AuditEntry, error] {
	return s.auditLog(s.stores).Query(ctx, personID, r)
}

// GetAuditLog collects the person's audit trail inside r, newest first.
func (s *Service) GetAuditLog(ctx context.Context, personID id.PersonID, r models.TimeRange) (entries []models.AuditEntry, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGDPRAuditQuery,
		tracer.Int64(tracer.AttrPersonID, int64(personID)),
		tracer.Bool(tracer.AttrAuditHasWindow, r.From != nil || r.To != nil))
	defer func() { span.End(err) }()

	entries, err = audit.Collect(s.AuditLog(ctx, personID, r))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit log")
	}
	span.SetAttributes(tracer.Int(tracer.AttrAuditEntries, len(entries)))
	return entries, nil
}

func translatePersonError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "insured person not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load insured person")
}
