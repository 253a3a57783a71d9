package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"assura/internal/encryption"
	"assura/internal/gdpr/audit"
	"assura/internal/gdpr/metrics"
	"assura/internal/gdpr/models"
	gdprstore "assura/internal/gdpr/store"
	insured "assura/internal/insured/models"
	insuredstore "assura/internal/insured/store"
	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	"assura/pkg/platform/middleware/requesttime"
	"assura/pkg/requestcontext"
)

const (
	testKey = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
	testIV  = "AAECAwQFBgcICQoLDA0ODw=="

	admin id.UserID = 1
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	clock    time.Time
	persons  *insuredstore.InMemoryStore
	consents *gdprstore.InMemoryConsentStore
	audit    *gdprstore.InMemoryAuditStore
	metrics  *metrics.Metrics
	registry *encryption.Registry
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	engine, err := encryption.NewEngineFromBase64(testKey, testIV)
	s.Require().NoError(err)
	codec := encryption.NewCodec(insured.PersonSchema, engine,
		encryption.WithMetrics(encryption.NewMetrics(prometheus.NewRegistry())))

	s.persons = insuredstore.NewInMemoryStore(codec)
	s.consents = gdprstore.NewInMemoryConsentStore()
	s.audit = gdprstore.NewInMemoryAuditStore()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.registry, err = insured.NewRegistry()
	s.Require().NoError(err)

	stores := Stores{Persons: s.persons, Consents: s.consents, Audit: s.audit}
	s.service = New(stores, NewShardedTx(stores, s.metrics), WithMetrics(s.metrics), WithRegistry(s.registry))

	s.clock = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithClientMetadata(context.Background(), "203.0.113.7", "curl/8.5")
}

// tick returns a context whose request time is one minute after the last.
func (s *ServiceSuite) tick() context.Context {
	s.clock = s.clock.Add(time.Minute)
	return requesttime.WithTime(s.ctx, s.clock)
}

func (s *ServiceSuite) createPerson() *insured.Person {
	p := &insured.Person{
		FirstName:   "Jan",
		LastName:    "Novák",
		DateOfBirth: time.Date(1980, 5, 15, 0, 0, 0, 0, time.UTC),
		Phone:       "+420 601 123 456",
		Email:       "jan.novak@example.com",
		Address:     "Vinohradská 12, Praha",
		NationalID:  "8005150123",
		IsActive:    true,
	}
	s.Require().NoError(s.persons.CreatePerson(context.Background(), p))
	return p
}

func (s *ServiceSuite) createContract(personID id.PersonID, status insured.ContractStatus) *insured.Contract {
	c := &insured.Contract{
		ContractNumber:  "PC-2024-0001",
		InsuranceType:   insured.InsuranceProperty,
		InsuredAmount:   250000000,
		InsuranceLimit:  200000000,
		Status:          status,
		ValidFrom:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		InsuredPersonID: personID,
	}
	s.Require().NoError(s.persons.CreateContract(context.Background(), c))
	return c
}

func (s *ServiceSuite) createClaim(personID id.PersonID, contractID *id.ContractID, status insured.ClaimStatus) *insured.Claim {
	c := &insured.Claim{
		ClaimNumber:       "CL-2024-0001",
		IncidentAt:        time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC),
		DamageDescription: "Water damage in the kitchen",
		IncidentLocation:  "Praha",
		Status:            status,
		ContractID:        contractID,
		InsuredPersonID:   personID,
	}
	s.Require().NoError(s.persons.CreateClaim(context.Background(), c))
	return c
}

func (s *ServiceSuite) auditTrail(personID id.PersonID) []models.AuditEntry {
	entries, err := audit.Collect(s.service.AuditLog(s.ctx, personID, models.TimeRange{}))
	s.Require().NoError(err)
	return entries
}

func (s *ServiceSuite) TestExportMissingPersonWritesNoAudit() {
	_, err := s.service.ExportPersonalData(s.tick(), 99, admin)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Zero(s.audit.Len())
}

func (s *ServiceSuite) TestExportResolvesMetadataThroughRegistry() {
	p := s.createPerson()
	stores := Stores{Persons: s.persons, Consents: s.consents, Audit: s.audit}

	bare := New(stores, NewShardedTx(stores, s.metrics), WithMetrics(s.metrics))
	_, err := bare.ExportPersonalData(s.tick(), p.ID, admin)
	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))

	empty := New(stores, NewShardedTx(stores, s.metrics), WithMetrics(s.metrics), WithRegistry(encryption.NewRegistry()))
	_, err = empty.ExportPersonalData(s.tick(), p.ID, admin)
	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	s.Zero(s.audit.Len(), "a misconfigured export is not audited")

	// Metadata comes from the registry, not the schema.
	relabelled := encryption.NewRegistry()
	fields := insured.PersonSchema.Fields()
	fields[0].Purpose = "Name on the policy"
	s.Require().NoError(relabelled.Register(insured.KindPerson, fields[:1]))
	custom := New(stores, NewShardedTx(stores, s.metrics), WithMetrics(s.metrics), WithRegistry(relabelled))
	export, err := custom.ExportPersonalData(s.tick(), p.ID, admin)
	s.Require().NoError(err)
	s.Require().Len(export.PersonalData, 1)
	s.Equal(insured.FieldFirstName, export.PersonalData[0].Field)
	s.Equal("Name on the policy", export.PersonalData[0].Purpose)
	s.Equal("Jan", export.PersonalData[0].Value)
}

func (s *ServiceSuite) TestExportPersonalData() {
	p := s.createPerson()
	contract := s.createContract(p.ID, insured.ContractTerminated)
	nested := s.createClaim(p.ID, &contract.ID, insured.ClaimResolved)
	standalone := s.createClaim(p.ID, nil, insured.ClaimReported)
	s.Require().NoError(s.persons.CreateContractFile(context.Background(), &insured.ContractFile{
		FileName: "policy.pdf", FileType: "application/pdf", FileSize: 2048, ContractID: contract.ID,
	}))
	s.Require().NoError(s.persons.CreateClaimFile(context.Background(), &insured.ClaimFile{
		FileName: "kitchen.jpg", FileType: "image/jpeg", FileSize: 4096, Category: insured.FilePhoto, ClaimID: nested.ID,
	}))
	_, err := s.service.RecordConsent(s.tick(), p.ID, models.CategoryContact, "Marketing e-mails", admin)
	s.Require().NoError(err)

	ctx := s.tick()
	export, err := s.service.ExportPersonalData(ctx, p.ID, admin)
	s.Require().NoError(err)

	s.Equal(int64(p.ID), export.PersonID)
	s.Equal(int64(admin), export.RequestedBy)
	s.Equal(s.clock, export.ExportedAt)

	values := map[string]any{}
	for _, f := range export.PersonalData {
		values[f.Field] = f.Value
	}
	s.Equal("Jan", values[insured.FieldFirstName])
	s.Equal("8005150123", values[insured.FieldNationalID], "fields leave the store decrypted")
	s.Equal("1980-05-15", values["DateOfBirth"])
	s.NotContains(values, "IDCardNumber", "empty fields are omitted")

	s.Require().Len(export.Contracts, 1)
	s.Require().Len(export.Contracts[0].Claims, 1)
	s.Equal(int64(nested.ID), export.Contracts[0].Claims[0].ID)
	s.Len(export.Contracts[0].Claims[0].Files, 1)
	s.Len(export.Contracts[0].Files, 1)
	s.Equal("2500000.00", export.Contracts[0].InsuredAmount)

	s.Require().Len(export.Claims, 1)
	s.Equal(int64(standalone.ID), export.Claims[0].ID)
	s.Nil(export.Claims[0].ContractID)

	s.Require().Len(export.Consents, 1)
	s.True(export.Consents[0].IsActive)

	trail := s.auditTrail(p.ID)
	s.Require().Len(trail, 2)
	s.Equal(models.ActionExport, trail[0].Action)
	s.Equal("Personal data export", trail[0].Details)
	s.Equal("203.0.113.7", trail[0].IPAddress)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.Exports))
}

func (s *ServiceSuite) TestCanAnonymize() {
	s.Run("missing person", func() {
		_, err := s.service.CanAnonymize(s.ctx, 99)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	p := s.createPerson()
	s.Run("no contracts or claims", func() {
		ok, err := s.service.CanAnonymize(s.ctx, p.ID)
		s.Require().NoError(err)
		s.True(ok)
	})

	contract := s.createContract(p.ID, insured.ContractActive)
	s.Run("active contract blocks", func() {
		ok, err := s.service.CanAnonymize(s.ctx, p.ID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Require().NoError(s.persons.UpdateContractStatus(context.Background(), contract.ID, insured.ContractTerminated))
	claim := s.createClaim(p.ID, &contract.ID, insured.ClaimInProgress)
	s.Run("unresolved claim blocks", func() {
		ok, err := s.service.CanAnonymize(s.ctx, p.ID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Require().NoError(s.persons.UpdateClaimStatus(context.Background(), claim.ID, insured.ClaimRejected))
	s.createClaim(p.ID, nil, insured.ClaimOpen)
	s.Run("rejected claim and claims without a contract do not block", func() {
		ok, err := s.service.CanAnonymize(s.ctx, p.ID)
		s.Require().NoError(err)
		s.True(ok)
	})
}

func (s *ServiceSuite) TestAnonymizeIneligibleChangesNothing() {
	p := s.createPerson()
	s.createContract(p.ID, insured.ContractActive)

	ok, err := s.service.AnonymizePersonalData(s.tick(), p.ID, "Customer request", admin)
	s.Require().NoError(err)
	s.False(ok)

	got, err := s.persons.FindPerson(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Jan", got.FirstName)
	s.Zero(s.audit.Len())
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.Anonymizations.WithLabelValues("not_eligible")))
}

func (s *ServiceSuite) TestAnonymizePersonalData() {
	p := s.createPerson()
	contract := s.createContract(p.ID, insured.ContractTerminated)
	s.createClaim(p.ID, &contract.ID, insured.ClaimResolved)

	ok, err := s.service.AnonymizePersonalData(s.tick(), p.ID, "  Customer request  ", admin)
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.persons.FindPerson(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(insured.AnonymizedValue, got.FirstName)
	s.Equal(insured.AnonymizedValue, got.LastName)
	s.Equal(insured.AnonymizedValue, got.Phone)
	s.Equal(insured.AnonymizedValue, got.Address)
	s.Equal(insured.AnonymizedEmail(p.ID), got.Email)
	s.Empty(got.NationalID)
	s.Equal(insured.AnonymizedDateOfBirth, got.DateOfBirth)
	s.True(got.IsAnonymized())

	raw, found := s.persons.RawPerson(p.ID)
	s.Require().True(found)
	s.NotEqual(insured.AnonymizedValue, raw.FirstName, "sentinels are encrypted at rest")
	s.Equal(encryption.CreateHash(insured.AnonymizedValue), raw.FirstNameHash)
	s.Empty(raw.NationalIDHash)

	_, err = s.persons.FindPersonByHash(s.ctx, insured.FieldNationalID, encryption.CreateHash("8005150123"))
	s.Error(err, "the old national ID no longer resolves")

	trail := s.auditTrail(p.ID)
	s.Require().Len(trail, 1)
	s.Equal(models.ActionAnonymize, trail[0].Action)
	s.Equal("Data anonymization: Customer request", trail[0].Details)
	s.Equal(admin, trail[0].UserID)
}

func (s *ServiceSuite) TestAnonymizeValidation() {
	p := s.createPerson()

	_, err := s.service.AnonymizePersonalData(s.ctx, p.ID, "   ", admin)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.AnonymizePersonalData(s.ctx, 99, "Customer request", admin)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	cancelled, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = s.service.AnonymizePersonalData(cancelled, p.ID, "Customer request", admin)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

// downAuditStore fails every append, after the other writes of a
// transaction have already gone through.
type downAuditStore struct {
	*gdprstore.InMemoryAuditStore
}

func (downAuditStore) Append(context.Context, *models.AuditEntry) error {
	return errors.New("audit down")
}

// withAuditDown rebuilds the service over the same person and consent
// stores with an audit store that rejects every append.
func (s *ServiceSuite) withAuditDown() {
	stores := Stores{Persons: s.persons, Consents: s.consents, Audit: downAuditStore{s.audit}}
	s.service = New(stores, NewShardedTx(stores, s.metrics), WithMetrics(s.metrics), WithRegistry(s.registry))
}

func (s *ServiceSuite) TestAnonymizeRollsBackWhenAuditFails() {
	p := s.createPerson()
	s.withAuditDown()

	ok, err := s.service.AnonymizePersonalData(s.tick(), p.ID, "Customer request", admin)
	s.Require().Error(err)
	s.False(ok)

	got, err := s.persons.FindPerson(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Jan", got.FirstName)
	s.Equal("8005150123", got.NationalID)
	s.False(got.IsAnonymized())

	found, err := s.persons.FindPersonByHash(s.ctx, insured.FieldNationalID, encryption.CreateHash("8005150123"))
	s.Require().NoError(err, "search hashes are restored with the row")
	s.Equal(p.ID, found.ID)
	s.Zero(s.audit.Len())
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.Anonymizations.WithLabelValues("error")))
}

func (s *ServiceSuite) TestConsentRollsBackWhenAuditFails() {
	p := s.createPerson()
	granted, err := s.service.RecordConsent(s.tick(), p.ID, models.CategoryContact, "Marketing e-mails", admin)
	s.Require().NoError(err)
	s.Require().True(granted)

	s.withAuditDown()

	granted, err = s.service.RecordConsent(s.tick(), p.ID, models.CategoryHealth, "Claim processing", admin)
	s.Require().Error(err)
	s.False(granted)
	has, err := s.service.HasValidConsent(s.ctx, p.ID, models.CategoryHealth)
	s.Require().NoError(err)
	s.False(has, "the failed grant is not left behind")

	revoked, err := s.service.RevokeConsent(s.tick(), p.ID, models.CategoryContact, admin, "Withdrawn")
	s.Require().Error(err)
	s.False(revoked)
	has, err = s.service.HasValidConsent(s.ctx, p.ID, models.CategoryContact)
	s.Require().NoError(err)
	s.True(has, "the failed revocation is undone")

	records, err := s.service.ListConsents(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Len(records, 1)
	s.Equal(1, s.audit.Len(), "only the first grant was audited")
}

func (s *ServiceSuite) TestShardedTxRollsBackOnPanic() {
	p := s.createPerson()
	stores := Stores{Persons: s.persons, Consents: s.consents, Audit: s.audit}
	tx := NewShardedTx(stores, s.metrics)

	s.Panics(func() {
		_ = tx.RunInTx(s.ctx, p.ID, func(ctx context.Context, st Stores) error {
			person, err := st.Persons.FindPersonForUpdate(ctx, p.ID)
			s.Require().NoError(err)
			person.Anonymize(s.clock)
			s.Require().NoError(st.Persons.UpdatePerson(ctx, person))
			panic("boom")
		})
	})

	got, err := s.persons.FindPerson(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Jan", got.FirstName)

	// The shard is released after the panic.
	s.NoError(tx.RunInTx(s.ctx, p.ID, func(context.Context, Stores) error { return nil }))
}

func (s *ServiceSuite) TestConsentFacade() {
	_, err := s.service.RecordConsent(s.ctx, 99, models.CategoryHealth, "Claim processing", admin)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	p := s.createPerson()
	granted, err := s.service.RecordConsent(s.tick(), p.ID, models.CategoryHealth, "Claim processing", admin)
	s.Require().NoError(err)
	s.True(granted)

	granted, err = s.service.RecordConsent(s.tick(), p.ID, models.CategoryHealth, "Claim processing", admin)
	s.Require().NoError(err)
	s.False(granted)

	has, err := s.service.HasValidConsent(s.ctx, p.ID, models.CategoryHealth)
	s.Require().NoError(err)
	s.True(has)

	records, err := s.service.ListConsents(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("203.0.113.7", records[0].IPAddress)

	revoked, err := s.service.RevokeConsent(s.tick(), p.ID, models.CategoryHealth, admin, "Withdrawn by phone")
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.service.RevokeConsent(s.tick(), p.ID, models.CategoryHealth, admin, "")
	s.Require().NoError(err)
	s.False(revoked)

	trail := s.auditTrail(p.ID)
	s.Require().Len(trail, 2)
	s.Equal(models.ActionConsentRevoked, trail[0].Action)
	s.Equal("Consent revoked for category health: Withdrawn by phone", trail[0].Details)
	s.Equal(models.ActionConsentGranted, trail[1].Action)
}

func (s *ServiceSuite) TestGetAuditLog() {
	p := s.createPerson()
	for range 3 {
		_, err := s.service.ExportPersonalData(s.tick(), p.ID, admin)
		s.Require().NoError(err)
	}

	all, err := s.service.GetAuditLog(s.ctx, p.ID, models.TimeRange{})
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.True(all[0].Timestamp.After(all[2].Timestamp))

	from := all[1].Timestamp
	window, err := s.service.GetAuditLog(s.ctx, p.ID, models.TimeRange{From: &from})
	s.Require().NoError(err)
	s.Len(window, 2, "range bounds are inclusive")

	to := from.Add(-time.Hour)
	_, err = s.service.GetAuditLog(s.ctx, p.ID, models.TimeRange{From: &from, To: &to})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	none, err := s.service.GetAuditLog(s.ctx, 99, models.TimeRange{})
	s.Require().NoError(err)
	s.Empty(none)
}

func TestEligible(t *testing.T) {
	own := id.ContractID(1)
	foreign := id.ContractID(9)

	tests := []struct {
		name      string
		contracts []*insured.Contract
		claims    []*insured.Claim
		want      bool
	}{
		{"nothing on file", nil, nil, true},
		{"active contract", []*insured.Contract{{ID: own, Status: insured.ContractActive}}, nil, false},
		{"inactive contract", []*insured.Contract{{ID: own, Status: insured.ContractInactive}}, nil, true},
		{
			"processing claim on own contract",
			[]*insured.Contract{{ID: own, Status: insured.ContractTerminated}},
			[]*insured.Claim{{ContractID: &own, Status: insured.ClaimProcessing}},
			false,
		},
		{
			"resolved claim on own contract",
			[]*insured.Contract{{ID: own, Status: insured.ContractTerminated}},
			[]*insured.Claim{{ContractID: &own, Status: insured.ClaimResolved}},
			true,
		},
		{
			"open claim on another contract",
			[]*insured.Contract{{ID: own, Status: insured.ContractTerminated}},
			[]*insured.Claim{{ContractID: &foreign, Status: insured.ClaimOpen}},
			true,
		},
		{"open claim without contract", nil, []*insured.Claim{{Status: insured.ClaimOpen}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.contracts, tt.claims))
		})
	}
}
