package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"assura/internal/gdpr/models"
	insured "assura/internal/insured/models"
	"assura/internal/platform/tracer"
	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	"assura/pkg/platform/middleware/requesttime"
)

// ExportPersonalData assembles everything held about the person: decrypted
// personal fields with their classification, contracts with nested claims
// and files, claims not tied to one of those contracts, and the consent
// history. The export is audited once the person is known to exist, before
// assembly starts.
func (s *Service) ExportPersonalData(ctx context.Context, personID id.PersonID, requestedBy id.UserID) (export *models.DataExport, err error) {
	start := time.Now()
	defer s.observe("export", start)
	ctx, span := s.tracer.Start(ctx, tracer.SpanGDPRExport, tracer.Int64(tracer.AttrPersonID, int64(personID)))
	defer func() { span.End(err) }()

	if requestedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	person, err := s.stores.Persons.FindPerson(ctx, personID)
	if err != nil {
		return nil, translatePersonError(err)
	}
	personalData, err := s.exportFields(person)
	if err != nil {
		return nil, err
	}
	// Audit writes go through the person's transaction like every other
	// write for that person.
	err = s.tx.RunInTx(ctx, personID, func(ctx context.Context, st Stores) error {
		return s.auditLog(st).Record(ctx, requestedBy, personID, models.ActionExport, "Personal data export")
	})
	if err != nil {
		return nil, err
	}
	span.AddEvent(tracer.EventAuditAppended)

	var (
		contracts     []*insured.Contract
		claims        []*insured.Claim
		contractFiles []*insured.ContractFile
		claimFiles    []*insured.ClaimFile
		consents      []*models.ConsentRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contracts, err = s.stores.Persons.ListContractsByPerson(gctx, personID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contracts")
		}
		ids := make([]id.ContractID, len(contracts))
		for i, c := range contracts {
			ids[i] = c.ID
		}
		contractFiles, err = s.stores.Persons.ListContractFiles(gctx, ids)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contract files")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		claims, err = s.stores.Persons.ListClaimsByPerson(gctx, personID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claims")
		}
		ids := make([]id.ClaimID, len(claims))
		for i, c := range claims {
			ids[i] = c.ID
		}
		claimFiles, err = s.stores.Persons.ListClaimFiles(gctx, ids)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim files")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		consents, err = s.ledger(s.stores).ListConsents(gctx, personID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	export = &models.DataExport{
		PersonID:     int64(personID),
		ExportedAt:   requesttime.Now(ctx),
		RequestedBy:  int64(requestedBy),
		PersonalData: personalData,
		Consents:     exportConsents(consents),
	}
	export.Contracts, export.Claims = exportContracts(contracts, claims, contractFiles, claimFiles)

	span.SetAttributes(
		tracer.Int(tracer.AttrContractCount, len(export.Contracts)),
		tracer.Int(tracer.AttrClaimCount, len(claims)),
		tracer.Int(tracer.AttrConsentCount, len(export.Consents)),
	)
	s.metrics.IncExport()
	return export, nil
}

// exportFields lists the person's classified fields in registration order,
// skipping fields without a value.
func (s *Service) exportFields(p *insured.Person) ([]models.ExportedField, error) {
	if s.registry == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "classification registry not configured")
	}
	fields, ok := s.registry.Fields(insured.KindPerson)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeConfiguration, "no classification registered for %s", insured.KindPerson)
	}
	out := make([]models.ExportedField, 0, len(fields))
	for _, f := range fields {
		value, ok := s.schema.Value(p, f.FieldName)
		if !ok {
			return nil, dErrors.Newf(dErrors.CodeConfiguration, "classified field %s has no accessor", f.FieldName)
		}
		if value == nil {
			continue
		}
		out = append(out, models.ExportedField{
			Field:      f.FieldName,
			Value:      value,
			Category:   f.Category,
			Purpose:    f.Purpose,
			IsRequired: f.IsRequired,
		})
	}
	return out, nil
}

// exportContracts nests claims under their contract. Claims whose contract
// is unknown or not the person's are returned separately.
func exportContracts(contracts []*insured.Contract, claims []*insured.Claim, contractFiles []*insured.ContractFile, claimFiles []*insured.ClaimFile) ([]models.ExportedContract, []models.ExportedClaim) {
	filesByClaim := make(map[id.ClaimID][]models.ExportedFile)
	for _, f := range claimFiles {
		filesByClaim[f.ClaimID] = append(filesByClaim[f.ClaimID], models.ExportedFile{
			ID:          int64(f.ID),
			FileName:    f.FileName,
			FileType:    f.FileType,
			FileSize:    f.FileSize,
			Category:    string(f.Category),
			Description: f.Description,
			UploadedAt:  f.UploadedAt,
		})
	}
	filesByContract := make(map[id.ContractID][]models.ExportedFile)
	for _, f := range contractFiles {
		filesByContract[f.ContractID] = append(filesByContract[f.ContractID], models.ExportedFile{
			ID:          int64(f.ID),
			FileName:    f.FileName,
			FileType:    f.FileType,
			FileSize:    f.FileSize,
			Description: f.Description,
			UploadedAt:  f.UploadedAt,
		})
	}

	index := make(map[id.ContractID]int, len(contracts))
	outContracts := make([]models.ExportedContract, len(contracts))
	for i, c := range contracts {
		index[c.ID] = i
		outContracts[i] = models.ExportedContract{
			ID:             int64(c.ID),
			ContractNumber: c.ContractNumber,
			InsuranceType:  string(c.InsuranceType),
			Status:         string(c.Status),
			InsuredAmount:  c.InsuredAmount.String(),
			InsuranceLimit: c.InsuranceLimit.String(),
			AnnualPremium:  insured.MoneyPtrString(c.AnnualPremium),
			IsPaid:         c.IsPaid,
			ValidFrom:      c.ValidFrom,
			ValidTo:        c.ValidTo,
			Notes:          c.Notes,
			CreatedAt:      c.CreatedAt,
			Claims:         []models.ExportedClaim{},
			Files:          nonNilFiles(filesByContract[c.ID]),
		}
	}

	standalone := []models.ExportedClaim{}
	for _, cl := range claims {
		ec := models.ExportedClaim{
			ID:                int64(cl.ID),
			ClaimNumber:       cl.ClaimNumber,
			IncidentAt:        cl.IncidentAt,
			DamageDescription: cl.DamageDescription,
			IncidentLocation:  cl.IncidentLocation,
			Witnesses:         cl.Witnesses,
			EstimatedDamage:   insured.MoneyPtrString(cl.EstimatedDamage),
			PaymentAmount:     insured.MoneyPtrString(cl.PaymentAmount),
			Status:            string(cl.Status),
			ReportedAt:        cl.ReportedAt,
			ResolvedAt:        cl.ResolvedAt,
			Files:             nonNilFiles(filesByClaim[cl.ID]),
		}
		if cl.ContractID != nil {
			cid := int64(*cl.ContractID)
			ec.ContractID = &cid
			if i, ok := index[*cl.ContractID]; ok {
				outContracts[i].Claims = append(outContracts[i].Claims, ec)
				continue
			}
		}
		standalone = append(standalone, ec)
	}
	return outContracts, standalone
}

func nonNilFiles(files []models.ExportedFile) []models.ExportedFile {
	if files == nil {
		return []models.ExportedFile{}
	}
	return files
}

func exportConsents(records []*models.ConsentRecord) []models.ExportedConsent {
	out := make([]models.ExportedConsent, len(records))
	for i, r := range records {
		out[i] = models.ExportedConsent{
			ID:               int64(r.ID),
			Category:         r.Category,
			Purpose:          r.Purpose,
			GrantedAt:        r.GrantedAt,
			GrantedBy:        int64(r.GrantedBy),
			IsActive:         r.IsActive(),
			RevokedAt:        r.RevokedAt,
			RevocationReason: r.RevocationReason,
			TermsVersion:     r.TermsVersion,
		}
		if r.RevokedBy != nil {
			by := int64(*r.RevokedBy)
			out[i].RevokedBy = &by
		}
	}
	return out
}
