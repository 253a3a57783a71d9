package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"assura/internal/encryption"
	"assura/internal/insured/models"
	"assura/internal/sentinel"
	id "assura/pkg/domain"
)

// PostgresStore persists insured data in PostgreSQL. Persons are sealed
// before INSERT/UPDATE and opened after SELECT.
type PostgresStore struct {
	db    *sql.DB
	tx    *sql.Tx
	codec *encryption.Codec[models.Person]
}

// NewPostgres constructs a PostgreSQL-backed insured store.
func NewPostgres(db *sql.DB, codec *encryption.Codec[models.Person]) *PostgresStore {
	return &PostgresStore{db: db, codec: codec}
}

// NewPostgresTx constructs a store bound to a transaction.
func NewPostgresTx(tx *sql.Tx, codec *encryption.Codec[models.Person]) *PostgresStore {
	return &PostgresStore{tx: tx, codec: codec}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const personColumns = `id, first_name, first_name_hash, last_name, last_name_hash, date_of_birth,
	phone, email, email_hash, address, national_id, national_id_hash, id_card_number,
	is_active, created_at, updated_at`

func (s *PostgresStore) CreatePerson(ctx context.Context, p *models.Person) error {
	sealed := p.Clone()
	if sealed.CreatedAt.IsZero() {
		sealed.CreatedAt = time.Now().UTC()
	}
	if err := s.codec.Seal(ctx, sealed, encryption.Added); err != nil {
		return err
	}
	query := `
		INSERT INTO insured_persons (first_name, first_name_hash, last_name, last_name_hash, date_of_birth,
			phone, email, email_hash, address, national_id, national_id_hash, id_card_number, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err := s.execer().QueryRowContext(ctx, query,
		sealed.FirstName, nullString(sealed.FirstNameHash),
		sealed.LastName, nullString(sealed.LastNameHash),
		sealed.DateOfBirth,
		nullString(sealed.Phone),
		nullString(sealed.Email), nullString(sealed.EmailHash),
		nullString(sealed.Address),
		nullString(sealed.NationalID), nullString(sealed.NationalIDHash),
		nullString(sealed.IDCardNumber),
		sealed.IsActive, sealed.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	p.CreatedAt = sealed.CreatedAt
	p.FirstNameHash, p.LastNameHash = sealed.FirstNameHash, sealed.LastNameHash
	p.EmailHash, p.NationalIDHash = sealed.EmailHash, sealed.NationalIDHash
	return nil
}

func (s *PostgresStore) UpdatePerson(ctx context.Context, p *models.Person) error {
	sealed := p.Clone()
	if err := s.codec.Seal(ctx, sealed, encryption.Modified); err != nil {
		return err
	}
	query := `
		UPDATE insured_persons
		SET first_name = $2, first_name_hash = $3, last_name = $4, last_name_hash = $5, date_of_birth = $6,
			phone = $7, email = $8, email_hash = $9, address = $10, national_id = $11, national_id_hash = $12,
			id_card_number = $13, is_active = $14, updated_at = $15
		WHERE id = $1
	`
	res, err := s.execer().ExecContext(ctx, query,
		int64(p.ID),
		sealed.FirstName, nullString(sealed.FirstNameHash),
		sealed.LastName, nullString(sealed.LastNameHash),
		sealed.DateOfBirth,
		nullString(sealed.Phone),
		nullString(sealed.Email), nullString(sealed.EmailHash),
		nullString(sealed.Address),
		nullString(sealed.NationalID), nullString(sealed.NationalIDHash),
		nullString(sealed.IDCardNumber),
		sealed.IsActive, sealed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update person rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	p.FirstNameHash, p.LastNameHash = sealed.FirstNameHash, sealed.LastNameHash
	p.EmailHash, p.NationalIDHash = sealed.EmailHash, sealed.NationalIDHash
	return nil
}

func (s *PostgresStore) FindPerson(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	return s.findPerson(ctx, `SELECT `+personColumns+` FROM insured_persons WHERE id = $1`, int64(personID))
}

// FindPersonForUpdate row-locks the person until the surrounding transaction ends.
func (s *PostgresStore) FindPersonForUpdate(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	if s.tx == nil {
		return nil, fmt.Errorf("find person for update: transaction required")
	}
	return s.findPerson(ctx, `SELECT `+personColumns+` FROM insured_persons WHERE id = $1 FOR UPDATE`, int64(personID))
}

var hashColumns = map[string]string{
	models.FieldFirstName:  "first_name_hash",
	models.FieldLastName:   "last_name_hash",
	models.FieldEmail:      "email_hash",
	models.FieldNationalID: "national_id_hash",
}

func (s *PostgresStore) FindPersonByHash(ctx context.Context, field, hash string) (*models.Person, error) {
	column, ok := hashColumns[field]
	if !ok || hash == "" {
		return nil, sentinel.ErrNotFound
	}
	query := `SELECT ` + personColumns + ` FROM insured_persons WHERE ` + column + ` = $1 ORDER BY id LIMIT 1`
	return s.findPerson(ctx, query, hash)
}

func (s *PostgresStore) findPerson(ctx context.Context, query string, args ...any) (*models.Person, error) {
	p, err := scanPerson(s.execer().QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find person: %w", err)
	}
	s.codec.Open(ctx, p)
	return p, nil
}

func (s *PostgresStore) CreateContract(ctx context.Context, c *models.Contract) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO insurance_contracts (contract_number, insurance_type, insured_amount_cents, insurance_limit_cents,
			status, is_paid, valid_from, valid_to, annual_premium_cents, notes, created_at, insured_person_id, manager_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := s.execer().QueryRowContext(ctx, query,
		c.ContractNumber, string(c.InsuranceType), int64(c.InsuredAmount), int64(c.InsuranceLimit),
		string(c.Status), c.IsPaid, c.ValidFrom, c.ValidTo, nullMoney(c.AnnualPremium), nullString(c.Notes),
		c.CreatedAt, int64(c.InsuredPersonID), nullUserID(c.ManagerID),
	).Scan(&c.ID)
	if err != nil {
		return mapWriteError("insert contract", err)
	}
	return nil
}

func (s *PostgresStore) UpdateContractStatus(ctx context.Context, contractID id.ContractID, status models.ContractStatus) error {
	res, err := s.execer().ExecContext(ctx,
		`UPDATE insurance_contracts SET status = $2, updated_at = now() WHERE id = $1`,
		int64(contractID), string(status))
	if err != nil {
		return fmt.Errorf("update contract status: %w", err)
	}
	return requireRow(res, "update contract status")
}

const contractColumns = `id, contract_number, insurance_type, insured_amount_cents, insurance_limit_cents, status,
	is_paid, valid_from, valid_to, annual_premium_cents, notes, created_at, updated_at, insured_person_id, manager_id`

func (s *PostgresStore) ListContractsByPerson(ctx context.Context, personID id.PersonID) ([]*models.Contract, error) {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT `+contractColumns+` FROM insurance_contracts WHERE insured_person_id = $1 ORDER BY id`,
		int64(personID))
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateClaim(ctx context.Context, c *models.Claim) error {
	if c.ReportedAt.IsZero() {
		c.ReportedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO insurance_claims (claim_number, incident_at, damage_description, incident_location, witnesses,
			estimated_damage_cents, payment_amount_cents, status, reported_at, resolved_at, contract_id, insured_person_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := s.execer().QueryRowContext(ctx, query,
		c.ClaimNumber, c.IncidentAt, c.DamageDescription, c.IncidentLocation, nullString(c.Witnesses),
		nullMoney(c.EstimatedDamage), nullMoney(c.PaymentAmount), string(c.Status), c.ReportedAt, c.ResolvedAt,
		nullContractID(c.ContractID), int64(c.InsuredPersonID),
	).Scan(&c.ID)
	if err != nil {
		return mapWriteError("insert claim", err)
	}
	return nil
}

func (s *PostgresStore) UpdateClaimStatus(ctx context.Context, claimID id.ClaimID, status models.ClaimStatus) error {
	query := `
		UPDATE insurance_claims
		SET status = $2, resolved_at = CASE WHEN $3 THEN now() ELSE NULL END
		WHERE id = $1
	`
	res, err := s.execer().ExecContext(ctx, query, int64(claimID), string(status), status.IsResolved())
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	return requireRow(res, "update claim status")
}

const claimColumns = `cl.id, cl.claim_number, cl.incident_at, cl.damage_description, cl.incident_location, cl.witnesses,
	cl.estimated_damage_cents, cl.payment_amount_cents, cl.status, cl.reported_at, cl.resolved_at, cl.contract_id,
	cl.insured_person_id`

func (s *PostgresStore) ListClaimsByPerson(ctx context.Context, personID id.PersonID) ([]*models.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM insurance_claims cl
		LEFT JOIN insurance_contracts co ON co.id = cl.contract_id
		WHERE cl.insured_person_id = $1 OR co.insured_person_id = $1
		ORDER BY cl.id
	`
	rows, err := s.execer().QueryContext(ctx, query, int64(personID))
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []*models.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateContractFile(ctx context.Context, f *models.ContractFile) error {
	query := `
		INSERT INTO contract_files (file_name, file_path, file_type, file_size, description, uploaded_at, contract_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.execer().QueryRowContext(ctx, query,
		f.FileName, f.FilePath, f.FileType, f.FileSize, nullString(f.Description), f.UploadedAt, int64(f.ContractID),
	).Scan(&f.ID)
	if err != nil {
		return mapWriteError("insert contract file", err)
	}
	return nil
}

func (s *PostgresStore) CreateClaimFile(ctx context.Context, f *models.ClaimFile) error {
	query := `
		INSERT INTO claim_files (file_name, file_path, file_type, file_size, category, description, uploaded_at, claim_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.execer().QueryRowContext(ctx, query,
		f.FileName, f.FilePath, f.FileType, f.FileSize, string(f.Category), nullString(f.Description), f.UploadedAt, int64(f.ClaimID),
	).Scan(&f.ID)
	if err != nil {
		return mapWriteError("insert claim file", err)
	}
	return nil
}

func (s *PostgresStore) ListContractFiles(ctx context.Context, contractIDs []id.ContractID) ([]*models.ContractFile, error) {
	if len(contractIDs) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(contractIDs))
	for i, v := range contractIDs {
		ids[i] = int64(v)
	}
	rows, err := s.execer().QueryContext(ctx, `
		SELECT id, file_name, file_path, file_type, file_size, description, uploaded_at, contract_id
		FROM contract_files WHERE contract_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list contract files: %w", err)
	}
	defer rows.Close()

	var out []*models.ContractFile
	for rows.Next() {
		var f models.ContractFile
		var desc sql.NullString
		if err := rows.Scan(&f.ID, &f.FileName, &f.FilePath, &f.FileType, &f.FileSize, &desc, &f.UploadedAt, &f.ContractID); err != nil {
			return nil, fmt.Errorf("scan contract file: %w", err)
		}
		f.Description = desc.String
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contract files: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListClaimFiles(ctx context.Context, claimIDs []id.ClaimID) ([]*models.ClaimFile, error) {
	if len(claimIDs) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(claimIDs))
	for i, v := range claimIDs {
		ids[i] = int64(v)
	}
	rows, err := s.execer().QueryContext(ctx, `
		SELECT id, file_name, file_path, file_type, file_size, category, description, uploaded_at, claim_id
		FROM claim_files WHERE claim_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list claim files: %w", err)
	}
	defer rows.Close()

	var out []*models.ClaimFile
	for rows.Next() {
		var f models.ClaimFile
		var category string
		var desc sql.NullString
		if err := rows.Scan(&f.ID, &f.FileName, &f.FilePath, &f.FileType, &f.FileSize, &category, &desc, &f.UploadedAt, &f.ClaimID); err != nil {
			return nil, fmt.Errorf("scan claim file: %w", err)
		}
		f.Category = models.FileCategory(category)
		f.Description = desc.String
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim files: %w", err)
	}
	return out, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanPerson(r row) (*models.Person, error) {
	var p models.Person
	var firstHash, lastHash, phone, email, emailHash, address, nationalID, nationalIDHash, idCard sql.NullString
	var updatedAt sql.NullTime
	if err := r.Scan(&p.ID, &p.FirstName, &firstHash, &p.LastName, &lastHash, &p.DateOfBirth,
		&phone, &email, &emailHash, &address, &nationalID, &nationalIDHash, &idCard,
		&p.IsActive, &p.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	p.FirstNameHash = firstHash.String
	p.LastNameHash = lastHash.String
	p.Phone = phone.String
	p.Email = email.String
	p.EmailHash = emailHash.String
	p.Address = address.String
	p.NationalID = nationalID.String
	p.NationalIDHash = nationalIDHash.String
	p.IDCardNumber = idCard.String
	p.DateOfBirth = p.DateOfBirth.UTC()
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	return &p, nil
}

func scanContract(r row) (*models.Contract, error) {
	var c models.Contract
	var insuranceType, status string
	var premium, managerID sql.NullInt64
	var notes sql.NullString
	var updatedAt sql.NullTime
	if err := r.Scan(&c.ID, &c.ContractNumber, &insuranceType, &c.InsuredAmount, &c.InsuranceLimit, &status,
		&c.IsPaid, &c.ValidFrom, &c.ValidTo, &premium, &notes, &c.CreatedAt, &updatedAt, &c.InsuredPersonID, &managerID); err != nil {
		return nil, err
	}
	c.InsuranceType = models.InsuranceType(insuranceType)
	c.Status = models.ContractStatus(status)
	c.Notes = notes.String
	if premium.Valid {
		m := models.Money(premium.Int64)
		c.AnnualPremium = &m
	}
	if managerID.Valid {
		u := id.UserID(managerID.Int64)
		c.ManagerID = &u
	}
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}
	return &c, nil
}

func scanClaim(r row) (*models.Claim, error) {
	var c models.Claim
	var status string
	var witnesses sql.NullString
	var estimated, payment, contractID sql.NullInt64
	var resolvedAt sql.NullTime
	if err := r.Scan(&c.ID, &c.ClaimNumber, &c.IncidentAt, &c.DamageDescription, &c.IncidentLocation, &witnesses,
		&estimated, &payment, &status, &c.ReportedAt, &resolvedAt, &contractID, &c.InsuredPersonID); err != nil {
		return nil, err
	}
	c.Status = models.ClaimStatus(status)
	c.Witnesses = witnesses.String
	if estimated.Valid {
		m := models.Money(estimated.Int64)
		c.EstimatedDamage = &m
	}
	if payment.Valid {
		m := models.Money(payment.Int64)
		c.PaymentAmount = &m
	}
	if contractID.Valid {
		cid := id.ContractID(contractID.Int64)
		c.ContractID = &cid
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMoney(m *models.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}

func nullUserID(u *id.UserID) sql.NullInt64 {
	if u == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*u), Valid: true}
}

func nullContractID(c *id.ContractID) sql.NullInt64 {
	if c == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*c), Valid: true}
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// mapWriteError turns a foreign-key violation into ErrNotFound (the parent
// row is missing) and a unique violation into ErrConflict.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
		case "23505":
			return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
