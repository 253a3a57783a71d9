package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"assura/internal/gdpr/models"
	"assura/internal/sentinel"
	id "assura/pkg/domain"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresConsentStore persists consent records in PostgreSQL. The partial
// unique index consent_records_one_active enforces one active record per
// (person_id, category).
type PostgresConsentStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgresConsent constructs a PostgreSQL-backed consent store.
func NewPostgresConsent(db *sql.DB) *PostgresConsentStore {
	return &PostgresConsentStore{db: db}
}

// NewPostgresConsentTx constructs a consent store bound to a transaction.
func NewPostgresConsentTx(tx *sql.Tx) *PostgresConsentStore {
	return &PostgresConsentStore{tx: tx}
}

func (s *PostgresConsentStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const consentColumns = `id, person_id, category, purpose, granted_at, granted_by, revoked_at, revoked_by,
	revocation_reason, terms_version, ip_address`

func (s *PostgresConsentStore) Insert(ctx context.Context, record *models.ConsentRecord) error {
	query := `
		INSERT INTO consent_records (person_id, category, purpose, granted_at, granted_by, is_active, terms_version, ip_address)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)
		RETURNING id
	`
	err := s.execer().QueryRowContext(ctx, query,
		int64(record.PersonID),
		string(record.Category),
		record.Purpose,
		record.GrantedAt,
		int64(record.GrantedBy),
		record.TermsVersion,
		nullString(record.IPAddress),
	).Scan(&record.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *PostgresConsentStore) FindActive(ctx context.Context, personID id.PersonID, category models.Category) (*models.ConsentRecord, error) {
	query := `SELECT ` + consentColumns + ` FROM consent_records WHERE person_id = $1 AND category = $2 AND is_active`
	if s.tx != nil {
		query += ` FOR UPDATE`
	}
	record, err := scanConsent(s.execer().QueryRowContext(ctx, query, int64(personID), string(category)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active consent: %w", err)
	}
	return record, nil
}

func (s *PostgresConsentStore) Update(ctx context.Context, record *models.ConsentRecord) error {
	query := `
		UPDATE consent_records
		SET revoked_at = $3, revoked_by = $4, revocation_reason = $5, is_active = $6
		WHERE id = $1 AND person_id = $2
	`
	var revokedBy sql.NullInt64
	if record.RevokedBy != nil {
		revokedBy = sql.NullInt64{Int64: int64(*record.RevokedBy), Valid: true}
	}
	res, err := s.execer().ExecContext(ctx, query,
		int64(record.ID),
		int64(record.PersonID),
		record.RevokedAt,
		revokedBy,
		nullString(record.RevocationReason),
		record.IsActive(),
	)
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresConsentStore) ListByPerson(ctx context.Context, personID id.PersonID) ([]*models.ConsentRecord, error) {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT `+consentColumns+` FROM consent_records WHERE person_id = $1 ORDER BY granted_at DESC, id DESC`,
		int64(personID))
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var records []*models.ConsentRecord
	for rows.Next() {
		record, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanConsent(r row) (*models.ConsentRecord, error) {
	var record models.ConsentRecord
	var category string
	var revokedAt sql.NullTime
	var revokedBy sql.NullInt64
	var reason, ip sql.NullString
	if err := r.Scan(&record.ID, &record.PersonID, &category, &record.Purpose, &record.GrantedAt, &record.GrantedBy,
		&revokedAt, &revokedBy, &reason, &record.TermsVersion, &ip); err != nil {
		return nil, err
	}
	record.Category = models.Category(category)
	record.RevocationReason = reason.String
	record.IPAddress = ip.String
	if revokedAt.Valid {
		record.RevokedAt = &revokedAt.Time
	}
	if revokedBy.Valid {
		u := id.UserID(revokedBy.Int64)
		record.RevokedBy = &u
	}
	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
