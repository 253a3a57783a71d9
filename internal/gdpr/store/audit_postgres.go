package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strconv"

	"assura/internal/gdpr/models"
	id "assura/pkg/domain"
)

// PostgresAuditStore persists the audit trail in PostgreSQL. It never
// updates or deletes rows.
type PostgresAuditStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgresAudit constructs a PostgreSQL-backed audit store.
func NewPostgresAudit(db *sql.DB) *PostgresAuditStore {
	return &PostgresAuditStore{db: db}
}

// NewPostgresAuditTx constructs an audit store bound to a transaction.
func NewPostgresAuditTx(tx *sql.Tx) *PostgresAuditStore {
	return &PostgresAuditStore{tx: tx}
}

func (s *PostgresAuditStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresAuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log_entries (user_id, person_id, action, details, ip_address, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.execer().QueryRowContext(ctx, query,
		int64(entry.UserID),
		int64(entry.PersonID),
		string(entry.Action),
		entry.Details,
		nullString(entry.IPAddress),
		nullString(entry.UserAgent),
		entry.Timestamp,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Query streams the person's entries inside r, newest first. Rows are read
// as the caller iterates; every range over the sequence re-runs the query.
func (s *PostgresAuditStore) Query(ctx context.Context, personID id.PersonID, r models.TimeRange) iter.Seq2[models.AuditEntry, error] {
	query := `
		SELECT id, user_id, person_id, action, details, ip_address, user_agent, occurred_at
		FROM audit_log_entries
		WHERE person_id = $1`
	args := []any{int64(personID)}
	if r.From != nil {
		args = append(args, *r.From)
		query += ` AND occurred_at >= $` + strconv.Itoa(len(args))
	}
	if r.To != nil {
		args = append(args, *r.To)
		query += ` AND occurred_at <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY occurred_at DESC, id DESC`

	return func(yield func(models.AuditEntry, error) bool) {
		rows, err := s.execer().QueryContext(ctx, query, args...)
		if err != nil {
			yield(models.AuditEntry{}, fmt.Errorf("query audit log: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var e models.AuditEntry
			var action string
			var ip, ua sql.NullString
			if err := rows.Scan(&e.ID, &e.UserID, &e.PersonID, &action, &e.Details, &ip, &ua, &e.Timestamp); err != nil {
				yield(models.AuditEntry{}, fmt.Errorf("scan audit entry: %w", err))
				return
			}
			e.Action = models.Action(action)
			e.IPAddress = ip.String
			e.UserAgent = ua.String
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.AuditEntry{}, fmt.Errorf("iterate audit log: %w", err))
		}
	}
}
