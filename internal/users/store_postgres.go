package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"assura/internal/sentinel"
	id "assura/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	const query = `
		INSERT INTO users (username, password_hash, first_name, last_name, email, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var newID int64
	err := s.db.QueryRowContext(ctx, query,
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Email, string(u.Role), u.IsActive, u.CreatedAt,
	).Scan(&newID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return err
	}
	u.ID = id.UserID(newID)
	return nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	const query = `
		SELECT id, username, password_hash, first_name, last_name, email, role, is_active, created_at
		FROM users WHERE lower(username) = lower($1)`
	var (
		u      User
		userID int64
		role   string
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&userID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Email, &role, &u.IsActive, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	u.Role = id.Role(role)
	return &u, nil
}
