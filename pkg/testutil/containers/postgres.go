//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"assura/internal/platform/database"
	"assura/migrations"
)

// moduleTables lists every table owned by the server schema.
var moduleTables = []string{
	"audit_log_entries",
	"consent_records",
	"claim_files",
	"contract_files",
	"insurance_claims",
	"insurance_contracts",
	"insured_persons",
	"users",
}

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	Pool      *database.Pool
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("assura_test"),
		postgres.WithUsername("assura"),
		postgres.WithPassword("assura_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := database.New(ctx, database.Config{URL: dsn, MaxOpenConns: 20})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	db := pool.DB()

	if err := migrations.Apply(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Postgres(t) shares the container across suites; Ryuk removes it when
	// the test process exits.
	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		Pool:      pool,
		DB:        db,
	}
}

// TruncateTables clears the given tables in one statement and resets their
// sequences, so IDs restart at 1 in every test.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("truncate %v: %w", tables, err)
	}
	return nil
}

// TruncateModuleTables clears every server table for test isolation.
func (p *PostgresContainer) TruncateModuleTables(ctx context.Context) error {
	return p.TruncateTables(ctx, moduleTables...)
}

// SeedStaff inserts n admin users named staff1..staffN. Right after a
// truncate their IDs are 1..n, which satisfies the ledger's user foreign keys.
func (p *PostgresContainer) SeedStaff(ctx context.Context, n int) error {
	for i := 1; i <= n; i++ {
		_, err := p.DB.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, role) VALUES ($1, 'x', 'admin')`,
			fmt.Sprintf("staff%d", i))
		if err != nil {
			return fmt.Errorf("seed staff user %d: %w", i, err)
		}
	}
	return nil
}

// QueryRow runs a SQL query expected to return a single row.
func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}
