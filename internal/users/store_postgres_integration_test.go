//go:build integration

package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"assura/internal/sentinel"
	"assura/internal/users"
	id "assura/pkg/domain"
	"assura/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *users.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.Postgres(s.T())
	s.store = users.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateModuleTables(context.Background()))
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	u, err := users.NewUser("Broker", "$2a$10$hash", "broker@insurance.cz", id.RoleBroker, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, u))
	s.Equal(id.UserID(1), u.ID, "identity restarts on truncate")

	got, err := s.store.FindByUsername(ctx, "broker")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)
	s.Equal(id.RoleBroker, got.Role)

	dup, err := users.NewUser("BROKER", "$2a$10$hash", "other@insurance.cz", id.RoleClient, time.Now().UTC())
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict, "usernames are case-insensitive")

	_, err = s.store.FindByUsername(ctx, "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
