package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	insured "assura/internal/insured/models"
	"assura/internal/sentinel"
	"assura/internal/users"
	id "assura/pkg/domain"
	"assura/pkg/secrets"
)

const adminUsername = "admin"

// UserStore defines methods for seeding users
type UserStore interface {
	Create(ctx context.Context, u *users.User) error
	FindByUsername(ctx context.Context, username string) (*users.User, error)
}

// PersonStore defines methods for seeding insured persons
type PersonStore interface {
	CreatePerson(ctx context.Context, p *insured.Person) error
	FindPersonByHash(ctx context.Context, field, hash string) (*insured.Person, error)
}

// Seeder populates the stores with the administrator and a demo person.
// Running it twice changes nothing.
type Seeder struct {
	users         UserStore
	persons       PersonStore
	adminPassword string
	logger        *slog.Logger
}

// New creates a new seeder. An empty adminPassword is replaced by a random
// one that is never logged.
func New(userStore UserStore, persons PersonStore, adminPassword string, logger *slog.Logger) *Seeder {
	return &Seeder{
		users:         userStore,
		persons:       persons,
		adminPassword: adminPassword,
		logger:        logger,
	}
}

// SeedAll populates all stores with demo data
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.InfoContext(ctx, "seeding demo data...")

	admin, err := s.seedAdmin(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	person, err := s.seedPerson(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed insured person: %w", err)
	}

	s.logger.InfoContext(ctx, "demo data seeded successfully",
		"admin_id", admin.ID.String(),
		"person_id", person.ID.String(),
	)
	return nil
}

func (s *Seeder) seedAdmin(ctx context.Context) (*users.User, error) {
	existing, err := s.users.FindByUsername(ctx, adminUsername)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	password := s.adminPassword
	if password == "" {
		if password, err = secrets.Generate(18); err != nil {
			return nil, err
		}
		s.logger.WarnContext(ctx, "no admin password configured; generated a random one")
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}

	admin, err := users.NewUser(adminUsername, hash, "admin@insurance.cz", id.RoleAdmin, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	admin.FirstName, admin.LastName = "Administrátor", "Systému"
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// seedPerson is keyed on the national ID search hash.
func (s *Seeder) seedPerson(ctx context.Context) (*insured.Person, error) {
	const nationalID = "8005150123"

	hash, err := insured.PersonSchema.SearchHash(insured.FieldNationalID, nationalID)
	if err != nil {
		return nil, err
	}
	existing, err := s.persons.FindPersonByHash(ctx, insured.FieldNationalID, hash)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	p := &insured.Person{
		FirstName:   "Jan",
		LastName:    "Novák",
		DateOfBirth: time.Date(1980, 5, 15, 0, 0, 0, 0, time.UTC),
		Phone:       "+420123456789",
		Email:       "jan.novak@email.cz",
		Address:     "Hlavní 123, Praha 1",
		NationalID:  nationalID,
		IsActive:    true,
	}
	if err := s.persons.CreatePerson(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
