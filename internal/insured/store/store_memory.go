package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"assura/internal/encryption"
	"assura/internal/insured/models"
	"assura/internal/sentinel"
	id "assura/pkg/domain"
)

// InMemoryStore keeps insured data in process. Persons are sealed with the
// codec exactly like the postgres store, so personal data is ciphertext at
// rest here too.
type InMemoryStore struct {
	mu    sync.RWMutex
	codec *encryption.Codec[models.Person]

	persons       map[id.PersonID]*models.Person
	contracts     map[id.ContractID]*models.Contract
	claims        map[id.ClaimID]*models.Claim
	contractFiles map[id.FileID]*models.ContractFile
	claimFiles    map[id.FileID]*models.ClaimFile

	nextPerson   id.PersonID
	nextContract id.ContractID
	nextClaim    id.ClaimID
	nextFile     id.FileID
}

func NewInMemoryStore(codec *encryption.Codec[models.Person]) *InMemoryStore {
	return &InMemoryStore{
		codec:         codec,
		persons:       make(map[id.PersonID]*models.Person),
		contracts:     make(map[id.ContractID]*models.Contract),
		claims:        make(map[id.ClaimID]*models.Claim),
		contractFiles: make(map[id.FileID]*models.ContractFile),
		claimFiles:    make(map[id.FileID]*models.ClaimFile),
	}
}

// CreatePerson assigns an ID and stores a sealed copy of p.
func (s *InMemoryStore) CreatePerson(ctx context.Context, p *models.Person) error {
	sealed := p.Clone()
	if sealed.CreatedAt.IsZero() {
		sealed.CreatedAt = time.Now().UTC()
	}
	if err := s.codec.Seal(ctx, sealed, encryption.Added); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPerson++
	sealed.ID = s.nextPerson
	s.persons[sealed.ID] = sealed

	p.ID = sealed.ID
	p.CreatedAt = sealed.CreatedAt
	p.FirstNameHash, p.LastNameHash = sealed.FirstNameHash, sealed.LastNameHash
	p.EmailHash, p.NationalIDHash = sealed.EmailHash, sealed.NationalIDHash
	return nil
}

// UpdatePerson replaces the stored person with a sealed copy of p.
func (s *InMemoryStore) UpdatePerson(ctx context.Context, p *models.Person) error {
	sealed := p.Clone()
	if err := s.codec.Seal(ctx, sealed, encryption.Modified); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.persons[p.ID] = sealed
	p.FirstNameHash, p.LastNameHash = sealed.FirstNameHash, sealed.LastNameHash
	p.EmailHash, p.NationalIDHash = sealed.EmailHash, sealed.NationalIDHash
	return nil
}

func (s *InMemoryStore) FindPerson(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	s.mu.RLock()
	stored, ok := s.persons[personID]
	var p *models.Person
	if ok {
		p = stored.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	s.codec.Open(ctx, p)
	return p, nil
}

// FindPersonForUpdate is FindPerson; callers serialise through the
// in-memory transaction's per-person lock.
func (s *InMemoryStore) FindPersonForUpdate(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	return s.FindPerson(ctx, personID)
}

// FindPersonByHash returns the lowest-ID person whose hashed field equals hash.
func (s *InMemoryStore) FindPersonByHash(ctx context.Context, field, hash string) (*models.Person, error) {
	if hash == "" {
		return nil, sentinel.ErrNotFound
	}
	s.mu.RLock()
	var match *models.Person
	for _, p := range s.persons {
		if personHash(p, field) == hash && (match == nil || p.ID < match.ID) {
			match = p
		}
	}
	if match != nil {
		match = match.Clone()
	}
	s.mu.RUnlock()
	if match == nil {
		return nil, sentinel.ErrNotFound
	}
	s.codec.Open(ctx, match)
	return match, nil
}

// Checkpoint captures the stored person so restore can put the row back
// exactly as it was. Contracts and claims are not captured.
func (s *InMemoryStore) Checkpoint(personID id.PersonID) (restore func()) {
	s.mu.RLock()
	stored, ok := s.persons[personID]
	var snapshot *models.Person
	if ok {
		snapshot = stored.Clone()
	}
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if snapshot == nil {
			delete(s.persons, personID)
			return
		}
		s.persons[personID] = snapshot
	}
}

func personHash(p *models.Person, field string) string {
	switch field {
	case models.FieldFirstName:
		return p.FirstNameHash
	case models.FieldLastName:
		return p.LastNameHash
	case models.FieldEmail:
		return p.EmailHash
	case models.FieldNationalID:
		return p.NationalIDHash
	}
	return ""
}

func (s *InMemoryStore) CreateContract(_ context.Context, c *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[c.InsuredPersonID]; !ok {
		return sentinel.ErrNotFound
	}
	s.nextContract++
	c.ID = s.nextContract
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	stored := *c
	s.contracts[c.ID] = &stored
	return nil
}

func (s *InMemoryStore) UpdateContractStatus(_ context.Context, contractID id.ContractID, status models.ContractStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[contractID]
	if !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now().UTC()
	c.Status = status
	c.UpdatedAt = &now
	return nil
}

// ListContractsByPerson returns the person's contracts ordered by ID.
func (s *InMemoryStore) ListContractsByPerson(_ context.Context, personID id.PersonID) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Contract
	for _, c := range s.contracts {
		if c.InsuredPersonID == personID {
			cp := *c
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Contract) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *InMemoryStore) CreateClaim(_ context.Context, c *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[c.InsuredPersonID]; !ok {
		return sentinel.ErrNotFound
	}
	if c.ContractID != nil {
		if _, ok := s.contracts[*c.ContractID]; !ok {
			return sentinel.ErrNotFound
		}
	}
	s.nextClaim++
	c.ID = s.nextClaim
	if c.ReportedAt.IsZero() {
		c.ReportedAt = time.Now().UTC()
	}
	stored := *c
	s.claims[c.ID] = &stored
	return nil
}

func (s *InMemoryStore) UpdateClaimStatus(_ context.Context, claimID id.ClaimID, status models.ClaimStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	if status.IsResolved() {
		now := time.Now().UTC()
		c.ResolvedAt = &now
	} else {
		c.ResolvedAt = nil
	}
	return nil
}

// ListClaimsByPerson returns claims filed by the person or on one of their
// contracts, ordered by ID.
func (s *InMemoryStore) ListClaimsByPerson(_ context.Context, personID id.PersonID) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, c := range s.claims {
		owned := c.InsuredPersonID == personID
		if !owned && c.ContractID != nil {
			if contract, ok := s.contracts[*c.ContractID]; ok && contract.InsuredPersonID == personID {
				owned = true
			}
		}
		if owned {
			cp := *c
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Claim) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *InMemoryStore) CreateContractFile(_ context.Context, f *models.ContractFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[f.ContractID]; !ok {
		return sentinel.ErrNotFound
	}
	s.nextFile++
	f.ID = s.nextFile
	stored := *f
	s.contractFiles[f.ID] = &stored
	return nil
}

func (s *InMemoryStore) CreateClaimFile(_ context.Context, f *models.ClaimFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[f.ClaimID]; !ok {
		return sentinel.ErrNotFound
	}
	s.nextFile++
	f.ID = s.nextFile
	stored := *f
	s.claimFiles[f.ID] = &stored
	return nil
}

func (s *InMemoryStore) ListContractFiles(_ context.Context, contractIDs []id.ContractID) ([]*models.ContractFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ContractFile
	for _, f := range s.contractFiles {
		if slices.Contains(contractIDs, f.ContractID) {
			cp := *f
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.ContractFile) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *InMemoryStore) ListClaimFiles(_ context.Context, claimIDs []id.ClaimID) ([]*models.ClaimFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ClaimFile
	for _, f := range s.claimFiles {
		if slices.Contains(claimIDs, f.ClaimID) {
			cp := *f
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.ClaimFile) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// RawPerson returns the stored (sealed) row without decrypting it.
func (s *InMemoryStore) RawPerson(personID id.PersonID) (*models.Person, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[personID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}
