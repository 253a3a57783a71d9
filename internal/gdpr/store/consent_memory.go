package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"assura/internal/gdpr/models"
	"assura/internal/sentinel"
	id "assura/pkg/domain"
)

// InMemoryConsentStore keeps consent records in process. Revocation mutates
// the stored copy; records only disappear when a transaction is rolled back.
type InMemoryConsentStore struct {
	mu      sync.RWMutex
	records map[id.ConsentID]*models.ConsentRecord
	nextID  id.ConsentID
}

func NewInMemoryConsentStore() *InMemoryConsentStore {
	return &InMemoryConsentStore{records: make(map[id.ConsentID]*models.ConsentRecord)}
}

// Insert stores a new active record. It returns ErrConflict when the person
// already holds an active record for the category.
func (s *InMemoryConsentStore) Insert(_ context.Context, record *models.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.PersonID == record.PersonID && r.Category == record.Category && r.IsActive() {
			return sentinel.ErrConflict
		}
	}
	s.nextID++
	record.ID = s.nextID
	s.records[record.ID] = cloneConsent(record)
	return nil
}

// FindActive returns the active record for (personID, category) or ErrNotFound.
func (s *InMemoryConsentStore) FindActive(_ context.Context, personID id.PersonID, category models.Category) (*models.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.PersonID == personID && r.Category == category && r.IsActive() {
			return cloneConsent(r), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Update overwrites the revocation fields of an existing record.
func (s *InMemoryConsentStore) Update(_ context.Context, record *models.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[record.ID]
	if !ok || stored.PersonID != record.PersonID {
		return sentinel.ErrNotFound
	}
	s.records[record.ID] = cloneConsent(record)
	return nil
}

// ListByPerson returns every record of the person, newest grant first.
func (s *InMemoryConsentStore) ListByPerson(_ context.Context, personID id.PersonID) ([]*models.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ConsentRecord
	for _, r := range s.records {
		if r.PersonID == personID {
			out = append(out, cloneConsent(r))
		}
	}
	slices.SortFunc(out, func(a, b *models.ConsentRecord) int {
		if c := b.GrantedAt.Compare(a.GrantedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// Checkpoint captures the person's records. restore drops records inserted
// since and reinstates the captured ones.
func (s *InMemoryConsentStore) Checkpoint(personID id.PersonID) (restore func()) {
	s.mu.RLock()
	snapshot := make(map[id.ConsentID]*models.ConsentRecord)
	for recordID, r := range s.records {
		if r.PersonID == personID {
			snapshot[recordID] = cloneConsent(r)
		}
	}
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for recordID, r := range s.records {
			if r.PersonID == personID {
				delete(s.records, recordID)
			}
		}
		for recordID, r := range snapshot {
			s.records[recordID] = r
		}
	}
}

func cloneConsent(r *models.ConsentRecord) *models.ConsentRecord {
	c := *r
	if r.RevokedAt != nil {
		t := *r.RevokedAt
		c.RevokedAt = &t
	}
	if r.RevokedBy != nil {
		u := *r.RevokedBy
		c.RevokedBy = &u
	}
	return &c
}
