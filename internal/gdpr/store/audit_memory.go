package store

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"sync"

	"assura/internal/gdpr/models"
	id "assura/pkg/domain"
)

// InMemoryAuditStore is an audit trail held in process. Entries are only removed
// by a rolled-back transaction.
type InMemoryAuditStore struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
	nextID  id.AuditEntryID
}

func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{}
}

func (s *InMemoryAuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, *entry)
	return nil
}

// Query yields the person's entries inside r, newest first. Each iteration
// takes a fresh snapshot, so the sequence can be ranged over repeatedly.
func (s *InMemoryAuditStore) Query(ctx context.Context, personID id.PersonID, r models.TimeRange) iter.Seq2[models.AuditEntry, error] {
	return func(yield func(models.AuditEntry, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(models.AuditEntry{}, err)
			return
		}
		s.mu.RLock()
		var matched []models.AuditEntry
		for _, e := range s.entries {
			if e.PersonID == personID && r.Contains(e.Timestamp) {
				matched = append(matched, e)
			}
		}
		s.mu.RUnlock()

		slices.SortStableFunc(matched, func(a, b models.AuditEntry) int {
			if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
		for _, e := range matched {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Checkpoint marks the end of the trail. restore removes the person's
// entries appended after the mark; callers must hold the person's
// transaction lock for every append they want undone.
func (s *InMemoryAuditStore) Checkpoint(personID id.PersonID) (restore func()) {
	s.mu.RLock()
	mark := s.nextID
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries = slices.DeleteFunc(s.entries, func(e models.AuditEntry) bool {
			return e.PersonID == personID && e.ID > mark
		})
	}
}

// Len returns the total number of entries.
func (s *InMemoryAuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
