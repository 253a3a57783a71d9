package users

import (
	"context"
	"strings"
	"sync"

	"assura/internal/sentinel"
	id "assura/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	nextID int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]*User)}
}

// Create assigns the next ID. Usernames are unique case-insensitively.
func (s *InMemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, ok := s.users[key]; ok {
		return sentinel.ErrConflict
	}
	s.nextID++
	u.ID = id.UserID(s.nextID)
	stored := *u
	s.users[key] = &stored
	return nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
