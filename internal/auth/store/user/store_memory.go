package user

import (
	"context"
	"sync"

	"countriapi/internal/auth/models"
	"countriapi/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users keyed by email.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]*models.User)}
}

// Save inserts or replaces the user with the same email.
func (s *InMemoryUserStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.Email] = &copied
	return nil
}

func (s *InMemoryUserStore) FindByIdentity(_ context.Context, identity string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[identity]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *u
	return &copied, nil
}
