package database

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"
)

// memoryService keeps users in process memory. It backs the mock auth mode
// and tests.
type memoryService struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

var _ Service = (*memoryService)(nil)

func NewMemoryService() Service {
	return &memoryService{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *memoryService) Health() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		"status": "up",
		"driver": "memory",
		"users":  strconv.Itoa(len(s.byID)),
	}
}

func (s *memoryService) Close() {}

func (s *memoryService) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return ErrEmailTaken
	}
	now := time.Now().UTC()
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now

	stored := copyUser(u)
	s.byID[u.ID] = stored
	s.byEmail[email] = u.ID
	return nil
}

func (s *memoryService) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *memoryService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(s.byID[id]), nil
}

func (s *memoryService) UpdatePreferences(ctx context.Context, id, diet string, allergies []string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.SavedDiet = diet
	u.SavedAllergies = slices.Clone(allergies)
	u.UpdatedAt = time.Now().UTC()
	return copyUser(u), nil
}

func copyUser(u *User) *User {
	c := *u
	c.SavedAllergies = slices.Clone(u.SavedAllergies)
	return &c
}
