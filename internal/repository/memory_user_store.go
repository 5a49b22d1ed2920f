package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"
)

// MemoryUserStore keeps users in process memory. Used when no database is configured.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
	order   []string
	now     func() time.Time
}

// NewMemoryUserStore creates an empty in-process user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

var _ domrepo.UserStore = (*MemoryUserStore)(nil)

func clone(u *models.User) *models.User {
	c := *u
	if u.EcoScore != nil {
		s := *u.EcoScore
		c.EcoScore = &s
	}
	return &c
}

func (s *MemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return domrepo.ErrDuplicateEmail
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.byID[u.ID] = clone(u)
	s.byEmail[u.Email] = u.ID
	s.order = append(s.order, u.ID)
	return nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return clone(u), nil
}

// First returns the earliest registered user.
func (s *MemoryUserStore) First(_ context.Context) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, domrepo.ErrNotFound
	}
	return clone(s.byID[s.order[0]]), nil
}

func (s *MemoryUserStore) UpdateEcoScore(_ context.Context, id string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return domrepo.ErrNotFound
	}
	u.EcoScore = &score
	return nil
}

// TopByEcoScore orders scored users by score, earliest signup first on ties.
func (s *MemoryUserStore) TopByEcoScore(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.order))
	for _, id := range s.order {
		if u := s.byID[id]; u.EcoScore != nil {
			users = append(users, u)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		return *users[i].EcoScore > *users[j].EcoScore
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}

	out := make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		out[i] = models.LeaderboardEntry{Name: u.Name, Email: u.Email, EcoScore: *u.EcoScore}
	}
	return out, nil
}

func (s *MemoryUserStore) Close() error { return nil }
