package repository

import (
	"context"
	"sync"

	"github.com/mlunde/adventpace/internal/domain/model"
)

// MemoryStore implements Store with mutex-guarded maps. It backs tests
// and broker-less single-process runs; durability comes from the
// Badger-backed store.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]model.User
	pool      *Pool
	selection map[string]int
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]model.User),
		selection: make(map[string]int),
	}
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) PutUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id string, fn func(*model.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	next := cloneUser(u)
	if err := fn(&next); err != nil {
		return err
	}
	s.users[id] = next
	return nil
}

func (s *MemoryStore) UserByAthlete(_ context.Context, athleteID int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Credential != nil && u.Credential.AthleteID == athleteID {
			return cloneUser(u), nil
		}
	}
	return model.User{}, ErrNotFound
}

func (s *MemoryStore) Users(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (s *MemoryStore) InitPool(_ context.Context, original []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.pool != nil && len(s.pool.Original) > 0 {
		return nil
	}
	s.pool = &Pool{
		Original:  append([]int(nil), original...),
		Remaining: append([]int(nil), original...),
	}
	return nil
}

func (s *MemoryStore) GetPool(_ context.Context) (Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return Pool{}, ErrNotFound
	}
	return Pool{
		Original:  append([]int(nil), s.pool.Original...),
		Remaining: append([]int(nil), s.pool.Remaining...),
	}, nil
}

func (s *MemoryStore) Selection(_ context.Context, day string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	km, ok := s.selection[day]
	return km, ok, nil
}

func (s *MemoryStore) CommitDraw(_ context.Context, day string, km int, remaining []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if won, ok := s.selection[day]; ok {
		return won, nil
	}
	s.selection[day] = km
	if s.pool != nil && remaining != nil {
		s.pool.Remaining = append([]int{}, remaining...)
	}
	return km, nil
}

func (s *MemoryStore) Standings(_ context.Context, n int) ([]Standing, error) {
	s.mu.RLock()
	rows := make([]Standing, 0, len(s.users))
	for _, u := range s.users {
		rows = append(rows, Standing{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			TotalKm:     totalKm(u),
		})
	}
	s.mu.RUnlock()
	return rankStandings(rows, n), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneUser(u model.User) model.User {
	out := u
	if u.Log != nil {
		out.Log = make(map[string]model.LogEntry, len(u.Log))
		for k, v := range u.Log {
			out.Log[k] = v
		}
	}
	if u.Credential != nil {
		cred := *u.Credential
		out.Credential = &cred
	}
	return out
}
