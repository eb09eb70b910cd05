package state

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage keeps sessions in process memory. It backs tests and single-instance deployments.
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[int64]*UserState
	now    func() time.Time
}

// NewMemoryStorage creates an empty in-memory Storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		states: make(map[int64]*UserState),
		now:    time.Now,
	}
}

// GetState returns a copy of the stored state or ErrStateNotFound.
func (s *MemoryStorage) GetState(_ context.Context, userID int64) (*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st.Clone(), nil
}

// SetState stores a copy of state.
func (s *MemoryStorage) SetState(_ context.Context, userID int64, state *UserState) error {
	state.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = state.Clone()
	return nil
}

// ClearState removes the state for userID.
func (s *MemoryStorage) ClearState(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// GetAllStates returns copies of every session ordered by user id.
func (s *MemoryStorage) GetAllStates(_ context.Context) ([]*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*UserState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
