package match

import (
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu      sync.Mutex
	matches map[string]*Match

	// Spies, executed instead of the default behavior when set.
	CreateFunc func(m *Match) error
	UpdateFunc func(m *Match) error
}

// NewMockStore creates a new empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{matches: make(map[string]*Match)}
}

func (s *MockStore) Create(m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateFunc != nil {
		return s.CreateFunc(m)
	}
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

func (s *MockStore) Get(id string) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MockStore) Update(m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateFunc != nil {
		return s.UpdateFunc(m)
	}
	if _, ok := s.matches[m.ID]; !ok {
		return ErrNotFound
	}
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

func (s *MockStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return ErrNotFound
	}
	delete(s.matches, id)
	return nil
}

func (s *MockStore) ListByStatus(status Status) ([]*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Match
	for _, m := range s.matches {
		if m.Status == status {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MockStore) ListFinished(limit int) ([]*Match, error) {
	finished, err := s.ListByStatus(StatusFinished)
	if err != nil {
		return nil, err
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].FinishedAt.After(finished[j].FinishedAt) })
	if len(finished) > limit {
		finished = finished[:limit]
	}
	return finished, nil
}
