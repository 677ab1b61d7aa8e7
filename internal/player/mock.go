package player

import (
	"sort"
	"sync"

	"github.com/mkrag/matchpoint/internal/match"
)

// MockStore is an in-memory Store implementation for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu      sync.Mutex
	players map[string]*Player

	// Spies, executed instead of the default behavior when set.
	AssignMatchFunc func(ids []string, matchID string) error

	// Call records
	ApplyResultCalls []ApplyResultCall
}

// ApplyResultCall holds the arguments of one ApplyResult call.
type ApplyResultCall struct {
	PlayerID  string
	Mode      match.Mode
	Won       bool
	NewRating int
}

// NewMockStore creates a new empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{players: make(map[string]*Player)}
}

// Seed inserts a player directly, for test setup.
func (s *MockStore) Seed(p *Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	if cp.SelectedMode == "" {
		cp.SelectedMode = match.ModeTeamBattle
	}
	s.players[p.ID] = &cp
}

func (s *MockStore) Get(id string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MockStore) Ensure(id, name string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.Name = name
		cp := *p
		return &cp, nil
	}
	p := &Player{
		ID:           id,
		Name:         name,
		MMRTeam:      DefaultRating,
		MMRDuel:      DefaultRating,
		SelectedMode: match.ModeTeamBattle,
	}
	s.players[id] = p
	cp := *p
	return &cp, nil
}

func (s *MockStore) GetMany(ids []string) ([]*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Player{}
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MockStore) SetQueueState(id string, inQueue bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.InQueue = inQueue
	}
	return nil
}

func (s *MockStore) SetSelectedMode(id string, mode match.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return ErrNotFound
	}
	p.SelectedMode = mode
	return nil
}

func (s *MockStore) AssignMatch(ids []string, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AssignMatchFunc != nil {
		return s.AssignMatchFunc(ids, matchID)
	}
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			p.InQueue = false
			p.CurrentMatchID = matchID
		}
	}
	return nil
}

func (s *MockStore) ReleaseMatch(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			p.CurrentMatchID = ""
		}
	}
	return nil
}

func (s *MockStore) ApplyResult(id string, mode match.Mode, won bool, newRating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return ErrNotFound
	}
	s.ApplyResultCalls = append(s.ApplyResultCalls, ApplyResultCall{id, mode, won, newRating})
	if mode == match.ModeDuel {
		p.MMRDuel = newRating
		if won {
			p.WinsDuel++
		} else {
			p.LossesDuel++
		}
	} else {
		p.MMRTeam = newRating
		if won {
			p.WinsTeam++
		} else {
			p.LossesTeam++
		}
	}
	p.CurrentMatchID = ""
	return nil
}

func (s *MockStore) TopByRating(mode match.Mode, limit int) ([]*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Player{}
	for _, p := range s.players {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating(mode) > out[j].Rating(mode) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
