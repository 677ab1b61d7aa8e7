package match

import "errors"

// ErrNotFound is returned when a match id is unknown.
var ErrNotFound = errors.New("match not found")

// Store defines the persistence operations for matches.
type Store interface {
	Create(m *Match) error
	Get(id string) (*Match, error)
	Update(m *Match) error
	Delete(id string) error
	ListByStatus(status Status) ([]*Match, error)
	ListFinished(limit int) ([]*Match, error)
}
