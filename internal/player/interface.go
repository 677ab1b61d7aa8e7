package player

import (
	"errors"

	"github.com/mkrag/matchpoint/internal/match"
)

// ErrNotFound is returned when a player id is unknown.
var ErrNotFound = errors.New("player not found")

// Store defines the persistence operations for players.
type Store interface {
	// Get retrieves a player by id.
	Get(id string) (*Player, error)

	// Ensure returns the player, creating a fresh record with default
	// ratings on first contact.
	Ensure(id, name string) (*Player, error)

	// GetMany retrieves the players for the given ids. Unknown ids are
	// silently skipped.
	GetMany(ids []string) ([]*Player, error)

	// SetQueueState flips the player's in-queue flag.
	SetQueueState(id string, inQueue bool) error

	// SetSelectedMode persists the player's preferred mode.
	SetSelectedMode(id string, mode match.Mode) error

	// AssignMatch marks all players as matched: clears the queue flag and
	// sets the current match id.
	AssignMatch(ids []string, matchID string) error

	// ReleaseMatch clears the current match id for all players.
	ReleaseMatch(ids []string) error

	// ApplyResult records a settled result: the new (already floored)
	// rating and a win or loss for the mode, and clears the player's
	// current match id.
	ApplyResult(id string, mode match.Mode, won bool, newRating int) error

	// TopByRating returns the highest rated players for the mode.
	TopByRating(mode match.Mode, limit int) ([]*Player, error)
}
