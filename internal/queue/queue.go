// Package queue holds the in-memory wait queues for both game modes. Queue
// membership is ephemeral: it does not survive a restart, only player and
// match records are durable.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/player"
)

var (
	// ErrAlreadyQueued is returned when the player is already searching in
	// either queue.
	ErrAlreadyQueued = errors.New("player is already in a queue")
	// ErrAlreadyInMatch is returned when the player has an unresolved match.
	ErrAlreadyInMatch = errors.New("player is already in a match")
)

// Entry is a player's pending search: the id, a rating snapshot taken at
// join time, and the join timestamp. Entries are never mutated.
type Entry struct {
	PlayerID string    `json:"player_id"`
	Rating   int       `json:"rating"`
	JoinedAt time.Time `json:"joined_at"`
}

// Manager owns queue membership for both modes. The activation callbacks
// fire when a queue goes from empty to non-empty and back, so the
// matchmaker's periodic search can be started and stopped with the queue.
type Manager struct {
	mu      sync.Mutex
	queues  map[match.Mode][]Entry
	started map[match.Mode]time.Time

	players      player.Store
	onActivate   func(match.Mode)
	onDeactivate func(match.Mode)
	now          func() time.Time
}

// NewManager creates a queue manager. The callbacks may be nil.
func NewManager(players player.Store, onActivate, onDeactivate func(match.Mode)) *Manager {
	return &Manager{
		queues:       make(map[match.Mode][]Entry),
		started:      make(map[match.Mode]time.Time),
		players:      players,
		onActivate:   onActivate,
		onDeactivate: onDeactivate,
		now:          time.Now,
	}
}

// SetCallbacks installs the activation callbacks after construction. This
// breaks the construction cycle between the queue manager and the matchmaker.
func (q *Manager) SetCallbacks(onActivate, onDeactivate func(match.Mode)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onActivate = onActivate
	q.onDeactivate = onDeactivate
}

// SetNow overrides the clock, for tests.
func (q *Manager) SetNow(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

// Join adds the player to the mode's queue with a rating snapshot and
// returns the resulting queue length. It fails if the player is already
// searching or has an unresolved match.
func (q *Manager) Join(playerID string, mode match.Mode) (int, error) {
	p, err := q.players.Get(playerID)
	if err != nil {
		return 0, err
	}
	if p.CurrentMatchID != "" {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyInMatch, p.CurrentMatchID)
	}

	q.mu.Lock()
	for m, entries := range q.queues {
		for _, e := range entries {
			if e.PlayerID == playerID {
				q.mu.Unlock()
				return 0, fmt.Errorf("%w: %s", ErrAlreadyQueued, m)
			}
		}
	}

	entry := Entry{
		PlayerID: playerID,
		Rating:   p.Rating(mode),
		JoinedAt: q.now(),
	}
	q.queues[mode] = append(q.queues[mode], entry)
	length := len(q.queues[mode])
	activated := length == 1
	if activated {
		q.started[mode] = q.now()
	}
	onActivate := q.onActivate
	q.mu.Unlock()

	if err := q.players.SetQueueState(playerID, true); err != nil {
		log.Error("Failed to persist queue flag", "playerID", playerID, "error", err)
	}
	log.Info("Player joined queue", "playerID", playerID, "mode", mode, "length", length)

	if activated && onActivate != nil {
		onActivate(mode)
	}
	return length, nil
}

// Leave removes the player from whichever queue holds them. It is
// idempotent and reports whether a removal occurred.
func (q *Manager) Leave(playerID string) bool {
	q.mu.Lock()
	removed := false
	var deactivated []match.Mode
	for mode, entries := range q.queues {
		for i, e := range entries {
			if e.PlayerID == playerID {
				q.queues[mode] = append(entries[:i], entries[i+1:]...)
				removed = true
				if len(q.queues[mode]) == 0 {
					delete(q.started, mode)
					deactivated = append(deactivated, mode)
				}
				break
			}
		}
	}
	onDeactivate := q.onDeactivate
	q.mu.Unlock()

	if removed {
		if err := q.players.SetQueueState(playerID, false); err != nil {
			log.Error("Failed to persist queue flag", "playerID", playerID, "error", err)
		}
		log.Info("Player left queue", "playerID", playerID)
	}
	if onDeactivate != nil {
		for _, mode := range deactivated {
			onDeactivate(mode)
		}
	}
	return removed
}

// RemoveMatched drops the given players from the mode's queue after they
// have been placed in a match. The players' queue flags are not touched
// here; the lifecycle controller assigns the match on the player records.
func (q *Manager) RemoveMatched(mode match.Mode, playerIDs []string) {
	matched := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		matched[id] = true
	}

	q.mu.Lock()
	entries := q.queues[mode]
	kept := entries[:0]
	for _, e := range entries {
		if !matched[e.PlayerID] {
			kept = append(kept, e)
		}
	}
	q.queues[mode] = kept
	var deactivated bool
	if len(kept) == 0 {
		delete(q.started, mode)
		deactivated = true
	}
	onDeactivate := q.onDeactivate
	q.mu.Unlock()

	if deactivated && onDeactivate != nil {
		onDeactivate(mode)
	}
}

// Snapshot returns the mode's entries in insertion order.
func (q *Manager) Snapshot(mode match.Mode) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.queues[mode]))
	copy(out, q.queues[mode])
	return out
}

// Len returns the mode's queue length.
func (q *Manager) Len(mode match.Mode) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[mode])
}

// Elapsed returns how long the current search window has been open: the
// time since the queue last went from empty to non-empty. Zero when the
// queue is empty.
func (q *Manager) Elapsed(mode match.Mode) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	started, ok := q.started[mode]
	if !ok {
		return 0
	}
	return q.now().Sub(started)
}
