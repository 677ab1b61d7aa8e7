package player

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mkrag/matchpoint/internal/match"
)

// store handles database operations for players.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new player store backed by the given database.
func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

const playerColumns = `id, name, mmr_team, mmr_duel, wins_team, losses_team,
	   wins_duel, losses_duel, in_queue, current_match_id, selected_mode`

func (s *store) Get(id string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

func (s *store) Ensure(id, name string) (*Player, error) {
	s.mu.Lock()
	query := `
		INSERT INTO players (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	_, err := s.db.Exec(query, id, name)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to ensure player: %w", err)
	}
	return s.Get(id)
}

func (s *store) GetMany(ids []string) ([]*Player, error) {
	if len(ids) == 0 {
		return []*Player{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.Query(`SELECT `+playerColumns+` FROM players WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := []*Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *store) SetQueueState(id string, inQueue bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE players SET in_queue = ? WHERE id = ?`, boolToInt(inQueue), id)
	if err != nil {
		return fmt.Errorf("failed to set queue state: %w", err)
	}
	return nil
}

func (s *store) SetSelectedMode(id string, mode match.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE players SET selected_mode = ? WHERE id = ?`, string(mode), id)
	if err != nil {
		return fmt.Errorf("failed to set selected mode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	log.Debug("Updated selected mode", "playerID", id, "mode", mode)
	return nil
}

func (s *store) AssignMatch(ids []string, matchID string) error {
	return s.updateAll(ids, `UPDATE players SET in_queue = 0, current_match_id = ? WHERE id = ?`, matchID)
}

func (s *store) ReleaseMatch(ids []string) error {
	return s.updateAll(ids, `UPDATE players SET current_match_id = NULL WHERE id = ?`)
}

// updateAll runs the statement once per id inside a single transaction so a
// failed write never leaves half the participants updated.
func (s *store) updateAll(ids []string, query string, prefixArgs ...any) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		args := append(append([]any{}, prefixArgs...), id)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to update player %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit player updates: %w", err)
	}
	return nil
}

func (s *store) ApplyResult(id string, mode match.Mode, won bool, newRating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var query string
	switch {
	case mode == match.ModeDuel && won:
		query = `UPDATE players SET mmr_duel = ?, wins_duel = wins_duel + 1, current_match_id = NULL WHERE id = ?`
	case mode == match.ModeDuel:
		query = `UPDATE players SET mmr_duel = ?, losses_duel = losses_duel + 1, current_match_id = NULL WHERE id = ?`
	case won:
		query = `UPDATE players SET mmr_team = ?, wins_team = wins_team + 1, current_match_id = NULL WHERE id = ?`
	default:
		query = `UPDATE players SET mmr_team = ?, losses_team = losses_team + 1, current_match_id = NULL WHERE id = ?`
	}

	res, err := s.db.Exec(query, newRating, id)
	if err != nil {
		return fmt.Errorf("failed to apply result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *store) TopByRating(mode match.Mode, limit int) ([]*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	column := "mmr_team"
	if mode == match.ModeDuel {
		column = "mmr_duel"
	}

	rows, err := s.db.Query(`SELECT `+playerColumns+` FROM players ORDER BY `+column+` DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	players := []*Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*Player, error) {
	var (
		p            Player
		inQueue      int
		currentMatch sql.NullString
		selectedMode string
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.MMRTeam,
		&p.MMRDuel,
		&p.WinsTeam,
		&p.LossesTeam,
		&p.WinsDuel,
		&p.LossesDuel,
		&inQueue,
		&currentMatch,
		&selectedMode,
	)
	if err != nil {
		return nil, err
	}
	p.InQueue = inQueue != 0
	p.CurrentMatchID = currentMatch.String
	p.SelectedMode = match.Mode(selectedMode)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
