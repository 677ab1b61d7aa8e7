package match

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// store handles database operations for matches.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new match store backed by the given database.
func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

const matchColumns = `id, mode, team_a_json, team_b_json, status, host_id, accepted_json,
	   accept_deadline, party_code, votes_json, winner, created_at, finished_at`

// Create persists a new match.
func (s *store) Create(m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	teamA, teamB, accepted, votes, err := marshalBlobs(m)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		m.ID,
		string(m.Mode),
		teamA,
		teamB,
		string(m.Status),
		nullString(m.HostID),
		accepted,
		m.AcceptDeadline.Unix(),
		nullString(m.PartyCode),
		votes,
		nullString(string(m.Winner)),
		m.CreatedAt.Unix(),
		nullTime(m.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	log.Debug("Created match", "matchID", m.ID, "mode", m.Mode)
	return nil
}

// Get retrieves a match by id.
func (s *store) Get(id string) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// Update writes the full match record back.
func (s *store) Update(m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	teamA, teamB, accepted, votes, err := marshalBlobs(m)
	if err != nil {
		return err
	}

	query := `
		UPDATE matches
		SET mode = ?, team_a_json = ?, team_b_json = ?, status = ?, host_id = ?,
			accepted_json = ?, accept_deadline = ?, party_code = ?, votes_json = ?,
			winner = ?, created_at = ?, finished_at = ?
		WHERE id = ?
	`
	res, err := s.db.Exec(query,
		string(m.Mode),
		teamA,
		teamB,
		string(m.Status),
		nullString(m.HostID),
		accepted,
		m.AcceptDeadline.Unix(),
		nullString(m.PartyCode),
		votes,
		nullString(string(m.Winner)),
		m.CreatedAt.Unix(),
		nullTime(m.FinishedAt),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, m.ID)
	}
	return nil
}

// Delete removes a match record.
func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListByStatus returns all matches with the given status, newest first.
func (s *store) ListByStatus(status Status) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT `+matchColumns+` FROM matches WHERE status = ? ORDER BY created_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

// ListFinished returns the most recently finished matches.
func (s *store) ListFinished(limit int) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT `+matchColumns+` FROM matches WHERE status = ? ORDER BY finished_at DESC LIMIT ?`,
		string(StatusFinished), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query finished matches: %w", err)
	}
	defer rows.Close()
	return collectMatches(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*Match, error) {
	var (
		m              Match
		mode, status   string
		hostID         sql.NullString
		partyCode      sql.NullString
		winner         sql.NullString
		teamABlob      []byte
		teamBBlob      []byte
		acceptedBlob   []byte
		votesBlob      []byte
		acceptDeadline int64
		createdAt      int64
		finishedAt     sql.NullInt64
	)

	err := row.Scan(
		&m.ID,
		&mode,
		&teamABlob,
		&teamBBlob,
		&status,
		&hostID,
		&acceptedBlob,
		&acceptDeadline,
		&partyCode,
		&votesBlob,
		&winner,
		&createdAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Mode = Mode(mode)
	m.Status = Status(status)
	m.HostID = hostID.String
	m.PartyCode = partyCode.String
	m.Winner = Team(winner.String)
	m.AcceptDeadline = time.Unix(acceptDeadline, 0)
	m.CreatedAt = time.Unix(createdAt, 0)
	if finishedAt.Valid {
		m.FinishedAt = time.Unix(finishedAt.Int64, 0)
	}

	if err := json.Unmarshal(teamABlob, &m.TeamA); err != nil {
		return nil, fmt.Errorf("failed to unmarshal team A: %w", err)
	}
	if err := json.Unmarshal(teamBBlob, &m.TeamB); err != nil {
		return nil, fmt.Errorf("failed to unmarshal team B: %w", err)
	}
	if len(acceptedBlob) > 0 {
		if err := json.Unmarshal(acceptedBlob, &m.Accepted); err != nil {
			log.Warn("Failed to unmarshal accepted players", "matchID", m.ID, "error", err)
		}
	}
	if len(votesBlob) > 0 {
		if err := json.Unmarshal(votesBlob, &m.Votes); err != nil {
			log.Warn("Failed to unmarshal votes", "matchID", m.ID, "error", err)
		}
	}
	return &m, nil
}

func collectMatches(rows *sql.Rows) ([]*Match, error) {
	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func marshalBlobs(m *Match) (teamA, teamB, accepted, votes []byte, err error) {
	if teamA, err = json.Marshal(m.TeamA); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal team A: %w", err)
	}
	if teamB, err = json.Marshal(m.TeamB); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal team B: %w", err)
	}
	if accepted, err = json.Marshal(m.Accepted); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal accepted players: %w", err)
	}
	if votes, err = json.Marshal(m.Votes); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal votes: %w", err)
	}
	return teamA, teamB, accepted, votes, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
