package match

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the game mode a match (or queue) belongs to.
type Mode string

const (
	ModeDuel       Mode = "DUEL"
	ModeTeamBattle Mode = "TEAM_BATTLE"
)

// ParseMode parses a mode from user input. It accepts the canonical names
// plus the short forms used by the chat front end ("1v1"/"5v5").
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DUEL", "1V1":
		return ModeDuel, nil
	case "TEAM_BATTLE", "TEAM", "5V5":
		return ModeTeamBattle, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// TeamSize is the number of players on each side.
func (m Mode) TeamSize() int {
	if m == ModeDuel {
		return 1
	}
	return 5
}

// PlayersNeeded is the total participant count for a full match.
func (m Mode) PlayersNeeded() int {
	return m.TeamSize() * 2
}

// AcceptWindow is how long participants have to accept a proposed match.
func (m Mode) AcceptWindow() time.Duration {
	if m == ModeDuel {
		return 30 * time.Second
	}
	return 60 * time.Second
}

// Status is the lifecycle state of a match. Transitions are monotonic:
// Pending -> Active -> Finished, or Pending -> Cancelled.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// Team identifies one side of a match.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// ParseTeam parses a team letter from user input.
func ParseTeam(s string) (Team, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return TeamA, nil
	case "B":
		return TeamB, nil
	default:
		return "", fmt.Errorf("unknown team %q", s)
	}
}

// Vote is a single participant's winner vote.
type Vote struct {
	PlayerID string `json:"player_id"`
	Team     Team   `json:"team"`
}

// Match is a single proposed or played match between two teams.
type Match struct {
	ID             string    `json:"id"`
	Mode           Mode      `json:"mode"`
	TeamA          []string  `json:"team_a"`
	TeamB          []string  `json:"team_b"`
	Status         Status    `json:"status"`
	HostID         string    `json:"host_id,omitempty"`
	Accepted       []string  `json:"accepted,omitempty"`
	AcceptDeadline time.Time `json:"accept_deadline"`
	PartyCode      string    `json:"party_code,omitempty"`
	Votes          []Vote    `json:"votes,omitempty"`
	Winner         Team      `json:"winner,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Players returns all participant ids, team A first.
func (m *Match) Players() []string {
	out := make([]string, 0, len(m.TeamA)+len(m.TeamB))
	out = append(out, m.TeamA...)
	out = append(out, m.TeamB...)
	return out
}

// TeamOf returns which team the player is on.
func (m *Match) TeamOf(playerID string) (Team, bool) {
	for _, id := range m.TeamA {
		if id == playerID {
			return TeamA, true
		}
	}
	for _, id := range m.TeamB {
		if id == playerID {
			return TeamB, true
		}
	}
	return "", false
}

// IsParticipant reports whether the player is part of the match.
func (m *Match) IsParticipant(playerID string) bool {
	_, ok := m.TeamOf(playerID)
	return ok
}

// HasAccepted reports whether the player already accepted the match.
func (m *Match) HasAccepted(playerID string) bool {
	for _, id := range m.Accepted {
		if id == playerID {
			return true
		}
	}
	return false
}

// AllAccepted reports whether every participant has accepted. Forced
// matches may carry fewer players than a full roster, so the actual
// participant count is what matters.
func (m *Match) AllAccepted() bool {
	return len(m.Accepted) >= len(m.TeamA)+len(m.TeamB)
}

// HasVoted reports whether the player already cast a winner vote.
func (m *Match) HasVoted(playerID string) bool {
	for _, v := range m.Votes {
		if v.PlayerID == playerID {
			return true
		}
	}
	return false
}

// VoteCounts tallies the votes per team.
func (m *Match) VoteCounts() (forA, forB int) {
	for _, v := range m.Votes {
		if v.Team == TeamA {
			forA++
		} else {
			forB++
		}
	}
	return forA, forB
}

// TeamPlayers returns the player ids on the given team.
func (m *Match) TeamPlayers(t Team) []string {
	if t == TeamA {
		return m.TeamA
	}
	return m.TeamB
}

// Opponents returns the team opposing t.
func (t Team) Opponents() Team {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}
