package player

import "github.com/mkrag/matchpoint/internal/match"

// DefaultRating is the rating every player starts at, and the floor a
// settlement can never push a rating below.
const DefaultRating = 250

// Player is a registered player with per-mode ratings and records.
type Player struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	MMRTeam        int        `json:"mmr_team"`
	MMRDuel        int        `json:"mmr_duel"`
	WinsTeam       int        `json:"wins_team"`
	LossesTeam     int        `json:"losses_team"`
	WinsDuel       int        `json:"wins_duel"`
	LossesDuel     int        `json:"losses_duel"`
	InQueue        bool       `json:"in_queue"`
	CurrentMatchID string     `json:"current_match_id,omitempty"`
	SelectedMode   match.Mode `json:"selected_mode"`
}

// Rating returns the player's rating for the given mode.
func (p *Player) Rating(mode match.Mode) int {
	if mode == match.ModeDuel {
		return p.MMRDuel
	}
	return p.MMRTeam
}

// Record returns the player's win/loss record for the given mode.
func (p *Player) Record(mode match.Mode) (wins, losses int) {
	if mode == match.ModeDuel {
		return p.WinsDuel, p.LossesDuel
	}
	return p.WinsTeam, p.LossesTeam
}
