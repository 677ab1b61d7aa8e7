package notifier

import (
	"github.com/mkrag/matchpoint/internal/match"
)

// Notifier defines a high-level interface for sending notifications about match events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// SendMatchProposal messages every participant of a newly proposed match
	// with accept/decline actions.
	SendMatchProposal(m *match.Match) error
	// SendMatchCancelled tells every participant the match fell through.
	// Reason is a short human-readable cause ("declined", "timed out").
	SendMatchCancelled(m *match.Match, reason string) error
	// SendHostInstructions tells the chosen host to create the lobby and
	// report the party code.
	SendHostInstructions(m *match.Match) error
	// SendPartyCode fans the lobby code out to every participant.
	SendPartyCode(m *match.Match) error
	// SendMatchResult reports the winner and each participant's rating delta.
	SendMatchResult(m *match.Match, deltas map[string]int) error
}
