package slack

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/metrics"
	"github.com/mkrag/matchpoint/internal/notifier"
	"github.com/slack-go/slack"
)

// Action IDs carried by interactive buttons. The interaction receiver maps
// them back to lifecycle operations; the button value is the match id.
const (
	ActionAccept  = "match_accept"
	ActionDecline = "match_decline"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending match notifications to Slack. Player ids are
// Slack user ids, so participants are addressed with mentions.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message) (string, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		if s.metrics != nil {
			s.metrics.IncNotifFailed()
		}
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncNotifSent()
	}
	log.Debug("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// Implement the Notifier interface
func (s *Notifier) SendMatchProposal(m *match.Match) error {
	_, _, err := s.sendMessage(s.formatProposal(m))
	return err
}

func (s *Notifier) SendMatchCancelled(m *match.Match, reason string) error {
	_, _, err := s.sendMessage(s.formatCancelled(m, reason))
	return err
}

func (s *Notifier) SendHostInstructions(m *match.Match) error {
	_, _, err := s.sendMessage(s.formatHostInstructions(m))
	return err
}

func (s *Notifier) SendPartyCode(m *match.Match) error {
	_, _, err := s.sendMessage(s.formatPartyCode(m))
	return err
}

func (s *Notifier) SendMatchResult(m *match.Match, deltas map[string]int) error {
	_, _, err := s.sendMessage(s.formatResult(m, deltas))
	return err
}

// formatProposal creates the Slack message for a newly found match using Block Kit.
func (s *Notifier) formatProposal(m *match.Match) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "⚔️ Match found! ⚔️", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("Mode: %s\nAccept before: %s",
		modeLabel(m.Mode),
		m.AcceptDeadline.UTC().Format("15:04:05 MST"),
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", detailsText, false, false), nil, nil))
	blocks = append(blocks, s.teamsBlock(m))

	acceptBtn := slack.NewButtonBlockElement(ActionAccept, m.ID, slack.NewTextBlockObject("plain_text", "Accept", true, false))
	acceptBtn.Style = slack.StylePrimary
	declineBtn := slack.NewButtonBlockElement(ActionDecline, m.ID, slack.NewTextBlockObject("plain_text", "Decline", true, false))
	declineBtn.Style = slack.StyleDanger
	blocks = append(blocks, slack.NewActionBlock("", acceptBtn, declineBtn))

	return slack.NewBlockMessage(blocks...)
}

// formatCancelled creates the Slack message for a match that fell through.
func (s *Notifier) formatCancelled(m *match.Match, reason string) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "❌ Match cancelled", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("Your %s match was cancelled: %s.\nJoin the queue again to keep searching.", modeLabel(m.Mode), reason)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", detailsText, false, false), nil, nil))

	var mentionElements []slack.MixedElement
	mentionElements = append(mentionElements, slack.NewTextBlockObject("mrkdwn", mentions(m.Players()), false, false))
	blocks = append(blocks, slack.NewContextBlock("", mentionElements...))

	return slack.NewBlockMessage(blocks...)
}

// formatHostInstructions creates the Slack message telling the host to open the lobby.
func (s *Notifier) formatHostInstructions(m *match.Match) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎮 Match is on!", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	hostText := fmt.Sprintf("<@%s> is the host. Create a custom lobby and submit the party code so everyone can join.", m.HostID)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", hostText, false, false), nil, nil))
	blocks = append(blocks, s.teamsBlock(m))

	return slack.NewBlockMessage(blocks...)
}

// formatPartyCode fans the lobby code out to the participants.
func (s *Notifier) formatPartyCode(m *match.Match) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🔑 Party code ready", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	codeText := fmt.Sprintf("Party code: `%s`\nJoin the lobby now. %s", m.PartyCode, mentions(m.Players()))
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", codeText, false, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatResult creates the Slack message for a finished match with rating movement.
func (s *Notifier) formatResult(m *match.Match, deltas map[string]int) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏆 Match finished!", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	winners := mentions(m.TeamPlayers(m.Winner))
	resultText := fmt.Sprintf("Team %s wins: %s", m.Winner, winners)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", resultText, false, false), nil, nil))

	if len(deltas) > 0 {
		ids := make([]string, 0, len(deltas))
		for id := range deltas {
			ids = append(ids, id)
		}
		sort.Strings(ids) // Sort to ensure deterministic order

		lines := make([]string, 0, len(ids))
		for _, id := range ids {
			lines = append(lines, fmt.Sprintf("• <@%s>: %+d MMR", id, deltas[id]))
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", strings.Join(lines, "\n"), false, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// teamsBlock renders both rosters as one section.
func (s *Notifier) teamsBlock(m *match.Match) slack.Block {
	text := fmt.Sprintf("Team A: %s\nTeam B: %s", mentions(m.TeamA), mentions(m.TeamB))
	return slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil)
}

func mentions(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("<@%s>", id)
	}
	return strings.Join(out, " ")
}

func modeLabel(mode match.Mode) string {
	if mode == match.ModeDuel {
		return "Duel (1v1)"
	}
	return "Team Battle (5v5)"
}
