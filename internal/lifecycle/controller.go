// Package lifecycle drives matches through their state machine: a proposed
// match is Pending until every participant accepts (Active) or someone
// declines or the accept window lapses (Cancelled); an Active match finishes
// through the vote or host winner protocols, which settle ratings exactly
// once.
package lifecycle

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/metrics"
	"github.com/mkrag/matchpoint/internal/notifier"
	"github.com/mkrag/matchpoint/internal/player"
	"github.com/mkrag/matchpoint/internal/pubsub"
	"github.com/mkrag/matchpoint/internal/rating"
)

var (
	// ErrNotParticipant is returned when the acting player is not part of the match.
	ErrNotParticipant = errors.New("player is not a participant of this match")
	// ErrWrongStatus is returned when the operation is not valid in the match's current status.
	ErrWrongStatus = errors.New("match is not in a status that allows this")
	// ErrDuplicateVote is returned when a participant votes twice.
	ErrDuplicateVote = errors.New("player has already voted")
	// ErrPartyCodeRequired is returned when the host reports a winner before the lobby exists.
	ErrPartyCodeRequired = errors.New("party code must be submitted first")
	// ErrNotHost is returned when a host-only operation comes from another player.
	ErrNotHost = errors.New("player is not the match host")
)

// Controller owns all match state transitions. One mutex serializes them;
// notification fan-out and event publishing run on goroutines outside it.
type Controller struct {
	mu      sync.Mutex
	matches match.Store
	players player.Store
	notif   notifier.Notifier
	events  pubsub.PubSubClient
	metrics metrics.Metrics

	timers map[string]*time.Timer
	rnd    *rand.Rand
	now    func() time.Time
	newID  func() string
}

// New creates a lifecycle controller. Notifier, events and metrics may be
// nil; transitions then run without fan-out.
func New(matches match.Store, players player.Store, notif notifier.Notifier, events pubsub.PubSubClient, m metrics.Metrics) *Controller {
	return &Controller{
		matches: matches,
		players: players,
		notif:   notif,
		events:  events,
		metrics: m,
		timers:  make(map[string]*time.Timer),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// SetRand overrides the randomness source, for tests.
func (c *Controller) SetRand(rnd *rand.Rand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rnd = rnd
}

// SetNow overrides the clock, for tests.
func (c *Controller) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Create persists a new Pending match, binds the participants to it and
// starts the accept timeout timer. The returned match is a snapshot.
func (c *Controller) Create(mode match.Mode, teamA, teamB []string) (*match.Match, error) {
	c.mu.Lock()

	now := c.now()
	m := &match.Match{
		ID:             c.newID(),
		Mode:           mode,
		TeamA:          teamA,
		TeamB:          teamB,
		Status:         match.StatusPending,
		AcceptDeadline: now.Add(mode.AcceptWindow()),
		CreatedAt:      now,
	}
	if err := c.matches.Create(m); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	if err := c.players.AssignMatch(m.Players(), m.ID); err != nil {
		// Without bound players the row would linger as an unreachable
		// Pending match, so take it back out.
		if derr := c.matches.Delete(m.ID); derr != nil {
			log.Error("Failed to delete unbound match", "matchID", m.ID, "error", derr)
		}
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to assign players to match: %w", err)
	}

	id := m.ID
	c.timers[id] = time.AfterFunc(mode.AcceptWindow(), func() { c.Timeout(id) })
	snapshot := *m
	c.mu.Unlock()

	log.Info("Match proposed", "matchID", m.ID, "mode", mode, "players", len(teamA)+len(teamB))
	if c.metrics != nil {
		c.metrics.IncMatchesCreated(string(mode))
	}
	c.fanOut(func() error { return c.notif.SendMatchProposal(&snapshot) }, "proposal", m.ID)
	c.publish(pubsub.EventMatchCreated, &snapshot, nil)
	return &snapshot, nil
}

// Accept records a participant's acceptance. Accepting twice is a no-op.
// When the last participant accepts, the match activates: the timer is
// cancelled, a host is drawn uniformly at random and told to open a lobby.
func (c *Controller) Accept(matchID, playerID string) (*match.Match, error) {
	c.mu.Lock()

	m, err := c.pendingMatch(matchID, playerID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if m.HasAccepted(playerID) {
		snapshot := *m
		c.mu.Unlock()
		return &snapshot, nil
	}

	m.Accepted = append(m.Accepted, playerID)
	activated := m.AllAccepted()
	if activated {
		m.Status = match.StatusActive
		players := m.Players()
		m.HostID = players[c.rnd.Intn(len(players))]
		c.stopTimer(m.ID)
	}
	if err := c.matches.Update(m); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to record acceptance: %w", err)
	}
	snapshot := *m
	c.mu.Unlock()

	if activated {
		log.Info("Match activated", "matchID", m.ID, "hostID", snapshot.HostID)
		c.fanOut(func() error { return c.notif.SendHostInstructions(&snapshot) }, "host instructions", m.ID)
		c.publish(pubsub.EventMatchActivated, &snapshot, nil)
	} else {
		log.Debug("Match accepted", "matchID", m.ID, "playerID", playerID, "accepted", len(snapshot.Accepted))
	}
	return &snapshot, nil
}

// Decline cancels a Pending match. Participants are released but not
// re-queued; re-joining is their call.
func (c *Controller) Decline(matchID, playerID string) (*match.Match, error) {
	c.mu.Lock()

	m, err := c.pendingMatch(matchID, playerID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	snapshot, err := c.cancelLocked(m, "declined")
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	log.Info("Match declined", "matchID", matchID, "playerID", playerID)
	return snapshot, nil
}

// Timeout cancels the match if its accept window lapsed while still
// Pending. It is the timer callback and is idempotent: a match already
// resolved by the last acceptance or a decline is left alone.
func (c *Controller) Timeout(matchID string) {
	c.mu.Lock()

	m, err := c.matches.Get(matchID)
	if err != nil {
		c.mu.Unlock()
		log.Error("Timeout fired for unknown match", "matchID", matchID, "error", err)
		return
	}
	if m.Status != match.StatusPending {
		c.mu.Unlock()
		return
	}
	_, err = c.cancelLocked(m, "timed out")
	c.mu.Unlock()
	if err != nil {
		log.Error("Failed to cancel timed out match", "matchID", matchID, "error", err)
		return
	}
	log.Info("Match timed out", "matchID", matchID)
}

// SubmitPartyCode stores the lobby code reported by the host and fans it
// out to every participant.
func (c *Controller) SubmitPartyCode(matchID, playerID, code string) (*match.Match, error) {
	c.mu.Lock()

	m, err := c.activeMatch(matchID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if m.HostID != playerID {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotHost, playerID)
	}

	m.PartyCode = code
	if err := c.matches.Update(m); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to store party code: %w", err)
	}
	snapshot := *m
	c.mu.Unlock()

	log.Info("Party code submitted", "matchID", matchID)
	c.fanOut(func() error { return c.notif.SendPartyCode(&snapshot) }, "party code", matchID)
	return &snapshot, nil
}

// Vote records a participant's winner vote. A team claimed by more than
// half of the participants wins immediately.
func (c *Controller) Vote(matchID, playerID string, team match.Team) (*match.Match, error) {
	c.mu.Lock()

	m, err := c.activeMatch(matchID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if !m.IsParticipant(playerID) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotParticipant, playerID)
	}
	if m.HasVoted(playerID) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVote, playerID)
	}

	m.Votes = append(m.Votes, match.Vote{PlayerID: playerID, Team: team})
	forA, forB := m.VoteCounts()
	// Forced matches can be smaller than a full roster, so the majority is
	// taken over the actual participants.
	majority := (len(m.TeamA) + len(m.TeamB)) / 2

	var winner match.Team
	switch {
	case forA > majority:
		winner = match.TeamA
	case forB > majority:
		winner = match.TeamB
	}

	if winner == "" {
		if err := c.matches.Update(m); err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("failed to record vote: %w", err)
		}
		snapshot := *m
		c.mu.Unlock()
		log.Debug("Vote recorded", "matchID", matchID, "playerID", playerID, "forA", forA, "forB", forB)
		return &snapshot, nil
	}

	snapshot, err := c.finalizeLocked(m, winner)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	log.Info("Match finished by vote", "matchID", matchID, "winner", winner)
	return snapshot, nil
}

// SelectWinner lets the host settle the match directly. The lobby code must
// have been submitted first; a match nobody could join has no host-trusted
// outcome. For Duel matches target is the winning player's id, for
// TeamBattle the team letter.
func (c *Controller) SelectWinner(matchID, playerID, target string) (*match.Match, error) {
	c.mu.Lock()

	m, err := c.activeMatch(matchID)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if m.HostID != playerID {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotHost, playerID)
	}
	if m.PartyCode == "" {
		c.mu.Unlock()
		return nil, ErrPartyCodeRequired
	}

	var winner match.Team
	if m.Mode == match.ModeDuel {
		team, ok := m.TeamOf(target)
		if !ok {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrNotParticipant, target)
		}
		winner = team
	} else {
		winner, err = match.ParseTeam(target)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}

	snapshot, err := c.finalizeLocked(m, winner)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	log.Info("Match finished by host", "matchID", matchID, "winner", winner)
	return snapshot, nil
}

// pendingMatch loads a match and validates a Pending-only participant action.
func (c *Controller) pendingMatch(matchID, playerID string) (*match.Match, error) {
	m, err := c.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != match.StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongStatus, matchID, m.Status)
	}
	if !m.IsParticipant(playerID) {
		return nil, fmt.Errorf("%w: %s", ErrNotParticipant, playerID)
	}
	return m, nil
}

func (c *Controller) activeMatch(matchID string) (*match.Match, error) {
	m, err := c.matches.Get(matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != match.StatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongStatus, matchID, m.Status)
	}
	return m, nil
}

// cancelLocked moves the match to Cancelled and releases its participants.
// Callers hold c.mu.
func (c *Controller) cancelLocked(m *match.Match, reason string) (*match.Match, error) {
	m.Status = match.StatusCancelled
	m.FinishedAt = c.now()
	if err := c.matches.Update(m); err != nil {
		return nil, fmt.Errorf("failed to cancel match: %w", err)
	}
	if err := c.players.ReleaseMatch(m.Players()); err != nil {
		return nil, fmt.Errorf("failed to release players: %w", err)
	}
	c.stopTimer(m.ID)

	snapshot := *m
	if c.metrics != nil {
		c.metrics.IncMatchesCancelled()
	}
	c.fanOut(func() error { return c.notif.SendMatchCancelled(&snapshot, reason) }, "cancellation", m.ID)
	c.publish(pubsub.EventMatchCancelled, &snapshot, nil)
	return &snapshot, nil
}

// finalizeLocked settles an Active match exactly once: winner and
// timestamps are written, every participant's rating moves against the
// opposing side's average, win/loss counters bump and the match binding is
// cleared. Callers hold c.mu.
func (c *Controller) finalizeLocked(m *match.Match, winner match.Team) (*match.Match, error) {
	start := time.Now()

	m.Winner = winner
	m.Status = match.StatusFinished
	m.FinishedAt = c.now()

	deltas, err := c.settle(m, winner)
	if err != nil {
		return nil, err
	}
	if err := c.matches.Update(m); err != nil {
		return nil, fmt.Errorf("failed to finish match: %w", err)
	}
	c.stopTimer(m.ID)

	snapshot := *m
	if c.metrics != nil {
		c.metrics.IncMatchesFinished()
		c.metrics.ObserveSettlementDuration(time.Since(start).Seconds())
	}
	c.fanOut(func() error { return c.notif.SendMatchResult(&snapshot, deltas) }, "result", m.ID)
	c.publish(pubsub.EventMatchFinished, &snapshot, deltas)
	return &snapshot, nil
}

// settle computes and applies the rating movement for every participant.
// Deltas are computed against a snapshot of the pre-match ratings so the
// order of application cannot skew the averages.
func (c *Controller) settle(m *match.Match, winner match.Team) (map[string]int, error) {
	players, err := c.players.GetMany(m.Players())
	if err != nil {
		return nil, fmt.Errorf("failed to load participants for settlement: %w", err)
	}
	ratings := make(map[string]int, len(players))
	for _, p := range players {
		ratings[p.ID] = p.Rating(m.Mode)
	}

	averages := map[match.Team]float64{
		match.TeamA: teamAverage(m.TeamA, ratings),
		match.TeamB: teamAverage(m.TeamB, ratings),
	}

	settings := rating.SettingsFor(m.Mode)
	deltas := make(map[string]int, len(players))
	for _, p := range players {
		team, ok := m.TeamOf(p.ID)
		if !ok {
			continue
		}
		won := team == winner
		delta := settings.Change(ratings[p.ID], averages[team.Opponents()], won)
		newRating := rating.Apply(ratings[p.ID], delta)
		deltas[p.ID] = delta
		if err := c.players.ApplyResult(p.ID, m.Mode, won, newRating); err != nil {
			return nil, fmt.Errorf("failed to settle player %s: %w", p.ID, err)
		}
		log.Debug("Rating settled", "playerID", p.ID, "won", won, "delta", delta, "newRating", newRating)
	}
	return deltas, nil
}

func teamAverage(ids []string, ratings map[string]int) float64 {
	values := make([]int, 0, len(ids))
	for _, id := range ids {
		if r, ok := ratings[id]; ok {
			values = append(values, r)
		}
	}
	return rating.TeamAverage(values)
}

// stopTimer cancels and forgets the match's accept timer. Callers hold c.mu.
func (c *Controller) stopTimer(matchID string) {
	if t, ok := c.timers[matchID]; ok {
		t.Stop()
		delete(c.timers, matchID)
	}
}

// fanOut runs a notification on its own goroutine so slow or failing
// transports never block a state transition.
func (c *Controller) fanOut(send func() error, kind, matchID string) {
	if c.notif == nil {
		return
	}
	go func() {
		if err := send(); err != nil {
			log.Error("Failed to send notification", "kind", kind, "matchID", matchID, "error", err)
		}
	}()
}

// publish emits a match event for downstream consumers, also off the
// critical path.
func (c *Controller) publish(topic pubsub.EventType, m *match.Match, deltas map[string]int) {
	if c.events == nil {
		return
	}
	event := &pubsub.MatchEvent{
		MatchID:  m.ID,
		Mode:     string(m.Mode),
		Status:   string(m.Status),
		TeamA:    m.TeamA,
		TeamB:    m.TeamB,
		Winner:   string(m.Winner),
		Deltas:   deltas,
		UnixTime: c.now().Unix(),
	}
	go func() {
		if err := c.events.SendMessage(topic, event); err != nil {
			log.Error("Failed to publish match event", "topic", topic, "matchID", m.ID, "error", err)
		}
	}()
}
