package lifecycle_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/mkrag/matchpoint/internal/lifecycle"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/metrics"
	"github.com/mkrag/matchpoint/internal/notifier"
	"github.com/mkrag/matchpoint/internal/player"
	"github.com/mkrag/matchpoint/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	matches *match.MockStore
	players *player.MockStore
	notif   *notifier.Mock
	events  *pubsub.MockPubSubClient
	metrics *metrics.Mock
	ctrl    *lifecycle.Controller
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		matches: match.NewMockStore(),
		players: player.NewMockStore(),
		notif:   notifier.NewMock(),
		events:  pubsub.NewMock(),
		metrics: metrics.NewMock(),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.ctrl = lifecycle.New(f.matches, f.players, f.notif, f.events, f.metrics)
	f.ctrl.SetRand(rand.New(rand.NewSource(1)))
	f.ctrl.SetNow(func() time.Time { return f.now })
	return f
}

func (f *fixture) seed(ids ...string) {
	for _, id := range ids {
		f.players.Seed(&player.Player{ID: id, Name: id, MMRTeam: 250, MMRDuel: 250})
	}
}

func (f *fixture) seedRated(id string, mmr int) {
	f.players.Seed(&player.Player{ID: id, Name: id, MMRTeam: mmr, MMRDuel: mmr})
}

// createDuel proposes p1 vs p2 and returns the match.
func (f *fixture) createDuel(t *testing.T) *match.Match {
	t.Helper()
	m, err := f.ctrl.Create(match.ModeDuel, []string{"p1"}, []string{"p2"})
	require.NoError(t, err)
	return m
}

// activateDuel accepts for both players and returns the Active match.
func (f *fixture) activateDuel(t *testing.T) *match.Match {
	t.Helper()
	m := f.createDuel(t)
	_, err := f.ctrl.Accept(m.ID, "p1")
	require.NoError(t, err)
	m, err = f.ctrl.Accept(m.ID, "p2")
	require.NoError(t, err)
	return m
}

func teamIDs(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	f.seed("p1", "p2")

	m := f.createDuel(t)

	assert.Equal(t, match.StatusPending, m.Status)
	assert.Equal(t, f.now.Add(30*time.Second), m.AcceptDeadline)
	assert.Empty(t, m.HostID)

	p, err := f.players.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, p.CurrentMatchID)
	assert.False(t, p.InQueue)

	require.Eventually(t, func() bool { return len(f.notif.Proposals()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, f.metrics.MatchesCreated(string(match.ModeDuel)))
}

func TestCreateBindingFailure(t *testing.T) {
	f := newFixture(t)
	f.seed("p1", "p2")
	f.players.AssignMatchFunc = func(ids []string, matchID string) error {
		return fmt.Errorf("db is gone")
	}

	_, err := f.ctrl.Create(match.ModeDuel, []string{"p1"}, []string{"p2"})
	require.Error(t, err)

	pending, err := f.matches.ListByStatus(match.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending, "a match without bound players must not linger")
}

func TestCreateTeamBattleDeadline(t *testing.T) {
	f := newFixture(t)
	a, b := teamIDs(5, "a"), teamIDs(5, "b")
	f.seed(append(append([]string{}, a...), b...)...)

	m, err := f.ctrl.Create(match.ModeTeamBattle, a, b)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(60*time.Second), m.AcceptDeadline)
}

func TestAccept(t *testing.T) {
	t.Run("all acceptances activate the match and pick a host", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.createDuel(t)

		m1, err := f.ctrl.Accept(m.ID, "p1")
		require.NoError(t, err)
		assert.Equal(t, match.StatusPending, m1.Status)

		m2, err := f.ctrl.Accept(m.ID, "p2")
		require.NoError(t, err)
		assert.Equal(t, match.StatusActive, m2.Status)
		assert.Contains(t, []string{"p1", "p2"}, m2.HostID)

		require.Eventually(t, func() bool { return len(f.notif.Hosts()) == 1 }, time.Second, time.Millisecond)
	})

	t.Run("accepting twice is a no-op", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.createDuel(t)

		_, err := f.ctrl.Accept(m.ID, "p1")
		require.NoError(t, err)
		m1, err := f.ctrl.Accept(m.ID, "p1")
		require.NoError(t, err)
		assert.Equal(t, match.StatusPending, m1.Status)
		assert.Len(t, m1.Accepted, 1)
	})

	t.Run("non-participants are rejected", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.createDuel(t)

		_, err := f.ctrl.Accept(m.ID, "intruder")
		assert.ErrorIs(t, err, lifecycle.ErrNotParticipant)
	})

	t.Run("accepting a resolved match fails", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		_, err := f.ctrl.Accept(m.ID, "p1")
		assert.ErrorIs(t, err, lifecycle.ErrWrongStatus)
	})

	t.Run("unknown match id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.ctrl.Accept("nope", "p1")
		assert.ErrorIs(t, err, match.ErrNotFound)
	})
}

func TestUndersizedTeamBattle(t *testing.T) {
	// Forced matches carry fewer players than a full roster, so activation
	// and the vote majority follow the actual participant count.
	newForced := func(t *testing.T) (*fixture, *match.Match, []string) {
		t.Helper()
		f := newFixture(t)
		a, b := teamIDs(4, "a"), teamIDs(4, "b")
		all := append(append([]string{}, a...), b...)
		f.seed(all...)
		m, err := f.ctrl.Create(match.ModeTeamBattle, a, b)
		require.NoError(t, err)
		return f, m, all
	}

	t.Run("activates once all eight accept", func(t *testing.T) {
		f, m, all := newForced(t)

		for i, id := range all {
			got, err := f.ctrl.Accept(m.ID, id)
			require.NoError(t, err)
			if i < len(all)-1 {
				assert.Equal(t, match.StatusPending, got.Status)
			} else {
				assert.Equal(t, match.StatusActive, got.Status)
				assert.Contains(t, all, got.HostID)
			}
		}
	})

	t.Run("finishes at five agreeing votes", func(t *testing.T) {
		f, m, all := newForced(t)
		for _, id := range all {
			_, err := f.ctrl.Accept(m.ID, id)
			require.NoError(t, err)
		}

		for _, id := range []string{"a1", "a2", "a3", "a4"} {
			got, err := f.ctrl.Vote(m.ID, id, match.TeamB)
			require.NoError(t, err)
			assert.Equal(t, match.StatusActive, got.Status, "four of eight votes are not a majority")
		}

		got, err := f.ctrl.Vote(m.ID, "b1", match.TeamB)
		require.NoError(t, err)
		assert.Equal(t, match.StatusFinished, got.Status)
		assert.Equal(t, match.TeamB, got.Winner)
	})
}

func TestDecline(t *testing.T) {
	t.Run("cancels the match and releases all participants", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.createDuel(t)

		cancelled, err := f.ctrl.Decline(m.ID, "p2")
		require.NoError(t, err)
		assert.Equal(t, match.StatusCancelled, cancelled.Status)

		for _, id := range []string{"p1", "p2"} {
			p, err := f.players.Get(id)
			require.NoError(t, err)
			assert.Empty(t, p.CurrentMatchID)
			assert.False(t, p.InQueue, "declined players are not re-queued")
		}

		require.Eventually(t, func() bool { return len(f.notif.Cancelled()) == 1 }, time.Second, time.Millisecond)
		assert.Equal(t, "declined", f.notif.Cancelled()[0].Reason)
		assert.Equal(t, 1, f.metrics.MatchesCancelled())
	})

	t.Run("declining an active match fails", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		_, err := f.ctrl.Decline(m.ID, "p1")
		assert.ErrorIs(t, err, lifecycle.ErrWrongStatus)
	})
}

func TestTimeout(t *testing.T) {
	t.Run("cancels a pending match", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.createDuel(t)

		f.ctrl.Timeout(m.ID)

		got, err := f.matches.Get(m.ID)
		require.NoError(t, err)
		assert.Equal(t, match.StatusCancelled, got.Status)
	})

	t.Run("is idempotent against resolved matches", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		f.ctrl.Timeout(m.ID)

		got, err := f.matches.Get(m.ID)
		require.NoError(t, err)
		assert.Equal(t, match.StatusActive, got.Status, "a fired timer must not cancel a resolved match")
	})

	t.Run("double timeout cancels once", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.createDuel(t)

		f.ctrl.Timeout(m.ID)
		f.ctrl.Timeout(m.ID)

		assert.Equal(t, 1, f.metrics.MatchesCancelled())
	})
}

func TestSubmitPartyCode(t *testing.T) {
	t.Run("host stores the code and it fans out", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		got, err := f.ctrl.SubmitPartyCode(m.ID, m.HostID, "ABC123")
		require.NoError(t, err)
		assert.Equal(t, "ABC123", got.PartyCode)

		require.Eventually(t, func() bool { return len(f.notif.PartyCodes()) == 1 }, time.Second, time.Millisecond)
	})

	t.Run("non-hosts are rejected", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		other := "p1"
		if m.HostID == "p1" {
			other = "p2"
		}
		_, err := f.ctrl.SubmitPartyCode(m.ID, other, "ABC123")
		assert.ErrorIs(t, err, lifecycle.ErrNotHost)
	})

	t.Run("pending matches have no lobby", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.createDuel(t)

		_, err := f.ctrl.SubmitPartyCode(m.ID, "p1", "ABC123")
		assert.ErrorIs(t, err, lifecycle.ErrWrongStatus)
	})
}

func TestVote(t *testing.T) {
	t.Run("duel needs both votes to agree", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		got, err := f.ctrl.Vote(m.ID, "p1", match.TeamA)
		require.NoError(t, err)
		assert.Equal(t, match.StatusActive, got.Status)

		got, err = f.ctrl.Vote(m.ID, "p2", match.TeamA)
		require.NoError(t, err)
		assert.Equal(t, match.StatusFinished, got.Status)
		assert.Equal(t, match.TeamA, got.Winner)
	})

	t.Run("duplicate votes are rejected", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		_, err := f.ctrl.Vote(m.ID, "p1", match.TeamA)
		require.NoError(t, err)
		_, err = f.ctrl.Vote(m.ID, "p1", match.TeamB)
		assert.ErrorIs(t, err, lifecycle.ErrDuplicateVote)
	})

	t.Run("team battle finishes at six agreeing votes", func(t *testing.T) {
		f := newFixture(t)
		a, b := teamIDs(5, "a"), teamIDs(5, "b")
		all := append(append([]string{}, a...), b...)
		f.seed(all...)

		m, err := f.ctrl.Create(match.ModeTeamBattle, a, b)
		require.NoError(t, err)
		for _, id := range all {
			_, err := f.ctrl.Accept(m.ID, id)
			require.NoError(t, err)
		}

		voters := []string{"a1", "a2", "a3", "a4", "a5"}
		for _, id := range voters {
			got, err := f.ctrl.Vote(m.ID, id, match.TeamB)
			require.NoError(t, err)
			assert.Equal(t, match.StatusActive, got.Status, "five of ten votes are not a majority")
		}

		got, err := f.ctrl.Vote(m.ID, "b1", match.TeamB)
		require.NoError(t, err)
		assert.Equal(t, match.StatusFinished, got.Status)
		assert.Equal(t, match.TeamB, got.Winner)
	})

	t.Run("votes on pending matches fail", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.createDuel(t)

		_, err := f.ctrl.Vote(m.ID, "p1", match.TeamA)
		assert.ErrorIs(t, err, lifecycle.ErrWrongStatus)
	})
}

func TestSelectWinner(t *testing.T) {
	t.Run("requires the party code first", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		_, err := f.ctrl.SelectWinner(m.ID, m.HostID, "p1")
		assert.ErrorIs(t, err, lifecycle.ErrPartyCodeRequired)
	})

	t.Run("duel target is a player id mapped to their team", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)
		_, err := f.ctrl.SubmitPartyCode(m.ID, m.HostID, "ABC123")
		require.NoError(t, err)

		got, err := f.ctrl.SelectWinner(m.ID, m.HostID, "p2")
		require.NoError(t, err)
		assert.Equal(t, match.StatusFinished, got.Status)
		assert.Equal(t, match.TeamB, got.Winner)
	})

	t.Run("team battle target is a team letter", func(t *testing.T) {
		f := newFixture(t)
		a, b := teamIDs(5, "a"), teamIDs(5, "b")
		all := append(append([]string{}, a...), b...)
		f.seed(all...)

		m, err := f.ctrl.Create(match.ModeTeamBattle, a, b)
		require.NoError(t, err)
		for _, id := range all {
			_, err := f.ctrl.Accept(m.ID, id)
			require.NoError(t, err)
		}
		_, err = f.ctrl.SubmitPartyCode(m.ID, m.HostID, "XYZ789")
		require.NoError(t, err)

		got, err := f.ctrl.SelectWinner(m.ID, m.HostID, "A")
		require.NoError(t, err)
		assert.Equal(t, match.TeamA, got.Winner)
	})

	t.Run("only the host may select", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)
		_, err := f.ctrl.SubmitPartyCode(m.ID, m.HostID, "ABC123")
		require.NoError(t, err)

		other := "p1"
		if m.HostID == "p1" {
			other = "p2"
		}
		_, err = f.ctrl.SelectWinner(m.ID, other, "p1")
		assert.ErrorIs(t, err, lifecycle.ErrNotHost)
	})
}

func TestSettlement(t *testing.T) {
	t.Run("duel winner gains and loser is floored", func(t *testing.T) {
		f := newFixture(t)
		f.seedRated("p1", 250)
		f.seedRated("p2", 260)
		m := f.activateDuel(t)

		_, err := f.ctrl.Vote(m.ID, "p1", match.TeamA)
		require.NoError(t, err)
		_, err = f.ctrl.Vote(m.ID, "p2", match.TeamA)
		require.NoError(t, err)

		p1, err := f.players.Get("p1")
		require.NoError(t, err)
		// 250 vs 260: 1 + 10/150 = 1.0667, round(30*1.0667) = 32
		assert.Equal(t, 282, p1.MMRDuel)
		assert.Equal(t, 1, p1.WinsDuel)
		assert.Empty(t, p1.CurrentMatchID)

		p2, err := f.players.Get("p2")
		require.NoError(t, err)
		// 260 - 32 = 228, floored at 250
		assert.Equal(t, 250, p2.MMRDuel)
		assert.Equal(t, 1, p2.LossesDuel)

		require.Eventually(t, func() bool { return len(f.notif.Results()) == 1 }, time.Second, time.Millisecond)
		deltas := f.notif.Results()[0].Deltas
		assert.Equal(t, 32, deltas["p1"])
		assert.Equal(t, -32, deltas["p2"])
		assert.Equal(t, 1, f.metrics.MatchesFinished())
	})

	t.Run("team settlement moves every participant against the opposing average", func(t *testing.T) {
		f := newFixture(t)
		a, b := teamIDs(5, "a"), teamIDs(5, "b")
		for _, id := range a {
			f.seedRated(id, 300)
		}
		for _, id := range b {
			f.seedRated(id, 300)
		}

		m, err := f.ctrl.Create(match.ModeTeamBattle, a, b)
		require.NoError(t, err)
		for _, id := range append(append([]string{}, a...), b...) {
			_, err := f.ctrl.Accept(m.ID, id)
			require.NoError(t, err)
		}
		_, err = f.ctrl.SubmitPartyCode(m.ID, m.HostID, "CODE")
		require.NoError(t, err)
		_, err = f.ctrl.SelectWinner(m.ID, m.HostID, "A")
		require.NoError(t, err)

		// Equal 300 averages: winners +25, losers -25.
		for _, id := range a {
			p, err := f.players.Get(id)
			require.NoError(t, err)
			assert.Equal(t, 325, p.MMRTeam)
			assert.Equal(t, 1, p.WinsTeam)
		}
		for _, id := range b {
			p, err := f.players.Get(id)
			require.NoError(t, err)
			assert.Equal(t, 275, p.MMRTeam)
			assert.Equal(t, 1, p.LossesTeam)
		}
	})

	t.Run("a finished match publishes its event with deltas", func(t *testing.T) {
		f := newFixture(t)
		f.seed("p1", "p2")
		m := f.activateDuel(t)

		_, err := f.ctrl.Vote(m.ID, "p1", match.TeamB)
		require.NoError(t, err)
		_, err = f.ctrl.Vote(m.ID, "p2", match.TeamB)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			for _, call := range f.events.Sent() {
				if call.Topic == string(pubsub.EventMatchFinished) {
					return true
				}
			}
			return false
		}, time.Second, time.Millisecond)
	})
}
