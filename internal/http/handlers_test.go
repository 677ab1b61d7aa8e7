package http

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkrag/matchpoint/internal/config"
	"github.com/mkrag/matchpoint/internal/lifecycle"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/matchmaker"
	"github.com/mkrag/matchpoint/internal/metrics"
	"github.com/mkrag/matchpoint/internal/notifier"
	"github.com/mkrag/matchpoint/internal/player"
	"github.com/mkrag/matchpoint/internal/pubsub"
	"github.com/mkrag/matchpoint/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server  *Server
	players *player.MockStore
	matches *match.MockStore
	notif   *notifier.Mock
	metrics *metrics.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		players: player.NewMockStore(),
		matches: match.NewMockStore(),
		notif:   notifier.NewMock(),
		metrics: metrics.NewMock(),
	}
	q := queue.NewManager(f.players, nil, nil)
	ctrl := lifecycle.New(f.matches, f.players, f.notif, pubsub.NewMock(), f.metrics)
	mm := matchmaker.New(q, func(mode match.Mode, teamA, teamB []string) error {
		_, err := ctrl.Create(mode, teamA, teamB)
		return err
	}, f.metrics)

	f.server = NewServer(f.players, f.matches, q, mm, ctrl, f.metrics, nethttp.NotFoundHandler(), config.Config{})
	return f
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/health")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "OK!", rec.Body.String())
}

func TestJoinQueue(t *testing.T) {
	t.Run("registers the player on first contact", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, "POST", "/queue/join?playerID=U1&name=Alice&mode=5v5")
		require.Equal(t, nethttp.StatusOK, rec.Code)

		p, err := f.players.Get("U1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", p.Name)
		assert.Equal(t, 250, p.MMRTeam)
		assert.Equal(t, 1, f.metrics.QueueJoins(string(match.ModeTeamBattle)))
	})

	t.Run("joining twice conflicts", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, "POST", "/queue/join?playerID=U1&mode=5v5")
		rec := f.do(t, "POST", "/queue/join?playerID=U1&mode=1v1")
		assert.Equal(t, nethttp.StatusConflict, rec.Code)
	})

	t.Run("falls back to the player's selected mode", func(t *testing.T) {
		f := newFixture(t)
		f.players.Seed(&player.Player{ID: "U1", Name: "Alice", SelectedMode: match.ModeDuel})

		rec := f.do(t, "POST", "/queue/join?playerID=U1")
		require.Equal(t, nethttp.StatusOK, rec.Code)

		body := decode[map[string]any](t, rec)
		assert.Equal(t, string(match.ModeDuel), body["mode"])
	})

	t.Run("invalid mode is a bad request", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, "POST", "/queue/join?playerID=U1&mode=3v3")
		assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	})

	t.Run("a full duel pair matches immediately", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, "POST", "/queue/join?playerID=U1&mode=1v1")
		f.do(t, "POST", "/queue/join?playerID=U2&mode=1v1")

		pending, err := f.matches.ListByStatus(match.StatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, match.ModeDuel, pending[0].Mode)

		p, err := f.players.Get("U1")
		require.NoError(t, err)
		assert.Equal(t, pending[0].ID, p.CurrentMatchID)
	})

	t.Run("a player bound to a match cannot queue", func(t *testing.T) {
		f := newFixture(t)
		f.players.Seed(&player.Player{ID: "U1", CurrentMatchID: "m1"})
		rec := f.do(t, "POST", "/queue/join?playerID=U1&mode=1v1")
		assert.Equal(t, nethttp.StatusConflict, rec.Code)
	})

	t.Run("dry run does not mutate the queue", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, "POST", "/queue/join?playerID=U1&mode=1v1&dry_run=true")
		require.Equal(t, nethttp.StatusOK, rec.Code)
		assert.Equal(t, 0, f.server.Queue.Len(match.ModeDuel))
	})
}

func TestLeaveQueue(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/queue/join?playerID=U1&mode=5v5")

	rec := f.do(t, "POST", "/queue/leave?playerID=U1")
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["removed"])

	rec = f.do(t, "POST", "/queue/leave?playerID=U1")
	body = decode[map[string]any](t, rec)
	assert.Equal(t, false, body["removed"], "leaving twice is a harmless no-op")
}

func TestQueueStatus(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/queue/join?playerID=U1&mode=5v5")

	rec := f.do(t, "GET", "/queue/status?mode=5v5")
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), body["length"])

	rec = f.do(t, "GET", "/queue/status")
	both := decode[[]map[string]any](t, rec)
	assert.Len(t, both, 2)
}

func TestSelectMode(t *testing.T) {
	f := newFixture(t)
	f.players.Seed(&player.Player{ID: "U1", Name: "Alice"})

	rec := f.do(t, "POST", "/mode?playerID=U1&mode=1v1")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	p, err := f.players.Get("U1")
	require.NoError(t, err)
	assert.Equal(t, match.ModeDuel, p.SelectedMode)

	rec = f.do(t, "POST", "/mode?playerID=ghost&mode=1v1")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

// proposeDuel queues two players so the fast path creates a pending duel.
func (f *fixture) proposeDuel(t *testing.T) *match.Match {
	t.Helper()
	f.do(t, "POST", "/queue/join?playerID=U1&mode=1v1")
	f.do(t, "POST", "/queue/join?playerID=U2&mode=1v1")
	pending, err := f.matches.ListByStatus(match.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	return pending[0]
}

// activateDuel accepts for both sides and returns the active match.
func (f *fixture) activateDuel(t *testing.T) *match.Match {
	t.Helper()
	m := f.proposeDuel(t)
	f.do(t, "POST", fmt.Sprintf("/match/accept?matchID=%s&playerID=U1", m.ID))
	f.do(t, "POST", fmt.Sprintf("/match/accept?matchID=%s&playerID=U2", m.ID))
	got, err := f.matches.Get(m.ID)
	require.NoError(t, err)
	require.Equal(t, match.StatusActive, got.Status)
	return got
}

func TestMatchLifecycleEndpoints(t *testing.T) {
	t.Run("accept then decline conflicts", func(t *testing.T) {
		f := newFixture(t)
		m := f.activateDuel(t)

		rec := f.do(t, "POST", fmt.Sprintf("/match/decline?matchID=%s&playerID=U1", m.ID))
		assert.Equal(t, nethttp.StatusConflict, rec.Code)
	})

	t.Run("outsiders are forbidden", func(t *testing.T) {
		f := newFixture(t)
		m := f.proposeDuel(t)

		rec := f.do(t, "POST", fmt.Sprintf("/match/accept?matchID=%s&playerID=intruder", m.ID))
		assert.Equal(t, nethttp.StatusForbidden, rec.Code)
	})

	t.Run("unknown match is not found", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, "POST", "/match/accept?matchID=nope&playerID=U1")
		assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	})

	t.Run("vote with a bad team letter", func(t *testing.T) {
		f := newFixture(t)
		m := f.activateDuel(t)
		rec := f.do(t, "POST", fmt.Sprintf("/match/vote?matchID=%s&playerID=U1&team=C", m.ID))
		assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	})

	t.Run("agreeing votes finish the match", func(t *testing.T) {
		f := newFixture(t)
		m := f.activateDuel(t)
		f.do(t, "POST", fmt.Sprintf("/match/vote?matchID=%s&playerID=U1&team=A", m.ID))
		rec := f.do(t, "POST", fmt.Sprintf("/match/vote?matchID=%s&playerID=U2&team=A", m.ID))
		require.Equal(t, nethttp.StatusOK, rec.Code)

		got := decode[match.Match](t, rec)
		assert.Equal(t, match.StatusFinished, got.Status)
		assert.Equal(t, match.TeamA, got.Winner)
	})

	t.Run("winner selection needs the party code", func(t *testing.T) {
		f := newFixture(t)
		m := f.activateDuel(t)

		rec := f.do(t, "POST", fmt.Sprintf("/match/select-winner?matchID=%s&playerID=%s&target=U1", m.ID, m.HostID))
		assert.Equal(t, nethttp.StatusConflict, rec.Code)

		rec = f.do(t, "POST", fmt.Sprintf("/match/party-code?matchID=%s&playerID=%s&code=XYZ", m.ID, m.HostID))
		require.Equal(t, nethttp.StatusOK, rec.Code)

		rec = f.do(t, "POST", fmt.Sprintf("/match/select-winner?matchID=%s&playerID=%s&target=U1", m.ID, m.HostID))
		require.Equal(t, nethttp.StatusOK, rec.Code)
		got := decode[match.Match](t, rec)
		assert.Equal(t, match.TeamA, got.Winner)
	})
}

func TestListMatches(t *testing.T) {
	f := newFixture(t)
	m := f.activateDuel(t)

	rec := f.do(t, "GET", "/matches?status=ACTIVE")
	active := decode[[]match.Match](t, rec)
	require.Len(t, active, 1)
	assert.Equal(t, m.ID, active[0].ID)

	f.do(t, "POST", fmt.Sprintf("/match/vote?matchID=%s&playerID=U1&team=B", m.ID))
	f.do(t, "POST", fmt.Sprintf("/match/vote?matchID=%s&playerID=U2&team=B", m.ID))

	rec = f.do(t, "GET", "/matches?status=FINISHED&limit=5")
	finished := decode[[]match.Match](t, rec)
	require.Len(t, finished, 1)
	assert.Equal(t, match.TeamB, finished[0].Winner)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	f.players.Seed(&player.Player{ID: "U1", Name: "Alice", MMRDuel: 400, WinsDuel: 3})
	f.players.Seed(&player.Player{ID: "U2", Name: "Bob", MMRDuel: 300, LossesDuel: 2})

	rec := f.do(t, "GET", "/leaderboard?mode=1v1&limit=10")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rows := decode[[]map[string]any](t, rec)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alice", rows[0]["name"])
	assert.Equal(t, float64(400), rows[0]["mmr"])
	assert.Equal(t, float64(1), rows[0]["rank"])
}

func TestPlayerStats(t *testing.T) {
	f := newFixture(t)
	f.players.Seed(&player.Player{ID: "U1", Name: "Alice", MMRTeam: 321})

	rec := f.do(t, "GET", "/players/stats?playerID=U1")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	p := decode[player.Player](t, rec)
	assert.Equal(t, 321, p.MMRTeam)

	rec = f.do(t, "GET", "/players/stats?playerID=ghost")
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}
