// Package matchmaker runs the periodic search that turns queued players into
// match proposals. Each game mode gets its own ticker, started when the
// mode's queue becomes non-empty and stopped when it drains.
package matchmaker

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/metrics"
	"github.com/mkrag/matchpoint/internal/queue"
)

// DefaultInterval is how often a mode's queue is re-evaluated.
const DefaultInterval = 10 * time.Second

// ProposeFunc receives the two teams of a found match. It is expected to
// create the match and drive it through its lifecycle.
type ProposeFunc func(mode match.Mode, teamA, teamB []string) error

// Criteria is the acceptance window for one evaluation pass. It widens as
// the search window ages so long waits trade balance for speed.
type Criteria struct {
	// MaxGap is the largest accepted rating gap between the two sides.
	MaxGap float64
	// MinPlayers is the smallest queue that may be force-matched.
	MinPlayers int
	// Force allows an unbalanced random match when no balanced one exists.
	Force bool
}

// CriteriaFor returns the acceptance window for a search that has been open
// for elapsed time.
func CriteriaFor(mode match.Mode, elapsed time.Duration) Criteria {
	c := Criteria{MinPlayers: mode.PlayersNeeded()}
	switch {
	case elapsed < time.Minute:
		c.MaxGap = 50
	case elapsed < 2*time.Minute:
		c.MaxGap = 100
	default:
		c.MaxGap = 200
		c.Force = true
		if mode == match.ModeTeamBattle {
			c.MinPlayers = 8
		}
	}
	return c
}

// Matchmaker owns the per-mode search tickers. All evaluation, including the
// Duel fast path, runs under one mutex so concurrent triggers cannot commit
// overlapping matches from the same snapshot.
type Matchmaker struct {
	mu      sync.Mutex
	queue   *queue.Manager
	propose ProposeFunc
	metrics metrics.Metrics
	rnd     *rand.Rand

	interval time.Duration
	tickers  map[match.Mode]chan struct{}
	tickerMu sync.Mutex
}

// New creates a matchmaker over the given queue manager.
func New(q *queue.Manager, propose ProposeFunc, m metrics.Metrics) *Matchmaker {
	return &Matchmaker{
		queue:    q,
		propose:  propose,
		metrics:  m,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		interval: DefaultInterval,
		tickers:  make(map[match.Mode]chan struct{}),
	}
}

// SetInterval overrides the tick interval, for tests.
func (mm *Matchmaker) SetInterval(d time.Duration) {
	mm.tickerMu.Lock()
	defer mm.tickerMu.Unlock()
	mm.interval = d
}

// SetRand overrides the randomness source, for tests.
func (mm *Matchmaker) SetRand(rnd *rand.Rand) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.rnd = rnd
}

// Start begins the periodic search for a mode. It is a no-op when the
// mode's ticker is already running.
func (mm *Matchmaker) Start(mode match.Mode) {
	mm.tickerMu.Lock()
	defer mm.tickerMu.Unlock()
	if _, running := mm.tickers[mode]; running {
		return
	}
	stop := make(chan struct{})
	mm.tickers[mode] = stop
	interval := mm.interval
	log.Info("Matchmaking search started", "mode", mode)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mm.TryMatch(mode)
			case <-stop:
				return
			}
		}
	}()
}

// Stop ends the periodic search for a mode. Idempotent.
func (mm *Matchmaker) Stop(mode match.Mode) {
	mm.tickerMu.Lock()
	defer mm.tickerMu.Unlock()
	stop, running := mm.tickers[mode]
	if !running {
		return
	}
	delete(mm.tickers, mode)
	close(stop)
	log.Info("Matchmaking search stopped", "mode", mode)
}

// TryMatch runs one evaluation pass for the mode. The Duel fast path calls
// this synchronously when a join fills the queue to a full pair.
func (mm *Matchmaker) TryMatch(mode match.Mode) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	start := time.Now()
	defer func() {
		if mm.metrics != nil {
			mm.metrics.ObserveTickDuration(time.Since(start).Seconds())
		}
	}()

	entries := mm.queue.Snapshot(mode)
	criteria := CriteriaFor(mode, mm.queue.Elapsed(mode))

	var teamA, teamB []string
	if mode == match.ModeDuel {
		teamA, teamB = mm.findPair(entries, criteria)
	} else {
		teamA, teamB = mm.findTeams(entries, criteria)
	}
	if teamA == nil {
		return
	}

	if err := mm.propose(mode, teamA, teamB); err != nil {
		log.Error("Failed to propose match, players stay queued", "mode", mode, "error", err)
		return
	}
	mm.queue.RemoveMatched(mode, append(append([]string{}, teamA...), teamB...))
}

// findPair picks the two queued players with the smallest rating gap,
// scanning every pair and keeping the first minimal one in insertion order.
func (mm *Matchmaker) findPair(entries []queue.Entry, c Criteria) (teamA, teamB []string) {
	if len(entries) < 2 {
		return nil, nil
	}

	bestGap := math.MaxFloat64
	bestI, bestJ := -1, -1
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			gap := math.Abs(float64(entries[i].Rating - entries[j].Rating))
			if gap < bestGap {
				bestGap = gap
				bestI, bestJ = i, j
			}
		}
	}

	if bestGap <= c.MaxGap {
		return []string{entries[bestI].PlayerID}, []string{entries[bestJ].PlayerID}
	}
	if !c.Force {
		return nil, nil
	}

	log.Info("No balanced pair found, forcing a random match", "queued", len(entries))
	shuffled := mm.shuffled(entries)
	return []string{shuffled[0].PlayerID}, []string{shuffled[1].PlayerID}
}

// findTeams splits the ten lowest-rated queued players into alternating
// rating-sorted teams, falling back to a random split when the balanced one
// exceeds the gap limit and the search is old enough to force.
func (mm *Matchmaker) findTeams(entries []queue.Entry, c Criteria) (teamA, teamB []string) {
	size := match.ModeTeamBattle.TeamSize()
	if len(entries) >= 2*size {
		sorted := make([]queue.Entry, len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rating < sorted[j].Rating })

		var ratingsA, ratingsB []int
		for i := 0; i < 2*size; i++ {
			if i%2 == 0 {
				teamA = append(teamA, sorted[i].PlayerID)
				ratingsA = append(ratingsA, sorted[i].Rating)
			} else {
				teamB = append(teamB, sorted[i].PlayerID)
				ratingsB = append(ratingsB, sorted[i].Rating)
			}
		}

		gap := math.Abs(average(ratingsA) - average(ratingsB))
		if gap <= c.MaxGap {
			return teamA, teamB
		}
		log.Debug("Balanced split exceeds gap limit", "gap", gap, "maxGap", c.MaxGap)
	}

	if !c.Force || len(entries) < c.MinPlayers {
		return nil, nil
	}

	log.Info("No balanced teams found, forcing a random match", "queued", len(entries))
	shuffled := mm.shuffled(entries)
	n := len(shuffled)
	if n > 2*size {
		n = 2 * size
	}
	n -= n % 2
	teamA, teamB = nil, nil
	for i := 0; i < n; i++ {
		if i < n/2 {
			teamA = append(teamA, shuffled[i].PlayerID)
		} else {
			teamB = append(teamB, shuffled[i].PlayerID)
		}
	}
	return teamA, teamB
}

func (mm *Matchmaker) shuffled(entries []queue.Entry) []queue.Entry {
	out := make([]queue.Entry, len(entries))
	copy(out, entries)
	mm.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func average(ratings []int) float64 {
	total := 0
	for _, r := range ratings {
		total += r
	}
	return float64(total) / float64(len(ratings))
}
