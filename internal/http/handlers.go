package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mkrag/matchpoint/internal/lifecycle"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/player"
	"github.com/mkrag/matchpoint/internal/queue"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// JoinQueueHandler registers the player on first contact, resolves the mode
// (explicit param or the player's stored selection) and enters the queue.
// A Duel join that fills the queue to a pair triggers an immediate search.
func (s *Server) JoinQueueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("playerID")
		if playerID == "" {
			http.Error(w, "playerID is required", http.StatusBadRequest)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = playerID
		}

		p, err := s.Players.Ensure(playerID, name)
		if err != nil {
			s.writeError(w, err)
			return
		}

		mode := p.SelectedMode
		if modeStr := r.URL.Query().Get("mode"); modeStr != "" {
			mode, err = match.ParseMode(modeStr)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would join queue", "playerID", playerID, "mode", mode)
			s.writeJSON(w, map[string]any{"dry_run": true, "mode": mode, "length": s.Queue.Len(mode)})
			return
		}

		length, err := s.Queue.Join(playerID, mode)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.Metrics.IncQueueJoins(string(mode))

		// A full Duel pair is worth an immediate synchronous look instead of
		// waiting out the tick interval.
		if mode == match.ModeDuel && length == match.ModeDuel.PlayersNeeded() {
			s.Matchmaker.TryMatch(mode)
		}

		s.writeJSON(w, map[string]any{"mode": mode, "position": length})
	}
}

func (s *Server) LeaveQueueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("playerID")
		if playerID == "" {
			http.Error(w, "playerID is required", http.StatusBadRequest)
			return
		}

		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would leave queue", "playerID", playerID)
			s.writeJSON(w, map[string]any{"dry_run": true})
			return
		}

		removed := s.Queue.Leave(playerID)
		if removed {
			s.Metrics.IncQueueLeaves()
		}
		s.writeJSON(w, map[string]any{"removed": removed})
	}
}

// QueueStatusHandler reports length and search age, for one mode or both.
func (s *Server) QueueStatusHandler() http.HandlerFunc {
	type status struct {
		Mode           match.Mode `json:"mode"`
		Length         int        `json:"length"`
		ElapsedSeconds float64    `json:"elapsed_seconds"`
	}
	statusFor := func(mode match.Mode) status {
		return status{
			Mode:           mode,
			Length:         s.Queue.Len(mode),
			ElapsedSeconds: s.Queue.Elapsed(mode).Seconds(),
		}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if modeStr := r.URL.Query().Get("mode"); modeStr != "" {
			mode, err := match.ParseMode(modeStr)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.writeJSON(w, statusFor(mode))
			return
		}
		s.writeJSON(w, []status{statusFor(match.ModeDuel), statusFor(match.ModeTeamBattle)})
	}
}

func (s *Server) SelectModeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("playerID")
		modeStr := r.URL.Query().Get("mode")
		if playerID == "" || modeStr == "" {
			http.Error(w, "playerID and mode are required", http.StatusBadRequest)
			return
		}
		mode, err := match.ParseMode(modeStr)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.Players.SetSelectedMode(playerID, mode); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]any{"selected_mode": mode})
	}
}

func (s *Server) AcceptMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, playerID, ok := matchParams(w, r)
		if !ok {
			return
		}
		m, err := s.Lifecycle.Accept(matchID, playerID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) DeclineMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, playerID, ok := matchParams(w, r)
		if !ok {
			return
		}
		m, err := s.Lifecycle.Decline(matchID, playerID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) VoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, playerID, ok := matchParams(w, r)
		if !ok {
			return
		}
		team, err := match.ParseTeam(r.URL.Query().Get("team"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m, err := s.Lifecycle.Vote(matchID, playerID, team)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) PartyCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, playerID, ok := matchParams(w, r)
		if !ok {
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "code is required", http.StatusBadRequest)
			return
		}
		m, err := s.Lifecycle.SubmitPartyCode(matchID, playerID, code)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

func (s *Server) SelectWinnerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, playerID, ok := matchParams(w, r)
		if !ok {
			return
		}
		target := r.URL.Query().Get("target")
		if target == "" {
			http.Error(w, "target is required", http.StatusBadRequest)
			return
		}
		m, err := s.Lifecycle.SelectWinner(matchID, playerID, target)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, m)
	}
}

// ListMatchesHandler returns matches by status. Finished matches are capped
// by the limit param (default 10), everything else lists in full.
func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statusStr := r.URL.Query().Get("status")
		if statusStr == "" {
			statusStr = string(match.StatusActive)
		}
		status := match.Status(statusStr)

		if status == match.StatusFinished {
			limit := intParam(r, "limit", 10)
			matches, err := s.Matches.ListFinished(limit)
			if err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, matches)
			return
		}

		matches, err := s.Matches.ListByStatus(status)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, matches)
	}
}

func (s *Server) LeaderboardHandler() http.HandlerFunc {
	type row struct {
		Rank     int    `json:"rank"`
		PlayerID string `json:"player_id"`
		Name     string `json:"name"`
		MMR      int    `json:"mmr"`
		Wins     int    `json:"wins"`
		Losses   int    `json:"losses"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		mode := match.ModeTeamBattle
		if modeStr := r.URL.Query().Get("mode"); modeStr != "" {
			var err error
			mode, err = match.ParseMode(modeStr)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		limit := intParam(r, "limit", 10)

		players, err := s.Players.TopByRating(mode, limit)
		if err != nil {
			s.writeError(w, err)
			return
		}
		rows := make([]row, len(players))
		for i, p := range players {
			wins, losses := p.Record(mode)
			rows[i] = row{
				Rank:     i + 1,
				PlayerID: p.ID,
				Name:     p.Name,
				MMR:      p.Rating(mode),
				Wins:     wins,
				Losses:   losses,
			}
		}
		s.writeJSON(w, rows)
	}
}

func (s *Server) PlayerStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("playerID")
		if playerID == "" {
			http.Error(w, "playerID is required", http.StatusBadRequest)
			return
		}
		p, err := s.Players.Get(playerID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, p)
	}
}

func matchParams(w http.ResponseWriter, r *http.Request) (matchID, playerID string, ok bool) {
	matchID = r.URL.Query().Get("matchID")
	playerID = r.URL.Query().Get("playerID")
	if matchID == "" || playerID == "" {
		http.Error(w, "matchID and playerID are required", http.StatusBadRequest)
		return "", "", false
	}
	return matchID, playerID, true
}

func intParam(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Warn("Invalid numeric parameter, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, player.ErrNotFound), errors.Is(err, match.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrNotParticipant), errors.Is(err, lifecycle.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, queue.ErrAlreadyQueued),
		errors.Is(err, queue.ErrAlreadyInMatch),
		errors.Is(err, lifecycle.ErrWrongStatus),
		errors.Is(err, lifecycle.ErrDuplicateVote),
		errors.Is(err, lifecycle.ErrPartyCodeRequired):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		log.Error("Request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}
