package http

import (
	"net/http"

	"github.com/mkrag/matchpoint/internal/config"
	"github.com/mkrag/matchpoint/internal/lifecycle"
	"github.com/mkrag/matchpoint/internal/match"
	"github.com/mkrag/matchpoint/internal/matchmaker"
	"github.com/mkrag/matchpoint/internal/metrics"
	"github.com/mkrag/matchpoint/internal/player"
	"github.com/mkrag/matchpoint/internal/queue"
)

func NewServer(players player.Store, matches match.Store, q *queue.Manager, mm *matchmaker.Matchmaker, lc *lifecycle.Controller, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Players:        players,
		Matches:        matches,
		Queue:          q,
		Matchmaker:     mm,
		Lifecycle:      lc,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// This makes it easy to add more middlewares in the future, like an authentication middleware.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/queue/join", Chain(s.JoinQueueHandler(), paramsMiddleware))
	s.Router.Handle("/queue/leave", Chain(s.LeaveQueueHandler(), paramsMiddleware))
	s.Router.Handle("/queue/status", Chain(s.QueueStatusHandler(), paramsMiddleware))
	s.Router.Handle("/mode", Chain(s.SelectModeHandler(), paramsMiddleware))
	s.Router.Handle("/match/accept", Chain(s.AcceptMatchHandler(), paramsMiddleware))
	s.Router.Handle("/match/decline", Chain(s.DeclineMatchHandler(), paramsMiddleware))
	s.Router.Handle("/match/vote", Chain(s.VoteHandler(), paramsMiddleware))
	s.Router.Handle("/match/party-code", Chain(s.PartyCodeHandler(), paramsMiddleware))
	s.Router.Handle("/match/select-winner", Chain(s.SelectWinnerHandler(), paramsMiddleware))
	s.Router.Handle("/matches", Chain(s.ListMatchesHandler(), paramsMiddleware))
	s.Router.Handle("/leaderboard", Chain(s.LeaderboardHandler(), paramsMiddleware))
	s.Router.Handle("/players/stats", Chain(s.PlayerStatsHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
