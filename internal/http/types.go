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

type Server struct {
	Players        player.Store
	Matches        match.Store
	Queue          *queue.Manager
	Matchmaker     *matchmaker.Matchmaker
	Lifecycle      *lifecycle.Controller
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}
