package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		QueueJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchpoint_queue_joins_total",
			Help: "The total number of queue joins, per game mode.",
		}, []string{"mode"}),
		QueueLeaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchpoint_queue_leaves_total",
			Help: "The total number of queue leaves.",
		}),
		MatchesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchpoint_matches_created_total",
			Help: "The total number of matches proposed, per game mode.",
		}, []string{"mode"}),
		MatchesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchpoint_matches_finished_total",
			Help: "The total number of matches finished with a winner.",
		}),
		MatchesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchpoint_matches_cancelled_total",
			Help: "The total number of matches cancelled by decline or timeout.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchpoint_matchmaker_tick_duration_seconds",
			Help:    "The duration of individual matchmaker evaluation passes.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchpoint_settlement_duration_seconds",
			Help:    "The duration of rating settlement for a finished match.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		NotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchpoint_notifications_sent_total",
			Help: "The total number of player notifications successfully sent.",
		}),
		NotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchpoint_notifications_failed_total",
			Help: "The total number of player notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "matchpoint_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.QueueJoins,
		s.QueueLeaves,
		s.MatchesCreated,
		s.MatchesFinished,
		s.MatchesCancelled,
		s.TickDuration,
		s.SettlementDuration,
		s.NotifSent,
		s.NotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncQueueJoins(mode string) {
	s.QueueJoins.WithLabelValues(mode).Inc()
}

func (s *Service) IncQueueLeaves() {
	s.QueueLeaves.Inc()
}

func (s *Service) IncMatchesCreated(mode string) {
	s.MatchesCreated.WithLabelValues(mode).Inc()
}

func (s *Service) IncMatchesFinished() {
	s.MatchesFinished.Inc()
}

func (s *Service) IncMatchesCancelled() {
	s.MatchesCancelled.Inc()
}

func (s *Service) ObserveTickDuration(duration float64) {
	s.TickDuration.Observe(duration)
}

func (s *Service) ObserveSettlementDuration(duration float64) {
	s.SettlementDuration.Observe(duration)
}

func (s *Service) IncNotifSent() {
	s.NotifSent.Inc()
}

func (s *Service) IncNotifFailed() {
	s.NotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
