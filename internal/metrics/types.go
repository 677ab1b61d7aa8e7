package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	QueueJoins         *prometheus.CounterVec
	QueueLeaves        prometheus.Counter
	MatchesCreated     *prometheus.CounterVec
	MatchesFinished    prometheus.Counter
	MatchesCancelled   prometheus.Counter
	TickDuration       prometheus.Histogram
	SettlementDuration prometheus.Histogram
	NotifSent          prometheus.Counter
	NotifFailed        prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
