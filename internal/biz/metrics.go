package biz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine's prometheus instruments.
type Metrics struct {
	// Attempts counts settled attempts by resolved connector and outcome.
	Attempts *prometheus.CounterVec

	// BatchDuration is the wall time of one batch, fan-out to fold.
	BatchDuration prometheus.Histogram

	// RoutingDecisions counts ranking answers by approach.
	RoutingDecisions *prometheus.CounterVec

	// UpstreamErrors classifies failed outbound calls.
	UpstreamErrors *prometheus.CounterVec

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState *prometheus.GaugeVec

	Processed          prometheus.Gauge
	OverallSuccessRate prometheus.Gauge

	// State is 0 idle, 1 running, 2 paused.
	State prometheus.Gauge
}

// NewMetrics registers the instruments on reg. A nil reg gets a private
// registry that is never scraped.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Attempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "routesim_attempts_total",
			Help: "Settled payment attempts by connector and outcome.",
		}, []string{"connector", "outcome"}),

		BatchDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "routesim_batch_duration_seconds",
			Help:    "Histogram of batch latencies.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),

		RoutingDecisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "routesim_routing_decisions_total",
			Help: "Routing decisions by approach.",
		}, []string{"approach"}),

		UpstreamErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "routesim_upstream_errors_total",
			Help: "Failed upstream calls by operation and type.",
		}, []string{"op", "type"}),

		BreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "routesim_breaker_state",
			Help: "Current state of a circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),

		Processed: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "routesim_processed_attempts",
			Help: "Attempts processed in the current run.",
		}),

		OverallSuccessRate: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "routesim_overall_success_rate",
			Help: "Cumulative success rate of the current run in percent.",
		}),

		State: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "routesim_state",
			Help: "Controller state (0=idle, 1=running, 2=paused).",
		}),
	}
}
