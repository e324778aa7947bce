package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for donor ranking.
type Metrics struct {
	// Ranking outcomes by outcome signal and requested blood type
	RankOutcome *prometheus.CounterVec

	// Store read latencies by source ("donors", "profiles")
	StoreLatency *prometheus.HistogramVec

	// Candidate pool size before truncation
	Candidates prometheus.Histogram

	// Overall rank latency
	RankLatency prometheus.Histogram
}

// New creates a Metrics instance registered with reg. Pass nil to use the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RankOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hemolink_matching_rank_outcomes_total",
			Help: "Donor ranking outcomes by signal and requested blood type",
		}, []string{"outcome", "blood_type"}),

		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hemolink_matching_store_duration_seconds",
			Help:    "Duration of donor store reads by source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"source"}),

		Candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hemolink_matching_candidates",
			Help:    "Number of eligible compatible donors found per ranking call",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),

		RankLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hemolink_matching_rank_duration_seconds",
			Help:    "Duration of a full ranking call including store reads",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementOutcome records a ranking outcome.
func (m *Metrics) IncrementOutcome(outcome, bloodType string) {
	if m != nil {
		m.RankOutcome.WithLabelValues(outcome, bloodType).Inc()
	}
}

// ObserveStoreLatency records the duration of a store read.
func (m *Metrics) ObserveStoreLatency(source string, d time.Duration) {
	if m != nil {
		m.StoreLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// ObserveCandidates records the candidate pool size.
func (m *Metrics) ObserveCandidates(n int) {
	if m != nil {
		m.Candidates.Observe(float64(n))
	}
}

// ObserveRankLatency records the total ranking duration.
func (m *Metrics) ObserveRankLatency(d time.Duration) {
	if m != nil {
		m.RankLatency.Observe(d.Seconds())
	}
}
