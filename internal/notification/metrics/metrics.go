package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for notification dispatch.
type Metrics struct {
	// Delivery attempts by channel and terminal status
	Deliveries *prometheus.CounterVec

	// Recipients skipped because their idempotency key was already delivered
	Skipped prometheus.Counter

	// Full dispatch latency including store writes
	DispatchLatency prometheus.Histogram

	// Circuit breaker state per channel (1 = open)
	CircuitOpen *prometheus.GaugeVec
}

// New creates a Metrics instance registered with reg. Pass nil to use the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hemolink_notification_deliveries_total",
			Help: "Delivery attempts by channel and status",
		}, []string{"channel", "status"}),

		Skipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "hemolink_notification_skipped_total",
			Help: "Recipients skipped because they were already delivered for the request",
		}),

		DispatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hemolink_notification_dispatch_duration_seconds",
			Help:    "Duration of a bulk dispatch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		CircuitOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hemolink_notification_circuit_open",
			Help: "Whether the channel circuit breaker is open (1) or closed (0)",
		}, []string{"channel"}),
	}
}

func (m *Metrics) IncrementDelivery(channel, status string) {
	if m != nil {
		m.Deliveries.WithLabelValues(channel, status).Inc()
	}
}

func (m *Metrics) IncrementSkipped() {
	if m != nil {
		m.Skipped.Inc()
	}
}

func (m *Metrics) ObserveDispatchLatency(d time.Duration) {
	if m != nil {
		m.DispatchLatency.Observe(d.Seconds())
	}
}

// SetCircuitOpen records the breaker state for a channel.
func (m *Metrics) SetCircuitOpen(channel string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitOpen.WithLabelValues(channel).Set(v)
}
