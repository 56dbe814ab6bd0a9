package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Policy evaluation metrics
	EvaluationsTotal      *prometheus.CounterVec
	PolicyViolationsTotal prometheus.Counter
	ClaimStampsTotal      prometheus.Counter
	StoreFailuresTotal    *prometheus.CounterVec

	// Reminder scanner metrics
	NoticesSentTotal   *prometheus.CounterVec
	NoticesFailedTotal prometheus.Counter
	SweepDuration      prometheus.Histogram
}

// NewMetrics creates and registers all application metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evaluations_total",
			Help:      "Total number of lifecycle events evaluated",
		}, []string{"kind", "outcome"}),
		PolicyViolationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "policy_violations_total",
			Help:      "Total number of pre-change events rejected by the minimum lifetime policy",
		}),
		ClaimStampsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "claim_stamps_total",
			Help:      "Total number of last-changed claim writes",
		}),
		StoreFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_failures_total",
			Help:      "Total number of attribute store failures",
		}, []string{"operation"}),

		NoticesSentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notices_sent_total",
			Help:      "Total number of expiry notices sent",
		}, []string{"kind"}),
		NoticesFailedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notices_failed_total",
			Help:      "Total number of expiry notices that failed to send",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent scanning for expiring passwords",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
}
