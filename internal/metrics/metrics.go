package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "moim"

var (
	// MembershipOps counts membership mutations by operation and result.
	MembershipOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "membership",
		Name:      "operations_total",
		Help:      "Membership operations by operation and result",
	}, []string{"operation", "result"})

	// MembershipDuration tracks transaction latency of membership mutations.
	MembershipDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "membership",
		Name:      "duration_seconds",
		Help:      "Membership transaction duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"operation"})

	// FeedFetches counts store reads issued by feed paginators.
	FeedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "fetches_total",
		Help:      "Feed store reads by mode and result",
	}, []string{"mode", "result"})

	// FeedStaleDrops counts fetch results discarded because the feed was reset
	// while they were in flight.
	FeedStaleDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "stale_results_total",
		Help:      "Feed fetch results dropped after a reset",
	})

	// CascadeRounds tracks how many batch rounds a cascade delete needed.
	CascadeRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cascade",
		Name:      "rounds",
		Help:      "Batch rounds per cascade delete",
		Buckets:   []float64{0, 1, 2, 5, 10, 50, 100},
	})

	// CascadeResults counts cascade deletes by result.
	CascadeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cascade",
		Name:      "deletes_total",
		Help:      "Cascade deletes by result",
	}, []string{"result"})

	// LiveSubscriptions is the number of open live subscriptions.
	LiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "subscriptions",
		Help:      "Open live subscriptions",
	})

	// LiveNotices counts change notices published by topic kind.
	LiveNotices = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "notices_total",
		Help:      "Change notices published by topic kind and result",
	}, []string{"kind", "result"})
)

// Result maps an error to the result label used across the counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
