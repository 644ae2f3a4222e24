package stream

import "github.com/prometheus/client_golang/prometheus"

var (
	streamsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamswap",
		Subsystem: "streams",
		Name:      "created_total",
		Help:      "Total streams created.",
	})

	streamsTerminal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamswap",
		Subsystem: "streams",
		Name:      "terminal_total",
		Help:      "Total streams reaching a terminal state, by status.",
	}, []string{"status"}) // "finalized", "cancelled"

	subscriptionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamswap",
		Subsystem: "streams",
		Name:      "subscriptions_total",
		Help:      "Total subscribe calls across all streams.",
	})

	withdrawalsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamswap",
		Subsystem: "streams",
		Name:      "withdrawals_total",
		Help:      "Total withdraw calls across all streams.",
	})

	streamDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "streamswap",
		Subsystem: "streams",
		Name:      "duration_seconds",
		Help:      "Time from stream creation to reaching a terminal state.",
		Buckets:   []float64{60, 300, 1800, 3600, 86400, 604800},
	})
)

func init() {
	prometheus.MustRegister(
		streamsCreated,
		streamsTerminal,
		subscriptionsTotal,
		withdrawalsTotal,
		streamDurationSeconds,
	)
}
