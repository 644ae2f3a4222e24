package reconciliation

import "github.com/prometheus/client_golang/prometheus"

var (
	mismatchGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamswap",
		Subsystem: "reconciliation",
		Name:      "conservation_mismatches",
		Help:      "Number of streams failing the conservation check in the last run.",
	})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "streamswap",
		Subsystem: "reconciliation",
		Name:      "run_duration_seconds",
		Help:      "Duration of reconciliation runs in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	runErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamswap",
		Subsystem: "reconciliation",
		Name:      "errors_total",
		Help:      "Total reconciliation run errors.",
	})
)

func init() {
	prometheus.MustRegister(mismatchGauge, runDuration, runErrors)
}
