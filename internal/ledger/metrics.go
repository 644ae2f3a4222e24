package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "streamswap",
	Subsystem: "ledger",
	Name:      "operation_duration_seconds",
	Help:      "Duration of ledger operations by type.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

func init() {
	prometheus.MustRegister(opDuration)
}

func observeOp(operation string) func() {
	start := time.Now()
	return func() {
		opDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
