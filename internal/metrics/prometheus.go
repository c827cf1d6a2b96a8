package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// 5ms to 30s, covering a slow SMTP relay.
	durationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	// RunsTotal counts batch runs by outcome: ok, failed, skipped (lock held).
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadman_runs_total",
			Help: "Total number of batch runs, by outcome.",
		},
		[]string{"outcome"},
	)

	// OverdueUsers is the number of overdue users found by the last scan.
	OverdueUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deadman_overdue_users",
			Help: "Number of overdue users found by the most recent scan.",
		},
	)

	// DispatchResults counts per-contact dispatch results by status.
	DispatchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deadman_dispatch_results_total",
			Help: "Total number of dispatch results, by status.",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deadman_run_duration_seconds",
			Help:    "Histogram of batch run duration in seconds.",
			Buckets: durationBuckets,
		},
	)

	// DeliveryDuration measures gateway calls.
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deadman_delivery_duration_seconds",
			Help:    "Histogram of e-mail delivery duration in seconds, by success status.",
			Buckets: durationBuckets,
		},
		[]string{"success"},
	)
)

// Handler returns the HTTP handler for the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDelivery records the duration of one gateway call.
func ObserveDelivery(success bool, start time.Time) {
	successStr := "false"
	if success {
		successStr = "true"
	}
	DeliveryDuration.WithLabelValues(successStr).Observe(time.Since(start).Seconds())
}
