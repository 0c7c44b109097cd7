package run

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodman_run_total",
			Help: "Total number of runs by outcome",
		},
		[]string{"status"}, // success, nonzero, error
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kodman_run_duration_seconds",
			Help:    "Wall time of a run from request to result",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	runExitCode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kodman_run_exit_code",
			Help: "Exit code of the most recent command",
		},
	)

	cleanupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodman_run_cleanup_total",
			Help: "Total number of post-run pod deletions by outcome",
		},
		[]string{"status"}, // success, error
	)
)
