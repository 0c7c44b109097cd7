package pod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	podCreateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodman_pod_create_total",
			Help: "Total number of Pod creation attempts",
		},
		[]string{"status"}, // success, collision, error
	)

	podReadyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kodman_pod_ready_duration_seconds",
			Help:    "Time from Pod creation until it left the Pending phase",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	podDeleteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodman_pod_delete_total",
			Help: "Total number of Pod deletions",
		},
		[]string{"status"}, // success, absent, error
	)
)
