package transfer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transferTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodman_volume_transfer_total",
			Help: "Total number of volume transfers into Pods",
		},
		[]string{"status"}, // success or error
	)

	transferBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kodman_volume_transfer_bytes_total",
			Help: "Archive bytes streamed into Pods",
		},
	)
)
