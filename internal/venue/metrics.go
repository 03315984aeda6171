package venue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RequestsTotal tracks venue API calls by operation and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_venue_requests_total",
			Help: "Total number of venue API requests",
		},
		[]string{"op", "result"},
	)

	// RequestDurationSeconds tracks venue API latency by operation.
	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opinion_venue_request_duration_seconds",
			Help:    "Duration of venue API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// OrdersPlacedTotal tracks accepted order placements by side.
	OrdersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_venue_orders_placed_total",
			Help: "Total number of orders accepted by the venue",
		},
		[]string{"side"},
	)
)
