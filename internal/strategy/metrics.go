package strategy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	LegsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "opinion_strategy_legs_active",
			Help: "Number of resting order legs currently tracked",
		},
	)

	FillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_strategy_fills_total",
			Help: "Total number of confirmed fills by order role",
		},
		[]string{"role"},
	)

	RepricesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_strategy_reprices_total",
			Help: "Total number of cancel-and-replace reprice attempts by order role",
		},
		[]string{"role"},
	)

	SplitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opinion_strategy_splits_total",
			Help: "Total number of collateral splits executed",
		},
	)
)
