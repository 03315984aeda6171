package task

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	TasksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_tasks_created_total",
			Help: "Total number of tasks created by strategy type",
		},
		[]string{"type"},
	)

	TasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "opinion_tasks_running",
			Help: "Number of tasks currently running",
		},
	)
)
