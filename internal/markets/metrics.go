package markets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	TopicCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opinion_topic_cache_hits_total",
			Help: "Total number of topic metadata cache hits",
		},
	)

	TopicCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opinion_topic_cache_misses_total",
			Help: "Total number of topic metadata cache misses",
		},
	)
)
