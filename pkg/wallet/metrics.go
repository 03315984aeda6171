package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// BNBBalance tracks the current BNB balance for gas fees.
	BNBBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_wallet_bnb_balance",
		Help: "Current BNB balance in wallet (native units)",
	})

	// USDTBalance tracks the current USDT collateral balance.
	USDTBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_wallet_usdt_balance",
		Help: "Current USDT balance in wallet (USDT)",
	})

	// UpdateErrorsTotal tracks the number of failed update attempts.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_wallet_update_errors_total",
		Help: "Total number of failed wallet update attempts",
	})

	// UpdateDuration tracks the time taken to fetch wallet data.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opinion_wallet_update_duration_seconds",
		Help:    "Time taken to fetch wallet data (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix timestamp of the last
	// successful update.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet update",
	})
)
