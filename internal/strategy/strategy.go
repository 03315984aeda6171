// Package strategy implements the trading loops: market making,
// position unwinding and collateral split-and-sell. Every loop shares
// one reconciliation engine that keeps resting orders at the best
// executable price and confirms fills against the open-order listing.
package strategy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/markets"
	"github.com/mkarpov/opinion-mm/internal/storage"
	"github.com/mkarpov/opinion-mm/internal/venue"
)

// minOrderNotional is the venue's floor for a resting order, in
// collateral currency. Orders and reprices below it are skipped.
const minOrderNotional = 1.0

// Timings groups every sleep and retry knob of the loops. Production
// uses DefaultTimings; tests shrink them to milliseconds.
type Timings struct {
	// StopCheck is the granularity at which sleeps re-check the stop
	// signal.
	StopCheck time.Duration
	// ConfirmRetries and ConfirmDelay bound the fill-confirmation
	// re-queries of the open-order list.
	ConfirmRetries int
	ConfirmDelay   time.Duration
	// ReplacePause separates a cancel from its re-placement.
	ReplacePause time.Duration
	// StatusInterval spaces the periodic open-leg summaries.
	StatusInterval time.Duration
	// BalancePollInterval and BalancePollTimeout bound the wait for
	// split shares to appear.
	BalancePollInterval time.Duration
	BalancePollTimeout  time.Duration
	// SettlementDelay is the extra wait after split shares appear
	// before they are sold.
	SettlementDelay time.Duration
}

// DefaultTimings returns the production timing profile.
func DefaultTimings() Timings {
	return Timings{
		StopCheck:           time.Second,
		ConfirmRetries:      3,
		ConfirmDelay:        2 * time.Second,
		ReplacePause:        500 * time.Millisecond,
		StatusInterval:      5 * time.Minute,
		BalancePollInterval: 5 * time.Second,
		BalancePollTimeout:  60 * time.Second,
		SettlementDelay:     5 * time.Second,
	}
}

// Deps carries the collaborators a strategy run needs.
type Deps struct {
	Gateway  venue.Gateway
	Resolver *markets.Resolver
	Storage  storage.Storage
	Timings  Timings
	TaskID   string
	Logger   *zap.Logger
}

// recordTrade persists a trade, tolerating a nil storage and logging
// persistence failures without affecting the loop.
func (d *Deps) recordTrade(ctx context.Context, trade *storage.Trade) {
	if d.Storage == nil {
		return
	}
	trade.TaskID = d.TaskID
	if err := d.Storage.RecordTrade(ctx, trade); err != nil {
		d.Logger.Warn("trade-record-failed", zap.Error(err))
	}
}

// updateTrade updates a persisted trade's status.
func (d *Deps) updateTrade(ctx context.Context, orderID, status string, profit *float64) {
	if d.Storage == nil || orderID == "" {
		return
	}
	if err := d.Storage.UpdateTradeStatus(ctx, orderID, status, profit); err != nil {
		d.Logger.Warn("trade-update-failed", zap.Error(err))
	}
}

// sleepWithStop sleeps for total, waking at stopCheck granularity to
// honor the stop signal. Returns false if stopped.
func sleepWithStop(stop <-chan struct{}, total, stopCheck time.Duration) bool {
	if stopCheck <= 0 {
		stopCheck = time.Second
	}
	deadline := time.Now().Add(total)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := stopCheck
		if remaining < step {
			step = remaining
		}
		select {
		case <-stop:
			return false
		case <-time.After(step):
		}
	}
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
