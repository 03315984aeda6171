package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkarpov/opinion-mm/internal/book"
	"github.com/mkarpov/opinion-mm/internal/task"
	"github.com/mkarpov/opinion-mm/pkg/numeric"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

// Leg is one resting order tracked by the engine. It is owned
// exclusively by the engine that created it; no other goroutine
// touches it.
type Leg struct {
	Key           string
	Title         string
	SideLabel     string // YES or NO
	Yes           bool
	Role          types.OrderSide // resting order direction
	TopicID       int64           // child (outcome) topic
	ParentTopicID int64
	TokenID       string
	QuestionID    string
	OrderID       string
	TransNo       string
	Price         decimal.Decimal
	Shares        decimal.Decimal
	SoldShares    decimal.Decimal
}

// RemainingShares is the unfilled quantity of the leg.
func (l *Leg) RemainingShares() decimal.Decimal {
	return l.Shares.Sub(l.SoldShares)
}

// Engine runs the reconciliation loop over a set of legs: confirm
// fills against the open-order listing, mirror or drop filled legs,
// and chase favorable price moves on the rest. Legs live in a map
// mutated only by the loop's own goroutine; iteration snapshots keys
// before deleting.
type Engine struct {
	deps         *Deps
	log          task.Logger
	legs         map[string]*Leg
	pollInterval time.Duration
	minVolume    float64
	spreadMode   bool

	// onBuyFill runs when a BUY leg's fill is confirmed, before the
	// leg is dropped. Market making uses it to place the mirrored
	// SELL. May be nil.
	onBuyFill func(ctx context.Context, leg *Leg)

	// onSellFill runs when a SELL leg's fill is confirmed, before the
	// leg is dropped. The leg carries the price and size that actually
	// filled, after any reprices. May be nil.
	onSellFill func(ctx context.Context, leg *Leg)

	lastStatus time.Time
}

// EngineConfig configures one reconciliation engine.
type EngineConfig struct {
	Deps         *Deps
	Log          task.Logger
	PollInterval time.Duration
	MinVolume    float64
	SpreadMode   bool
	OnBuyFill    func(ctx context.Context, leg *Leg)
	OnSellFill   func(ctx context.Context, leg *Leg)
}

// NewEngine creates an engine with no legs.
func NewEngine(cfg *EngineConfig) *Engine {
	return &Engine{
		deps:         cfg.Deps,
		log:          cfg.Log,
		legs:         make(map[string]*Leg),
		pollInterval: cfg.PollInterval,
		minVolume:    cfg.MinVolume,
		spreadMode:   cfg.SpreadMode,
		onBuyFill:    cfg.OnBuyFill,
		onSellFill:   cfg.OnSellFill,
		lastStatus:   time.Now(),
	}
}

// AddLeg starts tracking a resting order.
func (e *Engine) AddLeg(leg *Leg) {
	e.legs[leg.Key] = leg
	LegsActive.Inc()
}

func (e *Engine) dropLeg(key string) {
	if _, ok := e.legs[key]; ok {
		delete(e.legs, key)
		LegsActive.Dec()
	}
}

// LegCount returns the number of tracked legs.
func (e *Engine) LegCount() int {
	return len(e.legs)
}

// Run reconciles until every leg is resolved or stop closes. On stop
// it cancels all remaining orders best-effort and returns.
func (e *Engine) Run(ctx context.Context, stop <-chan struct{}) {
	e.log("Starting monitoring...")

	for len(e.legs) > 0 {
		if stopped(stop) {
			e.cancelAll(ctx)
			return
		}

		e.cycle(ctx, stop)

		if len(e.legs) == 0 {
			break
		}
		if !sleepWithStop(stop, e.pollInterval, e.deps.Timings.StopCheck) {
			e.cancelAll(ctx)
			return
		}
	}
}

func (e *Engine) cycle(ctx context.Context, stop <-chan struct{}) {
	openIDs, err := e.fetchOpenIDs(ctx)
	if err != nil {
		e.log("Error in loop: %v", err)
		return
	}

	for _, key := range e.legKeys() {
		leg, ok := e.legs[key]
		if !ok {
			continue
		}
		if stopped(stop) {
			return
		}

		if !openIDs[leg.OrderID] {
			if !e.confirmFilled(ctx, stop, leg) {
				continue
			}
			e.handleFill(ctx, leg)
			continue
		}

		e.maybeReprice(ctx, stop, leg)
	}

	e.maybeStatus(ctx)
}

func (e *Engine) legKeys() []string {
	keys := make([]string, 0, len(e.legs))
	for key := range e.legs {
		keys = append(keys, key)
	}
	return keys
}

// fetchOpenIDs unions the open-order listings of every parent topic
// the legs span.
func (e *Engine) fetchOpenIDs(ctx context.Context) (map[string]bool, error) {
	parents := make(map[int64]bool)
	for _, leg := range e.legs {
		parents[leg.ParentTopicID] = true
	}

	ids := make(map[string]bool)
	for parent := range parents {
		orders, err := e.deps.Gateway.ListOpenOrders(ctx, parent)
		if err != nil {
			return nil, err
		}
		for _, order := range orders {
			ids[order.OrderID] = true
		}
	}
	return ids, nil
}

// confirmFilled re-queries the open-order list up to ConfirmRetries
// times. An order absent on every check is a confirmed fill; a single
// reappearance means listing lag and aborts confirmation for this
// cycle. Query failures count toward neither side and the retry
// budget biases toward "not yet filled".
func (e *Engine) confirmFilled(ctx context.Context, stop <-chan struct{}, leg *Leg) bool {
	for retry := 1; retry <= e.deps.Timings.ConfirmRetries; retry++ {
		if !sleepWithStop(stop, e.deps.Timings.ConfirmDelay, e.deps.Timings.StopCheck) {
			return false
		}
		orders, err := e.deps.Gateway.ListOpenOrders(ctx, leg.ParentTopicID)
		if err != nil {
			e.log("Verify retry %d/%d failed: %v", retry, e.deps.Timings.ConfirmRetries, err)
			continue
		}
		for _, order := range orders {
			if order.OrderID == leg.OrderID {
				e.log("%s %s still open (retry %d/%d)", leg.SideLabel, leg.Role, retry, e.deps.Timings.ConfirmRetries)
				return false
			}
		}
	}
	return true
}

func (e *Engine) handleFill(ctx context.Context, leg *Leg) {
	FillsTotal.WithLabelValues(leg.Role.String()).Inc()

	if leg.Role == types.Sell {
		e.log("%s (%s) SOLD", leg.Title, leg.SideLabel)
		notional, _ := leg.Shares.Mul(leg.Price).Float64()
		e.deps.updateTrade(ctx, leg.OrderID, "filled", &notional)
		if e.onSellFill != nil {
			e.onSellFill(ctx, leg)
		}
		e.dropLeg(leg.Key)
		return
	}

	e.log("%s BUY filled", leg.SideLabel)
	e.deps.updateTrade(ctx, leg.OrderID, "filled", nil)
	if e.onBuyFill != nil {
		e.onBuyFill(ctx, leg)
	}
	e.dropLeg(leg.Key)
}

// maybeReprice chases the market only when it moved in the leg's
// favor: a higher best bid for a resting BUY, a lower best ask for a
// resting SELL. An unchanged book is a no-op.
func (e *Engine) maybeReprice(ctx context.Context, stop <-chan struct{}, leg *Leg) {
	orderBook, err := e.deps.Gateway.GetOrderBook(ctx, leg.QuestionID, leg.TokenID, leg.Yes)
	if err != nil {
		e.log("Error in loop: %v", err)
		return
	}

	var newPrice decimal.Decimal
	switch leg.Role {
	case types.Buy:
		best, ok := book.BestBid(orderBook.Bids, e.minVolume)
		if !ok {
			return
		}
		newPrice = numeric.QuantizePriceFloat(best.Price)
		if !newPrice.GreaterThan(leg.Price) {
			return
		}
	case types.Sell:
		best, ok := book.BestAsk(orderBook.Asks, e.minVolume)
		if !ok {
			return
		}
		newPrice = numeric.QuantizePriceFloat(best.Price)
		if !newPrice.LessThan(leg.Price) {
			return
		}
	}

	e.reprice(ctx, stop, leg, newPrice)
}

// reprice cancels and re-places sequentially with a fixed pause. The
// two calls succeed or fail independently; a failed re-placement
// leaves the leg dropped rather than retried forever.
func (e *Engine) reprice(ctx context.Context, stop <-chan struct{}, leg *Leg, newPrice decimal.Decimal) {
	e.log("Adjusting %s %s: %s -> %s", leg.Role, leg.SideLabel, numeric.PriceString(leg.Price), numeric.PriceString(newPrice))
	RepricesTotal.WithLabelValues(leg.Role.String()).Inc()

	if leg.TransNo != "" {
		if err := e.deps.Gateway.CancelOrder(ctx, leg.TransNo); err != nil {
			e.log("Cancel failed: %v", err)
		} else {
			e.log("Cancelled old order")
			e.deps.updateTrade(ctx, leg.OrderID, "cancelled", nil)
		}
	}

	if !sleepWithStop(stop, e.deps.Timings.ReplacePause, e.deps.Timings.StopCheck) {
		return
	}

	var (
		data *types.OrderData
		err  error
	)
	switch leg.Role {
	case types.Buy:
		remaining := leg.RemainingShares()
		notional := remaining.Mul(newPrice)
		if value, _ := notional.Float64(); value < minOrderNotional {
			e.log("Remaining amount below %v USDT, removing order", minOrderNotional)
			e.dropLeg(leg.Key)
			return
		}
		data, err = e.deps.Gateway.PlaceOrder(ctx, leg.TopicID, leg.TokenID, newPrice, notional)
		if err == nil {
			leg.Shares = notional.Div(newPrice)
			leg.SoldShares = decimal.Zero
		}
	case types.Sell:
		if value, _ := leg.Shares.Mul(newPrice).Float64(); value < minOrderNotional {
			e.log("Value below %v USDT, removing order", minOrderNotional)
			e.dropLeg(leg.Key)
			return
		}
		data, err = e.deps.Gateway.PlaceSellShares(ctx, leg.TopicID, leg.TokenID, newPrice, leg.Shares)
	}

	if err != nil {
		e.log("Reorder failed: %v", err)
		e.log("Warning: leg dropped with no resting order")
		e.dropLeg(leg.Key)
		return
	}

	leg.OrderID = data.OrderID
	leg.TransNo = data.TransNo
	leg.Price = newPrice
	e.log("New order ID: %s", data.OrderID)
}

// maybeStatus emits the periodic summary of open legs.
func (e *Engine) maybeStatus(ctx context.Context) {
	if time.Since(e.lastStatus) < e.deps.Timings.StatusInterval {
		return
	}
	e.lastStatus = time.Now()

	if len(e.legs) == 0 {
		e.log("--- Status Update | No active orders ---")
		return
	}

	e.log("--- Status Update ---")
	for _, key := range e.legKeys() {
		leg := e.legs[key]
		best := "N/A"
		if orderBook, err := e.deps.Gateway.GetOrderBook(ctx, leg.QuestionID, leg.TokenID, leg.Yes); err == nil {
			var level types.PriceLevel
			var ok bool
			if leg.Role == types.Buy {
				level, ok = book.BestBid(orderBook.Bids, e.minVolume)
			} else {
				level, ok = book.BestAsk(orderBook.Asks, e.minVolume)
			}
			if ok {
				best = numeric.PriceString(numeric.QuantizePriceFloat(level.Price))
			}
		}

		fillPct := 0
		if leg.Shares.IsPositive() {
			pct := leg.SoldShares.Div(leg.Shares).Mul(decimal.NewFromInt(100))
			fillPct = int(pct.IntPart())
		}
		value := leg.Shares.Mul(leg.Price).Round(2)
		e.log("%s %s: %s (best: %s, %d%%/$%s)", leg.SideLabel, leg.Role, numeric.PriceString(leg.Price), best, fillPct, value)
	}
}

// cancelAll cancels every tracked order best-effort; failures are
// logged, never raised.
func (e *Engine) cancelAll(ctx context.Context) {
	if len(e.legs) == 0 {
		return
	}
	e.log("Stopping - cancelling orders...")
	for _, key := range e.legKeys() {
		leg := e.legs[key]
		if leg.TransNo == "" {
			continue
		}
		if err := e.deps.Gateway.CancelOrder(ctx, leg.TransNo); err != nil {
			e.log("Failed to cancel %s: %v", leg.Title, err)
			continue
		}
		e.deps.updateTrade(ctx, leg.OrderID, "cancelled", nil)
		e.log("Cancelled: %s %s", leg.Title, leg.SideLabel)
	}
	for _, key := range e.legKeys() {
		e.dropLeg(key)
	}
}
