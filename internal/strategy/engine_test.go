package strategy

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkarpov/opinion-mm/internal/markets"
	"github.com/mkarpov/opinion-mm/internal/testutil"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

// fastTimings shrinks every production sleep to test scale.
func fastTimings() Timings {
	return Timings{
		StopCheck:           time.Millisecond,
		ConfirmRetries:      3,
		ConfirmDelay:        2 * time.Millisecond,
		ReplacePause:        time.Millisecond,
		StatusInterval:      time.Hour,
		BalancePollInterval: 2 * time.Millisecond,
		BalancePollTimeout:  200 * time.Millisecond,
		SettlementDelay:     time.Millisecond,
	}
}

type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *logRecorder) logf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *logRecorder) contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func newTestDeps(gateway *testutil.MockGateway) *Deps {
	return &Deps{
		Gateway: gateway,
		Resolver: markets.NewResolver(&markets.ResolverConfig{
			Gateway: gateway,
			Logger:  zap.NewNop(),
		}),
		Timings: fastTimings(),
		TaskID:  "task_test",
		Logger:  zap.NewNop(),
	}
}

func sellLeg(orderID, transNo string, price, shares string) *Leg {
	return &Leg{
		Key:           "YES_sell",
		Title:         "Team A",
		SideLabel:     "YES",
		Yes:           true,
		Role:          types.Sell,
		TopicID:       7701,
		ParentTopicID: 77,
		TokenID:       "77011",
		QuestionID:    "q-7701",
		OrderID:       orderID,
		TransNo:       transNo,
		Price:         decimal.RequireFromString(price),
		Shares:        decimal.RequireFromString(shares),
	}
}

func newSellEngine(deps *Deps, rec *logRecorder) *Engine {
	return NewEngine(&EngineConfig{
		Deps:         deps,
		Log:          rec.logf,
		PollInterval: 5 * time.Millisecond,
		MinVolume:    5,
	})
}

func TestFillConfirmedAfterThreeAbsentChecks(t *testing.T) {
	gateway := testutil.NewMockGateway()
	deps := newTestDeps(gateway)
	rec := &logRecorder{}

	data, err := gateway.PlaceSellShares(context.Background(), 7701, "77011",
		decimal.RequireFromString("0.6"), decimal.RequireFromString("100"))
	require.NoError(t, err)

	engine := newSellEngine(deps, rec)
	engine.AddLeg(sellLeg(data.OrderID, data.TransNo, "0.6", "100"))

	// The order disappears from the listing: a real fill.
	gateway.RemoveOpenOrder(data.OrderID)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		engine.Run(context.Background(), stop)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not resolve the fill")
	}

	assert.Equal(t, 0, engine.LegCount())
	assert.True(t, rec.contains("SOLD"), "expected SOLD in logs: %v", rec.lines)
	assert.Empty(t, gateway.CanceledOrders())
}

func TestReappearanceAbortsConfirmation(t *testing.T) {
	gateway := testutil.NewMockGateway()
	deps := newTestDeps(gateway)
	rec := &logRecorder{}

	data, err := gateway.PlaceSellShares(context.Background(), 7701, "77011",
		decimal.RequireFromString("0.6"), decimal.RequireFromString("100"))
	require.NoError(t, err)

	engine := newSellEngine(deps, rec)
	engine.AddLeg(sellLeg(data.OrderID, data.TransNo, "0.6", "100"))

	// Simulate listing lag: absent on the cycle check, back before the
	// confirmation retries finish.
	deps.Timings.ConfirmDelay = 20 * time.Millisecond
	gateway.RemoveOpenOrder(data.OrderID)
	go func() {
		time.Sleep(5 * time.Millisecond)
		gateway.RestoreOpenOrder(data.OrderID)
	}()

	stop := make(chan struct{})
	engine.cycle(context.Background(), stop)

	assert.Equal(t, 1, engine.LegCount(), "leg must survive a reappearing order")
	assert.False(t, rec.contains("SOLD"))
}

func TestNoRepriceWhenMarketUnmoved(t *testing.T) {
	gateway := testutil.NewMockGateway()
	deps := newTestDeps(gateway)
	rec := &logRecorder{}

	data, err := gateway.PlaceSellShares(context.Background(), 7701, "77011",
		decimal.RequireFromString("0.6"), decimal.RequireFromString("100"))
	require.NoError(t, err)

	// Best ask equals the resting price: not a favorable move.
	gateway.SetOrderBook("77011", testutil.CreateTestBook(
		[][2]float64{{0.55, 100}},
		[][2]float64{{0.6, 100}},
	))

	engine := newSellEngine(deps, rec)
	engine.AddLeg(sellLeg(data.OrderID, data.TransNo, "0.6", "100"))

	stop := make(chan struct{})
	engine.cycle(context.Background(), stop)

	assert.Equal(t, 1, engine.LegCount())
	assert.Empty(t, gateway.CanceledOrders())
	require.Len(t, gateway.PlacedOrders(), 1, "no re-placement on an unmoved book")
}

func TestSellRepriceOnLowerAsk(t *testing.T) {
	gateway := testutil.NewMockGateway()
	deps := newTestDeps(gateway)
	rec := &logRecorder{}

	data, err := gateway.PlaceSellShares(context.Background(), 7701, "77011",
		decimal.RequireFromString("0.6"), decimal.RequireFromString("100"))
	require.NoError(t, err)

	// A better (lower) executable ask appeared.
	gateway.SetOrderBook("77011", testutil.CreateTestBook(
		nil,
		[][2]float64{{0.55, 100}},
	))

	engine := newSellEngine(deps, rec)
	engine.AddLeg(sellLeg(data.OrderID, data.TransNo, "0.6", "100"))

	stop := make(chan struct{})
	engine.cycle(context.Background(), stop)

	require.Equal(t, 1, engine.LegCount())
	assert.Equal(t, []string{data.TransNo}, gateway.CanceledOrders())

	placed := gateway.PlacedOrders()
	require.Len(t, placed, 2)
	assert.Equal(t, "0.55", placed[1].Price.String())
	assert.Equal(t, types.Sell, placed[1].Side)
}

func TestBuyRepriceOnHigherBid(t *testing.T) {
	gateway := testutil.NewMockGateway()
	deps := newTestDeps(gateway)
	rec := &logRecorder{}

	data, err := gateway.PlaceOrder(context.Background(), 7701, "77011",
		decimal.RequireFromString("0.5"), decimal.RequireFromString("10"))
	require.NoError(t, err)

	gateway.SetOrderBook("77011", testutil.CreateTestBook(
		[][2]float64{{0.52, 100}},
		nil,
	))

	engine := newSellEngine(deps, rec)
	leg := sellLeg(data.OrderID, data.TransNo, "0.5", "20")
	leg.Role = types.Buy
	engine.AddLeg(leg)

	stop := make(chan struct{})
	engine.cycle(context.Background(), stop)

	require.Equal(t, 1, engine.LegCount())
	placed := gateway.PlacedOrders()
	require.Len(t, placed, 2)
	assert.Equal(t, types.Buy, placed[1].Side)
	assert.Equal(t, "0.52", placed[1].Price.String())
	// Remaining 20 shares re-placed as notional at the new price.
	assert.Equal(t, "10.4", placed[1].Size.String())
	assert.Equal(t, "0.52", leg.Price.String())
}

func TestRepriceAbandonsBelowMinNotional(t *testing.T) {
	gateway := testutil.NewMockGateway()
	deps := newTestDeps(gateway)
	rec := &logRecorder{}

	data, err := gateway.PlaceSellShares(context.Background(), 7701, "77011",
		decimal.RequireFromString("0.6"), decimal.RequireFromString("1"))
	require.NoError(t, err)

	// New ask is favorable but 1 share * 0.5 = 0.50 USDT < 1 USDT floor.
	gateway.SetOrderBook("77011", testutil.CreateTestBook(
		nil,
		[][2]float64{{0.5, 100}},
	))

	engine := newSellEngine(deps, rec)
	engine.AddLeg(sellLeg(data.OrderID, data.TransNo, "0.6", "1"))

	stop := make(chan struct{})
	engine.cycle(context.Background(), stop)

	assert.Equal(t, 0, engine.LegCount())
	require.Len(t, gateway.PlacedOrders(), 1, "no re-placement below the notional floor")
	assert.True(t, rec.contains("removing order"))
}

func TestStopCancelsTrackedOrders(t *testing.T) {
	gateway := testutil.NewMockGateway()
	deps := newTestDeps(gateway)
	rec := &logRecorder{}

	data, err := gateway.PlaceSellShares(context.Background(), 7701, "77011",
		decimal.RequireFromString("0.6"), decimal.RequireFromString("100"))
	require.NoError(t, err)

	engine := newSellEngine(deps, rec)
	engine.AddLeg(sellLeg(data.OrderID, data.TransNo, "0.6", "100"))

	stop := make(chan struct{})
	close(stop)

	engine.Run(context.Background(), stop)

	assert.Equal(t, 0, engine.LegCount())
	assert.Equal(t, []string{data.TransNo}, gateway.CanceledOrders())
	assert.True(t, rec.contains("cancelling orders"))
}

func TestTransientListErrorDoesNotCrashLoop(t *testing.T) {
	gateway := testutil.NewMockGateway()
	deps := newTestDeps(gateway)
	rec := &logRecorder{}

	data, err := gateway.PlaceSellShares(context.Background(), 7701, "77011",
		decimal.RequireFromString("0.6"), decimal.RequireFromString("100"))
	require.NoError(t, err)

	gateway.FailOp("ListOpenOrders", fmt.Errorf("connection reset"))

	engine := newSellEngine(deps, rec)
	engine.AddLeg(sellLeg(data.OrderID, data.TransNo, "0.6", "100"))

	stop := make(chan struct{})
	engine.cycle(context.Background(), stop)

	assert.Equal(t, 1, engine.LegCount())
	assert.True(t, rec.contains("Error in loop"))
}
