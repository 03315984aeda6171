package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpov/opinion-mm/internal/testutil"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

func marketMakerGateway() *testutil.MockGateway {
	gateway := testutil.NewMockGateway()
	gateway.SetTopic(testutil.CreateTestTopic(77, "Final", "Team A"))
	gateway.SetOrderBook("77011", testutil.CreateTestBook(
		[][2]float64{{0.50, 100}, {0.48, 200}},
		[][2]float64{{0.60, 100}},
	))
	gateway.SetOrderBook("77012", testutil.CreateTestBook(
		[][2]float64{{0.45, 100}},
		[][2]float64{{0.55, 100}},
	))
	return gateway
}

func marketMakerConfig(t *testing.T, extra string) *MarketMakerConfig {
	t.Helper()
	raw := `{"url":"https://app.opinion.trade/x?topicId=77","outcome":"Team A","amount":10` + extra + `}`
	cfg, err := ParseMarketMakerConfig([]byte(raw))
	require.NoError(t, err)
	cfg.IntervalSeconds = 0.005
	return cfg
}

func TestMarketMakerPlacesBothSides(t *testing.T) {
	gateway := marketMakerGateway()
	deps := newTestDeps(gateway)
	cfg := marketMakerConfig(t, "")

	rec := &logRecorder{}
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- RunMarketMaker(deps, cfg, stop, rec.logf)
	}()

	waitUntil(t, 2*time.Second, func() bool {
		return len(gateway.PlacedOrders()) == 2
	})
	close(stop)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("strategy did not stop")
	}

	placed := gateway.PlacedOrders()
	require.Len(t, placed, 2)
	assert.Equal(t, types.Buy, placed[0].Side)
	assert.Equal(t, "0.5", placed[0].Price.String())
	assert.Equal(t, "10", placed[0].Size.String())
	assert.Equal(t, "77011", placed[0].TokenID)
	assert.Equal(t, "0.45", placed[1].Price.String())
	assert.Equal(t, "77012", placed[1].TokenID)

	// Stop cancelled both resting buys.
	assert.Len(t, gateway.CanceledOrders(), 2)
}

func TestMarketMakerSpreadModeImprovesBids(t *testing.T) {
	gateway := marketMakerGateway()
	deps := newTestDeps(gateway)
	cfg := marketMakerConfig(t, `,"mode":"spread"`)

	rec := &logRecorder{}
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- RunMarketMaker(deps, cfg, stop, rec.logf)
	}()

	waitUntil(t, 2*time.Second, func() bool {
		return len(gateway.PlacedOrders()) == 2
	})
	close(stop)
	<-done

	placed := gateway.PlacedOrders()
	assert.Equal(t, "0.501", placed[0].Price.String())
	assert.Equal(t, "0.451", placed[1].Price.String())
}

func TestMarketMakerSingleSide(t *testing.T) {
	gateway := marketMakerGateway()
	deps := newTestDeps(gateway)
	cfg := marketMakerConfig(t, `,"single_order_side":"yes"`)

	rec := &logRecorder{}
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- RunMarketMaker(deps, cfg, stop, rec.logf)
	}()

	waitUntil(t, 2*time.Second, func() bool {
		return len(gateway.PlacedOrders()) == 1
	})
	close(stop)
	<-done

	placed := gateway.PlacedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, "77011", placed[0].TokenID, "only the YES side is quoted")
}

func TestMarketMakerMirrorsFilledBuy(t *testing.T) {
	gateway := marketMakerGateway()
	// The venue reports the actual fill slightly under the assumed
	// 20 shares; the mirrored sell must use the held quantity.
	gateway.SetPositions([]types.Position{
		testutil.CreateTestPosition(7701, 77, "77011", "19.5", "0", "0.6"),
	})

	deps := newTestDeps(gateway)
	cfg := marketMakerConfig(t, `,"single_order_side":"yes"`)

	rec := &logRecorder{}
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- RunMarketMaker(deps, cfg, stop, rec.logf)
	}()

	waitUntil(t, 2*time.Second, func() bool {
		return len(gateway.PlacedOrders()) == 1
	})
	buy := gateway.PlacedOrders()[0]
	gateway.RemoveOpenOrder(buy.OrderID)

	// The confirmed fill triggers a mirrored SELL at the best ask.
	waitUntil(t, 2*time.Second, func() bool {
		return len(gateway.PlacedOrders()) == 2
	})
	sell := gateway.PlacedOrders()[1]
	assert.Equal(t, types.Sell, sell.Side)
	assert.Equal(t, "0.6", sell.Price.String())
	assert.Equal(t, "19.5", sell.Size.String())

	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("strategy did not stop")
	}
	assert.True(t, rec.contains("BUY filled"))
}

func TestMarketMakerNoLiquidity(t *testing.T) {
	gateway := testutil.NewMockGateway()
	gateway.SetTopic(testutil.CreateTestTopic(77, "Final", "Team A"))
	// Books exist but nothing meets the 5 USDT notional filter.
	gateway.SetOrderBook("77011", testutil.CreateTestBook([][2]float64{{0.5, 1}}, nil))
	gateway.SetOrderBook("77012", testutil.CreateTestBook([][2]float64{{0.5, 1}}, nil))

	deps := newTestDeps(gateway)
	cfg := marketMakerConfig(t, "")

	rec := &logRecorder{}
	stop := make(chan struct{})
	err := RunMarketMaker(deps, cfg, stop, rec.logf)
	require.Error(t, err)
	assert.True(t, rec.contains("No valid prices"))
	assert.Empty(t, gateway.PlacedOrders())
}
