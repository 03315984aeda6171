package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkarpov/opinion-mm/internal/book"
	"github.com/mkarpov/opinion-mm/internal/markets"
	"github.com/mkarpov/opinion-mm/internal/storage"
	"github.com/mkarpov/opinion-mm/internal/task"
	"github.com/mkarpov/opinion-mm/pkg/numeric"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

// RunSplitAndSell converts collateral into a YES/NO share pair via the
// venue's split primitive, waits for the shares to settle, then sells
// both sides in sequential steps using the reconciliation engine. On
// completion it reports profit versus the collateral spent.
func RunSplitAndSell(deps *Deps, cfg *SplitAndSellConfig, stop <-chan struct{}, log task.Logger) error {
	ctx := context.Background()

	log("Starting Split and Sell")
	log("   URL: %s", cfg.URL)
	log("   Outcome: %s", cfg.Outcome)
	log("   Amount: %v USDT", cfg.Amount)
	log("   Steps: %d (aggressive: %v)", cfg.SellSteps, cfg.Aggressive)

	market, err := deps.Resolver.Resolve(ctx, cfg.URL, cfg.Outcome)
	if err != nil {
		log("Failed to resolve market: %v", err)
		return err
	}
	log("Outcome: %s (topic %d)", market.OutcomeTitle, market.TopicID)

	amount := decimal.NewFromFloat(cfg.Amount)
	log("Splitting %v USDT into shares...", cfg.Amount)
	if err := deps.Gateway.SplitCollateral(ctx, market.TopicID, amount, market.ConditionID); err != nil {
		log("Split failed: %v", err)
		return err
	}
	SplitsTotal.Inc()

	yesShares, noShares, err := waitForShares(ctx, deps, market, stop, log)
	if err != nil {
		return err
	}
	if stopped(stop) {
		return nil
	}
	log("Shares received: YES %s, NO %s", yesShares, noShares)

	log("Waiting %s for settlement...", deps.Timings.SettlementDelay)
	if !sleepWithStop(stop, deps.Timings.SettlementDelay, deps.Timings.StopCheck) {
		return nil
	}

	priceYes, priceNo := sidePrices(ctx, deps, market, cfg.MinVolume)
	steps := PartitionSteps(yesShares, noShares, cfg.SellSteps, cfg.Aggressive, priceYes, priceNo)
	log("Selling in %d steps", len(steps))

	totalReceived := decimal.Zero
	totalSold := decimal.Zero
	for i, step := range steps {
		if stopped(stop) {
			return nil
		}
		if step.Yes.IsZero() && step.No.IsZero() {
			continue
		}
		log("--- Step %d/%d: YES %s, NO %s ---", i+1, len(steps), step.Yes, step.No)

		received, sold := runSellStep(ctx, deps, market, step, cfg, stop, log)
		totalReceived = totalReceived.Add(received)
		totalSold = totalSold.Add(sold)

		if stopped(stop) {
			log("Stopped after step %d/%d", i+1, len(steps))
			return nil
		}
	}

	profit := totalReceived.Sub(amount)
	log("Completed: sold %s shares, received %s USDT, P&L %s USDT", totalSold.Round(4), totalReceived.Round(2), profit.Round(2))
	return nil
}

// waitForShares polls the portfolio until both sides of the split
// position are visible, bounded by BalancePollTimeout.
func waitForShares(ctx context.Context, deps *Deps, market *markets.Market, stop <-chan struct{}, log task.Logger) (decimal.Decimal, decimal.Decimal, error) {
	deadline := time.Now().Add(deps.Timings.BalancePollTimeout)
	for {
		yes, no := splitBalances(ctx, deps, market)
		if yes.IsPositive() && no.IsPositive() {
			return yes, no, nil
		}
		if time.Now().After(deadline) {
			log("Shares did not appear within %s", deps.Timings.BalancePollTimeout)
			return decimal.Zero, decimal.Zero, fmt.Errorf("split shares did not appear")
		}
		log("Waiting for shares...")
		if !sleepWithStop(stop, deps.Timings.BalancePollInterval, deps.Timings.StopCheck) {
			return decimal.Zero, decimal.Zero, nil
		}
	}
}

func splitBalances(ctx context.Context, deps *Deps, market *markets.Market) (decimal.Decimal, decimal.Decimal) {
	positions, err := deps.Gateway.ListPositions(ctx, market.ParentTopicID)
	if err != nil {
		return decimal.Zero, decimal.Zero
	}

	yes, no := decimal.Zero, decimal.Zero
	for _, pos := range positions {
		available, err := availableShares(pos)
		if err != nil {
			continue
		}
		switch pos.TokenID {
		case market.YesTokenID:
			yes = available
		case market.NoTokenID:
			no = available
		}
	}
	return yes, no
}

func availableShares(pos types.Position) (decimal.Decimal, error) {
	total, err := numeric.FromString(pos.Quantity)
	if err != nil {
		return decimal.Zero, err
	}
	frozen, err := numeric.FromString(pos.FrozenQuantity)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Sub(frozen), nil
}

// sidePrices reads the current best bid per side for the aggressive
// skew decision. Missing liquidity yields zero, which disables the
// skew for that comparison.
func sidePrices(ctx context.Context, deps *Deps, market *markets.Market, minVolume float64) (float64, float64) {
	var priceYes, priceNo float64
	if orderBook, err := deps.Gateway.GetOrderBook(ctx, market.QuestionID, market.YesTokenID, true); err == nil {
		if best, ok := book.BestBid(orderBook.Bids, minVolume); ok {
			priceYes = best.Price
		}
	}
	if orderBook, err := deps.Gateway.GetOrderBook(ctx, market.QuestionID, market.NoTokenID, false); err == nil {
		if best, ok := book.BestBid(orderBook.Bids, minVolume); ok {
			priceNo = best.Price
		}
	}
	return priceYes, priceNo
}

// runSellStep places one SELL leg per side of a step and reconciles
// until both fill or the task stops. Returns the notional received and
// shares sold, valued at confirmed fill prices: reprices lower the
// proceeds, legs the engine drops unfilled contribute nothing.
func runSellStep(ctx context.Context, deps *Deps, market *markets.Market, step Step, cfg *SplitAndSellConfig, stop <-chan struct{}, log task.Logger) (decimal.Decimal, decimal.Decimal) {
	received := decimal.Zero
	sold := decimal.Zero
	engine := NewEngine(&EngineConfig{
		Deps:         deps,
		Log:          log,
		PollInterval: secondsToDuration(cfg.IntervalSeconds),
		MinVolume:    cfg.MinVolume,
		SpreadMode:   cfg.Mode == ModeSpread,
		OnSellFill: func(_ context.Context, leg *Leg) {
			received = received.Add(leg.Shares.Mul(leg.Price))
			sold = sold.Add(leg.Shares)
		},
	})
	place := func(sideLabel string, yes bool, tokenID string, shares decimal.Decimal) {
		if !shares.IsPositive() {
			return
		}
		orderBook, err := deps.Gateway.GetOrderBook(ctx, market.QuestionID, tokenID, yes)
		if err != nil {
			log("   %s: %v", sideLabel, err)
			return
		}
		bestAsk, ok := book.BestAsk(orderBook.Asks, cfg.MinVolume)
		if !ok {
			log("   %s: no liquidity", sideLabel)
			return
		}

		sellPrice := numeric.QuantizePriceFloat(bestAsk.Price)
		if cfg.Mode == ModeSpread {
			sellPrice = sellPrice.Sub(tick)
		}
		if value, _ := shares.Mul(sellPrice).Float64(); value < minOrderNotional {
			log("   %s: notional below %v USDT, skipping", sideLabel, minOrderNotional)
			return
		}

		log("Placing SELL %s @ %s", sideLabel, numeric.PriceString(sellPrice))
		data, err := deps.Gateway.PlaceSellShares(ctx, market.TopicID, tokenID, sellPrice, shares)
		if err != nil {
			log("   %s: %v", sideLabel, err)
			return
		}
		log("   Order ID: %s", data.OrderID)

		engine.AddLeg(&Leg{
			Key:           sideLabel + "_sell",
			Title:         market.OutcomeTitle,
			SideLabel:     sideLabel,
			Yes:           yes,
			Role:          types.Sell,
			TopicID:       market.TopicID,
			ParentTopicID: market.ParentTopicID,
			TokenID:       tokenID,
			QuestionID:    market.QuestionID,
			OrderID:       data.OrderID,
			TransNo:       data.TransNo,
			Price:         sellPrice,
			Shares:        shares,
		})

		priceF, _ := sellPrice.Float64()
		sharesF, _ := shares.Float64()
		notionalF, _ := shares.Mul(sellPrice).Float64()
		deps.recordTrade(ctx, &storage.Trade{
			EventName:   market.TopicTitle,
			OutcomeName: market.OutcomeTitle,
			Side:        sideLabel,
			Action:      "SELL",
			Price:       priceF,
			Shares:      sharesF,
			AmountUSDT:  notionalF,
			OrderID:     data.OrderID,
			Mode:        cfg.Mode,
		})
	}

	place("YES", true, market.YesTokenID, step.Yes)
	if !stopped(stop) {
		place("NO", false, market.NoTokenID, step.No)
	}

	if engine.LegCount() == 0 {
		log("   No orders this step")
		return decimal.Zero, decimal.Zero
	}

	engine.Run(ctx, stop)
	return received, sold
}
