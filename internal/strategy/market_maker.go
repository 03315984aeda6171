package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkarpov/opinion-mm/internal/book"
	"github.com/mkarpov/opinion-mm/internal/storage"
	"github.com/mkarpov/opinion-mm/internal/task"
	"github.com/mkarpov/opinion-mm/pkg/numeric"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

// tick is the venue's smallest price increment, used for spread-mode
// price improvement.
var tick = decimal.RequireFromString("0.001")

// RunMarketMaker places a BUY on each side of one outcome at the best
// executable bid, then reconciles: confirmed BUY fills are mirrored
// with a SELL at the best ask, and resting orders chase favorable
// price moves until stopped.
func RunMarketMaker(deps *Deps, cfg *MarketMakerConfig, stop <-chan struct{}, log task.Logger) error {
	ctx := context.Background()

	log("Starting Market Maker")
	log("   URL: %s", cfg.URL)
	log("   Outcome: %s", cfg.Outcome)
	log("   Amount: %v USDT per side", cfg.Amount)
	log("   Mode: %s", cfg.Mode)
	if cfg.SingleOrderSide != "" {
		log("   Single order: %s only", cfg.SingleOrderSide)
	}

	market, err := deps.Resolver.Resolve(ctx, cfg.URL, cfg.Outcome)
	if err != nil {
		log("Failed to resolve market: %v", err)
		return err
	}
	log("Outcome: %s (topic %d)", market.OutcomeTitle, market.TopicID)

	yesBook, err := deps.Gateway.GetOrderBook(ctx, market.QuestionID, market.YesTokenID, true)
	if err != nil {
		log("Failed to get orderbook: %v", err)
		return err
	}
	noBook, err := deps.Gateway.GetOrderBook(ctx, market.QuestionID, market.NoTokenID, false)
	if err != nil {
		log("Failed to get orderbook: %v", err)
		return err
	}

	yesBid, yesOK := book.BestBid(yesBook.Bids, cfg.MinVolume)
	noBid, noOK := book.BestBid(noBook.Bids, cfg.MinVolume)
	if !yesOK || !noOK {
		log("No valid prices with sufficient volume")
		return fmt.Errorf("no executable bid on both sides")
	}

	yesPrice := numeric.QuantizePriceFloat(yesBid.Price)
	noPrice := numeric.QuantizePriceFloat(noBid.Price)
	if cfg.Mode == ModeSpread {
		yesPrice = yesPrice.Add(tick)
		noPrice = noPrice.Add(tick)
		log("Spread mode: YES @ %s, NO @ %s", numeric.PriceString(yesPrice), numeric.PriceString(noPrice))
	} else {
		log("Standard mode: YES @ %s, NO @ %s", numeric.PriceString(yesPrice), numeric.PriceString(noPrice))
	}

	spreadMode := cfg.Mode == ModeSpread
	engine := NewEngine(&EngineConfig{
		Deps:         deps,
		Log:          log,
		PollInterval: secondsToDuration(cfg.IntervalSeconds),
		MinVolume:    cfg.MinVolume,
		SpreadMode:   spreadMode,
	})
	engine.onBuyFill = func(ctx context.Context, leg *Leg) {
		mirrorSell(ctx, deps, engine, leg, cfg.Mode, cfg.MinVolume, log)
	}

	amount := decimal.NewFromFloat(cfg.Amount)
	place := func(sideLabel string, yes bool, tokenID string, price decimal.Decimal) {
		log("Placing BUY %s @ %s", sideLabel, numeric.PriceString(price))
		data, err := deps.Gateway.PlaceOrder(ctx, market.TopicID, tokenID, price, amount)
		if err != nil {
			log("   Failed: %v", err)
			return
		}
		log("   Order ID: %s", data.OrderID)

		leg := &Leg{
			Key:           sideLabel + "_buy",
			Title:         market.OutcomeTitle,
			SideLabel:     sideLabel,
			Yes:           yes,
			Role:          types.Buy,
			TopicID:       market.TopicID,
			ParentTopicID: market.ParentTopicID,
			TokenID:       tokenID,
			QuestionID:    market.QuestionID,
			OrderID:       data.OrderID,
			TransNo:       data.TransNo,
			Price:         price,
			Shares:        amount.Div(price),
		}
		engine.AddLeg(leg)

		priceF, _ := price.Float64()
		sharesF, _ := leg.Shares.Float64()
		deps.recordTrade(ctx, &storage.Trade{
			EventName:   market.TopicTitle,
			OutcomeName: market.OutcomeTitle,
			Side:        sideLabel,
			Action:      "BUY",
			Price:       priceF,
			Shares:      sharesF,
			AmountUSDT:  cfg.Amount,
			OrderID:     data.OrderID,
			Mode:        cfg.Mode,
		})
	}

	if cfg.SingleOrderSide != "no" {
		place("YES", true, market.YesTokenID, yesPrice)
	}
	if cfg.SingleOrderSide != "yes" && !stopped(stop) {
		place("NO", false, market.NoTokenID, noPrice)
	}

	if engine.LegCount() == 0 {
		log("No orders placed, exiting")
		return fmt.Errorf("no orders placed")
	}

	engine.Run(ctx, stop)
	log("Market Maker stopped")
	return nil
}

// mirrorSell places the SELL side of a filled BUY at the current best
// ask. In spread mode the ask is improved one tick unless that would
// cross the best bid. Fill size prefers the venue's position query
// over the assumed fill, since partial fills and rounding can differ.
func mirrorSell(ctx context.Context, deps *Deps, engine *Engine, buyLeg *Leg, mode string, minVolume float64, log task.Logger) {
	orderBook, err := deps.Gateway.GetOrderBook(ctx, buyLeg.QuestionID, buyLeg.TokenID, buyLeg.Yes)
	if err != nil {
		log("Sell skipped, orderbook failed: %v", err)
		return
	}

	bestAsk, ok := book.BestAsk(orderBook.Asks, minVolume)
	if !ok {
		log("Sell skipped, no liquidity")
		return
	}

	sellPrice := numeric.QuantizePriceFloat(bestAsk.Price)
	if mode == ModeSpread {
		improved := sellPrice.Sub(tick)
		if bestBid, bidOK := book.BestBid(orderBook.Bids, minVolume); !bidOK ||
			improved.GreaterThan(numeric.QuantizePriceFloat(bestBid.Price)) {
			sellPrice = improved
		}
	}

	shares := heldShares(ctx, deps, buyLeg)
	if !shares.IsPositive() {
		shares = buyLeg.RemainingShares()
	}

	if value, _ := shares.Mul(sellPrice).Float64(); value < minOrderNotional {
		log("Sell skipped, notional below %v USDT", minOrderNotional)
		return
	}

	log("Placing SELL %s @ %s", buyLeg.SideLabel, numeric.PriceString(sellPrice))
	data, err := deps.Gateway.PlaceSellShares(ctx, buyLeg.TopicID, buyLeg.TokenID, sellPrice, shares)
	if err != nil {
		log("   Sell failed: %v", err)
		return
	}
	log("   Sell order placed, ID: %s", data.OrderID)

	engine.AddLeg(&Leg{
		Key:           buyLeg.SideLabel + "_sell",
		Title:         buyLeg.Title,
		SideLabel:     buyLeg.SideLabel,
		Yes:           buyLeg.Yes,
		Role:          types.Sell,
		TopicID:       buyLeg.TopicID,
		ParentTopicID: buyLeg.ParentTopicID,
		TokenID:       buyLeg.TokenID,
		QuestionID:    buyLeg.QuestionID,
		OrderID:       data.OrderID,
		TransNo:       data.TransNo,
		Price:         sellPrice,
		Shares:        shares,
	})

	priceF, _ := sellPrice.Float64()
	sharesF, _ := shares.Float64()
	notionalF, _ := shares.Mul(sellPrice).Float64()
	deps.recordTrade(ctx, &storage.Trade{
		EventName:   buyLeg.Title,
		OutcomeName: buyLeg.Title,
		Side:        buyLeg.SideLabel,
		Action:      "SELL",
		Price:       priceF,
		Shares:      sharesF,
		AmountUSDT:  notionalF,
		OrderID:     data.OrderID,
		Mode:        mode,
	})
}

// heldShares queries the venue for the actual available share count of
// the leg's token. Returns zero when the query fails or the position
// is absent.
func heldShares(ctx context.Context, deps *Deps, leg *Leg) decimal.Decimal {
	positions, err := deps.Gateway.ListPositions(ctx, leg.ParentTopicID)
	if err != nil {
		return decimal.Zero
	}
	for _, pos := range positions {
		if pos.TokenID != leg.TokenID {
			continue
		}
		total, err := numeric.FromString(pos.Quantity)
		if err != nil {
			return decimal.Zero
		}
		frozen, err := numeric.FromString(pos.FrozenQuantity)
		if err != nil {
			return decimal.Zero
		}
		return total.Sub(frozen)
	}
	return decimal.Zero
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
