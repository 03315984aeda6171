package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mkarpov/opinion-mm/internal/book"
	"github.com/mkarpov/opinion-mm/internal/storage"
	"github.com/mkarpov/opinion-mm/internal/task"
	"github.com/mkarpov/opinion-mm/pkg/numeric"
	"github.com/mkarpov/opinion-mm/pkg/types"
)

// dustShares is the smallest position worth selling.
var dustShares = decimal.RequireFromString("0.01")

// SellTarget is one position selected for unwinding.
type SellTarget struct {
	TopicID       int64
	ParentTopicID int64
	Title         string
	SideLabel     string
	Yes           bool
	TokenID       string
	Shares        decimal.Decimal
}

// SellablePositions filters the portfolio down to positions worth
// selling: available (total minus frozen) above dust, and available
// value at the last trade price of at least one collateral unit.
func SellablePositions(positions []types.Position) []SellTarget {
	var targets []SellTarget
	for _, pos := range positions {
		total, err := numeric.FromString(pos.Quantity)
		if err != nil {
			continue
		}
		frozen, err := numeric.FromString(pos.FrozenQuantity)
		if err != nil {
			continue
		}
		lastPrice, err := numeric.FromString(pos.LastPrice)
		if err != nil {
			lastPrice = decimal.Zero
		}

		available := total.Sub(frozen)
		if !available.GreaterThan(dustShares) {
			continue
		}
		if value, _ := available.Mul(lastPrice).Float64(); value < minOrderNotional {
			continue
		}

		sideLabel := "NO"
		if pos.IsYes() {
			sideLabel = "YES"
		}
		targets = append(targets, SellTarget{
			TopicID:       pos.TopicID,
			ParentTopicID: pos.ParentTopicID,
			Title:         pos.TopicTitle,
			SideLabel:     sideLabel,
			Yes:           pos.IsYes(),
			TokenID:       pos.TokenID,
			Shares:        available,
		})
	}
	return targets
}

// RunSellShares unwinds every sellable position: one SELL leg per
// position at the best executable ask, reconciled until all fill or
// the task is stopped.
func RunSellShares(deps *Deps, cfg *SellSharesConfig, stop <-chan struct{}, log task.Logger) error {
	ctx := context.Background()

	log("Starting Sell Shares")
	log("   Mode: %s", cfg.Mode)

	positions, err := deps.Gateway.ListPositions(ctx, cfg.TopicID)
	if err != nil {
		log("Failed to get positions: %v", err)
		return err
	}

	targets := SellablePositions(positions)
	if len(targets) == 0 {
		log("No shares available to sell")
		return nil
	}
	log("Found %d positions", len(targets))

	engine := NewEngine(&EngineConfig{
		Deps:         deps,
		Log:          log,
		PollInterval: secondsToDuration(cfg.IntervalSeconds),
		MinVolume:    cfg.MinVolume,
		SpreadMode:   cfg.Mode == ModeSpread,
	})

	for _, target := range targets {
		if stopped(stop) {
			break
		}
		placeSellTarget(ctx, deps, engine, target, cfg.Mode, cfg.MinVolume, log)
	}

	if engine.LegCount() == 0 {
		log("No sell orders placed")
		return fmt.Errorf("no sell orders placed")
	}

	engine.Run(ctx, stop)
	log("Sell Shares completed")
	return nil
}

// placeSellTarget resolves the target's question id, picks the best
// executable ask and places the SELL. Per-target failures are logged
// and skipped; the remaining targets still get their orders.
func placeSellTarget(ctx context.Context, deps *Deps, engine *Engine, target SellTarget, mode string, minVolume float64, log task.Logger) {
	topic, err := deps.Resolver.Topic(ctx, target.ParentTopicID)
	if err != nil {
		log("   %s: %v", target.Title, err)
		return
	}

	var questionID string
	for _, child := range topic.ChildList {
		if child.TopicID == target.TopicID {
			questionID = child.QuestionID
			break
		}
	}
	if questionID == "" {
		log("   %s: questionId not found", target.Title)
		return
	}

	orderBook, err := deps.Gateway.GetOrderBook(ctx, questionID, target.TokenID, target.Yes)
	if err != nil {
		log("   %s: %v", target.Title, err)
		return
	}

	bestAsk, ok := book.BestAsk(orderBook.Asks, minVolume)
	if !ok {
		log("   %s: no liquidity", target.Title)
		return
	}

	sellPrice := numeric.QuantizePriceFloat(bestAsk.Price)
	if mode == ModeSpread {
		sellPrice = sellPrice.Sub(tick)
	}

	log("SELL %s (%s) @ %s", target.Title, target.SideLabel, numeric.PriceString(sellPrice))
	data, err := deps.Gateway.PlaceSellShares(ctx, target.TopicID, target.TokenID, sellPrice, target.Shares)
	if err != nil {
		log("   %s: %v", target.Title, err)
		return
	}
	log("   Order ID: %s", data.OrderID)

	engine.AddLeg(&Leg{
		Key:           fmt.Sprintf("%d_%s", target.TopicID, target.SideLabel),
		Title:         target.Title,
		SideLabel:     target.SideLabel,
		Yes:           target.Yes,
		Role:          types.Sell,
		TopicID:       target.TopicID,
		ParentTopicID: target.ParentTopicID,
		TokenID:       target.TokenID,
		QuestionID:    questionID,
		OrderID:       data.OrderID,
		TransNo:       data.TransNo,
		Price:         sellPrice,
		Shares:        target.Shares,
	})

	priceF, _ := sellPrice.Float64()
	sharesF, _ := target.Shares.Float64()
	notionalF, _ := target.Shares.Mul(sellPrice).Float64()
	deps.recordTrade(ctx, &storage.Trade{
		EventName:   topic.Title,
		OutcomeName: target.Title,
		Side:        target.SideLabel,
		Action:      "SELL",
		Price:       priceF,
		Shares:      sharesF,
		AmountUSDT:  notionalF,
		OrderID:     data.OrderID,
		Mode:        mode,
	})
}
