// Package venue is the boundary to the Opinion.trade HTTP API. The
// Gateway interface is what strategies consume; Client implements it
// over HTTP and test doubles implement it in memory.
package venue

import (
	"context"

	"github.com/mkarpov/opinion-mm/pkg/types"
	"github.com/shopspring/decimal"
)

// Gateway is the venue capability consumed by strategies. Every call
// can fail with a transport or venue error; callers treat those as
// retryable and loggable, never as crash conditions.
type Gateway interface {
	// GetOrderBook fetches depth for one outcome token. yes selects the
	// venue's symbol type for the YES (true) or NO (false) book.
	GetOrderBook(ctx context.Context, questionID, tokenID string, yes bool) (*types.OrderBook, error)

	// PlaceOrder places a signed limit BUY sized by collateral notional.
	PlaceOrder(ctx context.Context, topicID int64, tokenID string, price, notional decimal.Decimal) (*types.OrderData, error)

	// PlaceSellShares places a signed limit SELL sized by share count.
	PlaceSellShares(ctx context.Context, topicID int64, tokenID string, price, shares decimal.Decimal) (*types.OrderData, error)

	// CancelOrder cancels a resting order by its tracking number.
	CancelOrder(ctx context.Context, transNo string) error

	// ListOpenOrders returns currently resting orders, optionally
	// filtered by parent topic (0 = all).
	ListOpenOrders(ctx context.Context, parentTopicID int64) ([]types.OpenOrder, error)

	// ListPositions returns held share positions, optionally filtered
	// by parent topic (0 = all).
	ListPositions(ctx context.Context, parentTopicID int64) ([]types.Position, error)

	// SplitCollateral converts collateral into an equal quantity of
	// YES and NO shares for the given condition.
	SplitCollateral(ctx context.Context, topicID int64, amount decimal.Decimal, conditionID string) error

	// GetTopic fetches a parent topic with its outcome children.
	GetTopic(ctx context.Context, topicID int64) (*types.Topic, error)
}
