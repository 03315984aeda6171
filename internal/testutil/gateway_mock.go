package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mkarpov/opinion-mm/pkg/types"
)

// MockGateway simulates the venue API for testing. Placed orders are
// recorded and, by default, appear in the open-order listing until
// removed with RemoveOpenOrder (a fill) or canceled.
type MockGateway struct {
	mu         sync.Mutex
	books      map[string]*types.OrderBook
	topics     map[int64]*types.Topic
	positions  []types.Position
	openOrders []types.OpenOrder
	placed     []PlacedOrder
	canceled   []string
	splits     []SplitCall
	failures   map[string]error
	orderSeq   int
}

// PlacedOrder records one order submission for verification.
type PlacedOrder struct {
	OrderID  string
	TransNo  string
	TopicID  int64
	TokenID  string
	Side     types.OrderSide
	Price    decimal.Decimal
	Size     decimal.Decimal
}

// SplitCall records one collateral split for verification.
type SplitCall struct {
	TopicID     int64
	Amount      decimal.Decimal
	ConditionID string
}

// NewMockGateway creates an empty mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		books:    make(map[string]*types.OrderBook),
		topics:   make(map[int64]*types.Topic),
		failures: make(map[string]error),
	}
}

// SetOrderBook installs the book returned for a token.
func (m *MockGateway) SetOrderBook(tokenID string, book *types.OrderBook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[tokenID] = book
}

// SetTopic installs a topic returned by GetTopic.
func (m *MockGateway) SetTopic(topic *types.Topic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[topic.TopicID] = topic
}

// SetPositions installs the position list.
func (m *MockGateway) SetPositions(positions []types.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = positions
}

// FailOp makes the named operation return err; nil clears the failure.
// Operation names match the Gateway method names.
func (m *MockGateway) FailOp(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// RemoveOpenOrder drops an order from the open listing, simulating a
// fill.
func (m *MockGateway) RemoveOpenOrder(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, order := range m.openOrders {
		if order.OrderID == orderID {
			m.openOrders = append(m.openOrders[:i], m.openOrders[i+1:]...)
			return
		}
	}
}

// RestoreOpenOrder re-adds a previously placed order to the open
// listing, simulating a listing lag that resolves.
func (m *MockGateway) RestoreOpenOrder(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, placed := range m.placed {
		if placed.OrderID == orderID {
			m.openOrders = append(m.openOrders, types.OpenOrder{
				OrderID: placed.OrderID,
				TransNo: placed.TransNo,
				TopicID: placed.TopicID,
				Side:    placed.Side.String(),
				Price:   placed.Price.String(),
			})
			return
		}
	}
}

// PlacedOrders returns a copy of all recorded submissions.
func (m *MockGateway) PlacedOrders() []PlacedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PlacedOrder, len(m.placed))
	copy(out, m.placed)
	return out
}

// CanceledOrders returns the tracking numbers canceled so far.
func (m *MockGateway) CanceledOrders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.canceled))
	copy(out, m.canceled)
	return out
}

// Splits returns recorded collateral splits.
func (m *MockGateway) Splits() []SplitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SplitCall, len(m.splits))
	copy(out, m.splits)
	return out
}

func (m *MockGateway) GetOrderBook(_ context.Context, _, tokenID string, _ bool) (*types.OrderBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["GetOrderBook"]; err != nil {
		return nil, err
	}
	book, ok := m.books[tokenID]
	if !ok {
		return &types.OrderBook{}, nil
	}
	return book, nil
}

func (m *MockGateway) PlaceOrder(_ context.Context, topicID int64, tokenID string, price, notional decimal.Decimal) (*types.OrderData, error) {
	return m.record(topicID, tokenID, price, notional, types.Buy, "PlaceOrder")
}

func (m *MockGateway) PlaceSellShares(_ context.Context, topicID int64, tokenID string, price, shares decimal.Decimal) (*types.OrderData, error) {
	return m.record(topicID, tokenID, price, shares, types.Sell, "PlaceSellShares")
}

func (m *MockGateway) record(topicID int64, tokenID string, price, size decimal.Decimal, side types.OrderSide, op string) (*types.OrderData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[op]; err != nil {
		return nil, err
	}

	m.orderSeq++
	placed := PlacedOrder{
		OrderID: fmt.Sprintf("mock-order-%d", m.orderSeq),
		TransNo: fmt.Sprintf("mock-trans-%d", m.orderSeq),
		TopicID: topicID,
		TokenID: tokenID,
		Side:    side,
		Price:   price,
		Size:    size,
	}
	m.placed = append(m.placed, placed)
	m.openOrders = append(m.openOrders, types.OpenOrder{
		OrderID: placed.OrderID,
		TransNo: placed.TransNo,
		TopicID: topicID,
		Side:    side.String(),
		Price:   price.String(),
	})
	return &types.OrderData{OrderID: placed.OrderID, TransNo: placed.TransNo}, nil
}

func (m *MockGateway) CancelOrder(_ context.Context, transNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["CancelOrder"]; err != nil {
		return err
	}
	m.canceled = append(m.canceled, transNo)
	for i, order := range m.openOrders {
		if order.TransNo == transNo {
			m.openOrders = append(m.openOrders[:i], m.openOrders[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockGateway) ListOpenOrders(_ context.Context, _ int64) ([]types.OpenOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["ListOpenOrders"]; err != nil {
		return nil, err
	}
	out := make([]types.OpenOrder, len(m.openOrders))
	copy(out, m.openOrders)
	return out, nil
}

func (m *MockGateway) ListPositions(_ context.Context, _ int64) ([]types.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["ListPositions"]; err != nil {
		return nil, err
	}
	out := make([]types.Position, len(m.positions))
	copy(out, m.positions)
	return out, nil
}

func (m *MockGateway) SplitCollateral(_ context.Context, topicID int64, amount decimal.Decimal, conditionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["SplitCollateral"]; err != nil {
		return err
	}
	m.splits = append(m.splits, SplitCall{TopicID: topicID, Amount: amount, ConditionID: conditionID})
	return nil
}

func (m *MockGateway) GetTopic(_ context.Context, topicID int64) (*types.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["GetTopic"]; err != nil {
		return nil, err
	}
	topic, ok := m.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("mock topic %d not found", topicID)
	}
	return topic, nil
}
