package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by logging records instead of
// persisting them, keeping a small in-memory tail so the dashboard
// still has something to show without a database.
type ConsoleStorage struct {
	mu     sync.Mutex
	trades []Trade
	tasks  []TaskRecord
	nextID int64
	logger *zap.Logger
}

// maxConsoleTrades bounds the in-memory trade tail.
const maxConsoleTrades = 1000

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger, nextID: 1}
}

// RecordTrade logs the trade and keeps it in the in-memory tail.
func (c *ConsoleStorage) RecordTrade(_ context.Context, trade *Trade) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	trade.ID = c.nextID
	c.nextID++
	if trade.Status == "" {
		trade.Status = "open"
	}
	c.trades = append(c.trades, *trade)
	if len(c.trades) > maxConsoleTrades {
		c.trades = c.trades[len(c.trades)-maxConsoleTrades:]
	}

	c.logger.Info("trade",
		zap.String("task-id", trade.TaskID),
		zap.String("event", trade.EventName),
		zap.String("side", trade.Side),
		zap.String("action", trade.Action),
		zap.Float64("price", trade.Price),
		zap.Float64("shares", trade.Shares),
		zap.Float64("amount-usdt", trade.AmountUSDT))
	return nil
}

// UpdateTradeStatus updates a trade in the in-memory tail.
func (c *ConsoleStorage) UpdateTradeStatus(_ context.Context, orderID, status string, profit *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.trades {
		if c.trades[i].OrderID == orderID {
			c.trades[i].Status = status
			if profit != nil {
				c.trades[i].ProfitUSDT = profit
			}
		}
	}
	return nil
}

// ListTrades returns the in-memory tail, newest first.
func (c *ConsoleStorage) ListTrades(_ context.Context, limit, offset int) ([]Trade, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Trade
	for i := len(c.trades) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.trades[i])
	}
	return out, nil
}

// Stats aggregates the in-memory tail.
func (c *ConsoleStorage) Stats(_ context.Context) (*TradeStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &TradeStats{TotalTrades: len(c.trades)}
	for _, trade := range c.trades {
		if trade.ProfitUSDT == nil {
			continue
		}
		stats.TotalProfit += *trade.ProfitUSDT
		if *trade.ProfitUSDT > 0 {
			stats.Wins++
		}
	}
	if stats.TotalTrades > 0 {
		stats.Losses = stats.TotalTrades - stats.Wins
	}
	return stats, nil
}

// RecordTask logs the task record and upserts it in memory.
func (c *ConsoleStorage) RecordTask(_ context.Context, record *TaskRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	replaced := false
	for i := range c.tasks {
		if c.tasks[i].ID == record.ID {
			c.tasks[i] = *record
			replaced = true
			break
		}
	}
	if !replaced {
		c.tasks = append(c.tasks, *record)
	}

	c.logger.Info("task-record",
		zap.String("task-id", record.ID),
		zap.String("type", record.Type),
		zap.String("status", record.Status))
	return nil
}

// ListTasks returns the in-memory task records, newest first.
func (c *ConsoleStorage) ListTasks(_ context.Context, limit int) ([]TaskRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []TaskRecord
	for i := len(c.tasks) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, c.tasks[i])
	}
	return out, nil
}

// UpdateTaskStatus logs the status change and updates the in-memory record.
func (c *ConsoleStorage) UpdateTaskStatus(_ context.Context, id, status, errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.tasks {
		if c.tasks[i].ID == id {
			c.tasks[i].Status = status
			c.tasks[i].Error = errMsg
		}
	}

	c.logger.Info("task-status",
		zap.String("task-id", id),
		zap.String("status", status),
		zap.String("error", errMsg))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
