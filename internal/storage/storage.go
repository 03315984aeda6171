package storage

import (
	"context"
	"time"
)

// Trade is one executed or resting order recorded for history.
type Trade struct {
	ID          int64
	Timestamp   time.Time
	TaskID      string
	EventName   string
	OutcomeName string
	Side        string // YES / NO
	Action      string // BUY / SELL
	Price       float64
	Shares      float64
	AmountUSDT  float64
	OrderID     string
	Mode        string
	Status      string // open / filled / cancelled
	ProfitUSDT  *float64
}

// TaskRecord mirrors a supervisor task for persistence.
type TaskRecord struct {
	ID        string
	Type      string
	Status    string
	Config    string
	CreatedAt time.Time
	StartedAt *time.Time
	StoppedAt *time.Time
	Error     string
}

// TradeStats aggregates trade history.
type TradeStats struct {
	TotalTrades int     `json:"totalTrades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalProfit float64 `json:"totalProfit"`
}

// Storage persists trade and task history.
type Storage interface {
	// RecordTrade stores a trade and sets its assigned id.
	RecordTrade(ctx context.Context, trade *Trade) error

	// UpdateTradeStatus updates a trade's status and, when non-nil,
	// its realized profit, keyed by venue order id.
	UpdateTradeStatus(ctx context.Context, orderID, status string, profit *float64) error

	// ListTrades returns recent trades, newest first.
	ListTrades(ctx context.Context, limit, offset int) ([]Trade, error)

	// Stats aggregates the trade history.
	Stats(ctx context.Context) (*TradeStats, error)

	// RecordTask stores a task record.
	RecordTask(ctx context.Context, record *TaskRecord) error

	// ListTasks returns recent task records, newest first.
	ListTasks(ctx context.Context, limit int) ([]TaskRecord, error)

	// UpdateTaskStatus updates a task's status and error message.
	UpdateTaskStatus(ctx context.Context, id, status, errMsg string) error

	// Close closes the storage connection.
	Close() error
}
