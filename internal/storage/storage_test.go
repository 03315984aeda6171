package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return &PostgresStorage{db: db, logger: zap.NewNop()}, mock
}

func TestRecordTrade(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer storage.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO trades")).
		WithArgs(sqlmock.AnyArg(), "task_1", "Final", "Team A", "YES", "SELL",
			0.6, 100.0, 60.0, "ord-1", "standard", "open").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	trade := &Trade{
		TaskID:      "task_1",
		EventName:   "Final",
		OutcomeName: "Team A",
		Side:        "YES",
		Action:      "SELL",
		Price:       0.6,
		Shares:      100,
		AmountUSDT:  60,
		OrderID:     "ord-1",
		Mode:        "standard",
	}
	require.NoError(t, storage.RecordTrade(context.Background(), trade))
	assert.Equal(t, int64(7), trade.ID)
	assert.Equal(t, "open", trade.Status)
	assert.False(t, trade.Timestamp.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTradeStatus(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer storage.Close()

	profit := 1.5
	mock.ExpectExec(regexp.QuoteMeta("UPDATE trades SET status")).
		WithArgs("filled", profit, "ord-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, storage.UpdateTradeStatus(context.Background(), "ord-1", "filled", &profit))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTrades(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer storage.Close()

	rows := sqlmock.NewRows([]string{
		"id", "timestamp", "task_id", "event_name", "outcome_name", "side",
		"action", "price", "shares", "amount_usdt", "order_id", "mode",
		"status", "profit_usdt",
	}).AddRow(2, time.Now(), "task_1", "Final", "Team A", "YES", "SELL",
		0.6, 100.0, 60.0, "ord-2", "standard", "filled", 2.5)

	mock.ExpectQuery("SELECT id, timestamp").
		WithArgs(50, 0).
		WillReturnRows(rows)

	trades, err := storage.ListTrades(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "ord-2", trades[0].OrderID)
	require.NotNil(t, trades[0].ProfitUSDT)
	assert.InDelta(t, 2.5, *trades[0].ProfitUSDT, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer storage.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum", "wins"}).AddRow(10, 12.5, 6))

	stats, err := storage.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalTrades)
	assert.Equal(t, 6, stats.Wins)
	assert.Equal(t, 4, stats.Losses)
	assert.InDelta(t, 12.5, stats.TotalProfit, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAndUpdateTask(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer storage.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs("task_1", "sell_shares", "pending", `{"minVolume":5}`,
			sqlmock.AnyArg(), nil, nil, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, storage.RecordTask(context.Background(), &TaskRecord{
		ID:        "task_1",
		Type:      "sell_shares",
		Status:    "pending",
		Config:    `{"minVolume":5}`,
		CreatedAt: time.Now(),
	}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET")).
		WithArgs("completed", "", "task_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, storage.UpdateTaskStatus(context.Background(), "task_1", "completed", ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTasks(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer storage.Close()

	started := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "type", "status", "config", "created_at", "started_at", "stopped_at", "error",
	}).
		AddRow("task_2", "market_maker", "running", `{"amount":10}`, time.Now(), started, nil, nil).
		AddRow("task_1", "sell_shares", "error", nil, time.Now().Add(-time.Minute), nil, nil, "boom")

	mock.ExpectQuery("SELECT id, type, status").
		WithArgs(100).
		WillReturnRows(rows)

	tasks, err := storage.ListTasks(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "task_2", tasks[0].ID)
	require.NotNil(t, tasks[0].StartedAt)
	assert.Nil(t, tasks[0].StoppedAt)
	assert.Equal(t, `{"amount":10}`, tasks[0].Config)
	assert.Equal(t, "boom", tasks[1].Error)
	assert.Empty(t, tasks[1].Config)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsoleStorageTasks(t *testing.T) {
	storage := NewConsoleStorage(zap.NewNop())
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, storage.RecordTask(ctx, &TaskRecord{ID: "task_1", Type: "sell_shares", Status: "pending"}))
	require.NoError(t, storage.RecordTask(ctx, &TaskRecord{ID: "task_2", Type: "market_maker", Status: "pending"}))
	require.NoError(t, storage.UpdateTaskStatus(ctx, "task_1", "error", "boom"))

	tasks, err := storage.ListTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "task_2", tasks[0].ID)
	assert.Equal(t, "error", tasks[1].Status)
	assert.Equal(t, "boom", tasks[1].Error)
}

func TestConsoleStorageRoundTrip(t *testing.T) {
	storage := NewConsoleStorage(zap.NewNop())
	defer storage.Close()

	trade := &Trade{TaskID: "task_1", OrderID: "ord-1", Action: "SELL", Price: 0.6}
	require.NoError(t, storage.RecordTrade(context.Background(), trade))
	assert.Equal(t, int64(1), trade.ID)

	profit := 3.0
	require.NoError(t, storage.UpdateTradeStatus(context.Background(), "ord-1", "filled", &profit))

	trades, err := storage.ListTrades(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "filled", trades[0].Status)

	stats, err := storage.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTrades)
	assert.Equal(t, 1, stats.Wins)
	assert.InDelta(t, 3.0, stats.TotalProfit, 1e-9)
}
