package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage and ensures the
// schema exists.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: cfg.Logger}
	if err := storage.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return storage, nil
}

func (p *PostgresStorage) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			task_id TEXT,
			event_name TEXT,
			outcome_name TEXT,
			side TEXT,
			action TEXT,
			price DOUBLE PRECISION,
			shares DOUBLE PRECISION,
			amount_usdt DOUBLE PRECISION,
			order_id TEXT,
			mode TEXT,
			status TEXT DEFAULT 'open',
			profit_usdt DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			config TEXT,
			created_at TIMESTAMPTZ,
			started_at TIMESTAMPTZ,
			stopped_at TIMESTAMPTZ,
			error TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := p.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordTrade stores a trade in PostgreSQL.
func (p *PostgresStorage) RecordTrade(ctx context.Context, trade *Trade) error {
	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now()
	}
	if trade.Status == "" {
		trade.Status = "open"
	}

	query := `
		INSERT INTO trades (
			timestamp, task_id, event_name, outcome_name, side, action,
			price, shares, amount_usdt, order_id, mode, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := p.db.QueryRowContext(ctx, query,
		trade.Timestamp,
		trade.TaskID,
		trade.EventName,
		trade.OutcomeName,
		trade.Side,
		trade.Action,
		trade.Price,
		trade.Shares,
		trade.AmountUSDT,
		trade.OrderID,
		trade.Mode,
		trade.Status,
	).Scan(&trade.ID)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	p.logger.Debug("trade-stored",
		zap.Int64("trade-id", trade.ID),
		zap.String("order-id", trade.OrderID),
		zap.String("action", trade.Action))
	return nil
}

// UpdateTradeStatus updates a trade's status and optional profit.
func (p *PostgresStorage) UpdateTradeStatus(ctx context.Context, orderID, status string, profit *float64) error {
	query := `UPDATE trades SET status = $1, profit_usdt = COALESCE($2, profit_usdt) WHERE order_id = $3`
	_, err := p.db.ExecContext(ctx, query, status, profit, orderID)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	return nil
}

// ListTrades returns trades ordered newest first.
func (p *PostgresStorage) ListTrades(ctx context.Context, limit, offset int) ([]Trade, error) {
	query := `
		SELECT id, timestamp, task_id, event_name, outcome_name, side, action,
		       price, shares, amount_usdt, order_id, mode, status, profit_usdt
		FROM trades ORDER BY id DESC LIMIT $1 OFFSET $2
	`
	rows, err := p.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var trade Trade
		err := rows.Scan(
			&trade.ID, &trade.Timestamp, &trade.TaskID, &trade.EventName,
			&trade.OutcomeName, &trade.Side, &trade.Action, &trade.Price,
			&trade.Shares, &trade.AmountUSDT, &trade.OrderID, &trade.Mode,
			&trade.Status, &trade.ProfitUSDT,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

// Stats aggregates trade history.
func (p *PostgresStorage) Stats(ctx context.Context) (*TradeStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(profit_usdt), 0),
		       COUNT(*) FILTER (WHERE profit_usdt > 0)
		FROM trades
	`
	var stats TradeStats
	err := p.db.QueryRowContext(ctx, query).Scan(&stats.TotalTrades, &stats.TotalProfit, &stats.Wins)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	if stats.TotalTrades > 0 {
		stats.Losses = stats.TotalTrades - stats.Wins
	}
	return &stats, nil
}

// RecordTask stores a task record.
func (p *PostgresStorage) RecordTask(ctx context.Context, record *TaskRecord) error {
	query := `
		INSERT INTO tasks (id, type, status, config, created_at, started_at, stopped_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			stopped_at = EXCLUDED.stopped_at,
			error = EXCLUDED.error
	`
	_, err := p.db.ExecContext(ctx, query,
		record.ID, record.Type, record.Status, record.Config,
		record.CreatedAt, record.StartedAt, record.StoppedAt, record.Error,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// ListTasks returns task records ordered newest first.
func (p *PostgresStorage) ListTasks(ctx context.Context, limit int) ([]TaskRecord, error) {
	query := `
		SELECT id, type, status, config, created_at, started_at, stopped_at, error
		FROM tasks ORDER BY created_at DESC LIMIT $1
	`
	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var record TaskRecord
		var config, errMsg sql.NullString
		var startedAt, stoppedAt sql.NullTime
		err := rows.Scan(
			&record.ID, &record.Type, &record.Status, &config,
			&record.CreatedAt, &startedAt, &stoppedAt, &errMsg,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		record.Config = config.String
		record.Error = errMsg.String
		if startedAt.Valid {
			record.StartedAt = &startedAt.Time
		}
		if stoppedAt.Valid {
			record.StoppedAt = &stoppedAt.Time
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpdateTaskStatus updates a task's status and error message.
func (p *PostgresStorage) UpdateTaskStatus(ctx context.Context, id, status, errMsg string) error {
	query := `
		UPDATE tasks SET
			status = $1,
			error = NULLIF($2, ''),
			stopped_at = CASE WHEN $1 IN ('stopped', 'completed', 'error') THEN NOW() ELSE stopped_at END
		WHERE id = $3
	`
	_, err := p.db.ExecContext(ctx, query, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
