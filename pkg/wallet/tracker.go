package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Tracker periodically fetches wallet balances, updates Prometheus
// metrics and keeps the latest snapshot for the dashboard status
// endpoint.
type Tracker struct {
	reader       BalanceReader
	address      common.Address
	pollInterval time.Duration
	logger       *zap.Logger

	mu        sync.Mutex
	latest    *Balances
	updatedAt time.Time
}

// Config holds tracker configuration.
type Config struct {
	RPCEndpoint  string
	Address      common.Address
	PollInterval time.Duration
	Logger       *zap.Logger

	// Reader overrides the RPC client, for tests.
	Reader BalanceReader
}

// New creates a wallet tracker.
func New(cfg *Config) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	reader := cfg.Reader
	if reader == nil {
		client, err := NewClient(cfg.RPCEndpoint, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
		reader = client
	}

	return &Tracker{
		reader:       reader,
		address:      cfg.Address,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}, nil
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	pollErr := t.poll(ctx)
	if pollErr != nil {
		t.logger.Warn("initial-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			pollErr = t.poll(ctx)
			if pollErr != nil {
				t.logger.Warn("poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// Latest returns the most recent balance snapshot, false before the
// first successful poll.
func (t *Tracker) Latest() (*Balances, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		return nil, time.Time{}, false
	}
	return t.latest, t.updatedAt, true
}

func (t *Tracker) poll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	balances, err := t.reader.GetBalances(balCtx, t.address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	bnb, _ := balances.BNBAmount().Float64()
	usdt, _ := balances.USDTAmount().Float64()
	BNBBalance.Set(bnb)
	USDTBalance.Set(usdt)
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.mu.Lock()
	t.latest = balances
	t.updatedAt = time.Now()
	t.mu.Unlock()

	t.logger.Debug("poll-complete",
		zap.Float64("usdt", usdt),
		zap.Duration("duration", time.Since(start)))

	return nil
}
