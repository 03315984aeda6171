package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid_config",
			cfg: &Config{
				RPCEndpoint:  "https://bsc-dataseed.binance.org",
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       logger,
			},
			wantErr: false,
		},
		{
			name:    "nil_config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name: "nil_logger",
			cfg: &Config{
				RPCEndpoint:  "https://bsc-dataseed.binance.org",
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       nil,
			},
			wantErr: true,
		},
		{
			name: "empty_rpc_endpoint",
			cfg: &Config{
				RPCEndpoint:  "",
				Address:      address,
				PollInterval: 1 * time.Minute,
				Logger:       logger,
			},
			wantErr: true,
		},
		{
			name: "zero_poll_interval",
			cfg: &Config{
				RPCEndpoint:  "https://bsc-dataseed.binance.org",
				Address:      address,
				PollInterval: 0,
				Logger:       logger,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && tracker == nil {
				t.Error("New() returned nil tracker")
			}
		})
	}
}

type stubReader struct {
	mu       sync.Mutex
	balances *Balances
	err      error
	calls    int
}

func (s *stubReader) GetBalances(_ context.Context, _ common.Address) (*Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.balances, nil
}

func (s *stubReader) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestTrackerUpdatesLatest(t *testing.T) {
	reader := &stubReader{
		balances: &Balances{
			BNB:  big.NewInt(5e17),
			USDT: new(big.Int).Mul(big.NewInt(250), big.NewInt(1e18)),
		},
	}
	tracker, err := New(&Config{
		Address:      common.HexToAddress("0x1234567890123456789012345678901234567890"),
		PollInterval: 5 * time.Millisecond,
		Logger:       zap.NewNop(),
		Reader:       reader,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, ok := tracker.Latest(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("tracker never produced a snapshot")
		}
		time.Sleep(time.Millisecond)
	}

	balances, updatedAt, ok := tracker.Latest()
	if !ok {
		t.Fatal("Latest() returned no snapshot")
	}
	if got := balances.USDTAmount().String(); got != "250" {
		t.Errorf("USDT = %s, want 250", got)
	}
	if got := balances.BNBAmount().String(); got != "0.5" {
		t.Errorf("BNB = %s, want 0.5", got)
	}
	if updatedAt.IsZero() {
		t.Error("updatedAt is zero")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestTrackerToleratesFetchErrors(t *testing.T) {
	reader := &stubReader{err: errors.New("rpc down")}
	tracker, err := New(&Config{
		Address:      common.HexToAddress("0x1234567890123456789012345678901234567890"),
		PollInterval: 2 * time.Millisecond,
		Logger:       zap.NewNop(),
		Reader:       reader,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for reader.callCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("tracker stopped polling after errors")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if _, _, ok := tracker.Latest(); ok {
		t.Error("Latest() returned a snapshot despite fetch errors")
	}
}
