package strategy

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Mode controls how aggressively orders are priced.
const (
	ModeStandard = "standard"
	ModeSpread   = "spread"
)

// MarketMakerConfig configures one market-making task. JSON keys match
// the dashboard request bodies.
type MarketMakerConfig struct {
	URL             string  `json:"url"`
	Outcome         string  `json:"outcome"`
	Amount          float64 `json:"amount"`
	Mode            string  `json:"mode"`
	MinVolume       float64 `json:"min_volume"`
	IntervalSeconds float64 `json:"interval"`
	SingleOrderSide string  `json:"single_order_side,omitempty"`
	AuthToken       string  `json:"auth_token,omitempty"`
}

// ParseMarketMakerConfig decodes and validates a market maker config,
// applying defaults for omitted fields.
func ParseMarketMakerConfig(raw json.RawMessage) (*MarketMakerConfig, error) {
	cfg := &MarketMakerConfig{
		Amount:          15,
		Mode:            ModeStandard,
		MinVolume:       5,
		IntervalSeconds: 5,
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.Outcome == "" {
		return nil, fmt.Errorf("outcome is required")
	}
	if cfg.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %v", cfg.Amount)
	}
	if err := validateMode(cfg.Mode); err != nil {
		return nil, err
	}
	switch cfg.SingleOrderSide {
	case "", "yes", "no":
	default:
		return nil, fmt.Errorf("single_order_side must be yes or no, got %q", cfg.SingleOrderSide)
	}
	normalizeCommon(&cfg.MinVolume, &cfg.IntervalSeconds)
	return cfg, nil
}

// SellSharesConfig configures one sell-shares task.
type SellSharesConfig struct {
	TopicID         int64   `json:"topic_id,omitempty"`
	Mode            string  `json:"mode"`
	MinVolume       float64 `json:"min_volume"`
	IntervalSeconds float64 `json:"interval"`
	AuthToken       string  `json:"auth_token,omitempty"`
}

// ParseSellSharesConfig decodes and validates a sell-shares config.
func ParseSellSharesConfig(raw json.RawMessage) (*SellSharesConfig, error) {
	cfg := &SellSharesConfig{
		Mode:            ModeStandard,
		MinVolume:       5,
		IntervalSeconds: 5,
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := validateMode(cfg.Mode); err != nil {
		return nil, err
	}
	normalizeCommon(&cfg.MinVolume, &cfg.IntervalSeconds)
	return cfg, nil
}

// SplitAndSellConfig configures one split-and-sell task.
type SplitAndSellConfig struct {
	URL             string  `json:"url"`
	Outcome         string  `json:"outcome"`
	Amount          float64 `json:"amount"`
	Mode            string  `json:"mode"`
	MinVolume       float64 `json:"min_volume"`
	IntervalSeconds float64 `json:"interval"`
	SellSteps       int     `json:"sell_steps"`
	Aggressive      bool    `json:"aggressive"`
	AuthToken       string  `json:"auth_token,omitempty"`
}

// ParseSplitAndSellConfig decodes and validates a split-and-sell
// config.
func ParseSplitAndSellConfig(raw json.RawMessage) (*SplitAndSellConfig, error) {
	cfg := &SplitAndSellConfig{
		Mode:            ModeStandard,
		MinVolume:       5,
		IntervalSeconds: 5,
		SellSteps:       1,
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.Outcome == "" {
		return nil, fmt.Errorf("outcome is required")
	}
	if cfg.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %v", cfg.Amount)
	}
	if cfg.SellSteps < 1 {
		return nil, fmt.Errorf("sell_steps must be at least 1, got %d", cfg.SellSteps)
	}
	if err := validateMode(cfg.Mode); err != nil {
		return nil, err
	}
	normalizeCommon(&cfg.MinVolume, &cfg.IntervalSeconds)
	return cfg, nil
}

func validateMode(mode string) error {
	if mode != ModeStandard && mode != ModeSpread {
		return fmt.Errorf("mode must be %s or %s, got %q", ModeStandard, ModeSpread, mode)
	}
	return nil
}

func normalizeCommon(minVolume, interval *float64) {
	if *minVolume < 0 {
		*minVolume = 0
	}
	if *interval < 1 {
		*interval = 1
	}
}
