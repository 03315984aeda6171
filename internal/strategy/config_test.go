package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarketMakerConfigDefaults(t *testing.T) {
	cfg, err := ParseMarketMakerConfig([]byte(`{"url":"https://app.opinion.trade/x?topicId=1","outcome":"Team A"}`))
	require.NoError(t, err)
	assert.Equal(t, 15.0, cfg.Amount)
	assert.Equal(t, ModeStandard, cfg.Mode)
	assert.Equal(t, 5.0, cfg.MinVolume)
	assert.Equal(t, 5.0, cfg.IntervalSeconds)
	assert.Empty(t, cfg.SingleOrderSide)
}

func TestParseMarketMakerConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing url", `{"outcome":"A"}`},
		{"missing outcome", `{"url":"x?topicId=1"}`},
		{"zero amount", `{"url":"x?topicId=1","outcome":"A","amount":0}`},
		{"bad mode", `{"url":"x?topicId=1","outcome":"A","mode":"turbo"}`},
		{"bad side", `{"url":"x?topicId=1","outcome":"A","single_order_side":"both"}`},
		{"not json", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMarketMakerConfig([]byte(tt.raw))
			require.Error(t, err)
		})
	}
}

func TestParseMarketMakerConfigClampsInterval(t *testing.T) {
	cfg, err := ParseMarketMakerConfig([]byte(`{"url":"x?topicId=1","outcome":"A","interval":0.1,"min_volume":-3}`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.IntervalSeconds)
	assert.Equal(t, 0.0, cfg.MinVolume)
}

func TestParseSellSharesConfigEmpty(t *testing.T) {
	cfg, err := ParseSellSharesConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ModeStandard, cfg.Mode)
	assert.Equal(t, int64(0), cfg.TopicID)

	cfg, err = ParseSellSharesConfig([]byte(`{"topic_id":77,"mode":"spread"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(77), cfg.TopicID)
	assert.Equal(t, ModeSpread, cfg.Mode)
}

func TestParseSplitAndSellConfig(t *testing.T) {
	cfg, err := ParseSplitAndSellConfig([]byte(`{"url":"x?topicId=1","outcome":"A","amount":50,"sell_steps":4,"aggressive":true}`))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.SellSteps)
	assert.True(t, cfg.Aggressive)

	_, err = ParseSplitAndSellConfig([]byte(`{"url":"x?topicId=1","outcome":"A","amount":50,"sell_steps":0}`))
	require.Error(t, err)

	_, err = ParseSplitAndSellConfig([]byte(`{"url":"x?topicId=1","outcome":"A"}`))
	require.Error(t, err, "amount is required")
}
