package model

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() BotConfig {
	return BotConfig{
		Version: BotConfigVersion,
		Index:   3,
		Stocks:  []string{"AAPL"},
		Params: StrategyParams{
			RiskThreshold:        0.5,
			AggregationMethod:    AggWeightedAverage,
			StopLoss:             0.05,
			TakeProfit:           0.1,
			RiskAdjustmentFactor: 1,
			Persistence:          PersistenceRule{Type: PersistenceNone},
		},
	}
}

func TestDecodeBotConfig(t *testing.T) {
	data, err := json.Marshal(validConfig())
	require.NoError(t, err)
	cfg, err := DecodeBotConfig(data)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Index)
	assert.True(t, cfg.HasStock("AAPL"))
	assert.False(t, cfg.HasStock("MSFT"))
}

func TestDecodeBotConfigRejects(t *testing.T) {
	_, err := DecodeBotConfig([]byte(`{"version":1,"index":0,"stocks":["A"],"surprise":true}`))
	assert.Error(t, err)

	_, err = DecodeBotConfig([]byte(`{"version":2,"index":0,"stocks":["A"]}`))
	assert.Error(t, err)

	bad := validConfig()
	bad.Params.AggregationMethod = "coin_flip"
	data, _ := json.Marshal(bad)
	_, err = DecodeBotConfig(data)
	assert.Error(t, err)

	bad = validConfig()
	bad.Stocks = nil
	data, _ = json.Marshal(bad)
	_, err = DecodeBotConfig(data)
	assert.Error(t, err)
}
