package explorer

import (
	"testing"

	"gridflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateExampleGrid(t *testing.T) {
	raw := map[string]any{
		"signal_weights": map[string]any{
			"indicator": []any{0.5, 1.0},
			"pattern":   []any{0.3, 0.6},
		},
		"risk_thresholds":     []any{0.3, 0.6},
		"holding_periods":     []any{5},
		"aggregation_methods": []any{"weighted_average"},
		"indicator_groups":    []any{"momentum"},
	}
	r := ParseRanges(raw)
	cfgs, err := Generate(r, []string{"AAPL"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, cfgs, 8)
	n, err := Count(r, []string{"AAPL"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	for i, c := range cfgs {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, model.BotConfigVersion, c.Version)
		assert.Equal(t, []string{"AAPL"}, c.Stocks)
		assert.Equal(t, []string{"momentum"}, c.IndicatorGroups)
		assert.Empty(t, c.PatternGroups)
	}
	// 最后一维变化最快：前两个只差风险阈值
	assert.Equal(t, 0.3, cfgs[0].Params.RiskThreshold)
	assert.Equal(t, 0.6, cfgs[1].Params.RiskThreshold)
	assert.Equal(t, cfgs[0].Params.SignalWeights, cfgs[1].Params.SignalWeights)
	assert.Equal(t, 0.5, cfgs[0].Params.SignalWeights.Indicator)
	assert.Equal(t, 1.0, cfgs[7].Params.SignalWeights.Indicator)
	assert.Equal(t, 0.6, cfgs[7].Params.SignalWeights.Pattern)
}

func TestGenerateDeterministic(t *testing.T) {
	raw := map[string]any{
		"ml_weights":         map[string]any{"momentum": []any{0.5, 1}, "linear_trend": []any{0.2, 0.8}},
		"pattern_groups":     []any{"reversal", "indecision"},
		"indicator_groups":   []any{"trend", "momentum", "volume"},
		"persistence_types":  []any{"none", "consecutive"},
		"persistence_values": []any{2, 3},
	}
	a, err := Generate(ParseRanges(raw), []string{"A", "B", "C"}, []bool{false, true}, []bool{false})
	require.NoError(t, err)
	b, err := Generate(ParseRanges(raw), []string{"A", "B", "C"}, []bool{false, true}, []bool{false})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// ml 4 x persistence 3 x indicator 4 x pattern 4 x stocks 7 x social 2
	want := 4 * 3 * 4 * 4 * 7 * 2
	assert.Len(t, a, want)
	n, err := Count(ParseRanges(raw), []string{"A", "B", "C"}, []bool{false, true}, nil)
	require.NoError(t, err)
	assert.Equal(t, want, n)

	seen := make(map[int]bool, len(a))
	for i, c := range a {
		require.Equal(t, i, c.Index)
		require.False(t, seen[c.Index])
		seen[c.Index] = true
	}
}

func TestEmptyGroupsYieldEmptyCombination(t *testing.T) {
	r := ParseRanges(map[string]any{"indicator_groups": []any{}})
	assert.False(t, r.AllIndicators)
	assert.Equal(t, [][]string{{}}, IndicatorCombos(r.IndicatorGroups))
	assert.Equal(t, [][]string{{}}, PatternCombos(r.PatternGroups, r.PatternMode))

	cfgs, err := Generate(r, []string{"AAPL"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Empty(t, cfgs[0].IndicatorGroups)
	assert.Empty(t, cfgs[0].PatternGroups)
}

func TestMalformedRangesFallBack(t *testing.T) {
	r := ParseRanges(map[string]any{
		"risk_thresholds":     "not-a-number",
		"holding_periods":     []any{},
		"aggregation_methods": []any{"bogus"},
		"stop_losses":         nil,
		"signal_weights":      42,
		"persistence_types":   []any{"consecutive"}, // 没有值，跳过
		"indicator_groups":    []any{"unknown"},
	})
	assert.Equal(t, []float64{DefaultRiskThreshold}, r.RiskThresholds)
	assert.Equal(t, []int{DefaultHoldingPeriod}, r.HoldingPeriods)
	assert.Equal(t, []string{DefaultAggregation}, r.Aggregations)
	assert.Equal(t, []float64{DefaultStopLoss}, r.StopLosses)
	assert.Equal(t, []float64{DefaultSignalWeights.Indicator}, r.SignalWeights.Indicator)
	assert.Equal(t, []float64{DefaultSignalWeights.News}, r.SignalWeights.News)
	assert.Equal(t, []model.PersistenceRule{{Type: model.PersistenceNone}}, r.Persistence)
	assert.Empty(t, r.IndicatorGroups)
}

func TestTypedSlicesAccepted(t *testing.T) {
	r := ParseRanges(map[string]any{
		"stop_losses":     []float64{0.02, 0.04, 0.02},
		"holding_periods": []int{1, 2},
		"signal_weights":  map[string][]float64{"news": {0.1, 0.3}},
	})
	assert.Equal(t, []float64{0.02, 0.04}, r.StopLosses)
	assert.Equal(t, []int{1, 2}, r.HoldingPeriods)
	assert.Equal(t, []float64{0.1, 0.3}, r.SignalWeights.News)
	assert.Equal(t, []float64{DefaultSignalWeights.Pattern}, r.SignalWeights.Pattern)

	cfgs, err := Generate(r, []string{"A"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, cfgs, 8)
	assert.Equal(t, 0.1, cfgs[0].Params.SignalWeights.News)
	assert.Equal(t, 0.3, cfgs[7].Params.SignalWeights.News)
	assert.Equal(t, 0.04, cfgs[7].Params.StopLoss)
}

func TestStockCombos(t *testing.T) {
	assert.Equal(t, [][]string{{"A"}}, StockCombos([]string{"A"}))
	// 恰好两只时，全部组合与唯一的对重复，不再追加
	assert.Equal(t, [][]string{{"A"}, {"B"}, {"A", "B"}}, StockCombos([]string{"A", "B", "A"}))
	assert.Len(t, StockCombos([]string{"A", "B", "C"}), 3+3+1)
	assert.Len(t, StockCombos([]string{"A", "B", "C", "D"}), 4+6+1)

	_, err := Generate(ParseRanges(nil), nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyUniverse)
	n, err := Count(ParseRanges(nil), []string{" "}, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPatternModes(t *testing.T) {
	groups := []string{"reversal", "indecision", "multi_candle"}
	assert.Len(t, PatternCombos(groups, PatternPowerSet), 8)
	assert.Equal(t, [][]string{{"reversal"}, {"indecision"}, {"multi_candle"}, groups},
		PatternCombos(groups, PatternSinglesAndAll))
	assert.Equal(t, [][]string{{"trend"}}, IndicatorCombos([]string{"trend"}))
}

func TestCountMatchesGenerate(t *testing.T) {
	raw := map[string]any{
		"signal_weights":     map[string]any{"indicator": []any{0.5, 1}, "news": []any{0.1, 0.2, 0.3}},
		"ml_weights":         map[string]any{"momentum": []any{1}, "mean_reversion": []any{0.2, 0.4}},
		"indicator_groups":   []any{"trend", "volume"},
		"pattern_groups":     []any{"reversal", "indecision", "multi_candle"},
		"pattern_mode":       PatternSinglesAndAll,
		"persistence_types":  []any{"window"},
		"persistence_values": []any{3},
	}
	universes := [][]string{{"A"}, {"A", "B"}, {"A", "B", "C", "D", "E"}}
	for _, u := range universes {
		r := ParseRanges(raw)
		n, err := Count(r, u, []bool{true, false}, nil)
		require.NoError(t, err)
		cfgs, err := Generate(r, u, []bool{true, false}, nil)
		require.NoError(t, err)
		assert.Len(t, cfgs, n)
	}
}

func TestGridOverflowRejected(t *testing.T) {
	vals := func(n int) []any {
		out := make([]any, n)
		for i := range out {
			out[i] = float64(i + 1)
		}
		return out
	}
	r := ParseRanges(map[string]any{
		"risk_thresholds":         vals(256),
		"holding_periods":         vals(1024),
		"stop_losses":             vals(1024),
		"take_profits":            vals(1024),
		"risk_adjustment_factors": vals(1024),
		"persistence_types":       []any{"consecutive"},
		"persistence_values":      vals(1024),
		"pattern_groups":          []any{"reversal", "indecision", "multi_candle"},
	})
	_, err := Count(r, []string{"A"}, []bool{true, false}, []bool{true, false})
	assert.ErrorIs(t, err, ErrGridTooLarge)

	var cfgs []model.BotConfig
	assert.NotPanics(t, func() {
		cfgs, err = Generate(r, []string{"A"}, []bool{true, false}, []bool{true, false})
	})
	assert.ErrorIs(t, err, ErrGridTooLarge)
	assert.Nil(t, cfgs)

	// 不溢出但超过单次展开上限
	r = ParseRanges(map[string]any{
		"holding_periods": vals(5000),
		"stop_losses":     vals(5000),
	})
	n, err := Count(r, []string{"A"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 25_000_000, n)
	_, err = Generate(r, []string{"A"}, nil, nil)
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

func TestWideWeightListsCountedLazily(t *testing.T) {
	r := ParseRanges(map[string]any{
		"signal_weights": map[string]any{
			"indicator": make([]any, 0),
			"pattern":   []any{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
			"news":      []any{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
		},
	})
	assert.Len(t, r.SignalWeights.Pattern, 9)
	assert.Len(t, r.SignalWeights.Indicator, 1)
	n, err := Count(r, []string{"A"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 81, n)
}

func TestIndicatorGroupsDefaultToAll(t *testing.T) {
	r := ParseRanges(map[string]any{"risk_thresholds": []any{0.2, 0.4}})
	assert.True(t, r.AllIndicators)
	cfgs, err := Generate(r, []string{"A"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	for _, c := range cfgs {
		assert.Equal(t, AllIndicatorGroups(), c.IndicatorGroups)
	}
	assert.Equal(t, []string{"momentum", "trend", "volatility", "volume"}, AllIndicatorGroups())
}

func TestConfigsDoNotShareThresholds(t *testing.T) {
	r := ParseRanges(map[string]any{
		"risk_thresholds": []any{0.2, 0.4},
		"thresholds":      map[string]any{"rsi": map[string]any{"oversold": 25}},
	})
	cfgs, err := Generate(r, []string{"A"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	cfgs[0].Thresholds["rsi"]["oversold"] = 10
	assert.Equal(t, 25.0, cfgs[1].Thresholds["rsi"]["oversold"])
	assert.Equal(t, 25.0, r.Thresholds["rsi"]["oversold"])
}

func TestModelNames(t *testing.T) {
	assert.Equal(t, []string{"momentum"}, ParseRanges(nil).ModelNames())
	r := ParseRanges(map[string]any{"ml_weights": map[string]any{"lstm": []any{1.0}, "linear_trend": 0.5}})
	assert.Equal(t, []string{"linear_trend", "lstm"}, r.ModelNames())
}
