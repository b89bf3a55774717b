package indicator

import (
	"testing"
	"time"

	"gridflow/internal/model"
	"gridflow/internal/signal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trending(n int, start, step float64) []model.Kline {
	out := make([]model.Kline, n)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := start
	for i := range out {
		open := p
		p += step
		out[i] = model.Kline{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Open:      open,
			Close:     p,
			High:      max(open, p) + 0.5,
			Low:       min(open, p) - 0.5,
			Vol:       1000 + float64(i),
		}
	}
	return out
}

func TestComputeInsufficientData(t *testing.T) {
	c := NewCalculator(Periods{})
	out := c.Compute(trending(5, 100, 1), []signal.Kind{signal.KindRSI, signal.KindMACD, signal.KindIchimoku})
	assert.Empty(t, out)
	assert.Empty(t, c.Compute(nil, []signal.Kind{signal.KindRSI}))
}

func TestComputeUptrend(t *testing.T) {
	c := NewCalculator(Periods{})
	klines := trending(80, 100, 1)
	all := signal.KindsOf([]string{"trend", "momentum", "volatility", "volume"}, signal.IndicatorGroups)
	out := c.Compute(klines, all)

	rsi, ok := out[signal.KindRSI]
	require.True(t, ok)
	assert.Greater(t, rsi[signal.CValue], 70.0)

	sma := out[signal.KindSMA]
	require.NotNil(t, sma)
	assert.Greater(t, sma[signal.CPrice], sma[signal.CValue])

	s := signal.Convert(signal.KindSMA, sma, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.Bullish, s.Direction)

	for _, k := range all {
		v, ok := out[k]
		require.True(t, ok, "kind %s missing", k)
		for _, comp := range k.Components() {
			_, has := v[comp]
			assert.True(t, has, "kind %s component %s", k, comp)
		}
	}
}

func TestPeriodsOverride(t *testing.T) {
	c := NewCalculator(Periods{RSI: 5})
	assert.Equal(t, 5, c.p.RSI)
	assert.Equal(t, DefaultPeriods.MACDSlow, c.p.MACDSlow)

	out := c.Compute(trending(8, 100, -1), []signal.Kind{signal.KindRSI})
	require.Contains(t, out, signal.KindRSI)
	assert.Less(t, out[signal.KindRSI][signal.CValue], 30.0)
}

func TestDetectHammer(t *testing.T) {
	k := []model.Kline{{Open: 100, Close: 102, High: 102.2, Low: 92}}
	out := DetectPatterns(k, []signal.Kind{signal.KindHammer, signal.KindDoji, signal.KindShootingStar})
	require.Contains(t, out, signal.KindHammer)
	assert.NotContains(t, out, signal.KindDoji)
	assert.NotContains(t, out, signal.KindShootingStar)
	assert.InDelta(t, 0.5, out[signal.KindHammer][signal.CStrength], 0.5)
}

func TestDetectEngulfing(t *testing.T) {
	k := []model.Kline{
		{Open: 101, Close: 100, High: 101.2, Low: 99.8},
		{Open: 99.5, Close: 102, High: 102.1, Low: 99.4},
	}
	out := DetectPatterns(k, []signal.Kind{signal.KindBullishEngulfing, signal.KindBearishEngulfing})
	assert.Contains(t, out, signal.KindBullishEngulfing)
	assert.NotContains(t, out, signal.KindBearishEngulfing)
}

func TestDetectThreeWhiteSoldiers(t *testing.T) {
	k := []model.Kline{
		{Open: 100, Close: 103, High: 103.2, Low: 99.9},
		{Open: 102.5, Close: 106, High: 106.1, Low: 102.4},
		{Open: 105.5, Close: 109, High: 109.2, Low: 105.4},
	}
	out := DetectPatterns(k, []signal.Kind{signal.KindThreeWhiteSoldiers, signal.KindThreeBlackCrows})
	require.Contains(t, out, signal.KindThreeWhiteSoldiers)
	assert.NotContains(t, out, signal.KindThreeBlackCrows)

	sig := signal.Convert(signal.KindThreeWhiteSoldiers, out[signal.KindThreeWhiteSoldiers], nil)
	require.NotNil(t, sig)
	assert.Equal(t, model.Bullish, sig.Direction)
}
