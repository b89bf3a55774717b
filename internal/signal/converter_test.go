package signal

import (
	"math"
	"testing"

	"gridflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertRSI(t *testing.T) {
	s := Convert(KindRSI, Values{CValue: 25}, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.Bullish, s.Direction)
	assert.Equal(t, model.ActionBuy, s.Action)
	assert.Equal(t, confMomentum, s.Confidence)
	assert.Equal(t, model.FamilyIndicator, s.Family)

	s = Convert(KindRSI, Values{CValue: 80}, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.Bearish, s.Direction)

	s = Convert(KindRSI, Values{CValue: 50}, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.Neutral, s.Direction)
	assert.Equal(t, model.ActionHold, s.Action)
	assert.Equal(t, 0.5, s.Prediction.Probability)
}

func TestConvertMissingComponent(t *testing.T) {
	assert.Nil(t, Convert(KindRSI, Values{}, nil))
	assert.Nil(t, Convert(KindRSI, Values{CValue: math.NaN()}, nil))
	assert.Nil(t, Convert(KindMACD, Values{CMACD: 1, CSignal: 0.5}, nil))
}

func TestMultiComponentRequiresAll(t *testing.T) {
	full := Values{CUpper: 110, CMiddle: 100, CLower: 90, CPrice: 88}
	s := Convert(KindBollinger, full, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.Bullish, s.Direction)

	for _, c := range []string{CUpper, CMiddle, CLower, CPrice} {
		partial := Values{}
		for k, v := range full {
			if k != c {
				partial[k] = v
			}
		}
		assert.Nil(t, Convert(KindBollinger, partial, nil), "missing %s", c)
	}

	ichi := Values{CTenkan: 105, CKijun: 100, CSenkouA: 95, CSenkouB: 90, CPrice: 110}
	s = Convert(KindIchimoku, ichi, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.Bullish, s.Direction)
	delete(ichi, CSenkouB)
	assert.Nil(t, Convert(KindIchimoku, ichi, nil))
}

func TestConvertNamedUnknown(t *testing.T) {
	assert.Nil(t, ConvertNamed("not_an_indicator", Values{CValue: 10}, nil))

	s := ConvertNamed(" RSI ", Values{CValue: 10}, nil)
	require.NotNil(t, s)
	assert.Equal(t, "rsi", s.Source)

	s = ConvertNamed("bbands", Values{CUpper: 110, CMiddle: 100, CLower: 90, CPrice: 115}, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.Bearish, s.Direction)
}

func TestStrengthClamped(t *testing.T) {
	cases := []struct {
		kind Kind
		v    Values
	}{
		{KindRSI, Values{CValue: -500}},
		{KindROC, Values{CValue: 1000}},
		{KindBollinger, Values{CUpper: 101, CMiddle: 100, CLower: 99, CPrice: 10}},
		{KindMLPrediction, Values{CScore: 4}},
		{KindADX, Values{CADX: 90, CPlusDI: 40, CMinusDI: 10}},
	}
	for _, c := range cases {
		s := Convert(c.kind, c.v, nil)
		require.NotNil(t, s, c.kind)
		assert.GreaterOrEqual(t, s.Strength, 0.0, c.kind)
		assert.LessOrEqual(t, s.Strength, 1.0, c.kind)
	}
}

func TestThresholdResolutionOrder(t *testing.T) {
	run := map[string]map[string]float64{"rsi": {"oversold": 40}}
	bot := map[string]map[string]float64{"rsi": {"oversold": 35}}

	assert.Equal(t, 30.0, NewResolver(nil, nil).Get(KindRSI, "oversold"))
	assert.Equal(t, 40.0, NewResolver(nil, run).Get(KindRSI, "oversold"))
	assert.Equal(t, 35.0, NewResolver(bot, run).Get(KindRSI, "oversold"))
	// 机器人只覆盖 oversold，overbought 仍落到内置
	assert.Equal(t, 70.0, NewResolver(bot, run).Get(KindRSI, "overbought"))

	// 37 低于运行级 40 但高于机器人级 35
	s := Convert(KindRSI, Values{CValue: 37}, NewResolver(nil, run))
	require.NotNil(t, s)
	assert.Equal(t, model.Bullish, s.Direction)
	s = Convert(KindRSI, Values{CValue: 37}, NewResolver(bot, run))
	require.NotNil(t, s)
	assert.Equal(t, model.Neutral, s.Direction)
}

func TestPatternMinStrength(t *testing.T) {
	assert.Nil(t, Convert(KindHammer, Values{CStrength: 0.1}, nil))
	assert.Nil(t, Convert(KindHammer, Values{CStrength: 0}, nil))

	s := Convert(KindHammer, Values{CStrength: 0.8}, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.FamilyPattern, s.Family)
	assert.Equal(t, model.Bullish, s.Direction)
	assert.Equal(t, confPattern, s.Confidence)

	s = Convert(KindThreeBlackCrows, Values{CStrength: 0.9}, nil)
	require.NotNil(t, s)
	assert.Equal(t, model.Bearish, s.Direction)
}

func TestEveryKindHasConverter(t *testing.T) {
	for name, k := range aliases {
		_, ok := converters[k]
		assert.True(t, ok, "alias %s -> %s has no converter", name, k)
		assert.NotEmpty(t, k.Family())
		assert.NotEmpty(t, k.Components())
	}
	for _, table := range []map[string][]Kind{IndicatorGroups, PatternGroups} {
		for g, kinds := range table {
			for _, k := range kinds {
				_, ok := converters[k]
				assert.True(t, ok, "group %s kind %s", g, k)
			}
		}
	}
}

func TestKindsOfDedup(t *testing.T) {
	kinds := KindsOf([]string{"momentum", "momentum", "nope"}, IndicatorGroups)
	assert.Equal(t, IndicatorGroups["momentum"], kinds)
	assert.Empty(t, KindsOf(nil, PatternGroups))
}
