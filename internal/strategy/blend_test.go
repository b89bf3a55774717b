package strategy

import (
	"testing"
	"time"

	"gridflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func newsOnlyConfig() *model.BotConfig {
	return &model.BotConfig{
		Version: model.BotConfigVersion,
		Stocks:  []string{"AAPL"},
		Flags:   model.FeatureFlags{UseNews: true},
		Params: model.StrategyParams{
			SignalWeights:        model.SignalWeights{News: 1},
			RiskThreshold:        0.5,
			AggregationMethod:    model.AggWeightedAverage,
			StopLoss:             0.05,
			TakeProfit:           0.1,
			RiskAdjustmentFactor: 0.5,
			Persistence:          model.PersistenceRule{Type: model.PersistenceNone},
		},
	}
}

func TestExitRule(t *testing.T) {
	r := ExitRule{StopLoss: 0.05, TakeProfit: 0.1, HoldingPeriod: 3}
	o, _ := r.Check(100, 94, 0)
	assert.Equal(t, HitSL, o)
	o, _ = r.Check(100, 111, 0)
	assert.Equal(t, HitTP, o)
	o, _ = r.Check(100, 101, 3)
	assert.Equal(t, Expired, o)
	o, _ = r.Check(100, 101, 2)
	assert.Equal(t, Open, o)
	o, _ = ExitRule{}.Check(100, 1, 1000)
	assert.Equal(t, Open, o)
}

func TestPersistenceRules(t *testing.T) {
	p := newPersistenceTracker(model.PersistenceRule{Type: model.PersistenceConsecutive, Value: 2})
	assert.False(t, p.observe("A", model.Bullish))
	assert.True(t, p.observe("A", model.Bullish))
	assert.False(t, p.observe("A", model.Bearish))
	assert.False(t, p.observe("B", model.Bullish))

	w := newPersistenceTracker(model.PersistenceRule{Type: model.PersistenceWindow, Value: 3})
	assert.False(t, w.observe("A", model.Bullish))
	assert.True(t, w.observe("A", model.Bullish))
	assert.True(t, w.observe("A", model.Bullish))
	// 窗口里 2 多 1 空，空头不过半
	assert.False(t, w.observe("A", model.Bearish))
	assert.False(t, w.observe("A", model.Neutral))
}

func TestCombineMethods(t *testing.T) {
	fs := []familyScore{
		{family: model.FamilyIndicator, score: 0.8, confidence: 0.6, weight: 1},
		{family: model.FamilyPattern, score: 0.6, confidence: 0.4, weight: 1},
		{family: model.FamilyNews, score: -0.9, confidence: 0.5, weight: 3},
	}
	s, c := combine(model.AggWeightedAverage, fs)
	assert.InDelta(t, (0.8+0.6-2.7)/5, s, 1e-9)
	assert.InDelta(t, 0.5, c, 1e-9)

	s, _ = combine(model.AggMajorityVote, fs)
	assert.InDelta(t, 1.4/3, s, 1e-9)

	s, _ = combine(model.AggUnanimous, fs)
	assert.Zero(t, s)
	s, _ = combine(model.AggUnanimous, fs[:2])
	assert.InDelta(t, 0.7, s, 1e-9)

	s, c = combine(model.AggStrongest, fs)
	assert.Equal(t, -0.9, s)
	assert.Equal(t, 0.5, c)

	s, c = combine(model.AggWeightedAverage, nil)
	assert.Zero(t, s)
	assert.Zero(t, c)
}

func TestBlendBuysOnBullishNews(t *testing.T) {
	news := NewStaticSentiment(0)
	news.Add("AAPL", SentimentPoint{At: day0, Score: 0.9})
	f := NewBlendFactory(nil)
	f.News = news

	cb, err := f.New(newsOnlyConfig())
	require.NoError(t, err)
	d, err := cb.Decide(DecisionRequest{Symbol: "AAPL", Time: day0.Add(time.Hour), Price: 100, Cash: 10000, Params: &newsOnlyConfig().Params})
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, d.Action)
	// 得分 0.5+0.5*0.9=0.95，资金比例 0.95*0.5
	assert.Equal(t, 47.0, d.PositionSize)
	require.Len(t, d.Signals, 1)
	assert.Equal(t, model.FamilyNews, d.Signals[0].Family)
}

func TestBlendIgnoresNewsWhenFlagOff(t *testing.T) {
	news := NewStaticSentiment(0)
	news.Add("AAPL", SentimentPoint{At: day0, Score: 0.9})
	f := NewBlendFactory(nil)
	f.News = news
	cfg := newsOnlyConfig()
	cfg.Flags.UseNews = false

	cb, err := f.New(cfg)
	require.NoError(t, err)
	d, err := cb.Decide(DecisionRequest{Symbol: "AAPL", Time: day0.Add(time.Hour), Price: 100, Cash: 10000})
	require.NoError(t, err)
	assert.Equal(t, model.ActionHold, d.Action)
	assert.Empty(t, d.Signals)
}

func TestBlendStopLossAndHolding(t *testing.T) {
	cfg := newsOnlyConfig()
	cfg.Params.HoldingPeriod = 2
	cb, err := NewBlendFactory(nil).New(cfg)
	require.NoError(t, err)

	pos := model.Position{Quantity: 10, AverageCost: 100}
	d, err := cb.Decide(DecisionRequest{Symbol: "AAPL", Step: 5, Price: 94, HasPosition: true, Position: pos})
	require.NoError(t, err)
	assert.Equal(t, model.ActionSell, d.Action)
	assert.Contains(t, d.Reason, string(HitSL))

	// 新的持仓从第 10 步开始计时
	cb, _ = NewBlendFactory(nil).New(cfg)
	d, _ = cb.Decide(DecisionRequest{Symbol: "AAPL", Step: 10, Price: 101, HasPosition: true, Position: pos})
	assert.Equal(t, model.ActionHold, d.Action)
	d, _ = cb.Decide(DecisionRequest{Symbol: "AAPL", Step: 12, Price: 101, HasPosition: true, Position: pos})
	assert.Equal(t, model.ActionSell, d.Action)
	assert.Contains(t, d.Reason, string(Expired))
}

func TestBlendRejectsUnknownModel(t *testing.T) {
	cfg := newsOnlyConfig()
	cfg.Params.MLWeights = map[string]float64{"crystal_ball": 1}
	_, err := NewBlendFactory(nil).New(cfg)
	assert.Error(t, err)

	cfg.Params.MLWeights = map[string]float64{"crystal_ball": 0, "momentum": 1}
	_, err = NewBlendFactory(nil).New(cfg)
	assert.NoError(t, err)
}

func TestPredictors(t *testing.T) {
	var up []model.Kline
	for i := 0; i < 40; i++ {
		p := 100 + float64(i)
		up = append(up, model.Kline{Open: p, Close: p + 1, High: p + 1.5, Low: p - 0.5})
	}
	s, ok := predictors["momentum"].Predict(up)
	require.True(t, ok)
	assert.Greater(t, s, 0.0)

	s, ok = predictors["linear_trend"].Predict(up)
	require.True(t, ok)
	assert.Greater(t, s, 0.0)

	s, ok = predictors["mean_reversion"].Predict(up)
	require.True(t, ok)
	assert.Less(t, s, 0.0)

	_, ok = predictors["momentum"].Predict(up[:3])
	assert.False(t, ok)
	assert.Len(t, PredictorNames(), len(predictors))
}

func TestRegistryForRun(t *testing.T) {
	f, err := ForRun("", map[string]map[string]float64{"rsi": {"oversold": 40}})
	require.NoError(t, err)
	assert.Equal(t, DefaultName, f.Name())
	bf, ok := f.(*BlendFactory)
	require.True(t, ok)
	assert.Equal(t, 40.0, bf.RunThresholds["rsi"]["oversold"])

	// 注册表里的实例不被修改
	orig, _ := Get(DefaultName)
	assert.Nil(t, orig.(*BlendFactory).RunThresholds)

	_, err = ForRun("nope", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, Names(), DefaultName)
}

func TestStaticSentimentLookup(t *testing.T) {
	s := NewStaticSentiment(2 * time.Hour)
	s.Add("X", SentimentPoint{At: day0.Add(time.Hour), Score: 0.3}, SentimentPoint{At: day0, Score: -0.2})
	_, ok := s.Score("X", day0.Add(-time.Minute))
	assert.False(t, ok)
	v, ok := s.Score("X", day0.Add(30*time.Minute))
	require.True(t, ok)
	assert.Equal(t, -0.2, v)
	v, ok = s.Score("X", day0.Add(2*time.Hour))
	require.True(t, ok)
	assert.Equal(t, 0.3, v)
	_, ok = s.Score("X", day0.Add(4*time.Hour))
	assert.False(t, ok)
}

func TestBlendWithSentimentCopies(t *testing.T) {
	news := NewStaticSentiment(0)
	news.Add("AAPL", SentimentPoint{At: day0, Score: 0.9})
	base := NewBlendFactory(nil)
	f, ok := Factory(base).(SentimentAware)
	require.True(t, ok)
	withNews := f.WithSentiment(nil, news)
	assert.Nil(t, base.News)

	cb, err := withNews.New(newsOnlyConfig())
	require.NoError(t, err)
	d, err := cb.Decide(DecisionRequest{Symbol: "AAPL", Time: day0.Add(time.Hour), Price: 100, Cash: 10000})
	require.NoError(t, err)
	assert.Equal(t, model.ActionBuy, d.Action)
}
