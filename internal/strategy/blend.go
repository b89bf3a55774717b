package strategy

import (
	"fmt"
	"math"
	"sort"

	"gridflow/internal/indicator"
	"gridflow/internal/model"
	"gridflow/internal/signal"
)

// DefaultName 默认策略名
const DefaultName = "signal_blend"

// BlendFactory 默认策略：指标 + 形态 + 内置模型 + 舆情，按族加权后给出买卖
type BlendFactory struct {
	Periods        indicator.Periods
	RunThresholds  map[string]map[string]float64 // 运行级默认阈值
	Social         SentimentSource
	News           SentimentSource
	MinTradeShares float64
}

func NewBlendFactory(runThresholds map[string]map[string]float64) *BlendFactory {
	return &BlendFactory{RunThresholds: runThresholds, MinTradeShares: 1}
}

func (f *BlendFactory) Name() string { return DefaultName }

func (f *BlendFactory) New(cfg *model.BotConfig) (Callback, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil bot config")
	}
	b := &blend{
		cfg:         cfg,
		calc:        indicator.NewCalculator(f.Periods),
		resolver:    signal.NewResolver(cfg.Thresholds, f.RunThresholds),
		indicators:  signal.KindsOf(cfg.IndicatorGroups, signal.IndicatorGroups),
		patterns:    signal.KindsOf(cfg.PatternGroups, signal.PatternGroups),
		persistence: newPersistenceTracker(cfg.Params.Persistence),
		exit: ExitRule{
			StopLoss:      cfg.Params.StopLoss,
			TakeProfit:    cfg.Params.TakeProfit,
			HoldingPeriod: cfg.Params.HoldingPeriod,
		},
		entries:  make(map[string]int),
		minShare: f.MinTradeShares,
	}
	if b.minShare <= 0 {
		b.minShare = 1
	}
	if cfg.Flags.UseSocial {
		b.social = f.Social
	}
	if cfg.Flags.UseNews {
		b.news = f.News
	}
	for name, w := range cfg.Params.MLWeights {
		if w <= 0 {
			continue
		}
		p, ok := predictors[name]
		if !ok {
			return nil, fmt.Errorf("unknown ml model %q", name)
		}
		b.models = append(b.models, p)
	}
	sort.Slice(b.models, func(i, j int) bool { return b.models[i].Name() < b.models[j].Name() })
	return b, nil
}

// WithRunThresholds 返回带运行级阈值的副本，注册表里的实例不受影响
func (f *BlendFactory) WithRunThresholds(th map[string]map[string]float64) Factory {
	cp := *f
	cp.RunThresholds = th
	return &cp
}

// WithSentiment 返回带舆情来源的副本，nil 表示该来源没有数据
func (f *BlendFactory) WithSentiment(social, news SentimentSource) Factory {
	cp := *f
	cp.Social, cp.News = social, news
	return &cp
}

type blend struct {
	cfg         *model.BotConfig
	calc        *indicator.Calculator
	resolver    *signal.Resolver
	indicators  []signal.Kind
	patterns    []signal.Kind
	models      []Predictor
	social      SentimentSource
	news        SentimentSource
	persistence *persistenceTracker
	exit        ExitRule
	entries     map[string]int // symbol -> 建仓步号
	minShare    float64
}

func (b *blend) Decide(req DecisionRequest) (model.Decision, error) {
	if req.Price <= 0 {
		return model.Decision{}, fmt.Errorf("invalid price %v for %s", req.Price, req.Symbol)
	}
	if !req.HasPosition {
		delete(b.entries, req.Symbol)
	} else if _, ok := b.entries[req.Symbol]; !ok {
		b.entries[req.Symbol] = req.Step
	}

	signals := b.collect(req)

	if req.HasPosition {
		held := req.Step - b.entries[req.Symbol]
		if outcome, reason := b.exit.Check(req.Position.AverageCost, req.Price, held); outcome != Open {
			return model.Decision{
				Action:     model.ActionSell,
				Confidence: 1,
				Strength:   1,
				Reason:     string(outcome) + ": " + reason,
				Signals:    signals,
			}, nil
		}
	}

	families := scoreFamilies(signals, b.cfg.Params.SignalWeights, b.cfg.Params.MLWeights)
	score, conf := combine(b.cfg.Params.AggregationMethod, families)

	dir := model.Neutral
	if math.Abs(score) >= b.cfg.Params.RiskThreshold && score != 0 {
		if score > 0 {
			dir = model.Bullish
		} else {
			dir = model.Bearish
		}
	}
	if !b.persistence.observe(req.Symbol, dir) {
		d := model.HoldDecision(fmt.Sprintf("score %.3f below threshold or not persistent", score))
		d.Confidence, d.Strength, d.Signals = conf, math.Abs(score), signals
		return d, nil
	}

	d := model.Decision{Confidence: conf, Strength: math.Abs(score), Signals: signals}
	switch {
	case dir == model.Bullish && !req.HasPosition:
		alloc := req.Cash * math.Min(1, d.Strength*b.cfg.Params.RiskAdjustmentFactor)
		qty := math.Floor(alloc / req.Price)
		if qty < b.minShare {
			d.Action, d.Reason = model.ActionHold, "allocation below one share"
			return d, nil
		}
		d.Action, d.PositionSize = model.ActionBuy, qty
		d.Reason = fmt.Sprintf("%s score %.3f", b.cfg.Params.AggregationMethod, score)
	case dir == model.Bearish && req.HasPosition:
		d.Action = model.ActionSell
		d.Reason = fmt.Sprintf("%s score %.3f", b.cfg.Params.AggregationMethod, score)
	default:
		d.Action, d.Reason = model.ActionHold, fmt.Sprintf("score %.3f, position held=%v", score, req.HasPosition)
	}
	return d, nil
}

// collect 计算本步全部信号，顺序固定：指标、形态、模型、社交、新闻
func (b *blend) collect(req DecisionRequest) []model.Signal {
	var out []model.Signal
	if len(b.indicators) > 0 {
		vals := b.calc.Compute(req.History, b.indicators)
		for _, k := range b.indicators {
			if v, ok := vals[k]; ok {
				if s := signal.Convert(k, v, b.resolver); s != nil {
					out = append(out, *s)
				}
			}
		}
	}
	if len(b.patterns) > 0 {
		found := indicator.DetectPatterns(req.History, b.patterns)
		for _, k := range b.patterns {
			v, ok := found[k]
			if !ok {
				continue
			}
			if s := signal.Convert(k, v, b.resolver); s != nil {
				out = append(out, *s)
			}
		}
	}
	for _, p := range b.models {
		score, ok := p.Predict(req.History)
		if !ok {
			continue
		}
		if s := signal.Convert(signal.KindMLPrediction, signal.Values{signal.CScore: score}, b.resolver); s != nil {
			s.Source = p.Name()
			out = append(out, *s)
		}
	}
	if b.social != nil {
		if score, ok := b.social.Score(req.Symbol, req.Time); ok {
			if s := signal.Convert(signal.KindSocialSentiment, signal.Values{signal.CScore: score}, b.resolver); s != nil {
				out = append(out, *s)
			}
		}
	}
	if b.news != nil {
		if score, ok := b.news.Score(req.Symbol, req.Time); ok {
			if s := signal.Convert(signal.KindNewsSentiment, signal.Values{signal.CScore: score}, b.resolver); s != nil {
				out = append(out, *s)
			}
		}
	}
	return out
}

func init() {
	Register(NewBlendFactory(nil))
}
