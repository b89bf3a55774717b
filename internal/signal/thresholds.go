package signal

// 内置阈值，作为最后一级兜底
var builtinThresholds = map[Kind]map[string]float64{
	KindRSI:         {"oversold": 30, "overbought": 70},
	KindStochastic:  {"oversold": 20, "overbought": 80},
	KindCCI:         {"oversold": -100, "overbought": 100},
	KindWilliamsR:   {"oversold": -80, "overbought": -20},
	KindMFI:         {"oversold": 20, "overbought": 80},
	KindROC:         {"threshold": 2.0},
	KindMACD:        {"min_hist": 0},
	KindADX:         {"trend_strength": 25},
	KindAroon:       {"strong": 70, "weak": 30},
	KindSMA:         {"band": 0.0},
	KindEMA:         {"band": 0.0},
	KindPSAR:        {},
	KindOBV:         {"min_slope": 0.0},
	KindVWAP:        {"band": 0.0},
	KindVolumeRatio: {"high": 1.5, "low": 0.9},
	KindBollinger:   {},
	KindKeltner:     {},
	KindDonchian:    {},
	KindAlligator:   {},
	KindIchimoku:    {},
	KindSupertrend:  {},

	KindHammer:             {"min_strength": 0.3},
	KindShootingStar:       {"min_strength": 0.3},
	KindBullishEngulfing:   {"min_strength": 0.3},
	KindBearishEngulfing:   {"min_strength": 0.3},
	KindDoji:               {"min_strength": 0.3},
	KindMorningStar:        {"min_strength": 0.3},
	KindEveningStar:        {"min_strength": 0.3},
	KindThreeWhiteSoldiers: {"min_strength": 0.3},
	KindThreeBlackCrows:    {"min_strength": 0.3},

	KindMLPrediction:    {"threshold": 0.1},
	KindSocialSentiment: {"threshold": 0.2},
	KindNewsSentiment:   {"threshold": 0.2},
}

// Resolver 阈值解析：机器人显式阈值 > 运行级默认值 > 内置常量
type Resolver struct {
	bot map[string]map[string]float64
	run map[string]map[string]float64
}

func NewResolver(bot, run map[string]map[string]float64) *Resolver {
	return &Resolver{bot: bot, run: run}
}

// Get 取阈值，三级都没有时返回 0
func (r *Resolver) Get(kind Kind, key string) float64 {
	if r != nil {
		if v, ok := lookup(r.bot, kind, key); ok {
			return v
		}
		if v, ok := lookup(r.run, kind, key); ok {
			return v
		}
	}
	return builtinThresholds[kind][key]
}

func lookup(layer map[string]map[string]float64, kind Kind, key string) (float64, bool) {
	if layer == nil {
		return 0, false
	}
	m, ok := layer[string(kind)]
	if !ok {
		return 0, false
	}
	v, ok := m[key]
	return v, ok
}
