package signal

import (
	"gridflow/internal/model"
	"strings"
)

// Kind 指标/形态/模型的种类，原始输出在第一次打标签时就确定 Kind，
// 之后统一走 kind -> converter 查表，不再按名字子串匹配
type Kind string

const (
	// 单分量或少量分量的常规指标
	KindRSI         Kind = "rsi"
	KindStochastic  Kind = "stochastic"
	KindCCI         Kind = "cci"
	KindWilliamsR   Kind = "williams_r"
	KindMFI         Kind = "mfi"
	KindROC         Kind = "roc"
	KindMACD        Kind = "macd"
	KindADX         Kind = "adx"
	KindAroon       Kind = "aroon"
	KindSMA         Kind = "sma"
	KindEMA         Kind = "ema"
	KindPSAR        Kind = "psar"
	KindOBV         Kind = "obv"
	KindVWAP        Kind = "vwap"
	KindVolumeRatio Kind = "volume_ratio"

	// 多分量指标：所有分量必须同时存在
	KindBollinger  Kind = "bollinger"
	KindKeltner    Kind = "keltner"
	KindDonchian   Kind = "donchian"
	KindAlligator  Kind = "alligator"
	KindIchimoku   Kind = "ichimoku"
	KindSupertrend Kind = "supertrend"

	// K线形态
	KindHammer             Kind = "hammer"
	KindShootingStar       Kind = "shooting_star"
	KindBullishEngulfing   Kind = "bullish_engulfing"
	KindBearishEngulfing   Kind = "bearish_engulfing"
	KindDoji               Kind = "doji"
	KindMorningStar        Kind = "morning_star"
	KindEveningStar        Kind = "evening_star"
	KindThreeWhiteSoldiers Kind = "three_white_soldiers"
	KindThreeBlackCrows    Kind = "three_black_crows"

	// 模型与舆情
	KindMLPrediction    Kind = "ml_prediction"
	KindSocialSentiment Kind = "social_sentiment"
	KindNewsSentiment   Kind = "news_sentiment"
)

// 分量名
const (
	CValue    = "value"
	CPrice    = "price"
	CMACD     = "macd"
	CSignal   = "signal"
	CHist     = "hist"
	CK        = "k"
	CD        = "d"
	CADX      = "adx"
	CPlusDI   = "plus_di"
	CMinusDI  = "minus_di"
	CUp       = "up"
	CDown     = "down"
	CUpper    = "upper"
	CMiddle   = "middle"
	CLower    = "lower"
	CJaw      = "jaw"
	CTeeth    = "teeth"
	CLips     = "lips"
	CTenkan   = "tenkan"
	CKijun    = "kijun"
	CSenkouA  = "senkou_a"
	CSenkouB  = "senkou_b"
	CLine     = "line"
	CSlope    = "slope"
	CRatio    = "ratio"
	CChange   = "change"
	CStrength = "strength"
	CScore    = "score"
)

// 别名表：外部原始名字（大小写、缩写不统一）映射到 Kind
var aliases = map[string]Kind{
	"rsi":                  KindRSI,
	"stoch":                KindStochastic,
	"stochastic":           KindStochastic,
	"kdj":                  KindStochastic,
	"cci":                  KindCCI,
	"willr":                KindWilliamsR,
	"williams_r":           KindWilliamsR,
	"williamsr":            KindWilliamsR,
	"mfi":                  KindMFI,
	"roc":                  KindROC,
	"macd":                 KindMACD,
	"adx":                  KindADX,
	"aroon":                KindAroon,
	"sma":                  KindSMA,
	"ema":                  KindEMA,
	"psar":                 KindPSAR,
	"sar":                  KindPSAR,
	"obv":                  KindOBV,
	"vwap":                 KindVWAP,
	"volume_ratio":         KindVolumeRatio,
	"vol_ratio":            KindVolumeRatio,
	"bollinger":            KindBollinger,
	"bbands":               KindBollinger,
	"keltner":              KindKeltner,
	"donchian":             KindDonchian,
	"alligator":            KindAlligator,
	"ichimoku":             KindIchimoku,
	"supertrend":           KindSupertrend,
	"hammer":               KindHammer,
	"shooting_star":        KindShootingStar,
	"bullish_engulfing":    KindBullishEngulfing,
	"bearish_engulfing":    KindBearishEngulfing,
	"doji":                 KindDoji,
	"morning_star":         KindMorningStar,
	"evening_star":         KindEveningStar,
	"three_white_soldiers": KindThreeWhiteSoldiers,
	"three_black_crows":    KindThreeBlackCrows,
	"ml_prediction":        KindMLPrediction,
	"social_sentiment":     KindSocialSentiment,
	"news_sentiment":       KindNewsSentiment,
}

// ParseKind 把外部名字解析成 Kind，未知名字返回 false
func ParseKind(name string) (Kind, bool) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// Family 返回 Kind 所属的信号族
func (k Kind) Family() model.SignalFamily {
	if spec, ok := converters[k]; ok {
		return spec.family
	}
	return ""
}

// Components 返回 Kind 必需的分量
func (k Kind) Components() []string {
	if spec, ok := converters[k]; ok {
		return spec.components
	}
	return nil
}

// 指标分组：配置里按组启用指标
var IndicatorGroups = map[string][]Kind{
	"trend":      {KindMACD, KindADX, KindAroon, KindSMA, KindEMA, KindPSAR, KindAlligator, KindIchimoku, KindSupertrend},
	"momentum":   {KindRSI, KindStochastic, KindCCI, KindWilliamsR, KindMFI, KindROC},
	"volatility": {KindBollinger, KindKeltner, KindDonchian},
	"volume":     {KindOBV, KindVWAP, KindVolumeRatio},
}

// 形态分组
var PatternGroups = map[string][]Kind{
	"reversal":     {KindHammer, KindShootingStar, KindBullishEngulfing, KindBearishEngulfing},
	"indecision":   {KindDoji},
	"multi_candle": {KindMorningStar, KindEveningStar, KindThreeWhiteSoldiers, KindThreeBlackCrows},
}

// KindsOf 展开一组分组名，未知分组忽略，结果去重且保持顺序
func KindsOf(groups []string, table map[string][]Kind) []Kind {
	seen := make(map[Kind]bool)
	var out []Kind
	for _, g := range groups {
		for _, k := range table[g] {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
