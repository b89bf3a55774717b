package signal

import (
	"fmt"
	"math"

	"gridflow/internal/model"
)

// Values 一个指标的原始输出，key 为分量名；缺失或 NaN 视为无值
type Values map[string]float64

func (v Values) get(c string) (float64, bool) {
	x, ok := v[c]
	if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

// reading 单个转换函数的结论
type reading struct {
	dir      model.Direction
	strength float64
	reason   string
}

type convertFunc func(v Values, k Kind, r *Resolver) (reading, bool)

type converterSpec struct {
	family     model.SignalFamily
	confidence float64 // 同一族的指标置信度固定
	components []string
	fn         convertFunc
}

// 各族固定置信度
const (
	confMomentum   = 0.6
	confTrend      = 0.65
	confVolatility = 0.55
	confVolume     = 0.5
	confPattern    = 0.45
	confML         = 0.7
	confSocial     = 0.4
	confNews       = 0.5
)

var converters map[Kind]converterSpec

func init() {
	ind := model.FamilyIndicator
	converters = map[Kind]converterSpec{
		KindRSI:         {ind, confMomentum, []string{CValue}, oscillator},
		KindStochastic:  {ind, confMomentum, []string{CK, CD}, stochastic},
		KindCCI:         {ind, confMomentum, []string{CValue}, oscillator},
		KindWilliamsR:   {ind, confMomentum, []string{CValue}, oscillator},
		KindMFI:         {ind, confMomentum, []string{CValue}, oscillator},
		KindROC:         {ind, confMomentum, []string{CValue}, rateOfChange},
		KindMACD:        {ind, confTrend, []string{CMACD, CSignal, CHist}, macd},
		KindADX:         {ind, confTrend, []string{CADX, CPlusDI, CMinusDI}, adx},
		KindAroon:       {ind, confTrend, []string{CUp, CDown}, aroon},
		KindSMA:         {ind, confTrend, []string{CValue, CPrice}, priceVsLine},
		KindEMA:         {ind, confTrend, []string{CValue, CPrice}, priceVsLine},
		KindPSAR:        {ind, confTrend, []string{CValue, CPrice}, psar},
		KindOBV:         {ind, confVolume, []string{CSlope}, obv},
		KindVWAP:        {ind, confVolume, []string{CValue, CPrice}, priceVsLine},
		KindVolumeRatio: {ind, confVolume, []string{CRatio, CChange}, volumeRatio},
		KindBollinger:   {ind, confVolatility, []string{CUpper, CMiddle, CLower, CPrice}, bands},
		KindKeltner:     {ind, confVolatility, []string{CUpper, CMiddle, CLower, CPrice}, bands},
		KindDonchian:    {ind, confVolatility, []string{CUpper, CLower, CPrice}, donchian},
		KindAlligator:   {ind, confTrend, []string{CJaw, CTeeth, CLips}, alligator},
		KindIchimoku:    {ind, confTrend, []string{CTenkan, CKijun, CSenkouA, CSenkouB, CPrice}, ichimoku},
		KindSupertrend:  {ind, confTrend, []string{CLine, CPrice}, supertrend},

		KindHammer:             {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Bullish)},
		KindShootingStar:       {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Bearish)},
		KindBullishEngulfing:   {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Bullish)},
		KindBearishEngulfing:   {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Bearish)},
		KindDoji:               {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Neutral)},
		KindMorningStar:        {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Bullish)},
		KindEveningStar:        {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Bearish)},
		KindThreeWhiteSoldiers: {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Bullish)},
		KindThreeBlackCrows:    {model.FamilyPattern, confPattern, []string{CStrength}, pattern(model.Bearish)},

		KindMLPrediction:    {model.FamilyML, confML, []string{CScore}, score},
		KindSocialSentiment: {model.FamilySocial, confSocial, []string{CScore}, score},
		KindNewsSentiment:   {model.FamilyNews, confNews, []string{CScore}, score},
	}
}

// Convert 把一个指标的原始值转换成信号。
// 未知 kind、分量缺失、或者读数不足以给出判断时返回 nil
func Convert(kind Kind, v Values, r *Resolver) *model.Signal {
	spec, ok := converters[kind]
	if !ok {
		return nil
	}
	for _, c := range spec.components {
		if _, ok := v.get(c); !ok {
			return nil
		}
	}
	rd, ok := spec.fn(v, kind, r)
	if !ok {
		return nil
	}
	return &model.Signal{
		Source:     string(kind),
		Family:     spec.family,
		Action:     actionOf(rd.dir),
		Direction:  rd.dir,
		Confidence: spec.confidence,
		Strength:   clampStrength(rd.strength),
		Reason:     rd.reason,
		Prediction: PredictionFor(kind, rd.dir),
	}
}

// ConvertNamed 按外部名字转换，名字不认识时返回 nil
func ConvertNamed(name string, v Values, r *Resolver) *model.Signal {
	k, ok := ParseKind(name)
	if !ok {
		return nil
	}
	return Convert(k, v, r)
}

func actionOf(d model.Direction) model.Action {
	switch d {
	case model.Bullish:
		return model.ActionBuy
	case model.Bearish:
		return model.ActionSell
	}
	return model.ActionHold
}

func clampStrength(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(1, s))
}

func neutral(reason string) (reading, bool) {
	return reading{dir: model.Neutral, reason: reason}, true
}

// ---- 振荡类 ----

// oscillator RSI / CCI / WilliamsR / MFI 共用：低于超卖看多，高于超买看空
func oscillator(v Values, k Kind, r *Resolver) (reading, bool) {
	x, _ := v.get(CValue)
	lo, hi := r.Get(k, "oversold"), r.Get(k, "overbought")
	span := hi - lo
	if span <= 0 {
		return reading{}, false
	}
	switch {
	case x <= lo:
		return reading{model.Bullish, (lo - x) / span * 2, fmt.Sprintf("%s %.2f <= oversold %.2f", k, x, lo)}, true
	case x >= hi:
		return reading{model.Bearish, (x - hi) / span * 2, fmt.Sprintf("%s %.2f >= overbought %.2f", k, x, hi)}, true
	}
	return neutral(fmt.Sprintf("%s %.2f in range", k, x))
}

func stochastic(v Values, k Kind, r *Resolver) (reading, bool) {
	kv, _ := v.get(CK)
	dv, _ := v.get(CD)
	lo, hi := r.Get(k, "oversold"), r.Get(k, "overbought")
	switch {
	case kv <= lo && dv <= lo:
		return reading{model.Bullish, (lo - math.Min(kv, dv)) / lo, fmt.Sprintf("stoch k=%.2f d=%.2f oversold", kv, dv)}, true
	case kv >= hi && dv >= hi:
		return reading{model.Bearish, (math.Max(kv, dv) - hi) / (100 - hi), fmt.Sprintf("stoch k=%.2f d=%.2f overbought", kv, dv)}, true
	}
	return neutral(fmt.Sprintf("stoch k=%.2f d=%.2f", kv, dv))
}

func rateOfChange(v Values, k Kind, r *Resolver) (reading, bool) {
	x, _ := v.get(CValue)
	th := r.Get(k, "threshold")
	if th <= 0 {
		th = 1
	}
	switch {
	case x > th:
		return reading{model.Bullish, x / (th * 5), fmt.Sprintf("roc %.2f%% > %.2f%%", x, th)}, true
	case x < -th:
		return reading{model.Bearish, -x / (th * 5), fmt.Sprintf("roc %.2f%% < -%.2f%%", x, th)}, true
	}
	return neutral(fmt.Sprintf("roc %.2f%% flat", x))
}

// ---- 趋势类 ----

func macd(v Values, k Kind, r *Resolver) (reading, bool) {
	m, _ := v.get(CMACD)
	s, _ := v.get(CSignal)
	h, _ := v.get(CHist)
	minHist := r.Get(k, "min_hist")
	strength := math.Abs(h) / (math.Abs(s) + math.Abs(h) + 1e-9)
	switch {
	case m > s && h > minHist:
		return reading{model.Bullish, strength, fmt.Sprintf("macd %.4f above signal %.4f", m, s)}, true
	case m < s && h < -minHist:
		return reading{model.Bearish, strength, fmt.Sprintf("macd %.4f below signal %.4f", m, s)}, true
	}
	return neutral("macd crossing")
}

func adx(v Values, k Kind, r *Resolver) (reading, bool) {
	a, _ := v.get(CADX)
	plus, _ := v.get(CPlusDI)
	minus, _ := v.get(CMinusDI)
	if a < r.Get(k, "trend_strength") {
		return neutral(fmt.Sprintf("adx %.2f weak trend", a))
	}
	switch {
	case plus > minus:
		return reading{model.Bullish, a / 50, fmt.Sprintf("adx %.2f +di %.2f > -di %.2f", a, plus, minus)}, true
	case minus > plus:
		return reading{model.Bearish, a / 50, fmt.Sprintf("adx %.2f -di %.2f > +di %.2f", a, minus, plus)}, true
	}
	return neutral("adx di equal")
}

func aroon(v Values, k Kind, r *Resolver) (reading, bool) {
	up, _ := v.get(CUp)
	down, _ := v.get(CDown)
	strong, weak := r.Get(k, "strong"), r.Get(k, "weak")
	switch {
	case up >= strong && down <= weak:
		return reading{model.Bullish, (up - down) / 100, fmt.Sprintf("aroon up %.0f down %.0f", up, down)}, true
	case down >= strong && up <= weak:
		return reading{model.Bearish, (down - up) / 100, fmt.Sprintf("aroon down %.0f up %.0f", down, up)}, true
	}
	return neutral(fmt.Sprintf("aroon up %.0f down %.0f", up, down))
}

// priceVsLine SMA / EMA / VWAP：价格在均线上方看多，band 为相对偏离的死区
func priceVsLine(v Values, k Kind, r *Resolver) (reading, bool) {
	line, _ := v.get(CValue)
	price, _ := v.get(CPrice)
	if line == 0 {
		return reading{}, false
	}
	dev := (price - line) / line
	band := r.Get(k, "band")
	switch {
	case dev > band:
		return reading{model.Bullish, dev * 20, fmt.Sprintf("price %.4f above %s %.4f", price, k, line)}, true
	case dev < -band:
		return reading{model.Bearish, -dev * 20, fmt.Sprintf("price %.4f below %s %.4f", price, k, line)}, true
	}
	return neutral(fmt.Sprintf("price at %s", k))
}

func psar(v Values, _ Kind, _ *Resolver) (reading, bool) {
	sar, _ := v.get(CValue)
	price, _ := v.get(CPrice)
	if price == 0 {
		return reading{}, false
	}
	gap := math.Abs(price-sar) / price
	switch {
	case price > sar:
		return reading{model.Bullish, gap * 20, fmt.Sprintf("price above sar %.4f", sar)}, true
	case price < sar:
		return reading{model.Bearish, gap * 20, fmt.Sprintf("price below sar %.4f", sar)}, true
	}
	return neutral("price at sar")
}

func alligator(v Values, _ Kind, _ *Resolver) (reading, bool) {
	jaw, _ := v.get(CJaw)
	teeth, _ := v.get(CTeeth)
	lips, _ := v.get(CLips)
	if jaw == 0 {
		return reading{}, false
	}
	spread := math.Abs(lips-jaw) / jaw * 20
	switch {
	case lips > teeth && teeth > jaw:
		return reading{model.Bullish, spread, "alligator lips > teeth > jaw"}, true
	case lips < teeth && teeth < jaw:
		return reading{model.Bearish, spread, "alligator lips < teeth < jaw"}, true
	}
	return neutral("alligator sleeping")
}

func ichimoku(v Values, _ Kind, _ *Resolver) (reading, bool) {
	tenkan, _ := v.get(CTenkan)
	kijun, _ := v.get(CKijun)
	a, _ := v.get(CSenkouA)
	b, _ := v.get(CSenkouB)
	price, _ := v.get(CPrice)
	top, bottom := math.Max(a, b), math.Min(a, b)
	switch {
	case price > top && tenkan > kijun:
		return reading{model.Bullish, 0.8, "price above cloud, tenkan > kijun"}, true
	case price > top:
		return reading{model.Bullish, 0.5, "price above cloud"}, true
	case price < bottom && tenkan < kijun:
		return reading{model.Bearish, 0.8, "price below cloud, tenkan < kijun"}, true
	case price < bottom:
		return reading{model.Bearish, 0.5, "price below cloud"}, true
	}
	return neutral("price inside cloud")
}

func supertrend(v Values, _ Kind, _ *Resolver) (reading, bool) {
	line, _ := v.get(CLine)
	price, _ := v.get(CPrice)
	if price == 0 {
		return reading{}, false
	}
	gap := math.Abs(price-line) / price * 20
	switch {
	case price > line:
		return reading{model.Bullish, gap, "price above supertrend"}, true
	case price < line:
		return reading{model.Bearish, gap, "price below supertrend"}, true
	}
	return neutral("price at supertrend")
}

// ---- 波动类 ----

func bands(v Values, k Kind, _ *Resolver) (reading, bool) {
	upper, _ := v.get(CUpper)
	lower, _ := v.get(CLower)
	price, _ := v.get(CPrice)
	width := upper - lower
	if width <= 0 {
		return reading{}, false
	}
	switch {
	case price <= lower:
		return reading{model.Bullish, 0.5 + (lower-price)/width, fmt.Sprintf("price below %s lower band", k)}, true
	case price >= upper:
		return reading{model.Bearish, 0.5 + (price-upper)/width, fmt.Sprintf("price above %s upper band", k)}, true
	}
	return neutral(fmt.Sprintf("price inside %s", k))
}

// donchian 突破通道：新高看多，新低看空
func donchian(v Values, _ Kind, _ *Resolver) (reading, bool) {
	upper, _ := v.get(CUpper)
	lower, _ := v.get(CLower)
	price, _ := v.get(CPrice)
	if upper <= lower {
		return reading{}, false
	}
	switch {
	case price >= upper:
		return reading{model.Bullish, 0.7, "donchian breakout up"}, true
	case price <= lower:
		return reading{model.Bearish, 0.7, "donchian breakout down"}, true
	}
	return neutral("inside donchian channel")
}

// ---- 成交量类 ----

func obv(v Values, k Kind, r *Resolver) (reading, bool) {
	slope, _ := v.get(CSlope)
	minSlope := r.Get(k, "min_slope")
	switch {
	case slope > minSlope:
		return reading{model.Bullish, 0.5, fmt.Sprintf("obv rising %.2f", slope)}, true
	case slope < -minSlope:
		return reading{model.Bearish, 0.5, fmt.Sprintf("obv falling %.2f", slope)}, true
	}
	return neutral("obv flat")
}

// volumeRatio 放量跟随价格方向，缩量不表态
func volumeRatio(v Values, k Kind, r *Resolver) (reading, bool) {
	ratio, _ := v.get(CRatio)
	change, _ := v.get(CChange)
	high := r.Get(k, "high")
	if ratio < high || high <= 0 {
		return neutral(fmt.Sprintf("volume ratio %.2f", ratio))
	}
	strength := (ratio - high) / high
	switch {
	case change > 0:
		return reading{model.Bullish, strength, fmt.Sprintf("volume x%.2f on up move", ratio)}, true
	case change < 0:
		return reading{model.Bearish, strength, fmt.Sprintf("volume x%.2f on down move", ratio)}, true
	}
	return neutral("volume spike without price move")
}

// ---- 形态 ----

func pattern(dir model.Direction) convertFunc {
	return func(v Values, k Kind, r *Resolver) (reading, bool) {
		s, _ := v.get(CStrength)
		if s <= 0 || s < r.Get(k, "min_strength") {
			return reading{}, false
		}
		return reading{dir, s, fmt.Sprintf("%s pattern", k)}, true
	}
}

// ---- 模型与舆情 ----

// score 得分在 [-1,1]，超过阈值才表态
func score(v Values, k Kind, r *Resolver) (reading, bool) {
	s, _ := v.get(CScore)
	th := r.Get(k, "threshold")
	switch {
	case s > th:
		return reading{model.Bullish, math.Abs(s), fmt.Sprintf("%s score %.3f", k, s)}, true
	case s < -th:
		return reading{model.Bearish, math.Abs(s), fmt.Sprintf("%s score %.3f", k, s)}, true
	}
	return neutral(fmt.Sprintf("%s score %.3f", k, s))
}
