package indicator

import (
	"math"

	"gridflow/internal/model"
	"gridflow/internal/signal"
)

// 形态判定阈值，均为相对整根K线振幅的比例
const (
	dojiMaxBody    = 0.10
	hammerLowerMin = 0.60
	hammerUpperMax = 0.15
	hammerBodyMin  = 0.15
	starWickMin    = 0.60
	starWickMax    = 0.15
	engulfRatio    = 1.2
	longBodyMin    = 0.55
)

type candle struct {
	body, upper, lower, rng float64
	bodyPct, upPct, lowPct  float64
	bull, bear              bool
	k                       model.Kline
}

func parts(k model.Kline) candle {
	rng := k.High - k.Low
	if rng <= 0 {
		rng = 1e-9
	}
	body := math.Abs(k.Close - k.Open)
	upper := k.High - math.Max(k.Close, k.Open)
	lower := math.Min(k.Close, k.Open) - k.Low
	return candle{
		body: body, upper: upper, lower: lower, rng: rng,
		bodyPct: body / rng, upPct: upper / rng, lowPct: lower / rng,
		bull: k.Close > k.Open, bear: k.Open > k.Close,
		k: k,
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// DetectPatterns 在最后几根K线上识别形态，只输出命中的形态，值为强度 0~1
func DetectPatterns(klines []model.Kline, kinds []signal.Kind) map[signal.Kind]signal.Values {
	out := make(map[signal.Kind]signal.Values)
	n := len(klines)
	if n == 0 {
		return out
	}
	cs := make([]candle, 0, 3)
	for i := max(0, n-3); i < n; i++ {
		cs = append(cs, parts(klines[i]))
	}
	for _, k := range kinds {
		if s, ok := detect(k, cs); ok {
			out[k] = signal.Values{signal.CStrength: s}
		}
	}
	return out
}

func detect(k signal.Kind, cs []candle) (float64, bool) {
	c := cs[len(cs)-1]
	switch k {
	case signal.KindDoji:
		if c.bodyPct <= dojiMaxBody {
			return clamp01(1 - c.bodyPct/dojiMaxBody), true
		}
	case signal.KindHammer:
		if c.bodyPct >= hammerBodyMin && c.lowPct >= hammerLowerMin && c.upPct <= hammerUpperMax {
			return clamp01(0.6*(c.lowPct-hammerLowerMin)/(1-hammerLowerMin) + 0.4*(c.bodyPct-hammerBodyMin)/(1-hammerBodyMin) + 0.3), true
		}
	case signal.KindShootingStar:
		if c.upPct >= starWickMin && c.lowPct <= starWickMax {
			return clamp01(0.7*(c.upPct-starWickMin)/(1-starWickMin) + 0.3*(starWickMax-c.lowPct)/starWickMax + 0.2), true
		}
	case signal.KindBullishEngulfing, signal.KindBearishEngulfing:
		if len(cs) < 2 {
			return 0, false
		}
		p := cs[len(cs)-2]
		bull := k == signal.KindBullishEngulfing
		if bull && !(p.bear && c.bull) || !bull && !(p.bull && c.bear) {
			return 0, false
		}
		if c.body < engulfRatio*p.body {
			return 0, false
		}
		ratio := c.body / math.Max(p.body, 1e-9)
		return clamp01(0.4 + (ratio-engulfRatio)/3), true
	case signal.KindMorningStar, signal.KindEveningStar:
		if len(cs) < 3 {
			return 0, false
		}
		a, b := cs[0], cs[1]
		mid := (a.k.Open + a.k.Close) / 2
		if k == signal.KindMorningStar {
			if a.bear && a.bodyPct >= longBodyMin && b.bodyPct <= 0.3 && c.bull && c.k.Close > mid {
				return clamp01(0.5 + (c.k.Close-mid)/math.Max(a.body, 1e-9)), true
			}
		} else if a.bull && a.bodyPct >= longBodyMin && b.bodyPct <= 0.3 && c.bear && c.k.Close < mid {
			return clamp01(0.5 + (mid-c.k.Close)/math.Max(a.body, 1e-9)), true
		}
	case signal.KindThreeWhiteSoldiers, signal.KindThreeBlackCrows:
		if len(cs) < 3 {
			return 0, false
		}
		up := k == signal.KindThreeWhiteSoldiers
		var sum float64
		for i, x := range cs {
			if up && !x.bull || !up && !x.bear || x.bodyPct < longBodyMin {
				return 0, false
			}
			if i > 0 {
				prev := cs[i-1].k.Close
				if up && x.k.Close <= prev || !up && x.k.Close >= prev {
					return 0, false
				}
			}
			sum += x.bodyPct
		}
		return clamp01(sum / 3), true
	}
	return 0, false
}
