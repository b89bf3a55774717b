package indicator

import (
	"math"

	"gridflow/internal/model"
	"gridflow/internal/signal"

	"github.com/markcheno/go-talib"
)

// Periods 指标周期参数，零值字段使用默认值
type Periods struct {
	RSI         int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	Stoch       int
	CCI         int
	WillR       int
	MFI         int
	ROC         int
	ADX         int
	Aroon       int
	SMA         int
	EMA         int
	OBVSlope    int
	VWAP        int
	VolumeRatio int
	Bollinger   int
	Keltner     int
	Donchian    int
	Supertrend  int
}

var DefaultPeriods = Periods{
	RSI: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
	Stoch: 9, CCI: 20, WillR: 14, MFI: 14, ROC: 10, ADX: 14, Aroon: 14,
	SMA: 20, EMA: 20, OBVSlope: 10, VWAP: 20, VolumeRatio: 20,
	Bollinger: 20, Keltner: 20, Donchian: 20, Supertrend: 10,
}

// Calculator 从K线计算各指标的最新一组分量值。
// 数据不足时不输出该指标，由转换层当作缺失处理
type Calculator struct {
	p Periods
}

func NewCalculator(p Periods) *Calculator {
	d := DefaultPeriods
	fill := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	fill(&d.RSI, p.RSI)
	fill(&d.MACDFast, p.MACDFast)
	fill(&d.MACDSlow, p.MACDSlow)
	fill(&d.MACDSignal, p.MACDSignal)
	fill(&d.Stoch, p.Stoch)
	fill(&d.CCI, p.CCI)
	fill(&d.WillR, p.WillR)
	fill(&d.MFI, p.MFI)
	fill(&d.ROC, p.ROC)
	fill(&d.ADX, p.ADX)
	fill(&d.Aroon, p.Aroon)
	fill(&d.SMA, p.SMA)
	fill(&d.EMA, p.EMA)
	fill(&d.OBVSlope, p.OBVSlope)
	fill(&d.VWAP, p.VWAP)
	fill(&d.VolumeRatio, p.VolumeRatio)
	fill(&d.Bollinger, p.Bollinger)
	fill(&d.Keltner, p.Keltner)
	fill(&d.Donchian, p.Donchian)
	fill(&d.Supertrend, p.Supertrend)
	return &Calculator{p: d}
}

type series struct {
	opens, highs, lows, closes, vols []float64
}

func extract(klines []model.Kline) series {
	s := series{
		opens:  make([]float64, len(klines)),
		highs:  make([]float64, len(klines)),
		lows:   make([]float64, len(klines)),
		closes: make([]float64, len(klines)),
		vols:   make([]float64, len(klines)),
	}
	for i, k := range klines {
		s.opens[i] = k.Open
		s.highs[i] = k.High
		s.lows[i] = k.Low
		s.closes[i] = k.Close
		s.vols[i] = k.Vol
	}
	return s
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

// Compute 计算给定 kind 的分量值，返回 kind -> Values；
// 形态类由 DetectPatterns 处理，这里忽略
func (c *Calculator) Compute(klines []model.Kline, kinds []signal.Kind) map[signal.Kind]signal.Values {
	out := make(map[signal.Kind]signal.Values, len(kinds))
	if len(klines) == 0 {
		return out
	}
	s := extract(klines)
	n := len(klines)
	price := s.closes[n-1]
	for _, k := range kinds {
		if v := c.one(k, s, n, price); v != nil {
			out[k] = v
		}
	}
	return out
}

func (c *Calculator) one(k signal.Kind, s series, n int, price float64) signal.Values {
	p := c.p
	switch k {
	case signal.KindRSI:
		if n <= p.RSI {
			return nil
		}
		return signal.Values{signal.CValue: last(talib.Rsi(s.closes, p.RSI))}
	case signal.KindMACD:
		if n < p.MACDSlow+p.MACDSignal {
			return nil
		}
		m, sig, h := talib.Macd(s.closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
		return signal.Values{signal.CMACD: last(m), signal.CSignal: last(sig), signal.CHist: last(h)}
	case signal.KindStochastic:
		if n < p.Stoch+6 {
			return nil
		}
		kv, dv := talib.Stoch(s.highs, s.lows, s.closes, p.Stoch, 3, talib.SMA, 3, talib.SMA)
		return signal.Values{signal.CK: last(kv), signal.CD: last(dv)}
	case signal.KindCCI:
		if n < p.CCI {
			return nil
		}
		return signal.Values{signal.CValue: last(talib.Cci(s.highs, s.lows, s.closes, p.CCI))}
	case signal.KindWilliamsR:
		if n < p.WillR {
			return nil
		}
		return signal.Values{signal.CValue: last(talib.WillR(s.highs, s.lows, s.closes, p.WillR))}
	case signal.KindMFI:
		if n <= p.MFI {
			return nil
		}
		return signal.Values{signal.CValue: last(talib.Mfi(s.highs, s.lows, s.closes, s.vols, p.MFI))}
	case signal.KindROC:
		if n <= p.ROC {
			return nil
		}
		return signal.Values{signal.CValue: last(talib.Roc(s.closes, p.ROC))}
	case signal.KindADX:
		if n < 2*p.ADX+1 {
			return nil
		}
		return signal.Values{
			signal.CADX:     last(talib.Adx(s.highs, s.lows, s.closes, p.ADX)),
			signal.CPlusDI:  last(talib.PlusDI(s.highs, s.lows, s.closes, p.ADX)),
			signal.CMinusDI: last(talib.MinusDI(s.highs, s.lows, s.closes, p.ADX)),
		}
	case signal.KindAroon:
		if n <= p.Aroon {
			return nil
		}
		down, up := talib.Aroon(s.highs, s.lows, p.Aroon)
		return signal.Values{signal.CUp: last(up), signal.CDown: last(down)}
	case signal.KindSMA:
		if n < p.SMA {
			return nil
		}
		return signal.Values{signal.CValue: last(talib.Sma(s.closes, p.SMA)), signal.CPrice: price}
	case signal.KindEMA:
		if n < p.EMA {
			return nil
		}
		return signal.Values{signal.CValue: last(talib.Ema(s.closes, p.EMA)), signal.CPrice: price}
	case signal.KindPSAR:
		if n < 3 {
			return nil
		}
		return signal.Values{signal.CValue: last(talib.Sar(s.highs, s.lows, 0.02, 0.2)), signal.CPrice: price}
	case signal.KindOBV:
		if n <= p.OBVSlope {
			return nil
		}
		obv := talib.Obv(s.closes, s.vols)
		return signal.Values{signal.CSlope: last(talib.LinearRegSlope(obv, p.OBVSlope))}
	case signal.KindVWAP:
		if n < p.VWAP {
			return nil
		}
		return signal.Values{signal.CValue: vwap(s, p.VWAP), signal.CPrice: price}
	case signal.KindVolumeRatio:
		if n <= p.VolumeRatio {
			return nil
		}
		avg := last(talib.Sma(s.vols[:n-1], p.VolumeRatio))
		if avg == 0 {
			return nil
		}
		return signal.Values{signal.CRatio: s.vols[n-1] / avg, signal.CChange: s.closes[n-1] - s.closes[n-2]}
	case signal.KindBollinger:
		if n < p.Bollinger {
			return nil
		}
		u, m, l := talib.BBands(s.closes, p.Bollinger, 2, 2, talib.SMA)
		return signal.Values{signal.CUpper: last(u), signal.CMiddle: last(m), signal.CLower: last(l), signal.CPrice: price}
	case signal.KindKeltner:
		if n <= p.Keltner {
			return nil
		}
		mid := last(talib.Ema(s.closes, p.Keltner))
		atr := last(talib.Atr(s.highs, s.lows, s.closes, p.Keltner))
		return signal.Values{signal.CUpper: mid + 2*atr, signal.CMiddle: mid, signal.CLower: mid - 2*atr, signal.CPrice: price}
	case signal.KindDonchian:
		// 通道取前 N 根，不含当前K线，否则永远不会突破
		if n <= p.Donchian {
			return nil
		}
		return signal.Values{
			signal.CUpper: last(talib.Max(s.highs[:n-1], p.Donchian)),
			signal.CLower: last(talib.Min(s.lows[:n-1], p.Donchian)),
			signal.CPrice: price,
		}
	case signal.KindAlligator:
		if n < 21 {
			return nil
		}
		med := median(s)
		return signal.Values{
			signal.CJaw:   last(talib.Sma(med[:n-8], 13)),
			signal.CTeeth: last(talib.Sma(med[:n-5], 8)),
			signal.CLips:  last(talib.Sma(med[:n-3], 5)),
		}
	case signal.KindIchimoku:
		if n < 52 {
			return nil
		}
		tenkan := midpoint(s, 9)
		kijun := midpoint(s, 26)
		return signal.Values{
			signal.CTenkan:  tenkan,
			signal.CKijun:   kijun,
			signal.CSenkouA: (tenkan + kijun) / 2,
			signal.CSenkouB: midpoint(s, 52),
			signal.CPrice:   price,
		}
	case signal.KindSupertrend:
		if n <= p.Supertrend+1 {
			return nil
		}
		return signal.Values{signal.CLine: supertrendLine(s, p.Supertrend, 3), signal.CPrice: price}
	}
	return nil
}

func median(s series) []float64 {
	out := make([]float64, len(s.highs))
	for i := range s.highs {
		out[i] = (s.highs[i] + s.lows[i]) / 2
	}
	return out
}

// midpoint 最近 period 根的 (最高+最低)/2
func midpoint(s series, period int) float64 {
	hi := last(talib.Max(s.highs, period))
	lo := last(talib.Min(s.lows, period))
	return (hi + lo) / 2
}

func vwap(s series, period int) float64 {
	n := len(s.closes)
	var pv, vol float64
	for i := n - period; i < n; i++ {
		typical := (s.highs[i] + s.lows[i] + s.closes[i]) / 3
		pv += typical * s.vols[i]
		vol += s.vols[i]
	}
	if vol == 0 {
		return s.closes[n-1]
	}
	return pv / vol
}

// supertrendLine 逐根推进上下轨，返回最新一根的 supertrend 值
func supertrendLine(s series, period int, mult float64) float64 {
	atr := talib.Atr(s.highs, s.lows, s.closes, period)
	n := len(s.closes)
	var upper, lower, line float64
	up := true
	for i := period; i < n; i++ {
		mid := (s.highs[i] + s.lows[i]) / 2
		bu, bl := mid+mult*atr[i], mid-mult*atr[i]
		if i == period {
			upper, lower = bu, bl
		} else {
			if bu < upper || s.closes[i-1] > upper {
				upper = bu
			}
			if bl > lower || s.closes[i-1] < lower {
				lower = bl
			}
		}
		switch {
		case s.closes[i] > upper:
			up = true
		case s.closes[i] < lower:
			up = false
		}
		if up {
			line = lower
		} else {
			line = upper
		}
	}
	return line
}
