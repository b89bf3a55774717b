package strategy

import (
	"math"

	"gridflow/internal/model"

	"github.com/markcheno/go-talib"
)

// Predictor 内置的轻量预测模型，输出 [-1,1] 的看多/看空得分
type Predictor interface {
	Name() string
	Predict(history []model.Kline) (float64, bool)
}

var predictors = map[string]Predictor{}

func registerPredictor(p Predictor) {
	predictors[p.Name()] = p
}

func init() {
	registerPredictor(momentumModel{period: 10})
	registerPredictor(meanReversionModel{period: 20})
	registerPredictor(linearTrendModel{period: 14})
}

// PredictorNames 内置模型名
func PredictorNames() []string {
	return []string{"linear_trend", "mean_reversion", "momentum"}
}

func closes(history []model.Kline) []float64 {
	out := make([]float64, len(history))
	for i, k := range history {
		out[i] = k.Close
	}
	return out
}

func clampScore(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, x))
}

// momentumModel 近 N 根的涨跌幅，5% 视为满分
type momentumModel struct{ period int }

func (momentumModel) Name() string { return "momentum" }

func (m momentumModel) Predict(history []model.Kline) (float64, bool) {
	if len(history) <= m.period {
		return 0, false
	}
	roc := talib.Roc(closes(history), m.period)
	return clampScore(roc[len(roc)-1] / 5), true
}

// meanReversionModel 偏离均线越远越倾向反向，两个标准差视为满分
type meanReversionModel struct{ period int }

func (meanReversionModel) Name() string { return "mean_reversion" }

func (m meanReversionModel) Predict(history []model.Kline) (float64, bool) {
	if len(history) < m.period {
		return 0, false
	}
	c := closes(history)
	sma := talib.Sma(c, m.period)
	sd := talib.StdDev(c, m.period, 1)
	mean, dev := sma[len(sma)-1], sd[len(sd)-1]
	if dev == 0 {
		return 0, true
	}
	z := (c[len(c)-1] - mean) / dev
	return clampScore(-z / 2), true
}

// linearTrendModel 线性回归斜率，按价格归一化，每根 1% 视为满分
type linearTrendModel struct{ period int }

func (linearTrendModel) Name() string { return "linear_trend" }

func (m linearTrendModel) Predict(history []model.Kline) (float64, bool) {
	if len(history) < m.period {
		return 0, false
	}
	c := closes(history)
	slope := talib.LinearRegSlope(c, m.period)
	price := c[len(c)-1]
	if price == 0 {
		return 0, false
	}
	return clampScore(slope[len(slope)-1] / price * 100), true
}
