package aggregator

import (
	"math"
	"sort"

	"gridflow/internal/model"

	"github.com/shopspring/decimal"
)

const tradingDays = 252

// Options 聚合参数
type Options struct {
	InitialFund float64
	Mode        model.ExecutionMode
	Precision   int32 // 金额保留的小数位
}

// Aggregate 把一个配置的执行期快照与成交归纳成最终指标。
// 只消费执行阶段的数据，历史阶段不参与
func Aggregate(botIndex int, snaps []model.Snapshot, trades []model.TradeRecord, finalCash, finalValue float64, opt Options) model.FinalResult {
	r := model.FinalResult{
		BotIndex:            botIndex,
		FinalCash:           round(finalCash, opt.Precision),
		FinalPortfolioValue: round(finalValue, opt.Precision),
	}

	total := decimal.Zero
	for _, s := range snaps {
		total = total.Add(decimal.NewFromFloat(s.ProfitDelta))
	}
	r.TotalProfit = total.Round(opt.Precision).InexactFloat64()

	var winSum, lossSum float64
	for _, t := range trades {
		r.TotalTrades++
		switch t.Action {
		case model.ActionBuy:
			r.BuyCount++
		case model.ActionSell:
			r.SellCount++
			switch {
			case t.RealizedProfit > 0:
				r.WinningTrades++
				winSum += t.RealizedProfit
			case t.RealizedProfit < 0:
				r.LosingTrades++
				lossSum += t.RealizedProfit
			}
		}
	}
	if r.WinningTrades > 0 {
		r.AvgProfit = round(winSum/float64(r.WinningTrades), opt.Precision)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = round(lossSum/float64(r.LosingTrades), opt.Precision)
	}

	days := dailyProfits(snaps)
	for _, d := range days {
		r.ActiveDays++
		if d.profit > 0 {
			r.ProfitableDays++
		}
	}
	if opt.Mode == model.ModeDailyReset {
		if r.ActiveDays > 0 {
			r.WinRate = float64(r.ProfitableDays) / float64(r.ActiveDays)
		}
	} else if closed := r.WinningTrades + r.LosingTrades; closed > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(closed)
	}

	r.MaxDrawdown, r.MaxDrawdownPct = drawdown(snaps, opt.InitialFund)
	r.MaxDrawdown = round(r.MaxDrawdown, opt.Precision)
	r.Sharpe = sharpe(days, opt)
	r.SignalProductivity = Productivity(snaps)
	return r
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

type dayProfit struct {
	date   string
	profit float64
}

// dailyProfits 按日期汇总盈亏，保持时间顺序
func dailyProfits(snaps []model.Snapshot) []dayProfit {
	var out []dayProfit
	for _, s := range snaps {
		n := len(out)
		if n > 0 && out[n-1].date == s.Date {
			out[n-1].profit += s.ProfitDelta
			continue
		}
		out = append(out, dayProfit{date: s.Date, profit: s.ProfitDelta})
	}
	return out
}

// drawdown 在 初始资金 + 累计盈亏 曲线上求最大回撤
func drawdown(snaps []model.Snapshot, fund float64) (float64, float64) {
	peak := fund
	var maxDD, maxPct float64
	for _, s := range snaps {
		v := fund + s.CumulativeProfit
		if v > peak {
			peak = v
		}
		dd := peak - v
		if dd > maxDD {
			maxDD = dd
			if peak > 0 {
				maxPct = dd / peak
			}
		}
	}
	return maxDD, maxPct
}

// sharpe 日收益率的年化夏普，样本少于 2 个或标准差为 0 时无定义
func sharpe(days []dayProfit, opt Options) *float64 {
	if len(days) < 2 || opt.InitialFund <= 0 {
		return nil
	}
	rets := make([]float64, len(days))
	base := opt.InitialFund
	for i, d := range days {
		if base <= 0 {
			return nil
		}
		rets[i] = d.profit / base
		if opt.Mode != model.ModeDailyReset {
			base += d.profit
		}
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var ss float64
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(len(rets)-1))
	if std == 0 || math.IsNaN(std) {
		return nil
	}
	v := mean / std * math.Sqrt(tradingDays)
	return &v
}

// Productivity 信号有效率：信号方向与该 symbol 下一次观测到的价格变动方向一致记为正确，
// 价格不变不计分
func Productivity(snaps []model.Snapshot) map[string]model.SignalProductivity {
	type acc struct {
		correct, incorrect int
		conf               float64
		n                  int
	}
	accs := make(map[string]*acc)
	// symbol -> 待结算的归因
	pending := make(map[string][]model.Attribution)

	settle := func(sym string, price float64) {
		for _, a := range pending[sym] {
			move := price - a.Price
			if move == 0 {
				continue
			}
			x := accs[a.Key]
			if x == nil {
				x = &acc{}
				accs[a.Key] = x
			}
			if (move > 0) == (a.Direction == model.Bullish) {
				x.correct++
			} else {
				x.incorrect++
			}
			x.conf += a.Confidence
			x.n++
		}
		delete(pending, sym)
	}

	for _, s := range snaps {
		syms := make([]string, 0, len(s.Prices))
		for sym := range s.Prices {
			syms = append(syms, sym)
		}
		sort.Strings(syms)
		for _, sym := range syms {
			settle(sym, s.Prices[sym])
		}
		for _, a := range s.Attribution {
			pending[a.Symbol] = append(pending[a.Symbol], a)
		}
	}

	out := make(map[string]model.SignalProductivity, len(accs))
	for k, x := range accs {
		p := model.SignalProductivity{Correct: x.correct, Incorrect: x.incorrect}
		if scored := x.correct + x.incorrect; scored > 0 {
			p.Productivity = float64(x.correct) / float64(scored)
		}
		if x.n > 0 {
			p.AvgConfidence = x.conf / float64(x.n)
		}
		out[k] = p
	}
	return out
}

// TopN 按总盈亏降序取前 n 名，盈亏相同按下标升序
func TopN(results []model.FinalResult, n int) []model.Performer {
	sorted := append([]model.FinalResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalProfit != sorted[j].TotalProfit {
			return sorted[i].TotalProfit > sorted[j].TotalProfit
		}
		return sorted[i].BotIndex < sorted[j].BotIndex
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]model.Performer, len(sorted))
	for i, r := range sorted {
		out[i] = model.Performer{BotIndex: r.BotIndex, TotalProfit: r.TotalProfit, WinRate: r.WinRate, TotalTrades: r.TotalTrades}
	}
	return out
}
