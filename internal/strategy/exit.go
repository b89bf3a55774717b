package strategy

import "fmt"

// Outcome 持仓退出原因
type Outcome string

const (
	HitTP   Outcome = "HIT_TP"  // 达到止盈
	HitSL   Outcome = "HIT_SL"  // 达到止损
	Open    Outcome = "OPEN"    // 继续持有
	Expired Outcome = "EXPIRED" // 超过最长持仓步数
)

// ExitRule 止盈止损与最长持仓，比例为相对平均成本，0 表示不启用
type ExitRule struct {
	StopLoss      float64
	TakeProfit    float64
	HoldingPeriod int
}

// Check 判断当前价格下持仓是否应当退出。止损优先于止盈，再看持仓时长
func (r ExitRule) Check(avgCost, price float64, heldSteps int) (Outcome, string) {
	if avgCost <= 0 {
		return Open, ""
	}
	pnl := price/avgCost - 1
	if r.StopLoss > 0 && pnl <= -r.StopLoss {
		return HitSL, fmt.Sprintf("stop loss %.2f%% (pnl %.2f%%)", r.StopLoss*100, pnl*100)
	}
	if r.TakeProfit > 0 && pnl >= r.TakeProfit {
		return HitTP, fmt.Sprintf("take profit %.2f%% (pnl %.2f%%)", r.TakeProfit*100, pnl*100)
	}
	if r.HoldingPeriod > 0 && heldSteps >= r.HoldingPeriod {
		return Expired, fmt.Sprintf("held %d steps >= %d", heldSteps, r.HoldingPeriod)
	}
	return Open, ""
}
