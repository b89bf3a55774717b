package model

// SignalProductivity 某个信号族的方向判断准确率
type SignalProductivity struct {
	Correct       int     `json:"correct"`
	Incorrect     int     `json:"incorrect"`
	Productivity  float64 `json:"productivity"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// FinalResult 单个配置回放结束后的汇总指标
type FinalResult struct {
	BotIndex            int                           `json:"bot_index"`
	TotalProfit         float64                       `json:"total_profit"`
	TotalTrades         int                           `json:"total_trades"`
	BuyCount            int                           `json:"buy_count"`
	SellCount           int                           `json:"sell_count"`
	WinningTrades       int                           `json:"winning_trades"`
	LosingTrades        int                           `json:"losing_trades"`
	WinRate             float64                       `json:"win_rate"`
	AvgProfit           float64                       `json:"avg_profit"`
	AvgLoss             float64                       `json:"avg_loss"`
	MaxDrawdown         float64                       `json:"max_drawdown"`
	MaxDrawdownPct      float64                       `json:"max_drawdown_pct"`
	Sharpe              *float64                      `json:"sharpe"` // 收益序列不足时为 nil
	ActiveDays          int                           `json:"active_days"`
	ProfitableDays      int                           `json:"profitable_days"`
	SignalProductivity  map[string]SignalProductivity `json:"signal_productivity"`
	FinalCash           float64                       `json:"final_cash"`
	FinalPortfolioValue float64                       `json:"final_portfolio_value"`
}

// Performer 运行汇总里的一条排名
type Performer struct {
	BotIndex    int     `json:"bot_index"`
	TotalProfit float64 `json:"total_profit"`
	WinRate     float64 `json:"win_rate"`
	TotalTrades int     `json:"total_trades"`
}
