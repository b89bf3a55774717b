package model

import "time"

// TradeRecord 一笔成交记录，只追加
type TradeRecord struct {
	Step           int       `json:"step"`
	Timestamp      time.Time `json:"timestamp"`
	Symbol         string    `json:"symbol"`
	Action         Action    `json:"action"`
	Quantity       float64   `json:"quantity"`
	Price          float64   `json:"price"`
	CashDelta      float64   `json:"cash_delta"`
	RealizedProfit float64   `json:"realized_profit"` // 仅卖出有值
}

// Position 持仓视图（对外展示用，账本内部使用 decimal）
type Position struct {
	Quantity    float64 `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
}
