package model

import "time"

// Attribution 一条可归因的信号调用，聚合器据此计算信号有效率
type Attribution struct {
	Key        string    `json:"key"` // indicator / pattern / social / news / ml:<model>
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Price      float64   `json:"price"` // 发出信号时的价格
}

// Snapshot 每个 tick 或每天记录一次
type Snapshot struct {
	Step             int                 `json:"step"`
	Timestamp        time.Time           `json:"timestamp"`
	Date             string              `json:"date"` // 2006-01-02
	Decisions        map[string]Decision `json:"decisions"`
	Prices           map[string]float64  `json:"prices"`
	Cash             float64             `json:"cash"`
	PositionsValue   float64             `json:"positions_value"`
	TotalValue       float64             `json:"total_value"`
	Attribution      []Attribution       `json:"attribution,omitempty"`
	Trades           int                 `json:"trades"` // 本步成交笔数
	ProfitDelta      float64             `json:"profit_delta"`
	CumulativeProfit float64             `json:"cumulative_profit"`
}
