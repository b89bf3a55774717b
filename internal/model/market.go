package model

import "time"

// PriceObservation 一条外部提供的逐笔/快照行情，只读
type PriceObservation struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Bid       *float64  `json:"bid,omitempty"`
	Ask       *float64  `json:"ask,omitempty"`
	BidSize   *float64  `json:"bid_size,omitempty"`
	AskSize   *float64  `json:"ask_size,omitempty"`
}

type Kline struct {
	Timestamp time.Time `json:"time"` // 周期起始时间
	Open      float64   `json:"open"`
	Close     float64   `json:"close"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Vol       float64   `json:"vol"`
}

// LessObservation 按时间、再按 symbol 排序的比较函数，保证回放顺序稳定
func LessObservation(a, b PriceObservation) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Symbol < b.Symbol
}

// SentimentChannel 舆情来源
type SentimentChannel string

const (
	SentimentSocial SentimentChannel = "social"
	SentimentNews   SentimentChannel = "news"
)

// SentimentObservation 某一时刻某只股票的舆情得分，取值 [-1,1]
type SentimentObservation struct {
	Symbol    string           `json:"symbol" validate:"required"`
	Channel   SentimentChannel `json:"channel" validate:"required,oneof=social news"`
	Timestamp time.Time        `json:"timestamp" validate:"required"`
	Score     float64          `json:"score" validate:"gte=-1,lte=1"`
}
