package model

// SignalFamily 信号来源族，用于权重聚合与收益归因
type SignalFamily string

const (
	FamilyIndicator SignalFamily = "indicator"
	FamilyPattern   SignalFamily = "pattern"
	FamilyML        SignalFamily = "ml"
	FamilySocial    SignalFamily = "social"
	FamilyNews      SignalFamily = "news"
)

// Direction 信号方向
type Direction int

const (
	Bearish Direction = -1
	Neutral Direction = 0
	Bullish Direction = 1
)

// Prediction 经验统计给出的预期表现，仅供展示，账本不读取
type Prediction struct {
	ExpectedGainPct float64 `json:"expected_gain_pct"`
	ExpectedLossPct float64 `json:"expected_loss_pct"`
	Probability     float64 `json:"probability"`
	Timeframe       string  `json:"timeframe"`
}

// Signal 由单个指标/形态/模型得出的方向判断
type Signal struct {
	Source     string       `json:"source"` // 指标名或模型名
	Family     SignalFamily `json:"family"`
	Action     Action       `json:"action"` // buy / sell / hold
	Direction  Direction    `json:"direction"`
	Confidence float64      `json:"confidence"`
	Strength   float64      `json:"strength"` // 0~1
	Reason     string       `json:"reason"`
	Prediction Prediction   `json:"prediction"`
}

// AttributionKey 归因表的 key：ML 按模型区分，其余按族聚合
func (s Signal) AttributionKey() string {
	if s.Family == FamilyML {
		return string(FamilyML) + ":" + s.Source
	}
	return string(s.Family)
}
