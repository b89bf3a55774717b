package model

// Action 决策动作
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionSkip  Action = "skip"  // 当前无行情数据
	ActionError Action = "error" // 策略回调异常
)

// Decision 某个配置在某个时间点对某个 symbol 的决策
type Decision struct {
	Action       Action   `json:"action"`
	Confidence   float64  `json:"confidence"`
	Strength     float64  `json:"strength"`
	Reason       string   `json:"reason"`
	PositionSize float64  `json:"position_size"` // 买入数量（股），卖出时忽略，总是全部平仓
	Signals      []Signal `json:"signals,omitempty"`
}

func SkipDecision(reason string) Decision {
	return Decision{Action: ActionSkip, Reason: reason}
}

func ErrorDecision(err error) Decision {
	return Decision{Action: ActionError, Reason: err.Error()}
}

func HoldDecision(reason string) Decision {
	return Decision{Action: ActionHold, Reason: reason}
}
