package strategy

import (
	"time"

	"gridflow/internal/model"
)

// 回放引擎与策略之间唯一的边界

// DecisionRequest 回放到某一步时交给策略的上下文
type DecisionRequest struct {
	Symbol      string
	Step        int
	Time        time.Time
	Price       float64
	History     []model.Kline // 截至当前可见的K线，最后一根可能未收盘
	Position    model.Position
	HasPosition bool
	Cash        float64
	Params      *model.StrategyParams
}

// Callback 单个配置的决策函数。实例按配置创建，可以持有跨步状态，
// 同一实例只会在一个 goroutine 里被顺序调用
type Callback interface {
	Decide(req DecisionRequest) (model.Decision, error)
}

// CallbackFunc 把普通函数适配成 Callback
type CallbackFunc func(req DecisionRequest) (model.Decision, error)

func (f CallbackFunc) Decide(req DecisionRequest) (model.Decision, error) {
	return f(req)
}

// Factory 为每个配置创建独立的 Callback
type Factory interface {
	Name() string
	New(cfg *model.BotConfig) (Callback, error)
}
