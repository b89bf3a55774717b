package model

import (
	"bytes"
	"fmt"

	"gridflow/pkg/validator"

	"github.com/goccy/go-json"
)

// BotConfigVersion 配置结构版本号，字段语义变化时递增
const BotConfigVersion = 1

// 聚合方式：多个信号族如何合成最终方向
const (
	AggWeightedAverage = "weighted_average"
	AggMajorityVote    = "majority_vote"
	AggUnanimous       = "unanimous"
	AggStrongest       = "strongest"
)

// 信号持续性规则
const (
	PersistenceNone        = "none"
	PersistenceConsecutive = "consecutive" // 连续 N 次同向信号才执行
	PersistenceWindow      = "window"      // 最近 N 次中多数同向才执行
)

// SignalWeights 各信号族的权重
type SignalWeights struct {
	Indicator float64 `json:"indicator" validate:"gte=0"`
	Pattern   float64 `json:"pattern" validate:"gte=0"`
	ML        float64 `json:"ml" validate:"gte=0"`
	Social    float64 `json:"social" validate:"gte=0"`
	News      float64 `json:"news" validate:"gte=0"`
}

// Of 按信号族取权重
func (w SignalWeights) Of(f SignalFamily) float64 {
	switch f {
	case FamilyIndicator:
		return w.Indicator
	case FamilyPattern:
		return w.Pattern
	case FamilyML:
		return w.ML
	case FamilySocial:
		return w.Social
	case FamilyNews:
		return w.News
	}
	return 0
}

// PersistenceRule 信号持续性要求，Type 为 none 时 Value 为 0
type PersistenceRule struct {
	Type  string `json:"type" validate:"oneof=none consecutive window"`
	Value int    `json:"value" validate:"gte=0"`
}

// Enabled 是否启用了持续性过滤
func (p PersistenceRule) Enabled() bool {
	return p.Type != "" && p.Type != PersistenceNone && p.Value > 0
}

// StrategyParams 单个机器人的策略参数
type StrategyParams struct {
	SignalWeights        SignalWeights      `json:"signal_weights"`
	MLWeights            map[string]float64 `json:"ml_weights"`
	RiskThreshold        float64            `json:"risk_threshold" validate:"gte=0,lte=1"`
	AggregationMethod    string             `json:"aggregation_method" validate:"oneof=weighted_average majority_vote unanimous strongest"`
	HoldingPeriod        int                `json:"holding_period" validate:"gte=0"` // 最长持仓步数，0 表示不限制
	StopLoss             float64            `json:"stop_loss" validate:"gte=0,lt=1"`
	TakeProfit           float64            `json:"take_profit" validate:"gte=0"`
	RiskAdjustmentFactor float64            `json:"risk_adjustment_factor" validate:"gt=0"`
	Persistence          PersistenceRule    `json:"persistence"`
}

// FeatureFlags 可选信号来源开关
type FeatureFlags struct {
	UseSocial bool `json:"use_social"`
	UseNews   bool `json:"use_news"`
}

// BotConfig 参数网格中的一个点，生成后只读
type BotConfig struct {
	Version         int                           `json:"version" validate:"eq=1"`
	Index           int                           `json:"index" validate:"gte=0"`
	Params          StrategyParams                `json:"params"`
	Stocks          []string                      `json:"stocks" validate:"required,min=1,dive,required"`
	Flags           FeatureFlags                  `json:"flags"`
	IndicatorGroups []string                      `json:"indicator_groups"`
	PatternGroups   []string                      `json:"pattern_groups"`
	Thresholds      map[string]map[string]float64 `json:"thresholds,omitempty"` // 机器人级阈值覆盖 kind -> key -> value
}

// HasStock 是否分配了该股票
func (c *BotConfig) HasStock(symbol string) bool {
	for _, s := range c.Stocks {
		if s == symbol {
			return true
		}
	}
	return false
}

// DecodeBotConfig 严格解码，未知字段直接报错
func DecodeBotConfig(data []byte) (*BotConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg BotConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode bot config: %w", err)
	}
	if cfg.Version != BotConfigVersion {
		return nil, fmt.Errorf("unsupported bot config version %d", cfg.Version)
	}
	if err := validator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid bot config: %w", err)
	}
	return &cfg, nil
}
