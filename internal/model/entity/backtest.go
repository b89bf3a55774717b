package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/plugin/soft_delete"
)

// BacktestRun 一次回测运行，Spec / Summary 以 JSON 保存
type BacktestRun struct {
	ID            string                `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Name          string                `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Strategy      string                `gorm:"column:strategy;type:varchar(64)" json:"strategy"`
	Status        string                `gorm:"column:status;type:varchar(16);not null;index:idx_run_status" json:"status"`
	ErrorMessage  string                `gorm:"column:error_message;type:text" json:"error_message"`
	Spec          datatypes.JSON        `gorm:"column:spec" json:"spec"`
	TotalBots     int                   `gorm:"column:total_bots" json:"total_bots"`
	BotsCompleted int                   `gorm:"column:bots_completed" json:"bots_completed"`
	BotsFailed    int                   `gorm:"column:bots_failed" json:"bots_failed"`
	Progress      float64               `gorm:"column:progress" json:"progress"`
	EtaSeconds    float64               `gorm:"column:eta_seconds" json:"eta_seconds"`
	Summary       datatypes.JSON        `gorm:"column:summary" json:"summary"` // top-N
	CreatedAt     time.Time             `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time             `gorm:"column:updated_at" json:"updated_at"`
	IsDel         soft_delete.DeletedAt `gorm:"column:is_del;softDelete:flag" json:"-"`
}

func (BacktestRun) TableName() string {
	return "backtest_run"
}

// BotConfigRow 运行生成的配置，恢复运行时复用
type BotConfigRow struct {
	ID       int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID    string         `gorm:"column:run_id;type:varchar(36);not null;uniqueIndex:uk_config_run_bot"`
	BotIndex int            `gorm:"column:bot_index;not null;uniqueIndex:uk_config_run_bot"`
	Config   datatypes.JSON `gorm:"column:config"`
}

func (BotConfigRow) TableName() string {
	return "bot_config"
}

// BotResult 单个配置的最终指标，常用排序字段单独成列
type BotResult struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID       string         `gorm:"column:run_id;type:varchar(36);not null;uniqueIndex:uk_result_run_bot;index:idx_result_profit"`
	BotIndex    int            `gorm:"column:bot_index;not null;uniqueIndex:uk_result_run_bot"`
	TotalProfit float64        `gorm:"column:total_profit;index:idx_result_profit"`
	WinRate     float64        `gorm:"column:win_rate"`
	TotalTrades int            `gorm:"column:total_trades"`
	Result      datatypes.JSON `gorm:"column:result"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
}

func (BotResult) TableName() string {
	return "bot_result"
}

// BotSnapshot 执行期每一步的快照
type BotSnapshot struct {
	ID               int64          `gorm:"column:id;primaryKey;autoIncrement:false"`
	RunID            string         `gorm:"column:run_id;type:varchar(36);not null;index:idx_snapshot_run_bot"`
	BotIndex         int            `gorm:"column:bot_index;not null;index:idx_snapshot_run_bot"`
	Step             int            `gorm:"column:step"`
	Timestamp        time.Time      `gorm:"column:timestamp"`
	TotalValue       float64        `gorm:"column:total_value"`
	ProfitDelta      float64        `gorm:"column:profit_delta"`
	CumulativeProfit float64        `gorm:"column:cumulative_profit"`
	Data             datatypes.JSON `gorm:"column:data"`
}

func (BotSnapshot) TableName() string {
	return "bot_snapshot"
}

// RunError 配置级错误，只追加
type RunError struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	RunID     string    `gorm:"column:run_id;type:varchar(36);not null;index" json:"run_id"`
	BotIndex  int       `gorm:"column:bot_index" json:"bot_index"`
	Message   string    `gorm:"column:message;type:text" json:"message"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (RunError) TableName() string {
	return "run_error"
}

// PriceTick 行情观测，由外部数据任务写入
type PriceTick struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Symbol    string    `gorm:"column:symbol;type:varchar(30);not null;index:idx_tick_ts_symbol,priority:2"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_tick_ts_symbol,priority:1"`
	Price     float64   `gorm:"column:price;type:decimal(20,8);not null"`
	Volume    float64   `gorm:"column:volume;type:decimal(24,8)"`
	Bid       *float64  `gorm:"column:bid;type:decimal(20,8)"`
	Ask       *float64  `gorm:"column:ask;type:decimal(20,8)"`
	BidSize   *float64  `gorm:"column:bid_size;type:decimal(24,8)"`
	AskSize   *float64  `gorm:"column:ask_size;type:decimal(24,8)"`
}

func (PriceTick) TableName() string {
	return "price_tick"
}

// All 需要自动迁移的表
func All() []any {
	return []any{&BacktestRun{}, &BotConfigRow{}, &BotResult{}, &BotSnapshot{}, &RunError{}, &PriceTick{}, &SentimentPoint{}}
}

// SentimentPoint 外部导入的舆情得分
type SentimentPoint struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	Symbol    string    `gorm:"column:symbol;type:varchar(32);not null;index:idx_sentiment_symbol_time"`
	Channel   string    `gorm:"column:channel;type:varchar(16);not null;index:idx_sentiment_symbol_time"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_sentiment_symbol_time"`
	Score     float64   `gorm:"column:score"`
}

func (SentimentPoint) TableName() string {
	return "sentiment_point"
}
