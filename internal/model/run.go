package model

import "time"

// RunStatus 回测运行状态
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunPaused    RunStatus = "paused"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal 是否为终止状态
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// ExecutionMode 账本跨天模式
type ExecutionMode string

const (
	ModeContinuous ExecutionMode = "continuous"  // 账本跨天延续
	ModeDailyReset ExecutionMode = "daily_reset" // 每个自然日重置为初始资金
)

// StepMode 回放步长
type StepMode string

const (
	StepTick StepMode = "tick" // 每个不同的时间戳一步
	StepDay  StepMode = "day"  // 每个自然日一步
)

// RunSpec 一次回测运行的完整定义
type RunSpec struct {
	Name           string                        `json:"name" validate:"required,max=128"`
	Strategy       string                        `json:"strategy,omitempty"` // 为空时使用默认策略
	StockUniverse  []string                      `json:"stock_universe" validate:"required,min=1,dive,required"`
	Ranges         map[string]any                `json:"ranges"`
	SocialFlags    []bool                        `json:"social_flags"`
	NewsFlags      []bool                        `json:"news_flags"`
	HistoryStart   time.Time                     `json:"history_start"`
	ExecutionStart time.Time                     `json:"execution_start" validate:"required"`
	ExecutionEnd   time.Time                     `json:"execution_end" validate:"required,gtfield=ExecutionStart"`
	InitialFund    float64                       `json:"initial_fund" validate:"gte=0"`
	Mode           ExecutionMode                 `json:"mode" validate:"omitempty,oneof=continuous daily_reset"`
	Step           StepMode                      `json:"step" validate:"omitempty,oneof=tick day"`
	AnalysisOnly   bool                          `json:"analysis_only"`
	Thresholds     map[string]map[string]float64 `json:"thresholds,omitempty"` // 运行级默认阈值
}

// Run 一次回测运行
type Run struct {
	ID        string    `json:"id"`
	Spec      RunSpec   `json:"spec"`
	Status    RunStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RunProgress 运行进度，由 orchestrator 统一更新
type RunProgress struct {
	Status        RunStatus     `json:"status"`
	TotalBots     int           `json:"total_bots"`
	BotsCompleted int           `json:"bots_completed"`
	BotsFailed    int           `json:"bots_failed"`
	Progress      float64       `json:"progress"` // 0~100
	ETA           time.Duration `json:"eta"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
