package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"gridflow/internal/model"

	"go.uber.org/multierr"
)

const maxDurations = 50

// ControlState RunControl 内部可变状态，只能在 Update 回调里修改
type ControlState struct {
	Status    model.RunStatus
	Total     int
	Completed int
	Failed    int
	Durations []time.Duration // 最近完成配置的耗时，最多 50 条
	Errors    error           // 追加式错误日志
}

// RecordDuration 追加一次耗时并截断到上限
func (s *ControlState) RecordDuration(d time.Duration) {
	s.Durations = append(s.Durations, d)
	if len(s.Durations) > maxDurations {
		s.Durations = append([]time.Duration(nil), s.Durations[len(s.Durations)-maxDurations:]...)
	}
}

// AppendError 追加一条配置级错误
func (s *ControlState) AppendError(botIndex int, err error) {
	s.Errors = multierr.Append(s.Errors, fmt.Errorf("bot %d: %w", botIndex, err))
}

// RunControl 一次运行的共享进度状态，所有修改都经过 Update 串行化
type RunControl struct {
	mu     sync.Mutex
	state  ControlState
	margin float64
}

func NewRunControl(total int, margin float64) *RunControl {
	if margin <= 0 {
		margin = defaultMargin
	}
	return &RunControl{state: ControlState{Status: model.RunPending, Total: total}, margin: margin}
}

// Update 在锁内执行 fn
func (c *RunControl) Update(fn func(s *ControlState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

func (c *RunControl) Status() model.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status
}

// Errors 返回错误日志中的全部错误
func (c *RunControl) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return multierr.Errors(c.state.Errors)
}

// Progress 当前进度与预计剩余时间
func (c *RunControl) Progress() model.RunProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	p := model.RunProgress{
		Status:        s.Status,
		TotalBots:     s.Total,
		BotsCompleted: s.Completed,
		BotsFailed:    s.Failed,
		UpdatedAt:     time.Now(),
	}
	done := s.Completed + s.Failed
	if s.Total > 0 {
		p.Progress = float64(done) / float64(s.Total) * 100
	}
	p.ETA = EstimateETA(s.Durations, s.Total-done, c.margin)
	return p
}
