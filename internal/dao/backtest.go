package dao

import (
	"context"
	"errors"
	"time"

	"gridflow/internal/model"
	"gridflow/internal/model/entity"
)

var ErrNotFound = errors.New("record not found")

// BacktestDao 运行、配置、结果、快照、错误日志的持久化
type BacktestDao interface {
	CreateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, status model.RunStatus, limit int) ([]model.Run, error)
	// DeleteRun 软删除，只允许终止状态的运行
	DeleteRun(ctx context.Context, runID string) error

	GetStatus(ctx context.Context, runID string) (model.RunStatus, error)
	// CompareAndSetStatus 仅当当前状态属于 from 时更新状态与说明，返回是否更新成功
	CompareAndSetStatus(ctx context.Context, runID string, to model.RunStatus, msg string, from ...model.RunStatus) (bool, error)
	SaveProgress(ctx context.Context, runID string, p model.RunProgress) error
	GetProgress(ctx context.Context, runID string) (*model.RunProgress, error)

	SaveConfigs(ctx context.Context, runID string, cfgs []model.BotConfig) error
	LoadConfigs(ctx context.Context, runID string) ([]model.BotConfig, error)

	SaveResult(ctx context.Context, runID string, res model.FinalResult, snaps []model.Snapshot) error
	LoadResults(ctx context.Context, runID string) ([]model.FinalResult, error)
	GetResult(ctx context.Context, runID string, botIndex int) (*model.FinalResult, error)
	ListSnapshots(ctx context.Context, runID string, botIndex, offset, limit int) ([]model.Snapshot, error)

	AppendError(ctx context.Context, runID string, botIndex int, msg string) error
	ListErrors(ctx context.Context, runID string) ([]entity.RunError, error)

	SaveSummary(ctx context.Context, runID string, top []model.Performer) error
	GetSummary(ctx context.Context, runID string) ([]model.Performer, error)
}

// PriceTickDao 行情观测读写
type PriceTickDao interface {
	SaveTicks(ctx context.Context, obs []model.PriceObservation) error
	// Observations from 为零值时不设下限，结果按时间再按 symbol 排序
	Observations(ctx context.Context, symbols []string, from, to time.Time) ([]model.PriceObservation, error)
}

// SentimentDao 舆情得分读写
type SentimentDao interface {
	SaveSentiment(ctx context.Context, pts []model.SentimentObservation) error
	// Sentiment 结果按时间排序，from 为零值时不设下限
	Sentiment(ctx context.Context, symbols []string, channel model.SentimentChannel, from, to time.Time) ([]model.SentimentObservation, error)
}
