package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gridflow/internal/dao"
	"gridflow/internal/explorer"
	"gridflow/internal/model"
	"gridflow/internal/model/entity"
	"gridflow/internal/orchestrator"
	"gridflow/internal/strategy"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/logger"
	"gridflow/pkg/utils"
	"gridflow/pkg/validator"
	"gridflow/utils/uuid"
)

// BacktestService 回测运行的创建与控制：Start / Pause / Cancel / Resume
type BacktestService struct {
	dao        dao.BacktestDao
	ticks      dao.PriceTickDao
	sentiment  dao.SentimentDao // 为 nil 时不接受开启舆情的运行
	orch       *orchestrator.Orchestrator
	launcher   *orchestrator.Launcher
	maxConfigs int
}

func NewBacktestService(d dao.BacktestDao, ticks dao.PriceTickDao, sentiment dao.SentimentDao, orch *orchestrator.Orchestrator, launcher *orchestrator.Launcher, maxConfigs int) *BacktestService {
	if maxConfigs <= 0 || maxConfigs > explorer.MaxGridSize {
		maxConfigs = explorer.MaxGridSize
	}
	return &BacktestService{dao: d, ticks: ticks, sentiment: sentiment, orch: orch, launcher: launcher, maxConfigs: maxConfigs}
}

// CreateRun 校验并保存一次运行，状态为 pending，返回运行 id 与配置数量
func (s *BacktestService) CreateRun(ctx context.Context, spec model.RunSpec) (*model.Run, int, error) {
	for i, sym := range spec.StockUniverse {
		spec.StockUniverse[i] = utils.NormalizeSymbol(sym)
	}
	if err := validator.Struct(&spec); err != nil {
		return nil, 0, errors.WithCode(ecode.ValidateErr, validator.FirstError(err))
	}
	if !spec.HistoryStart.IsZero() && spec.HistoryStart.After(spec.ExecutionStart) {
		return nil, 0, errors.WithCode(ecode.ValidateErr, "history_start must not be after execution_start")
	}
	if _, err := strategy.Get(strategyName(spec.Strategy)); err != nil {
		return nil, 0, errors.WithCode(ecode.ValidateErr, err.Error())
	}
	if s.sentiment == nil && (slices.Contains(spec.SocialFlags, true) || slices.Contains(spec.NewsFlags, true)) {
		return nil, 0, errors.WithCode(ecode.ValidateErr, "no sentiment source configured")
	}
	ranges := explorer.ParseRanges(spec.Ranges)
	known := strategy.PredictorNames()
	for _, name := range ranges.ModelNames() {
		if !slices.Contains(known, name) {
			return nil, 0, errors.WithCode(ecode.ValidateErr, fmt.Sprintf("unknown ml model %q, expected one of %v", name, known))
		}
	}
	total, err := explorer.Count(ranges, spec.StockUniverse, spec.SocialFlags, spec.NewsFlags)
	if err != nil {
		return nil, 0, errors.WithCode(ecode.LimitErr, err.Error())
	}
	if total == 0 {
		return nil, 0, errors.WithCode(ecode.ValidateErr, "parameter grid is empty")
	}
	if total > s.maxConfigs {
		return nil, total, errors.WithCode(ecode.LimitErr, fmt.Sprintf("grid has %d configurations, limit is %d", total, s.maxConfigs))
	}

	run := &model.Run{
		ID:        uuid.GenUUID(),
		Spec:      spec,
		Status:    model.RunPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.dao.CreateRun(ctx, run); err != nil {
		return nil, 0, errors.Wrap(err, ecode.Unknown, "create run failed")
	}
	if err := s.dao.SaveProgress(ctx, run.ID, model.RunProgress{Status: model.RunPending, TotalBots: total}); err != nil {
		logger.Warn("init run progress failed", logger.Pair("run_id", run.ID), logger.Pair("err", err))
	}
	logger.Info("run created", logger.Pair("run_id", run.ID), logger.Pair("configs", total))
	return run, total, nil
}

// Start pending -> running，然后投递执行
func (s *BacktestService) Start(ctx context.Context, runID string) (bool, error) {
	if err := s.transition(ctx, runID, model.RunRunning, model.RunPending); err != nil {
		return false, err
	}
	return s.launcher.Launch(ctx, runID), nil
}

// Pause running -> paused，正在执行的批次结束后生效
func (s *BacktestService) Pause(ctx context.Context, runID string) error {
	return s.transition(ctx, runID, model.RunPaused, model.RunRunning)
}

// Cancel running|paused -> cancelled
func (s *BacktestService) Cancel(ctx context.Context, runID string) error {
	return s.transition(ctx, runID, model.RunCancelled, model.RunRunning, model.RunPaused)
}

// Resume paused -> running，复用已生成的配置并跳过已有结果
func (s *BacktestService) Resume(ctx context.Context, runID string) (bool, error) {
	if err := s.transition(ctx, runID, model.RunRunning, model.RunPaused); err != nil {
		return false, err
	}
	return s.launcher.Launch(ctx, runID), nil
}

func (s *BacktestService) transition(ctx context.Context, runID string, to model.RunStatus, from ...model.RunStatus) error {
	ok, err := s.dao.CompareAndSetStatus(ctx, runID, to, "", from...)
	if err != nil {
		return errors.Wrap(err, ecode.Unknown, "update run status failed")
	}
	if ok {
		logger.Info("run status changed", logger.Pair("run_id", runID), logger.Pair("status", to))
		return nil
	}
	cur, err := s.dao.GetStatus(ctx, runID)
	if err != nil {
		return s.lookupErr(err)
	}
	return errors.WithCode(ecode.StateErr, fmt.Sprintf("run is %s, expected one of %v", cur, from))
}

// Progress 本进程正在执行的运行读内存中的 RunControl，否则读存储
func (s *BacktestService) Progress(ctx context.Context, runID string) (*model.RunProgress, error) {
	status, err := s.dao.GetStatus(ctx, runID)
	if err != nil {
		return nil, s.lookupErr(err)
	}
	if ctl, ok := s.orch.Control(runID); ok {
		p := ctl.Progress()
		p.Status = status
		return &p, nil
	}
	p, err := s.dao.GetProgress(ctx, runID)
	if err != nil {
		return nil, s.lookupErr(err)
	}
	p.Status = status
	return p, nil
}

func (s *BacktestService) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	run, err := s.dao.GetRun(ctx, runID)
	if err != nil {
		return nil, s.lookupErr(err)
	}
	return run, nil
}

func (s *BacktestService) ListRuns(ctx context.Context, status model.RunStatus, limit int) ([]model.Run, error) {
	runs, err := s.dao.ListRuns(ctx, status, limit)
	if err != nil {
		return nil, errors.Wrap(err, ecode.Unknown, "list runs failed")
	}
	return runs, nil
}

// Top 运行完成后持久化的前 N 名
func (s *BacktestService) Top(ctx context.Context, runID string) ([]model.Performer, error) {
	status, err := s.dao.GetStatus(ctx, runID)
	if err != nil {
		return nil, s.lookupErr(err)
	}
	if status != model.RunCompleted {
		return nil, errors.WithCode(ecode.StateErr, fmt.Sprintf("run is %s", status))
	}
	top, err := s.dao.GetSummary(ctx, runID)
	if err != nil {
		return nil, s.lookupErr(err)
	}
	return top, nil
}

func (s *BacktestService) Result(ctx context.Context, runID string, botIndex int) (*model.FinalResult, error) {
	res, err := s.dao.GetResult(ctx, runID, botIndex)
	if err != nil {
		return nil, s.lookupErr(err)
	}
	return res, nil
}

func (s *BacktestService) Snapshots(ctx context.Context, runID string, botIndex, offset, limit int) ([]model.Snapshot, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	snaps, err := s.dao.ListSnapshots(ctx, runID, botIndex, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, ecode.Unknown, "list snapshots failed")
	}
	return snaps, nil
}

func (s *BacktestService) Errors(ctx context.Context, runID string) ([]entity.RunError, error) {
	list, err := s.dao.ListErrors(ctx, runID)
	if err != nil {
		return nil, errors.Wrap(err, ecode.Unknown, "list run errors failed")
	}
	return list, nil
}

// DeleteRun 只能删除已终止的运行
func (s *BacktestService) DeleteRun(ctx context.Context, runID string) error {
	status, err := s.dao.GetStatus(ctx, runID)
	if err != nil {
		return s.lookupErr(err)
	}
	if !status.Terminal() {
		return errors.WithCode(ecode.StateErr, fmt.Sprintf("run is %s", status))
	}
	if err := s.dao.DeleteRun(ctx, runID); err != nil {
		return s.lookupErr(err)
	}
	return nil
}

// ImportTicks 批量写入行情观测
func (s *BacktestService) ImportTicks(ctx context.Context, obs []model.PriceObservation) error {
	for i := range obs {
		obs[i].Symbol = utils.NormalizeSymbol(obs[i].Symbol)
		if obs[i].Symbol == "" || obs[i].Price <= 0 || obs[i].Timestamp.IsZero() {
			return errors.WithCode(ecode.ValidateErr, fmt.Sprintf("invalid observation at %d", i))
		}
	}
	if err := s.ticks.SaveTicks(ctx, obs); err != nil {
		return errors.Wrap(err, ecode.Unknown, "save ticks failed")
	}
	return nil
}

// ImportSentiment 批量写入舆情得分
func (s *BacktestService) ImportSentiment(ctx context.Context, pts []model.SentimentObservation) error {
	if s.sentiment == nil {
		return errors.WithCode(ecode.ValidateErr, "no sentiment source configured")
	}
	for i := range pts {
		pts[i].Symbol = utils.NormalizeSymbol(pts[i].Symbol)
		if err := validator.Struct(&pts[i]); err != nil {
			return errors.WithCode(ecode.ValidateErr, fmt.Sprintf("invalid sentiment at %d: %s", i, validator.FirstError(err)))
		}
	}
	if err := s.sentiment.SaveSentiment(ctx, pts); err != nil {
		return errors.Wrap(err, ecode.Unknown, "save sentiment failed")
	}
	return nil
}

func strategyName(name string) string {
	if name == "" {
		return strategy.DefaultName
	}
	return name
}

func (s *BacktestService) lookupErr(err error) error {
	if errors.Is(err, dao.ErrNotFound) {
		return errors.WithCode(ecode.NotFoundErr, "run not found")
	}
	return errors.Wrap(err, ecode.Unknown, "")
}
