package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gridflow/internal/aggregator"
	"gridflow/internal/executor"
	"gridflow/internal/explorer"
	"gridflow/internal/model"
	"gridflow/internal/strategy"
	"gridflow/pkg/logger"
	"gridflow/pkg/metrics"

	lru "github.com/hashicorp/golang-lru"
)

// Store 运行、配置、结果的持久化
type Store interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	GetStatus(ctx context.Context, runID string) (model.RunStatus, error)
	// CompareAndSetStatus 仅当当前状态属于 from 时更新
	CompareAndSetStatus(ctx context.Context, runID string, to model.RunStatus, msg string, from ...model.RunStatus) (bool, error)
	SaveProgress(ctx context.Context, runID string, p model.RunProgress) error
	SaveConfigs(ctx context.Context, runID string, cfgs []model.BotConfig) error
	LoadConfigs(ctx context.Context, runID string) ([]model.BotConfig, error)
	SaveResult(ctx context.Context, runID string, res model.FinalResult, snaps []model.Snapshot) error
	LoadResults(ctx context.Context, runID string) ([]model.FinalResult, error)
	AppendError(ctx context.Context, runID string, botIndex int, msg string) error
	SaveSummary(ctx context.Context, runID string, top []model.Performer) error
}

// PriceSource 按时间再按 symbol 排好序的行情观测
type PriceSource interface {
	Observations(ctx context.Context, symbols []string, from, to time.Time) ([]model.PriceObservation, error)
}

// SnapshotSink 快照流旁路输出，例如落盘
type SnapshotSink interface {
	Record(runID string, botIndex int, snaps []model.Snapshot) error
}

// ProgressPublisher 进度事件推送
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, runID string, p model.RunProgress) error
}

type Options struct {
	BatchSize    int
	Workers      int
	TopN         int
	InitialFund  float64 // 运行未指定时使用
	Precision    int32
	CandlePeriod time.Duration
	ETAMargin    float64
	Thresholds   map[string]map[string]float64 // 全局默认阈值，运行级配置可覆盖
	// ControlCacheSize 内存中保留的 RunControl 个数，超出后淘汰最久未访问的
	ControlCacheSize int
	// SentimentMaxAge 舆情数据的最大有效期，0 表示不限
	SentimentMaxAge time.Duration
}

type Option func(*Orchestrator)

func WithSnapshotSink(s SnapshotSink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

func WithProgressPublisher(p ProgressPublisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithSentimentLoader(l SentimentLoader) Option {
	return func(o *Orchestrator) { o.sentiment = l }
}

type Orchestrator struct {
	store     Store
	prices    PriceSource
	opts      Options
	sink      SnapshotSink
	publisher ProgressPublisher
	sentiment SentimentLoader

	controls *lru.Cache // runID -> *RunControl
}

func New(store Store, prices PriceSource, opts Options, extra ...Option) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.ControlCacheSize <= 0 {
		opts.ControlCacheSize = 256
	}
	controls, _ := lru.New(opts.ControlCacheSize)
	o := &Orchestrator{
		store:    store,
		prices:   prices,
		opts:     opts,
		controls: controls,
	}
	for _, fn := range extra {
		fn(o)
	}
	return o
}

// Control 返回正在执行或最近执行过的运行的进度
func (o *Orchestrator) Control(runID string) (*RunControl, bool) {
	v, ok := o.controls.Get(runID)
	if !ok {
		return nil, false
	}
	return v.(*RunControl), true
}

func (o *Orchestrator) setControl(runID string, c *RunControl) {
	o.controls.Add(runID, c)
}

// outcome 一个配置的回放结果
type outcome struct {
	cfg    *model.BotConfig
	result model.FinalResult
	snaps  []model.Snapshot
	dur    time.Duration
	err    error
}

// Execute 同步执行一次运行。调用前运行状态应已被置为 running；
// 恢复执行时复用已保存的配置并跳过已有结果的配置。
// 执行过程中的 panic 会把运行置为 failed
func (o *Orchestrator) Execute(ctx context.Context, runID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ctl, _ := o.Control(runID)
			err = o.fail(ctx, runID, ctl, fmt.Errorf("execute panic: %v", r))
		}
	}()
	return o.execute(ctx, runID)
}

func (o *Orchestrator) execute(ctx context.Context, runID string) error {
	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Status != model.RunRunning {
		logger.Info("run is not running, skip", logger.Pair("run_id", runID), logger.Pair("status", run.Status))
		return nil
	}
	spec := run.Spec

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	cfgs, err := o.configs(ctx, runID, spec)
	if err != nil {
		return o.fail(ctx, runID, nil, err)
	}

	obs, err := o.prices.Observations(ctx, spec.StockUniverse, spec.HistoryStart, spec.ExecutionEnd)
	if err != nil {
		return o.fail(ctx, runID, nil, fmt.Errorf("load observations: %w", err))
	}
	history, execution := Split(obs, spec.ExecutionStart, spec.ExecutionEnd)
	if len(execution) == 0 {
		return o.fail(ctx, runID, nil, ErrNoExecutionData)
	}
	obs = append(history, execution...)

	factory, err := strategy.ForRun(spec.Strategy, mergeThresholds(o.opts.Thresholds, spec.Thresholds))
	if err != nil {
		return o.fail(ctx, runID, nil, err)
	}
	factory, err = o.withSentiment(ctx, spec, factory)
	if err != nil {
		return o.fail(ctx, runID, nil, err)
	}

	prior, err := o.store.LoadResults(ctx, runID)
	if err != nil {
		return o.fail(ctx, runID, nil, fmt.Errorf("load results: %w", err))
	}
	done := make(map[int]bool, len(prior))
	for _, r := range prior {
		done[r.BotIndex] = true
	}

	ctl := NewRunControl(len(cfgs), o.opts.ETAMargin)
	ctl.Update(func(s *ControlState) {
		s.Status = model.RunRunning
		s.Completed = len(done)
	})
	o.setControl(runID, ctl)

	var pending []*model.BotConfig
	for i := range cfgs {
		if !done[cfgs[i].Index] {
			pending = append(pending, &cfgs[i])
		}
	}

	logger.Info("run started",
		logger.Pair("run_id", runID),
		logger.Pair("configs", len(cfgs)),
		logger.Pair("pending", len(pending)),
		logger.Pair("history_obs", len(history)),
		logger.Pair("execution_obs", len(execution)))

	for start := 0; start < len(pending); start += o.opts.BatchSize {
		if stop, err := o.stopRequested(ctx, runID, ctl); stop {
			return err
		}
		end := min(start+o.opts.BatchSize, len(pending))
		outs := o.runBatch(pending[start:end], obs, spec, factory)

		// 批次执行期间状态被改变，整批丢弃
		if stop, err := o.stopRequested(ctx, runID, ctl); stop {
			metrics.BatchesDiscarded.Inc()
			logger.Info("batch discarded", logger.Pair("run_id", runID), logger.Pair("batch_start", start))
			return err
		}
		o.collect(ctx, runID, ctl, outs)
	}

	results, err := o.store.LoadResults(ctx, runID)
	if err != nil {
		return o.fail(ctx, runID, ctl, fmt.Errorf("load results: %w", err))
	}
	if err := o.store.SaveSummary(ctx, runID, aggregator.TopN(results, o.opts.TopN)); err != nil {
		return o.fail(ctx, runID, ctl, fmt.Errorf("save summary: %w", err))
	}
	ok, err := o.store.CompareAndSetStatus(context.WithoutCancel(ctx), runID, model.RunCompleted, "", model.RunRunning)
	if err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	if !ok {
		// 最后一次边界检查之后状态被改变，以存储中的状态为准
		status, err := o.store.GetStatus(context.WithoutCancel(ctx), runID)
		if err != nil {
			return fmt.Errorf("read run status: %w", err)
		}
		o.halt(ctx, runID, ctl, status)
		return nil
	}
	ctl.Update(func(s *ControlState) { s.Status = model.RunCompleted })
	o.report(ctx, runID, ctl)
	metrics.RunsFinished.WithLabelValues(string(model.RunCompleted)).Inc()
	logger.Info("run completed",
		logger.Pair("run_id", runID),
		logger.Pair("results", len(results)),
		logger.Pair("errors", len(ctl.Errors())))
	return nil
}

// configs 恢复时复用已保存的配置，否则重新生成并保存
func (o *Orchestrator) configs(ctx context.Context, runID string, spec model.RunSpec) ([]model.BotConfig, error) {
	cfgs, err := o.store.LoadConfigs(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load configs: %w", err)
	}
	if len(cfgs) > 0 {
		return cfgs, nil
	}
	cfgs, err = explorer.Generate(explorer.ParseRanges(spec.Ranges), spec.StockUniverse, spec.SocialFlags, spec.NewsFlags)
	if err != nil {
		return nil, fmt.Errorf("generate configs: %w", err)
	}
	if err := o.store.SaveConfigs(ctx, runID, cfgs); err != nil {
		return nil, fmt.Errorf("save configs: %w", err)
	}
	return cfgs, nil
}

// stopRequested 读取持久化状态与 ctx，判断是否需要在批次边界停下
func (o *Orchestrator) stopRequested(ctx context.Context, runID string, ctl *RunControl) (bool, error) {
	if err := ctx.Err(); err != nil {
		// 进程退出时把运行挂起，之后可以恢复；已被暂停或取消的保持原状态
		bg := context.WithoutCancel(ctx)
		ok, uerr := o.store.CompareAndSetStatus(bg, runID, model.RunPaused, "interrupted", model.RunRunning)
		switch {
		case uerr != nil:
			logger.Error("pause interrupted run failed", logger.Pair("run_id", runID), logger.Pair("err", uerr))
		case ok:
			ctl.Update(func(s *ControlState) { s.Status = model.RunPaused })
		default:
			if status, serr := o.store.GetStatus(bg, runID); serr == nil {
				ctl.Update(func(s *ControlState) { s.Status = status })
			}
		}
		return true, err
	}
	status, err := o.store.GetStatus(ctx, runID)
	if err != nil {
		return true, fmt.Errorf("read run status: %w", err)
	}
	if status == model.RunRunning {
		return false, nil
	}
	o.halt(ctx, runID, ctl, status)
	return true, nil
}

// halt 运行被外部置为非 running 状态后收尾
func (o *Orchestrator) halt(ctx context.Context, runID string, ctl *RunControl, status model.RunStatus) {
	ctl.Update(func(s *ControlState) { s.Status = status })
	o.report(ctx, runID, ctl)
	metrics.RunsFinished.WithLabelValues(string(status)).Inc()
	logger.Info("run stopped at batch boundary", logger.Pair("run_id", runID), logger.Pair("status", status))
}

// runBatch 有界并发执行一批配置，等待全部完成
func (o *Orchestrator) runBatch(batch []*model.BotConfig, obs []model.PriceObservation, spec model.RunSpec, factory strategy.Factory) []outcome {
	outs := make([]outcome, len(batch))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, o.opts.Workers)
	for i, cfg := range batch {
		wg.Add(1)
		go func(i int, cfg *model.BotConfig) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			outs[i] = o.runOne(cfg, obs, spec, factory)
		}(i, cfg)
	}
	wg.Wait()
	return outs
}

func (o *Orchestrator) runOne(cfg *model.BotConfig, obs []model.PriceObservation, spec model.RunSpec, factory strategy.Factory) (out outcome) {
	out.cfg = cfg
	began := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("replay panic: %v", r)
		}
		out.dur = time.Since(began)
		metrics.BotDuration.Observe(out.dur.Seconds())
	}()

	cb, err := factory.New(cfg)
	if err != nil {
		out.err = fmt.Errorf("build strategy: %w", err)
		return out
	}
	fund := spec.InitialFund
	if fund <= 0 {
		fund = o.opts.InitialFund
	}
	mode := spec.Mode
	if mode == "" {
		mode = model.ModeContinuous
	}
	ex := executor.New(cfg, obs, fund, cb,
		executor.WithMode(mode),
		executor.WithStep(spec.Step),
		executor.WithAnalysisOnly(spec.AnalysisOnly),
		executor.WithCandlePeriod(o.opts.CandlePeriod),
	)
	res, err := ex.Replay(spec.ExecutionStart, spec.ExecutionEnd)
	if err != nil {
		out.err = err
		return out
	}
	out.snaps = res.Snapshots
	out.result = aggregator.Aggregate(cfg.Index, res.Snapshots, res.Trades, res.FinalCash, res.FinalValue, aggregator.Options{
		InitialFund: fund,
		Mode:        mode,
		Precision:   o.opts.Precision,
	})
	return out
}

// collect 保存一批的结果并更新进度
func (o *Orchestrator) collect(ctx context.Context, runID string, ctl *RunControl, outs []outcome) {
	for _, out := range outs {
		err := out.err
		if err == nil {
			err = o.store.SaveResult(ctx, runID, out.result, out.snaps)
		}
		if err == nil && o.sink != nil {
			if serr := o.sink.Record(runID, out.cfg.Index, out.snaps); serr != nil {
				logger.Warn("record snapshots failed", logger.Pair("run_id", runID), logger.Pair("bot", out.cfg.Index), logger.Pair("err", serr))
			}
		}
		if err != nil {
			logger.Error("bot failed", logger.Pair("run_id", runID), logger.Pair("bot", out.cfg.Index), logger.Pair("err", err))
			metrics.BotsProcessed.WithLabelValues("failed").Inc()
			if aerr := o.store.AppendError(ctx, runID, out.cfg.Index, err.Error()); aerr != nil {
				logger.Error("append run error failed", logger.Pair("run_id", runID), logger.Pair("err", aerr))
			}
			ctl.Update(func(s *ControlState) {
				s.Failed++
				s.AppendError(out.cfg.Index, err)
			})
			continue
		}
		metrics.BotsProcessed.WithLabelValues("completed").Inc()
		ctl.Update(func(s *ControlState) {
			s.Completed++
			s.RecordDuration(out.dur)
		})
	}
	o.report(ctx, runID, ctl)
}

// report 保存并推送当前进度，失败只记日志
func (o *Orchestrator) report(ctx context.Context, runID string, ctl *RunControl) {
	ctx = context.WithoutCancel(ctx)
	p := ctl.Progress()
	if err := o.store.SaveProgress(ctx, runID, p); err != nil {
		logger.Warn("save progress failed", logger.Pair("run_id", runID), logger.Pair("err", err))
	}
	if o.publisher != nil {
		if err := o.publisher.PublishProgress(ctx, runID, p); err != nil {
			logger.Warn("publish progress failed", logger.Pair("run_id", runID), logger.Pair("err", err))
		}
	}
}

// fail 运行级错误：仍在 running 时置为 failed 并记录原因
func (o *Orchestrator) fail(ctx context.Context, runID string, ctl *RunControl, cause error) error {
	logger.Error("run failed", logger.Pair("run_id", runID), logger.Pair("err", cause))
	ok, err := o.store.CompareAndSetStatus(context.WithoutCancel(ctx), runID, model.RunFailed, cause.Error(), model.RunRunning)
	if err != nil {
		return errors.Join(cause, err)
	}
	if !ok {
		logger.Warn("run is no longer running, keep its status", logger.Pair("run_id", runID))
		return cause
	}
	if ctl != nil {
		ctl.Update(func(s *ControlState) { s.Status = model.RunFailed })
	}
	metrics.RunsFinished.WithLabelValues(string(model.RunFailed)).Inc()
	return cause
}

// mergeThresholds 运行级阈值覆盖全局默认值
func mergeThresholds(base, over map[string]map[string]float64) map[string]map[string]float64 {
	if len(base) == 0 {
		return over
	}
	out := make(map[string]map[string]float64, len(base)+len(over))
	for kind, kv := range base {
		m := make(map[string]float64, len(kv))
		for k, v := range kv {
			m[k] = v
		}
		out[kind] = m
	}
	for kind, kv := range over {
		if out[kind] == nil {
			out[kind] = make(map[string]float64, len(kv))
		}
		for k, v := range kv {
			out[kind][k] = v
		}
	}
	return out
}
