package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gridflow/internal/dao"
	"gridflow/internal/model"
	"gridflow/internal/model/entity"
	"gridflow/utils/uuid"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 500

type backtestDao struct {
	db *gorm.DB
}

func NewBacktestDao(db *gorm.DB) dao.BacktestDao {
	return &backtestDao{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, dao.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func toRun(e *entity.BacktestRun) (*model.Run, error) {
	r := &model.Run{
		ID:        e.ID,
		Status:    model.RunStatus(e.Status),
		Error:     e.ErrorMessage,
		CreatedAt: e.CreatedAt,
	}
	if len(e.Spec) > 0 {
		if err := json.Unmarshal(e.Spec, &r.Spec); err != nil {
			return nil, fmt.Errorf("decode run spec %s: %w", e.ID, err)
		}
	}
	return r, nil
}

func (d *backtestDao) CreateRun(ctx context.Context, run *model.Run) error {
	spec, err := json.Marshal(run.Spec)
	if err != nil {
		return fmt.Errorf("encode run spec: %w", err)
	}
	e := entity.BacktestRun{
		ID:       run.ID,
		Name:     run.Spec.Name,
		Strategy: run.Spec.Strategy,
		Status:   string(run.Status),
		Spec:     datatypes.JSON(spec),
	}
	if err := d.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	run.CreatedAt = e.CreatedAt
	return nil
}

func (d *backtestDao) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var e entity.BacktestRun
	if err := d.db.WithContext(ctx).Where("id = ?", runID).First(&e).Error; err != nil {
		return nil, notFound(err, "get run "+runID)
	}
	return toRun(&e)
}

func (d *backtestDao) ListRuns(ctx context.Context, status model.RunStatus, limit int) ([]model.Run, error) {
	q := d.db.WithContext(ctx).Model(&entity.BacktestRun{}).Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []entity.BacktestRun
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]model.Run, 0, len(rows))
	for i := range rows {
		r, err := toRun(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (d *backtestDao) DeleteRun(ctx context.Context, runID string) error {
	res := d.db.WithContext(ctx).
		Where("id = ? AND status IN ?", runID, []string{string(model.RunCompleted), string(model.RunFailed), string(model.RunCancelled)}).
		Delete(&entity.BacktestRun{})
	if res.Error != nil {
		return fmt.Errorf("delete run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete run %s: %w", runID, dao.ErrNotFound)
	}
	return nil
}

func (d *backtestDao) GetStatus(ctx context.Context, runID string) (model.RunStatus, error) {
	var e entity.BacktestRun
	if err := d.db.WithContext(ctx).Select("id", "status").Where("id = ?", runID).First(&e).Error; err != nil {
		return "", notFound(err, "get run status "+runID)
	}
	return model.RunStatus(e.Status), nil
}

func (d *backtestDao) CompareAndSetStatus(ctx context.Context, runID string, to model.RunStatus, msg string, from ...model.RunStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	res := d.db.WithContext(ctx).Model(&entity.BacktestRun{}).
		Where("id = ? AND status IN ?", runID, allowed).
		Updates(map[string]any{"status": string(to), "error_message": msg})
	if res.Error != nil {
		return false, fmt.Errorf("set run status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (d *backtestDao) SaveProgress(ctx context.Context, runID string, p model.RunProgress) error {
	err := d.db.WithContext(ctx).Model(&entity.BacktestRun{}).Where("id = ?", runID).
		Updates(map[string]any{
			"total_bots":     p.TotalBots,
			"bots_completed": p.BotsCompleted,
			"bots_failed":    p.BotsFailed,
			"progress":       p.Progress,
			"eta_seconds":    p.ETA.Seconds(),
		}).Error
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (d *backtestDao) GetProgress(ctx context.Context, runID string) (*model.RunProgress, error) {
	var e entity.BacktestRun
	if err := d.db.WithContext(ctx).Where("id = ?", runID).First(&e).Error; err != nil {
		return nil, notFound(err, "get progress "+runID)
	}
	return &model.RunProgress{
		Status:        model.RunStatus(e.Status),
		TotalBots:     e.TotalBots,
		BotsCompleted: e.BotsCompleted,
		BotsFailed:    e.BotsFailed,
		Progress:      e.Progress,
		ETA:           time.Duration(e.EtaSeconds * float64(time.Second)),
		UpdatedAt:     e.UpdatedAt,
	}, nil
}

func (d *backtestDao) SaveConfigs(ctx context.Context, runID string, cfgs []model.BotConfig) error {
	rows := make([]entity.BotConfigRow, 0, len(cfgs))
	for _, c := range cfgs {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode bot config %d: %w", c.Index, err)
		}
		rows = append(rows, entity.BotConfigRow{ID: uuid.NextID(), RunID: runID, BotIndex: c.Index, Config: datatypes.JSON(data)})
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&entity.BotConfigRow{}).Error; err != nil {
			return fmt.Errorf("clear bot configs: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
			return fmt.Errorf("save bot configs: %w", err)
		}
		return nil
	})
}

func (d *backtestDao) LoadConfigs(ctx context.Context, runID string) ([]model.BotConfig, error) {
	var rows []entity.BotConfigRow
	if err := d.db.WithContext(ctx).Where("run_id = ?", runID).Order("bot_index").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load bot configs: %w", err)
	}
	out := make([]model.BotConfig, len(rows))
	for i, r := range rows {
		if err := json.Unmarshal(r.Config, &out[i]); err != nil {
			return nil, fmt.Errorf("decode bot config %d: %w", r.BotIndex, err)
		}
	}
	return out, nil
}

// SaveResult 结果与快照在同一个事务里写入，重复保存会覆盖
func (d *backtestDao) SaveResult(ctx context.Context, runID string, res model.FinalResult, snaps []model.Snapshot) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result %d: %w", res.BotIndex, err)
	}
	rows := make([]entity.BotSnapshot, 0, len(snaps))
	for _, s := range snaps {
		sd, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode snapshot %d/%d: %w", res.BotIndex, s.Step, err)
		}
		rows = append(rows, entity.BotSnapshot{
			ID:               uuid.NextID(),
			RunID:            runID,
			BotIndex:         res.BotIndex,
			Step:             s.Step,
			Timestamp:        s.Timestamp,
			TotalValue:       s.TotalValue,
			ProfitDelta:      s.ProfitDelta,
			CumulativeProfit: s.CumulativeProfit,
			Data:             datatypes.JSON(sd),
		})
	}
	row := entity.BotResult{
		ID:          uuid.NextID(),
		RunID:       runID,
		BotIndex:    res.BotIndex,
		TotalProfit: res.TotalProfit,
		WinRate:     res.WinRate,
		TotalTrades: res.TotalTrades,
		Result:      datatypes.JSON(data),
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "bot_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_profit", "win_rate", "total_trades", "result"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("save result %d: %w", res.BotIndex, err)
		}
		if err := tx.Where("run_id = ? AND bot_index = ?", runID, res.BotIndex).Delete(&entity.BotSnapshot{}).Error; err != nil {
			return fmt.Errorf("clear snapshots %d: %w", res.BotIndex, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
			return fmt.Errorf("save snapshots %d: %w", res.BotIndex, err)
		}
		return nil
	})
}

func decodeResult(r entity.BotResult) (model.FinalResult, error) {
	var out model.FinalResult
	if err := json.Unmarshal(r.Result, &out); err != nil {
		return out, fmt.Errorf("decode result %d: %w", r.BotIndex, err)
	}
	return out, nil
}

func (d *backtestDao) LoadResults(ctx context.Context, runID string) ([]model.FinalResult, error) {
	var rows []entity.BotResult
	if err := d.db.WithContext(ctx).Where("run_id = ?", runID).Order("bot_index").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	out := make([]model.FinalResult, 0, len(rows))
	for _, r := range rows {
		res, err := decodeResult(r)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (d *backtestDao) GetResult(ctx context.Context, runID string, botIndex int) (*model.FinalResult, error) {
	var row entity.BotResult
	if err := d.db.WithContext(ctx).Where("run_id = ? AND bot_index = ?", runID, botIndex).First(&row).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("get result %s/%d", runID, botIndex))
	}
	res, err := decodeResult(row)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (d *backtestDao) ListSnapshots(ctx context.Context, runID string, botIndex, offset, limit int) ([]model.Snapshot, error) {
	q := d.db.WithContext(ctx).Where("run_id = ? AND bot_index = ?", runID, botIndex).Order("step").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []entity.BotSnapshot
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]model.Snapshot, len(rows))
	for i, r := range rows {
		if err := json.Unmarshal(r.Data, &out[i]); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", r.Step, err)
		}
	}
	return out, nil
}

func (d *backtestDao) AppendError(ctx context.Context, runID string, botIndex int, msg string) error {
	e := entity.RunError{ID: uuid.NextID(), RunID: runID, BotIndex: botIndex, Message: msg}
	if err := d.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("append run error: %w", err)
	}
	return nil
}

func (d *backtestDao) ListErrors(ctx context.Context, runID string) ([]entity.RunError, error) {
	var rows []entity.RunError
	if err := d.db.WithContext(ctx).Where("run_id = ?", runID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list run errors: %w", err)
	}
	return rows, nil
}

func (d *backtestDao) SaveSummary(ctx context.Context, runID string, top []model.Performer) error {
	data, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	err = d.db.WithContext(ctx).Model(&entity.BacktestRun{}).Where("id = ?", runID).
		Update("summary", datatypes.JSON(data)).Error
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (d *backtestDao) GetSummary(ctx context.Context, runID string) ([]model.Performer, error) {
	var e entity.BacktestRun
	if err := d.db.WithContext(ctx).Select("id", "summary").Where("id = ?", runID).First(&e).Error; err != nil {
		return nil, notFound(err, "get summary "+runID)
	}
	var top []model.Performer
	if len(e.Summary) == 0 {
		return top, nil
	}
	if err := json.Unmarshal(e.Summary, &top); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return top, nil
}
