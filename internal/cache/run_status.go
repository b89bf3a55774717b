package cache

import (
	"context"
	"errors"
	"time"

	"gridflow/internal/consts"
	"gridflow/internal/dao"
	"gridflow/internal/model"
	"gridflow/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RunStore 在 BacktestDao 外面加一层 redis 状态缓存。
// orchestrator 每个批次都会读状态，暂停/取消由任意实例写入后立即可见
type RunStore struct {
	dao.BacktestDao
	rc  *redis.Client
	ttl time.Duration
}

// NewRunStore rc 为 nil 时直接读写数据库
func NewRunStore(d dao.BacktestDao, rc *redis.Client) *RunStore {
	return &RunStore{BacktestDao: d, rc: rc, ttl: consts.RedisExrDefault}
}

func statusKey(runID string) string {
	return consts.RunStatusPrefix + runID
}

func progressKey(runID string) string {
	return consts.RunProgressPrefix + runID
}

// GetStatus 缓存缺失时读数据库并回填。回填用 SETNX，
// 读库与回填之间其它实例写入的新状态不会被旧值覆盖
func (s *RunStore) GetStatus(ctx context.Context, runID string) (model.RunStatus, error) {
	if s.rc != nil {
		v, err := s.rc.Get(ctx, statusKey(runID)).Result()
		if err == nil {
			return model.RunStatus(v), nil
		}
		if !errors.Is(err, redis.Nil) {
			logger.Warn("read run status from redis failed", logger.Pair("run_id", runID), logger.Pair("err", err))
		}
	}
	status, err := s.BacktestDao.GetStatus(ctx, runID)
	if err != nil {
		return "", err
	}
	s.fillStatus(ctx, runID, status)
	return status, nil
}

func (s *RunStore) CompareAndSetStatus(ctx context.Context, runID string, to model.RunStatus, msg string, from ...model.RunStatus) (bool, error) {
	ok, err := s.BacktestDao.CompareAndSetStatus(ctx, runID, to, msg, from...)
	if err != nil || !ok {
		return ok, err
	}
	s.setStatus(ctx, runID, to)
	return true, nil
}

func (s *RunStore) SaveProgress(ctx context.Context, runID string, p model.RunProgress) error {
	if err := s.BacktestDao.SaveProgress(ctx, runID, p); err != nil {
		return err
	}
	if s.rc == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.rc.Set(ctx, progressKey(runID), data, s.ttl).Err(); err != nil {
		logger.Warn("cache run progress failed", logger.Pair("run_id", runID), logger.Pair("err", err))
	}
	return nil
}

// GetProgress 优先读缓存里最新的进度，缓存缺失时回落到数据库
func (s *RunStore) GetProgress(ctx context.Context, runID string) (*model.RunProgress, error) {
	if s.rc != nil {
		data, err := s.rc.Get(ctx, progressKey(runID)).Bytes()
		if err == nil {
			var p model.RunProgress
			if jerr := json.Unmarshal(data, &p); jerr == nil {
				if status, serr := s.GetStatus(ctx, runID); serr == nil {
					p.Status = status
				}
				return &p, nil
			}
		}
	}
	return s.BacktestDao.GetProgress(ctx, runID)
}

func (s *RunStore) setStatus(ctx context.Context, runID string, status model.RunStatus) {
	if s.rc == nil {
		return
	}
	if err := s.rc.Set(ctx, statusKey(runID), string(status), s.ttl).Err(); err != nil {
		logger.Warn("cache run status failed", logger.Pair("run_id", runID), logger.Pair("err", err))
	}
}

func (s *RunStore) fillStatus(ctx context.Context, runID string, status model.RunStatus) {
	if s.rc == nil {
		return
	}
	if err := s.rc.SetNX(ctx, statusKey(runID), string(status), s.ttl).Err(); err != nil {
		logger.Warn("cache run status failed", logger.Pair("run_id", runID), logger.Pair("err", err))
	}
}
