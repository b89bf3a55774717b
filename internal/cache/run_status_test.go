package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"gridflow/internal/dao"
	"gridflow/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusDao 只实现状态相关方法，其它方法不会被调用
type statusDao struct {
	dao.BacktestDao
	status   model.RunStatus
	progress model.RunProgress
	// onGet 读出状态之后、返回之前调用一次，用来模拟并发写入
	onGet func()
}

func (d *statusDao) GetStatus(context.Context, string) (model.RunStatus, error) {
	st := d.status
	if f := d.onGet; f != nil {
		d.onGet = nil
		f()
	}
	return st, nil
}

func (d *statusDao) CompareAndSetStatus(_ context.Context, _ string, to model.RunStatus, _ string, from ...model.RunStatus) (bool, error) {
	if !slices.Contains(from, d.status) {
		return false, nil
	}
	d.status = to
	return true, nil
}

func (d *statusDao) SaveProgress(_ context.Context, _ string, p model.RunProgress) error {
	d.progress = p
	return nil
}

func (d *statusDao) GetProgress(context.Context, string) (*model.RunProgress, error) {
	p := d.progress
	return &p, nil
}

// memHook 在 hook 里直接应答 GET / SET / SET NX，不建立连接
type memHook struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemClient() (*redis.Client, *memHook) {
	h := &memHook{data: make(map[string]string)}
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	rc.AddHook(h)
	return rc, h
}

func (h *memHook) get(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.data[key]
	return v, ok
}

func (h *memHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *memHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *memHook) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		args := cmd.Args()
		key := fmt.Sprint(args[1])
		switch c := cmd.(type) {
		case *redis.StringCmd:
			v, ok := h.data[key]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		case *redis.BoolCmd:
			if _, ok := h.data[key]; ok {
				c.SetVal(false)
				return nil
			}
			h.data[key] = fmt.Sprint(args[2])
			c.SetVal(true)
		case *redis.StatusCmd:
			h.data[key] = fmt.Sprint(args[2])
			c.SetVal("OK")
		}
		return nil
	}
}

func TestRunStoreWithoutRedis(t *testing.T) {
	ctx := context.Background()
	d := &statusDao{status: model.RunRunning}
	s := NewRunStore(d, nil)

	got, err := s.GetStatus(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, model.RunRunning, got)

	ok, err := s.CompareAndSetStatus(ctx, "r", model.RunPaused, "", model.RunRunning)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = s.GetStatus(ctx, "r")
	assert.Equal(t, model.RunPaused, got)

	require.NoError(t, s.SaveProgress(ctx, "r", model.RunProgress{BotsCompleted: 3}))
	p, err := s.GetProgress(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 3, p.BotsCompleted)
}

func TestRunStoreFallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rc.Close()
	d := &statusDao{status: model.RunPaused}
	s := NewRunStore(d, rc)

	got, err := s.GetStatus(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, model.RunPaused, got)
	ok, err := s.CompareAndSetStatus(ctx, "r", model.RunRunning, "", model.RunPaused)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.RunRunning, d.status)
}

func TestRunStoreWritesThrough(t *testing.T) {
	ctx := context.Background()
	rc, h := newMemClient()
	d := &statusDao{status: model.RunRunning}
	s := NewRunStore(d, rc)

	ok, err := s.CompareAndSetStatus(ctx, "r", model.RunCancelled, "", model.RunRunning)
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := h.get(statusKey("r"))
	assert.Equal(t, string(model.RunCancelled), v)

	// CAS 失败不改缓存
	ok, err = s.CompareAndSetStatus(ctx, "r", model.RunCompleted, "", model.RunRunning)
	require.NoError(t, err)
	assert.False(t, ok)
	got, err := s.GetStatus(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, model.RunCancelled, got)
}

func TestStatusBackfillKeepsNewerWrite(t *testing.T) {
	ctx := context.Background()
	rc, h := newMemClient()
	d := &statusDao{status: model.RunRunning}
	s := NewRunStore(d, rc)

	// 读库之后、回填之前另一个请求把运行暂停
	d.onGet = func() {
		ok, err := s.CompareAndSetStatus(ctx, "r", model.RunPaused, "", model.RunRunning)
		require.NoError(t, err)
		require.True(t, ok)
	}
	got, err := s.GetStatus(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, model.RunRunning, got)

	v, _ := h.get(statusKey("r"))
	assert.Equal(t, string(model.RunPaused), v)
	got, err = s.GetStatus(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, model.RunPaused, got)
}
