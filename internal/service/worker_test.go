package service

import (
	"context"
	"sync"
	"testing"

	"gridflow/internal/model"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanConsumer struct {
	ch        chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func (c *chanConsumer) Consume(context.Context, string, string) (<-chan kafka.Message, error) {
	return c.ch, nil
}

func (c *chanConsumer) Commit(_ context.Context, msgs ...kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		c.committed = append(c.committed, m.Offset)
	}
	return nil
}

func (c *chanConsumer) Close() {}

type recordExec struct{ runs []string }

func (r *recordExec) Execute(_ context.Context, runID string) error {
	r.runs = append(r.runs, runID)
	return nil
}

func TestTaskWorkerExecutesAndCommits(t *testing.T) {
	c := &chanConsumer{ch: make(chan kafka.Message, 3)}
	c.ch <- kafka.Message{Offset: 1, Value: []byte(`{"run_id":"r1","queued_at":"2024-06-03T14:30:00Z"}`)}
	c.ch <- kafka.Message{Offset: 2, Value: []byte(`not json`)}
	c.ch <- kafka.Message{Offset: 3, Value: []byte(`{"run_id":"r2"}`)}
	close(c.ch)

	exec := &recordExec{}
	w := NewTaskWorker(c, exec, "backtest_tasks", "g")
	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, []string{"r1", "r2"}, exec.runs)
	// 格式错误的消息也提交，避免反复投递
	assert.Equal(t, []int64{1, 2, 3}, c.committed)
}

// cancelExec 模拟执行途中进程收到退出信号
type cancelExec struct {
	cancel context.CancelFunc
	runs   []string
}

func (e *cancelExec) Execute(ctx context.Context, runID string) error {
	e.runs = append(e.runs, runID)
	e.cancel()
	return ctx.Err()
}

func TestTaskWorkerCommitsInterruptedRun(t *testing.T) {
	c := &chanConsumer{ch: make(chan kafka.Message, 2)}
	c.ch <- kafka.Message{Offset: 7, Value: []byte(`{"run_id":"r1"}`)}
	c.ch <- kafka.Message{Offset: 8, Value: []byte(`{"run_id":"r2"}`)}

	ctx, cancel := context.WithCancel(context.Background())
	exec := &cancelExec{cancel: cancel}
	w := NewTaskWorker(c, exec, "backtest_tasks", "g")
	require.NoError(t, w.Run(ctx))

	// 被中断的运行已是 paused，消息提交后不会被重复执行
	assert.Equal(t, []string{"r1"}, exec.runs)
	assert.Equal(t, []int64{7}, c.committed)
}

func TestResumeAfterInterruptDispatchesAgain(t *testing.T) {
	d := &okDispatcher{}
	s, _ := newService(t, d, 0)
	ctx := context.Background()
	run, _, err := s.CreateRun(ctx, spec())
	require.NoError(t, err)
	ok, err := s.dao.CompareAndSetStatus(ctx, run.ID, model.RunPaused, "interrupted", model.RunPending)
	require.NoError(t, err)
	require.True(t, ok)

	queued, err := s.Resume(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Contains(t, d.runs, run.ID)
}
