package orchestrator

import (
	"context"
	"sync"
	"time"

	"gridflow/internal/model"
	"gridflow/pkg/kafka"
	"gridflow/pkg/logger"
)

// Dispatcher 把运行投递给后台执行者
type Dispatcher interface {
	Dispatch(ctx context.Context, runID string) error
}

// TaskMessage 任务队列中的消息体
type TaskMessage struct {
	RunID    string    `json:"run_id"`
	QueuedAt time.Time `json:"queued_at"`
}

// ProgressEvent 进度事件的消息体
type ProgressEvent struct {
	RunID    string            `json:"run_id"`
	Progress model.RunProgress `json:"progress"`
}

// KafkaDispatcher 通过任务 topic 投递，由 worker 进程消费执行
type KafkaDispatcher struct {
	producer kafka.ProducerService
	topic    string
}

func NewKafkaDispatcher(producer kafka.ProducerService, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, runID string) error {
	return d.producer.Produce(ctx, d.topic, []byte(runID), TaskMessage{RunID: runID, QueuedAt: time.Now().UTC()})
}

// KafkaProgressPublisher 进度事件写入 progress topic
type KafkaProgressPublisher struct {
	producer kafka.ProducerService
	topic    string
}

func NewKafkaProgressPublisher(producer kafka.ProducerService, topic string) *KafkaProgressPublisher {
	return &KafkaProgressPublisher{producer: producer, topic: topic}
}

func (p *KafkaProgressPublisher) PublishProgress(ctx context.Context, runID string, pr model.RunProgress) error {
	return p.producer.Produce(ctx, p.topic, []byte(runID), ProgressEvent{RunID: runID, Progress: pr})
}

// Launcher 优先投递到 Dispatcher，失败或未配置时在本进程的 worker 池中执行
type Launcher struct {
	orch       *Orchestrator
	dispatcher Dispatcher
	base       context.Context
	wg         sync.WaitGroup
}

// NewLauncher base 用于本地执行的运行，取消后正在执行的运行会在下一个批次边界挂起
func NewLauncher(base context.Context, orch *Orchestrator, d Dispatcher) *Launcher {
	return &Launcher{orch: orch, dispatcher: d, base: base}
}

// Launch 返回 true 表示已投递到队列，false 表示在本地执行
func (l *Launcher) Launch(ctx context.Context, runID string) bool {
	if l.dispatcher != nil {
		err := l.dispatcher.Dispatch(ctx, runID)
		if err == nil {
			logger.Info("run dispatched", logger.Pair("run_id", runID))
			return true
		}
		logger.Warn("dispatch failed, run locally", logger.Pair("run_id", runID), logger.Pair("err", err))
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.orch.Execute(l.base, runID); err != nil {
			logger.Error("local run finished with error", logger.Pair("run_id", runID), logger.Pair("err", err))
		}
	}()
	return false
}

// Wait 等待本地执行的运行全部退出
func (l *Launcher) Wait() {
	l.wg.Wait()
}
