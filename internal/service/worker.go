package service

import (
	"context"

	"gridflow/internal/orchestrator"
	"gridflow/pkg/kafka"
	"gridflow/pkg/logger"

	"github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"
)

// Executor 同步执行一次运行
type Executor interface {
	Execute(ctx context.Context, runID string) error
}

// TaskWorker 消费任务 topic，逐条同步执行运行后提交 offset
type TaskWorker struct {
	consumer kafka.ConsumerService
	exec     Executor
	topic    string
	groupID  string
}

func NewTaskWorker(consumer kafka.ConsumerService, exec Executor, topic, groupID string) *TaskWorker {
	return &TaskWorker{consumer: consumer, exec: exec, topic: topic, groupID: groupID}
}

// Run 阻塞直到 ctx 取消。ctx 取消时正在执行的运行在批次边界挂起为 paused，
// 其消息照常提交后退出循环，之后由 Resume 重新投递
func (w *TaskWorker) Run(ctx context.Context) error {
	msgs, err := w.consumer.Consume(ctx, w.topic, w.groupID)
	if err != nil {
		return err
	}
	logger.Info("task worker started", logger.Pair("topic", w.topic), logger.Pair("group", w.groupID))
	for msg := range msgs {
		var task orchestrator.TaskMessage
		if err := json.Unmarshal(msg.Value, &task); err != nil || task.RunID == "" {
			logger.Error("drop malformed task", logger.Pair("offset", msg.Offset), logger.Pair("err", err))
			w.commit(msg)
			continue
		}
		if err := w.exec.Execute(ctx, task.RunID); err != nil {
			logger.Error("run finished with error", logger.Pair("run_id", task.RunID), logger.Pair("err", err))
		}
		w.commit(msg)
		if ctx.Err() != nil {
			break
		}
	}
	logger.Info("task worker stopped", logger.Pair("topic", w.topic))
	return nil
}

func (w *TaskWorker) commit(msg kafkago.Message) {
	if err := w.consumer.Commit(context.Background(), msg); err != nil {
		logger.Warn("commit task failed", logger.Pair("offset", msg.Offset), logger.Pair("err", err))
	}
}
