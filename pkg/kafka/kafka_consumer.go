package kafka

import (
	"context"
	"time"

	"gridflow/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerService 消费指定 topic，消息处理完后由调用方提交
type ConsumerService interface {
	Consume(ctx context.Context, topic string, groupID string) (<-chan kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
	Close()
}

type kafkaConsumer struct {
	brokerURL string
	reader    *kafka.Reader
}

func NewKafkaConsumer(brokerURL string) ConsumerService {
	return &kafkaConsumer{brokerURL: brokerURL}
}

func (c *kafkaConsumer) Consume(ctx context.Context, topic string, groupID string) (<-chan kafka.Message, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{c.brokerURL},
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    1e6,
		StartOffset: kafka.FirstOffset, // 任务不能丢，新消费组从头开始
		MaxAttempts: 3,
	})
	c.reader = r
	// 任务执行时间长，缓冲很小，处理不过来时阻塞读取
	out := make(chan kafka.Message, 1)

	go func() {
		defer close(out)
		defer r.Close()
		for {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("kafka read error", logger.Pair("topic", topic), logger.Pair("err", err))
				time.Sleep(time.Second)
				continue
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Commit 提交已处理的消息
func (c *kafkaConsumer) Commit(ctx context.Context, msgs ...kafka.Message) error {
	if c.reader == nil {
		return nil
	}
	return c.reader.CommitMessages(ctx, msgs...)
}

func (c *kafkaConsumer) Close() {
	logger.Info("kafka consumer closing", logger.Pair("broker", c.brokerURL))
}
