package kafka

import (
	"context"
	"fmt"
	"sync"

	"gridflow/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// ProducerService Kafka 生产者，消息体统一用 JSON 编码
type ProducerService interface {
	Produce(ctx context.Context, topic string, key []byte, payload any) error
	Close()
}

type kafkaProducer struct {
	brokerURL string
	mu        sync.Mutex
	writers   map[string]*kafka.Writer // topic -> writer，按需创建
}

func NewKafkaProducer(brokerURL string) ProducerService {
	return &kafkaProducer{
		brokerURL: brokerURL,
		writers:   make(map[string]*kafka.Writer),
	}
}

func (p *kafkaProducer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.writers[topic]
	if !ok {
		w = &kafka.Writer{
			Addr:                   kafka.TCP(p.brokerURL),
			Topic:                  topic,
			Balancer:               &kafka.Hash{}, // 同一个 key 进入同一个 partition，保证单个运行的事件有序
			AllowAutoTopicCreation: true,
		}
		p.writers[topic] = w
	}
	return w
}

// Produce 序列化 payload 并写入指定 topic
func (p *kafkaProducer) Produce(ctx context.Context, topic string, key []byte, payload any) error {
	if topic == "" {
		return fmt.Errorf("kafka: empty topic")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka: marshal payload: %w", err)
	}
	return p.writer(topic).WriteMessages(ctx, kafka.Message{Key: key, Value: data})
}

func (p *kafkaProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			logger.Warn("close kafka writer failed", logger.Pair("topic", topic), logger.Pair("err", err))
		}
	}
	p.writers = make(map[string]*kafka.Writer)
}
