// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"ent-messaging-go/internal/config"
	"ent-messaging-go/pkg/log"
	"ent-messaging-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单条任务处理失败后允许的最大尝试次数，超过后提交 offset 放弃。
const maxAttempts = 3

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.MessageIndexTask) error
}

// Producer 发布消息索引任务。
type Producer interface {
	ProduceMessageTask(ctx context.Context, task tasks.MessageIndexTask) error
	Close() error
}

type writerProducer struct {
	writer *kafka.Writer
}

// NewProducer 创建 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(cfg.Brokers)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
	return &writerProducer{writer: w}
}

// ProduceMessageTask 以会话 ID 作为 key 发送任务，同一会话的任务落在同一分区。
func (p *writerProducer) ProduceMessageTask(ctx context.Context, task tasks.MessageIndexTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(conversationKey(task.ConversationID)),
		Value: taskBytes,
	})
}

func (p *writerProducer) Close() error {
	return p.writer.Close()
}

// DirectProducer 在未启用 Kafka 时直接同步调用处理器；Processor 为 nil 时丢弃任务。
type DirectProducer struct {
	Processor TaskProcessor
}

func (p DirectProducer) ProduceMessageTask(ctx context.Context, task tasks.MessageIndexTask) error {
	if p.Processor == nil {
		return nil
	}
	return p.Processor.Process(ctx, task)
}

func (DirectProducer) Close() error { return nil }

// StartConsumer 启动一个 Kafka 消费者来处理消息索引任务，ctx 取消后退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	c := newConsumer(processor)
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}
		if c.handle(ctx, m.Value) {
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

// consumer 对每条任务在进程内重试，最多 maxAttempts 次。
type consumer struct {
	processor TaskProcessor
	backoff   time.Duration
}

func newConsumer(processor TaskProcessor) *consumer {
	return &consumer{processor: processor, backoff: time.Second}
}

// handle 处理一条原始消息并返回是否应提交 offset。
// 只有 ctx 被取消导致未完成时返回 false，下次启动从该 offset 继续。
func (c *consumer) handle(ctx context.Context, value []byte) bool {
	var task tasks.MessageIndexTask
	if err := json.Unmarshal(value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		// 消息格式错误，直接提交，避免阻塞队列
		return true
	}

	for attempt := 1; ; attempt++ {
		err := c.processor.Process(ctx, task)
		if err == nil {
			return true
		}
		log.Errorf("处理消息索引任务失败: message_id=%d, attempt=%d, error: %v", task.MessageID, attempt, err)
		if attempt >= maxAttempts {
			log.Errorf("消息索引任务多次失败(>=%d)，提交 offset 终止重试: message_id=%d", maxAttempts, task.MessageID)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func conversationKey(id uint) string {
	return "conversation-" + strconv.FormatUint(uint64(id), 10)
}
