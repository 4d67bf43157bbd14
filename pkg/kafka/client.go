// Package kafka 提供了通过 Kafka 传递聊天分析事件的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"portfolio-assistant/internal/config"
	"portfolio-assistant/pkg/log"
	"portfolio-assistant/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// EventProcessor defines the interface for any service that can apply an analytics event.
// This decouples the Kafka consumer from the concrete analytics implementation.
type EventProcessor interface {
	Apply(ctx context.Context, event tasks.AnalyticsEvent) error
}

// Producer 将分析事件写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// Publish 发送一个分析事件到 Kafka。以访客 ID 作为消息 key，保证同一访客的事件有序。
func (p *Producer) Publish(ctx context.Context, event tasks.AnalyticsEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.VisitorID),
		Value: payload,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// StartConsumer 启动一个 Kafka 消费者来处理分析事件，ctx 取消时退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor EventProcessor) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("从 Kafka 读取消息失败: %w", err)
		}

		var event tasks.AnalyticsEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			// 消息格式错误，直接提交，避免阻塞队列
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		} else if err := processor.Apply(ctx, event); err != nil {
			// 统计数据允许少量丢失，不做重试
			log.Errorw("处理分析事件失败", "visitorId", event.VisitorID, "type", event.Type, "error", err)
		}

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}
