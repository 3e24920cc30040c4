package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// JSONPublisher 把任意值序列化为 JSON 写入固定主题。
type JSONPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewJSONPublisher 复用客户端的 Writer，消息上携带 Topic。
func NewJSONPublisher(client *KafkaClient, topic string) *JSONPublisher {
	return &JSONPublisher{writer: client.Writer, topic: topic}
}

// Publish 以 key 分区写入一条消息，相同 key 的消息保持顺序。
func (p *JSONPublisher) Publish(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka topic %s: %w", p.topic, err)
	}
	return nil
}
