// Package kafka publishes and tails domain events with confluent-kafka-go.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"brewfeed/internal/config"
)

// flushTimeoutMs bounds how long Close waits for queued messages.
const flushTimeoutMs = 15 * 1000

// MessageProducer defines the interface for a Kafka message producer.
type MessageProducer interface {
	SendMessage(ctx context.Context, topic string, key []byte, payload []byte) error
	Close()
}

// confluentKafkaProducer is an implementation of MessageProducer using confluent-kafka-go.
type confluentKafkaProducer struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// baseConfigMap holds the settings shared by producers and consumers.
func baseConfigMap(cfg config.KafkaConfig) *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(cfg.Brokers, ","),
		"security.protocol": cfg.Protocol,
	}
	if cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", cfg.ClientID)
	}
	return configMap
}

// NewConfluentKafkaProducer creates a new Kafka producer instance using confluent-kafka-go.
func NewConfluentKafkaProducer(cfg config.KafkaConfig, logger *slog.Logger) (MessageProducer, error) {
	configMap := baseConfigMap(cfg)
	_ = configMap.SetKey("acks", "all")

	p, err := kafka.NewProducer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &confluentKafkaProducer{producer: p, logger: logger.With("component", "kafka-producer")}, nil
}

// SendMessage sends a single message to the specified Kafka topic and waits
// for its delivery report or ctx, whichever comes first.
func (p *confluentKafkaProducer) SendMessage(ctx context.Context, topic string, key []byte, payload []byte) error {
	// Buffered so a late report after ctx expiry does not block librdkafka.
	deliveryChan := make(chan kafka.Event, 1)

	kafkaMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          payload,
		Timestamp:      time.Now(),
	}

	if err := p.producer.Produce(kafkaMsg, deliveryChan); err != nil {
		return fmt.Errorf("kafka producer failed to enqueue message for topic %s: %w", topic, err)
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("kafka producer: unexpected event type received on delivery channel: %T %v", e, e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("kafka producer: delivery failed for topic %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kafka producer: context canceled while waiting for delivery report for topic %s: %w", topic, ctx.Err())
	}
}

// Close flushes any outstanding messages and closes the Kafka producer.
func (p *confluentKafkaProducer) Close() {
	if p.producer == nil {
		return
	}
	if remaining := p.producer.Flush(flushTimeoutMs); remaining > 0 {
		p.logger.Warn("messages still outstanding after flush", "remaining", remaining)
	}
	p.producer.Close()
	p.producer = nil
	p.logger.Info("kafka producer closed")
}
