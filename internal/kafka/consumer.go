package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"brewfeed/internal/config"
)

// pollTimeoutMs is how long one Poll call blocks.
const pollTimeoutMs = 1000

// MessageHandler processes one consumed message. The offset is committed
// only when it returns nil.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// ConsumerOptions select the consumer group and starting position.
type ConsumerOptions struct {
	GroupID       string
	FromBeginning bool
}

// EventConsumer tails event topics. The API server only produces; the admin
// CLI uses this to inspect what was published.
type EventConsumer struct {
	cfg    config.KafkaConfig
	logger *slog.Logger
}

// NewEventConsumer returns a consumer for the brokers in cfg.
func NewEventConsumer(cfg config.KafkaConfig, logger *slog.Logger) *EventConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventConsumer{cfg: cfg, logger: logger.With("component", "kafka-consumer")}
}

// Consume blocks until ctx is canceled or a fatal broker error occurs.
func (c *EventConsumer) Consume(ctx context.Context, topics []string, opts ConsumerOptions, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	if opts.GroupID == "" {
		return fmt.Errorf("kafka consumer: group id is required")
	}

	offsetReset := "latest"
	if opts.FromBeginning {
		offsetReset = "earliest"
	}
	configMap := baseConfigMap(c.cfg)
	_ = configMap.SetKey("group.id", opts.GroupID)
	_ = configMap.SetKey("auto.offset.reset", offsetReset)
	_ = configMap.SetKey("enable.auto.commit", false)

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", opts.GroupID, err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			c.logger.Error("closing kafka consumer", "group", opts.GroupID, "error", err)
		}
	}()

	if err := consumer.SubscribeTopics(topics, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, opts.GroupID, err)
	}

	log := c.logger.With("group", opts.GroupID)
	log.Info("kafka consumer started", "topics", topics)

	for {
		select {
		case <-ctx.Done():
			log.Info("kafka consumer stopping")
			return nil
		default:
		}

		ev := consumer.Poll(pollTimeoutMs)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if err := handler(ctx, e); err != nil {
				log.Error("processing kafka message", "topic", *e.TopicPartition.Topic, "offset", e.TopicPartition.Offset, "error", err)
				continue
			}
			if _, err := consumer.CommitMessage(e); err != nil {
				log.Warn("committing offset", "topic", *e.TopicPartition.Topic, "offset", e.TopicPartition.Offset, "error", err)
			}
		case kafka.Error:
			if e.IsFatal() {
				return fmt.Errorf("kafka consumer: fatal error: %w", e)
			}
			log.Warn("kafka consumer error", "code", e.Code(), "error", e)
		}
	}
}
