package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"friendnet/internal/config"
	"friendnet/internal/logger"
)

// MessageHandler processes one consumed message. Returning nil commits it.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error
	Close()
}

type confluentKafkaConsumer struct {
	consumer *kafka.Consumer
	cfg      config.KafkaConfig
	groupID  string
}

// NewConfluentKafkaConsumer creates a consumer; the underlying client is
// created when Consume learns the group id.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig) MessageConsumer {
	return &confluentKafkaConsumer{cfg: cfg}
}

// Consume polls topics until ctx is done or a fatal error occurs. Offsets
// are committed manually after handler succeeds.
func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	c.groupID = groupID
	log := logger.Log.WithFields(logrus.Fields{"group": groupID, "topics": topics})

	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(c.cfg.Brokers, ","),
		"group.id":           groupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": "false",
		"security.protocol":  c.cfg.Protocol,
	}
	if c.cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", c.cfg.ClientID)
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", groupID, err)
	}
	c.consumer = consumer

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		_ = c.consumer.Close()
		c.consumer = nil
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, groupID, err)
	}
	log.Info("kafka consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Info("kafka consumer stopping")
			return nil
		default:
		}

		ev := c.consumer.Poll(1000)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			entry := log.WithFields(logrus.Fields{"topic": *e.TopicPartition.Topic, "offset": e.TopicPartition.Offset})
			if err := handler(ctx, e); err != nil {
				entry.WithError(err).Error("failed to process kafka message")
				continue
			}
			if _, err := c.consumer.CommitMessage(e); err != nil {
				entry.WithError(err).Warn("failed to commit kafka offset")
			}
		case kafka.Error:
			log.WithError(e).WithField("fatal", e.IsFatal()).Error("kafka consumer error")
			if e.IsFatal() {
				return e
			}
		case kafka.AssignedPartitions:
			log.WithField("partitions", e.Partitions).Info("partitions assigned")
			_ = c.consumer.Assign(e.Partitions)
		case kafka.RevokedPartitions:
			log.WithField("partitions", e.Partitions).Info("partitions revoked")
			_ = c.consumer.Unassign()
		}
	}
}

// Close closes the Kafka consumer.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer == nil {
		return
	}
	if err := c.consumer.Close(); err != nil {
		logger.Log.WithError(err).WithField("group", c.groupID).Error("error closing kafka consumer")
	}
	c.consumer = nil
}
