package kafkahandlers

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"friendnet/internal/logger"
	"friendnet/internal/models"
)

// FriendRequestEventSink receives decoded ledger events.
type FriendRequestEventSink func(ctx context.Context, event models.FriendRequestEvent) error

// FriendRequestConsumerLogic decodes friend request events from Kafka and
// hands them to a sink.
type FriendRequestConsumerLogic struct {
	sink FriendRequestEventSink
}

// NewFriendRequestConsumerLogic creates a new instance of FriendRequestConsumerLogic.
func NewFriendRequestConsumerLogic(sink FriendRequestEventSink) *FriendRequestConsumerLogic {
	if sink == nil {
		logger.Log.Panic("friend request event sink cannot be nil")
	}
	return &FriendRequestConsumerLogic{sink: sink}
}

// HandleFriendRequestEvent is the kafka.MessageHandler for the friend
// request topic. Undecodable messages are logged and skipped so they do not
// block the partition.
func (h *FriendRequestConsumerLogic) HandleFriendRequestEvent(ctx context.Context, msg *kafka.Message) error {
	var event models.FriendRequestEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"key":   string(msg.Key),
			"value": string(msg.Value),
		}).Warn("skipping undecodable friend request event")
		return nil
	}
	return h.sink(ctx, event)
}
