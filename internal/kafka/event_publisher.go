package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"friendnet/internal/models"
)

// FriendRequestEventPublisher writes ledger events to one topic, keyed by
// request id so every event of a request lands on the same partition.
type FriendRequestEventPublisher struct {
	producer MessageProducer
	topic    string
}

// NewFriendRequestEventPublisher creates a publisher on topic.
func NewFriendRequestEventPublisher(producer MessageProducer, topic string) *FriendRequestEventPublisher {
	return &FriendRequestEventPublisher{producer: producer, topic: topic}
}

// PublishFriendRequestEvent serializes event as JSON and sends it.
func (p *FriendRequestEventPublisher) PublishFriendRequestEvent(ctx context.Context, event models.FriendRequestEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal friend request event: %w", err)
	}
	key := []byte(strconv.FormatUint(uint64(event.RequestID), 10))
	return p.producer.SendMessage(ctx, p.topic, key, payload)
}
