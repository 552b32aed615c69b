package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendnet/internal/models"
)

type sentMessage struct {
	topic   string
	key     []byte
	payload []byte
}

type recordingProducer struct {
	sent []sentMessage
}

func (p *recordingProducer) SendMessage(_ context.Context, topic string, key []byte, payload []byte) error {
	p.sent = append(p.sent, sentMessage{topic: topic, key: key, payload: payload})
	return nil
}

func (p *recordingProducer) Close() {}

func TestPublishFriendRequestEvent(t *testing.T) {
	producer := &recordingProducer{}
	pub := NewFriendRequestEventPublisher(producer, "friend-requests")

	event := models.FriendRequestEvent{
		Type:       models.FriendRequestCreated,
		RequestID:  12,
		SenderID:   1,
		ReceiverID: 2,
		Status:     models.FriendRequestStatusPending,
		ActorID:    1,
	}
	require.NoError(t, pub.PublishFriendRequestEvent(context.Background(), event))

	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	assert.Equal(t, "friend-requests", msg.topic)
	assert.Equal(t, "12", string(msg.key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, "friend_request.created", decoded["type"])
	assert.Equal(t, "Pending", decoded["status"])
	assert.EqualValues(t, 12, decoded["request_id"])
}
