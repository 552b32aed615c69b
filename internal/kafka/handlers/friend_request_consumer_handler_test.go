package kafkahandlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendnet/internal/models"
)

func TestHandleFriendRequestEvent(t *testing.T) {
	var got []models.FriendRequestEvent
	logic := NewFriendRequestConsumerLogic(func(_ context.Context, e models.FriendRequestEvent) error {
		got = append(got, e)
		return nil
	})

	event := models.FriendRequestEvent{
		Type:       models.FriendRequestAccepted,
		RequestID:  4,
		SenderID:   1,
		ReceiverID: 2,
		Status:     models.FriendRequestStatusAccepted,
		ActorID:    2,
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, logic.HandleFriendRequestEvent(context.Background(), &kafka.Message{Value: payload}))
	require.Len(t, got, 1)
	assert.Equal(t, event, got[0])
}

func TestHandleFriendRequestEventSkipsGarbage(t *testing.T) {
	called := false
	logic := NewFriendRequestConsumerLogic(func(context.Context, models.FriendRequestEvent) error {
		called = true
		return nil
	})

	err := logic.HandleFriendRequestEvent(context.Background(), &kafka.Message{Value: []byte("{not json")})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestHandleFriendRequestEventPropagatesSinkErrors(t *testing.T) {
	boom := errors.New("boom")
	logic := NewFriendRequestConsumerLogic(func(context.Context, models.FriendRequestEvent) error { return boom })

	err := logic.HandleFriendRequestEvent(context.Background(), &kafka.Message{Value: []byte(`{"type":"friend_request.created"}`)})
	assert.ErrorIs(t, err, boom)
}
