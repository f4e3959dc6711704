package pkg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotificationPublisher_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewNotificationPublisher(KafkaConfig{Topic: "t"})
	assert.Error(t, err)
	_, err = NewNotificationPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewNotificationPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "debate.notifications"})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestNotificationMessage(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := notificationMessage(NotificationEvent{
		OutboxID:  42,
		EventType: "comment_notification",
		Recipient: "alice",
		DebateID:  "d1",
		Payload:   []byte(`{"message":"hi"}`),
		CreatedAt: at,
	})

	assert.Equal(t, "alice", string(msg.Key))
	assert.JSONEq(t, `{"message":"hi"}`, string(msg.Value))
	assert.Equal(t, at, msg.Time)
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{
		HeaderEventType: "comment_notification",
		HeaderDebateID:  "d1",
		HeaderOutboxID:  "42",
	}, headers)
}

func TestPublish_RejectsMissingRecipient(t *testing.T) {
	p, err := NewNotificationPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	defer p.Close()
	assert.Error(t, p.Publish(context.Background(), NotificationEvent{Payload: []byte("{}")}))
}
