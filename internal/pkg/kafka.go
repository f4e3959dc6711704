package pkg

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType = "event-type"
	HeaderDebateID  = "debate-id"
	HeaderOutboxID  = "outbox-id"
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// NotificationEvent 一条待投递的 outbox 事件
type NotificationEvent struct {
	OutboxID  uint64
	EventType string
	Recipient string
	DebateID  string
	Payload   []byte
	CreatedAt time.Time
}

// NotificationPublisher 把通知事件写入 kafka，同一收件人的事件落在同一分区
type NotificationPublisher struct {
	writer *kafka.Writer
}

func NewNotificationPublisher(cfg KafkaConfig) (*NotificationPublisher, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka brokers and topic are required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &NotificationPublisher{writer: w}, nil
}

func (p *NotificationPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *NotificationPublisher) Publish(ctx context.Context, ev NotificationEvent) error {
	if ev.Recipient == "" {
		return errors.New("notification event without recipient")
	}
	return p.writer.WriteMessages(ctx, notificationMessage(ev))
}

// notificationMessage key 为收件人，事件类型和来源放在 header 里方便消费方过滤
func notificationMessage(ev NotificationEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.Recipient),
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(ev.EventType)},
			{Key: HeaderDebateID, Value: []byte(ev.DebateID)},
			{Key: HeaderOutboxID, Value: []byte(strconv.FormatUint(ev.OutboxID, 10))},
		},
	}
}
