package model

import "time"

type Notification struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Recipient string    `gorm:"size:64;not null;index:idx_recipient_time,priority:1" json:"recipient"`
	Message   string    `gorm:"size:255;not null" json:"message"`
	DebateID  string    `gorm:"size:36;not null" json:"debateId"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"index:idx_recipient_time,priority:2" json:"createdAt"`
}

// NotificationOutbox 通知事件投递表，和通知在同一事务写入
type NotificationOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"`
	Recipient string `gorm:"size:64;not null"`
	DebateID  string `gorm:"size:36;not null"`
	Payload   string `gorm:"type:json;not null"`
	Status    int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (NotificationOutbox) TableName() string { return "notification_outbox" }

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)
