package model

import (
	"time"

	"gorm.io/datatypes"
)

type ContentType string

const (
	ContentDebate  ContentType = "DEBATE"
	ContentComment ContentType = "COMMENT"
)

// CensorshipRecord 被标记内容的审计日志，只追加
type CensorshipRecord struct {
	ID         string                      `gorm:"primaryKey;size:36" json:"id"`
	Type       ContentType                 `gorm:"size:16;not null;index" json:"type"`
	ContentID  string                      `gorm:"size:36;not null;index" json:"contentId"`
	DebateID   *string                     `gorm:"size:36;index" json:"debateId"`
	Original   string                      `gorm:"type:text" json:"original"`
	Author     string                      `gorm:"size:64;index" json:"author"`
	Reason     string                      `gorm:"size:255" json:"reason"`
	Categories datatypes.JSONSlice[string] `json:"categories"`
	CreatedAt  time.Time                   `json:"createdAt"`
}

func (CensorshipRecord) TableName() string {
	return "censorship_records"
}
