package model

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

type ModerationStatus string

const (
	ModerationApproved ModerationStatus = "APPROVED"
	ModerationCensored ModerationStatus = "CENSORED"
)

// Debate 辩题文档：立场集合、关注者、评论都内嵌在同一行，version 用于乐观锁
type Debate struct {
	ID               string                       `gorm:"primaryKey;size:36" json:"id"`
	Title            string                       `gorm:"size:200;not null" json:"title"`
	Body             string                       `gorm:"type:text" json:"body"`
	CategoryID       string                       `gorm:"size:64;not null;index" json:"categoryId"`
	Owner            string                       `gorm:"size:64;not null;index" json:"owner"`
	Refs             datatypes.JSONSlice[string]  `json:"refs"`
	Image            string                       `gorm:"size:512" json:"image"`
	Popularity       int64                        `gorm:"not null;default:0;index" json:"popularity"`
	InFavor          datatypes.JSONSlice[string]  `json:"inFavor"`
	Against          datatypes.JSONSlice[string]  `json:"against"`
	Followers        datatypes.JSONSlice[string]  `json:"followers"`
	Comments         datatypes.JSONSlice[Comment] `json:"comments"`
	ModerationStatus ModerationStatus             `gorm:"size:16;not null;default:APPROVED" json:"moderationStatus"`
	ModerationReason *string                      `gorm:"size:255" json:"moderationReason"`
	Version          int64                        `gorm:"not null;default:0" json:"version"`
	CreatedAt        time.Time                    `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time                    `json:"updatedAt"`
}

// PositionOf 返回用户当前在该辩题上的立场
func (d *Debate) PositionOf(username string) Position {
	switch {
	case slices.Contains(d.InFavor, username):
		return PositionFor
	case slices.Contains(d.Against, username):
		return PositionAgainst
	default:
		return PositionNone
	}
}

func (d *Debate) IsFollower(username string) bool {
	return slices.Contains(d.Followers, username)
}

// CommentIndex 按 id 查找评论下标，找不到返回 -1
func (d *Debate) CommentIndex(id string) int {
	for i := range d.Comments {
		if d.Comments[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone 深拷贝，内存存储和重试循环里避免共享底层数组
func (d *Debate) Clone() *Debate {
	c := *d
	c.Refs = slices.Clone(d.Refs)
	c.InFavor = slices.Clone(d.InFavor)
	c.Against = slices.Clone(d.Against)
	c.Followers = slices.Clone(d.Followers)
	c.Comments = make(datatypes.JSONSlice[Comment], len(d.Comments))
	for i := range d.Comments {
		c.Comments[i] = d.Comments[i].Clone()
	}
	if d.ModerationReason != nil {
		r := *d.ModerationReason
		c.ModerationReason = &r
	}
	return &c
}
