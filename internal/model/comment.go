package model

import (
	"slices"
	"time"
)

// Comment 只作为 Debate.Comments 的元素存在，ParentID 为空表示根评论
type Comment struct {
	ID               string           `json:"id"`
	ParentID         string           `json:"parentId"`
	Author           string           `json:"author"`
	Body             string           `json:"body"`
	Position         bool             `json:"position"` // true=支持 false=反对，发表时的快照
	Likes            int              `json:"likes"`
	Dislikes         int              `json:"dislikes"`
	Refs             []string         `json:"refs,omitempty"`
	Image            string           `json:"image,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	ModerationStatus ModerationStatus `json:"moderationStatus"`
	ModerationReason *string          `json:"moderationReason,omitempty"`
}

func (c Comment) Clone() Comment {
	out := c
	out.Refs = slices.Clone(c.Refs)
	if c.ModerationReason != nil {
		r := *c.ModerationReason
		out.ModerationReason = &r
	}
	return out
}
