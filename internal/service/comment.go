package service

import (
	"context"
	"strings"

	"Debate_Community/internal/model"
	"Debate_Community/internal/moderation"
)

type CommentInput struct {
	Body     string
	ParentID string
	Refs     []string
	Image    string
}

type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

type ReactionMethod string

const (
	MethodAdd    ReactionMethod = "add"
	MethodRemove ReactionMethod = "remove"
)

var errNoPosition = ValidationError("must vote before commenting")

// AddComment 发表评论或回复。作者必须已表态，评论的 position 是发表时立场的快照。
func (s *DebateService) AddComment(ctx context.Context, debateID, author string, in CommentInput) (*model.Comment, error) {
	author = strings.TrimSpace(author)
	in.Body = strings.TrimSpace(in.Body)
	in.ParentID = strings.TrimSpace(in.ParentID)
	if author == "" {
		return nil, ValidationError("author required")
	}
	if in.Body == "" {
		return nil, ValidationError("comment body required")
	}

	d, err := s.docs.load(ctx, debateID)
	if err != nil {
		return nil, err
	}
	if d.PositionOf(author) == model.PositionNone {
		return nil, errNoPosition
	}

	verdict, err := s.moderate(ctx, in.Body)
	if err != nil {
		return nil, err
	}
	if in.ParentID != "" && d.CommentIndex(in.ParentID) < 0 {
		return nil, NotFoundError("parent comment not found")
	}

	c := model.Comment{
		ID:               s.opts.NewID(),
		ParentID:         in.ParentID,
		Author:           author,
		Body:             in.Body,
		Refs:             in.Refs,
		Image:            strings.TrimSpace(in.Image),
		CreatedAt:        s.opts.Now(),
		ModerationStatus: model.ModerationApproved,
	}
	if cv, ok := verdict.(moderation.Censored); ok {
		c.ModerationStatus = model.ModerationCensored
		reason := cv.Reason
		c.ModerationReason = &reason
		debateRef := debateID
		if err := s.recordCensorship(ctx, model.ContentComment, c.ID, &debateRef, in.Body, author, cv); err != nil {
			return nil, err
		}
	}

	updated, err := s.docs.mutate(ctx, "comment", debateID, func(d *model.Debate) error {
		// 重试时按最新文档重新校验
		pos := d.PositionOf(author)
		if pos == model.PositionNone {
			return errNoPosition
		}
		if c.ParentID != "" && d.CommentIndex(c.ParentID) < 0 {
			return NotFoundError("parent comment not found")
		}
		c.Position = pos == model.PositionFor
		d.Comments = append(d.Comments, c)
		d.Popularity++
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.syncRanking(ctx, updated)
	if s.fanout != nil {
		s.fanout.NotifyOnComment(ctx, updated, author)
	}
	out := c.Clone()
	return &out, nil
}

// LikeOrDislike 点赞/点踩计数加减一，计数不会小于 0
func (s *DebateService) LikeOrDislike(ctx context.Context, debateID, commentID string, action Reaction, method ReactionMethod) (*model.Comment, error) {
	if action != ReactionLike && action != ReactionDislike {
		return nil, ValidationError("action must be like or dislike")
	}
	if method != MethodAdd && method != MethodRemove {
		return nil, ValidationError("method must be add or remove")
	}
	var out model.Comment
	_, err := s.docs.mutate(ctx, "reaction", debateID, func(d *model.Debate) error {
		i := d.CommentIndex(commentID)
		if i < 0 {
			return NotFoundError("comment not found")
		}
		c := &d.Comments[i]
		counter := &c.Likes
		if action == ReactionDislike {
			counter = &c.Dislikes
		}
		before := *counter
		if method == MethodAdd {
			*counter++
		} else if *counter > 0 {
			*counter--
		}
		out = c.Clone()
		if *counter == before {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CommentTree 以树形结构返回评论
func (s *DebateService) CommentTree(ctx context.Context, debateID string) ([]*CommentNode, error) {
	d, err := s.docs.load(ctx, debateID)
	if err != nil {
		return nil, err
	}
	return BuildTree(d.Comments), nil
}
