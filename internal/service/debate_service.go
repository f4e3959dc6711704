package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"Debate_Community/internal/metrics"
	"Debate_Community/internal/model"
	"Debate_Community/internal/moderation"
	"Debate_Community/internal/repository"
)

type DebateDeps struct {
	Store      DebateStore
	Gate       Moderator
	Audit      CensorshipLog
	Categories CategoryLookup
	Fanout     *NotificationFanout
	Ranking    Ranking // 可为空，为空时排行直接查库
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// DebateService 辩题聚合：创建、修改、删除、读取，以及立场、评论、关注
type DebateService struct {
	docs       docStore
	store      DebateStore
	gate       Moderator
	audit      CensorshipLog
	categories CategoryLookup
	fanout     *NotificationFanout
	ranking    Ranking
	opts       Options
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewDebateService(deps DebateDeps, opts Options) *DebateService {
	opts = opts.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DebateService{
		docs:       docStore{store: deps.Store, opts: opts, metrics: deps.Metrics},
		store:      deps.Store,
		gate:       deps.Gate,
		audit:      deps.Audit,
		categories: deps.Categories,
		fanout:     deps.Fanout,
		ranking:    deps.Ranking,
		opts:       opts,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

type CreateDebateInput struct {
	Title      string
	Body       string
	CategoryID string
	Refs       []string
	Image      string
}

// UpdateDebateInput 部分更新，nil 表示不修改
type UpdateDebateInput struct {
	Title      *string
	Body       *string
	CategoryID *string
	Refs       *[]string
	Image      *string
}

func (in UpdateDebateInput) empty() bool {
	return in.Title == nil && in.Body == nil && in.CategoryID == nil && in.Refs == nil && in.Image == nil
}

// DebateView 读接口返回的辩题，附带分类名和最佳论点
type DebateView struct {
	model.Debate
	CategoryName string         `json:"categoryName"`
	BestArgument *model.Comment `json:"bestArgument"`
}

func (s *DebateService) Create(ctx context.Context, owner string, in CreateDebateInput) (*model.Debate, error) {
	owner = strings.TrimSpace(owner)
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	switch {
	case owner == "":
		return nil, ValidationError("owner required")
	case in.Title == "":
		return nil, ValidationError("title required")
	case in.Body == "":
		return nil, ValidationError("body required")
	case in.CategoryID == "":
		return nil, ValidationError("category required")
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	text := in.Title + "\n" + in.Body
	verdict, err := s.moderate(ctx, text)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	d := &model.Debate{
		ID:               s.opts.NewID(),
		Title:            in.Title,
		Body:             in.Body,
		CategoryID:       in.CategoryID,
		Owner:            owner,
		Refs:             in.Refs,
		Image:            strings.TrimSpace(in.Image),
		InFavor:          []string{owner},
		Against:          []string{},
		Followers:        []string{owner},
		Comments:         []model.Comment{},
		Popularity:       model.PositionFor.Weight(),
		ModerationStatus: model.ModerationApproved,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if c, ok := verdict.(moderation.Censored); ok {
		d.ModerationStatus = model.ModerationCensored
		d.ModerationReason = &c.Reason
		// 先写审计，再写内容
		if err := s.recordCensorship(ctx, model.ContentDebate, d.ID, nil, text, owner, c); err != nil {
			return nil, err
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.store.Create(cctx, d); err != nil {
		return nil, storeErr("debate", err)
	}
	s.syncRanking(ctx, d)
	return d, nil
}

// Get 读取辩题并解析分类名和最佳论点
func (s *DebateService) Get(ctx context.Context, id string) (*DebateView, error) {
	d, err := s.docs.load(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []model.Debate{*d})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Update 部分字段修改，只有辩题作者可以修改
func (s *DebateService) Update(ctx context.Context, actor, id string, in UpdateDebateInput) (*model.Debate, error) {
	if in.empty() {
		return nil, ValidationError("nothing to update")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, ValidationError("title cannot be empty")
	}
	if in.Body != nil && strings.TrimSpace(*in.Body) == "" {
		return nil, ValidationError("body cannot be empty")
	}
	if in.CategoryID != nil {
		if err := s.requireCategory(ctx, strings.TrimSpace(*in.CategoryID)); err != nil {
			return nil, err
		}
	}

	var censored *moderation.Censored
	if s.opts.ModerateEdits && (in.Title != nil || in.Body != nil) {
		cur, err := s.docs.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur.Owner != actor {
			return nil, ForbiddenError("only the owner can edit this debate")
		}
		title, body := cur.Title, cur.Body
		if in.Title != nil {
			title = strings.TrimSpace(*in.Title)
		}
		if in.Body != nil {
			body = strings.TrimSpace(*in.Body)
		}
		text := title + "\n" + body
		verdict, err := s.moderate(ctx, text)
		if err != nil {
			return nil, err
		}
		if c, ok := verdict.(moderation.Censored); ok {
			censored = &c
			if err := s.recordCensorship(ctx, model.ContentDebate, id, nil, text, actor, c); err != nil {
				return nil, err
			}
		}
	}

	d, err := s.docs.mutate(ctx, "update", id, func(d *model.Debate) error {
		if d.Owner != actor {
			return ForbiddenError("only the owner can edit this debate")
		}
		if in.Title != nil {
			d.Title = strings.TrimSpace(*in.Title)
		}
		if in.Body != nil {
			d.Body = strings.TrimSpace(*in.Body)
		}
		if in.CategoryID != nil {
			d.CategoryID = strings.TrimSpace(*in.CategoryID)
		}
		if in.Refs != nil {
			d.Refs = *in.Refs
		}
		if in.Image != nil {
			d.Image = strings.TrimSpace(*in.Image)
		}
		if censored != nil {
			d.ModerationStatus = model.ModerationCensored
			reason := censored.Reason
			d.ModerationReason = &reason
		}
		d.UpdatedAt = s.opts.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Delete 删除辩题，评论和立场集合随文档一起删除
func (s *DebateService) Delete(ctx context.Context, actor, id string) error {
	d, err := s.docs.load(ctx, id)
	if err != nil {
		return err
	}
	if d.Owner != actor {
		return ForbiddenError("only the owner can delete this debate")
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.store.Delete(cctx, id); err != nil {
		return storeErr("debate", err)
	}
	if s.ranking != nil {
		if err := s.ranking.Remove(ctx, id); err != nil {
			s.metrics.RankingError()
			s.logger.WarnContext(ctx, "ranking remove failed", "debate_id", id, "err", err)
		}
	}
	return nil
}

// Follow 关注辩题，返回是否发生变化
func (s *DebateService) Follow(ctx context.Context, id, username string) (bool, error) {
	return s.setFollow(ctx, id, username, true)
}

func (s *DebateService) Unfollow(ctx context.Context, id, username string) (bool, error) {
	return s.setFollow(ctx, id, username, false)
}

func (s *DebateService) setFollow(ctx context.Context, id, username string, follow bool) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, ValidationError("username required")
	}
	changed := false
	_, err := s.docs.mutate(ctx, "follow", id, func(d *model.Debate) error {
		if d.IsFollower(username) == follow {
			changed = false
			return errNoChange
		}
		if follow {
			d.Followers = append(d.Followers, username)
		} else {
			d.Followers = removeAll(d.Followers, username)
		}
		changed = true
		return nil
	})
	return changed, err
}

func (s *DebateService) requireCategory(ctx context.Context, id string) error {
	if id == "" {
		return ValidationError("category required")
	}
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		return storeErr("category", err)
	}
	return nil
}

// moderate 把审核拒绝转成 ModerationRejected 错误，其余裁决原样返回
func (s *DebateService) moderate(ctx context.Context, text string) (moderation.Verdict, error) {
	v, err := s.gate.Moderate(ctx, text)
	if err != nil {
		return nil, moderationErr(err)
	}
	switch v := v.(type) {
	case moderation.Rejected:
		return nil, RejectedError(v)
	case moderation.Censored, moderation.Approved:
		return v, nil
	default:
		return nil, &Error{Kind: KindInternal, Message: "unexpected moderation verdict"}
	}
}

func (s *DebateService) recordCensorship(ctx context.Context, typ model.ContentType, contentID string, debateID *string, original, author string, c moderation.Censored) error {
	rec := &model.CensorshipRecord{
		ID:         s.opts.NewID(),
		Type:       typ,
		ContentID:  contentID,
		DebateID:   debateID,
		Original:   original,
		Author:     author,
		Reason:     c.Reason,
		Categories: c.Categories,
		CreatedAt:  s.opts.Now(),
	}
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.audit.Append(cctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "censorship audit write failed", "content_id", contentID, "type", typ, "err", err)
		return storeErr("censorship record", err)
	}
	return nil
}

// syncRanking 排行缓存尽力更新，失败只记日志，对账任务会修正
func (s *DebateService) syncRanking(ctx context.Context, d *model.Debate) {
	if s.ranking == nil {
		return
	}
	if err := s.ranking.Set(ctx, d.ID, d.Popularity); err != nil {
		s.metrics.RankingError()
		s.logger.WarnContext(ctx, "ranking update failed", "debate_id", d.ID, "err", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
