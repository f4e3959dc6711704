package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"Debate_Community/internal/metrics"
	"Debate_Community/internal/model"
	"Debate_Community/internal/pkg"
)

// AnonymizeStats 匿名化结果；Cursor 是最后处理完的辩题 id，可用于断点续跑
type AnonymizeStats struct {
	DebatesScanned    int    `json:"debatesScanned"`
	DebatesRewritten  int    `json:"debatesRewritten"`
	FavorRemoved      int    `json:"favorRemoved"`
	AgainstRemoved    int    `json:"againstRemoved"`
	FollowersRemoved  int    `json:"followersRemoved"`
	CommentsRewritten int    `json:"commentsRewritten"`
	Cursor            string `json:"cursor"`
	Done              bool   `json:"done"`
}

func (s AnonymizeStats) Total() int {
	return s.DebatesRewritten + s.FavorRemoved + s.AgainstRemoved + s.FollowersRemoved + s.CommentsRewritten
}

type DebateRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type PositionRef struct {
	DebateID string         `json:"debateId"`
	Title    string         `json:"title"`
	Position model.Position `json:"position"`
}

type CommentRef struct {
	DebateID  string    `json:"debateId"`
	CommentID string    `json:"commentId"`
	Body      string    `json:"body"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActivitySummary 注销前展示给用户的活动概览
type ActivitySummary struct {
	Username        string        `json:"username"`
	DebatesCreated  int           `json:"debatesCreated"`
	PositionsHeld   int           `json:"positionsHeld"`
	CommentsWritten int           `json:"commentsWritten"`
	Debates         []DebateRef   `json:"debates"`
	Positions       []PositionRef `json:"positions"`
	Comments        []CommentRef  `json:"comments"`
}

type AnonymizeDeps struct {
	Store   DebateStore
	Users   UserDirectory // 可为空
	Lock    Locker        // 可为空
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// AnonymizationService 在全部辩题中抹去用户身份，内容本身保留
type AnonymizationService struct {
	docs    docStore
	store   DebateStore
	users   UserDirectory
	lock    Locker
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewAnonymizationService(deps AnonymizeDeps, opts Options) *AnonymizationService {
	opts = opts.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AnonymizationService{
		docs:    docStore{store: deps.Store, opts: opts, metrics: deps.Metrics},
		store:   deps.Store,
		users:   deps.Users,
		lock:    deps.Lock,
		opts:    opts,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

func (s *AnonymizationService) Sentinel() string { return s.opts.RedactionSentinel }

func (s *AnonymizationService) Anonymize(ctx context.Context, username string) (AnonymizeStats, error) {
	return s.AnonymizeFrom(ctx, username, "")
}

// AnonymizeFrom 从 cursor 之后分批扫描并改写。热度不回退。
// 出错或被取消时返回已完成部分的统计，调用方可用 stats.Cursor 续跑。
func (s *AnonymizationService) AnonymizeFrom(ctx context.Context, username, cursor string) (AnonymizeStats, error) {
	stats := AnonymizeStats{Cursor: cursor}
	username = strings.TrimSpace(username)
	if username == "" {
		return stats, ValidationError("username required")
	}
	if username == s.opts.RedactionSentinel {
		return stats, ValidationError("cannot anonymize the redaction placeholder")
	}

	name := "anonymize:" + username
	token := pkg.NewID()
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, name, token)
		if err != nil {
			return stats, &Error{Kind: KindUnavailable, Message: "lock unavailable", Err: err}
		}
		if !ok {
			return stats, &Error{Kind: KindConflict, Message: "anonymization already running for this user"}
		}
		defer func() { _ = s.lock.Release(context.WithoutCancel(ctx), name, token) }()
	}

	defer func() {
		s.metrics.Anonymized("ownership", stats.DebatesRewritten)
		s.metrics.Anonymized("in_favor", stats.FavorRemoved)
		s.metrics.Anonymized("against", stats.AgainstRemoved)
		s.metrics.Anonymized("followers", stats.FollowersRemoved)
		s.metrics.Anonymized("comments", stats.CommentsRewritten)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return stats, &Error{Kind: KindUnavailable, Message: "anonymization interrupted", Err: err}
		}
		batch, err := s.scan(ctx, stats.Cursor)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			stats.Done = true
			s.logger.InfoContext(ctx, "anonymization finished", "username", username, "rewritten", stats.Total(), "scanned", stats.DebatesScanned)
			return stats, nil
		}
		for i := range batch {
			d := &batch[i]
			stats.DebatesScanned++
			if touches(d, username) {
				if err := s.rewrite(ctx, d.ID, username, &stats); err != nil {
					s.logger.ErrorContext(ctx, "anonymization rewrite failed", "username", username, "debate_id", d.ID, "err", err)
					return stats, err
				}
			}
			stats.Cursor = d.ID
		}
		// 每批结束续期，防止全量扫描超过锁的过期时间
		if s.lock != nil {
			ok, err := s.lock.Extend(ctx, name, token)
			if err != nil {
				return stats, &Error{Kind: KindUnavailable, Message: "lock unavailable", Err: err}
			}
			if !ok {
				s.logger.WarnContext(ctx, "anonymization lock lost", "username", username, "cursor", stats.Cursor)
				return stats, errLockLost
			}
		}
	}
}

// rewrite 对单个辩题做 CAS 改写；冲突重试时以最后一次成功写入的计数为准
func (s *AnonymizationService) rewrite(ctx context.Context, id, username string, stats *AnonymizeStats) error {
	var delta AnonymizeStats
	_, err := s.docs.mutate(ctx, "anonymize", id, func(d *model.Debate) error {
		delta = redact(d, username, s.opts.RedactionSentinel)
		if delta.Total() == 0 {
			return errNoChange
		}
		return nil
	})
	if IsKind(err, KindNotFound) {
		// 扫描之后被删除
		return nil
	}
	if err != nil {
		return err
	}
	stats.DebatesRewritten += delta.DebatesRewritten
	stats.FavorRemoved += delta.FavorRemoved
	stats.AgainstRemoved += delta.AgainstRemoved
	stats.FollowersRemoved += delta.FollowersRemoved
	stats.CommentsRewritten += delta.CommentsRewritten
	return nil
}

func (s *AnonymizationService) scan(ctx context.Context, cursor string) ([]model.Debate, error) {
	batch, err := pkg.RetryOnce(ctx, func(ctx context.Context) ([]model.Debate, error) {
		cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
		defer cancel()
		return s.store.Scan(cctx, cursor, s.opts.AnonymizeChunk)
	})
	if err != nil {
		return nil, storeErr("debate", err)
	}
	return batch, nil
}

func touches(d *model.Debate, username string) bool {
	if d.Owner == username || d.PositionOf(username) != model.PositionNone || d.IsFollower(username) {
		return true
	}
	for _, c := range d.Comments {
		if c.Author == username {
			return true
		}
	}
	return false
}

// redact 原地改写一个辩题，返回各类改写数量
func redact(d *model.Debate, username, sentinel string) AnonymizeStats {
	var st AnonymizeStats
	if d.Owner == username {
		d.Owner = sentinel
		st.DebatesRewritten = 1
	}
	if n := len(d.InFavor); n > 0 {
		d.InFavor = removeAll(d.InFavor, username)
		st.FavorRemoved = n - len(d.InFavor)
	}
	if n := len(d.Against); n > 0 {
		d.Against = removeAll(d.Against, username)
		st.AgainstRemoved = n - len(d.Against)
	}
	if n := len(d.Followers); n > 0 {
		d.Followers = removeAll(d.Followers, username)
		st.FollowersRemoved = n - len(d.Followers)
	}
	for i := range d.Comments {
		if d.Comments[i].Author == username {
			d.Comments[i].Author = sentinel
			st.CommentsRewritten++
		}
	}
	return st
}

// ActivitySummary 只读扫描，统计用户创建的辩题、持有的立场和发表的评论
func (s *AnonymizationService) ActivitySummary(ctx context.Context, username string) (*ActivitySummary, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ValidationError("username required")
	}
	if s.users != nil {
		if _, err := s.users.FindByUsername(ctx, username); err != nil {
			return nil, storeErr("user", err)
		}
	}
	sum := &ActivitySummary{
		Username:  username,
		Debates:   []DebateRef{},
		Positions: []PositionRef{},
		Comments:  []CommentRef{},
	}
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: KindUnavailable, Message: "activity scan interrupted", Err: err}
		}
		batch, err := s.scan(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, d := range batch {
			if d.Owner == username {
				sum.Debates = append(sum.Debates, DebateRef{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt})
			}
			if p := d.PositionOf(username); p != model.PositionNone {
				sum.Positions = append(sum.Positions, PositionRef{DebateID: d.ID, Title: d.Title, Position: p})
			}
			for _, c := range d.Comments {
				if c.Author == username {
					sum.Comments = append(sum.Comments, CommentRef{DebateID: d.ID, CommentID: c.ID, Body: c.Body, Likes: c.Likes, CreatedAt: c.CreatedAt})
				}
			}
		}
		cursor = batch[len(batch)-1].ID
	}
	sum.DebatesCreated = len(sum.Debates)
	sum.PositionsHeld = len(sum.Positions)
	sum.CommentsWritten = len(sum.Comments)
	return sum, nil
}
