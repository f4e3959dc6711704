package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"Debate_Community/internal/metrics"
	"Debate_Community/internal/model"
)

const (
	ownerMessage    = "%s commented on your debate %q"
	followerMessage = "%s commented on a debate you follow: %q"
)

// Recipient 一条待发送的通知
type Recipient struct {
	Username string
	Message  string
}

// NotificationFanout 评论后给作者和关注者发通知，发送失败只记日志
type NotificationFanout struct {
	sink    NotificationSink
	spawn   func(func())
	now     func() time.Time
	timeout time.Duration
	skip    map[string]bool
	metrics *metrics.Metrics
	logger  *slog.Logger
	// 进行中的发送，关闭时等待
	inflight sync.WaitGroup
}

type FanoutOption func(*NotificationFanout)

// WithSpawn 替换异步执行方式，测试里传同步执行
func WithSpawn(spawn func(func())) FanoutOption {
	return func(f *NotificationFanout) { f.spawn = spawn }
}

// WithSkipRecipients 这些用户名不接收通知，例如匿名化后的占位名
func WithSkipRecipients(names ...string) FanoutOption {
	return func(f *NotificationFanout) {
		for _, n := range names {
			f.skip[n] = true
		}
	}
}

func WithFanoutMetrics(m *metrics.Metrics) FanoutOption {
	return func(f *NotificationFanout) { f.metrics = m }
}

func WithFanoutLogger(l *slog.Logger) FanoutOption {
	return func(f *NotificationFanout) { f.logger = l }
}

func NewNotificationFanout(sink NotificationSink, opts ...FanoutOption) *NotificationFanout {
	f := &NotificationFanout{
		sink:    sink,
		spawn:   func(fn func()) { go fn() },
		now:     func() time.Time { return time.Now().UTC() },
		timeout: 10 * time.Second,
		skip:    make(map[string]bool),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Recipients 作者和关注者去重。作者一定在内，即使评论者就是作者；
// 其余关注者里跳过评论者本人。
func Recipients(d *model.Debate, commentAuthor string) []Recipient {
	seen := make(map[string]bool, len(d.Followers)+1)
	var out []Recipient
	if d.Owner != "" {
		seen[d.Owner] = true
		out = append(out, Recipient{Username: d.Owner, Message: fmt.Sprintf(ownerMessage, commentAuthor, d.Title)})
	}
	for _, f := range d.Followers {
		f = strings.TrimSpace(f)
		if f == "" || f == commentAuthor || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, Recipient{Username: f, Message: fmt.Sprintf(followerMessage, commentAuthor, d.Title)})
	}
	return out
}

// NotifyOnComment 异步发送，不阻塞评论请求
func (f *NotificationFanout) NotifyOnComment(ctx context.Context, d *model.Debate, commentAuthor string) {
	var recipients []Recipient
	for _, r := range Recipients(d, commentAuthor) {
		if !f.skip[r.Username] {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return
	}
	debateID := d.ID
	bg := context.WithoutCancel(ctx)
	f.inflight.Add(1)
	f.spawn(func() {
		defer f.inflight.Done()
		cctx, cancel := context.WithTimeout(bg, f.timeout)
		defer cancel()
		f.dispatch(cctx, debateID, recipients)
	})
}

// Wait 等待进行中的发送完成，ctx 到期时返回 ctx 的错误
func (f *NotificationFanout) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *NotificationFanout) dispatch(ctx context.Context, debateID string, recipients []Recipient) {
	for _, r := range recipients {
		n := &model.Notification{
			Recipient: r.Username,
			Message:   r.Message,
			DebateID:  debateID,
			CreatedAt: f.now(),
		}
		if err := f.sink.Notify(ctx, n); err != nil {
			f.metrics.Notification("failed")
			f.logger.ErrorContext(ctx, "notification dispatch failed", "debate_id", debateID, "recipient", r.Username, "err", err)
			continue
		}
		f.metrics.Notification("sent")
	}
}

// NotificationService 用户查看和标记自己的通知
type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, username string, unreadOnly bool, cursor uint64, limit int) ([]model.Notification, uint64, error) {
	if strings.TrimSpace(username) == "" {
		return nil, 0, ValidationError("username required")
	}
	list, next, err := s.store.ListByRecipient(ctx, username, unreadOnly, cursor, limit)
	if err != nil {
		return nil, 0, storeErr("notification", err)
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, next, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, username string, id uint64) error {
	if id == 0 {
		return ValidationError("invalid notification id")
	}
	return storeErr("notification", s.store.MarkRead(ctx, username, id))
}
