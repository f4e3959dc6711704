package service

import (
	"context"

	"Debate_Community/internal/model"
	"Debate_Community/internal/moderation"
	"Debate_Community/internal/repository"
)

// DebateStore 带版本号的文档存储，Update 在版本不一致时返回 repository.ErrConflict
type DebateStore interface {
	Get(ctx context.Context, id string) (*model.Debate, error)
	Create(ctx context.Context, d *model.Debate) error
	Update(ctx context.Context, d *model.Debate, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q repository.DebateQuery) ([]model.Debate, error)
	Scan(ctx context.Context, afterID string, limit int) ([]model.Debate, error)
}

type Moderator interface {
	Moderate(ctx context.Context, text string) (moderation.Verdict, error)
}

type CensorshipLog interface {
	Append(ctx context.Context, rec *model.CensorshipRecord) error
}

type NotificationSink interface {
	Notify(ctx context.Context, n *model.Notification) error
}

type NotificationStore interface {
	ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, cursor uint64, limit int) ([]model.Notification, uint64, error)
	MarkRead(ctx context.Context, recipient string, id uint64) error
}

type CategoryLookup interface {
	FindByID(ctx context.Context, id string) (*model.Category, error)
}

type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Ranking 热度排行缓存，可为空
type Ranking interface {
	Set(ctx context.Context, debateID string, popularity int64) error
	Remove(ctx context.Context, debateID string) error
	Top(ctx context.Context, offset, limit int) ([]string, error)
}

// RankingRebuilder 全量重建：Begin 之后的线上写入由 Dirty 返回，Swap 后补写
type RankingRebuilder interface {
	Ranking
	Begin(ctx context.Context) error
	Stage(ctx context.Context, scores map[string]int64) error
	Swap(ctx context.Context) error
	Dirty(ctx context.Context) ([]string, error)
	Discard(ctx context.Context) error
}

// Locker 带过期时间的互斥锁，长任务需要定期 Extend
type Locker interface {
	Acquire(ctx context.Context, name, token string) (bool, error)
	Extend(ctx context.Context, name, token string) (bool, error)
	Release(ctx context.Context, name, token string) error
}

type OutboxStore interface {
	List(ctx context.Context, batchSize, maxRetry int) ([]model.NotificationOutbox, error)
	RetryUpdate(ctx context.Context, id uint64) error
	SuccessUpdate(ctx context.Context, id uint64) error
}
