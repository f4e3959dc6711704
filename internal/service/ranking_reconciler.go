package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"Debate_Community/internal/pkg"
	"Debate_Community/internal/repository"
)

const reconcileLockName = "ranking:reconcile"

// RankingReconciler 定期从库里全量重建热度排行，修正缓存写失败造成的偏差
type RankingReconciler struct {
	store     DebateStore
	ranking   RankingRebuilder
	lock      Locker // 可为空；多实例部署时只让一个实例重建
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

func NewRankingReconciler(store DebateStore, ranking RankingRebuilder, lock Locker, interval time.Duration, batchSize int, logger *slog.Logger) *RankingReconciler {
	if batchSize <= 0 {
		batchSize = 500 // 设置一次对账的大小
	}
	if interval <= 0 {
		interval = 5 * time.Minute // 对账的间隔时间
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RankingReconciler{
		store:     store,
		ranking:   ranking,
		lock:      lock,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
	}
}

// Run 对账定时任务启动器
func (r *RankingReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := r.ReconcileOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "ranking reconcile failed", "err", err)
			} else {
				r.logger.DebugContext(ctx, "ranking reconciled", "debates", n)
			}
		}
	}
}

// ReconcileOnce 对账一次，返回写入排行的辩题数
func (r *RankingReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	token := pkg.NewID()
	if r.lock != nil {
		ok, err := r.lock.Acquire(ctx, reconcileLockName, token)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		defer func() { _ = r.lock.Release(context.WithoutCancel(ctx), reconcileLockName, token) }()
	}

	// 清掉上次中断留下的临时数据并打上重建标记
	if err := r.ranking.Begin(ctx); err != nil {
		return 0, err
	}
	total := 0
	cursor := ""
	for {
		batch, err := r.store.Scan(ctx, cursor, r.batchSize)
		if err != nil {
			_ = r.ranking.Discard(context.WithoutCancel(ctx))
			return total, storeErr("debate", err)
		}
		if len(batch) == 0 {
			break
		}
		scores := make(map[string]int64, len(batch))
		for _, d := range batch {
			scores[d.ID] = d.Popularity
		}
		if err := r.ranking.Stage(ctx, scores); err != nil {
			_ = r.ranking.Discard(context.WithoutCancel(ctx))
			return total, err
		}
		total += len(batch)
		cursor = batch[len(batch)-1].ID

		if r.lock != nil {
			ok, err := r.lock.Extend(ctx, reconcileLockName, token)
			if err == nil && !ok {
				err = errLockLost
			}
			if err != nil {
				_ = r.ranking.Discard(context.WithoutCancel(ctx))
				return total, err
			}
		}
	}
	if err := r.ranking.Swap(ctx); err != nil {
		return total, err
	}
	return total, r.replayDirty(ctx)
}

// replayDirty 重建期间被改过的辩题按库里最新值重写，已删除的从排行移除
func (r *RankingReconciler) replayDirty(ctx context.Context) error {
	ids, err := r.ranking.Dirty(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		d, err := r.store.Get(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			err = r.ranking.Remove(ctx, id)
		case err == nil:
			err = r.ranking.Set(ctx, id, d.Popularity)
		}
		if err != nil {
			r.logger.WarnContext(ctx, "ranking replay failed", "debate_id", id, "err", err)
		}
	}
	if len(ids) > 0 {
		r.logger.DebugContext(ctx, "ranking replayed writes made during rebuild", "debates", len(ids))
	}
	return nil
}
