package service

import (
	"context"
	"errors"

	"Debate_Community/internal/metrics"
	"Debate_Community/internal/model"
	"Debate_Community/internal/pkg"
	"Debate_Community/internal/repository"
)

// errNoChange 由 mutate 回调返回，表示无需写回
var errNoChange = errors.New("no change")

// errLockLost 长任务续期时发现锁已过期或被别人拿走
var errLockLost = &Error{Kind: KindConflict, Message: "lock expired before the job finished"}

// docStore 在 DebateStore 上加读重试、超时和版本冲突重试
type docStore struct {
	store   DebateStore
	opts    Options
	metrics *metrics.Metrics
}

func (s docStore) load(ctx context.Context, id string) (*model.Debate, error) {
	d, err := pkg.RetryOnce(ctx, func(ctx context.Context) (*model.Debate, error) {
		cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
		defer cancel()
		d, err := s.store.Get(cctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, pkg.Permanent(err)
		}
		return d, err
	})
	if err != nil {
		return nil, storeErr("debate", err)
	}
	return d, nil
}

// mutate 读-改-写，版本冲突时重新读取并重放 fn，超过次数返回 KindConflict。
// fn 返回 errNoChange 时不写回，直接返回当前文档。
func (s docStore) mutate(ctx context.Context, op, id string, fn func(d *model.Debate) error) (*model.Debate, error) {
	for attempt := 1; ; attempt++ {
		d, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(d); err != nil {
			if errors.Is(err, errNoChange) {
				return d, nil
			}
			return nil, err
		}
		err = s.write(ctx, d)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, storeErr("debate", err)
		}
		if attempt >= s.opts.MaxAttempts {
			s.metrics.ConflictExhausted(op)
			return nil, &Error{Kind: KindConflict, Message: "debate is being modified concurrently, try again", Err: err}
		}
		s.metrics.ConflictRetry(op)
	}
}

func (s docStore) write(ctx context.Context, d *model.Debate) error {
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return s.store.Update(cctx, d, d.Version)
}
