package pkg

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryOnce 最多执行两次，第二次前做一次短退避
func RetryOnce[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return backoff.Retry(ctx, func() (T, error) {
		return op(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(2))
}

// Permanent 标记不需要重试的错误
func Permanent(err error) error {
	return backoff.Permanent(err)
}
