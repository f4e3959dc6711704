package service

import (
	"context"
	"log/slog"
	"time"

	"Debate_Community/internal/metrics"
	"Debate_Community/internal/model"
	"Debate_Community/internal/pkg"
)

type Sender func(ctx context.Context, ob *model.NotificationOutbox) error

// OutboxRelayer 从 outbox 表读取通知事件投递到 kafka
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewOutboxRelayer(repo OutboxStore, sender Sender, interval time.Duration, batchSize int, m *metrics.Metrics, logger *slog.Logger) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxRelayer{
		repo:      repo,
		batchSize: batchSize,
		maxRetry:  5,
		interval:  interval,
		sender:    sender,
		metrics:   m,
		logger:    logger,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		r.logger.ErrorContext(ctx, "outbox query failed", "err", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			r.metrics.OutboxRelay("failed")
			r.logger.WarnContext(ctx, "outbox send failed", "outbox_id", ob.ID, "recipient", ob.Recipient, "retry", ob.Retry, "err", err)
			if uerr := r.repo.RetryUpdate(ctx, ob.ID); uerr != nil {
				r.logger.ErrorContext(ctx, "outbox retry update failed", "outbox_id", ob.ID, "err", uerr)
			}
			continue
		}
		r.metrics.OutboxRelay("sent")
		if uerr := r.repo.SuccessUpdate(ctx, ob.ID); uerr != nil {
			r.logger.ErrorContext(ctx, "outbox success update failed", "outbox_id", ob.ID, "err", uerr)
			continue
		}
		sent++
	}
	return sent
}

// LogSender 没有配置 kafka 时使用，只打日志
func LogSender(logger *slog.Logger) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		logger.InfoContext(ctx, "outbox send", "type", ob.EventType, "recipient", ob.Recipient, "debate_id", ob.DebateID, "payload", ob.Payload)
		return nil
	}
}

// KafkaSender outbox 行转成通知事件投递
func KafkaSender(p *pkg.NotificationPublisher) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		return p.Publish(ctx, pkg.NotificationEvent{
			OutboxID:  ob.ID,
			EventType: ob.EventType,
			Recipient: ob.Recipient,
			DebateID:  ob.DebateID,
			Payload:   []byte(ob.Payload),
			CreatedAt: ob.CreatedAt,
		})
	}
}
