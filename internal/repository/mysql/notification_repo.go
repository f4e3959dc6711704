package mysql

import (
	"context"
	"encoding/json"
	"errors"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository"

	"gorm.io/gorm"
)

const EventCommentNotification = "comment_notification"

type NotificationRepository struct {
	DB *gorm.DB
}

type OutboxRepository struct {
	DB *gorm.DB
}

// Notify 通知和 outbox 在同一事务写入，投递交给 relayer
func (r *NotificationRepository) Notify(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		return r.insertOutbox(tx, n)
	})
}

// insertOutbox 写outbox表
func (r *NotificationRepository) insertOutbox(tx *gorm.DB, n *model.Notification) error {
	payload := map[string]any{
		"id":        n.ID,
		"recipient": n.Recipient,
		"message":   n.Message,
		"debateId":  n.DebateID,
		"createdAt": n.CreatedAt.UnixMilli(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ob := &model.NotificationOutbox{
		EventType: EventCommentNotification,
		Recipient: n.Recipient,
		DebateID:  n.DebateID,
		Payload:   string(b),
		Status:    model.OutboxPending,
	}
	return tx.Create(ob).Error
}

// ListByRecipient 按时间倒序，cursor 为上一页最后一条的 id
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, cursor uint64, limit int) ([]model.Notification, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.DB.WithContext(ctx).Model(&model.Notification{}).Where("recipient = ?", recipient)
	if unreadOnly {
		q = q.Where("`read` = ?", false)
	}
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Notification
	// 这里limit+1是为了判断是否还有下一页
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

// MarkRead 只能标记自己的通知，重复标记幂等
func (r *NotificationRepository) MarkRead(ctx context.Context, recipient string, id uint64) error {
	var n model.Notification
	err := r.DB.WithContext(ctx).Where("id = ? AND recipient = ?", id, recipient).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("read", true).Error
}

// List 待投递的 outbox，失败的记录在重试上限内会再次被捞出
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.NotificationOutbox, error) {
	var list []model.NotificationOutbox
	if err := r.DB.WithContext(ctx).
		Where("status IN ? AND retry < ?", []int8{model.OutboxPending, model.OutboxFailed}, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationOutbox{}).Where("id=?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationOutbox{}).Where("id=?", id).
		Update("status", model.OutboxSent).Error
}
