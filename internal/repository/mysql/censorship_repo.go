package mysql

import (
	"context"

	"Debate_Community/internal/model"

	"gorm.io/gorm"
)

type CensorshipRepository struct {
	DB *gorm.DB
}

// Append 只追加，审计记录不做修改
func (r *CensorshipRepository) Append(ctx context.Context, rec *model.CensorshipRecord) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

func (r *CensorshipRepository) ListByContent(ctx context.Context, contentID string) ([]model.CensorshipRecord, error) {
	var list []model.CensorshipRecord
	err := r.DB.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}
