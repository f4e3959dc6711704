package mysql

import (
	"context"
	"errors"
	"strings"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository"

	"gorm.io/gorm"
)

type DebateRepository struct {
	DB *gorm.DB
}

func (r *DebateRepository) Get(ctx context.Context, id string) (*model.Debate, error) {
	var d model.Debate
	err := r.DB.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DebateRepository) Create(ctx context.Context, d *model.Debate) error {
	return r.DB.WithContext(ctx).Create(d).Error
}

// Update 乐观锁写回：只有 version 未变时才覆盖，成功后 d.Version 自增
func (r *DebateRepository) Update(ctx context.Context, d *model.Debate, expectedVersion int64) error {
	res := r.DB.WithContext(ctx).Model(&model.Debate{}).
		Where("id = ? AND version = ?", d.ID, expectedVersion).
		Updates(map[string]any{
			"title":             d.Title,
			"body":              d.Body,
			"category_id":       d.CategoryID,
			"owner":             d.Owner,
			"refs":              d.Refs,
			"image":             d.Image,
			"popularity":        d.Popularity,
			"in_favor":          d.InFavor,
			"against":           d.Against,
			"followers":         d.Followers,
			"comments":          d.Comments,
			"moderation_status": d.ModerationStatus,
			"moderation_reason": d.ModerationReason,
			"version":           expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// 区分文档不存在和版本冲突
		var n int64
		if err := r.DB.WithContext(ctx).Model(&model.Debate{}).Where("id = ?", d.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	d.Version = expectedVersion + 1
	return nil
}

func (r *DebateRepository) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&model.Debate{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List 分类、关键字、id 集合过滤后分页
func (r *DebateRepository) List(ctx context.Context, q repository.DebateQuery) ([]model.Debate, error) {
	q = q.Normalize()
	db := r.DB.WithContext(ctx).Model(&model.Debate{})
	if q.CategoryID != "" {
		db = db.Where("category_id = ?", q.CategoryID)
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		like := "%" + escapeLike(strings.ToLower(kw)) + "%"
		db = db.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(body) LIKE ? ESCAPE '!')", like, like)
	}
	if len(q.IDs) > 0 {
		db = db.Where("id IN ?", q.IDs)
	}
	switch q.Sort {
	case repository.SortPopularity:
		db = db.Order("popularity DESC, created_at DESC, id DESC")
	case repository.SortOldest:
		db = db.Order("created_at ASC, id ASC")
	default:
		db = db.Order("created_at DESC, id DESC")
	}
	var list []model.Debate
	if err := db.Offset(q.Offset).Limit(q.Limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Scan 按 id 升序分批遍历，afterID 为空表示从头开始
func (r *DebateRepository) Scan(ctx context.Context, afterID string, limit int) ([]model.Debate, error) {
	if limit <= 0 {
		limit = 100
	}
	db := r.DB.WithContext(ctx).Model(&model.Debate{})
	if afterID != "" {
		db = db.Where("id > ?", afterID)
	}
	var list []model.Debate
	if err := db.Order("id ASC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}
