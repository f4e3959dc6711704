package mysql

import (
	"context"
	"errors"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	DB *gorm.DB
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	err := r.DB.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	var list []model.Category
	err := r.DB.WithContext(ctx).Order("name ASC").Find(&list).Error
	return list, err
}
