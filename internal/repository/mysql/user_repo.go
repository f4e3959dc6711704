package mysql

import (
	"context"
	"errors"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	return r.first(ctx, "uid = ?", uid)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) first(ctx context.Context, cond string, arg any) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where(cond, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
